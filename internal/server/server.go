// Package server exposes experiment sessions over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/ccgrun/internal/experiment"
)

// Cookie and header names that carry the participant's identity.
const (
	CookiePID     = "pid"
	CookieRole    = "user_role"
	HeaderPID     = "X-Participant-ID"
	HeaderRole    = "X-Participant-Role"
	cookieMaxAge  = 3600
	participantCK = "participant"
)

// participant serializes requests for one participant. The session is
// opened by the first request that needs it.
type participant struct {
	mu      sync.Mutex
	session *experiment.Session
}

// Server serves the experiment API. Sessions are opened on first use and
// kept until Close.
type Server struct {
	deps experiment.Deps
	log  *zap.Logger

	mu           sync.Mutex
	participants map[string]*participant
}

// New creates a Server over deps.
func New(deps experiment.Deps) *Server {
	log := zap.NewNop()
	if deps.Logs != nil {
		log = deps.Logs.Logger("exp:server")
	}
	return &Server{
		deps:         deps,
		log:          log,
		participants: make(map[string]*participant),
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/pid", s.updatePID)
	api.POST("/cookies", s.updateCookies)

	p := api.Group("", s.withParticipant())
	p.GET("/routes", s.listRoutes)
	p.GET("/routes/:route", s.enterRoute)
	p.POST("/routes/:route/next", s.nextRoute)
	p.POST("/routes/:route/complete", s.completeRoute)
	p.POST("/routes/:route/questions/:qid", s.answerQuestion)
	p.GET("/events", s.listEvents)
	p.GET("/sync", s.syncStatus)
	p.POST("/sync/retry", s.retrySync)
	p.POST("/reset", s.reset)
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errc
	return nil
}

// Close closes every open session.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pid, p := range s.participants {
		p.mu.Lock()
		if p.session != nil {
			p.session.Close()
			p.session = nil
		}
		p.mu.Unlock()
		delete(s.participants, pid)
	}
}

// participant returns the request slot for pid, creating it on first use.
func (s *Server) participant(pid string) *participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[pid]
	if !ok {
		p = &participant{}
		s.participants[pid] = p
	}
	return p
}

// open makes sure p holds a session for id. The caller holds p.mu. A
// session opened under another role is replaced.
func (s *Server) open(ctx context.Context, p *participant, id experiment.Identity) error {
	if p.session != nil && p.session.Identity().Role == id.Role {
		return nil
	}
	sess, err := experiment.Open(ctx, id, s.deps)
	if err != nil {
		return err
	}
	if p.session != nil {
		s.log.Info("participant role changed",
			zap.String("pid", id.ParticipantID),
			zap.String("from", string(p.session.Identity().Role)),
			zap.String("to", string(id.Role)))
		p.session.Close()
	}
	p.session = sess
	return nil
}

// identity resolves the caller from headers, then cookies.
func identity(c *gin.Context) experiment.Identity {
	cookiePID, _ := c.Cookie(CookiePID)
	cookieRole, _ := c.Cookie(CookieRole)
	return experiment.ResolveIdentity(
		experiment.Claims{ParticipantID: c.GetHeader(HeaderPID), Role: c.GetHeader(HeaderRole)},
		experiment.Claims{ParticipantID: cookiePID, Role: cookieRole},
	)
}

// withParticipant opens the caller's session and holds its lock for the
// rest of the request.
func (s *Server) withParticipant() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := identity(c)
		if id.ParticipantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "participant id required"})
			return
		}
		p := s.participant(id.ParticipantID)
		p.mu.Lock()
		defer p.mu.Unlock()
		if err := s.open(c.Request.Context(), p, id); err != nil {
			s.log.Error("open session failed", zap.String("pid", id.ParticipantID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to open session"})
			return
		}
		c.Set(participantCK, p.session)
		c.Next()
	}
}

func sessionOf(c *gin.Context) *experiment.Session {
	return c.MustGet(participantCK).(*experiment.Session)
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}
