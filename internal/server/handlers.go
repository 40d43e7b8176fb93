package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/ccgrun/internal/experiment"
	"github.com/abhisek/ccgrun/internal/store"
)

type pidRequest struct {
	PID string `json:"pid"`
}

func (s *Server) updatePID(c *gin.Context) {
	var req pidRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "no participant id provided"})
		return
	}
	c.SetCookie(CookiePID, req.PID, cookieMaxAge, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "pid": req.PID})
}

// cookiesRequest distinguishes an absent or null field (delete the cookie)
// from an empty one (rejected).
type cookiesRequest struct {
	PID  *string `json:"pid"`
	Role *string `json:"role"`
}

func (s *Server) updateCookies(c *gin.Context) {
	var req cookiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "malformed request"})
		return
	}
	ok := true
	var msgs []string
	apply := func(name, label string, v *string) {
		switch {
		case v == nil:
			c.SetCookie(name, "", -1, "/", "", false, true)
			msgs = append(msgs, label+" cookie deleted")
		case *v == "":
			ok = false
			msgs = append(msgs, "no "+label+" provided")
		default:
			c.SetCookie(name, *v, cookieMaxAge, "/", "", false, true)
			msgs = append(msgs, label+" updated")
		}
	}
	apply(CookiePID, "participant id", req.PID)
	apply(CookieRole, "user role", req.Role)

	status := http.StatusOK
	if !ok {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"success": ok, "messages": msgs})
}

func (s *Server) listRoutes(c *gin.Context) {
	sess := sessionOf(c)
	c.JSON(http.StatusOK, gin.H{
		"routes":   sess.Tracker().Entries(),
		"finished": sess.Tracker().Finished(),
	})
}

func (s *Server) enterRoute(c *gin.Context) {
	sess := sessionOf(c)
	route := c.Param("route")
	external := c.Query("external") == "1" || c.Query("external") == "true"

	if !s.guard(c, sess, route, external) {
		return
	}
	sess.Visit(c.Request.Context(), route)
	entry, _ := sess.Tracker().Entry(route)
	c.JSON(http.StatusOK, gin.H{
		"allowed":      true,
		"route":        entry,
		"can_continue": sess.CanContinue(c.Request.Context(), route),
	})
}

// guard answers 303 with the redirect target and reports false when the
// participant may not be on route.
func (s *Server) guard(c *gin.Context, sess *experiment.Session, route string, external bool) bool {
	d := sess.Guard(c.Request.Context(), route, external)
	if !d.Allowed {
		c.Header("Location", "/api/routes/"+d.Redirect)
		c.JSON(http.StatusSeeOther, gin.H{"allowed": false, "redirect": d.Redirect})
	}
	return d.Allowed
}

func (s *Server) knownRoute(c *gin.Context) (string, bool) {
	route := c.Param("route")
	if _, ok := sessionOf(c).Tracker().Entry(route); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown route " + strconv.Quote(route)})
		return "", false
	}
	return route, true
}

func (s *Server) nextRoute(c *gin.Context) {
	route, ok := s.knownRoute(c)
	if !ok {
		return
	}
	sess := sessionOf(c)
	if !s.guard(c, sess, route, false) {
		return
	}
	next := sess.Next(c.Request.Context(), route)
	c.JSON(http.StatusOK, gin.H{"from": route, "next": next})
}

func (s *Server) completeRoute(c *gin.Context) {
	route, ok := s.knownRoute(c)
	if !ok {
		return
	}
	sess := sessionOf(c)
	if !s.guard(c, sess, route, false) {
		return
	}
	if !sess.CanContinue(c.Request.Context(), route) {
		c.JSON(http.StatusConflict, gin.H{"error": "comprehension questions not passed"})
		return
	}
	next := sess.Advance(c.Request.Context(), route)
	c.JSON(http.StatusOK, gin.H{
		"completed": route,
		"next":      next,
		"finished":  sess.Tracker().Finished(),
	})
}

type answerRequest struct {
	Options []int `json:"options"`
}

func (s *Server) answerQuestion(c *gin.Context) {
	route, ok := s.knownRoute(c)
	if !ok {
		return
	}
	sess := sessionOf(c)
	if !s.guard(c, sess, route, false) {
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q, err := sess.Answer(c.Request.Context(), route, c.Param("qid"), req.Options)
	switch {
	case errors.Is(err, experiment.ErrUnknownQuestion):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"qid":          q.QID(),
		"correct":      q.Correct(),
		"can_continue": sess.CanContinue(c.Request.Context(), route),
	})
}

func (s *Server) listEvents(c *gin.Context) {
	opts := store.QueryOpts{}
	if v := c.Query("after"); v != "" {
		after, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "after must be an integer"})
			return
		}
		opts.After = after
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		opts.Limit = limit
	}
	events, err := sessionOf(c).Events(c.Request.Context(), opts)
	if err != nil {
		s.log.Error("list events failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) syncStatus(c *gin.Context) {
	rep := sessionOf(c).Reporter()
	if rep == nil {
		c.JSON(http.StatusOK, gin.H{"remote": false})
		return
	}
	st := rep.Stats()
	c.JSON(http.StatusOK, gin.H{
		"remote":    true,
		"delivered": st.Delivered,
		"parked":    st.Parked,
		"pending":   st.Pending,
	})
}

func (s *Server) retrySync(c *gin.Context) {
	rep := sessionOf(c).Reporter()
	if rep == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "remote reporting disabled"})
		return
	}
	sent, err := rep.RetryPending(c.Request.Context())
	resp := gin.H{"sent": sent, "pending": rep.Stats().Pending}
	if err != nil {
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) reset(c *gin.Context) {
	if err := sessionOf(c).Reset(c.Request.Context()); err != nil {
		s.log.Error("reset failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
