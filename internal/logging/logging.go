// Package logging hands out namespaced zap loggers for one experiment
// session.
//
// Namespaces are colon-separated ("exp:ccg:progress"). Debug output for a
// namespace is gated by debug-style filters ("exp:*", "-exp:db"); Info and
// above always pass. Every namespace handed out is recorded so the set can
// be listed as a tree.
package logging

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Separator joins namespace segments.
const Separator = ":"

// Registry owns the base logger, the debug filters, and the record of
// namespaces in use.
type Registry struct {
	base *zap.Logger

	mu      sync.RWMutex
	names   map[string]struct{}
	include []string
	exclude []string
}

// NewRegistry creates a registry writing through base. base should be
// enabled at Debug level; the registry decides per namespace whether debug
// entries pass.
func NewRegistry(base *zap.Logger, filters []string) *Registry {
	if base == nil {
		base = zap.NewNop()
	}
	r := &Registry{
		base:  base,
		names: make(map[string]struct{}),
	}
	r.SetFilters(filters)
	return r
}

// NewDevelopment builds a registry on a console logger writing to stderr.
func NewDevelopment(filters []string) (*Registry, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	base, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return NewRegistry(base, filters), nil
}

// NewFile builds a registry writing JSON lines to path. The TUI uses this
// so log output does not corrupt the terminal.
func NewFile(path string, filters []string) (*Registry, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(f),
		zapcore.DebugLevel,
	)
	return NewRegistry(zap.New(core), filters), nil
}

// Logger returns a logger for namespace ns and records ns.
func (r *Registry) Logger(ns string) *zap.Logger {
	r.mu.Lock()
	r.names[ns] = struct{}{}
	r.mu.Unlock()

	return r.base.Named(ns).WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return &namespaceCore{Core: c, ns: ns, reg: r}
	}))
}

// Extend returns a logger for the child namespace parent:child.
func (r *Registry) Extend(parent, child string) *zap.Logger {
	return r.Logger(parent + Separator + child)
}

// SetFilters replaces the debug filters. Entries are comma-free patterns;
// a trailing "*" matches any suffix and a leading "-" excludes.
func (r *Registry) SetFilters(filters []string) {
	var inc, exc []string
	for _, f := range filters {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if strings.HasPrefix(f, "-") {
			exc = append(exc, f[1:])
			continue
		}
		inc = append(inc, f)
	}
	r.mu.Lock()
	r.include, r.exclude = inc, exc
	r.mu.Unlock()
}

// Filters returns the active filters in their textual form.
func (r *Registry) Filters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.include)+len(r.exclude))
	out = append(out, r.include...)
	for _, e := range r.exclude {
		out = append(out, "-"+e)
	}
	return out
}

// DebugEnabled reports whether debug entries for ns pass the filters.
func (r *Registry) DebugEnabled(ns string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.exclude {
		if matchPattern(e, ns) {
			return false
		}
	}
	for _, i := range r.include {
		if matchPattern(i, ns) {
			return true
		}
	}
	return false
}

// Namespaces returns every namespace handed out, sorted.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Sync flushes the base logger.
func (r *Registry) Sync() error {
	return r.base.Sync()
}

// ParseFilters splits a comma-separated filter list such as the value of
// CCG_DEBUG.
func ParseFilters(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func matchPattern(pattern, ns string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(ns, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == ns
}

// namespaceCore drops debug entries for namespaces the filters exclude.
type namespaceCore struct {
	zapcore.Core
	ns  string
	reg *Registry
}

func (c *namespaceCore) Enabled(l zapcore.Level) bool {
	if l < zapcore.InfoLevel && !c.reg.DebugEnabled(c.ns) {
		return false
	}
	return c.Core.Enabled(l)
}

func (c *namespaceCore) With(fields []zapcore.Field) zapcore.Core {
	return &namespaceCore{Core: c.Core.With(fields), ns: c.ns, reg: c.reg}
}

func (c *namespaceCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}
