// Package navigation tracks the view the user is on and performs redirects.
package navigation

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Views that never require a session.
const (
	LoginPath    = "/login"
	HomePath     = "/"
	NotFoundPath = "/404"
)

var anonymousSafe = map[string]struct{}{
	LoginPath:    {},
	HomePath:     {},
	NotFoundPath: {},
}

// Navigator is the router collaborator of the session lifecycle.
type Navigator interface {
	Current() string
	Navigate(path string)
}

// IsAnonymousSafe reports whether path can be shown without a session.
func IsAnonymousSafe(path string) bool {
	_, ok := anonymousSafe[normalize(path)]
	return ok
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return HomePath
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

// History is an in-memory Navigator that remembers the current and previous views.
type History struct {
	mu          sync.RWMutex
	current     string
	previous    string
	navigations int
	logger      *zap.Logger
}

// NewHistory starts at the given view.
func NewHistory(initial string, logger *zap.Logger) *History {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &History{current: normalize(initial), logger: logger}
}

// Current returns the view being shown.
func (h *History) Current() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Previous returns the view shown before the current one.
func (h *History) Previous() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.previous
}

// Navigate redirects to path. Navigating to the current view is a no-op.
func (h *History) Navigate(path string) {
	path = normalize(path)

	h.mu.Lock()
	if path == h.current {
		h.mu.Unlock()
		return
	}
	from := h.current
	h.previous, h.current = h.current, path
	h.navigations++
	h.mu.Unlock()

	h.logger.Info("navigate", zap.String("from", from), zap.String("to", path))
}

// Visit records a view change made by the user rather than by a redirect.
func (h *History) Visit(path string) {
	path = normalize(path)

	h.mu.Lock()
	defer h.mu.Unlock()
	if path != h.current {
		h.previous, h.current = h.current, path
	}
}

// Navigations counts redirects performed through Navigate.
func (h *History) Navigations() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.navigations
}
