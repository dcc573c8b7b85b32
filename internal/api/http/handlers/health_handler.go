package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 2 * time.Second

// DependencyCheck probes one backing service.
type DependencyCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type dependencyStatus struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	checks      []DependencyCheck
	started     time.Time
}

// NewHealthHandler returns a handler. Checks with a nil Ping are ignored.
func NewHealthHandler(serviceName, version string, checks ...DependencyCheck) *HealthHandler {
	active := make([]DependencyCheck, 0, len(checks))
	for _, check := range checks {
		if check.Ping != nil {
			active = append(active, check)
		}
	}
	return &HealthHandler{serviceName: serviceName, version: version, checks: active, started: time.Now()}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "alive",
		"service":        h.serviceName,
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

// Ready handles GET /health/ready. Dependencies are probed concurrently.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	results := make([]dependencyStatus, len(h.checks))
	var wg sync.WaitGroup
	for i, check := range h.checks {
		wg.Add(1)
		go func(i int, check DependencyCheck) {
			defer wg.Done()
			start := time.Now()
			err := check.Ping(ctx)
			results[i] = dependencyStatus{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				results[i].Status, results[i].Error = "unavailable", err.Error()
			}
		}(i, check)
	}
	wg.Wait()

	deps := make(map[string]dependencyStatus, len(results))
	ready := true
	for i, res := range results {
		deps[h.checks[i].Name] = res
		ready = ready && res.Error == ""
	}

	if ready {
		return c.JSON(fiber.Map{"status": "ready", "dependencies": deps})
	}
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": deps,
		},
	})
}
