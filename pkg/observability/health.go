package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthStatus is the aggregate or per-check health state.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck probes a single dependency. A failing critical check
// makes the whole service unhealthy; a failing non-critical check only
// degrades it.
type HealthCheck struct {
	Name      string
	CheckFunc func(context.Context) error
	Timeout   time.Duration
	Critical  bool
}

// HealthChecker runs registered checks on demand.
type HealthChecker struct {
	mu     sync.RWMutex
	checks map[string]*HealthCheck
}

// HealthResponse is the JSON body served on /health.
type HealthResponse struct {
	Status    HealthStatus           `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckStatus `json:"checks"`
}

// CheckStatus reports a single check's outcome.
type CheckStatus struct {
	Status   HealthStatus `json:"status"`
	Message  string       `json:"message,omitempty"`
	Duration string       `json:"duration,omitempty"`
}

var (
	globalChecker  *HealthChecker
	startTime      = time.Now()
	initHealthOnce sync.Once
)

// InitHealthChecker initializes the global health checker.
func InitHealthChecker() *HealthChecker {
	initHealthOnce.Do(func() {
		globalChecker = &HealthChecker{checks: make(map[string]*HealthCheck)}
	})
	return globalChecker
}

// GetHealthChecker returns the global health checker.
func GetHealthChecker() *HealthChecker {
	if globalChecker == nil {
		return InitHealthChecker()
	}
	return globalChecker
}

// RegisterCheck adds a check, replacing any existing check with the
// same name.
func (hc *HealthChecker) RegisterCheck(check *HealthCheck) {
	if check.Timeout == 0 {
		check.Timeout = 5 * time.Second
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name] = check
}

// Check runs every registered check and aggregates the results.
func (hc *HealthChecker) Check(ctx context.Context) HealthResponse {
	hc.mu.RLock()
	checks := make([]*HealthCheck, 0, len(hc.checks))
	for _, c := range hc.checks {
		checks = append(checks, c)
	}
	hc.mu.RUnlock()

	results := make(map[string]CheckStatus, len(checks))
	overall := HealthStatusHealthy

	for _, check := range checks {
		status := runCheck(ctx, check)
		results[check.Name] = status

		switch {
		case status.Status == HealthStatusUnhealthy:
			overall = HealthStatusUnhealthy
		case status.Status == HealthStatusDegraded && overall == HealthStatusHealthy:
			overall = HealthStatusDegraded
		}
	}

	return HealthResponse{
		Status:    overall,
		Timestamp: time.Now(),
		Uptime:    time.Since(startTime).String(),
		Checks:    results,
	}
}

func runCheck(ctx context.Context, check *HealthCheck) CheckStatus {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	err := check.CheckFunc(checkCtx)
	status := CheckStatus{Duration: time.Since(start).String()}

	if err == nil {
		status.Status = HealthStatusHealthy
		status.Message = "OK"
		return status
	}

	status.Message = err.Error()
	if check.Critical {
		status.Status = HealthStatusUnhealthy
	} else {
		status.Status = HealthStatusDegraded
	}
	return status
}

// HealthHandler serves the full health report.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := GetHealthChecker().Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if response.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(response)
	}
}

// LivenessHandler serves a constant liveness probe.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

// ReadinessHandler serves a readiness probe that fails unless every
// check passes.
func ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := GetHealthChecker().Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if response.Status != HealthStatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}
}

// OrderLogCheck probes the order log. Order persistence is the one
// dependency the service cannot run without.
func OrderLogCheck(pingFunc func(context.Context) error) *HealthCheck {
	return &HealthCheck{
		Name:      "order_log",
		CheckFunc: pingFunc,
		Critical:  true,
	}
}

// IndexCheck probes the retrieval index. An empty index degrades the
// assistant but does not take it down.
func IndexCheck(checkFunc func(context.Context) error) *HealthCheck {
	return &HealthCheck{
		Name:      "retrieval_index",
		CheckFunc: checkFunc,
	}
}
