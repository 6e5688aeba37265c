package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as Report.Checks keys.
const (
	ComponentCatalog   = "catalog"
	ComponentCache     = "cache"
	ComponentEmbedding = "embedding"
)

const defaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	catalogItems int
	cache        CachePinger
	embedding    EmbeddingChecker
	timeout      time.Duration
}

// New creates a Service. cache and embedding can be nil.
// catalogItems is the loaded catalog size; an empty catalog degrades health.
func New(catalogItems int, cache CachePinger, embedding EmbeddingChecker) *Service {
	return &Service{
		catalogItems: catalogItems,
		cache:        cache,
		embedding:    embedding,
		timeout:      defaultCheckTimeout,
	}
}

// Check runs health checks against all components.
// Any failing check degrades the report. A failing embedder makes it Unhealthy: no search can succeed.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	checks := make(map[string]CheckResult)

	checks[ComponentCatalog] = result(s.catalogItems > 0)

	if s.cache != nil {
		checks[ComponentCache] = result(s.cache.Ping(ctx) == nil)
	}

	if s.embedding != nil {
		checks[ComponentEmbedding] = result(s.embedding.HealthCheck(ctx) == nil)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentEmbedding] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(ok bool) CheckResult {
	if ok {
		return CheckOK
	}
	return CheckError
}
