package services

import (
	"context"
	"errors"
	"time"

	"github.com/velvra/api/internal/repositories"
)

var (
	errSystemHealthRequired = errors.New("system service: health repository is required")
	errSystemClockRequired  = errors.New("system service: clock is required")
)

// ErrSystemUnavailable indicates the health report could not be produced.
var ErrSystemUnavailable = errors.New("system service: unavailable")

// BuildInfo carries release metadata stamped at process start.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// SystemServiceDeps wires the dependency health probes and build metadata.
type SystemServiceDeps struct {
	Health repositories.HealthRepository
	Build  BuildInfo
	Clock  func() time.Time
	Logger func(context.Context, string, map[string]any)
}

type systemService struct {
	health repositories.HealthRepository
	build  BuildInfo
	now    func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewSystemService constructs a SystemService enforcing dependency validation.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.Health == nil {
		return nil, errSystemHealthRequired
	}
	if deps.Clock == nil {
		return nil, errSystemClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &systemService{
		health: deps.Health,
		build:  deps.Build,
		now:    func() time.Time { return deps.Clock().UTC() },
		logger: logger,
	}, nil
}

// CheckHealth collects dependency probe results into a readiness report
// stamped with build metadata and uptime.
func (s *systemService) CheckHealth(ctx context.Context) (SystemHealthReport, error) {
	if s == nil || s.health == nil {
		return SystemHealthReport{}, ErrSystemUnavailable
	}

	report, err := s.health.Collect(ctx)
	if err != nil {
		s.logger(ctx, "system.health_collect_failed", map[string]any{"error": err.Error()})
		return SystemHealthReport{}, ErrSystemUnavailable
	}

	report.Version = s.build.Version
	report.CommitSHA = s.build.CommitSHA
	report.Environment = s.build.Environment
	if !s.build.StartedAt.IsZero() {
		report.Uptime = s.now().Sub(s.build.StartedAt)
	}
	return report, nil
}

var _ SystemService = (*systemService)(nil)
