// Package cleanup provides background retention for the Persistence
// Sidecar (SPEC_FULL.md §4.C11): job blobs older than the configured TTL
// are purged from pkg/jobstore so a long-running Postgres-backed
// deployment doesn't accumulate them forever.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/nellia/prospectord/pkg/config"
)

// JobPurger is the narrow slice of pkg/jobstore.Store this service needs,
// kept as an interface so tests can supply a fake without a live Postgres.
type JobPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service periodically purges job blobs past their retention window. All
// operations are idempotent and safe to run from multiple replicas.
type Service struct {
	cfg    config.RetentionConfig
	store  JobPurger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a retention service over store. A nil store makes
// Start a no-op, since the in-memory persistence.Store has nothing durable
// to purge.
func NewService(cfg config.RetentionConfig, store JobPurger) *Service {
	return &Service{cfg: cfg, store: store}
}

// Start launches the background purge loop.
func (s *Service) Start(ctx context.Context) {
	if s.store == nil || s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("cleanup service started", "job_ttl", s.cfg.JobTTL, "interval", s.cfg.Interval)
}

// Stop signals the purge loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.purge(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purge(ctx)
		}
	}
}

func (s *Service) purge(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.JobTTL)
	count, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("retention: job purge failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("retention: purged expired job blobs", "count", count)
	}
}
