package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"mediatracker/internal/domain"
	"mediatracker/internal/infra"
	"mediatracker/internal/providers"
)

// SchedulerConfig is the single configuration surface for poll timing.
type SchedulerConfig struct {
	Tick           time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxAttempts    int
	MaxLifetime    time.Duration
	Concurrency    int
	ClaimLimit     int
}

// Scheduler periodically polls non-terminal jobs for vendors without webhook
// support and feeds the results to the Reconciler. A single failed poll never
// fails the job; only fatal vendor answers or exhausted budgets do.
type Scheduler struct {
	repo     domain.JobRepository
	registry providers.Registry
	rec      *Reconciler
	logger   infra.Logger
	cfg      SchedulerConfig

	now func() time.Time
}

func NewScheduler(repo domain.JobRepository, registry providers.Registry, rec *Reconciler, logger infra.Logger, cfg SchedulerConfig) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ClaimLimit <= 0 {
		cfg.ClaimLimit = 100
	}
	return &Scheduler{
		repo:     repo,
		registry: registry,
		rec:      rec,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run ticks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().
		Dur("tick", s.cfg.Tick).
		Int("concurrency", s.cfg.Concurrency).
		Msg("scheduler started")

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("scheduler tick failed")
			}
		}
	}
}

// Tick polls every due job once. Jobs are dispatched concurrently with a
// bounded pool; no lock is held across vendor or store calls.
func (s *Scheduler) Tick(ctx context.Context) error {
	jobs, err := s.repo.ListPollable(ctx, s.cfg.ClaimLimit)
	if err != nil {
		return err
	}

	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup
	for i := range jobs {
		job := jobs[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			s.pollJob(ctx, &job)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) pollJob(ctx context.Context, job *domain.Job) {
	now := s.now()

	if s.cfg.MaxLifetime > 0 && now.Sub(job.CreatedAt) > s.cfg.MaxLifetime {
		if err := s.rec.Expire(ctx, job, "exceeded maximum lifetime without a terminal result"); err != nil {
			s.logger.Error().Err(err).Str("job_id", job.ID).Msg("expire failed")
		}
		return
	}
	if s.cfg.MaxAttempts > 0 && job.Attempt >= s.cfg.MaxAttempts {
		if err := s.rec.Fail(ctx, job, "poll attempts exhausted"); err != nil {
			s.logger.Error().Err(err).Str("job_id", job.ID).Msg("fail after retry budget failed")
		}
		return
	}

	// The window between local creation and vendor acknowledgment: nothing to
	// poll yet, expiry above still bounds it.
	if job.ExternalID == "" {
		return
	}

	if job.LastPolledAt != nil && now.Sub(*job.LastPolledAt) < s.NextPollDelay(job.Attempt) {
		return
	}

	adapter, ok := s.registry.Lookup(job.Vendor)
	if !ok {
		s.logger.Error().Str("job_id", job.ID).Str("vendor", string(job.Vendor)).Msg("no adapter for vendor")
		return
	}

	if err := s.repo.RecordPoll(ctx, job.ID, now); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("record poll failed")
		return
	}
	job.Attempt++

	res, err := adapter.PollStatus(ctx, job.ExternalID)
	switch {
	case err == nil:
		if applyErr := s.rec.Apply(ctx, job, res); applyErr != nil {
			s.logger.Error().Err(applyErr).Str("job_id", job.ID).Msg("reconcile failed")
		}
	case errors.Is(err, domain.ErrNotFound):
		// The vendor no longer knows the job; retrying cannot help.
		if failErr := s.rec.Fail(ctx, job, err.Error()); failErr != nil {
			s.logger.Error().Err(failErr).Str("job_id", job.ID).Msg("fail after vendor 404 failed")
		}
	default:
		// Transient: retried on a later tick, bounded by backoff and expiry.
		s.logger.Warn().Err(err).
			Str("job_id", job.ID).
			Int("attempt", job.Attempt).
			Msg("poll failed, will retry")
	}
}

// NextPollDelay returns the backoff window after the given attempt count:
// exponential from InitialBackoff, capped at MaxBackoff.
func (s *Scheduler) NextPollDelay(attempt int) time.Duration {
	delay := s.cfg.InitialBackoff
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= s.cfg.MaxBackoff {
			return s.cfg.MaxBackoff
		}
	}
	if delay > s.cfg.MaxBackoff {
		return s.cfg.MaxBackoff
	}
	return delay
}
