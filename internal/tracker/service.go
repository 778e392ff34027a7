package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"

	"mediatracker/internal/domain"
	"mediatracker/internal/infra"
	"mediatracker/internal/providers"
)

// Service is the submission-side entry point: it creates the local job
// record, drives the vendor start call, and routes webhook deliveries into
// the Reconciler.
type Service struct {
	repo     domain.JobRepository
	registry providers.Registry
	rec      *Reconciler
	logger   infra.Logger

	startRetryMaxElapsed time.Duration
}

func NewService(repo domain.JobRepository, registry providers.Registry, rec *Reconciler, logger infra.Logger, startRetryMaxElapsed time.Duration) *Service {
	if startRetryMaxElapsed <= 0 {
		startRetryMaxElapsed = 30 * time.Second
	}
	return &Service{
		repo:                 repo,
		registry:             registry,
		rec:                  rec,
		logger:               logger,
		startRetryMaxElapsed: startRetryMaxElapsed,
	}
}

// Submit creates a job and issues the vendor start call. Transient vendor
// failures are retried with exponential backoff; fatal ones immediately fail
// the job with the vendor's message preserved in ErrorDetail.
func (s *Service) Submit(ctx context.Context, ownerID string, vendor domain.Vendor, input json.RawMessage) (*domain.Job, error) {
	if !vendor.Valid() {
		return nil, fmt.Errorf("unknown vendor %q: %w", vendor, domain.ErrInvalidInput)
	}
	adapter, ok := s.registry.Lookup(vendor)
	if !ok {
		return nil, fmt.Errorf("vendor %q is not configured: %w", vendor, domain.ErrInvalidInput)
	}

	job := &domain.Job{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Vendor:    vendor,
		Status:    domain.JobStatusSubmitted,
		Input:     input,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	start, err := s.startWithRetry(ctx, adapter, input)
	if err != nil {
		detail := err.Error()
		if failErr := s.rec.Fail(ctx, job, detail); failErr != nil {
			s.logger.Error().Err(failErr).Str("job_id", job.ID).Msg("failing job after start error failed")
		}
		return job, err
	}

	if err := s.repo.AttachExternalID(ctx, job.ID, start.ExternalID); err != nil {
		return job, fmt.Errorf("attach external id: %w", err)
	}
	job.ExternalID = start.ExternalID

	// Every vendor here acknowledges asynchronously, so a successful start
	// already means the work is in flight.
	if err := s.repo.MarkProcessing(ctx, job.ID); err != nil {
		return job, fmt.Errorf("mark processing: %w", err)
	}
	job.Status = domain.JobStatusProcessing

	s.logger.Info().
		Str("job_id", job.ID).
		Str("vendor", string(vendor)).
		Str("external_id", start.ExternalID).
		Msg("job submitted")
	return job, nil
}

func (s *Service) startWithRetry(ctx context.Context, adapter providers.Adapter, input json.RawMessage) (*providers.StartResult, error) {
	var result *providers.StartResult

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = s.startRetryMaxElapsed

	operation := func() error {
		res, err := adapter.Start(ctx, input)
		if err != nil {
			if errors.Is(err, domain.ErrVendorUnavailable) {
				s.logger.Warn().Err(err).Msg("vendor start failed, will retry")
				return err
			}
			return backoff.Permanent(err)
		}
		result = res
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(expBackoff, ctx)); err != nil {
		return nil, err
	}
	return result, nil
}

// HandleWebhook normalizes a vendor push notification and folds it into the
// job lifecycle. Unknown external IDs yield domain.ErrNotFound; the caller
// decides whether that is worth more than a log line.
func (s *Service) HandleWebhook(ctx context.Context, vendor domain.Vendor, payload []byte) error {
	adapter, ok := s.registry.Lookup(vendor)
	if !ok {
		return fmt.Errorf("vendor %q is not configured: %w", vendor, domain.ErrInvalidInput)
	}
	externalID, res, err := adapter.ParseWebhook(payload)
	if err != nil {
		return fmt.Errorf("parse webhook: %v: %w", err, domain.ErrInvalidInput)
	}
	job, err := s.repo.GetByExternalID(ctx, vendor, externalID)
	if err != nil {
		return fmt.Errorf("webhook for %s/%s: %w", vendor, externalID, err)
	}
	return s.rec.Apply(ctx, job, res)
}

// Get returns a job scoped to its owner. Jobs owned by someone else read as
// not found so their existence does not leak.
func (s *Service) Get(ctx context.Context, ownerID, jobID string) (*domain.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return job, nil
}
