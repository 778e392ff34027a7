package tracker

import (
	"context"
	"errors"
	"fmt"

	"mediatracker/internal/domain"
	"mediatracker/internal/infra"
	"mediatracker/internal/providers"
)

// terminalPrior is the set of statuses a terminal commit may replace.
var terminalPrior = []domain.JobStatus{domain.JobStatusSubmitted, domain.JobStatusProcessing}

// Reconciler drives job state transitions from normalized vendor results. It
// is the only writer of terminal states; webhook deliveries and poll ticks
// both funnel through it, and the store's compare-and-set commit makes their
// races harmless.
type Reconciler struct {
	repo     domain.JobRepository
	notifier Notifier
	logger   infra.Logger
}

func NewReconciler(repo domain.JobRepository, notifier Notifier, logger infra.Logger) *Reconciler {
	return &Reconciler{repo: repo, notifier: notifier, logger: logger}
}

// Apply folds one normalized vendor result into the job's lifecycle. A
// compare-and-set miss means another writer already resolved the job; that is
// silently discarded, not an error.
func (r *Reconciler) Apply(ctx context.Context, job *domain.Job, res *providers.PollResult) error {
	switch res.Status {
	case providers.StatusUnknown:
		// No transition. Logged so vendor vocabulary drift gets noticed.
		r.logger.Warn().
			Str("job_id", job.ID).
			Str("vendor", string(job.Vendor)).
			Msg("unmapped vendor status, leaving job as-is")
		return nil

	case providers.StatusProcessing:
		if job.Status != domain.JobStatusSubmitted {
			return nil
		}
		return r.repo.MarkProcessing(ctx, job.ID)

	case providers.StatusCompleted:
		if res.ResultURL == "" {
			r.logger.Warn().
				Str("job_id", job.ID).
				Str("vendor", string(job.Vendor)).
				Msg("vendor reported success without a result, leaving job as-is")
			return nil
		}
		return r.commit(ctx, job, domain.JobStatusCompleted, res.ResultURL, "")

	case providers.StatusFailed:
		detail := res.Detail
		if detail == "" {
			detail = "vendor reported failure"
		}
		return r.commit(ctx, job, domain.JobStatusFailed, "", detail)
	}
	return fmt.Errorf("unsupported normalized status %q", res.Status)
}

// Fail commits a terminal failure, used for fatal poll errors and exhausted
// retry budgets.
func (r *Reconciler) Fail(ctx context.Context, job *domain.Job, detail string) error {
	return r.commit(ctx, job, domain.JobStatusFailed, "", detail)
}

// Expire commits the scheduler-driven expired state for abandoned jobs.
func (r *Reconciler) Expire(ctx context.Context, job *domain.Job, reason string) error {
	return r.commit(ctx, job, domain.JobStatusExpired, "", reason)
}

func (r *Reconciler) commit(ctx context.Context, job *domain.Job, status domain.JobStatus, resultURL, errorDetail string) error {
	err := r.repo.CommitTerminal(ctx, job.ID, status, resultURL, errorDetail, terminalPrior...)
	if errors.Is(err, domain.ErrConflict) {
		r.logger.Debug().
			Str("job_id", job.ID).
			Str("status", string(status)).
			Msg("terminal commit lost the race, already handled")
		return nil
	}
	if err != nil {
		return fmt.Errorf("commit terminal %s: %w", status, err)
	}

	job.Status = status
	job.ResultURL = resultURL
	job.ErrorDetail = errorDetail
	if r.notifier != nil {
		r.notifier.OnTerminal(ctx, job)
	}
	return nil
}
