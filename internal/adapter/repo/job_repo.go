package repo

import (
	"context"
	"time"

	"mediatracker/internal/domain"
	"mediatracker/internal/infra"
	"mediatracker/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
//
// Terminal commits go through a single conditional UPDATE so that a webhook
// delivery and a concurrent poll tick for the same job can never both win.
type JobRepositoryPG struct {
	runner infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(runner infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{runner: runner}
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	_, err := r.runner.Exec(ctx, sqlinline.QInsertJob,
		job.ID,
		job.OwnerID,
		job.Vendor,
		job.Status,
		job.Input,
		job.CreatedAt,
	)
	return err
}

// AttachExternalID records the vendor-assigned identifier. It succeeds at
// most once per job; later calls return domain.ErrAlreadyAttached.
func (r *JobRepositoryPG) AttachExternalID(ctx context.Context, jobID, externalID string) error {
	tag, err := r.runner.Exec(ctx, sqlinline.QAttachExternalID, jobID, externalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyAttached
	}
	return nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	return r.scanJob(r.runner.QueryRow(ctx, sqlinline.QGetJob, jobID))
}

// GetByExternalID fetches a job by its vendor-assigned identifier.
func (r *JobRepositoryPG) GetByExternalID(ctx context.Context, vendor domain.Vendor, externalID string) (*domain.Job, error) {
	return r.scanJob(r.runner.QueryRow(ctx, sqlinline.QGetJobByExternalID, vendor, externalID))
}

// ListPollable returns non-terminal jobs, oldest first.
func (r *JobRepositoryPG) ListPollable(ctx context.Context, limit int) ([]domain.Job, error) {
	rows, err := r.runner.Query(ctx, sqlinline.QListPollable, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		var job domain.Job
		if err := rows.Scan(
			&job.ID,
			&job.OwnerID,
			&job.Vendor,
			&job.ExternalID,
			&job.Status,
			&job.Input,
			&job.ResultURL,
			&job.ErrorDetail,
			&job.Attempt,
			&job.CreatedAt,
			&job.LastPolledAt,
			&job.TerminalAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkProcessing advances a submitted job to processing. A miss means another
// writer already moved the job on; that is not an error.
func (r *JobRepositoryPG) MarkProcessing(ctx context.Context, jobID string) error {
	_, err := r.runner.Exec(ctx, sqlinline.QMarkProcessing, jobID)
	return err
}

// RecordPoll bumps the attempt counter and poll timestamp.
func (r *JobRepositoryPG) RecordPoll(ctx context.Context, jobID string, at time.Time) error {
	_, err := r.runner.Exec(ctx, sqlinline.QRecordPoll, jobID, at)
	return err
}

// CommitTerminal performs the compare-and-set terminal write. The UPDATE only
// matches while the job's status is still one of expected; zero affected rows
// means another writer resolved the job first and yields domain.ErrConflict.
func (r *JobRepositoryPG) CommitTerminal(ctx context.Context, jobID string, status domain.JobStatus, resultURL, errorDetail string, expected ...domain.JobStatus) error {
	prior := make([]string, 0, len(expected))
	for _, s := range expected {
		prior = append(prior, string(s))
	}
	tag, err := r.runner.Exec(ctx, sqlinline.QCommitTerminal, jobID, status, resultURL, errorDetail, prior)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *JobRepositoryPG) scanJob(row interface{ Scan(dest ...any) error }) (*domain.Job, error) {
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.Vendor,
		&job.ExternalID,
		&job.Status,
		&job.Input,
		&job.ResultURL,
		&job.ErrorDetail,
		&job.Attempt,
		&job.CreatedAt,
		&job.LastPolledAt,
		&job.TerminalAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
