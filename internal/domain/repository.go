package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for job entities.
//
// CommitTerminal is the only concurrency-control primitive the tracker relies
// on: it must be a single conditional write that succeeds only while the job's
// current status is one of expected, and return ErrConflict otherwise.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	AttachExternalID(ctx context.Context, jobID, externalID string) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	GetByExternalID(ctx context.Context, vendor Vendor, externalID string) (*Job, error)
	ListPollable(ctx context.Context, limit int) ([]Job, error)
	MarkProcessing(ctx context.Context, jobID string) error
	RecordPoll(ctx context.Context, jobID string, at time.Time) error
	CommitTerminal(ctx context.Context, jobID string, status JobStatus, resultURL, errorDetail string, expected ...JobStatus) error
}
