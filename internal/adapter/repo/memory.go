package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"mediatracker/internal/domain"
)

// JobRepositoryMemory is a mutex-guarded in-memory domain.JobRepository with
// the same compare-and-set semantics as the PostgreSQL implementation. It
// backs tests and DATABASE_URL-less local development.
type JobRepositoryMemory struct {
	mu       sync.Mutex
	jobs     map[string]*domain.Job
	external map[string]string // vendor+externalID -> jobID
}

// NewJobRepositoryMemory creates an empty in-memory repository.
func NewJobRepositoryMemory() *JobRepositoryMemory {
	return &JobRepositoryMemory{
		jobs:     make(map[string]*domain.Job),
		external: make(map[string]string),
	}
}

func externalKey(vendor domain.Vendor, externalID string) string {
	return string(vendor) + "/" + externalID
}

func (r *JobRepositoryMemory) Create(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *JobRepositoryMemory) AttachExternalID(ctx context.Context, jobID, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.ExternalID != "" {
		return domain.ErrAlreadyAttached
	}
	job.ExternalID = externalID
	r.external[externalKey(job.Vendor, externalID)] = jobID
	return nil
}

func (r *JobRepositoryMemory) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *JobRepositoryMemory) GetByExternalID(ctx context.Context, vendor domain.Vendor, externalID string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobID, ok := r.external[externalKey(vendor, externalID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r.jobs[jobID]
	return &cp, nil
}

func (r *JobRepositoryMemory) ListPollable(ctx context.Context, limit int) ([]domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var jobs []domain.Job
	for _, job := range r.jobs {
		if job.Status.Terminal() {
			continue
		}
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (r *JobRepositoryMemory) MarkProcessing(ctx context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status == domain.JobStatusSubmitted {
		job.Status = domain.JobStatusProcessing
	}
	return nil
}

func (r *JobRepositoryMemory) RecordPoll(ctx context.Context, jobID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.Attempt++
	t := at
	job.LastPolledAt = &t
	return nil
}

func (r *JobRepositoryMemory) CommitTerminal(ctx context.Context, jobID string, status domain.JobStatus, resultURL, errorDetail string, expected ...domain.JobStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	match := false
	for _, s := range expected {
		if job.Status == s {
			match = true
			break
		}
	}
	if !match {
		return domain.ErrConflict
	}
	job.Status = status
	job.ResultURL = resultURL
	job.ErrorDetail = errorDetail
	now := time.Now()
	job.TerminalAt = &now
	return nil
}

var _ domain.JobRepository = (*JobRepositoryMemory)(nil)
