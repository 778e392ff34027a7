package repo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediatracker/internal/domain"
)

func seedJob(t *testing.T, store *JobRepositoryMemory, id string) *domain.Job {
	t.Helper()
	job := &domain.Job{
		ID:        id,
		OwnerID:   "owner-1",
		Vendor:    domain.VendorVideoGen,
		Status:    domain.JobStatusSubmitted,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Create(context.Background(), job))
	return job
}

func TestMemoryRepoCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewJobRepositoryMemory()
	seedJob(t, store, "job-1")

	got, err := store.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSubmitted, got.Status)
	assert.Empty(t, got.ExternalID)

	_, err = store.GetByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryRepoAttachExternalIDOnce(t *testing.T) {
	ctx := context.Background()
	store := NewJobRepositoryMemory()
	seedJob(t, store, "job-1")

	require.NoError(t, store.AttachExternalID(ctx, "job-1", "X42"))
	err := store.AttachExternalID(ctx, "job-1", "X43")
	require.ErrorIs(t, err, domain.ErrAlreadyAttached)

	got, err := store.GetByExternalID(ctx, domain.VendorVideoGen, "X42")
	require.NoError(t, err)
	assert.Equal(t, "job-1", got.ID)

	_, err = store.GetByExternalID(ctx, domain.VendorVideoGen, "X43")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryRepoCommitTerminalCAS(t *testing.T) {
	ctx := context.Background()
	store := NewJobRepositoryMemory()
	seedJob(t, store, "job-1")
	require.NoError(t, store.MarkProcessing(ctx, "job-1"))

	err := store.CommitTerminal(ctx, "job-1", domain.JobStatusCompleted, "https://x/out.mp4", "", domain.JobStatusProcessing)
	require.NoError(t, err)

	// Second terminal write misses the CAS and reports Conflict.
	err = store.CommitTerminal(ctx, "job-1", domain.JobStatusFailed, "", "late failure", domain.JobStatusProcessing)
	require.ErrorIs(t, err, domain.ErrConflict)

	got, err := store.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, "https://x/out.mp4", got.ResultURL)
	assert.Empty(t, got.ErrorDetail)
}

func TestMemoryRepoConcurrentTerminalCommitsExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	store := NewJobRepositoryMemory()
	seedJob(t, store, "job-1")
	require.NoError(t, store.MarkProcessing(ctx, "job-1"))

	const writers = 16
	var wg sync.WaitGroup
	wins := make(chan domain.JobStatus, writers)
	for i := 0; i < writers; i++ {
		status := domain.JobStatusCompleted
		if i%2 == 1 {
			status = domain.JobStatusFailed
		}
		wg.Add(1)
		go func(s domain.JobStatus) {
			defer wg.Done()
			err := store.CommitTerminal(ctx, "job-1", s, "https://x/out.mp4", "detail", domain.JobStatusSubmitted, domain.JobStatusProcessing)
			if err == nil {
				wins <- s
			}
		}(status)
	}
	wg.Wait()
	close(wins)

	var winners []domain.JobStatus
	for s := range wins {
		winners = append(winners, s)
	}
	require.Len(t, winners, 1, "exactly one concurrent terminal commit may succeed")

	got, err := store.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, winners[0], got.Status)
	assert.True(t, got.Status.Terminal())
}

func TestMemoryRepoMarkProcessingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewJobRepositoryMemory()
	seedJob(t, store, "job-1")

	require.NoError(t, store.MarkProcessing(ctx, "job-1"))
	require.NoError(t, store.MarkProcessing(ctx, "job-1"))

	got, err := store.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, got.Status)
}

func TestMemoryRepoListPollableExcludesTerminal(t *testing.T) {
	ctx := context.Background()
	store := NewJobRepositoryMemory()

	older := seedJob(t, store, "job-old")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.Create(ctx, older))
	seedJob(t, store, "job-new")
	seedJob(t, store, "job-done")
	require.NoError(t, store.MarkProcessing(ctx, "job-done"))
	require.NoError(t, store.CommitTerminal(ctx, "job-done", domain.JobStatusCompleted, "https://x/o.mp4", "", domain.JobStatusProcessing))

	jobs, err := store.ListPollable(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-old", jobs[0].ID, "oldest first")

	jobs, err = store.ListPollable(ctx, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
}

func TestMemoryRepoRecordPoll(t *testing.T) {
	ctx := context.Background()
	store := NewJobRepositoryMemory()
	seedJob(t, store, "job-1")

	at := time.Now().UTC()
	require.NoError(t, store.RecordPoll(ctx, "job-1", at))
	require.NoError(t, store.RecordPoll(ctx, "job-1", at.Add(time.Minute)))

	got, err := store.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempt)
	require.NotNil(t, got.LastPolledAt)
	assert.Equal(t, at.Add(time.Minute), *got.LastPolledAt)
}

func TestMemoryRepoTerminalInvariant(t *testing.T) {
	ctx := context.Background()
	store := NewJobRepositoryMemory()
	seedJob(t, store, "job-ok")
	seedJob(t, store, "job-bad")

	require.NoError(t, store.CommitTerminal(ctx, "job-ok", domain.JobStatusCompleted, "https://x/out.mp4", "", domain.JobStatusSubmitted))
	require.NoError(t, store.CommitTerminal(ctx, "job-bad", domain.JobStatusFailed, "", "boom", domain.JobStatusSubmitted))

	ok, err := store.GetByID(ctx, "job-ok")
	require.NoError(t, err)
	bad, err := store.GetByID(ctx, "job-bad")
	require.NoError(t, err)

	// Exactly one of result/errorDetail per terminal job.
	assert.NotEmpty(t, ok.ResultURL)
	assert.Empty(t, ok.ErrorDetail)
	assert.Empty(t, bad.ResultURL)
	assert.NotEmpty(t, bad.ErrorDetail)
}
