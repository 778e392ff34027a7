package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediatracker/internal/adapter/repo"
	"mediatracker/internal/domain"
	"mediatracker/internal/providers"
)

func newTestJob(t *testing.T, store domain.JobRepository, status domain.JobStatus) *domain.Job {
	t.Helper()
	ctx := context.Background()
	job := &domain.Job{
		ID:        "job-" + string(status) + "-" + t.Name(),
		OwnerID:   "owner-1",
		Vendor:    domain.VendorVideoGen,
		Status:    domain.JobStatusSubmitted,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Create(ctx, job))
	require.NoError(t, store.AttachExternalID(ctx, job.ID, "ext-"+job.ID))
	job.ExternalID = "ext-" + job.ID
	if status == domain.JobStatusProcessing {
		require.NoError(t, store.MarkProcessing(ctx, job.ID))
		job.Status = domain.JobStatusProcessing
	}
	return job
}

func TestReconcilerCompletesWithResult(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	notifier := &countingNotifier{}
	rec := NewReconciler(store, notifier, testLogger())

	job := newTestJob(t, store, domain.JobStatusProcessing)

	err := rec.Apply(ctx, job, &providers.PollResult{
		Status:    providers.StatusCompleted,
		ResultURL: "https://x/out.mp4",
	})
	require.NoError(t, err)

	got, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, "https://x/out.mp4", got.ResultURL)
	assert.Empty(t, got.ErrorDetail)
	assert.NotNil(t, got.TerminalAt)
	assert.Equal(t, 1, notifier.count())
}

func TestReconcilerFailsWithDetail(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	rec := NewReconciler(store, &countingNotifier{}, testLogger())

	job := newTestJob(t, store, domain.JobStatusProcessing)

	err := rec.Apply(ctx, job, &providers.PollResult{
		Status: providers.StatusFailed,
		Detail: "render crashed",
	})
	require.NoError(t, err)

	got, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	assert.Equal(t, "render crashed", got.ErrorDetail)
	assert.Empty(t, got.ResultURL)
}

func TestReconcilerFailureWithoutDetailGetsDefault(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	rec := NewReconciler(store, &countingNotifier{}, testLogger())

	job := newTestJob(t, store, domain.JobStatusProcessing)
	require.NoError(t, rec.Apply(ctx, job, &providers.PollResult{Status: providers.StatusFailed}))

	got, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "vendor reported failure", got.ErrorDetail)
}

func TestReconcilerUnknownStatusLeavesJobAlone(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	rec := NewReconciler(store, &countingNotifier{}, testLogger())

	job := newTestJob(t, store, domain.JobStatusProcessing)
	require.NoError(t, rec.Apply(ctx, job, &providers.PollResult{Status: providers.StatusUnknown}))

	got, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, got.Status)
}

func TestReconcilerCompletedWithoutResultLeavesJobAlone(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	rec := NewReconciler(store, &countingNotifier{}, testLogger())

	job := newTestJob(t, store, domain.JobStatusProcessing)
	require.NoError(t, rec.Apply(ctx, job, &providers.PollResult{Status: providers.StatusCompleted}))

	got, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, got.Status)
	assert.Empty(t, got.ResultURL)
}

func TestReconcilerProcessingAdvancesSubmittedOnly(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	rec := NewReconciler(store, &countingNotifier{}, testLogger())

	job := newTestJob(t, store, domain.JobStatusSubmitted)
	require.NoError(t, rec.Apply(ctx, job, &providers.PollResult{Status: providers.StatusProcessing}))

	got, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, got.Status)
}

func TestReconcilerSecondTerminalCommitIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	notifier := &countingNotifier{}
	rec := NewReconciler(store, notifier, testLogger())

	job := newTestJob(t, store, domain.JobStatusProcessing)
	success := &providers.PollResult{Status: providers.StatusCompleted, ResultURL: "https://x/out.mp4"}

	require.NoError(t, rec.Apply(ctx, job, success))
	// Second delivery of the same outcome: absorbed, no second notification.
	require.NoError(t, rec.Apply(ctx, job, success))

	got, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, 1, notifier.count())
}

func TestReconcilerConcurrentWebhookAndPollCommitOnce(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	notifier := &countingNotifier{}
	rec := NewReconciler(store, notifier, testLogger())

	job := newTestJob(t, store, domain.JobStatusProcessing)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			jobCopy := *job
			_ = rec.Apply(ctx, &jobCopy, &providers.PollResult{
				Status:    providers.StatusCompleted,
				ResultURL: "https://x/out.mp4",
			})
		}()
	}
	wg.Wait()

	got, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, "https://x/out.mp4", got.ResultURL)
	assert.Equal(t, 1, notifier.count(), "exactly one commit may win the race")
}

func TestReconcilerExpire(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	rec := NewReconciler(store, &countingNotifier{}, testLogger())

	job := newTestJob(t, store, domain.JobStatusProcessing)
	require.NoError(t, rec.Expire(ctx, job, "exceeded maximum lifetime"))

	got, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusExpired, got.Status)
	assert.Equal(t, "exceeded maximum lifetime", got.ErrorDetail)
}
