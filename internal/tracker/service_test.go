package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediatracker/internal/adapter/repo"
	"mediatracker/internal/domain"
	"mediatracker/internal/providers"
)

func newTestService(store domain.JobRepository, adapter providers.Adapter, notifier Notifier) *Service {
	rec := NewReconciler(store, notifier, testLogger())
	registry := providers.Registry{adapter.Vendor(): adapter}
	return NewService(store, registry, rec, testLogger(), 200*time.Millisecond)
}

func TestSubmitAttachesExternalIDAndMarksProcessing(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	adapter := &fakeAdapter{startResult: &providers.StartResult{ExternalID: "X42"}}
	svc := newTestService(store, adapter, &countingNotifier{})

	job, err := svc.Submit(ctx, "owner-1", domain.VendorVideoGen, json.RawMessage(`{"script":"hi"}`))
	require.NoError(t, err)
	require.NotNil(t, job)

	got, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "X42", got.ExternalID)
	assert.Equal(t, domain.JobStatusProcessing, got.Status)
	assert.Equal(t, "owner-1", got.OwnerID)
	assert.JSONEq(t, `{"script":"hi"}`, string(got.Input))
}

func TestSubmitUnknownVendorRejected(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	svc := newTestService(store, &fakeAdapter{}, &countingNotifier{})

	_, err := svc.Submit(ctx, "owner-1", domain.Vendor("movie_magic"), json.RawMessage(`{}`))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSubmitUnconfiguredVendorRejected(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	// Registry only knows video_gen.
	svc := newTestService(store, &fakeAdapter{}, &countingNotifier{})

	_, err := svc.Submit(ctx, "owner-1", domain.VendorTranslation, json.RawMessage(`{}`))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSubmitRetriesTransientStartFailure(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	adapter := &fakeAdapter{
		startErrs:   []error{fmt.Errorf("503: %w", domain.ErrVendorUnavailable)},
		startResult: &providers.StartResult{ExternalID: "X42"},
	}
	svc := newTestService(store, adapter, &countingNotifier{})

	job, err := svc.Submit(ctx, "owner-1", domain.VendorVideoGen, json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, adapter.startCalls, 2, "first attempt must be retried")

	got, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "X42", got.ExternalID)
	assert.Equal(t, domain.JobStatusProcessing, got.Status)
}

func TestSubmitFatalStartErrorFailsJobImmediately(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	adapter := &fakeAdapter{
		startErrs: []error{fmt.Errorf("heygen: bad avatar id: %w", domain.ErrInvalidInput)},
	}
	svc := newTestService(store, adapter, &countingNotifier{})

	job, err := svc.Submit(ctx, "owner-1", domain.VendorVideoGen, json.RawMessage(`{}`))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, adapter.startCalls, "fatal errors must not be retried")

	got, getErr := store.GetByID(ctx, job.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	assert.Contains(t, got.ErrorDetail, "bad avatar id")
	assert.Empty(t, got.ResultURL)
}

func TestSubmitQuotaErrorSurfacedDistinctly(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	adapter := &fakeAdapter{
		startErrs: []error{fmt.Errorf("plan limit: %w", domain.ErrQuotaExceeded)},
	}
	svc := newTestService(store, adapter, &countingNotifier{})

	_, err := svc.Submit(ctx, "owner-1", domain.VendorVideoGen, json.RawMessage(`{}`))
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)
}

func TestGetScopedToOwner(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	svc := newTestService(store, &fakeAdapter{}, &countingNotifier{})

	job, err := svc.Submit(ctx, "owner-1", domain.VendorVideoGen, json.RawMessage(`{}`))
	require.NoError(t, err)

	got, err := svc.Get(ctx, "owner-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = svc.Get(ctx, "owner-2", job.ID)
	require.ErrorIs(t, err, domain.ErrNotFound, "other owners must not learn the job exists")
}

func TestHandleWebhookCompletesJob(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	adapter := &fakeAdapter{
		startResult:       &providers.StartResult{ExternalID: "X42"},
		webhookExternalID: "X42",
		webhookResult:     &providers.PollResult{Status: providers.StatusCompleted, ResultURL: "https://x/out.mp4"},
	}
	notifier := &countingNotifier{}
	svc := newTestService(store, adapter, notifier)

	job, err := svc.Submit(ctx, "owner-1", domain.VendorVideoGen, json.RawMessage(`{}`))
	require.NoError(t, err)

	require.NoError(t, svc.HandleWebhook(ctx, domain.VendorVideoGen, []byte(`{"ignored":true}`)))

	got, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, "https://x/out.mp4", got.ResultURL)
	assert.Equal(t, 1, notifier.count())
}

func TestHandleWebhookUnknownExternalID(t *testing.T) {
	ctx := context.Background()
	store := repo.NewJobRepositoryMemory()
	adapter := &fakeAdapter{
		webhookExternalID: "never-seen",
		webhookResult:     &providers.PollResult{Status: providers.StatusCompleted, ResultURL: "https://x/out.mp4"},
	}
	svc := newTestService(store, adapter, &countingNotifier{})

	err := svc.HandleWebhook(ctx, domain.VendorVideoGen, []byte(`{}`))
	require.ErrorIs(t, err, domain.ErrNotFound)
}
