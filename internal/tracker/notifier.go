package tracker

import (
	"context"

	"mediatracker/internal/domain"
	"mediatracker/internal/infra"
)

// Notifier is invoked synchronously after a successful terminal commit. The
// terminal state is already visible to the next store read by then; pushing
// it anywhere else (Redis, websockets) is an implementation's concern.
// Notifier failures never affect the committed job.
type Notifier interface {
	OnTerminal(ctx context.Context, job *domain.Job)
}

// LogNotifier is the default Notifier; it only records the outcome.
type LogNotifier struct {
	logger infra.Logger
}

func NewLogNotifier(logger infra.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OnTerminal(ctx context.Context, job *domain.Job) {
	n.logger.Info().
		Str("job_id", job.ID).
		Str("owner_id", job.OwnerID).
		Str("vendor", string(job.Vendor)).
		Str("status", string(job.Status)).
		Msg("job reached terminal state")
}

var _ Notifier = (*LogNotifier)(nil)
