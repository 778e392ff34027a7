// Package notify publishes terminal job events for UI push consumers.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"mediatracker/internal/domain"
	"mediatracker/internal/infra"
)

// Channel carries terminal job events.
const Channel = "jobs.terminal"

type terminalEvent struct {
	JobID       string `json:"job_id"`
	OwnerID     string `json:"owner_id"`
	Vendor      string `json:"vendor"`
	Status      string `json:"status"`
	ResultURL   string `json:"result_url,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// RedisNotifier publishes terminal job events on a Redis channel. Publish
// failures are logged and dropped; the committed job state is already
// durable, and UI polling of the store remains the fallback.
type RedisNotifier struct {
	client *redis.Client
	logger infra.Logger
}

// NewRedisNotifier connects to Redis and verifies the connection.
func NewRedisNotifier(ctx context.Context, addr string, logger infra.Logger) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}
	return &RedisNotifier{client: client, logger: logger}, nil
}

func (n *RedisNotifier) OnTerminal(ctx context.Context, job *domain.Job) {
	payload, err := json.Marshal(terminalEvent{
		JobID:       job.ID,
		OwnerID:     job.OwnerID,
		Vendor:      string(job.Vendor),
		Status:      string(job.Status),
		ResultURL:   job.ResultURL,
		ErrorDetail: job.ErrorDetail,
	})
	if err != nil {
		n.logger.Error().Err(err).Str("job_id", job.ID).Msg("encode terminal event failed")
		return
	}
	if err := n.client.Publish(ctx, Channel, payload).Err(); err != nil {
		n.logger.Warn().Err(err).Str("job_id", job.ID).Msg("publish terminal event failed")
	}
}

// Close releases the Redis connection.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
