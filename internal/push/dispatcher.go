package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"egotalk/internal/microservices/http-api/service"

	"github.com/redis/go-redis/v9"
)

// Dispatcher hands push-notification jobs to the delivery worker via a
// Redis list. Delivery (web push, APNs, whatever the worker speaks) is an
// external collaborator; this side only enqueues and forgets.
type Dispatcher struct {
	client   *redis.Client
	queueKey string
	logger   *slog.Logger
}

func NewDispatcher(redisURL, password, queueKey string, logger *slog.Logger) (*Dispatcher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Dispatcher{
		client:   rdb,
		queueKey: queueKey,
		logger:   logger,
	}, nil
}

func (d *Dispatcher) Enqueue(ctx context.Context, job service.PushJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal push job: %w", err)
	}

	if err := d.client.LPush(ctx, d.queueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue push job: %w", err)
	}

	d.logger.Debug("push job enqueued",
		"room_id", job.RoomID, "recipients", len(job.RecipientIDs))
	return nil
}

func (d *Dispatcher) Close() error {
	return d.client.Close()
}
