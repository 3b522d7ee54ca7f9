package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"egotalk/internal/microservices/http-api/service"

	"github.com/redis/go-redis/v9"
)

// Sender delivers one push notification to one recipient. Real deployments
// plug in a provider client here; LogSender stands in for development.
type Sender interface {
	Send(ctx context.Context, recipientID string, job service.PushJob) error
}

type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, recipientID string, job service.PushJob) error {
	s.logger.Info("push delivered",
		"recipient_id", recipientID, "room_id", job.RoomID, "sender", job.SenderName)
	return nil
}

// Worker drains the push queue and fans deliveries out to a bounded pool of
// goroutines, one delivery per recipient.
type Worker struct {
	client      *redis.Client
	queueKey    string
	sender      Sender
	logger      *slog.Logger
	workerCount int

	tasks    chan func(ctx context.Context) error
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	closeMux sync.Mutex
	closed   bool
}

func NewWorker(redisURL, password, queueKey string, workerCount int, sender Sender, logger *slog.Logger) (*Worker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	opts.DialTimeout = 5 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if workerCount < 1 {
		workerCount = 4
	}
	return &Worker{
		client:      rdb,
		queueKey:    queueKey,
		sender:      sender,
		logger:      logger,
		workerCount: workerCount,
		tasks:       make(chan func(ctx context.Context) error, workerCount*2),
	}, nil
}

// Run blocks, popping jobs off the queue until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)

	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go w.worker(ctx, i)
	}
	w.logger.Info("push worker started", "workers", w.workerCount, "queue", w.queueKey)

	for {
		// Blocking pop with a timeout so cancellation is observed.
		res, err := w.client.BRPop(ctx, 5*time.Second, w.queueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				w.drain()
				return nil
			}
			w.logger.Error("queue pop failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		// BRPop returns [key, value].
		if len(res) == 2 {
			w.dispatch(ctx, []byte(res[1]))
		}
	}
}

// dispatch decodes one job and submits a delivery task per recipient.
// A malformed payload is logged and discarded, never retried.
func (w *Worker) dispatch(ctx context.Context, payload []byte) {
	var job service.PushJob
	if err := json.Unmarshal(payload, &job); err != nil {
		w.logger.Error("discarding malformed push job", "error", err)
		return
	}

	for _, recipientID := range job.RecipientIDs {
		id := recipientID
		task := func(ctx context.Context) error {
			return w.sender.Send(ctx, id, job)
		}
		select {
		case w.tasks <- task:
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) worker(ctx context.Context, id int) {
	defer w.wg.Done()
	for {
		select {
		case task, ok := <-w.tasks:
			if !ok {
				return
			}
			if err := task(ctx); err != nil {
				w.logger.Error("push delivery failed", "worker", id, "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) drain() {
	w.closeMux.Lock()
	if !w.closed {
		close(w.tasks)
		w.closed = true
	}
	w.closeMux.Unlock()
	w.wg.Wait()
}

// Shutdown stops the pool and closes the Redis connection.
func (w *Worker) Shutdown() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.drain()
	return w.client.Close()
}
