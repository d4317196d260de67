package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/you/identitysvc/domain"
	"github.com/you/identitysvc/internal/infrastructure/metrics"
	"github.com/you/identitysvc/internal/logging"
)

// WorkerConfig tunes the delivery loop
type WorkerConfig struct {
	MaxRetries  int
	RetryBase   time.Duration
	PollTimeout time.Duration

	// DeadLetterTTL bounds how long the dead-letter list outlives its last push
	DeadLetterTTL time.Duration
}

// DefaultDeadLetterTTL applies when WorkerConfig.DeadLetterTTL is unset
const DefaultDeadLetterTTL = 7 * 24 * time.Hour

// redactedKeys name the template data that grants access on its own
var redactedKeys = []string{DataCode, DataLink}

const redacted = "[redacted]"

// Worker drains the notification queue and hands each request to the sender
// registered for its channel. Requests that exhaust their retries are moved
// to a dead-letter list.
type Worker struct {
	queue   *Queue
	senders map[domain.Channel]Sender
	cfg     WorkerConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewWorker creates a delivery worker for queue
func NewWorker(queue *Queue, senders map[domain.Channel]Sender, cfg WorkerConfig, logger *slog.Logger, m *metrics.Metrics) *Worker {
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.DeadLetterTTL <= 0 {
		cfg.DeadLetterTTL = DefaultDeadLetterTTL
	}
	return &Worker{
		queue:   queue,
		senders: senders,
		cfg:     cfg,
		logger:  logger.With("component", "notification_worker"),
		metrics: m,
	}
}

// Run processes notifications until ctx is cancelled
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "notification worker started", "queue", w.queue.key)
	defer w.logger.Info("notification worker stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := w.ProcessOne(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logging.LogError(ctx, w.logger, "notification queue read failed", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.cfg.RetryBase):
			}
		}
	}
}

// ProcessOne waits up to the poll timeout for a notification and delivers it.
// It reports whether a notification was taken off the queue.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	res, err := w.queue.client.BRPop(ctx, w.cfg.PollTimeout, w.queue.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	// BRPOP replies with [key, value]
	w.handle(ctx, res[1])
	return true, nil
}

func (w *Worker) handle(ctx context.Context, payload string) {
	var n domain.Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		logging.LogWarn(ctx, w.logger, "dropping undecodable notification", err)
		w.deadLetter(ctx, payload)
		return
	}

	logger := w.logger.With("notification_id", n.ID, "channel", n.Channel, "template", n.Template, "account_id", n.AccountID)

	sender, ok := w.senders[n.Channel]
	if !ok {
		logger.WarnContext(ctx, "no sender for channel")
		w.metrics.Deliveries.WithLabelValues(string(n.Channel), "unroutable").Inc()
		w.deadLetter(ctx, redact(&n))
		return
	}

	msg, err := Render(&n)
	if err != nil {
		logging.LogWarn(ctx, logger, "cannot render notification", err)
		w.metrics.Deliveries.WithLabelValues(string(n.Channel), "unrenderable").Inc()
		w.deadLetter(ctx, redact(&n))
		return
	}

	backoff := retry.WithMaxRetries(uint64(w.cfg.MaxRetries), retry.NewExponential(w.cfg.RetryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		n.Attempt++
		if err := sender.Send(ctx, n.Destination, msg); err != nil {
			logging.LogWarn(ctx, logger, "delivery attempt failed", err, "attempt", n.Attempt)
			return retry.RetryableError(err)
		}
		return nil
	})
	w.metrics.Deliveries.WithLabelValues(string(n.Channel), metrics.Outcome(err)).Inc()
	if err != nil {
		logging.LogError(ctx, logger, "notification delivery failed", err, "attempts", n.Attempt)
		w.deadLetter(ctx, redact(&n))
		return
	}
	logger.DebugContext(ctx, "notification delivered", "attempts", n.Attempt)
}

func (w *Worker) deadLetter(ctx context.Context, payload string) {
	// the caller's context may already be cancelled during shutdown
	ctx = context.WithoutCancel(ctx)
	key := w.queue.deadLetterKey()
	_, err := w.queue.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.PExpire(ctx, key, w.cfg.DeadLetterTTL)
		return nil
	})
	if err != nil {
		logging.LogError(ctx, w.logger, "dead-letter push failed", fmt.Errorf("push %s: %w", key, err))
	}
}

// redact re-encodes n without one-time codes or links
func redact(n *domain.Notification) string {
	clean := *n
	if len(n.Data) > 0 {
		clean.Data = maps.Clone(n.Data)
		for _, k := range redactedKeys {
			if _, ok := clean.Data[k]; ok {
				clean.Data[k] = redacted
			}
		}
	}
	// a Notification holds only strings, numbers and times
	data, _ := json.Marshal(&clean)
	return string(data)
}
