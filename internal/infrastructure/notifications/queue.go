package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/you/identitysvc/domain"
)

// DefaultQueueKey is the Redis list notifications are pushed onto
const DefaultQueueKey = "notifications:queue"

// Queue implements domain.NotificationSink by pushing requests onto a Redis
// list consumed by Worker. A successful push is the end of the caller's
// responsibility.
type Queue struct {
	client *redis.Client
	key    string
}

// NewQueue creates a Redis-backed notification sink
func NewQueue(client *redis.Client, key string) *Queue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &Queue{client: client, key: key}
}

var _ domain.NotificationSink = (*Queue)(nil)

// Deliver implements domain.NotificationSink
func (q *Queue) Deliver(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = ulid.Make().String()
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

// Len returns the number of pending notifications
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

func (q *Queue) deadLetterKey() string {
	return q.key + ":dead"
}
