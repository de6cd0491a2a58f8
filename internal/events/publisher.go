package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"teamhub-backend/internal/domain"
)

// Publisher delivers domain events to users. Publishing is fire-and-forget:
// callers never block on, or fail because of, event delivery.
type Publisher interface {
	Publish(ctx context.Context, userIDs []uuid.UUID, event *domain.Event)
}

// UserChannel returns the pub/sub channel carrying one user's events
func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("events:user:%s", userID)
}

// RedisPublisher publishes domain events over Redis Pub/Sub, one channel
// per recipient. The WebSocket hub on the delivery side subscribes to the
// channels of its connected users.
type RedisPublisher struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisPublisher creates a new RedisPublisher
func NewRedisPublisher(client *redis.Client, log *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, log: log}
}

// Publish sends the event to each user's channel. Errors are logged and
// swallowed.
func (p *RedisPublisher) Publish(ctx context.Context, userIDs []uuid.UUID, event *domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error("failed to marshal domain event",
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
		return
	}

	for _, userID := range userIDs {
		if err := p.client.Publish(ctx, UserChannel(userID), payload).Err(); err != nil {
			p.log.Warn("failed to publish domain event",
				zap.String("event_type", event.Type),
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
	}
}
