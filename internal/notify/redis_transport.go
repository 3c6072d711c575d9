package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"turnq/internal/models"
)

const defaultNotificationChannel = "turnq:notifications"

// RedisTransport publishes notifications on a pub/sub channel for
// display boards and websocket bridges to pick up.
type RedisTransport struct {
	rdb     *redis.Client
	channel string
}

func NewRedisTransport(rdb *redis.Client, channel string) *RedisTransport {
	if channel == "" {
		channel = defaultNotificationChannel
	}
	return &RedisTransport{rdb: rdb, channel: channel}
}

func (t *RedisTransport) Send(ctx context.Context, client *models.Client, notifType, message string) (bool, error) {
	body, err := json.Marshal(notificationEnvelope{
		ClientID: client.ID,
		QueueID:  client.QueueID,
		Email:    client.Email,
		Phone:    client.Phone,
		Type:     notifType,
		Message:  message,
		SentAt:   time.Now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to encode notification: %w", err)
	}

	if err := t.rdb.Publish(ctx, t.channel, body).Err(); err != nil {
		return false, nil
	}
	return true, nil
}
