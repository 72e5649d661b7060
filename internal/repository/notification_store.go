package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// NotificationStore keeps the most recent in-app notifications per user.
type NotificationStore interface {
	Push(ctx context.Context, n domain.Notification) error
	List(ctx context.Context, userID int64, limit int) ([]domain.Notification, error)
}

type redisNotificationStore struct {
	client *redis.Client
	retain int64
}

// NewRedisNotificationStore stores notifications in one capped Redis list per user.
func NewRedisNotificationStore(client *redis.Client, retain int) NotificationStore {
	if retain <= 0 {
		retain = 100
	}
	return &redisNotificationStore{client: client, retain: int64(retain)}
}

func notificationKey(userID int64) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}

func (s *redisNotificationStore) Push(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	key := notificationKey(n.UserID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, s.retain-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisNotificationStore) List(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	if limit <= 0 || int64(limit) > s.retain {
		limit = int(s.retain)
	}
	raw, err := s.client.LRange(ctx, notificationKey(userID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	result := make([]domain.Notification, 0, len(raw))
	for _, item := range raw {
		var n domain.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		result = append(result, n)
	}
	return result, nil
}
