package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/model"
)

// RedisOptions configures the Redis notification backend.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Redis implements NotificationStorage with one hash per user: field is the
// notification id, value its JSON encoding.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisWithClient(client, opts.KeyPrefix), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "pulse:notifications:"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(userID string) string {
	return r.prefix + userID
}

func (r *Redis) InsertNotification(ctx context.Context, n *model.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := r.client.HSet(ctx, r.key(n.UserID), n.ID, data).Err(); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *Redis) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	raw, err := r.client.HGetAll(ctx, r.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	out := make([]model.Notification, 0, len(raw))
	for id, v := range raw {
		var n model.Notification
		if err := json.Unmarshal([]byte(v), &n); err != nil {
			return nil, fmt.Errorf("decode notification %s: %w", id, err)
		}
		out = append(out, n)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Seq > out[j].Seq
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (r *Redis) MarkNotificationRead(ctx context.Context, userID, id string) error {
	key := r.key(userID)
	v, err := r.client.HGet(ctx, key, id).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get notification: %w", err)
	}

	var n model.Notification
	if err := json.Unmarshal([]byte(v), &n); err != nil {
		return fmt.Errorf("decode notification %s: %w", id, err)
	}
	if n.Read {
		return nil
	}
	n.Read = true

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := r.client.HSet(ctx, key, id, data).Err(); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (r *Redis) DeleteNotification(ctx context.Context, userID, id string) error {
	if err := r.client.HDel(ctx, r.key(userID), id).Err(); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

func (r *Redis) ClearNotifications(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
