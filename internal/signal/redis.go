package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisTransport delivers signals over Redis pub/sub, one channel per
// user. Used when clients share a Redis deployment instead of a
// websocket gateway.
type RedisTransport struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisTransport(host string, port int, password string, db int, logger *zap.Logger) (*RedisTransport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisTransport{client: client, logger: logger}, nil
}

func channelFor(userID string) string {
	return "signal:" + userID
}

func (t *RedisTransport) Publish(ctx context.Context, userID string, sig Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	return t.client.Publish(ctx, channelFor(userID), payload).Err()
}

func (t *RedisTransport) Subscribe(ctx context.Context, userID string, handler func(Signal)) error {
	pubsub := t.client.Subscribe(ctx, channelFor(userID))
	defer func() {
		_ = pubsub.Close()
	}()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var sig Signal
			if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
				t.logger.Debug("skipping malformed signal payload", zap.Error(err))
				continue
			}
			handler(sig)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (t *RedisTransport) Close() error {
	return t.client.Close()
}
