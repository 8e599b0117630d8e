package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	PlaylistCreated = "playlist.created"
	PlaylistDeleted = "playlist.deleted"
	PlaylistUpdated = "playlist.updated"
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Publisher delivers change notifications on a best-effort basis. Failures
// are logged by the implementation and never reach the caller.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any)
}

type Nop struct{}

func (Nop) Publish(context.Context, string, any) {}

type redisPublisher struct {
	rdb     *redis.Client
	channel string
	log     *zap.Logger
}

func NewRedisPublisher(rdb *redis.Client, channel string, log *zap.Logger) Publisher {
	return &redisPublisher{rdb: rdb, channel: channel, log: log}
}

func (p *redisPublisher) Publish(ctx context.Context, eventType string, payload any) {
	if p.rdb == nil {
		return
	}

	data, err := Encode(eventType, payload)
	if err != nil {
		p.log.Error("failed to encode event", zap.Error(err), zap.String("type", eventType))
		return
	}

	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		p.log.Warn("failed to publish event", zap.Error(err), zap.String("type", eventType), zap.String("channel", p.channel))
	}
}

func Encode(eventType string, payload any) (string, error) {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}
	return string(data), nil
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return rdb, nil
}
