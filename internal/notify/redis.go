package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/metrics"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// RedisPublisher publishes each alert to a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	now     func() time.Time
}

// NewRedisPublisher parses url, pings the server and returns a publisher for channel.
func NewRedisPublisher(ctx context.Context, url, channel string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	log.WithField("channel", channel).Info("Connected to Redis")
	return NewRedisPublisherFromClient(client, channel), nil
}

// NewRedisPublisherFromClient wraps an existing client.
func NewRedisPublisherFromClient(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, now: time.Now}
}

func (p *RedisPublisher) PublishAlerts(ctx context.Context, alerts []models.SmartAlert) (int, error) {
	published := 0
	var errs []error
	for _, a := range alerts {
		data, err := encodeAlert(a, p.now())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
			log.WithFields(log.Fields{"channel": p.channel, "asset_id": a.AssetID, "type": a.Type}).WithError(err).Error("Failed to publish alert")
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		metrics.AlertsPublished.Inc()
		published++
	}
	return published, errors.Join(errs...)
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
