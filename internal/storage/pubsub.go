package storage

import (
	"civicwatch/backend/internal/models"
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// PublishSignal публікує повідомлення сигналізації для інших інстансів.
func (s *Service) PublishSignal(ctx context.Context, msg models.SignalMessage) error {
	return s.publish(ctx, ChannelSignal, msg)
}

// PublishFeedEvent публікує подію стрічки (liveFeed).
func (s *Service) PublishFeedEvent(ctx context.Context, ev models.FeedEvent) error {
	return s.publish(ctx, ChannelFeed, ev)
}

// publish is a no-op without Redis (admin CLI).
func (s *Service) publish(ctx context.Context, channel string, v any) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, channel, payload).Err()
}

func (s *Service) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return s.Redis.Subscribe(ctx, channels...)
}

// EnqueuePending додає подання в кінець черги повторів.
func (s *Service) EnqueuePending(ctx context.Context, payload []byte) error {
	return s.Redis.RPush(ctx, keyPendingQueue, payload).Err()
}

// DequeuePending returns (nil, nil) when the queue is empty.
func (s *Service) DequeuePending(ctx context.Context) ([]byte, error) {
	b, err := s.Redis.LPop(ctx, keyPendingQueue).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return b, err
}

func (s *Service) PendingLen(ctx context.Context) (int64, error) {
	return s.Redis.LLen(ctx, keyPendingQueue).Result()
}
