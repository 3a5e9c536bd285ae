package live

import (
	"civicwatch/backend/internal/models"
	"civicwatch/backend/internal/storage"
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// ListenRedis feeds signals and feed events published by any instance into the hub.
// It returns when ctx is cancelled.
func (h *Hub) ListenRedis(ctx context.Context) {
	sub := h.publisher.Subscribe(ctx, storage.ChannelSignal, storage.ChannelFeed)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.route(msg.Channel, []byte(msg.Payload))
		}
	}
}

func (h *Hub) route(channel string, payload []byte) {
	switch channel {
	case storage.ChannelSignal:
		var sig models.SignalMessage
		if err := json.Unmarshal(payload, &sig); err != nil {
			h.logger.Error("decode redis signal", zap.Error(err))
			return
		}
		select {
		case h.remoteCh <- sig:
		case <-h.done:
		}
	case storage.ChannelFeed:
		var ev models.FeedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			h.logger.Error("decode redis feed event", zap.Error(err))
			return
		}
		h.PushFeed(ev)
	}
}
