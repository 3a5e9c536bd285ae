package live

import (
	"civicwatch/backend/internal/config"
	"civicwatch/backend/internal/metrics"
	"civicwatch/backend/internal/models"
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher carries signals and feed events between instances.
type Publisher interface {
	PublishSignal(ctx context.Context, msg models.SignalMessage) error
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// Hub owns the connected clients of this instance. All client bookkeeping
// happens on the Run goroutine.
type Hub struct {
	Clients map[string]Client

	IncomingCh   chan models.SignalMessage
	RegisterCh   chan Client
	UnregisterCh chan Client

	dispatchCh chan models.SignalMessage
	remoteCh   chan models.SignalMessage
	feedCh     chan models.FeedEvent

	// done is closed when Run returns; sends into the hub give up after that.
	done chan struct{}

	feedSubs  map[string]bool
	service   *Service
	publisher Publisher
	logger    *zap.Logger
}

func NewHub(svc *Service, p Publisher, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		Clients:      make(map[string]Client),
		IncomingCh:   make(chan models.SignalMessage),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		dispatchCh:   make(chan models.SignalMessage, config.SignalBufferSize),
		remoteCh:     make(chan models.SignalMessage, config.SignalBufferSize),
		feedCh:       make(chan models.FeedEvent, config.SignalBufferSize),
		done:         make(chan struct{}),
		feedSubs:     make(map[string]bool),
		service:      svc,
		publisher:    p,
		logger:       logger.Named("hub"),
	}
}

// Register adds a client. It reports false once the hub has stopped.
func (h *Hub) Register(c Client) bool {
	select {
	case h.RegisterCh <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client; after shutdown it is a no-op.
func (h *Hub) Unregister(c Client) {
	select {
	case h.UnregisterCh <- c:
	case <-h.done:
	}
}

// Submit passes a client's signal to the hub. It reports false once the hub has stopped.
func (h *Hub) Submit(msg models.SignalMessage) bool {
	select {
	case h.IncomingCh <- msg:
		return true
	case <-h.done:
		return false
	}
}

// Dispatch hands messages produced outside the hub (HTTP handlers, pumps) to it.
func (h *Hub) Dispatch(msgs ...models.SignalMessage) {
	for _, m := range msgs {
		select {
		case h.dispatchCh <- m:
		case <-h.done:
			return
		}
	}
}

// PushFeed fans a feed event out to the subscribed local clients.
func (h *Hub) PushFeed(ev models.FeedEvent) {
	select {
	case h.feedCh <- ev:
	case <-h.done:
	}
}

// Done is closed after Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	h.logger.Info("hub started")
	for {
		select {
		case c := <-h.RegisterCh:
			h.register(c)

		case c := <-h.UnregisterCh:
			if cur, ok := h.Clients[c.GetUserID()]; ok && cur == c {
				h.drop(ctx, c)
			}

		case msg := <-h.IncomingCh:
			h.handleIncoming(ctx, msg)

		case msg := <-h.dispatchCh:
			h.deliver(ctx, msg)

		case msg := <-h.remoteCh:
			// Повідомлення від іншого інстансу: доставляємо лише локальним клієнтам.
			if c, ok := h.Clients[msg.TargetID]; ok {
				h.send(ctx, c, msg, "remote")
			}

		case ev := <-h.feedCh:
			event := ev
			for id := range h.feedSubs {
				if c, ok := h.Clients[id]; ok {
					h.send(ctx, c, models.SignalMessage{Type: models.SignalFeedEvent, TargetID: id, Event: &event}, "feed")
				}
			}

		case <-ctx.Done():
			for _, c := range h.Clients {
				c.Close()
			}
			h.Clients = make(map[string]Client)
			metrics.ConnectedClients.Set(0)
			h.logger.Info("hub stopped")
			return
		}
	}
}

func (h *Hub) register(c Client) {
	id := c.GetUserID()
	if old, ok := h.Clients[id]; ok && old != c {
		// Нове з'єднання того ж користувача витісняє старе.
		old.Close()
	}
	h.Clients[id] = c
	metrics.ConnectedClients.Set(float64(len(h.Clients)))
	h.logger.Debug("client registered", zap.String("user_id", id))
}

// drop forgets the client and runs the disconnect rules for its user.
func (h *Hub) drop(ctx context.Context, c Client) {
	id := c.GetUserID()
	delete(h.Clients, id)
	delete(h.feedSubs, id)
	c.Close()
	metrics.ConnectedClients.Set(float64(len(h.Clients)))
	h.logger.Debug("client unregistered", zap.String("user_id", id))

	for _, msg := range h.service.Disconnect(ctx, id) {
		h.deliver(ctx, msg)
	}
}

func (h *Hub) handleIncoming(ctx context.Context, msg models.SignalMessage) {
	if msg.Type == models.SignalSubscribeFeed {
		h.feedSubs[msg.SenderID] = true
		return
	}

	out, err := h.service.HandleSignal(ctx, msg)
	if err != nil {
		h.logger.Debug("signal rejected", zap.String("type", msg.Type), zap.String("sender_id", msg.SenderID), zap.Error(err))
		h.deliver(ctx, models.SignalMessage{
			Type:      models.SignalError,
			SessionID: msg.SessionID,
			PeerID:    msg.PeerID,
			TargetID:  msg.SenderID,
			Error:     err.Error(),
		})
		return
	}
	for _, m := range out {
		h.deliver(ctx, m)
	}
}

// deliver sends to a local client or publishes for the instance that holds the target.
func (h *Hub) deliver(ctx context.Context, msg models.SignalMessage) {
	if c, ok := h.Clients[msg.TargetID]; ok {
		h.send(ctx, c, msg, "local")
		return
	}
	if msg.Type == models.SignalError {
		return
	}
	if err := h.publisher.PublishSignal(ctx, msg); err != nil {
		h.logger.Error("publish signal", zap.String("type", msg.Type), zap.String("target_id", msg.TargetID), zap.Error(err))
		return
	}
	metrics.SignalsRelayed.WithLabelValues(msg.Type, "published").Inc()
}

func (h *Hub) send(ctx context.Context, c Client, msg models.SignalMessage, route string) {
	select {
	case c.GetSendChannel() <- msg:
		metrics.SignalsRelayed.WithLabelValues(msg.Type, route).Inc()
	default:
		// Повільний клієнт: відключаємо.
		h.logger.Warn("client send buffer full, dropping", zap.String("user_id", c.GetUserID()))
		h.drop(ctx, c)
	}
}
