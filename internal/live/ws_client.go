package live

import (
	"civicwatch/backend/internal/config"
	"civicwatch/backend/internal/models"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WebSocketClient реалізує інтерфейс live.Client
type WebSocketClient struct {
	UserID  string
	Conn    *websocket.Conn
	Hub     *Hub
	Send    chan models.SignalMessage
	limiter *rate.Limiter
}

func NewWebSocketClient(userID string, conn *websocket.Conn, hub *Hub) *WebSocketClient {
	return &WebSocketClient{
		UserID:  userID,
		Conn:    conn,
		Hub:     hub,
		Send:    make(chan models.SignalMessage, config.SignalBufferSize),
		limiter: rate.NewLimiter(rate.Limit(config.SignalRatePerSecond), config.SignalRateBurst),
	}
}

func (c *WebSocketClient) GetUserID() string                           { return c.UserID }
func (c *WebSocketClient) GetSendChannel() chan<- models.SignalMessage { return c.Send }

// Run запускає 'pumps' для WebSocket
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close закриває Send канал (що зупинить writePump)
func (c *WebSocketClient) Close() {
	close(c.Send)
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.MaxSignalMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("websocket read failed", zap.String("user_id", c.UserID), zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			c.reply(models.SignalMessage{Type: models.SignalError, Error: "rate limit exceeded"})
			continue
		}

		msg, err := ParseSignal(data)
		if err != nil {
			c.reply(models.SignalMessage{Type: models.SignalError, Error: err.Error()})
			continue
		}

		// Відправника визначає сервер, а не клієнт.
		msg.SenderID = c.UserID
		msg.TargetID = ""
		if !c.Hub.Submit(msg) {
			return
		}
	}
}

// reply queues a direct answer to this client without going through the hub.
func (c *WebSocketClient) reply(msg models.SignalMessage) {
	c.Hub.Dispatch(withTarget(msg, c.UserID))
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрито хабом, закриваємо з'єднання WS
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(message); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.Hub.logger.Debug("websocket write failed", zap.String("user_id", c.UserID), zap.Error(err))
				}
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// write sends one JSON frame per message so clients can parse frames independently.
func (c *WebSocketClient) write(msg models.SignalMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		c.Hub.logger.Error("encode signal", zap.String("user_id", c.UserID), zap.Error(err))
		return nil
	}
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

func withTarget(msg models.SignalMessage, target string) models.SignalMessage {
	msg.TargetID = target
	return msg
}
