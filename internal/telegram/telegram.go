// Package telegram sends complaint notifications through the Telegram Bot API
// and answers a few bot commands for citizens who linked their chat.
package telegram

import (
	"civicwatch/backend/internal/metrics"
	"civicwatch/backend/internal/models"
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const outboxSize = 100

// BotAPI is the part of *tgbotapi.BotAPI the package uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

// Store is the user lookup the bot and notifier need.
type Store interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	UpdateUserLanguage(ctx context.Context, telegramID int64, languageCode string) error
}

// outgoing is one message waiting in the outbox.
type outgoing struct {
	ChatID int64
	Text   string
	Markup *tgbotapi.InlineKeyboardMarkup
}

func (o outgoing) chattable() tgbotapi.Chattable {
	msg := tgbotapi.NewMessage(o.ChatID, o.Text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if o.Markup != nil {
		msg.ReplyMarkup = *o.Markup
	}
	return msg
}

// outbox decouples callers from Telegram latency. One writer goroutine drains it.
type outbox struct {
	api    BotAPI
	ch     chan outgoing
	logger *zap.Logger
}

func newOutbox(api BotAPI, logger *zap.Logger) *outbox {
	return &outbox{api: api, ch: make(chan outgoing, outboxSize), logger: logger}
}

// push never blocks; a full outbox drops the message.
func (o *outbox) push(m outgoing) {
	select {
	case o.ch <- m:
	default:
		metrics.NotificationsSent.WithLabelValues("dropped").Inc()
		o.logger.Warn("telegram outbox full, dropping message", zap.Int64("chat_id", m.ChatID))
	}
}

// writePump слухає канал і надсилає повідомлення в Telegram.
func (o *outbox) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-o.ch:
			if _, err := o.api.Send(m.chattable()); err != nil {
				metrics.NotificationsSent.WithLabelValues("failed").Inc()
				o.logger.Error("telegram send failed", zap.Int64("chat_id", m.ChatID), zap.Error(err))
				continue
			}
			metrics.NotificationsSent.WithLabelValues("sent").Inc()
		}
	}
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
