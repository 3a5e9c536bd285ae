package telegram

import (
	"civicwatch/backend/internal/apperr"
	"civicwatch/backend/internal/localization"
	"civicwatch/backend/internal/models"
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const langCallbackPrefix = "set_lang_"

// ComplaintReader looks complaints up on behalf of a bot user.
type ComplaintReader interface {
	Get(ctx context.Context, viewer models.Actor, id string) (*models.Complaint, error)
}

// Bot answers /start, /status and /language.
type Bot struct {
	API        BotAPI
	Storage    Store
	Complaints ComplaintReader
	Localizer  *localization.Localizer
	out        *outbox
	logger     *zap.Logger
}

func NewBot(api BotAPI, s Store, complaints ComplaintReader, loc *localization.Localizer, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("telegram_bot")
	return &Bot{
		API:        api,
		Storage:    s,
		Complaints: complaints,
		Localizer:  loc,
		out:        newOutbox(api, logger),
		logger:     logger,
	}
}

// Run is the main loop for receiving Telegram updates.
func (b *Bot) Run(ctx context.Context) {
	go b.out.writePump(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.API.GetUpdatesChan(u)

	b.logger.Info("telegram bot started")
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		chatID := update.Message.Chat.ID
		switch update.Message.Command() {
		case "start":
			b.handleStart(ctx, chatID)
		case "status":
			b.handleStatus(ctx, chatID, update.Message.CommandArguments())
		case "language":
			b.handleLanguageCommand(ctx, chatID)
		}
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}

// language returns the chat's stored language, or the default for unlinked chats.
func (b *Bot) language(ctx context.Context, chatID int64) string {
	user, err := b.Storage.GetUserByTelegramID(ctx, chatID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			b.logger.Warn("user lookup failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		return localization.DefaultLanguage
	}
	if user.Language == "" {
		return localization.DefaultLanguage
	}
	return user.Language
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	lang := b.language(ctx, chatID)
	b.out.push(outgoing{ChatID: chatID, Text: b.Localizer.Format(lang, "welcome", chatID)})
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64, args string) {
	lang := b.language(ctx, chatID)
	id := strings.TrimSpace(args)
	if id == "" {
		b.out.push(outgoing{ChatID: chatID, Text: b.Localizer.GetString(lang, "status_usage")})
		return
	}

	// Бот бачить лише те, що бачить анонімний громадянин.
	c, err := b.Complaints.Get(ctx, models.Actor{Role: models.RoleCitizen}, id)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			b.logger.Error("status lookup failed", zap.String("complaint_id", id), zap.Error(err))
		}
		b.out.push(outgoing{ChatID: chatID, Text: b.Localizer.GetString(lang, "not_found")})
		return
	}

	text := b.Localizer.Format(lang, "status_reply",
		escape(c.Title), b.Localizer.GetString(lang, "status_"+string(c.Status)), c.LikesCount, c.CommentsCount)
	b.out.push(outgoing{ChatID: chatID, Text: text})
}

// handleLanguageCommand sends a keyboard with one button per loaded language.
func (b *Bot) handleLanguageCommand(ctx context.Context, chatID int64) {
	lang := b.language(ctx, chatID)

	var row []tgbotapi.InlineKeyboardButton
	for _, code := range b.Localizer.Languages() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(strings.ToUpper(code), langCallbackPrefix+code))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(row)
	b.out.push(outgoing{ChatID: chatID, Text: b.Localizer.GetString(lang, "choose_language"), Markup: &markup})
}

func (b *Bot) handleCallbackQuery(ctx context.Context, q *tgbotapi.CallbackQuery) {
	// Прибираємо стан "loading" у клієнта.
	if _, err := b.API.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.logger.Warn("callback answer failed", zap.Error(err))
	}
	if q.Message == nil || !strings.HasPrefix(q.Data, langCallbackPrefix) {
		return
	}
	b.setLanguage(ctx, q.Message.Chat.ID, strings.TrimPrefix(q.Data, langCallbackPrefix))
}

func (b *Bot) setLanguage(ctx context.Context, chatID int64, code string) {
	if !b.Localizer.HasLanguage(code) {
		return
	}
	if err := b.Storage.UpdateUserLanguage(ctx, chatID, code); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		b.logger.Error("update language failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	b.out.push(outgoing{ChatID: chatID, Text: b.Localizer.GetString(code, "language_changed")})
}
