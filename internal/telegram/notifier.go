package telegram

import (
	"civicwatch/backend/internal/localization"
	"civicwatch/backend/internal/models"
	"civicwatch/backend/internal/notify"
	"context"

	"go.uber.org/zap"
)

// Notifier implements notify.Notifier. Officials get new complaints and reports
// in a shared chat; authors get status changes in their linked chat.
type Notifier struct {
	Storage       Store
	Localizer     *localization.Localizer
	OfficialsChat int64
	out           *outbox
	logger        *zap.Logger
}

var _ notify.Notifier = (*Notifier)(nil)

func NewNotifier(api BotAPI, s Store, loc *localization.Localizer, officialsChat int64, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("telegram")
	return &Notifier{
		Storage:       s,
		Localizer:     loc,
		OfficialsChat: officialsChat,
		out:           newOutbox(api, logger),
		logger:        logger,
	}
}

// Run delivers queued messages until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	n.out.writePump(ctx)
}

func (n *Notifier) ComplaintCreated(ctx context.Context, c *models.Complaint) {
	if n.OfficialsChat == 0 {
		return
	}
	text := n.Localizer.Format(localization.DefaultLanguage, "complaint_created",
		escape(c.Title), escape(c.Category), c.Latitude, c.Longitude, c.ID)
	n.out.push(outgoing{ChatID: n.OfficialsChat, Text: text})
}

func (n *Notifier) StatusChanged(ctx context.Context, c *models.Complaint, from models.ComplaintStatus, note string) {
	author, err := n.Storage.GetUserByID(ctx, c.AuthorID)
	if err != nil {
		n.logger.Warn("status notification: author lookup failed", zap.String("complaint_id", c.ID), zap.Error(err))
		return
	}
	if author.TelegramID == nil {
		return
	}

	lang := author.Language
	text := n.Localizer.Format(lang, "status_changed",
		escape(c.Title), n.statusName(lang, from), n.statusName(lang, c.Status))
	if note != "" {
		text += "\n" + n.Localizer.Format(lang, "status_note", escape(note))
	}
	n.out.push(outgoing{ChatID: *author.TelegramID, Text: text})
}

func (n *Notifier) ReportFiled(ctx context.Context, r *models.Report, hidden bool) {
	if n.OfficialsChat == 0 {
		return
	}
	lang := localization.DefaultLanguage
	text := n.Localizer.Format(lang, "report_filed", r.ComplaintID, r.Reason)
	if hidden {
		text += "\n" + n.Localizer.Format(lang, "report_hidden", r.ComplaintID)
	}
	n.out.push(outgoing{ChatID: n.OfficialsChat, Text: text})
}

func (n *Notifier) statusName(lang string, s models.ComplaintStatus) string {
	return n.Localizer.GetString(lang, "status_"+string(s))
}
