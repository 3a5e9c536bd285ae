// Package notify defines how the service tells people about complaint activity.
package notify

import (
	"civicwatch/backend/internal/models"
	"context"
)

// Notifier delivers complaint events to officials and authors. Implementations
// must not block the caller on network delivery.
type Notifier interface {
	ComplaintCreated(ctx context.Context, c *models.Complaint)
	StatusChanged(ctx context.Context, c *models.Complaint, from models.ComplaintStatus, note string)
	ReportFiled(ctx context.Context, r *models.Report, hidden bool)
}

// Nop discards every notification. Used when no bot token is configured.
type Nop struct{}

func (Nop) ComplaintCreated(context.Context, *models.Complaint) {}

func (Nop) StatusChanged(context.Context, *models.Complaint, models.ComplaintStatus, string) {}

func (Nop) ReportFiled(context.Context, *models.Report, bool) {}

var _ Notifier = Nop{}
