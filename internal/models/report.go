package models

import "gorm.io/gorm"

// ReportStatus tracks moderation of a report.
type ReportStatus string

const (
	ReportNew       ReportStatus = "new"
	ReportConfirmed ReportStatus = "confirmed"
	ReportDismissed ReportStatus = "dismissed"
)

// Report is a user's flag against a complaint (spam, abuse, duplicate...).
type Report struct {
	gorm.Model
	ComplaintID string       `gorm:"type:text;not null;index" json:"complaint_id"`
	ReporterID  string       `gorm:"type:text;not null;index" json:"reporter_id"`
	Reason      string       `gorm:"type:text;not null" json:"reason"`
	Details     string       `gorm:"type:text" json:"details,omitempty"`
	Status      ReportStatus `gorm:"type:text;not null;default:new" json:"status"`
}
