package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ComplaintStatus is the triage state of a complaint.
type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "pending"
	StatusInProgress ComplaintStatus = "inProgress"
	StatusSolved     ComplaintStatus = "solved"
	StatusRejected   ComplaintStatus = "rejected"
)

// allowedTransitions lists the statuses reachable from each state.
// Solved and rejected are terminal.
var allowedTransitions = map[ComplaintStatus][]ComplaintStatus{
	StatusPending:    {StatusInProgress, StatusRejected},
	StatusInProgress: {StatusSolved, StatusRejected},
}

// Valid reports whether s is a known status.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusSolved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s ComplaintStatus) Terminal() bool {
	return s == StatusSolved || s == StatusRejected
}

// CanTransition reports whether the move from s to next is permitted.
func (s ComplaintStatus) CanTransition(next ComplaintStatus) bool {
	for _, to := range allowedTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// MediaKind is the type of an attached media reference.
type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// Valid reports whether k is a supported media kind.
func (k MediaKind) Valid() bool {
	return k == MediaPhoto || k == MediaVideo || k == MediaAudio
}

// Complaint is a citizen-submitted civic issue report.
type Complaint struct {
	ID            string           `gorm:"primaryKey" json:"id"`
	AuthorID      string           `gorm:"type:text;not null;index" json:"author_id"`
	Title         string           `gorm:"type:text;not null" json:"title"`
	Description   string           `gorm:"type:text" json:"description"`
	Category      string           `gorm:"type:text;index" json:"category"`
	Latitude      float64          `gorm:"index:idx_complaint_geo" json:"latitude"`
	Longitude     float64          `gorm:"index:idx_complaint_geo" json:"longitude"`
	Address       string           `gorm:"type:text" json:"address,omitempty"`
	Status        ComplaintStatus  `gorm:"type:text;not null;index" json:"status"`
	Media         []ComplaintMedia `gorm:"foreignKey:ComplaintID;constraint:OnDelete:CASCADE" json:"media"`
	Tags          pq.StringArray   `gorm:"type:text[]" json:"tags,omitempty"`
	LikesCount    int              `json:"likes_count"`
	CommentsCount int              `json:"comments_count"`
	// FlagScore is the summed weight of open reports against the complaint.
	FlagScore  int        `json:"-"`
	Hidden     bool       `gorm:"index" json:"hidden,omitempty"`
	ClientRef  *string    `gorm:"uniqueIndex" json:"client_ref,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// BeforeCreate assigns a UUID and the initial status.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = StatusPending
	}
	return
}

// ComplaintMedia is a reference to a photo, video or audio file uploaded by the client.
type ComplaintMedia struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	ComplaintID string    `gorm:"type:text;not null;index" json:"-"`
	Kind        MediaKind `gorm:"type:text;not null" json:"kind"`
	URL         string    `gorm:"type:text;not null" json:"url"`
}

// StatusChange is an audit record of a single status transition.
type StatusChange struct {
	gorm.Model
	ComplaintID string          `gorm:"type:text;not null;index" json:"complaint_id"`
	From        ComplaintStatus `gorm:"type:text" json:"from"`
	To          ComplaintStatus `gorm:"type:text" json:"to"`
	ActorID     string          `gorm:"type:text" json:"actor_id"`
	Note        string          `gorm:"type:text" json:"note,omitempty"`
}
