package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// LiveSession is an ephemeral broadcast from one host to many viewers.
type LiveSession struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	HostID      string     `gorm:"type:text;not null;index" json:"host_id"`
	Title       string     `gorm:"type:text" json:"title"`
	ComplaintID *string    `gorm:"type:text;index" json:"complaint_id,omitempty"`
	IsActive    bool       `gorm:"index" json:"is_active"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

// BeforeCreate assigns a UUID.
func (s *LiveSession) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return
}

// PeerState is the signaling progress of one host-viewer connection.
type PeerState string

const (
	PeerNew       PeerState = "new"
	PeerOffered   PeerState = "offered"
	PeerAnswered  PeerState = "answered"
	PeerConnected PeerState = "connected"
	PeerClosed    PeerState = "closed"
)

// Peer holds the signaling exchange between the session host and one viewer.
// Candidates are JSON-encoded ICE candidate inits, append-only.
type Peer struct {
	ID               string         `gorm:"primaryKey" json:"id"`
	SessionID        string         `gorm:"type:text;not null;index" json:"session_id"`
	ViewerID         string         `gorm:"type:text;not null;index" json:"viewer_id"`
	Offer            string         `gorm:"type:text" json:"offer,omitempty"`
	Answer           string         `gorm:"type:text" json:"answer,omitempty"`
	HostCandidates   pq.StringArray `gorm:"type:text[]" json:"host_candidates"`
	ViewerCandidates pq.StringArray `gorm:"type:text[]" json:"viewer_candidates"`
	State            PeerState      `gorm:"type:text;not null" json:"state"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// BeforeCreate assigns a UUID and the initial state.
func (p *Peer) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.State == "" {
		p.State = PeerNew
	}
	return
}
