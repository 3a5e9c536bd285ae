package models

import "github.com/pion/webrtc/v4"

// Типи повідомлень сигналізації.
const (
	SignalOffer         = "offer"
	SignalAnswer        = "answer"
	SignalCandidate     = "candidate"
	SignalConnected     = "connected"
	SignalLeave         = "leave"
	SignalViewerJoined  = "viewer_joined"
	SignalViewerLeft    = "viewer_left"
	SignalSessionEnded  = "session_ended"
	SignalFeedEvent     = "feed_event"
	SignalError         = "error"
	SignalSubscribeFeed = "subscribe_feed"
)

// SignalMessage is the envelope exchanged with websocket clients and between
// instances over Redis.
type SignalMessage struct {
	Type      string                     `json:"type"`
	SessionID string                     `json:"session_id,omitempty"`
	PeerID    string                     `json:"peer_id,omitempty"`
	SenderID  string                     `json:"sender_id,omitempty"`
	TargetID  string                     `json:"target_id,omitempty"`
	SDP       *webrtc.SessionDescription `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
	Event     *FeedEvent                 `json:"event,omitempty"`
	Error     string                     `json:"error,omitempty"`
}

// FeedEvent describes a change pushed to feed subscribers.
type FeedEvent struct {
	Kind        string          `json:"kind"` // "complaint_created", "status_changed", "comment_added"
	ComplaintID string          `json:"complaint_id"`
	ActorID     string          `json:"actor_id,omitempty"`
	Status      ComplaintStatus `json:"status,omitempty"`
}

const (
	FeedComplaintCreated = "complaint_created"
	FeedStatusChanged    = "status_changed"
	FeedCommentAdded     = "comment_added"
)
