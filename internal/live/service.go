// Package live relays WebRTC signaling between the host of a live session and
// its viewers. Media flows peer to peer; the service only keeps the session and
// peer records and forwards offers, answers and ICE candidates.
package live

import (
	"civicwatch/backend/internal/apperr"
	"civicwatch/backend/internal/config"
	"civicwatch/backend/internal/metrics"
	"civicwatch/backend/internal/models"
	"civicwatch/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"
)

var (
	ErrSessionActive     = fmt.Errorf("%w: host already has an active session", apperr.ErrConflict)
	ErrSessionEnded      = fmt.Errorf("%w: session is not active", apperr.ErrConflict)
	ErrSessionFull       = fmt.Errorf("%w: session has no free viewer slots", apperr.ErrConflict)
	ErrOwnSession        = fmt.Errorf("%w: host cannot join own session", apperr.ErrInvalid)
	ErrNotParticipant    = fmt.Errorf("%w: not a participant of this peer", apperr.ErrForbidden)
	ErrOutOfOrder        = fmt.Errorf("%w: signal out of order", apperr.ErrConflict)
	ErrTooManyCandidates = fmt.Errorf("%w: too many candidates", apperr.ErrInvalid)
)

// Store is the persistence the live service needs.
type Store interface {
	CreateLiveSession(ctx context.Context, s *models.LiveSession) error
	GetLiveSession(ctx context.Context, id string) (*models.LiveSession, error)
	GetActiveSessionForHost(ctx context.Context, hostID string) (*models.LiveSession, error)
	ListActiveSessions(ctx context.Context) ([]models.LiveSession, error)
	EndLiveSession(ctx context.Context, id string) error
	CountActiveSessions(ctx context.Context) (int64, error)
	CreatePeer(ctx context.Context, p *models.Peer, maxOpen int) error
	GetPeer(ctx context.Context, id string) (*models.Peer, error)
	ListPeers(ctx context.Context, sessionID string, openOnly bool) ([]models.Peer, error)
	ListOpenPeersForViewer(ctx context.Context, viewerID string) ([]models.Peer, error)
	UpdatePeer(ctx context.Context, id string, apply func(*models.Peer) error) (*models.Peer, error)
	GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error)
}

// Service holds the signaling rules. Methods return the messages that have to
// reach other participants; the Hub delivers them.
type Service struct {
	Storage    Store
	iceServers []webrtc.ICEServer
	logger     *zap.Logger
}

func NewService(s Store, iceServers []webrtc.ICEServer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Storage: s, iceServers: iceServers, logger: logger.Named("live")}
}

// ICEServers returns the STUN/TURN servers clients should use.
func (s *Service) ICEServers() []webrtc.ICEServer {
	return s.iceServers
}

// StartSession opens a broadcast. A host has at most one active session.
func (s *Service) StartSession(ctx context.Context, hostID, title, complaintID string) (*models.LiveSession, error) {
	current, err := s.Storage.GetActiveSessionForHost(ctx, hostID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return nil, ErrSessionActive
	}

	ls := &models.LiveSession{
		HostID:   hostID,
		Title:    strings.TrimSpace(title),
		IsActive: true,
	}
	if complaintID != "" {
		if _, err := s.Storage.GetComplaintByID(ctx, complaintID); err != nil {
			return nil, err
		}
		ls.ComplaintID = &complaintID
	}
	ls.StartedAt = time.Now()

	if err := s.Storage.CreateLiveSession(ctx, ls); err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			return nil, ErrSessionActive
		}
		return nil, err
	}
	s.refreshActiveGauge(ctx)
	s.logger.Info("live session started", zap.String("session_id", ls.ID), zap.String("host_id", hostID))
	return ls, nil
}

func (s *Service) GetSession(ctx context.Context, id string) (*models.LiveSession, error) {
	return s.Storage.GetLiveSession(ctx, id)
}

func (s *Service) ListActive(ctx context.Context) ([]models.LiveSession, error) {
	return s.Storage.ListActiveSessions(ctx)
}

// JoinSession admits a viewer. Joining twice returns the open peer created the first time.
func (s *Service) JoinSession(ctx context.Context, sessionID, viewerID string) (*models.Peer, []models.SignalMessage, error) {
	ls, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if ls.HostID == viewerID {
		return nil, nil, ErrOwnSession
	}

	open, err := s.Storage.ListPeers(ctx, sessionID, true)
	if err != nil {
		return nil, nil, err
	}
	for i := range open {
		if open[i].ViewerID == viewerID {
			return &open[i], nil, nil
		}
	}
	if len(open) >= config.MaxViewersPerSession {
		return nil, nil, ErrSessionFull
	}

	peer := &models.Peer{SessionID: sessionID, ViewerID: viewerID, State: models.PeerNew}
	if err := s.Storage.CreatePeer(ctx, peer, config.MaxViewersPerSession); err != nil {
		switch {
		case errors.Is(err, storage.ErrCapacity):
			return nil, nil, ErrSessionFull
		case errors.Is(err, apperr.ErrDuplicate):
			// A concurrent join of the same viewer won; hand back its peer.
			existing, lookupErr := s.openPeerOf(ctx, sessionID, viewerID)
			if lookupErr != nil {
				return nil, nil, lookupErr
			}
			return existing, nil, nil
		case errors.Is(err, apperr.ErrNotFound):
			return nil, nil, ErrSessionEnded
		}
		return nil, nil, err
	}
	s.logger.Debug("viewer joined", zap.String("session_id", sessionID), zap.String("peer_id", peer.ID))

	// Хост створює окреме peer-з'єднання для кожного глядача.
	notice := models.SignalMessage{
		Type:      models.SignalViewerJoined,
		SessionID: sessionID,
		PeerID:    peer.ID,
		SenderID:  viewerID,
		TargetID:  ls.HostID,
	}
	return peer, []models.SignalMessage{notice}, nil
}

// Peer returns the peer record as a snapshot for polling clients.
func (s *Service) Peer(ctx context.Context, userID, sessionID, peerID string) (*models.Peer, error) {
	peer, ls, err := s.peerWithSession(ctx, peerID)
	if err != nil {
		return nil, err
	}
	if peer.SessionID != sessionID {
		return nil, apperr.ErrNotFound
	}
	if userID != ls.HostID && userID != peer.ViewerID {
		return nil, ErrNotParticipant
	}
	return peer, nil
}

// HandleSignal applies one client message to the peer record and returns the relay.
func (s *Service) HandleSignal(ctx context.Context, msg models.SignalMessage) ([]models.SignalMessage, error) {
	if err := validateSignal(msg); err != nil {
		return nil, err
	}
	if msg.Type == models.SignalLeave {
		return s.leave(ctx, msg)
	}

	peer, ls, err := s.peerWithSession(ctx, msg.PeerID)
	if err != nil {
		return nil, err
	}
	if msg.SessionID != "" && msg.SessionID != peer.SessionID {
		return nil, apperr.ErrNotFound
	}
	if !ls.IsActive || peer.State == models.PeerClosed {
		return nil, ErrSessionEnded
	}

	fromHost := msg.SenderID == ls.HostID
	if !fromHost && msg.SenderID != peer.ViewerID {
		return nil, ErrNotParticipant
	}
	switch {
	case msg.Type == models.SignalOffer && !fromHost:
		return nil, fmt.Errorf("%w: only the host sends offers", apperr.ErrForbidden)
	case msg.Type == models.SignalAnswer && fromHost:
		return nil, fmt.Errorf("%w: only the viewer sends answers", apperr.ErrForbidden)
	}

	var encoded string
	if msg.Type == models.SignalCandidate {
		if encoded, err = encodeCandidate(*msg.Candidate); err != nil {
			return nil, err
		}
	}

	// The transition runs against the locked row, not the snapshot read above.
	if _, err := s.Storage.UpdatePeer(ctx, peer.ID, func(p *models.Peer) error {
		return applySignal(p, msg, fromHost, encoded)
	}); err != nil {
		return nil, err
	}

	target := peer.ViewerID
	if !fromHost {
		target = ls.HostID
	}
	out := msg
	out.SessionID = ls.ID
	out.TargetID = target
	return []models.SignalMessage{out}, nil
}

// applySignal moves p through new -> offered -> answered -> connected and
// appends candidates once per side.
func applySignal(p *models.Peer, msg models.SignalMessage, fromHost bool, candidate string) error {
	if p.State == models.PeerClosed {
		return ErrSessionEnded
	}
	switch msg.Type {
	case models.SignalOffer:
		if p.State != models.PeerNew && p.State != models.PeerOffered {
			return ErrOutOfOrder
		}
		p.Offer = msg.SDP.SDP
		p.State = models.PeerOffered
	case models.SignalAnswer:
		if p.State != models.PeerOffered {
			return ErrOutOfOrder
		}
		p.Answer = msg.SDP.SDP
		p.State = models.PeerAnswered
	case models.SignalCandidate:
		side := &p.ViewerCandidates
		if fromHost {
			side = &p.HostCandidates
		}
		if slices.Contains(*side, candidate) {
			return nil
		}
		if len(*side) >= config.MaxCandidatesPerSide {
			return ErrTooManyCandidates
		}
		*side = append(*side, candidate)
	case models.SignalConnected:
		if p.State != models.PeerAnswered && p.State != models.PeerConnected {
			return ErrOutOfOrder
		}
		p.State = models.PeerConnected
	}
	return nil
}

// markClosed closes the peer row; wasOpen is false if it was already closed.
func (s *Service) markClosed(ctx context.Context, peerID string) (wasOpen bool, err error) {
	_, err = s.Storage.UpdatePeer(ctx, peerID, func(p *models.Peer) error {
		wasOpen = p.State != models.PeerClosed
		p.State = models.PeerClosed
		return nil
	})
	return wasOpen, err
}

func (s *Service) leave(ctx context.Context, msg models.SignalMessage) ([]models.SignalMessage, error) {
	if msg.PeerID == "" {
		return s.EndSession(ctx, msg.SenderID, msg.SessionID)
	}
	peer, ls, err := s.peerWithSession(ctx, msg.PeerID)
	if err != nil {
		return nil, err
	}
	switch msg.SenderID {
	case peer.ViewerID:
		return s.closePeer(ctx, peer, ls)
	case ls.HostID:
		wasOpen, err := s.markClosed(ctx, peer.ID)
		if err != nil || !wasOpen {
			return nil, err
		}
		return []models.SignalMessage{{
			Type:      models.SignalLeave,
			SessionID: ls.ID,
			PeerID:    peer.ID,
			SenderID:  ls.HostID,
			TargetID:  peer.ViewerID,
		}}, nil
	default:
		return nil, ErrNotParticipant
	}
}

func (s *Service) closePeer(ctx context.Context, peer *models.Peer, ls *models.LiveSession) ([]models.SignalMessage, error) {
	wasOpen, err := s.markClosed(ctx, peer.ID)
	if err != nil || !wasOpen {
		return nil, err
	}
	if !ls.IsActive {
		return nil, nil
	}
	return []models.SignalMessage{{
		Type:      models.SignalViewerLeft,
		SessionID: ls.ID,
		PeerID:    peer.ID,
		SenderID:  peer.ViewerID,
		TargetID:  ls.HostID,
	}}, nil
}

// EndSession stops a broadcast and tells every connected viewer.
func (s *Service) EndSession(ctx context.Context, hostID, sessionID string) ([]models.SignalMessage, error) {
	ls, err := s.Storage.GetLiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ls.HostID != hostID {
		return nil, fmt.Errorf("%w: only the host can end the session", apperr.ErrForbidden)
	}
	if !ls.IsActive {
		return nil, nil
	}

	open, err := s.Storage.ListPeers(ctx, sessionID, true)
	if err != nil {
		return nil, err
	}
	if err := s.Storage.EndLiveSession(ctx, sessionID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// Ended concurrently by another request or instance.
			return nil, nil
		}
		return nil, err
	}
	s.refreshActiveGauge(ctx)
	s.logger.Info("live session ended", zap.String("session_id", sessionID), zap.Int("viewers", len(open)))

	out := make([]models.SignalMessage, 0, len(open))
	for _, p := range open {
		out = append(out, models.SignalMessage{
			Type:      models.SignalSessionEnded,
			SessionID: sessionID,
			PeerID:    p.ID,
			SenderID:  hostID,
			TargetID:  p.ViewerID,
		})
	}
	return out, nil
}

// Disconnect runs when a user's websocket goes away: a host's broadcast ends,
// a viewer's peers close.
func (s *Service) Disconnect(ctx context.Context, userID string) []models.SignalMessage {
	var out []models.SignalMessage

	ls, err := s.Storage.GetActiveSessionForHost(ctx, userID)
	if err != nil {
		s.logger.Error("lookup hosted session", zap.String("user_id", userID), zap.Error(err))
	} else if ls != nil {
		msgs, err := s.EndSession(ctx, userID, ls.ID)
		if err != nil {
			s.logger.Error("end session on disconnect", zap.String("session_id", ls.ID), zap.Error(err))
		}
		out = append(out, msgs...)
	}

	peers, err := s.Storage.ListOpenPeersForViewer(ctx, userID)
	if err != nil {
		s.logger.Error("lookup viewer peers", zap.String("user_id", userID), zap.Error(err))
		return out
	}
	for i := range peers {
		session, err := s.Storage.GetLiveSession(ctx, peers[i].SessionID)
		if err != nil {
			s.logger.Warn("peer without session", zap.String("peer_id", peers[i].ID), zap.Error(err))
			continue
		}
		msgs, err := s.closePeer(ctx, &peers[i], session)
		if err != nil {
			s.logger.Error("close peer on disconnect", zap.String("peer_id", peers[i].ID), zap.Error(err))
			continue
		}
		out = append(out, msgs...)
	}
	return out
}

// refreshActiveGauge sets the gauge from the shared active set, so every
// instance reports the same cluster-wide number.
func (s *Service) refreshActiveGauge(ctx context.Context) {
	n, err := s.Storage.CountActiveSessions(ctx)
	if err != nil {
		s.logger.Warn("count active sessions", zap.Error(err))
		return
	}
	metrics.ActiveLiveSessions.Set(float64(n))
}

func (s *Service) openPeerOf(ctx context.Context, sessionID, viewerID string) (*models.Peer, error) {
	open, err := s.Storage.ListPeers(ctx, sessionID, true)
	if err != nil {
		return nil, err
	}
	for i := range open {
		if open[i].ViewerID == viewerID {
			return &open[i], nil
		}
	}
	return nil, ErrSessionFull
}

func (s *Service) activeSession(ctx context.Context, id string) (*models.LiveSession, error) {
	ls, err := s.Storage.GetLiveSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ls.IsActive {
		return nil, ErrSessionEnded
	}
	return ls, nil
}

func (s *Service) peerWithSession(ctx context.Context, peerID string) (*models.Peer, *models.LiveSession, error) {
	peer, err := s.Storage.GetPeer(ctx, peerID)
	if err != nil {
		return nil, nil, err
	}
	ls, err := s.Storage.GetLiveSession(ctx, peer.SessionID)
	if err != nil {
		return nil, nil, err
	}
	return peer, ls, nil
}
