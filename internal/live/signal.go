package live

import (
	"civicwatch/backend/internal/apperr"
	"civicwatch/backend/internal/models"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"
)

// ParseSignal decodes a client frame and checks that it carries what its type needs.
func ParseSignal(data []byte) (models.SignalMessage, error) {
	var msg models.SignalMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return models.SignalMessage{}, fmt.Errorf("%w: malformed signal: %v", apperr.ErrInvalid, err)
	}
	if err := validateSignal(msg); err != nil {
		return models.SignalMessage{}, err
	}
	return msg, nil
}

func validateSignal(m models.SignalMessage) error {
	switch m.Type {
	case models.SignalOffer:
		return checkSDP(m, webrtc.SDPTypeOffer)
	case models.SignalAnswer:
		return checkSDP(m, webrtc.SDPTypeAnswer)
	case models.SignalCandidate:
		if m.PeerID == "" {
			return invalid("candidate message missing peer_id")
		}
		if m.Candidate == nil || strings.TrimSpace(m.Candidate.Candidate) == "" {
			return invalid("candidate message missing candidate")
		}
		if m.SDP != nil {
			return invalid("candidate message has unexpected sdp")
		}
	case models.SignalConnected:
		if m.PeerID == "" {
			return invalid("connected message missing peer_id")
		}
	case models.SignalLeave:
		if m.PeerID == "" && m.SessionID == "" {
			return invalid("leave message needs peer_id or session_id")
		}
	case models.SignalSubscribeFeed:
	default:
		return invalid(fmt.Sprintf("unsupported message type %q", m.Type))
	}
	return nil
}

// checkSDP parses the description with pion so that garbage never reaches the other side.
func checkSDP(m models.SignalMessage, want webrtc.SDPType) error {
	if m.PeerID == "" {
		return invalid(m.Type + " message missing peer_id")
	}
	if m.SDP == nil {
		return invalid(m.Type + " message missing sdp")
	}
	if m.SDP.Type != want {
		return invalid(fmt.Sprintf("%s message has sdp.type=%q", m.Type, m.SDP.Type.String()))
	}
	if m.Candidate != nil {
		return invalid(m.Type + " message has unexpected candidate")
	}
	if _, err := m.SDP.Unmarshal(); err != nil {
		return invalid(fmt.Sprintf("%s message has malformed sdp: %v", m.Type, err))
	}
	return nil
}

// encodeCandidate gives the stable string form stored on the peer record.
func encodeCandidate(c webrtc.ICECandidateInit) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", apperr.ErrInvalid, msg)
}
