package handler

import (
	"civicwatch/backend/internal/config"
	"civicwatch/backend/internal/live"
	"civicwatch/backend/internal/models"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ICEServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ice_servers": h.Live.ICEServers()})
}

type startSessionRequest struct {
	Title       string `json:"title"`
	ComplaintID string `json:"complaint_id"`
}

func (h *Handler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badRequest(err.Error()))
		return
	}
	ls, err := h.Live.StartSession(c.Request.Context(), actorFrom(c).UserID, req.Title, req.ComplaintID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ls)
}

func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.Live.ListActive(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *Handler) GetSession(c *gin.Context) {
	ls, err := h.Live.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ls)
}

// JoinSession creates the viewer's peer; the host hears about it over the websocket.
func (h *Handler) JoinSession(c *gin.Context) {
	peer, notices, err := h.Live.JoinSession(c.Request.Context(), c.Param("id"), actorFrom(c).UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Hub.Dispatch(notices...)
	c.JSON(http.StatusOK, peer)
}

func (h *Handler) EndSession(c *gin.Context) {
	notices, err := h.Live.EndSession(c.Request.Context(), actorFrom(c).UserID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Hub.Dispatch(notices...)
	c.Status(http.StatusNoContent)
}

// GetPeer is the polling view of a peer record for clients without a websocket.
func (h *Handler) GetPeer(c *gin.Context) {
	peer, err := h.Live.Peer(c.Request.Context(), actorFrom(c).UserID, c.Param("id"), c.Param("peerId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, peer)
}

// PostSignal lets clients without a websocket write offers, answers and
// candidates. The counterpart receives them live or through GetPeer.
func (h *Handler) PostSignal(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, config.MaxSignalMessageSize+1))
	if err != nil {
		h.respondError(c, badRequest(err.Error()))
		return
	}
	if len(body) > config.MaxSignalMessageSize {
		h.respondError(c, badRequest("signal too large"))
		return
	}
	msg, err := live.ParseSignal(body)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if msg.Type == models.SignalSubscribeFeed {
		h.respondError(c, badRequest("feed subscriptions need a websocket"))
		return
	}
	msg.SessionID = c.Param("id")
	msg.SenderID = actorFrom(c).UserID
	msg.TargetID = ""

	relayed, err := h.Live.HandleSignal(c.Request.Context(), msg)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Hub.Dispatch(relayed...)
	c.JSON(http.StatusAccepted, gin.H{"relayed": len(relayed)})
}
