// Package handler exposes the services over HTTP (gin) and websocket.
package handler

import (
	"civicwatch/backend/internal/auth"
	"civicwatch/backend/internal/certify"
	"civicwatch/backend/internal/complaint"
	"civicwatch/backend/internal/live"
	"civicwatch/backend/internal/offline"
	"civicwatch/backend/internal/social"
	"civicwatch/backend/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler містить посилання на сервіси
type Handler struct {
	Tokens     *auth.Tokens
	Users      *users.Service
	Complaints *complaint.Service
	Social     *social.Service
	Live       *live.Service
	Hub        *live.Hub
	Offline    *offline.Service
	Certify    *certify.Service
	Logger     *zap.Logger
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// Routes registers every endpoint on r.
func (h *Handler) Routes(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/users", h.RegisterUser)
	r.GET("/live/ice-servers", h.ICEServers)
	r.GET("/ws/live", h.ServeWebSocket)

	api := r.Group("/", h.RequireAuth())

	api.GET("/me", h.Me)
	api.POST("/me/telegram", h.LinkTelegram)

	api.POST("/complaints", h.CreateComplaint)
	api.GET("/complaints", h.ListComplaints)
	api.POST("/complaints/sync", h.SyncComplaints)
	api.GET("/complaints/:id", h.GetComplaint)
	api.DELETE("/complaints/:id", h.DeleteComplaint)
	api.PATCH("/complaints/:id/status", h.UpdateStatus)
	api.GET("/complaints/:id/history", h.History)
	api.POST("/complaints/:id/reports", h.ReportComplaint)
	api.POST("/complaints/:id/certificate", h.CertifyComplaint)
	api.GET("/complaints/:id/certificate/verify", h.VerifyComplaint)

	api.POST("/reports/:id/confirm", h.ConfirmReport)
	api.POST("/reports/:id/dismiss", h.DismissReport)

	api.POST("/complaints/:id/like", h.Like)
	api.DELETE("/complaints/:id/like", h.Unlike)
	api.GET("/complaints/:id/comments", h.ListComments)
	api.POST("/complaints/:id/comments", h.AddComment)
	api.DELETE("/comments/:id", h.DeleteComment)

	api.POST("/users/:id/follow", h.Follow)
	api.DELETE("/users/:id/follow", h.Unfollow)
	api.GET("/users/:id/followers", h.Followers)
	api.GET("/users/:id/following", h.Following)

	api.GET("/feed", h.Feed)
	api.GET("/feed/public", h.PublicFeed)
	api.GET("/feed/trending", h.Trending)

	api.POST("/live/sessions", h.StartSession)
	api.GET("/live/sessions", h.ListSessions)
	api.GET("/live/sessions/:id", h.GetSession)
	api.POST("/live/sessions/:id/join", h.JoinSession)
	api.DELETE("/live/sessions/:id", h.EndSession)
	api.GET("/live/sessions/:id/peers/:peerId", h.GetPeer)
	api.POST("/live/sessions/:id/signal", h.PostSignal)
}
