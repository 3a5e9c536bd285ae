package handler

import (
	"civicwatch/backend/internal/apperr"
	"civicwatch/backend/internal/auth"
	"civicwatch/backend/internal/models"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// bearerToken reads the token from the Authorization header. Browsers cannot
// set headers on websocket upgrades, so the token query parameter is accepted too.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

// RequireAuth rejects requests without a valid token and stores the caller.
// Elevated roles are re-read from the store so a demotion takes effect
// before the token expires.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing"})
			return
		}
		actor, err := h.Tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}
		if actor.Role.CanTriage() {
			u, err := h.Users.Get(c.Request.Context(), actor.UserID)
			if errors.Is(err, apperr.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
				return
			}
			if err != nil {
				h.respondError(c, err)
				return
			}
			actor.Role = u.Role
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		return v.(models.Actor)
	}
	return models.Actor{}
}

type registerRequest struct {
	DisplayName string `json:"display_name"`
	Language    string `json:"language"`
}

// RegisterUser створює громадянина та повертає JWT
func (h *Handler) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badRequest(err.Error()))
		return
	}
	u, err := h.Users.Register(c.Request.Context(), req.DisplayName, req.Language)
	if err != nil {
		h.respondError(c, err)
		return
	}
	token, err := h.Tokens.Issue(u.ID, u.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": u, "token": token})
}

func (h *Handler) Me(c *gin.Context) {
	u, err := h.Users.Get(c.Request.Context(), actorFrom(c).UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type linkTelegramRequest struct {
	ChatID int64 `json:"chat_id"`
}

func (h *Handler) LinkTelegram(c *gin.Context) {
	var req linkTelegramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badRequest(err.Error()))
		return
	}
	u, err := h.Users.LinkTelegram(c.Request.Context(), actorFrom(c).UserID, req.ChatID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
