package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Like(c *gin.Context) {
	if err := h.Social.Like(c.Request.Context(), actorFrom(c).UserID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Unlike(c *gin.Context) {
	if err := h.Social.Unlike(c.Request.Context(), actorFrom(c).UserID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type commentRequest struct {
	Body string `json:"body"`
}

func (h *Handler) AddComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badRequest(err.Error()))
		return
	}
	comment, err := h.Social.AddComment(c.Request.Context(), actorFrom(c).UserID, c.Param("id"), req.Body)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *Handler) ListComments(c *gin.Context) {
	comments, err := h.Social.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *Handler) DeleteComment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		h.respondError(c, badRequest("comment id must be numeric"))
		return
	}
	if err := h.Social.DeleteComment(c.Request.Context(), actorFrom(c), uint(id)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Follow(c *gin.Context) {
	if err := h.Social.Follow(c.Request.Context(), actorFrom(c).UserID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Unfollow(c *gin.Context) {
	if err := h.Social.Unfollow(c.Request.Context(), actorFrom(c).UserID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Followers(c *gin.Context) {
	ids, err := h.Social.Followers(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_ids": ids})
}

func (h *Handler) Following(c *gin.Context) {
	ids, err := h.Social.Following(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_ids": ids})
}

// Feed is the personal feed; the next page starts before the last created_at.
func (h *Handler) Feed(c *gin.Context) {
	before, err := parseBefore(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	limit, err := parseLimit(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	list, err := h.Social.Feed(c.Request.Context(), actorFrom(c).UserID, before, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) PublicFeed(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	list, err := h.Social.PublicFeed(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Trending(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	list, err := h.Social.Trending(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
