package handler

import (
	"civicwatch/backend/internal/apperr"
	"civicwatch/backend/internal/auth"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps an error kind to the HTTP status returned to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(code, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", apperr.ErrInvalid, msg)
}

func errForbidden(msg string) error {
	return fmt.Errorf("%w: %s", apperr.ErrForbidden, msg)
}
