package handler

import (
	"civicwatch/backend/internal/complaint"
	"civicwatch/backend/internal/models"
	"civicwatch/backend/internal/storage"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateComplaint(c *gin.Context) {
	var d complaint.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		h.respondError(c, badRequest(err.Error()))
		return
	}
	created, err := h.Complaints.Submit(c.Request.Context(), actorFrom(c).UserID, d)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// parseFilter reads status, category, author, bbox (minLat,minLng,maxLat,maxLng),
// before (RFC3339) and limit from the query string.
func parseFilter(c *gin.Context) (storage.ComplaintFilter, error) {
	f := storage.ComplaintFilter{
		Status:   models.ComplaintStatus(c.Query("status")),
		Category: strings.ToLower(strings.TrimSpace(c.Query("category"))),
		AuthorID: c.Query("author"),
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, badRequest("unknown status")
	}
	if raw := c.Query("bbox"); raw != "" {
		box, err := parseBox(raw)
		if err != nil {
			return f, err
		}
		f.Box = box
	}
	before, err := parseBefore(c)
	if err != nil {
		return f, err
	}
	f.Before = before
	f.Limit, err = parseLimit(c)
	return f, err
}

func parseBox(raw string) (*storage.BoundingBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, badRequest("bbox must be minLat,minLng,maxLat,maxLng")
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, badRequest("bbox must be numeric")
		}
		v[i] = f
	}
	if v[0] > v[2] || v[1] > v[3] {
		return nil, badRequest("bbox min must not exceed max")
	}
	return &storage.BoundingBox{MinLat: v[0], MinLng: v[1], MaxLat: v[2], MaxLng: v[3]}, nil
}

func parseBefore(c *gin.Context) (time.Time, error) {
	raw := c.Query("before")
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, badRequest("before must be RFC3339")
	}
	return t, nil
}

func parseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("limit must be a non-negative integer")
	}
	return n, nil
}

func (h *Handler) ListComplaints(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	list, err := h.Complaints.List(c.Request.Context(), actorFrom(c), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetComplaint(c *gin.Context) {
	got, err := h.Complaints.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, got)
}

func (h *Handler) DeleteComplaint(c *gin.Context) {
	if err := h.Complaints.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type statusRequest struct {
	Status models.ComplaintStatus `json:"status"`
	Note   string                 `json:"note"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badRequest(err.Error()))
		return
	}
	updated, err := h.Complaints.UpdateStatus(c.Request.Context(), actorFrom(c), c.Param("id"), req.Status, req.Note)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) History(c *gin.Context) {
	ctx := c.Request.Context()
	// Той самий доступ, що й до самої скарги.
	if _, err := h.Complaints.Get(ctx, actorFrom(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	history, err := h.Complaints.History(ctx, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

type reportRequest struct {
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

func (h *Handler) ReportComplaint(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badRequest(err.Error()))
		return
	}
	r, err := h.Complaints.Report(c.Request.Context(), actorFrom(c).UserID, c.Param("id"), req.Reason, req.Details)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func reportID(c *gin.Context) (uint, error) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, badRequest("report id must be numeric")
	}
	return uint(n), nil
}

func (h *Handler) ConfirmReport(c *gin.Context) {
	id, err := reportID(c)
	if err == nil {
		err = h.Complaints.ConfirmReport(c.Request.Context(), actorFrom(c), id)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DismissReport(c *gin.Context) {
	id, err := reportID(c)
	if err == nil {
		err = h.Complaints.DismissReport(c.Request.Context(), actorFrom(c), id)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type syncRequest struct {
	Items []complaint.Draft `json:"items"`
}

// SyncComplaints accepts the offline queue of a device in one batch.
func (h *Handler) SyncComplaints(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badRequest(err.Error()))
		return
	}
	results, err := h.Offline.Sync(c.Request.Context(), actorFrom(c).UserID, req.Items)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) CertifyComplaint(c *gin.Context) {
	ctx := c.Request.Context()
	actor := actorFrom(c)
	got, err := h.Complaints.Get(ctx, actor, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if got.AuthorID != actor.UserID && !actor.Role.CanTriage() {
		h.respondError(c, errForbidden("only the author or an official can certify"))
		return
	}
	cert, err := h.Certify.Certify(ctx, got.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cert)
}

func (h *Handler) VerifyComplaint(c *gin.Context) {
	v, err := h.Certify.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}
