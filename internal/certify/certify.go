// Package certify fingerprints complaint metadata so that later edits can be
// detected. The hash is what a client anchors on a chain; anchoring itself
// happens outside the service.
package certify

import (
	"civicwatch/backend/internal/models"
	"civicwatch/backend/internal/storage"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const Algorithm = "sha256"

type Store interface {
	GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error)
	SaveCertificate(ctx context.Context, c *models.Certificate) error
	GetCertificate(ctx context.Context, complaintID string) (*models.Certificate, error)
}

// Verification compares the stored fingerprint with the current metadata.
type Verification struct {
	ComplaintID string `json:"complaint_id"`
	Valid       bool   `json:"valid"`
	Stored      string `json:"stored"`
	Computed    string `json:"computed"`
}

type Service struct {
	Storage Store
	logger  *zap.Logger
}

func NewService(s Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Storage: s, logger: logger.Named("certify")}
}

// canonical is the hashed form. Field order is fixed by the struct.
type canonical struct {
	ID          string   `json:"id"`
	AuthorID    string   `json:"author_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Latitude    string   `json:"latitude"`
	Longitude   string   `json:"longitude"`
	CreatedAt   string   `json:"created_at"`
	Media       []string `json:"media"`
}

// Fingerprint returns the hex SHA-256 of the complaint's canonical metadata.
// Status, counters and moderation fields are not part of it.
func Fingerprint(c *models.Complaint) string {
	media := make([]string, 0, len(c.Media))
	for _, m := range c.Media {
		media = append(media, m.URL)
	}
	sort.Strings(media)

	doc := canonical{
		ID:          c.ID,
		AuthorID:    c.AuthorID,
		Title:       c.Title,
		Description: c.Description,
		Category:    c.Category,
		Latitude:    strconv.FormatFloat(c.Latitude, 'f', 6, 64),
		Longitude:   strconv.FormatFloat(c.Longitude, 'f', 6, 64),
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
		Media:       media,
	}
	// Marshal of this struct cannot fail.
	b, _ := json.Marshal(doc)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Certify stores the fingerprint once. Later calls return the first certificate.
func (s *Service) Certify(ctx context.Context, complaintID string) (*models.Certificate, error) {
	existing, err := s.Storage.GetCertificate(ctx, complaintID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	c, err := s.Storage.GetComplaintByID(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	cert := &models.Certificate{
		ComplaintID: c.ID,
		Algorithm:   Algorithm,
		Hash:        Fingerprint(c),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Storage.SaveCertificate(ctx, cert); err != nil {
		return nil, err
	}
	s.logger.Info("complaint certified", zap.String("complaint_id", c.ID), zap.String("hash", cert.Hash))
	// A concurrent Certify may have won; the stored row is authoritative.
	return s.Storage.GetCertificate(ctx, c.ID)
}

// Verify recomputes the fingerprint and compares it with the stored one.
func (s *Service) Verify(ctx context.Context, complaintID string) (*Verification, error) {
	cert, err := s.Storage.GetCertificate(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	c, err := s.Storage.GetComplaintByID(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	computed := Fingerprint(c)
	return &Verification{
		ComplaintID: complaintID,
		Valid:       computed == cert.Hash,
		Stored:      cert.Hash,
		Computed:    computed,
	}, nil
}
