package complaint

import (
	"civicwatch/backend/internal/apperr"
	"civicwatch/backend/internal/config"
	"civicwatch/backend/internal/models"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// MediaInput is a media reference produced by the client's direct upload.
type MediaInput struct {
	Kind models.MediaKind `json:"kind"`
	URL  string           `json:"url"`
}

// Draft is a complaint as submitted by a citizen, possibly from the offline queue.
type Draft struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	Address     string       `json:"address"`
	Media       []MediaInput `json:"media"`
	Tags        []string     `json:"tags"`
	// ClientRef makes replays of the same offline submission idempotent.
	ClientRef string `json:"client_ref"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperr.ErrInvalid, fmt.Sprintf(format, args...))
}

// Normalize trims free-text fields in place.
func (d *Draft) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Category = strings.ToLower(strings.TrimSpace(d.Category))
	d.Address = strings.TrimSpace(d.Address)
	d.ClientRef = strings.TrimSpace(d.ClientRef)
}

// Validate checks the draft against the submission limits.
func (d *Draft) Validate() error {
	if d.Title == "" {
		return invalid("title is required")
	}
	if utf8.RuneCountInString(d.Title) > config.MaxTitleLength {
		return invalid("title longer than %d characters", config.MaxTitleLength)
	}
	if utf8.RuneCountInString(d.Description) > config.MaxDescriptionLength {
		return invalid("description longer than %d characters", config.MaxDescriptionLength)
	}
	if d.Latitude < -90 || d.Latitude > 90 {
		return invalid("latitude %v out of range", d.Latitude)
	}
	if d.Longitude < -180 || d.Longitude > 180 {
		return invalid("longitude %v out of range", d.Longitude)
	}
	if len(d.Media) > config.MaxMediaPerComplaint {
		return invalid("at most %d media items", config.MaxMediaPerComplaint)
	}
	for i, m := range d.Media {
		if !m.Kind.Valid() {
			return invalid("media[%d]: unsupported kind %q", i, m.Kind)
		}
		u, err := url.Parse(m.URL)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return invalid("media[%d]: url must be absolute http(s)", i)
		}
	}
	return nil
}

func (d *Draft) toComplaint(authorID string) *models.Complaint {
	c := &models.Complaint{
		AuthorID:    authorID,
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Latitude:    d.Latitude,
		Longitude:   d.Longitude,
		Address:     d.Address,
		Status:      models.StatusPending,
		Tags:        d.Tags,
	}
	if d.ClientRef != "" {
		ref := d.ClientRef
		c.ClientRef = &ref
	}
	for _, m := range d.Media {
		c.Media = append(c.Media, models.ComplaintMedia{Kind: m.Kind, URL: m.URL})
	}
	return c
}
