// Package offline accepts complaints queued on a device while it had no
// connectivity and replays submissions the database could not take.
package offline

import (
	"civicwatch/backend/internal/apperr"
	"civicwatch/backend/internal/complaint"
	"civicwatch/backend/internal/config"
	"civicwatch/backend/internal/metrics"
	"civicwatch/backend/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	ErrEmptyBatch    = fmt.Errorf("%w: nothing to sync", apperr.ErrInvalid)
	ErrBatchTooLarge = fmt.Errorf("%w: at most %d items per sync", apperr.ErrInvalid, config.MaxSyncBatch)
	ErrMissingRef    = fmt.Errorf("%w: client_ref is required for offline items", apperr.ErrInvalid)
)

// Submitter is the complaint service entry point.
type Submitter interface {
	Submit(ctx context.Context, authorID string, d complaint.Draft) (*models.Complaint, error)
}

// Queue is the Redis list holding submissions waiting for replay.
type Queue interface {
	EnqueuePending(ctx context.Context, payload []byte) error
	DequeuePending(ctx context.Context) ([]byte, error)
	PendingLen(ctx context.Context) (int64, error)
}

// Pending is one queued submission.
type Pending struct {
	AuthorID   string          `json:"author_id"`
	Draft      complaint.Draft `json:"draft"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	LastError  string          `json:"last_error,omitempty"`
}

// Result reports what happened to one synced item.
type Result struct {
	ClientRef string                 `json:"client_ref"`
	ID        string                 `json:"id,omitempty"`
	Status    models.ComplaintStatus `json:"status,omitempty"`
	Queued    bool                   `json:"queued,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

type Service struct {
	Submitter Submitter
	Queue     Queue
	Interval  time.Duration
	logger    *zap.Logger
}

func NewService(sub Submitter, q Queue, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Submitter: sub, Queue: q, Interval: config.ReplayInterval, logger: logger.Named("offline")}
}

// Sync submits a batch of offline drafts. Items are independent: one failing
// does not stop the rest, and a transient failure parks the item for replay.
func (s *Service) Sync(ctx context.Context, authorID string, drafts []complaint.Draft) ([]Result, error) {
	if len(drafts) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(drafts) > config.MaxSyncBatch {
		return nil, ErrBatchTooLarge
	}

	results := make([]Result, len(drafts))
	for i, d := range drafts {
		results[i] = s.syncOne(ctx, authorID, d)
	}
	return results, nil
}

func (s *Service) syncOne(ctx context.Context, authorID string, d complaint.Draft) Result {
	res := Result{ClientRef: d.ClientRef}
	if d.ClientRef == "" {
		res.Error = ErrMissingRef.Error()
		return res
	}

	c, err := s.Submitter.Submit(ctx, authorID, d)
	if err == nil {
		res.ID, res.Status = c.ID, c.Status
		return res
	}
	if Permanent(err) {
		res.Error = err.Error()
		return res
	}

	s.logger.Warn("submission failed, queueing for replay", zap.String("client_ref", d.ClientRef), zap.Error(err))
	if qerr := s.enqueue(ctx, Pending{AuthorID: authorID, Draft: d, EnqueuedAt: time.Now().UTC(), LastError: err.Error()}); qerr != nil {
		s.logger.Error("enqueue pending submission", zap.String("client_ref", d.ClientRef), zap.Error(qerr))
		res.Error = err.Error()
		return res
	}
	res.Queued = true
	return res
}

// Permanent reports whether retrying err can never succeed.
func Permanent(err error) bool {
	for _, kind := range []error{apperr.ErrInvalid, apperr.ErrForbidden, apperr.ErrNotFound, apperr.ErrConflict, apperr.ErrDuplicate} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func (s *Service) enqueue(ctx context.Context, p Pending) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.Queue.EnqueuePending(ctx, payload)
}

// Run replays the queue every Interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.logger.Info("replayer started", zap.Duration("interval", s.Interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("replayer stopped")
			return
		case <-ticker.C:
			if _, err := s.Replay(ctx); err != nil {
				s.logger.Error("replay tick", zap.Error(err))
			}
		}
	}
}

// ReplayStats counts the outcomes of one Replay pass.
type ReplayStats struct {
	Replayed int
	Requeued int
	Rejected int
	Dropped  int
}

// Replay drains up to ReplayBatchPerTick items. Items that fail again go back
// to the tail after the pass, so one pass never retries the same item twice.
func (s *Service) Replay(ctx context.Context) (ReplayStats, error) {
	var (
		stats   ReplayStats
		requeue []Pending
	)

	for i := 0; i < config.ReplayBatchPerTick; i++ {
		payload, err := s.Queue.DequeuePending(ctx)
		if err != nil {
			return stats, err
		}
		if payload == nil {
			break
		}

		var p Pending
		if err := json.Unmarshal(payload, &p); err != nil {
			s.logger.Error("drop corrupt queue item", zap.Error(err))
			stats.Dropped++
			metrics.ReplayOutcomes.WithLabelValues("corrupt").Inc()
			continue
		}

		_, err = s.Submitter.Submit(ctx, p.AuthorID, p.Draft)
		switch {
		case err == nil:
			stats.Replayed++
			metrics.ReplayOutcomes.WithLabelValues("replayed").Inc()
		case Permanent(err):
			stats.Rejected++
			metrics.ReplayOutcomes.WithLabelValues("rejected").Inc()
			s.logger.Warn("queued submission rejected", zap.String("client_ref", p.Draft.ClientRef), zap.Error(err))
		default:
			p.Attempts++
			p.LastError = err.Error()
			if p.Attempts >= config.MaxReplayAttempts {
				stats.Dropped++
				metrics.ReplayOutcomes.WithLabelValues("dropped").Inc()
				s.logger.Error("giving up on queued submission",
					zap.String("client_ref", p.Draft.ClientRef), zap.Int("attempts", p.Attempts), zap.Error(err))
				continue
			}
			requeue = append(requeue, p)
		}
	}

	for _, p := range requeue {
		if err := s.enqueue(ctx, p); err != nil {
			s.logger.Error("requeue submission", zap.String("client_ref", p.Draft.ClientRef), zap.Error(err))
			stats.Dropped++
			continue
		}
		stats.Requeued++
		metrics.ReplayOutcomes.WithLabelValues("requeued").Inc()
	}

	if n, err := s.Queue.PendingLen(ctx); err == nil {
		metrics.PendingReplayQueue.Set(float64(n))
	}
	return stats, nil
}
