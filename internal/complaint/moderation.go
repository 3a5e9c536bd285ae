package complaint

import (
	"civicwatch/backend/internal/analysis"
	"civicwatch/backend/internal/apperr"
	"civicwatch/backend/internal/config"
	"civicwatch/backend/internal/metrics"
	"civicwatch/backend/internal/models"
	"civicwatch/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	ErrSelfReport      = fmt.Errorf("%w: cannot report your own complaint", apperr.ErrInvalid)
	ErrAlreadyReported = fmt.Errorf("%w: complaint already reported by this user", apperr.ErrDuplicate)
	ErrReportLimit     = fmt.Errorf("%w: daily report limit reached", apperr.ErrForbidden)
	ErrReportClosed    = fmt.Errorf("%w: report already reviewed", apperr.ErrConflict)
)

// Report flags a complaint. The reason weight is added to the complaint's flag
// score; past the hide threshold the complaint drops out of feeds.
func (s *Service) Report(ctx context.Context, reporterID, complaintID, reason, details string) (*models.Report, error) {
	if !analysis.IsKnownReason(reason) {
		return nil, invalid("unknown report reason %q", reason)
	}

	c, err := s.Storage.GetComplaintByID(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if c.AuthorID == reporterID {
		return nil, ErrSelfReport
	}

	open, err := s.Storage.HasOpenReport(ctx, complaintID, reporterID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, ErrAlreadyReported
	}

	recent, err := s.Storage.CountReportsSince(ctx, reporterID, time.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	if recent >= config.MaxOpenReportsPerUserDay {
		return nil, ErrReportLimit
	}

	r := &models.Report{ComplaintID: complaintID, ReporterID: reporterID, Reason: reason, Details: details, Status: models.ReportNew}
	if err := s.Storage.CreateReport(ctx, r); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrAlreadyReported
		}
		return nil, err
	}
	metrics.ReportsFiled.WithLabelValues(reason).Inc()

	hidden, err := s.Storage.AdjustFlagScore(ctx, complaintID, analysis.GetWeight(reason), config.HideThresholdFlagScore)
	if err != nil {
		return nil, err
	}
	if hidden && !c.Hidden {
		s.logger.Info("complaint hidden after reports", zap.String("id", complaintID))
	}

	s.Notifier.ReportFiled(ctx, r, hidden)
	return r, nil
}

// ConfirmReport upholds a report: the complaint author loses reputation and
// the reporter gains a little.
func (s *Service) ConfirmReport(ctx context.Context, actor models.Actor, reportID uint) error {
	r, c, err := s.openReport(ctx, actor, reportID)
	if err != nil {
		return err
	}
	if err := s.closeReport(ctx, reportID, models.ReportConfirmed); err != nil {
		return err
	}
	if err := s.Storage.UpdateUserReputation(ctx, c.AuthorID, config.ConfirmedReportPenalty); err != nil {
		return err
	}
	return s.Storage.UpdateUserReputation(ctx, r.ReporterID, config.ConfirmedReportBonus)
}

// DismissReport rejects a report and removes its weight from the flag score,
// which may make the complaint visible again.
func (s *Service) DismissReport(ctx context.Context, actor models.Actor, reportID uint) error {
	r, _, err := s.openReport(ctx, actor, reportID)
	if err != nil {
		return err
	}
	if err := s.closeReport(ctx, reportID, models.ReportDismissed); err != nil {
		return err
	}
	_, err = s.Storage.AdjustFlagScore(ctx, r.ComplaintID, -analysis.GetWeight(r.Reason), config.HideThresholdFlagScore)
	return err
}

// closeReport applies the review only once; a concurrent reviewer gets ErrReportClosed.
func (s *Service) closeReport(ctx context.Context, reportID uint, status models.ReportStatus) error {
	err := s.Storage.UpdateReportStatus(ctx, reportID, status)
	if errors.Is(err, storage.ErrConflict) {
		return ErrReportClosed
	}
	return err
}

func (s *Service) openReport(ctx context.Context, actor models.Actor, reportID uint) (*models.Report, *models.Complaint, error) {
	if !actor.Role.CanTriage() {
		return nil, nil, fmt.Errorf("%w: only officials review reports", apperr.ErrForbidden)
	}
	r, err := s.Storage.GetReportByID(ctx, reportID)
	if err != nil {
		return nil, nil, err
	}
	if r.Status != models.ReportNew {
		return nil, nil, ErrReportClosed
	}
	c, err := s.Storage.GetComplaintByID(ctx, r.ComplaintID)
	if err != nil {
		return nil, nil, err
	}
	return r, c, nil
}
