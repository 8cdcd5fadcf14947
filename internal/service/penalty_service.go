package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/autoescuela/scheduling-api/internal/dto"
	"github.com/autoescuela/scheduling-api/internal/models"
	appErrors "github.com/autoescuela/scheduling-api/pkg/errors"
)

type penaltyRepository interface {
	Create(ctx context.Context, penalty *models.Penalty) error
	ListByUser(ctx context.Context, userID string) ([]models.Penalty, error)
	SumUnpaidByUser(ctx context.Context, userID string) (int64, int, error)
	MarkPaid(ctx context.Context, id string, paidAt time.Time) error
}

type noShowCounter interface {
	CountNoShows(ctx context.Context, studentID string) (int, error)
}

// PenaltyService applies late-cancellation and no-show penalties and
// gates student bookings on outstanding debt.
type PenaltyService struct {
	penalties  penaltyRepository
	attendance noShowCounter
	settings   *SettingsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewPenaltyService constructs a PenaltyService.
func NewPenaltyService(penalties penaltyRepository, attendance noShowCounter, settings *SettingsService, logger *zap.Logger, now func() time.Time) *PenaltyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &PenaltyService{
		penalties:  penalties,
		attendance: attendance,
		settings:   settings,
		logger:     logger,
		now:        now,
	}
}

// IsLateCancellation reports whether cancelling the appointment now
// falls inside the late window. The comparison is strict: cancelling
// exactly at the limit is still on time.
func (s *PenaltyService) IsLateCancellation(ctx context.Context, appt *models.Appointment) (bool, CancellationSettings, error) {
	rules := s.settings.Cancellation(ctx)
	startMin, err := parseClock(appt.StartTime)
	if err != nil {
		return false, rules, appErrors.Clone(appErrors.ErrValidation, "appointment start_time is malformed")
	}
	classStart := startAt(appt.Date, startMin)
	hoursUntil := classStart.Sub(s.now()).Hours()
	return hoursUntil < float64(rules.HoursLimit), rules, nil
}

// RecordLateCancellation charges the late-cancellation penalty when the
// rule is enabled. The cancellation itself already happened; a failed
// charge is logged but never undoes it.
func (s *PenaltyService) RecordLateCancellation(ctx context.Context, appt *models.Appointment, rules CancellationSettings) {
	if !rules.LatePenaltyEnabled || appt.StudentID == nil {
		return
	}
	penalty := &models.Penalty{
		UserID:        *appt.StudentID,
		AppointmentID: &appt.ID,
		Amount:        rules.LatePenaltyAmount,
		Reason:        models.PenaltyReasonLateCancellation,
	}
	if err := s.penalties.Create(ctx, penalty); err != nil {
		s.logger.Error("failed to record late cancellation penalty",
			zap.String("appointment_id", appt.ID),
			zap.String("student_id", *appt.StudentID),
			zap.Error(err))
		return
	}
	s.logger.Info("late cancellation penalty recorded",
		zap.String("appointment_id", appt.ID),
		zap.String("student_id", *appt.StudentID),
		zap.Int64("amount", penalty.Amount))
}

// RecordNoShow charges the no-show penalty when the rule is enabled.
func (s *PenaltyService) RecordNoShow(ctx context.Context, appt *models.Appointment, rules AttendanceSettings) {
	if !rules.NoShowPenaltyEnabled || !rules.AbsentCountsAsNoShow || appt.StudentID == nil {
		return
	}
	penalty := &models.Penalty{
		UserID:        *appt.StudentID,
		AppointmentID: &appt.ID,
		Amount:        rules.NoShowPenaltyAmount,
		Reason:        models.PenaltyReasonNoShow,
	}
	if err := s.penalties.Create(ctx, penalty); err != nil {
		s.logger.Error("failed to record no-show penalty",
			zap.String("appointment_id", appt.ID),
			zap.String("student_id", *appt.StudentID),
			zap.Error(err))
		return
	}
	s.logger.Info("no-show penalty recorded",
		zap.String("appointment_id", appt.ID),
		zap.String("student_id", *appt.StudentID),
		zap.Int64("amount", penalty.Amount))
}

// AssertCanBook enforces the booking gate for the student path: any
// outstanding debt or a no-show count at or over the limit blocks the
// booking with a typed error.
func (s *PenaltyService) AssertCanBook(ctx context.Context, studentID string) error {
	debt, _, err := s.penalties.SumUnpaidByUser(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student debt")
	}
	if debt > 0 {
		return appErrors.ErrPendingDebt
	}

	rules := s.settings.Attendance(ctx)
	noShows, err := s.attendance.CountNoShows(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count no-shows")
	}
	if rules.NoShowLimit > 0 && noShows >= rules.NoShowLimit {
		return appErrors.ErrNoShowLimit
	}

	return nil
}

// CanStudentBook answers the advisory eligibility question without
// failing the request.
func (s *PenaltyService) CanStudentBook(ctx context.Context, studentID string) (dto.BookingEligibility, error) {
	err := s.AssertCanBook(ctx, studentID)
	switch {
	case err == nil:
		return dto.BookingEligibility{CanBook: true}, nil
	case appErrors.IsViolation(err):
		return dto.BookingEligibility{CanBook: false, Reason: eligibilityReason(appErrors.FromError(err))}, nil
	default:
		return dto.BookingEligibility{}, err
	}
}

// eligibilityReason maps booking-gate violations to the short reason
// labels the eligibility endpoint reports.
func eligibilityReason(err *appErrors.Error) string {
	switch err.Code {
	case appErrors.ErrPendingDebt.Code:
		return "pending debt"
	case appErrors.ErrNoShowLimit.Code:
		return "no-show limit exceeded"
	}
	return err.Message
}

// GetStudentDebt aggregates a student's outstanding penalties.
func (s *PenaltyService) GetStudentDebt(ctx context.Context, studentID string) (dto.StudentDebtSummary, error) {
	total, count, err := s.penalties.SumUnpaidByUser(ctx, studentID)
	if err != nil {
		return dto.StudentDebtSummary{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum student debt")
	}
	return dto.StudentDebtSummary{
		TotalDebt:        total,
		OutstandingFines: count,
	}, nil
}

// ListPenalties returns a user's penalty history, newest first.
func (s *PenaltyService) ListPenalties(ctx context.Context, userID string) ([]models.Penalty, error) {
	penalties, err := s.penalties.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list penalties")
	}
	return penalties, nil
}

// SettlePenalty marks a penalty as paid.
func (s *PenaltyService) SettlePenalty(ctx context.Context, penaltyID string) error {
	if err := s.penalties.MarkPaid(ctx, penaltyID, s.now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to settle penalty")
	}
	return nil
}
