package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/autoescuela/scheduling-api/internal/dto"
	"github.com/autoescuela/scheduling-api/internal/models"
	appErrors "github.com/autoescuela/scheduling-api/pkg/errors"
)

type appointmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
	CreateChecked(ctx context.Context, appt *models.Appointment) error
	Update(ctx context.Context, appt *models.Appointment) error
	UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error
	Delete(ctx context.Context, id string) error
}

type attendanceRepository interface {
	Create(ctx context.Context, record *models.Attendance) error
}

type availabilityInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateOptions distinguishes the staff path from the student booking
// path.
type CreateOptions struct {
	// FromStudentPath applies the debt/no-show gate and the booking
	// horizon.
	FromStudentPath bool
}

// AppointmentService owns the appointment lifecycle: creation through
// the ordered conflict checks, partial updates with re-validation,
// status transitions, and attendance.
type AppointmentService struct {
	appointments appointmentRepository
	attendance   attendanceRepository
	validator    *ConflictValidator
	penalties    *PenaltyService
	settings     *SettingsService
	cache        availabilityInvalidator
	validate     *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewAppointmentService constructs an AppointmentService.
func NewAppointmentService(
	appointments appointmentRepository,
	attendance attendanceRepository,
	conflicts *ConflictValidator,
	penalties *PenaltyService,
	settings *SettingsService,
	cache availabilityInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
	now func() time.Time,
) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &AppointmentService{
		appointments: appointments,
		attendance:   attendance,
		validator:    conflicts,
		penalties:    penalties,
		settings:     settings,
		cache:        cache,
		validate:     validate,
		logger:       logger,
		now:          now,
	}
}

// Get fetches a single appointment.
func (s *AppointmentService) Get(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch appointment")
	}
	return appt, nil
}

// List returns appointments matching the filter plus the total count.
func (s *AppointmentService) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	appts, total, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return appts, total, nil
}

// Create validates the candidate and inserts it. The student path runs
// the debt/no-show gate first and cannot skip the booking horizon.
func (s *AppointmentService) Create(ctx context.Context, cand dto.AppointmentCandidate, opts CreateOptions) (*models.Appointment, error) {
	if err := s.validate.Struct(cand); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}

	if opts.FromStudentPath {
		if cand.StudentID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student booking requires a student")
		}
		if err := s.penalties.AssertCanBook(ctx, *cand.StudentID); err != nil {
			return nil, err
		}
		if err := s.validator.AutoAssignResource(ctx, &cand); err != nil {
			return nil, err
		}
	}

	if err := s.validator.Validate(ctx, cand, ValidateOptions{SkipHorizonCheck: !opts.FromStudentPath}); err != nil {
		return nil, err
	}

	appt := &models.Appointment{
		InstructorID: cand.InstructorID,
		StudentID:    cand.StudentID,
		ClassTypeID:  cand.ClassTypeID,
		ResourceID:   cand.ResourceID,
		Date:         dateOnly(cand.Date),
		StartTime:    cand.StartTime,
		EndTime:      cand.EndTime,
		Status:       models.AppointmentScheduled,
	}
	if err := s.appointments.CreateChecked(ctx, appt); err != nil {
		if appErrors.IsViolation(err) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment")
	}

	s.invalidateAvailability(ctx, appt.InstructorID)
	s.logger.Info("appointment created",
		zap.String("appointment_id", appt.ID),
		zap.String("instructor_id", appt.InstructorID),
		zap.Time("date", appt.Date),
		zap.String("start_time", appt.StartTime))
	return appt, nil
}

// Update applies a partial update. Completed appointments are immutable;
// schedule-touching changes re-run the full conflict validation with the
// appointment excluded from its own overlap checks.
func (s *AppointmentService) Update(ctx context.Context, id string, patch models.AppointmentPatch) (*models.Appointment, error) {
	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == models.AppointmentCompleted {
		return nil, appErrors.ErrAppointmentFinal
	}

	prevInstructor := appt.InstructorID
	applyPatch(appt, patch)

	if patch.TouchesSchedule() || patch.TouchesResource() {
		cand := dto.AppointmentCandidate{
			InstructorID: appt.InstructorID,
			StudentID:    appt.StudentID,
			ClassTypeID:  appt.ClassTypeID,
			ResourceID:   appt.ResourceID,
			Date:         appt.Date,
			StartTime:    appt.StartTime,
			EndTime:      appt.EndTime,
		}
		opts := ValidateOptions{SkipHorizonCheck: true, IgnoreAppointmentID: appt.ID}
		if err := s.validator.Validate(ctx, cand, opts); err != nil {
			return nil, err
		}
	}

	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment")
	}

	s.invalidateAvailability(ctx, appt.InstructorID)
	if prevInstructor != appt.InstructorID {
		s.invalidateAvailability(ctx, prevInstructor)
	}
	return appt, nil
}

// SetStatus transitions the appointment through the lifecycle. A
// cancellation inside the late window is either rejected or allowed with
// a penalty, depending on the cancellation rules.
func (s *AppointmentService) SetStatus(ctx context.Context, id string, next models.AppointmentStatus) (*models.Appointment, error) {
	if !next.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", next))
	}

	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.Status.CanTransitionTo(next) {
		if appt.Status.Terminal() {
			return nil, appErrors.ErrAppointmentFinal
		}
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("cannot transition from %s to %s", appt.Status, next))
	}

	var lateRules *CancellationSettings
	if next == models.AppointmentCancelled {
		late, rules, err := s.penalties.IsLateCancellation(ctx, appt)
		if err != nil {
			return nil, err
		}
		if late {
			if !rules.AllowAfterLimit {
				return nil, appErrors.ErrCancellationTooLate
			}
			lateRules = &rules
		}
	}

	if err := s.appointments.UpdateStatus(ctx, id, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment status")
	}
	appt.Status = next

	if lateRules != nil {
		s.penalties.RecordLateCancellation(ctx, appt, *lateRules)
	}
	if next == models.AppointmentCancelled {
		s.invalidateAvailability(ctx, appt.InstructorID)
	}

	s.logger.Info("appointment status changed",
		zap.String("appointment_id", appt.ID),
		zap.String("status", string(next)))
	return appt, nil
}

// Delete removes an appointment outright. Staff only; students cancel
// instead.
func (s *AppointmentService) Delete(ctx context.Context, id string) error {
	appt, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if appt.Status == models.AppointmentCompleted {
		return appErrors.ErrAppointmentFinal
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete appointment")
	}
	s.invalidateAvailability(ctx, appt.InstructorID)
	return nil
}

// MarkAttendance records whether the student showed up for a completed
// class. An absence feeds the no-show count and may charge a penalty;
// a late arrival beyond the tolerance is flagged on the record.
func (s *AppointmentService) MarkAttendance(ctx context.Context, appointmentID string, req dto.MarkAttendanceRequest) (*models.Attendance, error) {
	appt, err := s.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.StudentID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "appointment has no student")
	}
	if appt.Status == models.AppointmentCancelled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot mark attendance on a cancelled appointment")
	}

	rules := s.settings.Attendance(ctx)

	record := &models.Attendance{
		AppointmentID: appt.ID,
		StudentID:     *appt.StudentID,
		Attended:      req.Attended,
		Notes:         req.Notes,
	}
	if req.Attended && req.ArrivedAt != nil {
		arrivedMin, err := parseClock(*req.ArrivedAt)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "arrived_at must be HH:MM")
		}
		startMin, err := parseClock(appt.StartTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "appointment start_time is malformed")
		}
		arrived := startAt(appt.Date, arrivedMin)
		record.ArrivedAt = &arrived
		record.Late = arrivedMin > startMin+rules.ToleranceMinutes
	}

	if err := s.attendance.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	if !req.Attended {
		s.penalties.RecordNoShow(ctx, appt, rules)
	}

	return record, nil
}

func (s *AppointmentService) invalidateAvailability(ctx context.Context, instructorID string) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("availability:%s:*", instructorID)
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("failed to invalidate availability cache",
			zap.String("instructor_id", instructorID), zap.Error(err))
	}
}

func applyPatch(appt *models.Appointment, patch models.AppointmentPatch) {
	if patch.InstructorID != nil {
		appt.InstructorID = *patch.InstructorID
	}
	if patch.StudentID != nil {
		appt.StudentID = patch.StudentID
	}
	if patch.ClassTypeID != nil {
		appt.ClassTypeID = *patch.ClassTypeID
	}
	if patch.ResourceID != nil {
		appt.ResourceID = patch.ResourceID
	}
	if patch.Date != nil {
		appt.Date = dateOnly(*patch.Date)
	}
	if patch.StartTime != nil {
		appt.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		appt.EndTime = *patch.EndTime
	}
}
