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

type scheduleRepository interface {
	ListActiveByInstructor(ctx context.Context, instructorID string) ([]models.WeeklySchedule, error)
	FindByID(ctx context.Context, id string) (*models.WeeklySchedule, error)
	Create(ctx context.Context, row *models.WeeklySchedule) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	ListOverrides(ctx context.Context, instructorID string, from, to time.Time) ([]models.ScheduleOverride, error)
	CreateOverride(ctx context.Context, row *models.ScheduleOverride) error
}

// ScheduleService manages instructor weekly schedules and one-off
// overrides. Every mutation invalidates the cached availability for the
// affected instructor.
type ScheduleService struct {
	schedules scheduleRepository
	cache     availabilityInvalidator
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(schedules scheduleRepository, cache availabilityInvalidator, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{schedules: schedules, cache: cache, validate: validate, logger: logger}
}

// ListForInstructor returns the instructor's active weekly rows.
func (s *ScheduleService) ListForInstructor(ctx context.Context, instructorID string) ([]models.WeeklySchedule, error) {
	rows, err := s.schedules.ListActiveByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return rows, nil
}

// CreateWeekly validates and inserts a recurring availability row.
func (s *ScheduleService) CreateWeekly(ctx context.Context, req dto.CreateWeeklyScheduleRequest) (*models.WeeklySchedule, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if err := validateWindow(req.StartTime, req.EndTime, req.SlotMinutes); err != nil {
		return nil, err
	}

	row := &models.WeeklySchedule{
		InstructorID: req.InstructorID,
		DayOfWeek:    req.DayOfWeek,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		SlotMinutes:  req.SlotMinutes,
		ClassTypeID:  req.ClassTypeID,
		Active:       true,
	}
	if err := s.assertNoWeeklyOverlap(ctx, row, ""); err != nil {
		return nil, err
	}
	if err := s.schedules.Create(ctx, row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}

	s.invalidate(ctx, req.InstructorID)
	return row, nil
}

// SetActive soft-toggles a weekly row. Deactivating a row stops future
// slot generation; existing appointments are untouched.
func (s *ScheduleService) SetActive(ctx context.Context, id string, active bool) error {
	row, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch schedule")
	}
	if active {
		if err := s.assertNoWeeklyOverlap(ctx, row, row.ID); err != nil {
			return err
		}
	}
	if err := s.schedules.SetActive(ctx, id, active); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle schedule")
	}
	s.invalidate(ctx, row.InstructorID)
	return nil
}

// DeleteWeekly removes a weekly row.
func (s *ScheduleService) DeleteWeekly(ctx context.Context, id string) error {
	row, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch schedule")
	}
	if err := s.schedules.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	s.invalidate(ctx, row.InstructorID)
	return nil
}

// CreateOverride validates and inserts a one-off exception. A blocking
// override needs no slot granularity; an additive one does.
func (s *ScheduleService) CreateOverride(ctx context.Context, req dto.CreateScheduleOverrideRequest) (*models.ScheduleOverride, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload")
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	slotMinutes := req.SlotMinutes
	if req.Available {
		if err := validateWindow(req.StartTime, req.EndTime, slotMinutes); err != nil {
			return nil, err
		}
	} else {
		if err := validateWindow(req.StartTime, req.EndTime, 0); err != nil {
			return nil, err
		}
	}

	row := &models.ScheduleOverride{
		InstructorID: req.InstructorID,
		Date:         dateOnly(date),
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		SlotMinutes:  slotMinutes,
		Available:    req.Available,
	}
	if err := s.schedules.CreateOverride(ctx, row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create override")
	}

	s.invalidate(ctx, req.InstructorID)
	return row, nil
}

// assertNoWeeklyOverlap rejects a window that intersects another
// active row for the same instructor and day of week. Half-open
// semantics apply, so back-to-back rows are fine.
func (s *ScheduleService) assertNoWeeklyOverlap(ctx context.Context, row *models.WeeklySchedule, excludeID string) error {
	start, err := parseClock(row.StartTime)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be HH:MM")
	}
	end, err := parseClock(row.EndTime)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "end_time must be HH:MM")
	}

	existing, err := s.schedules.ListActiveByInstructor(ctx, row.InstructorID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	for _, other := range existing {
		if other.ID == excludeID || other.DayOfWeek != row.DayOfWeek {
			continue
		}
		otherStart, err := parseClock(other.StartTime)
		if err != nil {
			continue
		}
		otherEnd, err := parseClock(other.EndTime)
		if err != nil {
			continue
		}
		if overlaps(start, end, otherStart, otherEnd) {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("window overlaps active schedule %s (%s-%s)", other.ID, other.StartTime, other.EndTime))
		}
	}
	return nil
}

func (s *ScheduleService) invalidate(ctx context.Context, instructorID string) {
	if s.cache == nil {
		return
	}
	pattern := fmt.Sprintf("availability:%s:*", instructorID)
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("failed to invalidate availability cache",
			zap.String("instructor_id", instructorID), zap.Error(err))
	}
}

// validateWindow checks a HH:MM window and, when slotMinutes is
// non-zero, the slot granularity.
func validateWindow(start, end string, slotMinutes int) error {
	s, err := parseClock(start)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be HH:MM")
	}
	e, err := parseClock(end)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "end_time must be HH:MM")
	}
	if e <= s {
		return appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	if slotMinutes != 0 && !models.ValidSlotMinutes(slotMinutes) {
		return appErrors.Clone(appErrors.ErrValidation, "slot_minutes must be one of 15, 30, 60, 120")
	}
	return nil
}
