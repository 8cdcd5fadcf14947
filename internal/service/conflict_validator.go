package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/autoescuela/scheduling-api/internal/dto"
	"github.com/autoescuela/scheduling-api/internal/models"
	appErrors "github.com/autoescuela/scheduling-api/pkg/errors"
)

type conflictAppointmentReader interface {
	FindInstructorOverlaps(ctx context.Context, instructorID string, date time.Time, start, end string) ([]models.Appointment, error)
	FindResourceOverlaps(ctx context.Context, resourceID string, date time.Time, start, end string) ([]models.Appointment, error)
	FindStudentClassOverlaps(ctx context.Context, studentID, classTypeID string, date time.Time, start, end string) ([]models.Appointment, error)
}

type conflictResourceReader interface {
	FindBlockOverlaps(ctx context.Context, resourceID string, date time.Time, start, end string) ([]models.ResourceBlock, error)
	ListAssignedToInstructor(ctx context.Context, instructorID string, resourceType models.ResourceType) ([]models.Resource, error)
	ListActiveByType(ctx context.Context, resourceType models.ResourceType) ([]models.Resource, error)
}

type conflictClassTypeReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassType, error)
}

// ValidateOptions controls which checks the validator runs.
type ValidateOptions struct {
	// SkipHorizonCheck exempts staff-created appointments from the
	// student booking window.
	SkipHorizonCheck bool
	// IgnoreAppointmentID excludes the named appointment from overlap
	// checks so reschedules do not collide with themselves.
	IgnoreAppointmentID string
}

// ConflictValidator runs the ordered mutual-exclusion checks a candidate
// appointment must pass. The checks run in a fixed order so callers see
// a deterministic first violation; the transactional insert re-runs the
// overlap checks under lock, making this a fast-fail pre-check rather
// than the authority.
type ConflictValidator struct {
	appointments conflictAppointmentReader
	resources    conflictResourceReader
	classTypes   conflictClassTypeReader
	availability *AvailabilityService
	logger       *zap.Logger
}

// NewConflictValidator constructs a ConflictValidator.
func NewConflictValidator(appointments conflictAppointmentReader, resources conflictResourceReader, classTypes conflictClassTypeReader, availability *AvailabilityService, logger *zap.Logger) *ConflictValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictValidator{
		appointments: appointments,
		resources:    resources,
		classTypes:   classTypes,
		availability: availability,
		logger:       logger,
	}
}

// Validate checks the candidate against every booking rule in order:
// well-formed interval, resource requirement, resource blocks, resource
// double-booking, instructor double-booking, duplicate class slot, and
// finally the booking horizon. The first violation is returned.
func (v *ConflictValidator) Validate(ctx context.Context, cand dto.AppointmentCandidate, opts ValidateOptions) error {
	start, err := parseClock(cand.StartTime)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be HH:MM")
	}
	end, err := parseClock(cand.EndTime)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "end_time must be HH:MM")
	}
	if end <= start {
		return appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}

	classType, err := v.classTypes.FindByID(ctx, cand.ClassTypeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown class type")
	}
	if classType.RequiresResource && cand.ResourceID == nil {
		return appErrors.ErrMissingResource
	}

	date := dateOnly(cand.Date)

	if cand.ResourceID != nil {
		blocks, err := v.resources.FindBlockOverlaps(ctx, *cand.ResourceID, date, cand.StartTime, cand.EndTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check resource blocks")
		}
		if len(blocks) > 0 {
			return appErrors.ErrResourceUnavailable
		}

		overlapping, err := v.appointments.FindResourceOverlaps(ctx, *cand.ResourceID, date, cand.StartTime, cand.EndTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check resource conflicts")
		}
		if hasOther(overlapping, opts.IgnoreAppointmentID) {
			return appErrors.ErrResourceConflict
		}
	}

	overlapping, err := v.appointments.FindInstructorOverlaps(ctx, cand.InstructorID, date, cand.StartTime, cand.EndTime)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check instructor conflicts")
	}
	if hasOther(overlapping, opts.IgnoreAppointmentID) {
		return appErrors.ErrInstructorConflict
	}

	if cand.StudentID != nil {
		overlapping, err := v.appointments.FindStudentClassOverlaps(ctx, *cand.StudentID, cand.ClassTypeID, date, cand.StartTime, cand.EndTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student conflicts")
		}
		if hasOther(overlapping, opts.IgnoreAppointmentID) {
			return appErrors.ErrDuplicateClassSlot
		}
	}

	if !opts.SkipHorizonCheck {
		from, to := v.availability.HorizonWindow()
		if date.Before(from) || date.After(to) {
			return appErrors.ErrHorizonExceeded
		}
	}

	return nil
}

// AutoAssignResource fills in a free resource for the candidate when the
// class type requires one and the caller did not choose. Students do not
// pick vehicles; the system assigns one.
func (v *ConflictValidator) AutoAssignResource(ctx context.Context, cand *dto.AppointmentCandidate) error {
	if cand.ResourceID != nil {
		return nil
	}
	classType, err := v.classTypes.FindByID(ctx, cand.ClassTypeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown class type")
	}
	if !classType.RequiresResource {
		return nil
	}
	resourceID, err := v.SelectResourceForClassType(ctx, classType, cand.InstructorID, cand.Date, cand.StartTime, cand.EndTime)
	if err != nil {
		return err
	}
	cand.ResourceID = resourceID
	return nil
}

// SelectResourceForClassType picks a free resource of the required type
// for the candidate window, preferring resources explicitly assigned to
// the instructor. Returns nil when the class type needs no resource.
func (v *ConflictValidator) SelectResourceForClassType(ctx context.Context, classType *models.ClassType, instructorID string, date time.Time, start, end string) (*string, error) {
	if !classType.RequiresResource {
		return nil, nil
	}
	if classType.ResourceType == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class type requires a resource but declares no resource type")
	}
	resourceType := models.ResourceType(*classType.ResourceType)
	day := dateOnly(date)

	assigned, err := v.resources.ListAssignedToInstructor(ctx, instructorID, resourceType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assigned resources")
	}
	if id, err := v.firstFreeResource(ctx, assigned, day, start, end); err != nil || id != nil {
		return id, err
	}

	pool, err := v.resources.ListActiveByType(ctx, resourceType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resources")
	}
	if id, err := v.firstFreeResource(ctx, pool, day, start, end); err != nil || id != nil {
		return id, err
	}

	return nil, appErrors.ErrResourceConflict
}

func (v *ConflictValidator) firstFreeResource(ctx context.Context, candidates []models.Resource, date time.Time, start, end string) (*string, error) {
	for _, res := range candidates {
		blocks, err := v.resources.FindBlockOverlaps(ctx, res.ID, date, start, end)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check resource blocks")
		}
		if len(blocks) > 0 {
			continue
		}
		held, err := v.appointments.FindResourceOverlaps(ctx, res.ID, date, start, end)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check resource conflicts")
		}
		if len(held) > 0 {
			continue
		}
		id := res.ID
		return &id, nil
	}
	return nil, nil
}

// hasOther reports whether the overlap set contains any appointment
// other than the one being rescheduled.
func hasOther(appts []models.Appointment, ignoreID string) bool {
	for _, appt := range appts {
		if ignoreID != "" && appt.ID == ignoreID {
			continue
		}
		return true
	}
	return false
}
