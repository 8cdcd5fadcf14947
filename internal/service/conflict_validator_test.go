package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoescuela/scheduling-api/internal/dto"
	"github.com/autoescuela/scheduling-api/internal/models"
	appErrors "github.com/autoescuela/scheduling-api/pkg/errors"
)

type conflictApptStub struct {
	instructorOverlaps []models.Appointment
	resourceOverlaps   []models.Appointment
	studentOverlaps    []models.Appointment
}

func (s *conflictApptStub) FindInstructorOverlaps(ctx context.Context, instructorID string, date time.Time, start, end string) ([]models.Appointment, error) {
	return overlapping(s.instructorOverlaps, start, end), nil
}

func (s *conflictApptStub) FindResourceOverlaps(ctx context.Context, resourceID string, date time.Time, start, end string) ([]models.Appointment, error) {
	return overlapping(s.resourceOverlaps, start, end), nil
}

func (s *conflictApptStub) FindStudentClassOverlaps(ctx context.Context, studentID, classTypeID string, date time.Time, start, end string) ([]models.Appointment, error) {
	var matching []models.Appointment
	for _, appt := range s.studentOverlaps {
		if appt.ClassTypeID == classTypeID {
			matching = append(matching, appt)
		}
	}
	return overlapping(matching, start, end), nil
}

// overlapping mimics the repository's half-open interval filter.
func overlapping(appts []models.Appointment, start, end string) []models.Appointment {
	var out []models.Appointment
	for _, appt := range appts {
		if appt.StartTime < end && appt.EndTime > start {
			out = append(out, appt)
		}
	}
	return out
}

type conflictResourceStub struct {
	blocks   []models.ResourceBlock
	assigned []models.Resource
	active   []models.Resource
}

func (s *conflictResourceStub) FindBlockOverlaps(ctx context.Context, resourceID string, date time.Time, start, end string) ([]models.ResourceBlock, error) {
	var out []models.ResourceBlock
	for _, block := range s.blocks {
		if block.ResourceID == resourceID && block.StartTime < end && block.EndTime > start {
			out = append(out, block)
		}
	}
	return out, nil
}

func (s *conflictResourceStub) ListAssignedToInstructor(ctx context.Context, instructorID string, resourceType models.ResourceType) ([]models.Resource, error) {
	return s.assigned, nil
}

func (s *conflictResourceStub) ListActiveByType(ctx context.Context, resourceType models.ResourceType) ([]models.Resource, error) {
	return s.active, nil
}

type classTypeStub struct {
	types map[string]*models.ClassType
}

func (s *classTypeStub) FindByID(ctx context.Context, id string) (*models.ClassType, error) {
	if ct, ok := s.types[id]; ok {
		return ct, nil
	}
	return nil, assert.AnError
}

func vehicleType() *string {
	v := string(models.ResourceVehicle)
	return &v
}

func defaultClassTypes() *classTypeStub {
	return &classTypeStub{types: map[string]*models.ClassType{
		"ct-theory":    {ID: "ct-theory", Name: "Theory", RequiresResource: false},
		"ct-practical": {ID: "ct-practical", Name: "Practical", RequiresResource: true, ResourceType: vehicleType()},
	}}
}

func newTestValidator(appts *conflictApptStub, resources *conflictResourceStub, classTypes *classTypeStub) *ConflictValidator {
	clock := func() time.Time { return time.Date(2026, 9, 6, 8, 0, 0, 0, time.UTC) }
	availability := NewAvailabilityService(&scheduleReaderStub{}, &appointmentReaderStub{}, nil, AvailabilityServiceConfig{Now: clock})
	return NewConflictValidator(appts, resources, classTypes, availability, nil)
}

func candidate() dto.AppointmentCandidate {
	student := "stu-1"
	resource := "veh-1"
	return dto.AppointmentCandidate{
		InstructorID: "inst-1",
		StudentID:    &student,
		ClassTypeID:  "ct-practical",
		ResourceID:   &resource,
		Date:         testMonday,
		StartTime:    "09:00",
		EndTime:      "10:00",
	}
}

func TestValidateRejectsMalformedInterval(t *testing.T) {
	v := newTestValidator(&conflictApptStub{}, &conflictResourceStub{}, defaultClassTypes())

	cand := candidate()
	cand.EndTime = "09:00"
	err := v.Validate(context.Background(), cand, ValidateOptions{SkipHorizonCheck: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	cand = candidate()
	cand.StartTime = "late"
	err = v.Validate(context.Background(), cand, ValidateOptions{SkipHorizonCheck: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestValidateRequiresResourceForPracticalClass(t *testing.T) {
	v := newTestValidator(&conflictApptStub{}, &conflictResourceStub{}, defaultClassTypes())

	cand := candidate()
	cand.ResourceID = nil
	err := v.Validate(context.Background(), cand, ValidateOptions{SkipHorizonCheck: true})
	assert.ErrorIs(t, err, appErrors.ErrMissingResource)

	// Theory classes carry no resource and pass.
	cand = candidate()
	cand.ClassTypeID = "ct-theory"
	cand.ResourceID = nil
	assert.NoError(t, v.Validate(context.Background(), cand, ValidateOptions{SkipHorizonCheck: true}))
}

func TestValidateRejectsBlockedResource(t *testing.T) {
	resources := &conflictResourceStub{blocks: []models.ResourceBlock{{
		ID:         "blk-1",
		ResourceID: "veh-1",
		Date:       testMonday,
		StartTime:  "09:30",
		EndTime:    "10:30",
	}}}
	v := newTestValidator(&conflictApptStub{}, resources, defaultClassTypes())

	err := v.Validate(context.Background(), candidate(), ValidateOptions{SkipHorizonCheck: true})
	assert.ErrorIs(t, err, appErrors.ErrResourceUnavailable)
}

func TestValidateRejectsResourceDoubleBooking(t *testing.T) {
	appts := &conflictApptStub{resourceOverlaps: []models.Appointment{{
		ID:        "appt-9",
		StartTime: "09:30",
		EndTime:   "10:30",
	}}}
	v := newTestValidator(appts, &conflictResourceStub{}, defaultClassTypes())

	err := v.Validate(context.Background(), candidate(), ValidateOptions{SkipHorizonCheck: true})
	assert.ErrorIs(t, err, appErrors.ErrResourceConflict)
}

func TestValidateRejectsInstructorDoubleBooking(t *testing.T) {
	appts := &conflictApptStub{instructorOverlaps: []models.Appointment{{
		ID:        "appt-9",
		StartTime: "09:30",
		EndTime:   "10:30",
	}}}
	v := newTestValidator(appts, &conflictResourceStub{}, defaultClassTypes())

	err := v.Validate(context.Background(), candidate(), ValidateOptions{SkipHorizonCheck: true})
	assert.ErrorIs(t, err, appErrors.ErrInstructorConflict)
}

func TestValidateAllowsBackToBackAppointments(t *testing.T) {
	appts := &conflictApptStub{instructorOverlaps: []models.Appointment{{
		ID:        "appt-9",
		StartTime: "10:00",
		EndTime:   "11:00",
	}}}
	v := newTestValidator(appts, &conflictResourceStub{}, defaultClassTypes())

	// [09:00, 10:00) against [10:00, 11:00) shares only a boundary.
	err := v.Validate(context.Background(), candidate(), ValidateOptions{SkipHorizonCheck: true})
	assert.NoError(t, err)
}

func TestValidateRejectsDuplicateClassSlot(t *testing.T) {
	appts := &conflictApptStub{studentOverlaps: []models.Appointment{{
		ID:          "appt-9",
		ClassTypeID: "ct-practical",
		StartTime:   "09:00",
		EndTime:     "10:00",
	}}}
	v := newTestValidator(appts, &conflictResourceStub{}, defaultClassTypes())

	err := v.Validate(context.Background(), candidate(), ValidateOptions{SkipHorizonCheck: true})
	assert.ErrorIs(t, err, appErrors.ErrDuplicateClassSlot)
}

func TestValidateAllowsDifferentClassTypeSameWindow(t *testing.T) {
	appts := &conflictApptStub{studentOverlaps: []models.Appointment{{
		ID:          "appt-9",
		ClassTypeID: "ct-practical",
		StartTime:   "09:00",
		EndTime:     "10:00",
	}}}
	v := newTestValidator(appts, &conflictResourceStub{}, defaultClassTypes())

	cand := candidate()
	cand.ClassTypeID = "ct-theory"
	cand.ResourceID = nil
	err := v.Validate(context.Background(), cand, ValidateOptions{SkipHorizonCheck: true})
	assert.NoError(t, err)
}

func TestValidateEnforcesBookingHorizon(t *testing.T) {
	v := newTestValidator(&conflictApptStub{}, &conflictResourceStub{}, defaultClassTypes())

	// Same-day booking is below the horizon start.
	cand := candidate()
	cand.Date = time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC)
	err := v.Validate(context.Background(), cand, ValidateOptions{})
	assert.ErrorIs(t, err, appErrors.ErrHorizonExceeded)

	// Past the 14-day window.
	cand.Date = time.Date(2026, 9, 25, 0, 0, 0, 0, time.UTC)
	err = v.Validate(context.Background(), cand, ValidateOptions{})
	assert.ErrorIs(t, err, appErrors.ErrHorizonExceeded)

	// Staff may bypass the window.
	err = v.Validate(context.Background(), cand, ValidateOptions{SkipHorizonCheck: true})
	assert.NoError(t, err)

	// Inside the window.
	cand.Date = testMonday
	assert.NoError(t, v.Validate(context.Background(), cand, ValidateOptions{}))
}

func TestValidateIgnoresOwnAppointmentOnReschedule(t *testing.T) {
	appts := &conflictApptStub{instructorOverlaps: []models.Appointment{{
		ID:        "appt-self",
		StartTime: "09:00",
		EndTime:   "10:00",
	}}}
	v := newTestValidator(appts, &conflictResourceStub{}, defaultClassTypes())

	err := v.Validate(context.Background(), candidate(), ValidateOptions{SkipHorizonCheck: true, IgnoreAppointmentID: "appt-self"})
	assert.NoError(t, err)
}

func TestAutoAssignResourcePrefersAssigned(t *testing.T) {
	resources := &conflictResourceStub{
		assigned: []models.Resource{{ID: "veh-assigned", Type: models.ResourceVehicle, Active: true}},
		active:   []models.Resource{{ID: "veh-pool", Type: models.ResourceVehicle, Active: true}},
	}
	v := newTestValidator(&conflictApptStub{}, resources, defaultClassTypes())

	cand := candidate()
	cand.ResourceID = nil
	require.NoError(t, v.AutoAssignResource(context.Background(), &cand))
	require.NotNil(t, cand.ResourceID)
	assert.Equal(t, "veh-assigned", *cand.ResourceID)
}

func TestAutoAssignResourceFallsBackToPool(t *testing.T) {
	resources := &conflictResourceStub{
		active: []models.Resource{{ID: "veh-pool", Type: models.ResourceVehicle, Active: true}},
	}
	v := newTestValidator(&conflictApptStub{}, resources, defaultClassTypes())

	cand := candidate()
	cand.ResourceID = nil
	require.NoError(t, v.AutoAssignResource(context.Background(), &cand))
	require.NotNil(t, cand.ResourceID)
	assert.Equal(t, "veh-pool", *cand.ResourceID)
}

func TestAutoAssignResourceSkipsBusyResources(t *testing.T) {
	appts := &conflictApptStub{resourceOverlaps: []models.Appointment{{
		ID:        "appt-9",
		StartTime: "09:00",
		EndTime:   "10:00",
	}}}
	resources := &conflictResourceStub{
		active: []models.Resource{{ID: "veh-pool", Type: models.ResourceVehicle, Active: true}},
	}
	v := newTestValidator(appts, resources, defaultClassTypes())

	cand := candidate()
	cand.ResourceID = nil
	err := v.AutoAssignResource(context.Background(), &cand)
	assert.ErrorIs(t, err, appErrors.ErrResourceConflict)
}

func TestAutoAssignResourceSkipsTheoryClasses(t *testing.T) {
	v := newTestValidator(&conflictApptStub{}, &conflictResourceStub{}, defaultClassTypes())

	cand := candidate()
	cand.ClassTypeID = "ct-theory"
	cand.ResourceID = nil
	require.NoError(t, v.AutoAssignResource(context.Background(), &cand))
	assert.Nil(t, cand.ResourceID)
}
