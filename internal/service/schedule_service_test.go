package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoescuela/scheduling-api/internal/dto"
	"github.com/autoescuela/scheduling-api/internal/models"
	appErrors "github.com/autoescuela/scheduling-api/pkg/errors"
)

type scheduleRepoStub struct {
	rows      map[string]*models.WeeklySchedule
	overrides []models.ScheduleOverride
	toggled   map[string]bool
	deleted   []string
}

func newScheduleRepoStub(rows ...*models.WeeklySchedule) *scheduleRepoStub {
	stub := &scheduleRepoStub{
		rows:    make(map[string]*models.WeeklySchedule),
		toggled: make(map[string]bool),
	}
	for _, row := range rows {
		stub.rows[row.ID] = row
	}
	return stub
}

func (s *scheduleRepoStub) ListActiveByInstructor(ctx context.Context, instructorID string) ([]models.WeeklySchedule, error) {
	var out []models.WeeklySchedule
	for _, row := range s.rows {
		if row.InstructorID == instructorID && row.Active {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *scheduleRepoStub) FindByID(ctx context.Context, id string) (*models.WeeklySchedule, error) {
	if row, ok := s.rows[id]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *scheduleRepoStub) Create(ctx context.Context, row *models.WeeklySchedule) error {
	if row.ID == "" {
		row.ID = "ws-new"
	}
	copied := *row
	s.rows[row.ID] = &copied
	return nil
}

func (s *scheduleRepoStub) SetActive(ctx context.Context, id string, active bool) error {
	s.toggled[id] = active
	if row, ok := s.rows[id]; ok {
		row.Active = active
	}
	return nil
}

func (s *scheduleRepoStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	delete(s.rows, id)
	return nil
}

func (s *scheduleRepoStub) ListOverrides(ctx context.Context, instructorID string, from, to time.Time) ([]models.ScheduleOverride, error) {
	return s.overrides, nil
}

func (s *scheduleRepoStub) CreateOverride(ctx context.Context, row *models.ScheduleOverride) error {
	if row.ID == "" {
		row.ID = "ov-new"
	}
	s.overrides = append(s.overrides, *row)
	return nil
}

func weeklyRequest() dto.CreateWeeklyScheduleRequest {
	return dto.CreateWeeklyScheduleRequest{
		InstructorID: "inst-1",
		DayOfWeek:    1,
		StartTime:    "09:00",
		EndTime:      "12:00",
		SlotMinutes:  60,
	}
}

func TestScheduleCreateWeekly(t *testing.T) {
	repo := newScheduleRepoStub()
	cache := &cacheInvalidatorStub{}
	svc := NewScheduleService(repo, cache, nil, nil)

	row, err := svc.CreateWeekly(context.Background(), weeklyRequest())
	require.NoError(t, err)
	assert.True(t, row.Active)
	assert.NotEmpty(t, row.ID)
	assert.Contains(t, cache.patterns, "availability:inst-1:*")
}

func TestScheduleCreateWeeklyRejectsBadWindow(t *testing.T) {
	svc := NewScheduleService(newScheduleRepoStub(), nil, nil, nil)

	req := weeklyRequest()
	req.EndTime = "08:00"
	_, err := svc.CreateWeekly(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req = weeklyRequest()
	req.SlotMinutes = 45
	_, err = svc.CreateWeekly(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleCreateWeeklyRejectsOverlappingWindow(t *testing.T) {
	existing := &models.WeeklySchedule{
		ID: "ws-1", InstructorID: "inst-1", DayOfWeek: 1,
		StartTime: "11:00", EndTime: "14:00", SlotMinutes: 60, Active: true,
	}
	svc := NewScheduleService(newScheduleRepoStub(existing), nil, nil, nil)

	// 09:00-12:00 intersects the active 11:00-14:00 row on the same day.
	_, err := svc.CreateWeekly(context.Background(), weeklyRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// Back-to-back on the same day is fine.
	req := weeklyRequest()
	req.StartTime = "08:00"
	req.EndTime = "11:00"
	_, err = svc.CreateWeekly(context.Background(), req)
	require.NoError(t, err)

	// The same window on another weekday never collides.
	req = weeklyRequest()
	req.DayOfWeek = 2
	_, err = svc.CreateWeekly(context.Background(), req)
	require.NoError(t, err)
}

func TestScheduleSetActiveRejectsOverlapOnReactivate(t *testing.T) {
	dormant := &models.WeeklySchedule{
		ID: "ws-1", InstructorID: "inst-1", DayOfWeek: 1,
		StartTime: "09:00", EndTime: "12:00", SlotMinutes: 60, Active: false,
	}
	occupying := &models.WeeklySchedule{
		ID: "ws-2", InstructorID: "inst-1", DayOfWeek: 1,
		StartTime: "10:00", EndTime: "13:00", SlotMinutes: 60, Active: true,
	}
	repo := newScheduleRepoStub(dormant, occupying)
	svc := NewScheduleService(repo, nil, nil, nil)

	err := svc.SetActive(context.Background(), "ws-1", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	_, touched := repo.toggled["ws-1"]
	assert.False(t, touched)

	// Once the occupying row is gone the reactivation goes through.
	require.NoError(t, svc.SetActive(context.Background(), "ws-2", false))
	require.NoError(t, svc.SetActive(context.Background(), "ws-1", true))
	assert.True(t, repo.toggled["ws-1"])
}

func TestScheduleSetActiveTogglesRow(t *testing.T) {
	row := &models.WeeklySchedule{ID: "ws-1", InstructorID: "inst-1", Active: true}
	repo := newScheduleRepoStub(row)
	cache := &cacheInvalidatorStub{}
	svc := NewScheduleService(repo, cache, nil, nil)

	require.NoError(t, svc.SetActive(context.Background(), "ws-1", false))
	assert.False(t, repo.toggled["ws-1"])
	assert.Contains(t, cache.patterns, "availability:inst-1:*")

	err := svc.SetActive(context.Background(), "ws-missing", false)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestScheduleDeleteWeekly(t *testing.T) {
	row := &models.WeeklySchedule{ID: "ws-1", InstructorID: "inst-1", Active: true}
	repo := newScheduleRepoStub(row)
	cache := &cacheInvalidatorStub{}
	svc := NewScheduleService(repo, cache, nil, nil)

	require.NoError(t, svc.DeleteWeekly(context.Background(), "ws-1"))
	assert.Equal(t, []string{"ws-1"}, repo.deleted)
	assert.Contains(t, cache.patterns, "availability:inst-1:*")

	err := svc.DeleteWeekly(context.Background(), "ws-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestScheduleCreateOverride(t *testing.T) {
	repo := newScheduleRepoStub()
	cache := &cacheInvalidatorStub{}
	svc := NewScheduleService(repo, cache, nil, nil)

	// A blocking override carries no slot granularity.
	row, err := svc.CreateOverride(context.Background(), dto.CreateScheduleOverrideRequest{
		InstructorID: "inst-1",
		Date:         "2026-09-07",
		StartTime:    "09:00",
		EndTime:      "11:00",
		Available:    false,
	})
	require.NoError(t, err)
	assert.False(t, row.Available)
	assert.Equal(t, testMonday, row.Date)
	assert.Contains(t, cache.patterns, "availability:inst-1:*")
}

func TestScheduleCreateOverrideAdditiveNeedsSlotMinutes(t *testing.T) {
	svc := NewScheduleService(newScheduleRepoStub(), nil, nil, nil)

	_, err := svc.CreateOverride(context.Background(), dto.CreateScheduleOverrideRequest{
		InstructorID: "inst-1",
		Date:         "2026-09-07",
		StartTime:    "15:00",
		EndTime:      "17:00",
		SlotMinutes:  45,
		Available:    true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleCreateOverrideRejectsBadDate(t *testing.T) {
	svc := NewScheduleService(newScheduleRepoStub(), nil, nil, nil)

	_, err := svc.CreateOverride(context.Background(), dto.CreateScheduleOverrideRequest{
		InstructorID: "inst-1",
		Date:         "07/09/2026",
		StartTime:    "09:00",
		EndTime:      "11:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
