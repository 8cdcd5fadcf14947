package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoescuela/scheduling-api/internal/models"
	appErrors "github.com/autoescuela/scheduling-api/pkg/errors"
)

type penaltyRepoStub struct {
	created []models.Penalty
	unpaid  int64
	count   int
	err     error
}

func (s *penaltyRepoStub) Create(ctx context.Context, penalty *models.Penalty) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, *penalty)
	return nil
}

func (s *penaltyRepoStub) ListByUser(ctx context.Context, userID string) ([]models.Penalty, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.created, nil
}

func (s *penaltyRepoStub) SumUnpaidByUser(ctx context.Context, userID string) (int64, int, error) {
	if s.err != nil {
		return 0, 0, s.err
	}
	return s.unpaid, s.count, nil
}

func (s *penaltyRepoStub) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	return s.err
}

type noShowCounterStub struct {
	count int
	err   error
}

func (s *noShowCounterStub) CountNoShows(ctx context.Context, studentID string) (int, error) {
	return s.count, s.err
}

func newTestPenaltyService(penalties *penaltyRepoStub, noShows *noShowCounterStub, rows []models.Setting, now func() time.Time) *PenaltyService {
	settings := NewSettingsService(&settingsRepoStub{rows: rows}, nil, SettingsServiceConfig{})
	return NewPenaltyService(penalties, noShows, settings, nil, now)
}

func testAppointment(studentID string) *models.Appointment {
	student := studentID
	return &models.Appointment{
		ID:           "appt-1",
		InstructorID: "inst-1",
		StudentID:    &student,
		ClassTypeID:  "ct-practical",
		Date:         testMonday,
		StartTime:    "10:00",
		EndTime:      "11:00",
		Status:       models.AppointmentScheduled,
	}
}

func TestIsLateCancellationStrictBoundary(t *testing.T) {
	// Class starts Monday 10:00; the default limit is 4 hours.
	cases := []struct {
		name string
		now  time.Time
		late bool
	}{
		{"well before the limit", time.Date(2026, 9, 7, 5, 0, 0, 0, time.UTC), false},
		{"exactly at the limit", time.Date(2026, 9, 7, 6, 0, 0, 0, time.UTC), false},
		{"one minute inside", time.Date(2026, 9, 7, 6, 1, 0, 0, time.UTC), true},
		{"after the class started", time.Date(2026, 9, 7, 11, 0, 0, 0, time.UTC), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestPenaltyService(&penaltyRepoStub{}, &noShowCounterStub{}, nil, func() time.Time { return tc.now })
			late, _, err := svc.IsLateCancellation(context.Background(), testAppointment("stu-1"))
			require.NoError(t, err)
			assert.Equal(t, tc.late, late)
		})
	}
}

func TestRecordLateCancellationCreatesPenalty(t *testing.T) {
	repo := &penaltyRepoStub{}
	svc := newTestPenaltyService(repo, &noShowCounterStub{}, nil, nil)

	rules := CancellationSettings{LatePenaltyEnabled: true, LatePenaltyAmount: 50000}
	svc.RecordLateCancellation(context.Background(), testAppointment("stu-1"), rules)

	require.Len(t, repo.created, 1)
	assert.Equal(t, "stu-1", repo.created[0].UserID)
	assert.Equal(t, int64(50000), repo.created[0].Amount)
	assert.Equal(t, models.PenaltyReasonLateCancellation, repo.created[0].Reason)
	assert.False(t, repo.created[0].Paid)
}

func TestRecordLateCancellationRespectsDisabledRule(t *testing.T) {
	repo := &penaltyRepoStub{}
	svc := newTestPenaltyService(repo, &noShowCounterStub{}, nil, nil)

	svc.RecordLateCancellation(context.Background(), testAppointment("stu-1"), CancellationSettings{LatePenaltyEnabled: false})
	assert.Empty(t, repo.created)
}

func TestRecordNoShowCreatesPenalty(t *testing.T) {
	repo := &penaltyRepoStub{}
	svc := newTestPenaltyService(repo, &noShowCounterStub{}, nil, nil)

	rules := AttendanceSettings{NoShowPenaltyEnabled: true, AbsentCountsAsNoShow: true, NoShowPenaltyAmount: 30000}
	svc.RecordNoShow(context.Background(), testAppointment("stu-1"), rules)

	require.Len(t, repo.created, 1)
	assert.Equal(t, models.PenaltyReasonNoShow, repo.created[0].Reason)
	assert.Equal(t, int64(30000), repo.created[0].Amount)
}

func TestAssertCanBookBlocksOnDebt(t *testing.T) {
	svc := newTestPenaltyService(&penaltyRepoStub{unpaid: 50000, count: 1}, &noShowCounterStub{}, nil, nil)

	err := svc.AssertCanBook(context.Background(), "stu-1")
	assert.ErrorIs(t, err, appErrors.ErrPendingDebt)
}

func TestAssertCanBookBlocksOnNoShowLimit(t *testing.T) {
	svc := newTestPenaltyService(&penaltyRepoStub{}, &noShowCounterStub{count: 3}, nil, nil)

	err := svc.AssertCanBook(context.Background(), "stu-1")
	assert.ErrorIs(t, err, appErrors.ErrNoShowLimit)
}

func TestAssertCanBookAllowsCleanStudent(t *testing.T) {
	svc := newTestPenaltyService(&penaltyRepoStub{}, &noShowCounterStub{count: 2}, nil, nil)

	assert.NoError(t, svc.AssertCanBook(context.Background(), "stu-1"))
}

func TestCanStudentBookReportsReason(t *testing.T) {
	svc := newTestPenaltyService(&penaltyRepoStub{unpaid: 20000, count: 1}, &noShowCounterStub{}, nil, nil)

	eligibility, err := svc.CanStudentBook(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.False(t, eligibility.CanBook)
	assert.Equal(t, "pending debt", eligibility.Reason)

	svc = newTestPenaltyService(&penaltyRepoStub{}, &noShowCounterStub{count: 3}, nil, nil)
	eligibility, err = svc.CanStudentBook(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.False(t, eligibility.CanBook)
	assert.Equal(t, "no-show limit exceeded", eligibility.Reason)

	svc = newTestPenaltyService(&penaltyRepoStub{}, &noShowCounterStub{}, nil, nil)
	eligibility, err = svc.CanStudentBook(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.True(t, eligibility.CanBook)
	assert.Empty(t, eligibility.Reason)
}

func TestGetStudentDebtAggregates(t *testing.T) {
	svc := newTestPenaltyService(&penaltyRepoStub{unpaid: 80000, count: 2}, &noShowCounterStub{}, nil, nil)

	debt, err := svc.GetStudentDebt(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, int64(80000), debt.TotalDebt)
	assert.Equal(t, 2, debt.OutstandingFines)
}

func TestNoShowLimitConfigurable(t *testing.T) {
	rows := []models.Setting{{Key: SettingNoShowLimit, Value: "1", Type: models.SettingTypeInt}}
	svc := newTestPenaltyService(&penaltyRepoStub{}, &noShowCounterStub{count: 1}, rows, nil)

	err := svc.AssertCanBook(context.Background(), "stu-1")
	assert.ErrorIs(t, err, appErrors.ErrNoShowLimit)
}
