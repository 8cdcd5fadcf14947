package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/autoescuela/scheduling-api/internal/models"
)

// ScheduleRepository persists instructor weekly schedules and one-off
// overrides.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const weeklyScheduleColumns = `id, instructor_id, day_of_week, start_time, end_time, slot_minutes, class_type_id, active, created_at, updated_at`

// ListActiveByInstructor returns the instructor's active weekly rows.
func (r *ScheduleRepository) ListActiveByInstructor(ctx context.Context, instructorID string) ([]models.WeeklySchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM weekly_schedules
WHERE instructor_id = $1 AND active = TRUE
ORDER BY day_of_week ASC, start_time ASC`, weeklyScheduleColumns)
	var rows []models.WeeklySchedule
	if err := r.db.SelectContext(ctx, &rows, query, instructorID); err != nil {
		return nil, fmt.Errorf("list weekly schedules: %w", err)
	}
	return rows, nil
}

// FindByID fetches a single weekly schedule row.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.WeeklySchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM weekly_schedules WHERE id = $1`, weeklyScheduleColumns)
	var row models.WeeklySchedule
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts a weekly schedule row.
func (r *ScheduleRepository) Create(ctx context.Context, row *models.WeeklySchedule) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now
	const query = `INSERT INTO weekly_schedules (id, instructor_id, day_of_week, start_time, end_time, slot_minutes, class_type_id, active, created_at, updated_at)
VALUES (:id, :instructor_id, :day_of_week, :start_time, :end_time, :slot_minutes, :class_type_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("insert weekly schedule: %w", err)
	}
	return nil
}

// SetActive soft-toggles a weekly schedule row.
func (r *ScheduleRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE weekly_schedules SET active = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, active, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("toggle weekly schedule: %w", err)
	}
	return nil
}

// Delete removes a weekly schedule row. Existing appointments within the
// window are untouched.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM weekly_schedules WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete weekly schedule: %w", err)
	}
	return nil
}

// ListOverrides returns the instructor's one-off overrides within the
// inclusive date range.
func (r *ScheduleRepository) ListOverrides(ctx context.Context, instructorID string, from, to time.Time) ([]models.ScheduleOverride, error) {
	const query = `SELECT id, instructor_id, date, start_time, end_time, slot_minutes, available, created_at
FROM schedule_overrides
WHERE instructor_id = $1 AND date >= $2 AND date <= $3
ORDER BY date ASC, start_time ASC`
	var rows []models.ScheduleOverride
	if err := r.db.SelectContext(ctx, &rows, query, instructorID, from, to); err != nil {
		return nil, fmt.Errorf("list schedule overrides: %w", err)
	}
	return rows, nil
}

// CreateOverride inserts a one-off override row.
func (r *ScheduleRepository) CreateOverride(ctx context.Context, row *models.ScheduleOverride) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	row.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO schedule_overrides (id, instructor_id, date, start_time, end_time, slot_minutes, available, created_at)
VALUES (:id, :instructor_id, :date, :start_time, :end_time, :slot_minutes, :available, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("insert schedule override: %w", err)
	}
	return nil
}
