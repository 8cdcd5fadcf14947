package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/autoescuela/scheduling-api/internal/models"
)

// AttendanceRepository persists attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts an attendance record.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.Attendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO attendances (id, appointment_id, student_id, attended, arrived_at, late, notes, created_at)
VALUES (:id, :appointment_id, :student_id, :attended, :arrived_at, :late, :notes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// CountNoShows returns how many absences the student has on record.
func (r *AttendanceRepository) CountNoShows(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM attendances WHERE student_id = $1 AND attended = FALSE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID); err != nil {
		return 0, fmt.Errorf("count no-shows: %w", err)
	}
	return count, nil
}
