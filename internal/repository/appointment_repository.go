package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/autoescuela/scheduling-api/internal/models"
	appErrors "github.com/autoescuela/scheduling-api/pkg/errors"
)

// AppointmentRepository persists appointments.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs the repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = `id, instructor_id, student_id, class_type_id, resource_id, date, start_time, end_time, status, created_at, updated_at`

// FindByID fetches a single appointment.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1`, appointmentColumns)
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// List returns appointments matching the filter plus a total count.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	add := func(cond string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.InstructorID != "" {
		add("instructor_id = $%d", filter.InstructorID)
	}
	if filter.StudentID != "" {
		add("student_id = $%d", filter.StudentID)
	}
	if filter.ClassTypeID != "" {
		add("class_type_id = $%d", filter.ClassTypeID)
	}
	if filter.ResourceID != "" {
		add("resource_id = $%d", filter.ResourceID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.DateFrom != nil {
		add("date >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("date <= $%d", *filter.DateTo)
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM appointments WHERE %s`, where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	args = append(args, size, (page-1)*size)
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE %s ORDER BY date ASC, start_time ASC LIMIT $%d OFFSET $%d`,
		appointmentColumns, where, len(args)-1, len(args))

	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	return appts, total, nil
}

// ListActiveByInstructor returns non-cancelled appointments for an
// instructor within the inclusive date range.
func (r *AppointmentRepository) ListActiveByInstructor(ctx context.Context, instructorID string, from, to time.Time) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments
WHERE instructor_id = $1 AND date >= $2 AND date <= $3 AND status <> $4
ORDER BY date ASC, start_time ASC`, appointmentColumns)
	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, instructorID, from, to, models.AppointmentCancelled); err != nil {
		return nil, fmt.Errorf("list instructor appointments: %w", err)
	}
	return appts, nil
}

// FindInstructorOverlaps returns non-cancelled appointments for the
// instructor overlapping [start, end) on the given date.
func (r *AppointmentRepository) FindInstructorOverlaps(ctx context.Context, instructorID string, date time.Time, start, end string) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments
WHERE instructor_id = $1 AND date = $2 AND status <> $3 AND start_time < $4 AND end_time > $5`, appointmentColumns)
	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, instructorID, date, models.AppointmentCancelled, end, start); err != nil {
		return nil, fmt.Errorf("find instructor overlaps: %w", err)
	}
	return appts, nil
}

// FindResourceOverlaps returns non-cancelled appointments holding the
// resource for an overlapping window on the given date.
func (r *AppointmentRepository) FindResourceOverlaps(ctx context.Context, resourceID string, date time.Time, start, end string) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments
WHERE resource_id = $1 AND date = $2 AND status <> $3 AND start_time < $4 AND end_time > $5`, appointmentColumns)
	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, resourceID, date, models.AppointmentCancelled, end, start); err != nil {
		return nil, fmt.Errorf("find resource overlaps: %w", err)
	}
	return appts, nil
}

// FindStudentClassOverlaps returns non-cancelled appointments of the
// same class type held by the student in an overlapping window.
func (r *AppointmentRepository) FindStudentClassOverlaps(ctx context.Context, studentID, classTypeID string, date time.Time, start, end string) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments
WHERE student_id = $1 AND class_type_id = $2 AND date = $3 AND status <> $4 AND start_time < $5 AND end_time > $6`, appointmentColumns)
	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, studentID, classTypeID, date, models.AppointmentCancelled, end, start); err != nil {
		return nil, fmt.Errorf("find student class overlaps: %w", err)
	}
	return appts, nil
}

const anchorLockQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

// lockAnchors serializes concurrent bookings per invariant. Row locks
// on appointments cannot do this for a first booking (an empty FOR
// UPDATE result set locks nothing), so each anchor that the overlap
// checks guard takes a transaction-scoped advisory lock instead. The
// instructor/resource/student acquisition order is fixed to keep
// crossing transactions deadlock-free.
func lockAnchors(ctx context.Context, tx *sqlx.Tx, appt *models.Appointment) error {
	day := appt.Date.Format("2006-01-02")
	keys := []string{fmt.Sprintf("appt:instructor:%s:%s", appt.InstructorID, day)}
	if appt.ResourceID != nil {
		keys = append(keys, fmt.Sprintf("appt:resource:%s:%s", *appt.ResourceID, day))
	}
	if appt.StudentID != nil {
		keys = append(keys, fmt.Sprintf("appt:student:%s:%s", *appt.StudentID, day))
	}
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, anchorLockQuery, key); err != nil {
			return fmt.Errorf("lock booking anchor %s: %w", key, err)
		}
	}
	return nil
}

// CreateChecked inserts the appointment after re-running the overlap
// checks inside a single transaction. Advisory locks on the
// instructor, resource and student anchors are taken first so two
// concurrent bookings contending on any of the three invariants cannot
// both pass the checks before either commits.
func (r *AppointmentRepository) CreateChecked(ctx context.Context, appt *models.Appointment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create appointment tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := lockAnchors(ctx, tx, appt); err != nil {
		return err
	}

	var instructorOverlaps int
	instructorQuery := `SELECT COUNT(*) FROM appointments
WHERE instructor_id = $1 AND date = $2 AND status <> $3 AND start_time < $4 AND end_time > $5`
	if err := tx.GetContext(ctx, &instructorOverlaps, instructorQuery, appt.InstructorID, appt.Date, models.AppointmentCancelled, appt.EndTime, appt.StartTime); err != nil {
		return fmt.Errorf("check instructor overlap: %w", err)
	}
	if instructorOverlaps > 0 {
		return appErrors.ErrInstructorConflict
	}

	if appt.ResourceID != nil {
		var resourceOverlaps int
		resourceQuery := `SELECT COUNT(*) FROM appointments
WHERE resource_id = $1 AND date = $2 AND status <> $3 AND start_time < $4 AND end_time > $5`
		if err := tx.GetContext(ctx, &resourceOverlaps, resourceQuery, *appt.ResourceID, appt.Date, models.AppointmentCancelled, appt.EndTime, appt.StartTime); err != nil {
			return fmt.Errorf("check resource overlap: %w", err)
		}
		if resourceOverlaps > 0 {
			return appErrors.ErrResourceConflict
		}
	}

	if appt.StudentID != nil {
		var studentOverlaps int
		studentQuery := `SELECT COUNT(*) FROM appointments
WHERE student_id = $1 AND class_type_id = $2 AND date = $3 AND status <> $4 AND start_time < $5 AND end_time > $6`
		if err := tx.GetContext(ctx, &studentOverlaps, studentQuery, *appt.StudentID, appt.ClassTypeID, appt.Date, models.AppointmentCancelled, appt.EndTime, appt.StartTime); err != nil {
			return fmt.Errorf("check student overlap: %w", err)
		}
		if studentOverlaps > 0 {
			return appErrors.ErrDuplicateClassSlot
		}
	}

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	const insert = `INSERT INTO appointments (id, instructor_id, student_id, class_type_id, resource_id, date, start_time, end_time, status, created_at, updated_at)
VALUES (:id, :instructor_id, :student_id, :class_type_id, :resource_id, :date, :start_time, :end_time, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, appt); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create appointment tx: %w", err)
	}
	return nil
}

// Update persists changed appointment fields.
func (r *AppointmentRepository) Update(ctx context.Context, appt *models.Appointment) error {
	appt.UpdatedAt = time.Now().UTC()
	const query = `UPDATE appointments
SET instructor_id = :instructor_id, student_id = :student_id, class_type_id = :class_type_id,
    resource_id = :resource_id, date = :date, start_time = :start_time, end_time = :end_time,
    status = :status, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, appt); err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

// UpdateStatus transitions the appointment status.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error {
	const query = `UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	return nil
}

// Delete hard-removes the appointment.
func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM appointments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	return nil
}
