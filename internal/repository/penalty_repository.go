package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/autoescuela/scheduling-api/internal/models"
)

// PenaltyRepository persists penalties and aggregates student debt.
type PenaltyRepository struct {
	db *sqlx.DB
}

// NewPenaltyRepository constructs the repository.
func NewPenaltyRepository(db *sqlx.DB) *PenaltyRepository {
	return &PenaltyRepository{db: db}
}

const penaltyColumns = `id, user_id, appointment_id, amount, reason, paid, paid_at, created_at`

// Create inserts a penalty.
func (r *PenaltyRepository) Create(ctx context.Context, penalty *models.Penalty) error {
	if penalty.ID == "" {
		penalty.ID = uuid.NewString()
	}
	penalty.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO penalties (id, user_id, appointment_id, amount, reason, paid, paid_at, created_at)
VALUES (:id, :user_id, :appointment_id, :amount, :reason, :paid, :paid_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, penalty); err != nil {
		return fmt.Errorf("insert penalty: %w", err)
	}
	return nil
}

// FindByID fetches a single penalty.
func (r *PenaltyRepository) FindByID(ctx context.Context, id string) (*models.Penalty, error) {
	query := fmt.Sprintf(`SELECT %s FROM penalties WHERE id = $1`, penaltyColumns)
	var penalty models.Penalty
	if err := r.db.GetContext(ctx, &penalty, query, id); err != nil {
		return nil, err
	}
	return &penalty, nil
}

// ListByUser returns all penalties for a user, newest first.
func (r *PenaltyRepository) ListByUser(ctx context.Context, userID string) ([]models.Penalty, error) {
	query := fmt.Sprintf(`SELECT %s FROM penalties WHERE user_id = $1 ORDER BY created_at DESC`, penaltyColumns)
	var penalties []models.Penalty
	if err := r.db.SelectContext(ctx, &penalties, query, userID); err != nil {
		return nil, fmt.Errorf("list penalties: %w", err)
	}
	return penalties, nil
}

// SumUnpaidByUser returns the total unpaid amount and the number of
// unpaid penalties for a user.
func (r *PenaltyRepository) SumUnpaidByUser(ctx context.Context, userID string) (int64, int, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count
FROM penalties WHERE user_id = $1 AND paid = FALSE`
	var row struct {
		Total int64 `db:"total"`
		Count int   `db:"count"`
	}
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		return 0, 0, fmt.Errorf("sum unpaid penalties: %w", err)
	}
	return row.Total, row.Count, nil
}

// MarkPaid settles a penalty.
func (r *PenaltyRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	const query = `UPDATE penalties SET paid = TRUE, paid_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, paidAt, id); err != nil {
		return fmt.Errorf("mark penalty paid: %w", err)
	}
	return nil
}
