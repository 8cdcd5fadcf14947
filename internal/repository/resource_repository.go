package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/autoescuela/scheduling-api/internal/models"
)

// ResourceRepository reads classrooms/vehicles, instructor assignments
// and maintenance blocks.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository constructs the repository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

const resourceColumns = `id, name, type, plate, brand, model, year, color, active, created_at, updated_at`

// FindByID fetches a single resource.
func (r *ResourceRepository) FindByID(ctx context.Context, id string) (*models.Resource, error) {
	query := fmt.Sprintf(`SELECT %s FROM resources WHERE id = $1`, resourceColumns)
	var res models.Resource
	if err := r.db.GetContext(ctx, &res, query, id); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListActiveByType returns all active resources of the given type.
func (r *ResourceRepository) ListActiveByType(ctx context.Context, resourceType models.ResourceType) ([]models.Resource, error) {
	query := fmt.Sprintf(`SELECT %s FROM resources WHERE type = $1 AND active = TRUE ORDER BY name ASC`, resourceColumns)
	var resources []models.Resource
	if err := r.db.SelectContext(ctx, &resources, query, resourceType); err != nil {
		return nil, fmt.Errorf("list active resources: %w", err)
	}
	return resources, nil
}

// ListAssignedToInstructor returns active resources explicitly assigned
// to the instructor, optionally narrowed by type.
func (r *ResourceRepository) ListAssignedToInstructor(ctx context.Context, instructorID string, resourceType models.ResourceType) ([]models.Resource, error) {
	const query = `SELECT r.id, r.name, r.type, r.plate, r.brand, r.model, r.year, r.color, r.active, r.created_at, r.updated_at
FROM resources r
JOIN instructor_resources ir ON ir.resource_id = r.id
WHERE ir.instructor_id = $1 AND r.type = $2 AND r.active = TRUE
ORDER BY r.name ASC`
	var resources []models.Resource
	if err := r.db.SelectContext(ctx, &resources, query, instructorID, resourceType); err != nil {
		return nil, fmt.Errorf("list assigned resources: %w", err)
	}
	return resources, nil
}

// FindBlockOverlaps returns maintenance blocks overlapping [start, end)
// for the resource on the given date.
func (r *ResourceRepository) FindBlockOverlaps(ctx context.Context, resourceID string, date time.Time, start, end string) ([]models.ResourceBlock, error) {
	const query = `SELECT id, resource_id, date, start_time, end_time, reason, created_at
FROM resource_blocks
WHERE resource_id = $1 AND date = $2 AND start_time < $3 AND end_time > $4`
	var blocks []models.ResourceBlock
	if err := r.db.SelectContext(ctx, &blocks, query, resourceID, date, end, start); err != nil {
		return nil, fmt.Errorf("find resource blocks: %w", err)
	}
	return blocks, nil
}
