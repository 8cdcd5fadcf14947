package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/autoescuela/scheduling-api/internal/models"
)

// ClassTypeRepository reads class type definitions.
type ClassTypeRepository struct {
	db *sqlx.DB
}

// NewClassTypeRepository constructs the repository.
func NewClassTypeRepository(db *sqlx.DB) *ClassTypeRepository {
	return &ClassTypeRepository{db: db}
}

// FindByID fetches a single class type.
func (r *ClassTypeRepository) FindByID(ctx context.Context, id string) (*models.ClassType, error) {
	const query = `SELECT id, name, requires_resource, resource_type, active, created_at, updated_at
FROM class_types WHERE id = $1`
	var ct models.ClassType
	if err := r.db.GetContext(ctx, &ct, query, id); err != nil {
		return nil, err
	}
	return &ct, nil
}
