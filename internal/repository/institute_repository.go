package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sepiri/certhub-api/internal/models"
)

const instituteColumns = `id, college_name, created_by, active, created_at, updated_at`

// InstituteRepository provides database access for partner institutes.
type InstituteRepository struct {
	db *sqlx.DB
}

// NewInstituteRepository creates a new instance of InstituteRepository.
func NewInstituteRepository(db *sqlx.DB) *InstituteRepository {
	return &InstituteRepository{db: db}
}

// ListActive returns active institutes, newest first.
func (r *InstituteRepository) ListActive(ctx context.Context) ([]models.Institute, error) {
	query := fmt.Sprintf(`SELECT %s FROM institutes WHERE active = TRUE ORDER BY created_at DESC`, instituteColumns)
	var institutes []models.Institute
	if err := r.db.SelectContext(ctx, &institutes, query); err != nil {
		return nil, fmt.Errorf("list institutes: %w", err)
	}
	return institutes, nil
}

// FindByID returns an institute by identifier.
func (r *InstituteRepository) FindByID(ctx context.Context, id string) (*models.Institute, error) {
	query := fmt.Sprintf(`SELECT %s FROM institutes WHERE id = $1 LIMIT 1`, instituteColumns)
	var institute models.Institute
	if err := r.db.GetContext(ctx, &institute, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find institute by id: %w", err)
	}
	return &institute, nil
}

// ExistsByName reports whether an active institute with the given name
// already exists, excluding the given id when renaming.
func (r *InstituteRepository) ExistsByName(ctx context.Context, collegeName, excludeID string) (bool, error) {
	query := `SELECT 1 FROM institutes WHERE LOWER(college_name) = LOWER($1) AND active = TRUE`
	args := []interface{}{collegeName}
	if excludeID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	query += ` LIMIT 1`

	var one int
	if err := r.db.GetContext(ctx, &one, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check institute name: %w", err)
	}
	return true, nil
}

// Create inserts a new institute.
func (r *InstituteRepository) Create(ctx context.Context, institute *models.Institute) error {
	if institute.ID == "" {
		institute.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if institute.CreatedAt.IsZero() {
		institute.CreatedAt = now
	}
	institute.UpdatedAt = now

	const query = `INSERT INTO institutes (id, college_name, created_by, active, created_at, updated_at) VALUES (:id, :college_name, :created_by, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, institute); err != nil {
		return fmt.Errorf("create institute: %w", err)
	}
	return nil
}

// UpdateName renames an institute.
func (r *InstituteRepository) UpdateName(ctx context.Context, id, collegeName string) error {
	const query = `UPDATE institutes SET college_name = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, collegeName, time.Now().UTC()); err != nil {
		return fmt.Errorf("update institute name: %w", err)
	}
	return nil
}

// SoftDelete marks an institute inactive so existing certificates keep a
// valid reference.
func (r *InstituteRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE institutes SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("soft delete institute: %w", err)
	}
	return nil
}
