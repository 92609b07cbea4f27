package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/certilink/certilink-api/internal/models"
)

const institutionColumns = `id, name, email, password_hash, registration_number, category, address, phone, rep_name, rep_email, rep_phone, status, created_at, updated_at`

// InstitutionRepository provides database access for institution records.
type InstitutionRepository struct {
	db *sqlx.DB
}

// NewInstitutionRepository creates a new instance of InstitutionRepository.
func NewInstitutionRepository(db *sqlx.DB) *InstitutionRepository {
	return &InstitutionRepository{db: db}
}

// FindByEmail returns an institution by email address.
func (r *InstitutionRepository) FindByEmail(ctx context.Context, email string) (*models.Institution, error) {
	query := fmt.Sprintf(`SELECT %s FROM institutions WHERE email = $1 LIMIT 1`, institutionColumns)
	var inst models.Institution
	if err := r.db.GetContext(ctx, &inst, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find institution by email: %w", err)
	}
	return &inst, nil
}

// FindByID returns an institution by identifier.
func (r *InstitutionRepository) FindByID(ctx context.Context, id string) (*models.Institution, error) {
	query := fmt.Sprintf(`SELECT %s FROM institutions WHERE id = $1 LIMIT 1`, institutionColumns)
	var inst models.Institution
	if err := r.db.GetContext(ctx, &inst, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find institution by id: %w", err)
	}
	return &inst, nil
}

// FindActiveByName returns the first ACTIVE institution with the exact name.
// Names are not unique; insertion order decides which match wins.
func (r *InstitutionRepository) FindActiveByName(ctx context.Context, name string) (*models.Institution, error) {
	query := fmt.Sprintf(`SELECT %s FROM institutions WHERE name = $1 AND status = $2 ORDER BY created_at ASC LIMIT 1`, institutionColumns)
	var inst models.Institution
	if err := r.db.GetContext(ctx, &inst, query, name, models.InstitutionActive); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active institution by name: %w", err)
	}
	return &inst, nil
}

// Create inserts a new institution in PENDING state.
func (r *InstitutionRepository) Create(ctx context.Context, inst *models.Institution) error {
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = now
	}
	inst.UpdatedAt = now
	if inst.Status == "" {
		inst.Status = models.InstitutionPending
	}

	const query = `INSERT INTO institutions (id, name, email, password_hash, registration_number, category, address, phone, rep_name, rep_email, rep_phone, status, created_at, updated_at) VALUES (:id, :name, :email, :password_hash, :registration_number, :category, :address, :phone, :rep_name, :rep_email, :rep_phone, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, inst); err != nil {
		return fmt.Errorf("create institution: %w", err)
	}
	return nil
}

// UpdateStatus transitions an institution and bumps its modified timestamp.
// Concurrent transitions are not serialized; the last write wins.
func (r *InstitutionRepository) UpdateStatus(ctx context.Context, id string, status models.InstitutionStatus, updatedAt time.Time) (int64, error) {
	const query = `UPDATE institutions SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, updatedAt)
	if err != nil {
		return 0, fmt.Errorf("update institution status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update institution status: %w", err)
	}
	return affected, nil
}

// List returns all institutions ordered by creation descending.
func (r *InstitutionRepository) List(ctx context.Context) ([]models.Institution, error) {
	query := fmt.Sprintf(`SELECT %s FROM institutions ORDER BY created_at DESC`, institutionColumns)
	var institutions []models.Institution
	if err := r.db.SelectContext(ctx, &institutions, query); err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}
	return institutions, nil
}
