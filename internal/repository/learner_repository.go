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

const learnerColumns = `id, email, password_hash, name, surname, phone, status, created_at, updated_at`

// LearnerRepository provides database access for learner accounts and their
// institution linkages.
type LearnerRepository struct {
	db *sqlx.DB
}

// NewLearnerRepository creates a new instance of LearnerRepository.
func NewLearnerRepository(db *sqlx.DB) *LearnerRepository {
	return &LearnerRepository{db: db}
}

// FindByEmail returns a learner by email address.
func (r *LearnerRepository) FindByEmail(ctx context.Context, email string) (*models.Learner, error) {
	query := fmt.Sprintf(`SELECT %s FROM learners WHERE email = $1 LIMIT 1`, learnerColumns)
	var learner models.Learner
	if err := r.db.GetContext(ctx, &learner, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find learner by email: %w", err)
	}
	return &learner, nil
}

// FindByID returns a learner by identifier.
func (r *LearnerRepository) FindByID(ctx context.Context, id string) (*models.Learner, error) {
	query := fmt.Sprintf(`SELECT %s FROM learners WHERE id = $1 LIMIT 1`, learnerColumns)
	var learner models.Learner
	if err := r.db.GetContext(ctx, &learner, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find learner by id: %w", err)
	}
	return &learner, nil
}

// Create inserts a new learner account.
func (r *LearnerRepository) Create(ctx context.Context, learner *models.Learner) error {
	if learner.ID == "" {
		learner.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if learner.CreatedAt.IsZero() {
		learner.CreatedAt = now
	}
	learner.UpdatedAt = now
	if learner.Status == "" {
		learner.Status = models.LearnerActive
	}

	const query = `INSERT INTO learners (id, email, password_hash, name, surname, phone, status, created_at, updated_at) VALUES (:id, :email, :password_hash, :name, :surname, :phone, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, learner); err != nil {
		return fmt.Errorf("create learner: %w", err)
	}
	return nil
}

// CreateLinkage inserts a pending learner-institution linkage.
func (r *LearnerRepository) CreateLinkage(ctx context.Context, linkage *models.Linkage) error {
	if linkage.ID == "" {
		linkage.ID = uuid.NewString()
	}
	if linkage.CreatedAt.IsZero() {
		linkage.CreatedAt = time.Now().UTC()
	}
	if linkage.Status == "" {
		linkage.Status = models.LinkagePending
	}

	const query = `INSERT INTO linkages (id, learner_id, institution_id, message, status, created_at) VALUES (:id, :learner_id, :institution_id, :message, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, linkage); err != nil {
		return fmt.Errorf("create linkage: %w", err)
	}
	return nil
}

// ListLinkagesByLearner returns all linkages requested by a learner.
func (r *LearnerRepository) ListLinkagesByLearner(ctx context.Context, learnerID string) ([]models.Linkage, error) {
	const query = `SELECT id, learner_id, institution_id, message, status, created_at FROM linkages WHERE learner_id = $1 ORDER BY created_at DESC`
	var linkages []models.Linkage
	if err := r.db.SelectContext(ctx, &linkages, query, learnerID); err != nil {
		return nil, fmt.Errorf("list linkages: %w", err)
	}
	return linkages, nil
}
