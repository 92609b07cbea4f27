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

const documentColumns = `id, institution_id, doc_type, original_filename, mime_type, size_bytes, storage_locator, status, reviewer_comments, uploaded_at, validated_at`

// DocumentRepository provides database access for document metadata.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository creates a new instance of DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts one document metadata row.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	if doc.Status == "" {
		doc.Status = models.DocumentPending
	}

	const query = `INSERT INTO documents (id, institution_id, doc_type, original_filename, mime_type, size_bytes, storage_locator, status, reviewer_comments, uploaded_at, validated_at) VALUES (:id, :institution_id, :doc_type, :original_filename, :mime_type, :size_bytes, :storage_locator, :status, :reviewer_comments, :uploaded_at, :validated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// FindByID returns one document metadata row.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1 LIMIT 1`, documentColumns)
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document by id: %w", err)
	}
	return &doc, nil
}

// ListByInstitution returns all documents owned by an institution.
func (r *DocumentRepository) ListByInstitution(ctx context.Context, institutionID string) ([]models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE institution_id = $1 ORDER BY uploaded_at ASC`, documentColumns)
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, institutionID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// MarkAllValid stamps every document of an institution VALID with the given
// validation timestamp. Safe to repeat; the stamp just moves forward.
func (r *DocumentRepository) MarkAllValid(ctx context.Context, institutionID string, validatedAt time.Time) error {
	const query = `UPDATE documents SET status = $2, validated_at = $3 WHERE institution_id = $1`
	if _, err := r.db.ExecContext(ctx, query, institutionID, models.DocumentValid, validatedAt); err != nil {
		return fmt.Errorf("mark documents valid: %w", err)
	}
	return nil
}

// StampComments records reviewer comments and the validation timestamp on
// every document of an institution without changing their status.
func (r *DocumentRepository) StampComments(ctx context.Context, institutionID, comments string, validatedAt time.Time) error {
	const query = `UPDATE documents SET reviewer_comments = $2, validated_at = $3 WHERE institution_id = $1`
	if _, err := r.db.ExecContext(ctx, query, institutionID, comments, validatedAt); err != nil {
		return fmt.Errorf("stamp document comments: %w", err)
	}
	return nil
}

// UpdateLocator rewrites the storage locator after a physical relocation.
func (r *DocumentRepository) UpdateLocator(ctx context.Context, id, locator string) error {
	const query = `UPDATE documents SET storage_locator = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, locator); err != nil {
		return fmt.Errorf("update document locator: %w", err)
	}
	return nil
}
