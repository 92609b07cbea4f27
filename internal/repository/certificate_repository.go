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

const certificateColumns = `id, uuid, institution_id, learner_name, title, mention, issue_date, status, pdf_path, pdf_hash, tx_hash, contract_address, created_at, updated_at`

// CertificateRepository provides database access for issued certificates.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository creates a new instance of CertificateRepository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// FindByUUID returns a certificate by its public identifier.
func (r *CertificateRepository) FindByUUID(ctx context.Context, certUUID string) (*models.Certificate, error) {
	query := fmt.Sprintf(`SELECT %s FROM certificates WHERE uuid = $1 LIMIT 1`, certificateColumns)
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, certUUID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find certificate by uuid: %w", err)
	}
	return &cert, nil
}

// Create inserts an issued certificate.
func (r *CertificateRepository) Create(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cert.CreatedAt.IsZero() {
		cert.CreatedAt = now
	}
	cert.UpdatedAt = now
	if cert.Status == "" {
		cert.Status = models.CertificateIssued
	}

	const query = `INSERT INTO certificates (id, uuid, institution_id, learner_name, title, mention, issue_date, status, pdf_path, pdf_hash, tx_hash, contract_address, created_at, updated_at) VALUES (:id, :uuid, :institution_id, :learner_name, :title, :mention, :issue_date, :status, :pdf_path, :pdf_hash, :tx_hash, :contract_address, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

// ListByInstitution returns certificates issued by an institution.
func (r *CertificateRepository) ListByInstitution(ctx context.Context, institutionID string) ([]models.Certificate, error) {
	query := fmt.Sprintf(`SELECT %s FROM certificates WHERE institution_id = $1 ORDER BY created_at DESC`, certificateColumns)
	var certs []models.Certificate
	if err := r.db.SelectContext(ctx, &certs, query, institutionID); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}
