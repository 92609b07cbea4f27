package models

import "time"

// CertificateStatus marks whether a certificate is still held valid by its
// issuing institution.
type CertificateStatus string

const (
	CertificateIssued  CertificateStatus = "ISSUED"
	CertificateRevoked CertificateStatus = "REVOKED"
)

// Certificate is one issued credential, publicly resolvable by UUID. The
// on-chain fields are best-effort metadata recorded at anchoring time; their
// absence never invalidates the off-chain record.
type Certificate struct {
	ID              string            `db:"id" json:"id"`
	UUID            string            `db:"uuid" json:"uuid"`
	InstitutionID   string            `db:"institution_id" json:"institution_id"`
	LearnerName     string            `db:"learner_name" json:"learner_name"`
	Title           string            `db:"title" json:"title"`
	Mention         *string           `db:"mention" json:"mention,omitempty"`
	IssueDate       time.Time         `db:"issue_date" json:"issue_date"`
	Status          CertificateStatus `db:"status" json:"status"`
	PDFPath         *string           `db:"pdf_path" json:"-"`
	PDFHash         *string           `db:"pdf_hash" json:"pdf_hash,omitempty"`
	TxHash          *string           `db:"tx_hash" json:"tx_hash,omitempty"`
	ContractAddress *string           `db:"contract_address" json:"contract_address,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}
