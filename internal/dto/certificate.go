package dto

import "time"

// IssueCertificateRequest creates a certificate for the authenticated
// institution.
type IssueCertificateRequest struct {
	LearnerName string     `json:"learner_name" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	Mention     *string    `json:"mention"`
	IssueDate   *time.Time `json:"issue_date"`
}

// CertificateView is the public verification payload for one certificate.
type CertificateView struct {
	UUID            string    `json:"uuid"`
	Title           string    `json:"title"`
	Mention         *string   `json:"mention,omitempty"`
	IssueDate       time.Time `json:"issue_date"`
	Status          string    `json:"status"`
	Institution     string    `json:"institution,omitempty"`
	PDFURL          *string   `json:"pdf_url,omitempty"`
	PDFHash         *string   `json:"pdf_hash,omitempty"`
	TxHash          *string   `json:"tx_hash,omitempty"`
	ContractAddress *string   `json:"contract_address,omitempty"`
}

// OnchainProof reports the best-effort on-chain attestation lookup. Onchain
// false only means the chain record could not be confirmed right now; the
// off-chain record stands on its own and the UI must not present this as
// cryptographic proof either way.
type OnchainProof struct {
	Onchain         bool       `json:"onchain"`
	Issuer          string     `json:"issuer,omitempty"`
	Student         string     `json:"student,omitempty"`
	IssuedAt        *time.Time `json:"issued_at,omitempty"`
	TxHash          string     `json:"tx_hash,omitempty"`
	ContractAddress string     `json:"contract_address,omitempty"`
}
