package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/certilink/certilink-api/internal/chain"
	"github.com/certilink/certilink-api/internal/dto"
	"github.com/certilink/certilink-api/internal/models"
	appErrors "github.com/certilink/certilink-api/pkg/errors"
	"github.com/certilink/certilink-api/pkg/storage"
)

type mockCertificateRepo struct {
	byUUID  map[string]*models.Certificate
	created []*models.Certificate
}

func (m *mockCertificateRepo) FindByUUID(ctx context.Context, certUUID string) (*models.Certificate, error) {
	cert, ok := m.byUUID[certUUID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cert, nil
}

func (m *mockCertificateRepo) Create(ctx context.Context, cert *models.Certificate) error {
	cert.ID = "cert-new"
	m.created = append(m.created, cert)
	if m.byUUID == nil {
		m.byUUID = make(map[string]*models.Certificate)
	}
	m.byUUID[cert.UUID] = cert
	return nil
}

func (m *mockCertificateRepo) ListByInstitution(ctx context.Context, institutionID string) ([]models.Certificate, error) {
	var out []models.Certificate
	for _, cert := range m.byUUID {
		if cert.InstitutionID == institutionID {
			out = append(out, *cert)
		}
	}
	return out, nil
}

type mockChainReader struct {
	attestation *chain.Attestation
	err         error
	calls       int
}

func (m *mockChainReader) Lookup(ctx context.Context, certUUID string) (*chain.Attestation, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.attestation, nil
}

type mockPDFStorage struct {
	saved map[string][]byte
}

func (m *mockPDFStorage) SaveStream(institutionID, docType, originalName string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	path := institutionID + "/" + docType + "_" + originalName
	m.saved[path] = data
	return path, nil
}

type mockChainObserver struct {
	outcomes []string
}

func (m *mockChainObserver) ObserveChainLookup(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

func newTestCertificateService(repo *mockCertificateRepo, institutions *mockInstitutionRepo, chainClient *mockChainReader, observer *mockChainObserver) *CertificateService {
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewCertificateService(repo, institutions, chainClient, &mockCache{}, &mockPDFStorage{}, signer, observer, validator.New(), zap.NewNop(), CertificateConfig{
		ChainTimeout: time.Second,
		CacheTTL:     time.Minute,
	})
}

func seededCertificate(certUUID string) *models.Certificate {
	path := "inst-1/certificate_" + certUUID + ".pdf"
	return &models.Certificate{
		ID:            "cert-1",
		UUID:          certUUID,
		InstitutionID: "inst-1",
		LearnerName:   "Jane Doe",
		Title:         "Licence en Informatique",
		IssueDate:     time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		Status:        models.CertificateIssued,
		PDFPath:       &path,
	}
}

func TestGetByUUIDReturnsView(t *testing.T) {
	certUUID := uuid.NewString()
	repo := &mockCertificateRepo{byUUID: map[string]*models.Certificate{certUUID: seededCertificate(certUUID)}}
	institutions := &mockInstitutionRepo{byID: map[string]*models.Institution{
		"inst-1": {ID: "inst-1", Name: "ENS Yaounde", Status: models.InstitutionActive},
	}}
	svc := newTestCertificateService(repo, institutions, &mockChainReader{}, &mockChainObserver{})

	view, err := svc.GetByUUID(context.Background(), certUUID)
	require.NoError(t, err)
	assert.Equal(t, certUUID, view.UUID)
	assert.Equal(t, "ENS Yaounde", view.Institution)
	require.NotNil(t, view.PDFURL)
	assert.Contains(t, *view.PDFURL, "/certificats/files/")
}

func TestGetByUUIDUnknownCertificate(t *testing.T) {
	svc := newTestCertificateService(&mockCertificateRepo{}, &mockInstitutionRepo{}, &mockChainReader{}, &mockChainObserver{})

	_, err := svc.GetByUUID(context.Background(), uuid.NewString())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGetByUUIDMalformedIdentifier(t *testing.T) {
	svc := newTestCertificateService(&mockCertificateRepo{}, &mockInstitutionRepo{}, &mockChainReader{}, &mockChainObserver{})

	_, err := svc.GetByUUID(context.Background(), "abc-123")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestOnchainProofConfirmed(t *testing.T) {
	certUUID := uuid.NewString()
	repo := &mockCertificateRepo{byUUID: map[string]*models.Certificate{certUUID: seededCertificate(certUUID)}}
	chainClient := &mockChainReader{attestation: &chain.Attestation{
		Issuer:          "ENS Yaounde",
		Student:         "Jane Doe",
		IssuedAt:        time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		TxHash:          "0xabc",
		ContractAddress: "0xcontract",
	}}
	observer := &mockChainObserver{}
	svc := newTestCertificateService(repo, &mockInstitutionRepo{}, chainClient, observer)

	proof, err := svc.OnchainProof(context.Background(), certUUID)
	require.NoError(t, err)
	assert.True(t, proof.Onchain)
	assert.Equal(t, "0xabc", proof.TxHash)
	assert.Equal(t, []string{"confirmed"}, observer.outcomes)
}

func TestOnchainProofDegradesToFalse(t *testing.T) {
	certUUID := uuid.NewString()

	cases := []struct {
		name    string
		err     error
		outcome string
	}{
		{"gateway error", errors.New("connection refused"), "error"},
		{"not anchored", chain.ErrNotAnchored, "not_anchored"},
		{"timeout", context.DeadlineExceeded, "error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockCertificateRepo{byUUID: map[string]*models.Certificate{certUUID: seededCertificate(certUUID)}}
			observer := &mockChainObserver{}
			svc := newTestCertificateService(repo, &mockInstitutionRepo{}, &mockChainReader{err: tc.err}, observer)

			proof, err := svc.OnchainProof(context.Background(), certUUID)
			require.NoError(t, err)
			assert.False(t, proof.Onchain)
			assert.Empty(t, proof.TxHash)
			assert.Equal(t, []string{tc.outcome}, observer.outcomes)
		})
	}
}

func TestOnchainProofUnknownCertificateIs404(t *testing.T) {
	chainClient := &mockChainReader{}
	svc := newTestCertificateService(&mockCertificateRepo{}, &mockInstitutionRepo{}, chainClient, &mockChainObserver{})

	_, err := svc.OnchainProof(context.Background(), uuid.NewString())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Zero(t, chainClient.calls)
}

func TestIssueRequiresActiveInstitution(t *testing.T) {
	repo := &mockCertificateRepo{}
	institutions := &mockInstitutionRepo{byID: map[string]*models.Institution{
		"inst-1": {ID: "inst-1", Name: "ENS Yaounde", Status: models.InstitutionSuspended},
	}}
	svc := newTestCertificateService(repo, institutions, &mockChainReader{}, &mockChainObserver{})

	_, err := svc.Issue(context.Background(), "inst-1", dto.IssueCertificateRequest{LearnerName: "Jane Doe", Title: "Licence"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestIssueCreatesCertificateWithPDF(t *testing.T) {
	repo := &mockCertificateRepo{}
	institutions := &mockInstitutionRepo{byID: map[string]*models.Institution{
		"inst-1": {ID: "inst-1", Name: "ENS Yaounde", Status: models.InstitutionActive},
	}}
	svc := newTestCertificateService(repo, institutions, &mockChainReader{}, &mockChainObserver{})

	cert, err := svc.Issue(context.Background(), "inst-1", dto.IssueCertificateRequest{LearnerName: "Jane Doe", Title: "Licence en Informatique"})
	require.NoError(t, err)
	assert.NotEmpty(t, cert.UUID)
	assert.Equal(t, models.CertificateIssued, cert.Status)
	require.NotNil(t, cert.PDFPath)
	require.NotNil(t, cert.PDFHash)
	assert.Len(t, *cert.PDFHash, 64)
	require.Len(t, repo.created, 1)
}

func TestResolveDownloadRoundTrip(t *testing.T) {
	certUUID := uuid.NewString()
	cert := seededCertificate(certUUID)
	repo := &mockCertificateRepo{byUUID: map[string]*models.Certificate{certUUID: cert}}
	institutions := &mockInstitutionRepo{byID: map[string]*models.Institution{
		"inst-1": {ID: "inst-1", Name: "ENS Yaounde"},
	}}
	svc := newTestCertificateService(repo, institutions, &mockChainReader{}, &mockChainObserver{})

	view, err := svc.GetByUUID(context.Background(), certUUID)
	require.NoError(t, err)
	require.NotNil(t, view.PDFURL)

	token := (*view.PDFURL)[len("/certificats/files/"):]
	relPath, err := svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, *cert.PDFPath, relPath)
}

func TestResolveDownloadRejectsTamperedToken(t *testing.T) {
	svc := newTestCertificateService(&mockCertificateRepo{}, &mockInstitutionRepo{}, &mockChainReader{}, &mockChainObserver{})

	_, err := svc.ResolveDownload(context.Background(), "a.b.c.d")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Status, appErrors.FromError(err).Status)
}
