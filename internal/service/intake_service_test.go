package service

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/certilink/certilink-api/internal/models"
	appErrors "github.com/certilink/certilink-api/pkg/errors"
)

type mockUploadStorage struct {
	saved     []string
	deleted   []string
	relocated map[string]string
	relocErr  error
}

func (m *mockUploadStorage) SaveStream(institutionID, docType, originalName string, r io.Reader) (string, error) {
	path := institutionID + "/" + docType + "_" + originalName
	m.saved = append(m.saved, path)
	return path, nil
}

func (m *mockUploadStorage) Relocate(tempID, realID string) (map[string]string, error) {
	if m.relocErr != nil {
		return nil, m.relocErr
	}
	return m.relocated, nil
}

func (m *mockUploadStorage) Delete(relPath string) error {
	m.deleted = append(m.deleted, relPath)
	return nil
}

type mockLocatorUpdater struct {
	updates map[string]string
}

func (m *mockLocatorUpdater) UpdateLocator(ctx context.Context, id, locator string) error {
	if m.updates == nil {
		m.updates = make(map[string]string)
	}
	m.updates[id] = locator
	return nil
}

func newTestIntakeService(store *mockUploadStorage, docs *mockLocatorUpdater) *IntakeService {
	return NewIntakeService(store, docs, nil, zap.NewNop(), IntakeConfig{MaxFileSize: 5 * 1024 * 1024, MaxFiles: 5})
}

func TestValidateFileTable(t *testing.T) {
	svc := newTestIntakeService(&mockUploadStorage{}, &mockLocatorUpdater{})
	category := models.CategoryPublicUniversity

	cases := []struct {
		name     string
		docType  models.DocumentType
		filename string
		mime     string
		size     int64
		wantErr  bool
	}{
		{"pdf decree ok", models.DocCreationDecree, "decree.pdf", "application/pdf", 1024, false},
		{"jpeg id ok", models.DocRepresentativeID, "card.jpg", "image/jpeg", 2048, false},
		{"jpeg alt extension ok", models.DocRepresentativeID, "card.jpeg", "image/jpeg", 2048, false},
		{"png logo ok", models.DocLogo, "logo.png", "image/png", 512, false},
		{"svg logo ok", models.DocLogo, "logo.svg", "image/svg+xml", 512, false},
		{"mime extension mismatch", models.DocCreationDecree, "decree.png", "application/pdf", 1024, true},
		{"unsupported mime", models.DocCreationDecree, "decree.docx", "application/msword", 1024, true},
		{"pdf logo rejected", models.DocLogo, "logo.pdf", "application/pdf", 512, true},
		{"image brochure rejected", models.DocBrochure, "brochure.png", "image/png", 512, true},
		{"oversized file", models.DocCreationDecree, "decree.pdf", "application/pdf", 5*1024*1024 + 1, true},
		{"exactly at limit", models.DocCreationDecree, "decree.pdf", "application/pdf", 5 * 1024 * 1024, false},
		{"field outside category", models.DocTaxpayerCard, "card.pdf", "application/pdf", 1024, true},
		{"case-insensitive extension", models.DocCreationDecree, "DECREE.PDF", "application/pdf", 1024, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.ValidateFile(category, tc.docType, tc.filename, tc.mime, tc.size)
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateCount(t *testing.T) {
	svc := newTestIntakeService(&mockUploadStorage{}, &mockLocatorUpdater{})
	assert.NoError(t, svc.ValidateCount(5))
	assert.Error(t, svc.ValidateCount(6))
}

func TestExternalDocuments(t *testing.T) {
	svc := newTestIntakeService(&mockUploadStorage{}, &mockLocatorUpdater{})

	inputs, err := svc.ExternalDocuments(models.CategoryPublicUniversity, map[string]string{
		string(models.DocCreationDecree): "https://bucket.example.com/decree.pdf",
	})
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, models.DocCreationDecree, inputs[0].Type)
	assert.Equal(t, "https://bucket.example.com/decree.pdf", inputs[0].StorageLocator)
	assert.Equal(t, "decree.pdf", inputs[0].OriginalFilename)
	assert.Zero(t, inputs[0].SizeBytes)
}

func TestExternalDocumentsRejectsNonURL(t *testing.T) {
	svc := newTestIntakeService(&mockUploadStorage{}, &mockLocatorUpdater{})

	_, err := svc.ExternalDocuments(models.CategoryPublicUniversity, map[string]string{
		string(models.DocCreationDecree): "/etc/passwd",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExternalDocumentsRejectsUnknownField(t *testing.T) {
	svc := newTestIntakeService(&mockUploadStorage{}, &mockLocatorUpdater{})

	_, err := svc.ExternalDocuments(models.CategoryPublicUniversity, map[string]string{
		"random_field": "https://bucket.example.com/file.pdf",
	})
	require.Error(t, err)
}

func TestCleanupSkipsExternalLocators(t *testing.T) {
	store := &mockUploadStorage{}
	svc := newTestIntakeService(store, &mockLocatorUpdater{})

	svc.Cleanup([]DocumentInput{
		{StorageLocator: "temp-id/creation_decree_1_decree.pdf"},
		{StorageLocator: "https://bucket.example.com/decree.pdf"},
	})
	assert.Equal(t, []string{"temp-id/creation_decree_1_decree.pdf"}, store.deleted)
}

func TestFinalizeRewritesMovedLocators(t *testing.T) {
	store := &mockUploadStorage{relocated: map[string]string{
		"temp/decree.pdf": "inst-1/decree.pdf",
	}}
	updater := &mockLocatorUpdater{}
	svc := newTestIntakeService(store, updater)

	svc.Finalize(context.Background(), "temp", "inst-1", []models.Document{
		{ID: "doc-1", StorageLocator: "temp/decree.pdf"},
		{ID: "doc-2", StorageLocator: "https://bucket.example.com/logo.png"},
	})
	assert.Equal(t, map[string]string{"doc-1": "inst-1/decree.pdf"}, updater.updates)
}

func TestFinalizeRelocationFailureKeepsTempPaths(t *testing.T) {
	store := &mockUploadStorage{relocErr: io.ErrClosedPipe}
	updater := &mockLocatorUpdater{}
	svc := newTestIntakeService(store, updater)

	svc.Finalize(context.Background(), "temp", "inst-1", []models.Document{
		{ID: "doc-1", StorageLocator: "temp/decree.pdf"},
	})
	assert.Empty(t, updater.updates)
}
