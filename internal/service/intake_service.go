package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/certilink/certilink-api/internal/models"
	appErrors "github.com/certilink/certilink-api/pkg/errors"
)

type uploadStorage interface {
	SaveStream(institutionID, docType, originalName string, r io.Reader) (string, error)
	Relocate(tempID, realID string) (map[string]string, error)
	Delete(relPath string) error
}

type documentLocatorUpdater interface {
	UpdateLocator(ctx context.Context, id, locator string) error
}

// mimeExtensions is the generic intake allow-list: exact MIME/extension
// pairs accepted for any document field.
var mimeExtensions = map[string][]string{
	"application/pdf": {".pdf"},
	"image/jpeg":      {".jpg", ".jpeg"},
	"image/png":       {".png"},
	"image/svg+xml":   {".svg"},
}

// fieldMIMEs narrows the generic allow-list for specific document fields.
var fieldMIMEs = map[models.DocumentType][]string{
	models.DocBrochure: {"application/pdf"},
	models.DocLogo:     {"image/jpeg", "image/png", "image/svg+xml"},
}

// IntakeConfig bounds upload size and count per request.
type IntakeConfig struct {
	MaxFileSize int64
	MaxFiles    int
}

type uploadObserver interface {
	ObserveUpload(sizeBytes int64)
}

// IntakeService validates and records uploaded or externally hosted
// registration documents. It is the sole writer under the uploads tree.
type IntakeService struct {
	storage   uploadStorage
	documents documentLocatorUpdater
	metrics   uploadObserver
	logger    *zap.Logger
	cfg       IntakeConfig
}

// NewIntakeService constructs an IntakeService instance. metrics may be nil.
func NewIntakeService(storage uploadStorage, documents documentLocatorUpdater, metrics uploadObserver, logger *zap.Logger, cfg IntakeConfig) *IntakeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 5
	}
	return &IntakeService{storage: storage, documents: documents, metrics: metrics, logger: logger, cfg: cfg}
}

// ValidateCount rejects requests carrying more files than allowed.
func (s *IntakeService) ValidateCount(n int) error {
	if n > s.cfg.MaxFiles {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d files per request", s.cfg.MaxFiles))
	}
	return nil
}

// ValidateFile checks one upload against the category's document set, the
// MIME/extension pairing and the field-scoped allow-list, and the size cap.
func (s *IntakeService) ValidateFile(category models.InstitutionCategory, docType models.DocumentType, filename, mimeType string, size int64) error {
	if !models.KnownDocumentType(category, docType) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("document field %q is not accepted for this category", docType))
	}

	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	exts, ok := mimeExtensions[mimeType]
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported file type %q", mimeType))
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !contains(exts, ext) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("extension %q does not match type %q", ext, mimeType))
	}

	if allowed, scoped := fieldMIMEs[docType]; scoped && !contains(allowed, mimeType) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("type %q is not accepted for field %q", mimeType, docType))
	}

	if size > s.cfg.MaxFileSize {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	return nil
}

// Store validates and writes one uploaded file under the owner id's
// directory (usually a temporary id while the institution row does not exist
// yet) and returns the resulting document input.
func (s *IntakeService) Store(category models.InstitutionCategory, ownerID string, docType models.DocumentType, header *multipart.FileHeader) (*DocumentInput, error) {
	if err := s.ValidateFile(category, docType, header.Filename, contentType(header), header.Size); err != nil {
		return nil, err
	}

	src, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload")
	}
	defer src.Close() //nolint:errcheck

	relPath, err := s.storage.SaveStream(ownerID, string(docType), header.Filename, src)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
	}
	if s.metrics != nil {
		s.metrics.ObserveUpload(header.Size)
	}

	return &DocumentInput{
		Type:             docType,
		OriginalFilename: header.Filename,
		MimeType:         contentType(header),
		SizeBytes:        header.Size,
		StorageLocator:   relPath,
	}, nil
}

// Finalize relocates files stored under a temporary id into the real
// institution's directory and rewrites the affected locators. Relocation
// failure is non-fatal: the temp path stays recorded and the admin review
// still finds the file there.
func (s *IntakeService) Finalize(ctx context.Context, tempID, realID string, docs []models.Document) {
	moved, err := s.storage.Relocate(tempID, realID)
	if err != nil {
		s.logger.Warn("upload relocation failed, keeping temp paths",
			zap.String("temp_id", tempID),
			zap.String("institution_id", realID),
			zap.Error(err))
	}
	for _, doc := range docs {
		newPath, ok := moved[doc.StorageLocator]
		if !ok {
			continue
		}
		if err := s.documents.UpdateLocator(ctx, doc.ID, newPath); err != nil {
			s.logger.Warn("failed to rewrite document locator",
				zap.String("document_id", doc.ID),
				zap.Error(err))
		}
	}
}

// Cleanup deletes the physical files of a failed registration attempt.
// External URLs are skipped: their storage is not ours to delete.
func (s *IntakeService) Cleanup(inputs []DocumentInput) {
	for _, input := range inputs {
		if models.IsExternalLocator(input.StorageLocator) {
			continue
		}
		if err := s.storage.Delete(input.StorageLocator); err != nil {
			s.logger.Warn("failed to delete upload during cleanup",
				zap.String("path", input.StorageLocator),
				zap.Error(err))
		}
	}
}

// ExternalDocuments validates a field-name → URL map and converts it into
// document inputs with external locators. Size is unknown for externally
// hosted files and recorded as zero.
func (s *IntakeService) ExternalDocuments(category models.InstitutionCategory, urls map[string]string) ([]DocumentInput, error) {
	if err := s.ValidateCount(len(urls)); err != nil {
		return nil, err
	}
	inputs := make([]DocumentInput, 0, len(urls))
	for field, rawURL := range urls {
		docType := models.DocumentType(field)
		if !models.KnownDocumentType(category, docType) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("document field %q is not accepted for this category", field))
		}
		if !models.IsExternalLocator(rawURL) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("document %q must be a fully-qualified URL", field))
		}
		inputs = append(inputs, DocumentInput{
			Type:             docType,
			OriginalFilename: filepath.Base(rawURL),
			SizeBytes:        0,
			StorageLocator:   rawURL,
		})
	}
	return inputs, nil
}

func contentType(header *multipart.FileHeader) string {
	return header.Header.Get("Content-Type")
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
