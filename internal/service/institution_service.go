package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/certilink/certilink-api/internal/dto"
	"github.com/certilink/certilink-api/internal/models"
	appErrors "github.com/certilink/certilink-api/pkg/errors"
)

const publicInstitutionsCacheKey = "institutions:public"

type institutionRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Institution, error)
	FindByID(ctx context.Context, id string) (*models.Institution, error)
	Create(ctx context.Context, inst *models.Institution) error
	UpdateStatus(ctx context.Context, id string, status models.InstitutionStatus, updatedAt time.Time) (int64, error)
	List(ctx context.Context) ([]models.Institution, error)
}

type documentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, id string) (*models.Document, error)
	ListByInstitution(ctx context.Context, institutionID string) ([]models.Document, error)
	MarkAllValid(ctx context.Context, institutionID string, validatedAt time.Time) error
	StampComments(ctx context.Context, institutionID, comments string, validatedAt time.Time) error
}

type listCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string)
}

// DocumentInput is one document submitted with a registration, already
// validated and (when physical) already stored.
type DocumentInput struct {
	Type             models.DocumentType
	OriginalFilename string
	MimeType         string
	SizeBytes        int64
	StorageLocator   string
}

// InstitutionService owns the institution lifecycle: registration into
// PENDING, admin status transitions, and the listings around them.
type InstitutionService struct {
	repo      institutionRepository
	documents documentRepository
	cache     listCache
	validator *validator.Validate
	logger    *zap.Logger
	listTTL   time.Duration
}

// NewInstitutionService constructs an InstitutionService instance.
func NewInstitutionService(repo institutionRepository, documents documentRepository, cache listCache, validate *validator.Validate, logger *zap.Logger, listTTL time.Duration) *InstitutionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if listTTL <= 0 {
		listTTL = 5 * time.Minute
	}
	return &InstitutionService{
		repo:      repo,
		documents: documents,
		cache:     cache,
		validator: validate,
		logger:    logger,
		listTTL:   listTTL,
	}
}

// Register creates an institution in PENDING state. Document rows are
// best-effort metadata: a failure to persist one is logged and swallowed so
// the registration itself still succeeds; the reviewing admin will see the
// gap either way.
func (s *InstitutionService) Register(ctx context.Context, req dto.RegisterInstitutionRequest, documents []DocumentInput) (*models.Institution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "missing or invalid registration fields")
	}

	category, ok := models.ParseCategory(req.Category)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown institution category")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "an institution with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	inst := &models.Institution{
		Name:               req.Name,
		Email:              req.Email,
		PasswordHash:       string(hash),
		RegistrationNumber: req.RegistrationNumber,
		Category:           category,
		Address:            req.Address,
		Phone:              req.Phone,
		RepName:            req.RepName,
		RepEmail:           req.RepEmail,
		RepPhone:           req.RepPhone,
		Status:             models.InstitutionPending,
	}
	if err := s.repo.Create(ctx, inst); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create institution")
	}

	for _, input := range documents {
		doc := &models.Document{
			InstitutionID:    inst.ID,
			Type:             input.Type,
			OriginalFilename: input.OriginalFilename,
			MimeType:         input.MimeType,
			SizeBytes:        input.SizeBytes,
			StorageLocator:   input.StorageLocator,
			Status:           models.DocumentPending,
		}
		if err := s.documents.Create(ctx, doc); err != nil {
			s.logger.Warn("failed to persist document metadata",
				zap.String("institution_id", inst.ID),
				zap.String("doc_type", string(input.Type)),
				zap.Error(err))
			continue
		}
		inst.Documents = append(inst.Documents, *doc)
	}

	s.cache.Invalidate(ctx, publicInstitutionsCacheKey)

	inst.PasswordHash = ""
	return inst, nil
}

// SetStatus transitions an institution. ACTIVE stamps every owned document
// VALID; REJECTED or SUSPENDED with comments stamps the comments and the
// validation timestamp instead. Repeating a transition only moves the
// document timestamps forward.
func (s *InstitutionService) SetStatus(ctx context.Context, id, statusRaw string, comments *string) (*models.Institution, error) {
	if !models.ValidInstitutionStatus(statusRaw) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid institution status")
	}
	status := models.InstitutionStatus(statusRaw)

	now := time.Now().UTC()
	affected, err := s.repo.UpdateStatus(ctx, id, status, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
	}

	switch status {
	case models.InstitutionActive:
		if err := s.documents.MarkAllValid(ctx, id, now); err != nil {
			s.logger.Warn("failed to mark documents valid", zap.String("institution_id", id), zap.Error(err))
		}
	case models.InstitutionRejected, models.InstitutionSuspended:
		if comments != nil && *comments != "" {
			if err := s.documents.StampComments(ctx, id, *comments, now); err != nil {
				s.logger.Warn("failed to stamp reviewer comments", zap.String("institution_id", id), zap.Error(err))
			}
		}
	}

	s.cache.Invalidate(ctx, publicInstitutionsCacheKey)

	inst, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload institution")
	}
	inst.PasswordHash = ""
	return inst, nil
}

// List returns every institution with nested document metadata, newest
// first. Admin-only; the public variant strips nothing extra today but is
// cached and reachable without authentication.
func (s *InstitutionService) List(ctx context.Context) ([]models.Institution, error) {
	institutions, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list institutions")
	}
	for i := range institutions {
		institutions[i].PasswordHash = ""
		docs, err := s.documents.ListByInstitution(ctx, institutions[i].ID)
		if err != nil {
			s.logger.Warn("failed to load documents", zap.String("institution_id", institutions[i].ID), zap.Error(err))
			continue
		}
		institutions[i].Documents = docs
	}
	return institutions, nil
}

// PublicList is the unauthenticated listing, served from cache when warm.
func (s *InstitutionService) PublicList(ctx context.Context) ([]models.Institution, error) {
	var cached []models.Institution
	if err := s.cache.Get(ctx, publicInstitutionsCacheKey, &cached); err == nil {
		return cached, nil
	}

	institutions, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, publicInstitutionsCacheKey, institutions, s.listTTL); err != nil {
		s.logger.Warn("failed to cache public institution list", zap.Error(err))
	}
	return institutions, nil
}

// Documents lists the document metadata rows of one institution.
func (s *InstitutionService) Documents(ctx context.Context, institutionID string) ([]models.Document, error) {
	if _, err := s.repo.FindByID(ctx, institutionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institution")
	}
	docs, err := s.documents.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// Document loads one document's metadata row.
func (s *InstitutionService) Document(ctx context.Context, docID string) (*models.Document, error) {
	doc, err := s.documents.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return doc, nil
}
