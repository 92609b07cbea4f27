package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/certilink/certilink-api/internal/dto"
	"github.com/certilink/certilink-api/internal/models"
	appErrors "github.com/certilink/certilink-api/pkg/errors"
)

type learnerRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Learner, error)
	Create(ctx context.Context, learner *models.Learner) error
	CreateLinkage(ctx context.Context, linkage *models.Linkage) error
	ListLinkagesByLearner(ctx context.Context, learnerID string) ([]models.Linkage, error)
}

type activeInstitutionFinder interface {
	FindActiveByName(ctx context.Context, name string) (*models.Institution, error)
}

// LearnerService registers learner accounts and creates their institution
// linkage requests.
type LearnerService struct {
	repo         learnerRepository
	institutions activeInstitutionFinder
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewLearnerService constructs a LearnerService instance.
func NewLearnerService(repo learnerRepository, institutions activeInstitutionFinder, validate *validator.Validate, logger *zap.Logger) *LearnerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LearnerService{repo: repo, institutions: institutions, validator: validate, logger: logger}
}

// Register creates a learner account and, for each selected institution
// name, a pending linkage. Linkage creation is a best-effort convenience:
// names that do not resolve to an ACTIVE institution at this moment are
// silently skipped and never retried later.
func (s *LearnerService) Register(ctx context.Context, req dto.RegisterLearnerRequest) (*models.Learner, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "missing or invalid registration fields")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "a learner with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	learner := &models.Learner{
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Surname:      req.Surname,
		Status:       models.LearnerActive,
	}
	if req.Phone != "" {
		learner.Phone = &req.Phone
	}
	if err := s.repo.Create(ctx, learner); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create learner")
	}

	for _, name := range req.Institutions {
		s.createLinkage(ctx, learner, name)
	}

	learner.PasswordHash = ""
	return learner, nil
}

// createLinkage looks up the institution by exact name restricted to ACTIVE
// status. Names are not unique; the first match wins.
func (s *LearnerService) createLinkage(ctx context.Context, learner *models.Learner, institutionName string) {
	inst, err := s.institutions.FindActiveByName(ctx, institutionName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("no active institution for linkage, skipping",
				zap.String("learner_id", learner.ID),
				zap.String("institution_name", institutionName))
			return
		}
		s.logger.Warn("institution lookup for linkage failed",
			zap.String("institution_name", institutionName),
			zap.Error(err))
		return
	}

	linkage := &models.Linkage{
		LearnerID:     learner.ID,
		InstitutionID: inst.ID,
		Message:       fmt.Sprintf("%s %s requested to join %s at signup", learner.Name, learner.Surname, inst.Name),
		Status:        models.LinkagePending,
	}
	if err := s.repo.CreateLinkage(ctx, linkage); err != nil {
		s.logger.Warn("failed to create linkage",
			zap.String("learner_id", learner.ID),
			zap.String("institution_id", inst.ID),
			zap.Error(err))
	}
}

// Linkages returns the linkage requests a learner has open.
func (s *LearnerService) Linkages(ctx context.Context, learnerID string) ([]models.Linkage, error) {
	linkages, err := s.repo.ListLinkagesByLearner(ctx, learnerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list linkages")
	}
	return linkages, nil
}
