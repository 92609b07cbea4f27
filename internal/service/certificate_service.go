package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/certilink/certilink-api/internal/chain"
	"github.com/certilink/certilink-api/internal/dto"
	"github.com/certilink/certilink-api/internal/models"
	appErrors "github.com/certilink/certilink-api/pkg/errors"
	"github.com/certilink/certilink-api/pkg/export"
)

type certificateRepository interface {
	FindByUUID(ctx context.Context, certUUID string) (*models.Certificate, error)
	Create(ctx context.Context, cert *models.Certificate) error
	ListByInstitution(ctx context.Context, institutionID string) ([]models.Certificate, error)
}

type certificateInstitutionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Institution, error)
}

type chainReader interface {
	Lookup(ctx context.Context, certUUID string) (*chain.Attestation, error)
}

type certificateCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string)
}

type pdfStorage interface {
	SaveStream(institutionID, docType, originalName string, r io.Reader) (string, error)
}

type downloadSigner interface {
	Generate(resourceID, relPath string) (string, time.Time, error)
	Parse(token string) (resourceID, relPath string, expiresAt time.Time, err error)
}

type chainLookupObserver interface {
	ObserveChainLookup(outcome string)
}

// CertificateConfig bounds the verification paths.
type CertificateConfig struct {
	ChainTimeout time.Duration
	CacheTTL     time.Duration
}

// CertificateService issues certificates and serves the public verification
// endpoints. The chain gateway is consulted on a best-effort basis only;
// every failure mode on that path collapses into an onchain:false answer so
// the off-chain record stays authoritative.
type CertificateService struct {
	repo         certificateRepository
	institutions certificateInstitutionRepository
	chain        chainReader
	cache        certificateCache
	storage      pdfStorage
	signer       downloadSigner
	renderer     *export.CertificatePDF
	metrics      chainLookupObserver
	validator    *validator.Validate
	logger       *zap.Logger
	config       CertificateConfig
}

// NewCertificateService constructs a CertificateService instance.
func NewCertificateService(
	repo certificateRepository,
	institutions certificateInstitutionRepository,
	chainClient chainReader,
	cache certificateCache,
	store pdfStorage,
	signer downloadSigner,
	metrics chainLookupObserver,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg CertificateConfig,
) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ChainTimeout <= 0 {
		cfg.ChainTimeout = 5 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &CertificateService{
		repo:         repo,
		institutions: institutions,
		chain:        chainClient,
		cache:        cache,
		storage:      store,
		signer:       signer,
		renderer:     export.NewCertificatePDF(),
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		config:       cfg,
	}
}

func certificateCacheKey(certUUID string) string {
	return "certificates:view:" + certUUID
}

// GetByUUID resolves a certificate by its public identifier. Anyone holding
// the UUID may call this; there is no authentication on the verification
// path.
func (s *CertificateService) GetByUUID(ctx context.Context, certUUID string) (*dto.CertificateView, error) {
	if _, err := uuid.Parse(certUUID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid certificate identifier")
	}

	key := certificateCacheKey(certUUID)
	if s.cache != nil {
		var cached dto.CertificateView
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("certificate cache read failed", zap.String("uuid", certUUID), zap.Error(err))
		}
	}

	cert, err := s.repo.FindByUUID(ctx, certUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}

	view := s.toView(ctx, cert)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, view, s.config.CacheTTL); err != nil {
			s.logger.Warn("certificate cache write failed", zap.String("uuid", certUUID), zap.Error(err))
		}
	}
	return view, nil
}

func (s *CertificateService) toView(ctx context.Context, cert *models.Certificate) *dto.CertificateView {
	view := &dto.CertificateView{
		UUID:            cert.UUID,
		Title:           cert.Title,
		Mention:         cert.Mention,
		IssueDate:       cert.IssueDate,
		Status:          string(cert.Status),
		PDFHash:         cert.PDFHash,
		TxHash:          cert.TxHash,
		ContractAddress: cert.ContractAddress,
	}

	if inst, err := s.institutions.FindByID(ctx, cert.InstitutionID); err == nil {
		view.Institution = inst.Name
	} else {
		s.logger.Warn("issuer lookup failed", zap.String("institution_id", cert.InstitutionID), zap.Error(err))
	}

	if cert.PDFPath != nil && *cert.PDFPath != "" && s.signer != nil {
		if token, _, err := s.signer.Generate(cert.UUID, *cert.PDFPath); err == nil {
			downloadURL := "/certificats/files/" + token
			view.PDFURL = &downloadURL
		} else {
			s.logger.Warn("pdf url signing failed", zap.String("uuid", cert.UUID), zap.Error(err))
		}
	}
	return view
}

// OnchainProof reports whether the anchoring gateway confirms the
// certificate. The certificate must exist off-chain first; after that, any
// gateway failure, timeout, or missing record yields onchain:false rather
// than an error.
func (s *CertificateService) OnchainProof(ctx context.Context, certUUID string) (*dto.OnchainProof, error) {
	cert, err := s.repo.FindByUUID(ctx, certUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.config.ChainTimeout)
	defer cancel()

	att, err := s.chain.Lookup(lookupCtx, cert.UUID)
	if err != nil {
		outcome := "error"
		if errors.Is(err, chain.ErrNotAnchored) {
			outcome = "not_anchored"
			s.logger.Debug("certificate not anchored", zap.String("uuid", cert.UUID))
		} else {
			s.logger.Warn("chain lookup failed", zap.String("uuid", cert.UUID), zap.Error(err))
		}
		s.observeChain(outcome)
		return &dto.OnchainProof{Onchain: false}, nil
	}

	s.observeChain("confirmed")
	issuedAt := att.IssuedAt
	return &dto.OnchainProof{
		Onchain:         true,
		Issuer:          att.Issuer,
		Student:         att.Student,
		IssuedAt:        &issuedAt,
		TxHash:          att.TxHash,
		ContractAddress: att.ContractAddress,
	}, nil
}

func (s *CertificateService) observeChain(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveChainLookup(outcome)
	}
}

// Issue creates a certificate for an ACTIVE institution, renders its PDF and
// records the file hash. Rendering or storage failures abort the issuance so
// a certificate row never exists without its document.
func (s *CertificateService) Issue(ctx context.Context, institutionID string, req dto.IssueCertificateRequest) (*models.Certificate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "missing or invalid certificate fields")
	}

	inst, err := s.institutions.FindByID(ctx, institutionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institution")
	}
	if inst.Status != models.InstitutionActive {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only active institutions can issue certificates")
	}

	issueDate := time.Now().UTC()
	if req.IssueDate != nil {
		issueDate = req.IssueDate.UTC()
	}

	cert := &models.Certificate{
		UUID:          uuid.NewString(),
		InstitutionID: inst.ID,
		LearnerName:   req.LearnerName,
		Title:         req.Title,
		Mention:       req.Mention,
		IssueDate:     issueDate,
		Status:        models.CertificateIssued,
	}

	mention := ""
	if req.Mention != nil {
		mention = *req.Mention
	}
	pdfBytes, err := s.renderer.Render(export.CertificateData{
		UUID:        cert.UUID,
		Institution: inst.Name,
		LearnerName: cert.LearnerName,
		Title:       cert.Title,
		Mention:     mention,
		IssueDate:   issueDate.Format("2006-01-02"),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}

	path, err := s.storage.SaveStream(inst.ID, "certificate", cert.UUID+".pdf", bytes.NewReader(pdfBytes))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store certificate pdf")
	}
	sum := sha256.Sum256(pdfBytes)
	hash := hex.EncodeToString(sum[:])
	cert.PDFPath = &path
	cert.PDFHash = &hash

	if err := s.repo.Create(ctx, cert); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create certificate")
	}

	s.logger.Info("certificate issued",
		zap.String("uuid", cert.UUID),
		zap.String("institution_id", inst.ID),
		zap.String("learner_name", cert.LearnerName))
	return cert, nil
}

// ListByInstitution returns the certificates an institution has issued.
func (s *CertificateService) ListByInstitution(ctx context.Context, institutionID string) ([]models.Certificate, error) {
	certs, err := s.repo.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certificates")
	}
	return certs, nil
}

// ResolveDownload validates a signed download token and returns the relative
// storage path to stream. The resourceID embedded in the token must match an
// existing certificate.
func (s *CertificateService) ResolveDownload(ctx context.Context, token string) (string, error) {
	if s.signer == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "download tokens not supported")
	}
	certUUID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	if _, err := s.repo.FindByUUID(ctx, certUUID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	return relPath, nil
}
