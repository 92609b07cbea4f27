package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/certilink/certilink-api/internal/dto"
	"github.com/certilink/certilink-api/internal/models"
	appErrors "github.com/certilink/certilink-api/pkg/errors"
)

type authInstitutionRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Institution, error)
}

type authLearnerRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Learner, error)
}

type sessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	Find(ctx context.Context, token, principalID string, role models.Role) (*models.Session, error)
	Touch(ctx context.Context, id string, seenAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// AuthConfig defines configuration for authentication flows. The admin
// credential pair is fixed and provisioned out of band; it is never stored
// or hashed in the database.
type AuthConfig struct {
	TokenSecret   string
	TokenExpiry   time.Duration
	Issuer        string
	AdminEmail    string
	AdminPassword string
}

// AuthService issues signed time-boxed bearer tokens and authorizes them
// against both the signature and a live session row. Signature validity and
// session liveness are checked separately so deleting a session row forces
// logout without a token blacklist.
type AuthService struct {
	institutions authInstitutionRepository
	learners     authLearnerRepository
	sessions     sessionRepository
	validator    *validator.Validate
	logger       *zap.Logger
	config       AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(institutions authInstitutionRepository, learners authLearnerRepository, sessions sessionRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.TokenExpiry <= 0 {
		config.TokenExpiry = 24 * time.Hour
	}
	return &AuthService{
		institutions: institutions,
		learners:     learners,
		sessions:     sessions,
		validator:    validate,
		logger:       logger,
		config:       config,
	}
}

// Login authenticates a principal of the requested role and, on success,
// issues a token and records the session row in one flow. Institution logins
// are gated on lifecycle status: only ACTIVE institutions receive a token,
// every other status gets a 403 whose details carry the machine-readable
// status for the front end.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	switch models.Role(req.Role) {
	case models.RoleAdmin:
		return s.loginAdmin(ctx, req)
	case models.RoleInstitution:
		return s.loginInstitution(ctx, req)
	case models.RoleLearner:
		return s.loginLearner(ctx, req)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
}

func (s *AuthService) loginAdmin(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(req.Email), []byte(s.config.AdminEmail)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.config.AdminPassword)) == 1
	if !emailOK || !passOK {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	info := dto.PrincipalInfo{ID: "admin", Email: s.config.AdminEmail, Name: "Administrator", Role: models.RoleAdmin}
	return s.openSession(ctx, info)
}

func (s *AuthService) loginInstitution(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	inst, err := s.institutions.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch institution")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(inst.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if err := institutionStatusError(inst.Status); err != nil {
		return nil, err
	}

	info := dto.PrincipalInfo{ID: inst.ID, Email: inst.Email, Name: inst.Name, Role: models.RoleInstitution, Status: inst.Status}
	return s.openSession(ctx, info)
}

func (s *AuthService) loginLearner(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	learner, err := s.learners.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch learner")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(learner.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if learner.Status != models.LearnerActive {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrForbidden, "account is inactive"),
			map[string]string{"status": string(learner.Status)},
		)
	}

	info := dto.PrincipalInfo{ID: learner.ID, Email: learner.Email, Name: learner.Name + " " + learner.Surname, Role: models.RoleLearner}
	return s.openSession(ctx, info)
}

// institutionStatusError maps every non-ACTIVE status to its 403 response.
// The PENDING message carries the review SLA wording the front end renders.
func institutionStatusError(status models.InstitutionStatus) *appErrors.Error {
	details := map[string]string{"status": string(status)}
	switch status {
	case models.InstitutionActive:
		return nil
	case models.InstitutionPending:
		return appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrForbidden, "your registration is under review; expect a decision within 48-72h"),
			details,
		)
	case models.InstitutionRejected:
		return appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrForbidden, "your registration was rejected; see reviewer comments on your documents"),
			details,
		)
	case models.InstitutionSuspended:
		return appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrForbidden, "your account is suspended"),
			details,
		)
	default:
		return appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrForbidden, "account is inactive"),
			details,
		)
	}
}

// openSession signs a token for the principal and persists the session row
// that keeps it live.
func (s *AuthService) openSession(ctx context.Context, info dto.PrincipalInfo) (*dto.LoginResponse, error) {
	token, expiresAt, err := s.IssueToken(info)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	session := &models.Session{
		ID:          uuid.NewString(),
		Token:       token,
		PrincipalID: info.ID,
		Role:        info.Role,
		ExpiresAt:   expiresAt,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}

	return &dto.LoginResponse{
		User:      info,
		Token:     token,
		ExpiresIn: int64(s.config.TokenExpiry.Seconds()),
	}, nil
}

// IssueToken signs the principal's claims without any session side effect;
// session insertion belongs to the login flow.
func (s *AuthService) IssueToken(info dto.PrincipalInfo) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.TokenExpiry)
	claims := &models.Claims{
		PrincipalID:       info.ID,
		Role:              info.Role,
		Email:             info.Email,
		Name:              info.Name,
		InstitutionStatus: info.Status,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   info.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Authenticate validates token signature and expiry, then requires a live
// session row matching (token, principal, role). Validating a token touches
// the session's activity timestamp.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.Claims, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Find(ctx, tokenString, claims.PrincipalID, claims.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNoActiveSession
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if time.Now().UTC().After(session.ExpiresAt) {
		return nil, appErrors.ErrNoActiveSession
	}

	if err := s.sessions.Touch(ctx, session.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to touch session", zap.Error(err))
	}

	return claims, nil
}

// Logout deletes the session row bound to the token, revoking it even though
// its signature remains valid until expiry.
func (s *AuthService) Logout(ctx context.Context, tokenString string, claims *models.Claims) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	session, err := s.sessions.Find(ctx, tokenString, claims.PrincipalID, claims.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	return nil
}

func (s *AuthService) parseToken(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}
