package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/certilink/certilink-api/internal/dto"
	"github.com/certilink/certilink-api/internal/models"
	appErrors "github.com/certilink/certilink-api/pkg/errors"
)

type mockInstitutionFinder struct {
	institution *models.Institution
	err         error
}

func (m *mockInstitutionFinder) FindByEmail(ctx context.Context, email string) (*models.Institution, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.institution, nil
}

type mockLearnerFinder struct {
	learner *models.Learner
	err     error
}

func (m *mockLearnerFinder) FindByEmail(ctx context.Context, email string) (*models.Learner, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.learner, nil
}

type mockSessionRepo struct {
	sessions  map[string]*models.Session
	createErr error
	touched   bool
	deleted   []string
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.Session) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.sessions == nil {
		m.sessions = make(map[string]*models.Session)
	}
	m.sessions[session.Token] = session
	return nil
}

func (m *mockSessionRepo) Find(ctx context.Context, token, principalID string, role models.Role) (*models.Session, error) {
	s, ok := m.sessions[token]
	if !ok || s.PrincipalID != principalID || s.Role != role {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (m *mockSessionRepo) Touch(ctx context.Context, id string, seenAt time.Time) error {
	m.touched = true
	return nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	for token, s := range m.sessions {
		if s.ID == id {
			delete(m.sessions, token)
		}
	}
	return nil
}

func newTestAuthService(institutions *mockInstitutionFinder, learners *mockLearnerFinder, sessions *mockSessionRepo) *AuthService {
	return NewAuthService(institutions, learners, sessions, validator.New(), zap.NewNop(), AuthConfig{
		TokenSecret:   "secret",
		TokenExpiry:   time.Hour,
		Issuer:        "test",
		AdminEmail:    "admin@example.com",
		AdminPassword: "admin-pass",
	})
}

func TestLoginAdminSuccess(t *testing.T) {
	sessions := &mockSessionRepo{}
	svc := newTestAuthService(&mockInstitutionFinder{}, &mockLearnerFinder{}, sessions)

	res, err := svc.Login(context.Background(), dto.LoginRequest{Email: "admin@example.com", Password: "admin-pass", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, res.User.Role)
	assert.Equal(t, "admin", res.User.ID)
	assert.NotEmpty(t, res.Token)
	assert.Len(t, sessions.sessions, 1)
}

func TestLoginAdminBadCredentials(t *testing.T) {
	svc := newTestAuthService(&mockInstitutionFinder{}, &mockLearnerFinder{}, &mockSessionRepo{})

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "admin@example.com", Password: "wrong", Role: "admin"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestLoginInstitutionStatusGating(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)

	cases := []struct {
		status  models.InstitutionStatus
		wantErr bool
	}{
		{models.InstitutionActive, false},
		{models.InstitutionPending, true},
		{models.InstitutionRejected, true},
		{models.InstitutionSuspended, true},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			institutions := &mockInstitutionFinder{institution: &models.Institution{
				ID:           "inst-1",
				Name:         "ENS Yaounde",
				Email:        "ens@example.com",
				PasswordHash: string(hash),
				Status:       tc.status,
			}}
			sessions := &mockSessionRepo{}
			svc := newTestAuthService(institutions, &mockLearnerFinder{}, sessions)

			res, err := svc.Login(context.Background(), dto.LoginRequest{Email: "ens@example.com", Password: "password", Role: "institution"})
			if tc.wantErr {
				require.Error(t, err)
				appErr := appErrors.FromError(err)
				assert.Equal(t, appErrors.ErrForbidden.Status, appErr.Status)
				assert.Equal(t, string(tc.status), appErr.Details["status"])
				assert.Empty(t, sessions.sessions)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.status, res.User.Status)
			assert.Len(t, sessions.sessions, 1)
		})
	}
}

func TestLoginInstitutionWrongPasswordBeatsStatus(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	institutions := &mockInstitutionFinder{institution: &models.Institution{
		ID:           "inst-1",
		Email:        "ens@example.com",
		PasswordHash: string(hash),
		Status:       models.InstitutionPending,
	}}
	svc := newTestAuthService(institutions, &mockLearnerFinder{}, &mockSessionRepo{})

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "ens@example.com", Password: "wrong", Role: "institution"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := newTestAuthService(&mockInstitutionFinder{err: sql.ErrNoRows}, &mockLearnerFinder{}, &mockSessionRepo{})

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "nobody@example.com", Password: "password", Role: "institution"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestLoginLearnerSuccess(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	learners := &mockLearnerFinder{learner: &models.Learner{
		ID:           "learner-1",
		Email:        "jane@example.com",
		PasswordHash: string(hash),
		Name:         "Jane",
		Surname:      "Doe",
		Status:       models.LearnerActive,
	}}
	svc := newTestAuthService(&mockInstitutionFinder{}, learners, &mockSessionRepo{})

	res, err := svc.Login(context.Background(), dto.LoginRequest{Email: "jane@example.com", Password: "password", Role: "learner"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleLearner, res.User.Role)
	assert.Equal(t, "Jane Doe", res.User.Name)
}

func TestAuthenticateRequiresLiveSession(t *testing.T) {
	sessions := &mockSessionRepo{}
	svc := newTestAuthService(&mockInstitutionFinder{}, &mockLearnerFinder{}, sessions)

	res, err := svc.Login(context.Background(), dto.LoginRequest{Email: "admin@example.com", Password: "admin-pass", Role: "admin"})
	require.NoError(t, err)

	claims, err := svc.Authenticate(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.PrincipalID)
	assert.True(t, sessions.touched)

	// A signed but sessionless token must not authorize.
	require.NoError(t, svc.Logout(context.Background(), res.Token, claims))
	_, err = svc.Authenticate(context.Background(), res.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoActiveSession.Code, appErrors.FromError(err).Code)
}

func TestAuthenticateRejectsExpiredSession(t *testing.T) {
	sessions := &mockSessionRepo{}
	svc := newTestAuthService(&mockInstitutionFinder{}, &mockLearnerFinder{}, sessions)

	res, err := svc.Login(context.Background(), dto.LoginRequest{Email: "admin@example.com", Password: "admin-pass", Role: "admin"})
	require.NoError(t, err)
	sessions.sessions[res.Token].ExpiresAt = time.Now().UTC().Add(-time.Minute)

	_, err = svc.Authenticate(context.Background(), res.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoActiveSession.Code, appErrors.FromError(err).Code)
}

func TestAuthenticateRejectsForgedToken(t *testing.T) {
	svc := newTestAuthService(&mockInstitutionFinder{}, &mockLearnerFinder{}, &mockSessionRepo{})

	_, err := svc.Authenticate(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Status, appErrors.FromError(err).Status)
}

func TestLogoutMissingSessionIsNoop(t *testing.T) {
	sessions := &mockSessionRepo{}
	svc := newTestAuthService(&mockInstitutionFinder{}, &mockLearnerFinder{}, sessions)

	claims := &models.Claims{PrincipalID: "admin", Role: models.RoleAdmin}
	require.NoError(t, svc.Logout(context.Background(), "gone", claims))
	assert.Empty(t, sessions.deleted)
}

func TestLoginUnknownRoleRejected(t *testing.T) {
	svc := newTestAuthService(&mockInstitutionFinder{}, &mockLearnerFinder{}, &mockSessionRepo{})

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "x@example.com", Password: "password", Role: "superuser"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLoginInternalErrorPassthrough(t *testing.T) {
	svc := newTestAuthService(&mockInstitutionFinder{err: errors.New("db down")}, &mockLearnerFinder{}, &mockSessionRepo{})

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "x@example.com", Password: "password", Role: "institution"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
