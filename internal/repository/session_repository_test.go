package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/certilink/certilink-api/internal/models"
)

func TestSessionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.Session{
		Token:       "token-1",
		PrincipalID: "inst-1",
		Role:        models.RoleInstitution,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), session))
	require.NotEmpty(t, session.ID)
	require.False(t, session.LastSeenAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindMatchesAllThreeKeys(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "token", "principal_id", "role", "expires_at", "created_at", "last_seen_at"}).
		AddRow("sess-1", "token-1", "inst-1", "institution", now.Add(time.Hour), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE token = $1 AND principal_id = $2 AND role = $3")).
		WithArgs("token-1", "inst-1", models.RoleInstitution).
		WillReturnRows(rows)

	session, err := repo.Find(context.Background(), "token-1", "inst-1", models.RoleInstitution)
	require.NoError(t, err)
	require.Equal(t, "sess-1", session.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions")).
		WithArgs("gone", "inst-1", models.RoleInstitution).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), "gone", "inst-1", models.RoleInstitution)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryDeleteExpired(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE expires_at")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	require.EqualValues(t, 3, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}
