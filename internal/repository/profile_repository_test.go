package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-pickup/internal/models"
)

func TestProfileRepositoryCreate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewProfileRepository(sqlx.NewDb(db, "sqlmock"))

	ctx := WithClaims(context.Background(), Claims{Subject: "u1", Email: "ana@x.com"})
	expectUserScope(mock, `{"sub":"u1","email":"ana@x.com","role":"authenticated"}`)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles (id, name, email, role, created_at)")).
		WithArgs("u1", "Ana", "ana@x.com", models.RoleTeacher, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	profile := &models.Profile{ID: "u1", Name: "Ana", Email: "ana@x.com", Role: models.RoleTeacher}
	require.NoError(t, repo.Create(ctx, profile))
	assert.False(t, profile.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryCreateError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewProfileRepository(sqlx.NewDb(db, "sqlmock"))

	ctx := WithClaims(context.Background(), Claims{Subject: "u2"})
	expectUserScope(mock, `{"sub":"u2","role":"authenticated"}`)
	mock.ExpectExec("INSERT INTO profiles").WillReturnError(errors.New(`new row violates row-level security policy for table "profiles"`))
	mock.ExpectRollback()

	err = repo.Create(ctx, &models.Profile{ID: "u1", Role: models.RoleParent})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row-level security")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryFindByID(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewProfileRepository(sqlx.NewDb(db, "sqlmock"))

	rows := sqlmock.NewRows([]string{"id", "name", "email", "role", "created_at"}).
		AddRow("u1", "Ana", "ana@x.com", "teacher", time.Now())
	expectUserScope(mock, `{"sub":"u1","role":"authenticated"}`)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, role, created_at FROM profiles WHERE id = $1")).
		WithArgs("u1").
		WillReturnRows(rows)
	mock.ExpectCommit()

	profile, err := repo.FindByID(WithClaims(context.Background(), Claims{Subject: "u1"}), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, profile.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}
