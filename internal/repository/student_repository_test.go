package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-pickup/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "status", "parent_id", "birth_date", "created_at"})
}

func TestStudentRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := studentRows().
		AddRow("s1", "Ana", "Presente", nil, nil, time.Now()).
		AddRow("s2", "Bruno", "Ausente", "p1", time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC), time.Now())
	expectUserScope(mock, teacherClaims)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, status, parent_id, birth_date, created_at FROM students ORDER BY name ASC")).
		WillReturnRows(rows)
	mock.ExpectCommit()

	students, err := repo.List(asTeacher(), models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Ana", students[0].Name)
	assert.Nil(t, students[0].ParentID)
	require.NotNil(t, students[1].ParentID)
	assert.Equal(t, "p1", *students[1].ParentID)
	assert.Equal(t, models.StudentStatusAbsent, students[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListByParent(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	parent := WithSession(context.Background(), &models.Session{UserID: "p1", Email: "parent@x.com", Role: models.RoleParent})
	expectUserScope(mock, `{"sub":"p1","email":"parent@x.com","role":"authenticated"}`)
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE parent_id = $1 ORDER BY name ASC")).
		WithArgs("p1").
		WillReturnRows(studentRows())
	mock.ExpectCommit()

	students, err := repo.List(parent, models.StudentFilter{ParentID: "p1"})
	require.NoError(t, err)
	assert.NotNil(t, students)
	assert.Empty(t, students)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	expectUserScope(mock, teacherClaims)
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.FindByID(asTeacher(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	expectUserScope(mock, teacherClaims)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO students (name, status, parent_id, birth_date) VALUES ($1, $2, $3, $4) RETURNING id, created_at")).
		WithArgs("Ana", models.StudentStatusPresent, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("s1", created))
	mock.ExpectCommit()

	student := &models.Student{Name: "Ana", Status: models.StudentStatusPresent}
	require.NoError(t, repo.Create(asTeacher(), student))
	assert.Equal(t, "s1", student.ID)
	assert.Equal(t, created, student.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	query := regexp.QuoteMeta("UPDATE students SET status = $1 WHERE id = $2 AND status = $3")
	expectUserScope(mock, teacherClaims)
	mock.ExpectExec(query).
		WithArgs(models.StudentStatusAbsent, "s1", models.StudentStatusPresent).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectUserScope(mock, teacherClaims)
	mock.ExpectExec(query).
		WithArgs(models.StudentStatusAbsent, "s1", models.StudentStatusPresent).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	changed, err := repo.UpdateStatus(asTeacher(), "s1", models.StudentStatusPresent, models.StudentStatusAbsent)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.UpdateStatus(asTeacher(), "s1", models.StudentStatusPresent, models.StudentStatusAbsent)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySetStatus(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	expectUserScope(mock, teacherClaims)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET status = $1 WHERE id = $2")).
		WithArgs(models.StudentStatusPickupConfirmed, "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	changed, err := repo.SetStatus(asTeacher(), "s1", models.StudentStatusPickupConfirmed)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryWithoutUserNeverQueries(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	_, err := repo.List(context.Background(), models.StudentFilter{})
	assert.ErrorIs(t, err, ErrNoUserClaims)
	_, err = repo.SetStatus(context.Background(), "s1", models.StudentStatusPickupConfirmed)
	assert.ErrorIs(t, err, ErrNoUserClaims)
	assert.NoError(t, mock.ExpectationsWereMet())
}
