package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-pickup/internal/models"
)

const studentColumns = "id, name, status, parent_id, birth_date, created_at"

// StudentRepository manages persistence for student records. Every call runs
// as the user carried by the context, so the table's row-level security
// decides which rows are visible.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students ordered by name, optionally restricted to one parent.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students"
	var args []interface{}
	if filter.ParentID != "" {
		query += " WHERE parent_id = $1"
		args = append(args, filter.ParentID)
	}
	query += " ORDER BY name ASC"

	students := make([]models.Student, 0)
	err := asUser(ctx, r.db, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &students, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID. sql.ErrNoRows is returned as is.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE id = $1"
	var student models.Student
	err := asUser(ctx, r.db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &student, query, id)
	})
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a student and fills in the server-assigned id and timestamp.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	const query = `INSERT INTO students (name, status, parent_id, birth_date) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := asUser(ctx, r.db, func(tx *sqlx.Tx) error {
		return tx.QueryRowxContext(ctx, query, student.Name, student.Status, student.ParentID, student.BirthDate).
			Scan(&student.ID, &student.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// UpdateStatus writes to only when the row still holds from. It reports
// whether a row was changed.
func (r *StudentRepository) UpdateStatus(ctx context.Context, id string, from, to models.StudentStatus) (bool, error) {
	const query = `UPDATE students SET status = $1 WHERE id = $2 AND status = $3`
	affected, err := r.exec(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("update student status: %w", err)
	}
	return affected > 0, nil
}

// SetStatus writes the status unconditionally (last write wins).
func (r *StudentRepository) SetStatus(ctx context.Context, id string, to models.StudentStatus) (bool, error) {
	const query = `UPDATE students SET status = $1 WHERE id = $2`
	affected, err := r.exec(ctx, query, to, id)
	if err != nil {
		return false, fmt.Errorf("set student status: %w", err)
	}
	return affected > 0, nil
}

func (r *StudentRepository) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var affected int64
	err := asUser(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}
