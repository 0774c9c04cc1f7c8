package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-pickup/internal/models"
)

// ProfileRepository manages rows of the profiles table. Calls run as the user
// carried by the context.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts the profile created alongside a new account.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO profiles (id, name, email, role, created_at) VALUES (:id, :name, :email, :role, :created_at)`
	err := asUser(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, query, profile)
		return err
	})
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// FindByID fetches the profile of a user. sql.ErrNoRows is returned as is.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	const query = `SELECT id, name, email, role, created_at FROM profiles WHERE id = $1`
	var profile models.Profile
	err := asUser(ctx, r.db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &profile, query, id)
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
