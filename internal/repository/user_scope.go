package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-pickup/internal/models"
)

// ErrNoUserClaims is returned when a table call is made without a signed-in
// user in the context. Such calls never reach the database.
var ErrNoUserClaims = errors.New("no user claims in context")

const (
	setRoleQuery   = `SET LOCAL ROLE authenticated`
	setClaimsQuery = `SELECT set_config('request.jwt.claims', $1, true)`
)

// Claims identify the signed-in user to the row-level security policies.
// auth.uid() reads Subject.
type Claims struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role"`
}

type claimsKey struct{}

// WithClaims returns a context whose table calls run as the given user.
func WithClaims(ctx context.Context, claims Claims) context.Context {
	if claims.Role == "" {
		claims.Role = "authenticated"
	}
	return context.WithValue(ctx, claimsKey{}, claims)
}

// WithSession returns a context whose table calls run as the session's user.
// A nil session leaves ctx unchanged.
func WithSession(ctx context.Context, session *models.Session) context.Context {
	if session == nil || session.UserID == "" {
		return ctx
	}
	return WithClaims(ctx, Claims{Subject: session.UserID, Email: session.Email})
}

// ClaimsFromContext returns the claims stored by WithClaims.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(Claims)
	if !ok || claims.Subject == "" {
		return Claims{}, false
	}
	return claims, true
}

// asUser runs fn in a transaction that has dropped to the authenticated role
// and carries the user's claims, so auth.uid() resolves for every statement.
func asUser(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return ErrNoUserClaims
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return fmt.Errorf("encode user claims: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin user transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, setRoleQuery); err != nil {
		return fmt.Errorf("set user role: %w", err)
	}
	if _, err = tx.ExecContext(ctx, setClaimsQuery, string(payload)); err != nil {
		return fmt.Errorf("set user claims: %w", err)
	}
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit user transaction: %w", err)
	}
	return nil
}
