package service

import (
	"errors"
	"net/http"

	"github.com/lib/pq"

	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
	"github.com/noah-isme/sma-pickup/pkg/supabase"
)

// backendError turns a failure reported by the backend service into a typed
// error that keeps the backend's own message for the user.
func backendError(err error, fallback *appErrors.Error) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, supabase.ErrUnavailable) {
		return appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, appErrors.ErrBackendUnavailable.Message)
	}

	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusTooManyRequests {
			return appErrors.Wrap(err, appErrors.ErrRateLimited.Code, appErrors.ErrRateLimited.Status, apiErr.Message)
		}
		return appErrors.Wrap(err, fallback.Code, fallback.Status, apiErr.Message)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return appErrors.Wrap(err, fallback.Code, fallback.Status, pqErr.Message)
	}
	return appErrors.Wrap(err, fallback.Code, fallback.Status, err.Error())
}

// credentialsError maps a rejected password sign-in to INVALID_CREDENTIALS.
func credentialsError(err error) error {
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
		return appErrors.Wrap(err, appErrors.ErrInvalidCredentials.Code, appErrors.ErrInvalidCredentials.Status, apiErr.Message)
	}
	return backendError(err, appErrors.ErrBackend)
}

func backendOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, supabase.ErrUnavailable):
		return OutcomeUnavailable
	default:
		return OutcomeError
	}
}
