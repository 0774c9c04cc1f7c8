package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-pickup/internal/repository"
	"github.com/noah-isme/sma-pickup/internal/service"
)

func newReadyRouter(checks map[string]ReadinessCheck) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewMetricsHandler(service.NewMetricsService(), checks, repository.NewStorageRepository(nil, nil))
	r := gin.New()
	r.GET("/ready", h.Ready)
	return r
}

func TestMetricsHandlerReadyReportsStorage(t *testing.T) {
	w := httptest.NewRecorder()
	newReadyRouter(map[string]ReadinessCheck{
		"database": func(ctx context.Context) error { return nil },
	}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","session_storage_persistent":false}`, w.Body.String())
}

func TestMetricsHandlerReadyDegraded(t *testing.T) {
	w := httptest.NewRecorder()
	newReadyRouter(map[string]ReadinessCheck{
		"auth": func(ctx context.Context) error { return errors.New("auth backend unreachable") },
	}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"auth":"auth backend unreachable"},"session_storage_persistent":false}`, w.Body.String())
}
