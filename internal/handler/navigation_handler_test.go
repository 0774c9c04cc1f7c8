package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-pickup/internal/middleware"
	"github.com/noah-isme/sma-pickup/internal/models"
	"github.com/noah-isme/sma-pickup/internal/service"
)

func TestNavigationHandlerTeacherFlow(t *testing.T) {
	nav := service.NewNavigator()
	handler := NewNavigationHandler(nav)
	teacher := &models.Session{UserID: "t1", Role: models.RoleTeacher}

	c, w := jsonContext(http.MethodPost, "/navigation/navigate", `{"screen":"student_management"}`)
	c.Set(middleware.ContextSessionKey, teacher)
	handler.Navigate(c)
	require.Equal(t, http.StatusOK, w.Code)

	var payload navigationPayload
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &payload))
	assert.Equal(t, models.ScreenStudentManagement, payload.View.Screen)

	c, w = jsonContext(http.MethodPost, "/navigation/back", "")
	c.Set(middleware.ContextSessionKey, teacher)
	handler.Back(c)
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["popped"])
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, models.ScreenTeacherDashboard, payload.View.Screen)
}

func TestNavigationHandlerParentCannotOpenManagement(t *testing.T) {
	handler := NewNavigationHandler(service.NewNavigator())

	c, w := jsonContext(http.MethodPost, "/navigation/navigate", `{"screen":"student_management"}`)
	c.Set(middleware.ContextSessionKey, &models.Session{UserID: "p1", Role: models.RoleParent})
	handler.Navigate(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNavigationHandlerSelectTab(t *testing.T) {
	handler := NewNavigationHandler(service.NewNavigator())

	c, w := jsonContext(http.MethodPost, "/navigation/tab", `{"tab":"chat"}`)
	c.Set(middleware.ContextSessionKey, &models.Session{UserID: "p1", Role: models.RoleParent})
	handler.SelectTab(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tab":"chat"`)

	c, w = jsonContext(http.MethodPost, "/navigation/tab", `{"tab":"profile"}`)
	c.Set(middleware.ContextSessionKey, &models.Session{UserID: "p1", Role: models.RoleParent})
	handler.SelectTab(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
