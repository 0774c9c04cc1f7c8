package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-pickup/internal/dto"
	"github.com/noah-isme/sma-pickup/internal/models"
	"github.com/noah-isme/sma-pickup/internal/repository"
)

type appFixture struct {
	app      *AppService
	deps     AppDeps
	api      *fakeAuthAPI
	students *mockStudentRepo
}

func newAppFixture(t *testing.T, notificationsEnabled bool) *appFixture {
	t.Helper()
	api := &fakeAuthAPI{signInSession: backendSession("t1", "a1", time.Now().Add(time.Hour), "teacher")}
	storage := repository.NewStorageRepository(nil, nil)
	auth := NewAuthStateService(api, storage, nil, AuthStateConfig{}, nil)
	sessions := NewSessionStore(auth, &fakeProfileRepo{}, 0, nil)
	studentRepo := newMockStudentRepo(models.Student{ID: "s1", Name: "Ana", Status: models.StudentStatusPresent})
	students := NewStudentService(studentRepo, nil, nil, nil, nil)
	notifications := NewNotificationService(NewLogNotifier(nil, 0), NotificationConfig{Enabled: notificationsEnabled}, nil, nil)

	deps := AppDeps{
		Auth:          auth,
		Sessions:      sessions,
		Onboarding:    NewOnboardingService(models.DefaultSlides(), storage, false, nil, nil),
		AuthFlow:      NewAuthFlowService(sessions, nil, nil),
		Navigator:     NewNavigator(),
		Students:      students,
		Pickup:        NewPickupService(students, notifications),
		Chat:          NewChatService([]string{"João"}),
		Notifications: notifications,
	}
	app := NewAppService(deps, nil)
	app.Boot(context.Background())
	return &appFixture{app: app, deps: deps, api: api, students: studentRepo}
}

func TestAppStateGates(t *testing.T) {
	f := newAppFixture(t, true)
	ctx := context.Background()

	state := f.app.State(ctx)
	assert.Equal(t, dto.GateOnboarding, state.Gate)
	require.NotNil(t, state.Onboarding)
	assert.Nil(t, state.Alert)

	f.deps.Onboarding.Skip(ctx)
	state = f.app.State(ctx)
	assert.Equal(t, dto.GateAuth, state.Gate)
	require.NotNil(t, state.Auth)
	assert.Equal(t, AuthModeSignIn, state.Auth.Mode)

	_, err := f.deps.Sessions.SignInPassword(ctx, "t1@x.com", "pw")
	require.NoError(t, err)
	state = f.app.State(ctx)
	assert.Equal(t, dto.GateMain, state.Gate)
	require.NotNil(t, state.Main)
	assert.Equal(t, models.ScreenTeacherDashboard, state.Main.View.Screen)
	assert.Equal(t, models.RoleTeacher, state.Session.Role)

	require.NoError(t, f.deps.Sessions.SignOut(ctx))
	assert.Equal(t, dto.GateAuth, f.app.State(ctx).Gate, "onboarding never comes back")
}

func TestAppResetsScreenStateOnSessionChange(t *testing.T) {
	f := newAppFixture(t, true)
	ctx := context.Background()
	f.deps.Onboarding.Skip(ctx)

	session, err := f.deps.Sessions.SignInPassword(ctx, "t1@x.com", "pw")
	require.NoError(t, err)
	_, err = f.deps.Students.List(ctx, session)
	require.NoError(t, err)
	require.NoError(t, f.deps.Navigator.Navigate(session.Role, models.ScreenStudentManagement))
	require.NoError(t, f.deps.Chat.Open("chat-1"))

	require.NoError(t, f.deps.Sessions.SignOut(ctx))

	assert.Empty(t, f.deps.Students.Students())
	assert.Equal(t, models.ScreenTeacherDashboard, f.deps.Navigator.View(models.RoleTeacher).Screen)
	assert.Empty(t, f.deps.Chat.ActiveID())
}

func TestAppPermissionDeniedAlert(t *testing.T) {
	f := newAppFixture(t, false)
	state := f.app.State(context.Background())
	require.NotNil(t, state.Alert)
	assert.Equal(t, PermissionDeniedAlert, *state.Alert)
}
