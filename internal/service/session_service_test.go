package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-pickup/internal/models"
	"github.com/noah-isme/sma-pickup/internal/repository"
	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
	"github.com/noah-isme/sma-pickup/pkg/supabase"
)

type fakeProfileRepo struct {
	profiles  map[string]models.Profile
	created   []models.Profile
	createErr error
	findErr   error
	claims    []repository.Claims
}

func (f *fakeProfileRepo) record(ctx context.Context) {
	claims, _ := repository.ClaimsFromContext(ctx)
	f.claims = append(f.claims, claims)
}

func (f *fakeProfileRepo) Create(ctx context.Context, profile *models.Profile) error {
	f.record(ctx)
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *profile)
	if f.profiles == nil {
		f.profiles = make(map[string]models.Profile)
	}
	f.profiles[profile.ID] = *profile
	return nil
}

func (f *fakeProfileRepo) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	f.record(ctx)
	if f.findErr != nil {
		return nil, f.findErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

type sessionFixture struct {
	api      *fakeAuthAPI
	auth     *AuthStateService
	profiles *fakeProfileRepo
	store    *SessionStore
	clock    *time.Time
}

func newSessionFixture(t *testing.T, api *fakeAuthAPI, profiles *fakeProfileRepo) *sessionFixture {
	t.Helper()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	clock := &now
	auth := NewAuthStateService(api, nil, nil, AuthStateConfig{}, nil)
	auth.now = func() time.Time { return *clock }
	store := NewSessionStore(auth, profiles, 60*time.Second, nil)
	store.now = func() time.Time { return *clock }
	store.Init(context.Background())
	return &sessionFixture{api: api, auth: auth, profiles: profiles, store: store, clock: clock}
}

func TestSessionStoreSignUpCreatesProfile(t *testing.T) {
	api := &fakeAuthAPI{signUpResult: &supabase.SignUpResult{
		User:    &supabase.User{ID: "u-ana", Email: "ana@x.com"},
		Session: backendSession("u-ana", "a1", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), "teacher"),
	}}
	f := newSessionFixture(t, api, &fakeProfileRepo{})

	session, err := f.store.SignUp(context.Background(), "ana@x.com", "secret1", "Ana", models.RoleTeacher)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, models.RoleTeacher, session.Role)
	assert.Equal(t, "Ana", session.Name)

	require.Len(t, f.profiles.created, 1)
	assert.Equal(t, models.Profile{ID: "u-ana", Name: "Ana", Email: "ana@x.com", Role: models.RoleTeacher}, f.profiles.created[0])
	assert.Equal(t, []string{"sign_up"}, f.api.Calls())

	ana := repository.Claims{Subject: "u-ana", Email: "ana@x.com", Role: "authenticated"}
	require.NotEmpty(t, f.profiles.claims)
	for i, claims := range f.profiles.claims {
		assert.Equal(t, ana, claims, "profile call %d runs as the new user", i)
	}
}

func TestSessionStoreSignUpProfileFailure(t *testing.T) {
	api := &fakeAuthAPI{signUpResult: &supabase.SignUpResult{
		User:    &supabase.User{ID: "u-ana", Email: "ana@x.com"},
		Session: backendSession("u-ana", "a1", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), "teacher"),
	}}
	f := newSessionFixture(t, api, &fakeProfileRepo{createErr: errors.New("new row violates row-level security policy")})

	session, err := f.store.SignUp(context.Background(), "ana@x.com", "secret1", "Ana", models.RoleTeacher)
	require.Error(t, err)
	assert.Nil(t, session)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrProfileCreateFailed.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "row-level security")
	assert.Equal(t, []string{"sign_up"}, f.api.Calls(), "account was created")
	assert.Nil(t, f.store.Current())
	assert.Nil(t, f.auth.Session())
}

func TestSessionStoreSignUpAwaitingConfirmation(t *testing.T) {
	api := &fakeAuthAPI{signUpResult: &supabase.SignUpResult{User: &supabase.User{ID: "u1"}}}
	f := newSessionFixture(t, api, &fakeProfileRepo{})

	session, err := f.store.SignUp(context.Background(), "p@x.com", "pw", "Paula", models.RoleParent)
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Len(t, f.profiles.created, 1)
}

func TestSessionStoreSignUpBackendError(t *testing.T) {
	api := &fakeAuthAPI{signUpErr: &supabase.APIError{Status: http.StatusUnprocessableEntity, Message: "User already registered"}}
	f := newSessionFixture(t, api, &fakeProfileRepo{})

	_, err := f.store.SignUp(context.Background(), "p@x.com", "pw", "Paula", models.RoleParent)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrBackend.Code, appErr.Code)
	assert.Equal(t, "User already registered", appErr.Message)
	assert.Empty(t, f.profiles.created)
}

func TestSessionStoreSignInDerivesRoleFromProfile(t *testing.T) {
	api := &fakeAuthAPI{signInSession: backendSession("u1", "a1", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), "parent")}
	profiles := &fakeProfileRepo{profiles: map[string]models.Profile{"u1": {ID: "u1", Name: "Prof", Role: "professor"}}}
	f := newSessionFixture(t, api, profiles)

	session, err := f.store.SignInPassword(context.Background(), "u1@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, session.Role, "profile wins over metadata")
	assert.Equal(t, "Prof", session.Name)
}

func TestSessionStoreSignInFallsBackToMetadataRole(t *testing.T) {
	api := &fakeAuthAPI{signInSession: backendSession("u1", "a1", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), "pai")}
	f := newSessionFixture(t, api, &fakeProfileRepo{})

	session, err := f.store.SignInPassword(context.Background(), "u1@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, models.RoleParent, session.Role)
}

func TestSessionStoreSignInInvalidCredentials(t *testing.T) {
	api := &fakeAuthAPI{signInErr: &supabase.APIError{Status: http.StatusBadRequest, Message: "Invalid login credentials"}}
	f := newSessionFixture(t, api, &fakeProfileRepo{})

	_, err := f.store.SignInPassword(context.Background(), "u1@x.com", "bad")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
	assert.Equal(t, "Invalid login credentials", appErr.Message)
	assert.Nil(t, f.store.Current())
}

func TestSessionStoreSignInLinkCooldown(t *testing.T) {
	f := newSessionFixture(t, &fakeAuthAPI{}, &fakeProfileRepo{})
	ctx := context.Background()

	require.NoError(t, f.store.SignInLink(ctx, "a@x.com"))
	assert.Equal(t, 60*time.Second, f.store.LinkCooldown())

	*f.clock = f.clock.Add(59 * time.Second)
	err := f.store.SignInLink(ctx, "a@x.com")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrRateLimited.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "1 seconds")
	assert.Equal(t, []string{"sign_in_otp"}, f.api.Calls(), "rejected locally")

	*f.clock = f.clock.Add(time.Second)
	require.NoError(t, f.store.SignInLink(ctx, "a@x.com"))
	assert.Equal(t, []string{"sign_in_otp", "sign_in_otp"}, f.api.Calls())
}

func TestSessionStoreSignInLinkFailureDoesNotStartCooldown(t *testing.T) {
	api := &fakeAuthAPI{otpErr: &supabase.APIError{Status: http.StatusBadRequest, Message: "Signups not allowed for otp"}}
	f := newSessionFixture(t, api, &fakeProfileRepo{})

	err := f.store.SignInLink(context.Background(), "a@x.com")
	assert.Equal(t, "Signups not allowed for otp", appErrors.FromError(err).Message)
	assert.Zero(t, f.store.LinkCooldown())

	api.otpErr = nil
	require.NoError(t, f.store.SignInLink(context.Background(), "a@x.com"))
}

func TestSessionStoreSignOutAndListeners(t *testing.T) {
	api := &fakeAuthAPI{signInSession: backendSession("u1", "a1", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), "parent")}
	f := newSessionFixture(t, api, &fakeProfileRepo{})

	var seen []*models.Session
	f.store.OnChange(func(s *models.Session) { seen = append(seen, s) })

	_, err := f.store.SignInPassword(context.Background(), "u1@x.com", "pw")
	require.NoError(t, err)
	require.NoError(t, f.store.SignOut(context.Background()))

	assert.Nil(t, f.store.Current())
	require.Len(t, seen, 2)
	assert.Equal(t, "u1", seen[0].UserID)
	assert.Nil(t, seen[1])
}

func TestSessionStoreSignOutFailureKeepsSession(t *testing.T) {
	api := &fakeAuthAPI{
		signInSession: backendSession("u1", "a1", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), "parent"),
		signOutErr:    supabase.ErrUnavailable,
	}
	f := newSessionFixture(t, api, &fakeProfileRepo{})
	_, err := f.store.SignInPassword(context.Background(), "u1@x.com", "pw")
	require.NoError(t, err)

	err = f.store.SignOut(context.Background())
	assert.Equal(t, appErrors.ErrBackendUnavailable.Code, appErrors.FromError(err).Code)
	assert.NotNil(t, f.store.Current())
}

func TestSessionStoreTokenRefreshKeepsRole(t *testing.T) {
	api := &fakeAuthAPI{
		signInSession: backendSession("u1", "a1", time.Date(2024, 5, 1, 8, 0, 30, 0, time.UTC), "parent"),
		refreshResult: &supabase.Session{AccessToken: "a2", RefreshToken: "r2", ExpiresIn: 3600},
	}
	f := newSessionFixture(t, api, &fakeProfileRepo{})
	changes := 0
	f.store.OnChange(func(*models.Session) { changes++ })

	_, err := f.store.SignInPassword(context.Background(), "u1@x.com", "pw")
	require.NoError(t, err)
	require.NoError(t, f.auth.RefreshIfNeeded(context.Background()))

	current := f.store.Current()
	assert.Equal(t, "a2", current.AccessToken)
	assert.Equal(t, models.RoleParent, current.Role)
	assert.Equal(t, 1, changes)
}

func TestSessionStoreInitAdoptsRestoredSession(t *testing.T) {
	api := &fakeAuthAPI{signInSession: backendSession("u1", "a1", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), "teacher")}
	auth := NewAuthStateService(api, nil, nil, AuthStateConfig{}, nil)
	_, err := auth.SignInWithPassword(context.Background(), "u1@x.com", "pw")
	require.NoError(t, err)

	store := NewSessionStore(auth, &fakeProfileRepo{findErr: errors.New("connection refused")}, 0, nil)
	store.Init(context.Background())

	current := store.Current()
	require.NotNil(t, current)
	assert.Equal(t, models.RoleTeacher, current.Role)
}
