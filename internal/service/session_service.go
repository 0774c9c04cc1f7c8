package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-pickup/internal/models"
	"github.com/noah-isme/sma-pickup/internal/repository"
	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
	"github.com/noah-isme/sma-pickup/pkg/supabase"
)

const profileLookupTimeout = 10 * time.Second

type profileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	FindByID(ctx context.Context, id string) (*models.Profile, error)
}

type authState interface {
	Session() *AuthSession
	OnAuthStateChange(fn AuthChangeFunc) func()
	SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*supabase.User, *AuthSession, error)
	Adopt(ctx context.Context, session *AuthSession)
	SignInWithPassword(ctx context.Context, email, password string) (*AuthSession, error)
	SignInWithOTP(ctx context.Context, email string) error
	SignOut(ctx context.Context) error
}

// SessionStore is the single writer of the app's session and role. Every
// other component reads copies through Current.
type SessionStore struct {
	auth     authState
	profiles profileRepository
	logger   *zap.Logger
	cooldown time.Duration
	now      func() time.Time

	mu          sync.Mutex
	session     *models.Session
	lastLinkAt  time.Time
	listeners   []func(*models.Session)
	unsubscribe func()
}

// NewSessionStore constructs the session store. linkCooldown bounds how often
// a passwordless link may be requested.
func NewSessionStore(auth authState, profiles profileRepository, linkCooldown time.Duration, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if linkCooldown <= 0 {
		linkCooldown = 60 * time.Second
	}
	return &SessionStore{
		auth:     auth,
		profiles: profiles,
		logger:   logger,
		cooldown: linkCooldown,
		now:      time.Now,
	}
}

// Init adopts the session the auth state already holds, deriving its role,
// and subscribes to later auth-state changes.
func (s *SessionStore) Init(ctx context.Context) {
	s.mu.Lock()
	if s.unsubscribe == nil {
		s.unsubscribe = s.auth.OnAuthStateChange(s.handleAuthChange)
	}
	s.mu.Unlock()

	if current := s.auth.Session(); current != nil {
		s.replace(s.resolve(ctx, current))
	}
}

// Close stops listening to auth-state changes.
func (s *SessionStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Current returns a copy of the session or nil when signed out.
func (s *SessionStore) Current() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Clone()
}

// OnChange registers fn to run whenever the signed-in user changes.
func (s *SessionStore) OnChange(fn func(*models.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SignUp creates the account and then its profile with the selected role.
// A nil session with a nil error means the backend wants the e-mail
// confirmed first. When the profile insert fails the account is left as is
// and no session is kept.
func (s *SessionStore) SignUp(ctx context.Context, email, password, name string, role models.Role) (*models.Session, error) {
	metadata := map[string]interface{}{"name": name, "role": string(role)}
	user, authSession, err := s.auth.SignUp(ctx, email, password, metadata)
	if err != nil {
		return nil, backendError(err, appErrors.ErrBackend)
	}

	profile := &models.Profile{ID: user.ID, Name: name, Email: email, Role: role}
	profileCtx := repository.WithClaims(ctx, repository.Claims{Subject: user.ID, Email: email})
	if err := s.profiles.Create(profileCtx, profile); err != nil {
		s.logger.Error("profile insert failed after sign-up", zap.String("user_id", user.ID), zap.Error(err))
		return nil, backendError(err, appErrors.ErrProfileCreateFailed)
	}

	if authSession == nil {
		return nil, nil
	}
	s.auth.Adopt(ctx, authSession)
	return s.Current(), nil
}

// SignInPassword signs in with e-mail and password.
func (s *SessionStore) SignInPassword(ctx context.Context, email, password string) (*models.Session, error) {
	if _, err := s.auth.SignInWithPassword(ctx, email, password); err != nil {
		return nil, credentialsError(err)
	}
	return s.Current(), nil
}

// SignInLink requests a passwordless link. A second request within the
// cooldown of the last accepted one is refused without contacting the
// backend.
func (s *SessionStore) SignInLink(ctx context.Context, email string) error {
	s.mu.Lock()
	now := s.now()
	if remaining := s.remainingLocked(now); remaining > 0 {
		s.mu.Unlock()
		seconds := int(math.Ceil(remaining.Seconds()))
		return appErrors.Clone(appErrors.ErrRateLimited, fmt.Sprintf("please wait %d seconds before requesting another link", seconds))
	}
	previous := s.lastLinkAt
	s.lastLinkAt = now
	s.mu.Unlock()

	if err := s.auth.SignInWithOTP(ctx, email); err != nil {
		s.mu.Lock()
		if s.lastLinkAt.Equal(now) {
			s.lastLinkAt = previous
		}
		s.mu.Unlock()
		return backendError(err, appErrors.ErrBackend)
	}
	return nil
}

// LinkCooldown returns how long until another link may be requested.
func (s *SessionStore) LinkCooldown() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked(s.now())
}

// SignOut ends the session. On failure the session is kept.
func (s *SessionStore) SignOut(ctx context.Context) error {
	if err := s.auth.SignOut(ctx); err != nil {
		return backendError(err, appErrors.ErrBackend)
	}
	// The backend may have had nothing to revoke; make sure we are clear.
	s.replace(nil)
	return nil
}

func (s *SessionStore) remainingLocked(now time.Time) time.Duration {
	if s.lastLinkAt.IsZero() {
		return 0
	}
	remaining := s.cooldown - now.Sub(s.lastLinkAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *SessionStore) handleAuthChange(event models.AuthEvent, authSession *AuthSession) {
	if event == models.AuthEventSignedOut || authSession == nil {
		s.replace(nil)
		return
	}

	if event == models.AuthEventTokenRefreshed {
		s.mu.Lock()
		if s.session != nil && s.session.UserID == authSession.UserID {
			s.session.AccessToken = authSession.AccessToken
			s.session.RefreshToken = authSession.RefreshToken
			s.session.ExpiresAt = authSession.ExpiresAt
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), profileLookupTimeout)
	defer cancel()
	s.replace(s.resolve(ctx, authSession))
}

// resolve builds the app session, taking the role from the profile row and
// falling back to the role recorded in the account metadata.
func (s *SessionStore) resolve(ctx context.Context, authSession *AuthSession) *models.Session {
	session := &models.Session{
		UserID:       authSession.UserID,
		Email:        authSession.Email,
		Name:         authSession.Name,
		AccessToken:  authSession.AccessToken,
		RefreshToken: authSession.RefreshToken,
		ExpiresAt:    authSession.ExpiresAt,
	}

	profileCtx := repository.WithClaims(ctx, repository.Claims{Subject: authSession.UserID, Email: authSession.Email})
	profile, err := s.profiles.FindByID(profileCtx, authSession.UserID)
	if err == nil {
		if role, ok := models.ParseRole(string(profile.Role)); ok {
			session.Role = role
		}
		if profile.Name != "" {
			session.Name = profile.Name
		}
	} else {
		s.logger.Warn("profile lookup failed, using account metadata", zap.String("user_id", authSession.UserID), zap.Error(err))
	}

	if session.Role == "" {
		if role, ok := models.ParseRole(authSession.MetadataRole); ok {
			session.Role = role
		}
	}
	return session
}

func (s *SessionStore) replace(session *models.Session) {
	s.mu.Lock()
	previous := s.session
	s.session = session
	listeners := make([]func(*models.Session), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	if sameUser(previous, session) {
		return
	}
	for _, fn := range listeners {
		fn(session.Clone())
	}
}

func sameUser(a, b *models.Session) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UserID == b.UserID
}
