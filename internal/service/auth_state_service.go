package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-pickup/internal/models"
	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
	"github.com/noah-isme/sma-pickup/pkg/supabase"
)

const authSessionKey = "auth-session"

type authAPI interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*supabase.SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
	SignInWithOTP(ctx context.Context, email, redirectTo string) error
	RefreshSession(ctx context.Context, refreshToken string) (*supabase.Session, error)
	GetUser(ctx context.Context, accessToken string) (*supabase.User, error)
	SignOut(ctx context.Context, accessToken string) error
	ParseAccessToken(token string) (*supabase.AccessClaims, error)
}

type sessionStorage interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// AuthSession is the token pair held for the signed-in user together with
// the identity fields carried by the backend's user object.
type AuthSession struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	MetadataRole string    `json:"metadata_role,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (a *AuthSession) clone() *AuthSession {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// AuthChangeFunc receives auth-state transitions. session is nil on sign-out.
type AuthChangeFunc func(event models.AuthEvent, session *AuthSession)

// AuthStateConfig tunes AuthStateService.
type AuthStateConfig struct {
	RedirectURL   string
	RefreshMargin time.Duration
}

type authSubscriber struct {
	id int
	fn AuthChangeFunc
}

// AuthStateService owns the backend token pair: it persists it, restores it
// at start, refreshes it before expiry and broadcasts every transition.
type AuthStateService struct {
	api     authAPI
	storage sessionStorage
	metrics *MetricsService
	logger  *zap.Logger
	cfg     AuthStateConfig
	now     func() time.Time

	mu          sync.Mutex
	session     *AuthSession
	subscribers []authSubscriber
	nextID      int

	refreshMu sync.Mutex
}

// NewAuthStateService constructs the auth state holder.
func NewAuthStateService(api authAPI, storage sessionStorage, metrics *MetricsService, cfg AuthStateConfig, logger *zap.Logger) *AuthStateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RefreshMargin <= 0 {
		cfg.RefreshMargin = time.Minute
	}
	return &AuthStateService{
		api:     api,
		storage: storage,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Session returns a copy of the current auth session or nil.
func (s *AuthStateService) Session() *AuthSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.clone()
}

// OnAuthStateChange registers fn and returns a function that removes it.
func (s *AuthStateService) OnAuthStateChange(fn AuthChangeFunc) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.subscribers = append(s.subscribers, authSubscriber{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Restore loads the persisted session, refreshing it when it is about to
// expire, and emits INITIAL_SESSION with the result. A storage failure is
// returned alongside a nil session.
func (s *AuthStateService) Restore(ctx context.Context) (*AuthSession, error) {
	session, loadErr := s.load(ctx)

	if session != nil && s.expiring(session) {
		refreshed, refreshErr := s.refresh(ctx, session)
		if refreshErr != nil {
			s.logger.Info("stored session could not be refreshed", zap.Error(refreshErr))
			s.removeStored(ctx)
			session = nil
		} else {
			session = refreshed
			s.persist(ctx, session)
		}
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	s.emit(models.AuthEventInitialSession, session)
	return session.clone(), loadErr
}

// SignUp creates an account. The returned session, if any, is not adopted:
// callers decide whether to keep it through Adopt.
func (s *AuthStateService) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*supabase.User, *AuthSession, error) {
	start := s.now()
	result, err := s.api.SignUp(ctx, email, password, metadata)
	s.observe("sign_up", err, start)
	if err != nil {
		return nil, nil, err
	}
	if result.Session == nil {
		return result.User, nil, nil
	}
	return result.User, s.fromBackend(result.Session, result.User), nil
}

// Adopt makes session the current one, persists it and emits SIGNED_IN.
func (s *AuthStateService) Adopt(ctx context.Context, session *AuthSession) {
	if session == nil {
		return
	}
	s.mu.Lock()
	s.session = session.clone()
	s.mu.Unlock()

	s.persist(ctx, session)
	s.emit(models.AuthEventSignedIn, session)
}

// SignInWithPassword exchanges credentials for a session and adopts it.
func (s *AuthStateService) SignInWithPassword(ctx context.Context, email, password string) (*AuthSession, error) {
	start := s.now()
	backendSession, err := s.api.SignInWithPassword(ctx, email, password)
	s.observe("sign_in_password", err, start)
	if err != nil {
		return nil, err
	}
	session := s.fromBackend(backendSession, backendSession.User)
	s.Adopt(ctx, session)
	return session.clone(), nil
}

// SignInWithOTP requests a passwordless link redirecting to the app shell.
func (s *AuthStateService) SignInWithOTP(ctx context.Context, email string) error {
	start := s.now()
	err := s.api.SignInWithOTP(ctx, email, s.cfg.RedirectURL)
	s.observe("sign_in_otp", err, start)
	return err
}

// ExchangeCallback completes a passwordless sign-in with the tokens carried
// by the redirect. The access token is checked against the backend first.
func (s *AuthStateService) ExchangeCallback(ctx context.Context, accessToken, refreshToken string) (*AuthSession, error) {
	start := s.now()
	user, err := s.api.GetUser(ctx, accessToken)
	s.observe("get_user", err, start)
	if err != nil {
		return nil, credentialsError(err)
	}

	session := s.fromBackend(&supabase.Session{AccessToken: accessToken, RefreshToken: refreshToken}, user)
	s.Adopt(ctx, session)
	return session.clone(), nil
}

// GetUser returns the backend's view of the current user.
func (s *AuthStateService) GetUser(ctx context.Context) (*supabase.User, error) {
	current := s.Session()
	if current == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "not signed in")
	}
	start := s.now()
	user, err := s.api.GetUser(ctx, current.AccessToken)
	s.observe("get_user", err, start)
	if err != nil {
		return nil, credentialsError(err)
	}
	return user, nil
}

// SignOut revokes the session and emits SIGNED_OUT. A session the backend no
// longer recognises is cleared locally as well.
func (s *AuthStateService) SignOut(ctx context.Context) error {
	current := s.Session()
	if current == nil {
		return nil
	}

	start := s.now()
	err := s.api.SignOut(ctx, current.AccessToken)
	s.observe("sign_out", err, start)
	if err != nil && !sessionGone(err) {
		return err
	}

	s.clear(ctx)
	return nil
}

// RefreshIfNeeded refreshes the session when it expires within the margin.
// A rejected refresh token signs the user out; an unreachable backend keeps
// the session for the next attempt.
func (s *AuthStateService) RefreshIfNeeded(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	current := s.Session()
	if current == nil || !s.expiring(current) {
		return nil
	}

	refreshed, err := s.refresh(ctx, current)
	if err != nil {
		if errors.Is(err, supabase.ErrUnavailable) {
			return err
		}
		s.logger.Info("session refresh rejected, signing out", zap.String("user_id", current.UserID), zap.Error(err))
		s.clear(ctx)
		return err
	}

	s.mu.Lock()
	s.session = refreshed.clone()
	s.mu.Unlock()
	s.persist(ctx, refreshed)
	s.emit(models.AuthEventTokenRefreshed, refreshed)
	return nil
}

// StartAutoRefresh checks the session every interval until ctx is done.
func (s *AuthStateService) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.RefreshIfNeeded(ctx); err != nil {
					s.logger.Debug("auto refresh", zap.Error(err))
				}
			}
		}
	}()
}

func (s *AuthStateService) refresh(ctx context.Context, current *AuthSession) (*AuthSession, error) {
	if current.RefreshToken == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session has no refresh token")
	}
	start := s.now()
	backendSession, err := s.api.RefreshSession(ctx, current.RefreshToken)
	s.observe("refresh_session", err, start)
	if err != nil {
		return nil, err
	}
	refreshed := s.fromBackend(backendSession, backendSession.User)
	if backendSession.User == nil {
		refreshed.UserID = current.UserID
		refreshed.Email = current.Email
		refreshed.Name = current.Name
		refreshed.MetadataRole = current.MetadataRole
	}
	return refreshed, nil
}

func (s *AuthStateService) clear(ctx context.Context) {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
	s.removeStored(ctx)
	s.emit(models.AuthEventSignedOut, nil)
}

func (s *AuthStateService) emit(event models.AuthEvent, session *AuthSession) {
	s.mu.Lock()
	subs := make([]authSubscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(event, session.clone())
	}
}

func (s *AuthStateService) expiring(session *AuthSession) bool {
	if session.ExpiresAt.IsZero() {
		return false
	}
	return !s.now().Add(s.cfg.RefreshMargin).Before(session.ExpiresAt)
}

func (s *AuthStateService) fromBackend(backendSession *supabase.Session, user *supabase.User) *AuthSession {
	session := &AuthSession{
		AccessToken:  backendSession.AccessToken,
		RefreshToken: backendSession.RefreshToken,
	}
	if backendSession.ExpiresAt > 0 || backendSession.ExpiresIn > 0 {
		session.ExpiresAt = backendSession.Expiry(s.now())
	}

	if user != nil {
		session.UserID = user.ID
		session.Email = user.Email
		session.Name = user.MetadataString("name")
		session.MetadataRole = user.MetadataString("role")
	}

	claims, err := s.api.ParseAccessToken(backendSession.AccessToken)
	if err != nil {
		s.logger.Debug("access token claims unreadable", zap.Error(err))
		return session
	}
	if session.UserID == "" {
		session.UserID = claims.Subject
	}
	if session.Email == "" {
		session.Email = claims.Email
	}
	if session.MetadataRole == "" {
		session.MetadataRole = claims.MetadataRole()
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = claims.ExpiresAtTime()
	}
	return session
}

func (s *AuthStateService) load(ctx context.Context) (*AuthSession, error) {
	if s.storage == nil {
		return nil, nil
	}
	start := time.Now()
	raw, err := s.storage.GetItem(ctx, authSessionKey)
	s.metrics.ObserveStorage("get", time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrStorageMiss) {
			return nil, nil
		}
		return nil, err
	}

	var session AuthSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil || session.AccessToken == "" {
		s.removeStored(ctx)
		return nil, nil
	}
	return &session, nil
}

func (s *AuthStateService) persist(ctx context.Context, session *AuthSession) {
	if s.storage == nil {
		return
	}
	payload, err := json.Marshal(session)
	if err != nil {
		s.logger.Error("encode auth session", zap.Error(err))
		return
	}
	start := time.Now()
	err = s.storage.SetItem(ctx, authSessionKey, string(payload))
	s.metrics.ObserveStorage("set", time.Since(start))
	if err != nil {
		s.logger.Warn("persist auth session", zap.Error(err))
	}
}

func (s *AuthStateService) removeStored(ctx context.Context) {
	if s.storage == nil {
		return
	}
	start := time.Now()
	err := s.storage.RemoveItem(ctx, authSessionKey)
	s.metrics.ObserveStorage("remove", time.Since(start))
	if err != nil {
		s.logger.Warn("remove auth session", zap.Error(err))
	}
}

func (s *AuthStateService) observe(operation string, err error, start time.Time) {
	s.metrics.ObserveBackendCall(operation, backendOutcome(err), s.now().Sub(start))
}

func sessionGone(err error) bool {
	var apiErr *supabase.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	default:
		return false
	}
}
