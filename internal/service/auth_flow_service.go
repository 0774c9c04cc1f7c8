package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-pickup/internal/dto"
	"github.com/noah-isme/sma-pickup/internal/models"
	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
)

// Auth screen modes.
const (
	AuthModeSignIn = "sign_in"
	AuthModeSignUp = "sign_up"
)

// SignUpMessage is shown after a successful sign-up.
const SignUpMessage = "Account created. Check your email to confirm your address."

// LinkSentMessage is shown after a passwordless link was requested.
const LinkSentMessage = "Check your email for the sign-in link."

type sessionManager interface {
	SignUp(ctx context.Context, email, password, name string, role models.Role) (*models.Session, error)
	SignInPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignInLink(ctx context.Context, email string) error
	LinkCooldown() time.Duration
}

// AuthFlowService validates the auth forms and hands them to the session
// store. Invalid forms never reach the backend.
type AuthFlowService struct {
	sessions  sessionManager
	validator *validator.Validate
	logger    *zap.Logger

	mu   sync.Mutex
	mode string
}

// NewAuthFlowService constructs the auth flow in sign-in mode.
func NewAuthFlowService(sessions sessionManager, validate *validator.Validate, logger *zap.Logger) *AuthFlowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthFlowService{
		sessions:  sessions,
		validator: newFormValidator(validate),
		logger:    logger,
		mode:      AuthModeSignIn,
	}
}

// SetMode switches between sign-in and sign-up.
func (s *AuthFlowService) SetMode(req dto.AuthModeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err)
	}
	s.mu.Lock()
	s.mode = req.Mode
	s.mu.Unlock()
	return nil
}

// Mode returns the current form mode.
func (s *AuthFlowService) Mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Screen describes the auth form for the renderer.
func (s *AuthFlowService) Screen() dto.AuthScreen {
	mode := s.Mode()
	return dto.AuthScreen{
		Mode:                 mode,
		LinkCooldownSeconds:  cooldownSeconds(s.sessions.LinkCooldown()),
		RequiresName:         mode == AuthModeSignUp,
		RequiresRoleSelector: mode == AuthModeSignUp,
	}
}

// SignUp validates the sign-up form and creates the account and profile.
func (s *AuthFlowService) SignUp(ctx context.Context, req dto.SignUpRequest) (*models.Session, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Role = strings.TrimSpace(req.Role)
	if err := s.validate(req, req.Password); err != nil {
		return nil, err
	}

	role, _ := models.ParseRole(req.Role)
	session, err := s.sessions.SignUp(ctx, req.Email, req.Password, req.Name, role)
	if err != nil {
		s.logger.Info("sign-up failed", zap.String("email", req.Email), zap.Error(err))
		return nil, err
	}
	return session, nil
}

// SignIn validates the password form and signs in.
func (s *AuthFlowService) SignIn(ctx context.Context, req dto.SignInRequest) (*models.Session, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate(req, req.Password); err != nil {
		return nil, err
	}
	return s.sessions.SignInPassword(ctx, req.Email, req.Password)
}

// SendMagicLink validates the e-mail and requests a passwordless link.
func (s *AuthFlowService) SendMagicLink(ctx context.Context, req dto.MagicLinkRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return validationError(err)
	}
	return s.sessions.SignInLink(ctx, req.Email)
}

// LinkCooldown returns the time left before another link can be sent.
func (s *AuthFlowService) LinkCooldown() time.Duration {
	return s.sessions.LinkCooldown()
}

// validate runs the struct rules and treats a whitespace-only password as
// missing. The password itself is sent untouched.
func (s *AuthFlowService) validate(form interface{}, password string) error {
	err := s.validator.Struct(form)
	if err == nil && strings.TrimSpace(password) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "required: password")
	}
	if err != nil {
		return validationError(err)
	}
	return nil
}

func cooldownSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	seconds := int(d / time.Second)
	if d%time.Second != 0 {
		seconds++
	}
	return seconds
}
