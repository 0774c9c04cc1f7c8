package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go/types"
)

// User is the subset of the auth user object the app relies on.
type User struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	CreatedAt    time.Time              `json:"created_at"`
}

// MetadataString returns a string value from the user's metadata.
func (u *User) MetadataString(key string) string {
	if u == nil || u.UserMetadata == nil {
		return ""
	}
	if v, ok := u.UserMetadata[key].(string); ok {
		return v
	}
	return ""
}

// Session is a token pair issued by the auth API.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *User  `json:"user"`
}

// Expiry returns the absolute expiry of the access token.
func (s *Session) Expiry(issuedAt time.Time) time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0).UTC()
	}
	return issuedAt.Add(time.Duration(s.ExpiresIn) * time.Second).UTC()
}

// SignUpResult is returned by SignUp. Session is nil when the project
// requires e-mail confirmation before the first sign-in.
type SignUpResult struct {
	User    *User
	Session *Session
}

// SignUp creates an account with the given password and metadata.
func (c *AuthClient) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*SignUpResult, error) {
	resp, err := c.call(ctx, "", nil).Signup(types.SignupRequest{
		Email:    email,
		Password: password,
		Data:     metadata,
	})
	if err != nil {
		return nil, wrapError("signup", err)
	}
	if resp.User.ID == uuid.Nil {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "signup response carried no user"}
	}

	result := &SignUpResult{User: fromUser(resp.User)}
	if resp.AccessToken != "" {
		result.Session = fromSession(resp.Session)
	}
	return result, nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	resp, err := c.call(ctx, "", nil).SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, wrapError("sign in", err)
	}
	return tokenSession(resp)
}

// SignInWithOTP asks the backend to e-mail a one-time sign-in link that
// redirects to redirectTo.
func (c *AuthClient) SignInWithOTP(ctx context.Context, email, redirectTo string) error {
	var query url.Values
	if redirectTo != "" {
		query = url.Values{"redirect_to": []string{redirectTo}}
	}
	err := c.call(ctx, "", query).OTP(types.OTPRequest{Email: email, CreateUser: true})
	return wrapError("otp", err)
}

// RefreshSession trades a refresh token for a new session.
func (c *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	resp, err := c.call(ctx, "", nil).RefreshToken(refreshToken)
	if err != nil {
		return nil, wrapError("refresh", err)
	}
	return tokenSession(resp)
}

// GetUser returns the user owning accessToken.
func (c *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	resp, err := c.call(ctx, accessToken, nil).GetUser()
	if err != nil {
		return nil, wrapError("get user", err)
	}
	return fromUser(resp.User), nil
}

// SignOut revokes the session behind accessToken.
func (c *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	return wrapError("logout", c.call(ctx, accessToken, nil).Logout())
}

// Health checks that the auth API answers.
func (c *AuthClient) Health(ctx context.Context) error {
	_, err := c.call(ctx, "", nil).HealthCheck()
	return wrapError("health", err)
}

func tokenSession(resp *types.TokenResponse) (*Session, error) {
	if resp.AccessToken == "" {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "token response carried no access token"}
	}
	return fromSession(resp.Session), nil
}

func fromSession(s types.Session) *Session {
	session := &Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		ExpiresIn:    int64(s.ExpiresIn),
		ExpiresAt:    s.ExpiresAt,
	}
	if s.User.ID != uuid.Nil {
		session.User = fromUser(s.User)
	}
	return session
}

func fromUser(u types.User) *User {
	return &User{
		ID:           u.ID.String(),
		Email:        u.Email,
		UserMetadata: u.UserMetadata,
		CreatedAt:    u.CreatedAt,
	}
}
