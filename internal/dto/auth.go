package dto

// SignUpRequest is the sign-up form.
type SignUpRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,role"`
}

// SignInRequest is the password sign-in form.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// MagicLinkRequest is the passwordless sign-in form.
type MagicLinkRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// AuthModeRequest switches the auth screen between sign-in and sign-up.
type AuthModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=sign_in sign_up"`
}

// AuthCallbackQuery carries the tokens appended to the passwordless redirect
// when they arrive as query parameters, or the error the backend reported.
type AuthCallbackQuery struct {
	AccessToken      string `form:"access_token"`
	RefreshToken     string `form:"refresh_token"`
	Error            string `form:"error"`
	ErrorDescription string `form:"error_description"`
}

// AuthCallbackRequest carries the tokens the callback page lifted out of the
// redirect fragment.
type AuthCallbackRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}
