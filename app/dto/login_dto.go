package dto

// LoginRequest represents the request payload for panel-user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"admin@example.com"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// AuthUserDTO represents the authenticated user in login responses
type AuthUserDTO struct {
	ID        uint   `json:"id"`
	UUID      string `json:"uuid"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
}

// SessionDTO carries the issued token pair
type SessionDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Message string      `json:"message"`
	User    AuthUserDTO `json:"user"`
	Session SessionDTO  `json:"session"`
}
