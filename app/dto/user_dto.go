package dto

// CreateUserRequest represents payload for creating a panel user.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=100"`
	IsAdmin  bool   `json:"is_admin"`
}

// UpdateUserRequest represents payload for updating a panel user.
// Nil fields are left untouched.
type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=100"`
}

// UserItem represents a panel user row for listing.
type UserItem struct {
	ID          uint    `json:"id"`
	UUID        string  `json:"uuid"`
	Email       string  `json:"email"`
	IsAdmin     bool    `json:"is_admin"`
	IsDisabled  bool    `json:"is_disabled"`
	LastLoginAt *string `json:"last_login_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// ListUsersResponse represents a paginated user listing.
type ListUsersResponse struct {
	Message string     `json:"message"`
	Items   []UserItem `json:"items"`
	Total   int64      `json:"total"`
	Page    int        `json:"page"`
	Size    int        `json:"size"`
}

// UserResponse wraps a single user row.
type UserResponse struct {
	Message string   `json:"message"`
	User    UserItem `json:"user"`
}

// ToggleUserResponse reports the new disabled state after a toggle.
type ToggleUserResponse struct {
	Message    string `json:"message"`
	ID         uint   `json:"id"`
	IsDisabled bool   `json:"is_disabled"`
}

// DeleteUserResponse confirms a user removal.
type DeleteUserResponse struct {
	Message string `json:"message"`
	ID      uint   `json:"id"`
}
