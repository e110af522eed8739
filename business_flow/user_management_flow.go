package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/controlcuentas/admin-api/app/dto"
	"github.com/controlcuentas/admin-api/models"
	"github.com/controlcuentas/admin-api/repository"
	"github.com/controlcuentas/admin-api/utils"
	"golang.org/x/crypto/bcrypt"
)

// UserManagementFlow covers panel-user administration.
type UserManagementFlow interface {
	ListUsers(ctx context.Context, page, size int) (*dto.ListUsersResponse, error)
	CreateUser(ctx context.Context, req *dto.CreateUserRequest, metadata *ClientMetadata) (*dto.UserResponse, error)
	UpdateUser(ctx context.Context, userID uint, req *dto.UpdateUserRequest, metadata *ClientMetadata) (*dto.UserResponse, error)
	DeleteUser(ctx context.Context, userID uint, metadata *ClientMetadata) (*dto.DeleteUserResponse, error)
	ToggleUser(ctx context.Context, userID uint, metadata *ClientMetadata) (*dto.ToggleUserResponse, error)
}

// UserManagementFlowImpl implements UserManagementFlow
type UserManagementFlowImpl struct {
	userRepo repository.UserRepository
}

// NewUserManagementFlow creates a new user management flow instance
func NewUserManagementFlow(userRepo repository.UserRepository) UserManagementFlow {
	return &UserManagementFlowImpl{userRepo: userRepo}
}

// ListUsers returns a page of panel users, newest first.
func (f *UserManagementFlowImpl) ListUsers(ctx context.Context, page, size int) (*dto.ListUsersResponse, error) {
	if page < 1 {
		return nil, NewBusinessError("INVALID_PAGE", "page must be at least 1", ErrInvalidPage)
	}
	if size < 1 || size > 100 {
		return nil, NewBusinessError("INVALID_PAGE_SIZE", "page size must be between 1 and 100", ErrInvalidPageSize)
	}

	rows, err := f.userRepo.ByFilter(ctx, models.UserFilter{}, "id DESC", size, (page-1)*size)
	if err != nil {
		return nil, NewBusinessError("USERS_FETCH_FAILED", "Failed to fetch users", err)
	}
	total, err := f.userRepo.Count(ctx, models.UserFilter{})
	if err != nil {
		return nil, NewBusinessError("USERS_FETCH_FAILED", "Failed to count users", err)
	}

	items := make([]dto.UserItem, 0, len(rows))
	for _, row := range rows {
		isAdmin, err := f.userRepo.HasRole(ctx, row.ID, models.RoleAdmin)
		if err != nil {
			return nil, NewBusinessError("USERS_FETCH_FAILED", "Failed to resolve user roles", err)
		}
		items = append(items, toUserItem(row, isAdmin))
	}

	return &dto.ListUsersResponse{
		Message: "Users retrieved",
		Items:   items,
		Total:   total,
		Page:    page,
		Size:    size,
	}, nil
}

// CreateUser registers a new panel user, optionally granting the admin role.
func (f *UserManagementFlowImpl) CreateUser(ctx context.Context, req *dto.CreateUserRequest, metadata *ClientMetadata) (*dto.UserResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", nil)
	}

	existing, err := f.userRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewBusinessError("USER_CREATE_FAILED", "Failed to check existing email", err)
	}
	if existing != nil {
		return nil, NewBusinessError("EMAIL_ALREADY_EXISTS", "Email already exists", ErrEmailAlreadyExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewBusinessError("USER_CREATE_FAILED", "Failed to hash password", err)
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		IsDisabled:   utils.ToPtr(false),
	}
	if err := f.userRepo.Save(ctx, user); err != nil {
		return nil, NewBusinessError("USER_CREATE_FAILED", "Failed to create user", err)
	}

	if req.IsAdmin {
		if err := f.userRepo.GrantRole(ctx, user.ID, models.RoleAdmin); err != nil {
			return nil, NewBusinessError("USER_CREATE_FAILED", "Failed to grant admin role", err)
		}
	}

	return &dto.UserResponse{
		Message: "User created",
		User:    toUserItem(user, req.IsAdmin),
	}, nil
}

// UpdateUser patches email and/or password of an existing user.
func (f *UserManagementFlowImpl) UpdateUser(ctx context.Context, userID uint, req *dto.UpdateUserRequest, metadata *ClientMetadata) (*dto.UserResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", nil)
	}
	user, err := f.resolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != user.Email {
		existing, err := f.userRepo.ByEmail(ctx, *req.Email)
		if err != nil {
			return nil, NewBusinessError("USER_UPDATE_FAILED", "Failed to check existing email", err)
		}
		if existing != nil {
			return nil, NewBusinessError("EMAIL_ALREADY_EXISTS", "Email already exists", ErrEmailAlreadyExists)
		}
		user.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, NewBusinessError("USER_UPDATE_FAILED", "Failed to hash password", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := f.userRepo.Update(ctx, user); err != nil {
		return nil, NewBusinessError("USER_UPDATE_FAILED", "Failed to update user", err)
	}

	isAdmin, err := f.userRepo.HasRole(ctx, user.ID, models.RoleAdmin)
	if err != nil {
		return nil, NewBusinessError("USER_UPDATE_FAILED", "Failed to resolve user roles", err)
	}

	return &dto.UserResponse{
		Message: "User updated",
		User:    toUserItem(user, isAdmin),
	}, nil
}

// DeleteUser removes a panel user and their role grants.
func (f *UserManagementFlowImpl) DeleteUser(ctx context.Context, userID uint, metadata *ClientMetadata) (*dto.DeleteUserResponse, error) {
	if _, err := f.resolveUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := f.userRepo.Delete(ctx, userID); err != nil {
		return nil, NewBusinessError("USER_DELETE_FAILED", "Failed to delete user", err)
	}
	return &dto.DeleteUserResponse{
		Message: "User deleted",
		ID:      userID,
	}, nil
}

// ToggleUser flips the disabled flag of a panel user.
func (f *UserManagementFlowImpl) ToggleUser(ctx context.Context, userID uint, metadata *ClientMetadata) (*dto.ToggleUserResponse, error) {
	user, err := f.resolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	disabled := !utils.IsTrue(user.IsDisabled)
	user.IsDisabled = &disabled
	if err := f.userRepo.Update(ctx, user); err != nil {
		return nil, NewBusinessError("USER_TOGGLE_FAILED", "Failed to toggle user", err)
	}

	message := "User enabled"
	if disabled {
		message = "User disabled"
	}
	return &dto.ToggleUserResponse{
		Message:    message,
		ID:         user.ID,
		IsDisabled: disabled,
	}, nil
}

func (f *UserManagementFlowImpl) resolveUser(ctx context.Context, userID uint) (*models.User, error) {
	if userID == 0 {
		return nil, NewBusinessError("USER_ID_REQUIRED", "user id is required", nil)
	}
	user, err := f.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("USER_FETCH_FAILED", "Failed to fetch user", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", fmt.Sprintf("User %d not found", userID), ErrUserNotFound)
	}
	return user, nil
}

func toUserItem(user *models.User, isAdmin bool) dto.UserItem {
	var lastLogin *string
	if user.LastLoginAt != nil {
		lastLogin = utils.ToPtr(user.LastLoginAt.Format(time.RFC3339))
	}
	return dto.UserItem{
		ID:          user.ID,
		UUID:        user.UUID.String(),
		Email:       user.Email,
		IsAdmin:     isAdmin,
		IsDisabled:  utils.IsTrue(user.IsDisabled),
		LastLoginAt: lastLogin,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   user.UpdatedAt.Format(time.RFC3339),
	}
}
