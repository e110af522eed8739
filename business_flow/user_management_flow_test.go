package businessflow

import (
	"context"
	"testing"

	"github.com/controlcuentas/admin-api/app/dto"
	"github.com/controlcuentas/admin-api/models"
	"github.com/controlcuentas/admin-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newPanelUser(email string) *models.User {
	return &models.User{
		Email:        email,
		PasswordHash: "$2a$04$notarealhashnotarealhashnotarealhash",
		IsDisabled:   utils.ToPtr(false),
		CreatedAt:    utils.UTCNow(),
		UpdatedAt:    utils.UTCNow(),
	}
}

func TestCreateUser(t *testing.T) {
	userRepo := newFakeUserRepo()
	flow := NewUserManagementFlow(userRepo)

	resp, err := flow.CreateUser(context.Background(), &dto.CreateUserRequest{
		Email:    "nuevo@example.com",
		Password: "SecurePass123!",
		IsAdmin:  true,
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "nuevo@example.com", resp.User.Email)
	assert.True(t, resp.User.IsAdmin)
	assert.False(t, resp.User.IsDisabled)

	stored, err := userRepo.ByEmail(context.Background(), "nuevo@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("SecurePass123!")))

	isAdmin, err := userRepo.HasRole(context.Background(), stored.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, isAdmin)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	userRepo := newFakeUserRepo()
	userRepo.add(newPanelUser("dup@example.com"))
	flow := NewUserManagementFlow(userRepo)

	_, err := flow.CreateUser(context.Background(), &dto.CreateUserRequest{
		Email:    "dup@example.com",
		Password: "SecurePass123!",
	}, nil)

	var bizErr *BusinessError
	require.ErrorAs(t, err, &bizErr)
	assert.Equal(t, "EMAIL_ALREADY_EXISTS", bizErr.Code)
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestListUsers(t *testing.T) {
	userRepo := newFakeUserRepo()
	userRepo.add(newPanelUser("a@example.com"))
	userRepo.add(newPanelUser("b@example.com"), models.RoleAdmin)
	userRepo.add(newPanelUser("c@example.com"))
	flow := NewUserManagementFlow(userRepo)

	resp, err := flow.ListUsers(context.Background(), 1, 2)

	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 2, resp.Size)
	require.Len(t, resp.Items, 2)
	// Newest first.
	assert.Equal(t, "c@example.com", resp.Items[0].Email)
	assert.Equal(t, "b@example.com", resp.Items[1].Email)
	assert.True(t, resp.Items[1].IsAdmin)
}

func TestListUsersValidatesPaging(t *testing.T) {
	flow := NewUserManagementFlow(newFakeUserRepo())

	_, err := flow.ListUsers(context.Background(), 0, 10)
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, err = flow.ListUsers(context.Background(), 1, 0)
	assert.ErrorIs(t, err, ErrInvalidPageSize)

	_, err = flow.ListUsers(context.Background(), 1, 101)
	assert.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestUpdateUserEmail(t *testing.T) {
	userRepo := newFakeUserRepo()
	user := userRepo.add(newPanelUser("old@example.com"))
	flow := NewUserManagementFlow(userRepo)

	resp, err := flow.UpdateUser(context.Background(), user.ID, &dto.UpdateUserRequest{
		Email: utils.ToPtr("new@example.com"),
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "new@example.com", resp.User.Email)
}

func TestUpdateUserEmailTaken(t *testing.T) {
	userRepo := newFakeUserRepo()
	user := userRepo.add(newPanelUser("old@example.com"))
	userRepo.add(newPanelUser("taken@example.com"))
	flow := NewUserManagementFlow(userRepo)

	_, err := flow.UpdateUser(context.Background(), user.ID, &dto.UpdateUserRequest{
		Email: utils.ToPtr("taken@example.com"),
	}, nil)

	var bizErr *BusinessError
	require.ErrorAs(t, err, &bizErr)
	assert.Equal(t, "EMAIL_ALREADY_EXISTS", bizErr.Code)
}

func TestUpdateUserPassword(t *testing.T) {
	userRepo := newFakeUserRepo()
	user := userRepo.add(newPanelUser("user@example.com"))
	flow := NewUserManagementFlow(userRepo)

	_, err := flow.UpdateUser(context.Background(), user.ID, &dto.UpdateUserRequest{
		Password: utils.ToPtr("NewSecurePass123!"),
	}, nil)

	require.NoError(t, err)
	stored := userRepo.users[user.ID]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("NewSecurePass123!")))
}

func TestDeleteUser(t *testing.T) {
	userRepo := newFakeUserRepo()
	user := userRepo.add(newPanelUser("user@example.com"))
	flow := NewUserManagementFlow(userRepo)

	resp, err := flow.DeleteUser(context.Background(), user.ID, nil)

	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.ID)
	assert.NotContains(t, userRepo.users, user.ID)
}

func TestDeleteUnknownUser(t *testing.T) {
	flow := NewUserManagementFlow(newFakeUserRepo())

	_, err := flow.DeleteUser(context.Background(), 99, nil)

	var bizErr *BusinessError
	require.ErrorAs(t, err, &bizErr)
	assert.Equal(t, "USER_NOT_FOUND", bizErr.Code)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestToggleUser(t *testing.T) {
	userRepo := newFakeUserRepo()
	user := userRepo.add(newPanelUser("user@example.com"))
	flow := NewUserManagementFlow(userRepo)

	resp, err := flow.ToggleUser(context.Background(), user.ID, nil)
	require.NoError(t, err)
	assert.True(t, resp.IsDisabled)
	assert.Equal(t, "User disabled", resp.Message)

	resp, err = flow.ToggleUser(context.Background(), user.ID, nil)
	require.NoError(t, err)
	assert.False(t, resp.IsDisabled)
	assert.Equal(t, "User enabled", resp.Message)
}

func TestToggleUserRequiresID(t *testing.T) {
	flow := NewUserManagementFlow(newFakeUserRepo())

	_, err := flow.ToggleUser(context.Background(), 0, nil)

	var bizErr *BusinessError
	require.ErrorAs(t, err, &bizErr)
	assert.Equal(t, "USER_ID_REQUIRED", bizErr.Code)
}
