package businessflow

import (
	"context"

	"github.com/controlcuentas/admin-api/app/dto"
	"github.com/controlcuentas/admin-api/app/services"
	"github.com/controlcuentas/admin-api/repository"
	"github.com/controlcuentas/admin-api/utils"
	"golang.org/x/crypto/bcrypt"
)

// LoginFlow handles panel-user authentication
type LoginFlow interface {
	Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	userRepo     repository.UserRepository
	tokenService services.TokenService
	adminChecker services.AdminAccessChecker
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	userRepo repository.UserRepository,
	tokenService services.TokenService,
	adminChecker services.AdminAccessChecker,
) LoginFlow {
	return &LoginFlowImpl{
		userRepo:     userRepo,
		tokenService: tokenService,
		adminChecker: adminChecker,
	}
}

// Login authenticates a panel user with email and password and issues a
// token pair.
func (lf *LoginFlowImpl) Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	if request == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", nil)
	}

	user, err := lf.userRepo.ByEmail(ctx, request.Email)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	if utils.IsTrue(user.IsDisabled) {
		return nil, NewBusinessError("USER_DISABLED", "User is disabled", ErrUserDisabled)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(request.Password)); err != nil {
		return nil, NewBusinessError("INCORRECT_PASSWORD", "Incorrect password", ErrIncorrectPassword)
	}

	accessToken, refreshToken, err := lf.tokenService.GenerateTokens(user.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	isAdmin, err := lf.adminChecker.IsAdmin(ctx, user.ID)
	if err != nil {
		// Admin status on the login response is informational; the
		// admin surface re-checks on every request.
		isAdmin = false
	}

	if err := lf.userRepo.UpdateLastLogin(ctx, user.ID, utils.UTCNow()); err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to record login", err)
	}

	return &dto.LoginResponse{
		Message: "Login successful",
		User:    ToAuthUserDTO(*user, isAdmin),
		Session: dto.SessionDTO{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    int(utils.AccessTokenTTL.Seconds()),
		},
	}, nil
}
