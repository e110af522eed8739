// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/controlcuentas/admin-api/app/dto"
	"github.com/controlcuentas/admin-api/app/services"
	"github.com/controlcuentas/admin-api/repository"
	"github.com/gofiber/fiber/v3"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
	userRepo     repository.UserRepository
	adminChecker services.AdminAccessChecker
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService, userRepo repository.UserRepository, adminChecker services.AdminAccessChecker) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		userRepo:     userRepo,
		adminChecker: adminChecker,
	}
}

// Authenticate is the middleware function that validates JWT tokens
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		// Get the Authorization header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Authorization header is required",
				Error: dto.ErrorDetail{
					Code: "MISSING_AUTHORIZATION_HEADER",
				},
			})
		}

		// Check if the header starts with "Bearer "
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Invalid authorization header format. Expected 'Bearer <token>'",
				Error: dto.ErrorDetail{
					Code: "INVALID_AUTHORIZATION_FORMAT",
				},
			})
		}

		// Extract the token (remove "Bearer " prefix)
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Access token is required",
				Error: dto.ErrorDetail{
					Code: "MISSING_ACCESS_TOKEN",
				},
			})
		}

		// Validate the token (this already checks for revocation)
		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			var errorCode string
			var message string

			// Determine the specific error type
			if errors.Is(err, services.ErrTokenExpired) {
				errorCode = "TOKEN_EXPIRED"
				message = "Access token has expired"
			} else if errors.Is(err, services.ErrTokenInvalid) {
				errorCode = "TOKEN_INVALID"
				message = "Invalid access token"
			} else if errors.Is(err, services.ErrTokenRevoked) {
				errorCode = "TOKEN_REVOKED"
				message = "Access token has been revoked"
			} else {
				errorCode = "TOKEN_VALIDATION_FAILED"
				message = "Token validation failed"
			}

			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: message,
				Error: dto.ErrorDetail{
					Code: errorCode,
				},
			})
		}

		// The user row backs the token subject. A deleted or disabled user
		// keeps a valid token until expiry, so both are rejected here.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		user, err := m.userRepo.ByID(ctx, claims.UserID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
				Success: false,
				Message: "Failed to resolve user",
				Error:   dto.ErrorDetail{Code: "USER_LOOKUP_FAILED"},
			})
		}
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "User no longer exists",
				Error:   dto.ErrorDetail{Code: "USER_NOT_FOUND"},
			})
		}
		if user.IsDisabled != nil && *user.IsDisabled {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "User is disabled",
				Error:   dto.ErrorDetail{Code: "USER_DISABLED"},
			})
		}

		// Store user information in context for downstream handlers
		c.Locals("user_id", user.ID)
		c.Locals("user_email", user.Email)
		c.Locals("token_id", claims.TokenID)
		c.Locals("token_claims", claims)

		// Store RequestID for audit logging
		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		// Continue to the next handler
		return c.Next()
	}
}

// RequireAdmin ensures the authenticated user holds the admin role.
// It must run after Authenticate. Both check strategies are consulted
// through the access checker, so a missing is_admin SQL function
// degrades to the role table instead of locking admins out.
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(uint)
		if !ok || userID == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Authentication required",
				Error:   dto.ErrorDetail{Code: "AUTHENTICATION_REQUIRED"},
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		isAdmin, err := m.adminChecker.IsAdmin(ctx, userID)
		if err != nil {
			log.Printf("admin check failed for user %d: %v", userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
				Success: false,
				Message: "Failed to verify admin access",
				Error:   dto.ErrorDetail{Code: "ADMIN_CHECK_FAILED"},
			})
		}
		if !isAdmin {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Admin access required",
				Error:   dto.ErrorDetail{Code: "ADMIN_ACCESS_REQUIRED"},
			})
		}

		return c.Next()
	}
}

// GetUserIDFromContext extracts the authenticated user ID from the request context
func GetUserIDFromContext(c fiber.Ctx) (uint, bool) {
	userID, ok := c.Locals("user_id").(uint)
	return userID, ok
}

// GetTokenClaimsFromContext extracts token claims from the request context
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.TokenClaims, bool) {
	claims, ok := c.Locals("token_claims").(*services.TokenClaims)
	return claims, ok
}
