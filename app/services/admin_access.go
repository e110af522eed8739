package services

import (
	"context"
	"fmt"
	"log"

	"github.com/controlcuentas/admin-api/models"
	"github.com/controlcuentas/admin-api/repository"
	"gorm.io/gorm"
)

// AdminCheckStrategy answers whether a user holds admin privileges.
// Implementations are ordered: the checker consults them in sequence
// and the first one that produces a definitive answer wins.
type AdminCheckStrategy interface {
	Name() string
	IsAdmin(ctx context.Context, userID uint) (bool, error)
}

// AdminAccessChecker decides admin access by consulting a primary
// strategy and falling back to a secondary one when the primary
// cannot answer.
type AdminAccessChecker interface {
	IsAdmin(ctx context.Context, userID uint) (bool, error)
}

// AdminAccessCheckerImpl implements AdminAccessChecker over an ordered
// strategy list.
type AdminAccessCheckerImpl struct {
	strategies []AdminCheckStrategy
}

// NewAdminAccessChecker creates a checker backed by the standard two
// strategies: the is_admin database function first, the user_roles
// table second.
func NewAdminAccessChecker(db *gorm.DB, userRepo repository.UserRepository) AdminAccessChecker {
	return &AdminAccessCheckerImpl{
		strategies: []AdminCheckStrategy{
			&SQLFunctionAdminStrategy{db: db},
			&RoleTableAdminStrategy{userRepo: userRepo},
		},
	}
}

// NewAdminAccessCheckerWithStrategies creates a checker with an explicit
// strategy order, used in tests.
func NewAdminAccessCheckerWithStrategies(strategies ...AdminCheckStrategy) AdminAccessChecker {
	return &AdminAccessCheckerImpl{strategies: strategies}
}

// IsAdmin consults each strategy in order. A strategy error moves on to
// the next one; the error surfaces only when every strategy fails.
func (c *AdminAccessCheckerImpl) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	if userID == 0 {
		return false, fmt.Errorf("user ID is required")
	}

	var lastErr error
	for _, strategy := range c.strategies {
		isAdmin, err := strategy.IsAdmin(ctx, userID)
		if err != nil {
			log.Printf("admin check strategy %s failed for user %d: %v", strategy.Name(), userID, err)
			lastErr = err
			continue
		}
		return isAdmin, nil
	}

	if lastErr != nil {
		return false, fmt.Errorf("all admin check strategies failed: %w", lastErr)
	}
	return false, fmt.Errorf("no admin check strategy configured")
}

// SQLFunctionAdminStrategy asks the database's is_admin function.
// Deployments that predate the function return an error here, which
// hands the decision to the next strategy.
type SQLFunctionAdminStrategy struct {
	db *gorm.DB
}

func (s *SQLFunctionAdminStrategy) Name() string { return "sql_function" }

func (s *SQLFunctionAdminStrategy) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	var isAdmin bool
	err := s.db.WithContext(ctx).Raw("SELECT is_admin(?)", userID).Scan(&isAdmin).Error
	if err != nil {
		return false, err
	}
	return isAdmin, nil
}

// RoleTableAdminStrategy checks the user_roles table directly.
type RoleTableAdminStrategy struct {
	userRepo repository.UserRepository
}

func (s *RoleTableAdminStrategy) Name() string { return "role_table" }

func (s *RoleTableAdminStrategy) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	return s.userRepo.HasRole(ctx, userID, models.RoleAdmin)
}
