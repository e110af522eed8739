package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/controlcuentas/admin-api/app/dto"
	businessflow "github.com/controlcuentas/admin-api/business_flow"
	"github.com/controlcuentas/admin-api/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// UserAdminHandlerInterface defines the contract for panel-user administration handlers.
type UserAdminHandlerInterface interface {
	List(c fiber.Ctx) error
	Create(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	Toggle(c fiber.Ctx) error
}

// UserAdminHandler handles panel-user administration requests.
type UserAdminHandler struct {
	flow      businessflow.UserManagementFlow
	validator *validator.Validate
}

// NewUserAdminHandler creates a new user administration handler.
func NewUserAdminHandler(flow businessflow.UserManagementFlow) *UserAdminHandler {
	return &UserAdminHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *UserAdminHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *UserAdminHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// List returns a page of panel users.
// @Summary List panel users
// @Description Paginated panel user listing (admin)
// @Tags Users
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.ListUsersResponse} "Retrieved"
// @Failure 400 {object} dto.APIResponse "Invalid pagination"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/users [get]
func (h *UserAdminHandler) List(c fiber.Ctx) error {
	page := 1
	if v := c.Query("page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			page = parsed
		}
	}
	size := 20
	if v := c.Query("size"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			size = parsed
		}
	}

	res, err := h.flow.ListUsers(h.createRequestContext(c, "/admin/users"), page, size)
	if err != nil {
		if be, ok := err.(*businessflow.BusinessError); ok {
			switch be.Code {
			case "INVALID_PAGE", "INVALID_PAGE_SIZE":
				return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination", be.Code, be.Error())
			}
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list users", "USERS_FETCH_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Users retrieved", res)
}

// Create registers a new panel user.
// @Summary Create panel user
// @Description Create a panel user, optionally granting the admin role (admin)
// @Tags Users
// @Accept json
// @Produce json
// @Param request body dto.CreateUserRequest true "User payload"
// @Success 201 {object} dto.APIResponse{data=dto.UserResponse} "Created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 409 {object} dto.APIResponse "Email already exists"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/users [post]
func (h *UserAdminHandler) Create(c fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, e := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(e))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.CreateUser(h.createRequestContext(c, "/admin/users"), &req, metadata)
	if err != nil {
		if be, ok := err.(*businessflow.BusinessError); ok {
			switch be.Code {
			case "INVALID_REQUEST":
				return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request", be.Code, be.Error())
			case "EMAIL_ALREADY_EXISTS":
				return h.ErrorResponse(c, fiber.StatusConflict, "Email already exists", be.Code, be.Error())
			}
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create user", "USER_CREATE_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "User created", res)
}

// Update patches a panel user.
// @Summary Update panel user
// @Description Update email and/or password of a panel user (admin)
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body dto.UpdateUserRequest true "Patch payload"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse} "Updated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Failure 409 {object} dto.APIResponse "Email already exists"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/users/{id} [put]
func (h *UserAdminHandler) Update(c fiber.Ctx) error {
	userID, err := h.pathUserID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid user id", "INVALID_REQUEST", err.Error())
	}

	var req dto.UpdateUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, e := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(e))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.UpdateUser(h.createRequestContext(c, "/admin/users/:id"), userID, &req, metadata)
	if err != nil {
		return h.mapUserError(c, err, "Failed to update user", "USER_UPDATE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "User updated", res)
}

// Delete removes a panel user.
// @Summary Delete panel user
// @Description Remove a panel user and their role grants (admin)
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteUserResponse} "Deleted"
// @Failure 400 {object} dto.APIResponse "Invalid user id"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/users/{id} [delete]
func (h *UserAdminHandler) Delete(c fiber.Ctx) error {
	userID, err := h.pathUserID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid user id", "INVALID_REQUEST", err.Error())
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.DeleteUser(h.createRequestContext(c, "/admin/users/:id"), userID, metadata)
	if err != nil {
		return h.mapUserError(c, err, "Failed to delete user", "USER_DELETE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "User deleted", res)
}

// Toggle flips the disabled flag of a panel user.
// @Summary Toggle panel user
// @Description Enable or disable a panel user (admin)
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.ToggleUserResponse} "Toggled"
// @Failure 400 {object} dto.APIResponse "Invalid user id"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /admin/users/{id}/toggle [post]
func (h *UserAdminHandler) Toggle(c fiber.Ctx) error {
	userID, err := h.pathUserID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid user id", "INVALID_REQUEST", err.Error())
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	res, err := h.flow.ToggleUser(h.createRequestContext(c, "/admin/users/:id/toggle"), userID, metadata)
	if err != nil {
		return h.mapUserError(c, err, "Failed to toggle user", "USER_TOGGLE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

func (h *UserAdminHandler) mapUserError(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	if be, ok := err.(*businessflow.BusinessError); ok {
		switch be.Code {
		case "INVALID_REQUEST", "USER_ID_REQUIRED":
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request", be.Code, be.Error())
		case "USER_NOT_FOUND":
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", be.Code, be.Error())
		case "EMAIL_ALREADY_EXISTS":
			return h.ErrorResponse(c, fiber.StatusConflict, "Email already exists", be.Code, be.Error())
		}
	}
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}

func (h *UserAdminHandler) pathUserID(c fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func (h *UserAdminHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	if userID, ok := c.Locals("user_id").(uint); ok && userID != 0 {
		ctx = context.WithValue(ctx, utils.UserIDKey, userID)
	}
	return ctx
}
