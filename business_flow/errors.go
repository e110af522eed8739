package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Account-related errors
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountNoPhone  = errors.New("account has no phone number")

	// User-related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrEmailAlreadyExists = errors.New("email already exists")

	// Automation config errors
	ErrConfigNotFound      = errors.New("automation config not found")
	ErrInvalidStatus       = errors.New("unrecognized automation status")
	ErrTrackingTypeInvalid = errors.New("unrecognized notification type")

	// Dispatch errors
	ErrTemplateRequired = errors.New("template is required for custom messages")
	ErrGatewayFailure   = errors.New("message gateway failure")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

func IsAccountNoPhone(err error) bool {
	return errors.Is(err, ErrAccountNoPhone)
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsUserDisabled(err error) bool {
	return errors.Is(err, ErrUserDisabled)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsConfigNotFound(err error) bool {
	return errors.Is(err, ErrConfigNotFound)
}

func IsInvalidStatus(err error) bool {
	return errors.Is(err, ErrInvalidStatus)
}

func IsTemplateRequired(err error) bool {
	return errors.Is(err, ErrTemplateRequired)
}

func IsGatewayFailure(err error) bool {
	return errors.Is(err, ErrGatewayFailure)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}
