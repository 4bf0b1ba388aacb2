package domain

import (
	"fmt"
	"strings"
)

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrConflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, Status: 409}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: 401}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Status: 403}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}

func ErrAccountLocked(msg string) *AppError {
	return &AppError{Code: "ACCOUNT_LOCKED", Message: msg, Status: 429}
}

func ErrRateLimited(msg string) *AppError {
	return &AppError{Code: "RATE_LIMITED", Message: msg, Status: 429}
}

// End-game validation errors.

func ErrEmptyBatch() *AppError {
	return &AppError{Code: "EMPTY_BATCH", Message: "no player results supplied", Status: 400}
}

// ErrUnknownPlayer names every player in the batch that does not exist.
func ErrUnknownPlayer(usernames []string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_PLAYER",
		Message: fmt.Sprintf("unknown players: %s", strings.Join(usernames, ", ")),
		Status:  404,
	}
}

func ErrImbalancedBatch(total int64) *AppError {
	return &AppError{
		Code:    "IMBALANCED_BATCH",
		Message: fmt.Sprintf("player results do not sum to zero (off by %d cents)", total),
		Status:  400,
	}
}

func ErrAlreadyClosed(code string) *AppError {
	return &AppError{Code: "ALREADY_CLOSED", Message: fmt.Sprintf("game %s is already closed", code), Status: 409}
}

func ErrPlayerNotInGame(username, code string) *AppError {
	return &AppError{
		Code:    "PLAYER_NOT_IN_GAME",
		Message: fmt.Sprintf("player %s is not a participant of game %s", username, code),
		Status:  404,
	}
}
