package service

import (
	"errors"
	"fmt"

	"learnsphere/internal/repository"
)

var (
	ErrNotFound           = repository.ErrNotFound
	ErrDuplicateDoc       = repository.ErrDuplicate
	ErrForbidden          = errors.New("not allowed")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNotEnrolled        = errors.New("not enrolled in course")
	ErrAlreadyEnrolled    = errors.New("already enrolled in course")
	ErrAlreadyReviewed    = errors.New("course already reviewed")
	ErrQuizExists         = errors.New("lesson already has a quiz")
	ErrQuizUnavailable    = errors.New("quiz not found or has no questions")
	ErrInteractionBlocked = errors.New("return to fullscreen to continue")
	ErrPersistUnavailable = errors.New("attempt could not be saved")
	ErrOAuthDisabled      = errors.New("google sign-in is not configured")
	ErrOAuthState         = errors.New("invalid or expired oauth state")
)

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
