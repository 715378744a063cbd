package service

import (
	"errors"
	"net/http"

	"github.com/mediarequest/backend/internal/auth/repository"
	commoncrypto "github.com/mediarequest/backend/internal/common/crypto"
	commonerrors "github.com/mediarequest/backend/internal/common/errors"
)

var (
	ErrInvalidInput = commonerrors.NewDomainError(
		"INVALID_INPUT",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"invalid input",
	)

	ErrDuplicateEmail = commonerrors.NewDomainError(
		"DUPLICATE_EMAIL",
		commonerrors.CategoryConflict,
		http.StatusConflict,
		"email is already registered",
	)

	ErrInvalidCredentials = commonerrors.NewDomainError(
		"INVALID_CREDENTIALS",
		commonerrors.CategoryAuth,
		http.StatusUnauthorized,
		"invalid email or password",
	)

	ErrUnauthorized = commonerrors.NewDomainError(
		"UNAUTHORIZED",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"unauthorized",
	)

	ErrStoreUnavailable = commonerrors.NewDomainError(
		"INTERNAL_ERROR",
		commonerrors.CategoryInternal,
		http.StatusInternalServerError,
		"internal server error",
	)
)

// invalidInput keeps the INVALID_INPUT code but names the offending field.
func invalidInput(message string) commonerrors.DomainError {
	return ErrInvalidInput.WithMessage(message)
}

// storeError passes expected repository outcomes through and hides every
// other failure behind ErrStoreUnavailable.
func storeError(err error) error {
	if err == nil ||
		errors.Is(err, repository.ErrUserNotFound) ||
		errors.Is(err, repository.ErrEmailAlreadyExists) {
		return err
	}
	return ErrStoreUnavailable.WithCause(err)
}

// hashError reports a password the hasher refused as invalid input; any other
// hasher failure is internal.
func hashError(err error) error {
	if errors.Is(err, commoncrypto.ErrInvalidPassword) {
		return invalidInput(passwordLengthMessage)
	}
	return commonerrors.ErrInternalError.WithCause(err)
}
