package service

import (
	"errors"

	"travelbook/internal/auth"
	"travelbook/internal/domain"
	"travelbook/internal/validation"
)

var (
	ErrUnauthorized       = errors.New("authentication required")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTooManyAttempts    = errors.New("too many login attempts, try again later")
	ErrCartItemNotFound   = errors.New("cart item not found")
	ErrCartFull           = domain.ErrCartFull
)

func invalid(field, msg string) error {
	return &validation.Error{Field: field, Message: msg}
}

// requireAdmin rejects anonymous and non-admin callers.
func requireAdmin(actor *auth.Claims) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// requireOwner lets a user act on their own records; admins act on anyone's.
func requireOwner(actor *auth.Claims, username string) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if actor.Username != username && !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
