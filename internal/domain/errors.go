package domain

import "errors"

// Sentinel errors for the application.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNoIdentity         = errors.New("no signed-in identity")
	ErrInvalidInput       = errors.New("invalid input")
)
