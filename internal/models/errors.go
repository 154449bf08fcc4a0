package models

import "errors"

var (
	// ErrInvalidAccount is returned when a required field is missing or malformed.
	ErrInvalidAccount = errors.New("invalid account data")
	// ErrAccountNotFound is returned when no row references the username.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned when creating a username that already has credentials.
	ErrAccountExists = errors.New("account already exists")
	// ErrStoreUnavailable is returned when a connection to the store cannot be acquired.
	ErrStoreUnavailable = errors.New("store unavailable")
)
