package repository

import "errors"

// Sentinel errors for the ledger.
var (
	ErrProfileExists = errors.New("a user profile already exists")
	ErrInvalidUser   = errors.New("invalid user profile")
)
