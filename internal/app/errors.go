package service

import "errors"

// Sentinel errors for the orchestrator.
var (
	ErrNoCurrentUser = errors.New("no current user profile")
	ErrNoCatalog     = errors.New("no catalog source configured")
)
