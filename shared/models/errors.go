package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound = errors.New("resource not found") // General not found

	// Lifecycle & Invariant Errors
	ErrConflict         = errors.New("operation conflicts with current resource state")
	ErrAlreadyDeleted   = errors.New("resource is already deleted")
	ErrNotDeleted       = errors.New("resource is not deleted")
	ErrDeleteBlocked    = errors.New("resource cannot be deleted while it is referenced")
	ErrRetentionActive  = errors.New("retention window has not elapsed yet")
	ErrArtifactInactive = errors.New("artifact is deleted and cannot be activated")

	// Credit Ledger Errors
	ErrInsufficientCredits = errors.New("not enough available credits")

	// General Request Errors
	ErrBadRequest   = errors.New("bad request")
	ErrInvalidInput = errors.New("invalid input data")

	// Add other specific errors as needed
)
