package model

import "errors"

var (
	// Profile related errors
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")

	// Payment related errors
	ErrPaymentNotFound = errors.New("payment not found")

	// Notification related errors
	ErrNotificationNotFound = errors.New("notification not found")

	// Session / identity related errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")

	// Timeout sentinels. Messages are stable identifiers: callers and the
	// route guard classify on them, so they must not be reworded.
	ErrAuthTimeout     = errors.New("AUTH_TIMEOUT")
	ErrTimeoutExceeded = errors.New("TIMEOUT_EXCEEDED")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
