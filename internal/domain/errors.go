package domain

import "errors"

var (
	ErrValidation    = errors.New("invalid input")
	ErrUnauthorized  = errors.New("not authorized")
	ErrNotConfigured = errors.New("style not configured")
	ErrExternalCall  = errors.New("platform request failed")
	ErrPersistence   = errors.New("snapshot persistence failed")
)
