package models

import "errors"

// Application-wide standard errors
var (
	// Scene document errors
	ErrMalformedDocument = errors.New("scene document is malformed")
	ErrEmptyDocument     = errors.New("scene document has no objects") // valid for editing, fatal for rendering

	// Clip resolution errors
	ErrClipNotFound = errors.New("clip object not found in document")
	ErrInvalidClip  = errors.New("clip object cannot define an exact export rectangle")

	// Rendering errors
	ErrAssetLoad       = errors.New("failed to load referenced asset")
	ErrPayloadTooLarge = errors.New("request payload exceeds size limit")

	// Resource/DB errors
	ErrNotFound = errors.New("resource not found")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// General request/server errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)
