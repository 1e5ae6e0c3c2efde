package apperrors

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrInvalidSelection    = errors.New("table is not part of the selected database")
	ErrNoOrganization      = errors.New("no organization selected")
	ErrUnknownOrganization = errors.New("unknown organization")
	ErrUnknownDatabase     = errors.New("unknown database")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidFixture      = errors.New("invalid fixture")
	ErrInvalidInput        = errors.New("invalid input")
)
