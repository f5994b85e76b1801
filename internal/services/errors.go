package services

import "errors"

// ErrInvalidInput is returned when a request carries missing or
// malformed fields. Wrapped errors add the field-specific detail.
var ErrInvalidInput = errors.New("invalid input")

// ErrInvalidCredentials is returned when a login attempt fails. It does
// not distinguish an unknown username from a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")
