// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidInput indicates a structurally invalid request, the one case
// where the analysis manager fails the whole request instead of degrading.
var ErrInvalidInput = errors.New("invalid input")

// ErrValidation indicates a request that is well-formed but semantically invalid.
var ErrValidation = errors.New("validation failed")
