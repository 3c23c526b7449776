// Package app is the root package of all domain related packages.
//
// All entity types are defined in this package.
package app

import "errors"

var (
	ErrInvalid  = errors.New("invalid operation")
	ErrNotFound = errors.New("object not found")
)

