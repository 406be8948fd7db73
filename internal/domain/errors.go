package domain

import "errors"

var (
	// ErrNotFound is returned when a factory, activity, profile, position or user is absent.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals an integrity conflict such as a duplicate active activity code.
	ErrAlreadyExists = errors.New("already exists")
	// ErrBadFormat wraps validation failures of caller-supplied values.
	ErrBadFormat = errors.New("bad format")
	// ErrForbidden is returned when the acting user lacks the required role.
	ErrForbidden = errors.New("forbidden")
)
