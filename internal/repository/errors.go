// Package repository implements data access on top of database/sql.  This
// file defines error types that are reused across multiple repositories.
// These sentinel values let handlers distinguish failure scenarios: a
// validation problem the caller can fix (ErrInvalidORNumber,
// ErrInvalidTransition) versus a missing record versus a genuine storage
// fault.
package repository

import "errors"

// ErrNotFound is returned when the requested record does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("record not found")

// ErrInvalidORNumber is returned when an approval is attempted with an OR
// number that is not exactly 8 digits, or when an OR number accompanies a
// non-approval transition.  Nothing is written in either case.
var ErrInvalidORNumber = errors.New("invalid OR number")

// ErrInvalidTransition is returned when the target status is unknown or
// the record has already reached a terminal state.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrOfficeNotFound is returned when a submission references a field office
// code that does not exist.
var ErrOfficeNotFound = errors.New("field office not found")

// ErrUsernameExists is returned when creating an admin account with a
// username that is already taken.
var ErrUsernameExists = errors.New("username already exists")
