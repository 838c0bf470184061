package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// trip does not exist in the store.
// Handlers map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing title, start date after end date).
// Handlers map this to HTTP 400.
var ErrValidation = errors.New("validation error")

// ErrDuplicateID is returned by TripRepo.Create when a caller-supplied id is
// already in use.
var ErrDuplicateID = errors.New("duplicate id")

// ErrBusy is returned by the auth controller when a sign-in, sign-up or
// sign-out is already in flight.
var ErrBusy = errors.New("operation already in progress")
