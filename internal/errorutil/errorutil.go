package errorutil

import "errors"

// ErrDataIntegrity is a base error type to use for failures that are due to
// unrecoverable data integrity issues.
var ErrDataIntegrity = errors.New("data integrity error")

// ErrNoResults represents situations in which no results were returned by the called API.
var ErrNoResults = errors.New("no results returned")

// ErrPrecondition marks a caller bug, such as state taken from a different
// tree than the one being processed.
var ErrPrecondition = errors.New("precondition violated")
