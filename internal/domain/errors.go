package domain

import "errors"

// ErrNotFound is returned by store and service functions when the requested
// record does not exist (or was concurrently deleted by another client).
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing title, end date before start date).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConfirmation is returned when a destructive operation is attempted with
// a wrong confirmation token. It is treated like a user-cancelled operation,
// not a system error: no store call has been made when it is returned.
// Handlers should map this to HTTP 403.
var ErrConfirmation = errors.New("confirmation token mismatch")

// ErrPhotoTooLarge is returned when an encoded photo exceeds the ceiling safe
// for a size-limited document. The upload pipeline skips the file and counts
// it as a failure rather than persisting an oversized document.
var ErrPhotoTooLarge = errors.New("encoded photo exceeds document size limit")
