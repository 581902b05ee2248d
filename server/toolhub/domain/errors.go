package domain

import "errors"

// Error categories for the conversion pipeline. Handlers wrap these with
// detail via fmt.Errorf("%w: ...") and the API layer maps each category to
// one HTTP status; the wrapped detail stays in server logs.
var (
	ErrBadRequest        = errors.New("bad request")
	ErrUnsupportedMedia  = errors.New("unsupported media type")
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrTransformation    = errors.New("transformation failed")
	ErrArchive           = errors.New("archive build failed")
	ErrStorage           = errors.New("object storage failed")
	ErrTransformTimeout  = errors.New("transformation timed out")
	ErrObjectListing     = errors.New("object listing failed")
	ErrInvalidLogin      = errors.New("invalid username or password")
	ErrUsernameTaken     = errors.New("username already taken")
)
