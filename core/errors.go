package core

import (
	"errors"
	"fmt"
)

// Identity related errors
var (
	ErrInvalidInput       = errors.New("username and password are required") // 400 Bad Request
	ErrDuplicateIdentity  = errors.New("identity already exists")            // 400 Bad Request
	ErrUsernameTaken      = fmt.Errorf("%w: username taken", ErrDuplicateIdentity)
	ErrEmailTaken         = fmt.Errorf("%w: email taken", ErrDuplicateIdentity)
	ErrInvalidCredentials = errors.New("invalid username or password") // 400 Bad Request
	ErrUserNotFound       = errors.New("user not found")               // 404 Not Found
)

// Session errors
var (
	ErrUnauthenticated = errors.New("not authenticated") // 401
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidToken    = fmt.Errorf("%w: invalid token", ErrSessionNotFound)
	// An expired session is indistinguishable from a destroyed one for callers
	ErrSessionExpired = fmt.Errorf("%w: expired", ErrSessionNotFound)
	ErrCacheNotFound  = errors.New("session not found in cache")
)

// Event errors
var (
	ErrMissingFields = fmt.Errorf("%w: missing required fields", ErrInvalidInput) // 400
)

// Config errors (server-side configuration)
var (
	ErrStorageRequired     = errors.New("storage adapter is required") // 500
	ErrHTTPAdapterRequired = errors.New("http adapter is required")    // 500
)
