package core

import "time"

type SessionConfig struct {
	// MaxAge bounds the lifetime of every issued session
	MaxAge time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxAge: 24 * time.Hour,
	}
}

// CacheConfig configures cache behavior
type CacheConfig struct {
	TTL     time.Duration
	MaxSize int
}

// CookieConfig describes the cookie carrying the session token
type CookieConfig struct {
	Name   string
	Secure bool
}

const DefaultCookieName = "tala_session"

// RouteOptions are handed to an HTTPAdapter when routes are registered
type RouteOptions struct {
	Cookie CookieConfig

	// MetricsPath enables a metrics endpoint when non-empty
	MetricsPath string

	// Endpoints are the routes to bind. Nil means the base endpoints.
	Endpoints []*Endpoint
}
