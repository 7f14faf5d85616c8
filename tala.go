// Package tala wires identity storage, session management, event recording
// and an HTTP adapter into a cookie-session auth service.
package tala

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lborres/tala/core"
	"github.com/lborres/tala/internal/logging"
	"github.com/lborres/tala/pkg/cache"
	"github.com/lborres/tala/pkg/crypto"
	"github.com/lborres/tala/services"
)

// interfaces
type (
	AuthStorage     = core.AuthStorage
	SessionStorage  = core.SessionStorage
	Cache           = core.Cache
	HTTPAdapter     = core.HTTPAdapter
	CacheWithStats  = core.CacheWithStats
	PasswordHandler = crypto.PasswordHandler
)

// structs
type (
	SessionConfig    = core.SessionConfig
	CacheConfig      = core.CacheConfig
	CookieConfig     = core.CookieConfig
	Endpoint         = core.Endpoint
	EndpointMetadata = core.EndpointMetadata
)

type (
	Identity       = core.Identity
	PublicIdentity = core.PublicIdentity
	Session        = core.Session
	Event          = core.Event
	CacheStats     = core.CacheStats
)

// Constructors & helpers (convenience re-exports)
var (
	NewInMemoryCache     = cache.NewInMemoryCache
	NewArgon2            = crypto.NewArgon2
	DefaultSessionConfig = core.DefaultSessionConfig
)

var (
	ErrInvalidInput       = core.ErrInvalidInput
	ErrMissingFields      = core.ErrMissingFields
	ErrUsernameTaken      = core.ErrUsernameTaken
	ErrEmailTaken         = core.ErrEmailTaken
	ErrInvalidCredentials = core.ErrInvalidCredentials
	ErrUserNotFound       = core.ErrUserNotFound
	ErrUnauthenticated    = core.ErrUnauthenticated
)

var (
	ErrStorageRequired     = core.ErrStorageRequired
	ErrHTTPAdapterRequired = core.ErrHTTPAdapterRequired
)

type Config struct {
	// Storage holds identities and events. When Sessions is nil it must
	// also implement SessionStorage.
	Storage  AuthStorage
	Sessions SessionStorage
	HTTP     HTTPAdapter

	// Cache is optional. Nil disables session caching.
	Cache          Cache
	SessionConfig  *SessionConfig
	PasswordHasher PasswordHandler
	Cookie         CookieConfig

	// Endpoints are added to the base routes. The HTTP adapter must have a
	// handler for each OperationID.
	Endpoints []Endpoint

	// MetricsPath is passed to the HTTP adapter; empty disables the endpoint
	MetricsPath string
	// Registerer receives the service counters; nil disables metrics
	Registerer prometheus.Registerer
	Logger     *slog.Logger
}

// Tala is a running auth service
type Tala struct {
	Auth     *services.AuthService
	Events   *services.EventRecorder
	Sessions *services.SessionManager
	Metrics  *services.Metrics
}

func New(config Config) (*Tala, error) {
	if config.Storage == nil {
		return nil, ErrStorageRequired
	}
	if config.HTTP == nil {
		return nil, ErrHTTPAdapterRequired
	}

	sessions := config.Sessions
	if sessions == nil {
		s, ok := config.Storage.(SessionStorage)
		if !ok {
			return nil, ErrStorageRequired
		}
		sessions = s
	}

	registry := services.NewEndpointRegistry()
	if err := registry.Register(config.Endpoints); err != nil {
		return nil, err
	}

	// Set Defaults

	sessionConfig := DefaultSessionConfig()
	if config.SessionConfig != nil {
		sessionConfig = *config.SessionConfig
	}

	passwordHasher := config.PasswordHasher
	if passwordHasher == nil {
		passwordHasher = crypto.NewMulti(crypto.NewArgon2(), crypto.NewBcrypt(0))
	}

	var metrics *services.Metrics
	if config.Registerer != nil {
		metrics = services.NewMetrics(config.Registerer)
		if c, ok := config.Cache.(CacheWithStats); ok {
			metrics.WatchCache(c)
		}
	}

	log := logging.OrDefault(config.Logger)

	sessionManager := services.NewSessionManager(sessionConfig, sessions, config.Cache, log)
	t := &Tala{
		Auth:     services.NewAuthService(config.Storage, passwordHasher, sessionManager, metrics, log),
		Events:   services.NewEventRecorder(config.Storage, metrics),
		Sessions: sessionManager,
		Metrics:  metrics,
	}

	err := config.HTTP.RegisterRoutes(t.Auth, t.Events, core.RouteOptions{
		Cookie:      config.Cookie,
		MetricsPath: config.MetricsPath,
		Endpoints:   registry.Endpoints(),
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}
