package fiber

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lborres/tala/core"
	"github.com/lborres/tala/internal/logging"
	"github.com/lborres/tala/services"
)

type Adapter struct {
	app      *fiber.App
	auth     core.AuthHandler
	events   core.EventHandler
	opts     core.RouteOptions
	gatherer prometheus.Gatherer
	extra    map[string]fiber.Handler
	log      *slog.Logger
}

var _ core.HTTPAdapter = (*Adapter)(nil)

type Option func(*Adapter)

// WithLogger sets the logger used for 500 responses
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.log = logger }
}

// WithMetrics serves g at RouteOptions.MetricsPath
func WithMetrics(g prometheus.Gatherer) Option {
	return func(a *Adapter) { a.gatherer = g }
}

// WithHandler binds h to an extra endpoint registered under operationID
func WithHandler(operationID string, h fiber.Handler) Option {
	return func(a *Adapter) { a.extra[operationID] = h }
}

func New(app *fiber.App, opts ...Option) *Adapter {
	a := &Adapter{app: app, extra: make(map[string]fiber.Handler)}
	for _, opt := range opts {
		opt(a)
	}
	a.log = logging.OrDefault(a.log)
	return a
}

func (a *Adapter) RegisterRoutes(auth core.AuthHandler, events core.EventHandler, opts core.RouteOptions) error {
	if opts.Cookie.Name == "" {
		opts.Cookie.Name = core.DefaultCookieName
	}
	a.auth = auth
	a.events = events
	a.opts = opts

	handlers := map[string]fiber.Handler{
		core.OpIndexPage:     a.indexPage,
		core.OpSignUpPage:    a.signUpPage,
		core.OpLoginPage:     a.loginPage,
		core.OpDashboardPage: a.dashboardPage,
		core.OpLogoutPage:    a.logoutPage,
		core.OpSignUp:        a.signUp,
		core.OpLogin:         a.login,
		core.OpLogout:        a.logout,
		core.OpGetUser:       a.getUser,
		core.OpTrackEvent:    a.trackEvent,
	}
	for id, h := range a.extra {
		if _, exists := handlers[id]; exists {
			return fmt.Errorf("handler for operation %q is built in", id)
		}
		handlers[id] = h
	}

	endpoints := opts.Endpoints
	if endpoints == nil {
		endpoints = services.NewEndpointRegistry().Endpoints()
	}

	for _, ep := range endpoints {
		handler, ok := handlers[ep.Metadata.OperationID]
		if !ok {
			return fmt.Errorf("no handler for operation %q (%s %s)", ep.Metadata.OperationID, ep.Method, ep.Path)
		}
		if ep.Protected {
			handler = a.RequireAuth(handler)
		}
		a.app.Add([]string{ep.Method}, ep.Path, handler)
	}

	if opts.MetricsPath != "" && a.gatherer != nil {
		a.app.Get(opts.MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})))
	}

	return nil
}
