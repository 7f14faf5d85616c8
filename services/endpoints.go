package services

import (
	"fmt"
	"sort"

	"github.com/lborres/tala/core"
)

// BaseEndpoints returns framework-agnostic endpoint specifications
// for the pages and the JSON API.
//
// Each endpoint is a template:
// - Path and Method are set
// - Protected routes are wrapped in the adapter's auth middleware
// - Metadata.OperationID is what adapters bind their handlers to
func BaseEndpoints() []core.Endpoint {
	return []core.Endpoint{
		{
			Path:   "/",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: core.OpIndexPage,
				Description: "Landing page",
			},
		},
		{
			Path:   "/signup",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: core.OpSignUpPage,
				Description: "Sign-up form; redirects to the dashboard when already signed in",
			},
		},
		{
			Path:   "/login",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: core.OpLoginPage,
				Description: "Login form; redirects to the dashboard when already signed in",
			},
		},
		{
			Path:   "/dashboard",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: core.OpDashboardPage,
				Description: "Dashboard for the signed-in identity",
			},
		},
		{
			Path:   "/logout",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: core.OpLogoutPage,
				Description: "End the session and return to the landing page",
			},
		},
		{
			Path:   "/api/signup",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: core.OpSignUp,
				Description: "Register a new identity with username, password and optional email",
			},
		},
		{
			Path:   "/api/login",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: core.OpLogin,
				Description: "Log in with username or email and password",
			},
		},
		{
			Path:   "/api/logout",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: core.OpLogout,
				Description: "End the current session",
			},
		},
		{
			Path:   "/api/user",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: core.OpGetUser,
				Description: "Profile of the signed-in identity",
			},
		},
		{
			Path:      "/track",
			Method:    "POST",
			Protected: true,
			Metadata: core.EndpointMetadata{
				OperationID: core.OpTrackEvent,
				Description: "Record an event attributed to the signed-in identity",
			},
		},
	}
}

// EndpointRegistry manages a collection of framework-agnostic endpoints
// and handles conflict detection for duplicate METHOD:PATH combinations.
type EndpointRegistry struct {
	// endpoints stores all registered endpoints keyed by "METHOD:PATH"
	endpoints map[string]*core.Endpoint
}

// NewEndpointRegistry creates a new registry with all base endpoints
// pre-registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}

	base := BaseEndpoints()
	for i := range base {
		// base endpoints are conflict-free; covered by tests
		_ = reg.register(&base[i])
	}

	return reg
}

func endpointKey(ep *core.Endpoint) string {
	return fmt.Sprintf("%s:%s", ep.Method, ep.Path)
}

func (r *EndpointRegistry) register(ep *core.Endpoint) error {
	key := endpointKey(ep)

	if _, exists := r.endpoints[key]; exists {
		return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
	}

	r.endpoints[key] = ep
	return nil
}

// Register adds extra endpoints to the registry.
// If any of them conflicts with a registered endpoint or with another in
// the same batch, nothing is registered.
func (r *EndpointRegistry) Register(endpoints []core.Endpoint) error {
	seen := make(map[string]bool, len(endpoints))
	for i := range endpoints {
		ep := &endpoints[i]
		key := endpointKey(ep)

		if _, exists := r.endpoints[key]; exists {
			return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
		}
		if seen[key] {
			return fmt.Errorf("duplicate endpoint in batch: %s %s", ep.Method, ep.Path)
		}
		seen[key] = true
	}

	for i := range endpoints {
		ep := endpoints[i]
		r.endpoints[endpointKey(&ep)] = &ep
	}

	return nil
}

// Endpoints returns all registered endpoints ordered by path, then method
func (r *EndpointRegistry) Endpoints() []*core.Endpoint {
	result := make([]*core.Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		result = append(result, ep)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Path != result[j].Path {
			return result[i].Path < result[j].Path
		}
		return result[i].Method < result[j].Method
	})
	return result
}
