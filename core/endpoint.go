package core

// Operation IDs shared by the endpoint registry and HTTP adapters
const (
	OpIndexPage     = "indexPage"
	OpSignUpPage    = "signUpPage"
	OpLoginPage     = "loginPage"
	OpDashboardPage = "dashboardPage"
	OpLogoutPage    = "logoutPage"
	OpSignUp        = "signUpWithUsernameAndPassword"
	OpLogin         = "loginWithUsernameOrEmail"
	OpLogout        = "logout"
	OpGetUser       = "getUser"
	OpTrackEvent    = "trackEvent"
)

// Endpoint is a framework-agnostic route template.
// Adapters bind their own handlers by Metadata.OperationID.
type Endpoint struct {
	Path   string
	Method string
	// Protected routes run behind the adapter's auth middleware
	Protected bool
	Metadata  EndpointMetadata
}

type EndpointMetadata struct {
	OperationID string
	Description string
}

// ErrorResponse represents an error response structure
type ErrorResponse struct {
	Error string `json:"error"`
}
