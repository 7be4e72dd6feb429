package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Navigation Errors (N001-N099)
	// ============================================

	"N001": {
		Category: CategoryNavigation,
		Message:  "No route matches path",
	},
	"N002": {
		Category: CategoryRouteTable,
		Message:  "Ambiguous route configuration",
	},
	"N003": {
		Category: CategoryNavigation,
		Message:  "Navigation blocked by guard",
	},
	"N004": {
		Category: CategoryLoader,
		Message:  "View failed to load",
	},
	"N005": {
		Category: CategoryNavigation,
		Message:  "Redirect loop detected",
	},
	"N006": {
		Category: CategoryNavigation,
		Message:  "Invalid navigation path",
	},
	"N007": {
		Category: CategoryNavigation,
		Message:  "Navigation superseded",
	},
	"N008": {
		Category: CategoryRouteTable,
		Message:  "Unknown route name",
	},

	// ============================================
	// Configuration Errors (C001-C099)
	// ============================================

	"C001": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
	},
	"C002": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
	},
	"C003": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
