// Package middleware provides the observability hooks of the storefront
// navigation core.
//
// This package includes:
//   - Prometheus metrics for navigations, guard decisions and view loads
//   - OpenTelemetry tracing for the HTTP bridge
//   - Request metrics for chi routes
//
// # Prometheus Metrics
//
// Metrics implements navigation.Observer and lazy.Observer, so one value is
// registered on both sides:
//
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	gate := lazy.NewGate(lazy.WithObserver(m))
//	nav := navigation.New(table, store, navigation.WithGate(gate), navigation.WithObserver(m))
//
// Collected series:
//   - storefront_navigations_total{outcome}
//   - storefront_navigation_duration_seconds{outcome}
//   - storefront_guard_decisions_total{decision}
//   - storefront_view_loads_total{view,status}
//   - storefront_view_load_duration_seconds{view}
//   - storefront_http_requests_total{route,code}
//   - storefront_subscribers
//
// # OpenTelemetry Middleware
//
// Trace starts a server span per HTTP request, named after the chi route
// pattern once routing has run:
//
//	r := chi.NewRouter()
//	r.Use(middleware.Trace(middleware.WithTracerName("storefront")))
package middleware
