// Package server exposes a navigation router over HTTP.
//
// Routes:
//
//	GET    /state      current NavigationState and last commit
//	POST   /navigate   run a navigation request, respond with its commit
//	GET    /routes     the route table
//	POST   /session    log in with a session token
//	DELETE /session    log out
//	GET    /ws         websocket stream of commits; accepts navigation requests
//	GET    /metrics    Prometheus metrics (path configurable)
//
// The websocket carries JSON envelopes:
//
//	{"type": "commit", "commit": {...}}
//	{"type": "error", "error": {"code": "N004", ...}}
//
// Clients send {"path": "/about"} or {"name": "detail", "params": {"id": "7"}}
// to navigate.
package server
