package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"
)

// Config holds configuration for the HTTP bridge.
type Config struct {
	// Address is the listen address.
	// Default: ":3000".
	Address string

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 10 seconds.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a websocket message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// PingInterval is the time between websocket pings. Clients that miss
	// two pings are dropped.
	// Default: 30 seconds.
	PingInterval time.Duration

	// MaxMessageSize is the maximum size of an incoming websocket message.
	// Default: 4KB.
	MaxMessageSize int64

	// SendBuffer is the per-client queue of outgoing messages. A client
	// whose queue is full is disconnected.
	// Default: 16.
	SendBuffer int

	// CheckOrigin is called to validate the websocket request origin.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// MetricsPath serves Prometheus metrics when a gatherer is set.
	// Default: "/metrics".
	MetricsPath string

	// SessionTTL is the lifetime of tokens issued by the server.
	// Default: 12 hours.
	SessionTTL time.Duration

	// Logger is the structured logger. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
// SECURITY: CheckOrigin enforces same-origin by default to prevent CSWSH.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":3000",
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		WriteTimeout:      10 * time.Second,
		PingInterval:      30 * time.Second,
		MaxMessageSize:    4 * 1024,
		SendBuffer:        16,
		CheckOrigin:       SameOriginCheck,
		MetricsPath:       "/metrics",
		SessionTTL:        12 * time.Hour,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.Address == "" {
		out.Address = d.Address
	}
	if out.ReadHeaderTimeout <= 0 {
		out.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if out.ShutdownTimeout <= 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.PingInterval <= 0 {
		out.PingInterval = d.PingInterval
	}
	if out.MaxMessageSize <= 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	if out.SendBuffer <= 0 {
		out.SendBuffer = d.SendBuffer
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = d.CheckOrigin
	}
	if out.MetricsPath == "" {
		out.MetricsPath = d.MetricsPath
	}
	if out.SessionTTL <= 0 {
		out.SessionTTL = d.SessionTTL
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return &out
}

// SameOriginCheck validates that the websocket request origin matches the host.
// SECURITY: Uses proper URL parsing to avoid edge cases with string manipulation.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// No Origin header (e.g., same-origin request or curl)
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if r.Host == "" {
		return false
	}
	return originURL.Host == r.Host
}

// AllowOrigins accepts same-origin requests plus the listed origins.
func AllowOrigins(origins ...string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if SameOriginCheck(r) {
			return true
		}
		return slices.Contains(origins, r.Header.Get("Origin"))
	}
}
