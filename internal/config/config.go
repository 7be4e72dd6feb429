package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/vango-dev/storefront/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "storefront.json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "STOREFRONT_"

	// DefaultPort is the default HTTP bridge port.
	DefaultPort = 3000

	// DefaultHost is the default HTTP bridge host.
	DefaultHost = "localhost"

	// DefaultMetricsPath is where Prometheus metrics are served.
	DefaultMetricsPath = "/metrics"

	// DefaultLoginPath is the authentication entry point.
	DefaultLoginPath = "/"

	// DefaultErrorRoute is the path shown when a navigation cannot load.
	DefaultErrorRoute = "/error"

	// DefaultMaxRedirects bounds the targets one navigation may visit.
	DefaultMaxRedirects = 16

	// DefaultIssuer is the session token issuer.
	DefaultIssuer = "storefront"

	// DefaultServiceName is the service.name reported with traces.
	DefaultServiceName = "storefront"
)

// Duration is a time.Duration written as a string ("250ms", "12h").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for JSON and env.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the complete storefront.json configuration.
type Config struct {
	// Navigation configures the navigation router.
	Navigation NavigationConfig `json:"navigation" envPrefix:"NAVIGATION_"`

	// Routes configures where the route table comes from.
	Routes RoutesConfig `json:"routes" envPrefix:"ROUTES_"`

	// Loader configures where deferred view bundles are fetched from.
	Loader LoaderConfig `json:"loader" envPrefix:"LOADER_"`

	// Server configures the HTTP bridge.
	Server ServerConfig `json:"server" envPrefix:"SERVER_"`

	// Session configures session tokens.
	Session SessionConfig `json:"session" envPrefix:"SESSION_"`

	// Telemetry configures trace export.
	Telemetry TelemetryConfig `json:"telemetry" envPrefix:"TELEMETRY_"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// NavigationConfig contains navigation router settings.
type NavigationConfig struct {
	// LoginPath is where unauthenticated navigations are redirected.
	LoginPath string `json:"loginPath,omitempty" env:"LOGIN_PATH"`

	// NotFoundRoute is navigated to when nothing matches. Tables with a
	// catch-all never need it.
	NotFoundRoute string `json:"notFoundRoute,omitempty" env:"NOT_FOUND_ROUTE"`

	// ErrorRoute is navigated to when a guard blocks or a view fails to load.
	ErrorRoute string `json:"errorRoute,omitempty" env:"ERROR_ROUTE"`

	// MaxRedirects bounds the targets one navigation may visit.
	MaxRedirects int `json:"maxRedirects,omitempty" env:"MAX_REDIRECTS"`

	// LoadAttempts is how often a transient load failure is tried within
	// one navigation.
	LoadAttempts int `json:"loadAttempts,omitempty" env:"LOAD_ATTEMPTS"`

	// LoadRetryDelay is the pause between load attempts.
	LoadRetryDelay Duration `json:"loadRetryDelay,omitempty" env:"LOAD_RETRY_DELAY"`

	// LoadTimeout bounds each loader call. Zero means no bound.
	LoadTimeout Duration `json:"loadTimeout,omitempty" env:"LOAD_TIMEOUT"`
}

// RoutesConfig contains route table settings.
type RoutesConfig struct {
	// File is a YAML route table. Empty uses the built-in table.
	File string `json:"file,omitempty" env:"FILE"`

	// LazyRegister defers the registration view.
	LazyRegister bool `json:"lazyRegister,omitempty" env:"LAZY_REGISTER"`
}

// LoaderConfig contains view bundle store settings.
type LoaderConfig struct {
	// Dir reads bundles from a local directory. Takes precedence over S3.
	Dir string `json:"dir,omitempty" env:"DIR"`

	// Bucket is the S3 bucket holding bundles. Empty disables S3.
	Bucket string `json:"bucket,omitempty" env:"BUCKET"`

	// Prefix is prepended to bundle keys.
	Prefix string `json:"prefix,omitempty" env:"PREFIX"`

	// Region is the bucket's AWS region.
	Region string `json:"region,omitempty" env:"REGION"`

	// Endpoint overrides the S3 endpoint (MinIO, LocalStack).
	Endpoint string `json:"endpoint,omitempty" env:"ENDPOINT"`

	AccessKeyID     string `json:"-" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `json:"-" env:"SECRET_ACCESS_KEY"`
}

// ServerConfig contains HTTP bridge settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty" env:"HOST"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty" env:"PORT"`

	// MetricsPath serves Prometheus metrics. "-" disables it.
	MetricsPath string `json:"metricsPath,omitempty" env:"METRICS_PATH"`

	// AllowedOrigins are accepted websocket origins. Empty allows same-origin only.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// SessionConfig contains session token settings.
type SessionConfig struct {
	// JWTSecret signs session tokens. Empty disables token login.
	JWTSecret string `json:"-" env:"JWT_SECRET"`

	// Issuer is the token issuer.
	Issuer string `json:"issuer,omitempty" env:"ISSUER"`

	// TTL is how long issued tokens are valid.
	TTL Duration `json:"ttl,omitempty" env:"TTL"`
}

// TelemetryConfig contains OpenTelemetry export settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the host:port of an OTLP/HTTP collector. Empty
	// disables export.
	OTLPEndpoint string `json:"otlpEndpoint,omitempty" env:"OTLP_ENDPOINT"`

	// Insecure sends traces over plain HTTP.
	Insecure bool `json:"insecure,omitempty" env:"INSECURE"`

	// ServiceName is reported as service.name.
	ServiceName string `json:"serviceName,omitempty" env:"SERVICE_NAME"`

	// SampleRatio is the fraction of root navigations traced, 0 to 1.
	SampleRatio float64 `json:"sampleRatio,omitempty" env:"SAMPLE_RATIO"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Navigation: NavigationConfig{
			LoginPath:      DefaultLoginPath,
			ErrorRoute:     DefaultErrorRoute,
			MaxRedirects:   DefaultMaxRedirects,
			LoadAttempts:   1,
			LoadRetryDelay: Duration(250 * time.Millisecond),
		},
		Server: ServerConfig{
			Host:        DefaultHost,
			Port:        DefaultPort,
			MetricsPath: DefaultMetricsPath,
		},
		Session: SessionConfig{
			Issuer: DefaultIssuer,
			TTL:    Duration(12 * time.Hour),
		},
		Telemetry: TelemetryConfig{
			ServiceName: DefaultServiceName,
			SampleRatio: 1,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for storefront.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path and applies
// environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("C001").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " or run without --config to use defaults")
		}
		return nil, errors.New("C002").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("C002").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")
	}
	cfg.configPath = path

	if err := cfg.applyEnv(os.Environ()); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadOrDefault loads storefront.json from dir when present, and the
// defaults otherwise. Environment overrides apply in both cases.
func LoadOrDefault(dir string) (*Config, error) {
	if Exists(dir) {
		return Load(dir)
	}
	cfg := New()
	if err := cfg.applyEnv(os.Environ()); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyEnv overlays STOREFRONT_* variables from environ.
func (c *Config) applyEnv(environ []string) error {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	err := env.ParseWithOptions(c, env.Options{
		Prefix:      EnvPrefix,
		Environment: vars,
	})
	if err != nil {
		return errors.New("C003").
			WithDetail(err.Error()).
			WithSuggestion("Check the " + EnvPrefix + "* environment variables")
	}
	return nil
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Navigation.LoginPath == "" {
		c.Navigation.LoginPath = DefaultLoginPath
	}
	if c.Navigation.MaxRedirects == 0 {
		c.Navigation.MaxRedirects = DefaultMaxRedirects
	}
	if c.Navigation.LoadAttempts == 0 {
		c.Navigation.LoadAttempts = 1
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = DefaultMetricsPath
	}
	if c.Session.Issuer == "" {
		c.Session.Issuer = DefaultIssuer
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = Duration(12 * time.Hour)
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("C003").
			WithDetail("server.port must be between 0 and 65535")
	}
	for name, p := range map[string]string{
		"navigation.loginPath":     c.Navigation.LoginPath,
		"navigation.notFoundRoute": c.Navigation.NotFoundRoute,
		"navigation.errorRoute":    c.Navigation.ErrorRoute,
	} {
		if p != "" && !strings.HasPrefix(p, "/") {
			return errors.New("C003").
				WithDetailf("%s must start with /, got %q", name, p)
		}
	}
	if c.Navigation.MaxRedirects < 0 || c.Navigation.LoadAttempts < 0 {
		return errors.New("C003").
			WithDetail("navigation.maxRedirects and navigation.loadAttempts must not be negative")
	}
	if c.Navigation.LoadRetryDelay < 0 || c.Navigation.LoadTimeout < 0 {
		return errors.New("C003").
			WithDetail("navigation durations must not be negative")
	}
	if c.Server.MetricsPath != "-" && !strings.HasPrefix(c.Server.MetricsPath, "/") {
		return errors.New("C003").
			WithDetailf("server.metricsPath must start with / or be \"-\", got %q", c.Server.MetricsPath)
	}
	if c.Loader.Bucket != "" && c.Loader.Region == "" && c.Loader.Endpoint == "" {
		return errors.New("C003").
			WithDetail("loader.region is required with loader.bucket").
			WithSuggestion("Set loader.region or STOREFRONT_LOADER_REGION")
	}
	if (c.Loader.AccessKeyID == "") != (c.Loader.SecretAccessKey == "") {
		return errors.New("C003").
			WithDetail("loader credentials need both an access key id and a secret access key")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return errors.New("C003").
			WithDetailf("telemetry.sampleRatio must be between 0 and 1, got %v", c.Telemetry.SampleRatio)
	}
	if strings.Contains(c.Telemetry.OTLPEndpoint, "://") {
		return errors.New("C003").
			WithDetailf("telemetry.otlpEndpoint is host:port, got %q", c.Telemetry.OTLPEndpoint).
			WithSuggestion("Drop the scheme and set telemetry.insecure for plain HTTP")
	}
	return nil
}

// Address returns the listen address of the HTTP bridge.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// MetricsEnabled reports whether the metrics endpoint is served.
func (c *Config) MetricsEnabled() bool {
	return c.Server.MetricsPath != "-"
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// RoutesPath returns the absolute path of the route table file, or "" for
// the built-in table.
func (c *Config) RoutesPath() string {
	return c.resolve(c.Routes.File)
}

// LoaderDir returns the absolute path of the local bundle directory, or "".
func (c *Config) LoaderDir() string {
	return c.resolve(c.Loader.Dir)
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
