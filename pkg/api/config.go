package api

import "time"

// Environment names recognized by the server configuration.
const (
	EnvDevelopment = "dev"
	EnvProduction  = "prod"
	EnvTest        = "test"
)

// Config configures the HTTP API server.
type Config struct {
	// Env selects the runtime environment: dev, prod or test.
	// Production enables the HTTPS redirect and Secure cookies.
	// Default: dev
	Env string `mapstructure:"env" validate:"omitempty,oneof=dev prod test" yaml:"env"`

	// Host is the listen address. Default: "" (all interfaces).
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the HTTP port for the API endpoints.
	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. Default: 10s
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Model streaming responses can be large, so this is generous.
	// Default: 120s
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout. Default: 60s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// RequestTimeout bounds each JSON request handler. Streaming routes are
	// exempt. Default: 30s
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	// ShutdownTimeout is the grace period for draining in-flight requests.
	// Default: 10s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// TrustedProxy trusts X-Forwarded-Proto from the immediate peer when
	// deciding whether a request arrived over HTTPS. Enable only behind a
	// single trusted reverse proxy.
	TrustedProxy bool `mapstructure:"trusted_proxy" yaml:"trusted_proxy"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Env == "" {
		c.Env = EnvDevelopment
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 120 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// IsProduction reports whether the server runs with production policies.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}
