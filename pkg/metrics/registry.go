// Package metrics provides Prometheus instrumentation for the ingestion
// pipeline and catalogue API.
//
// Metrics are opt-in: nothing is registered until InitRegistry is called.
// Every constructor returns nil when the registry is not initialized, and
// every record method is safe on a nil receiver, so disabled metrics cost
// a single nil check per call site.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config contains metrics configuration.
type Config struct {
	// Enabled turns the metrics endpoint on. Default: false.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Address is the listen address of the metrics HTTP server.
	// Default: ":9090".
	Address string `mapstructure:"address" yaml:"address"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Address == "" {
		c.Address = ":9090"
	}
}

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the process-wide metrics registry and seeds it with
// the standard Go runtime and process collectors. Calling it twice is a
// no-op.
func InitRegistry() {
	mu.Lock()
	defer mu.Unlock()
	if registry != nil {
		return
	}
	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the process-wide registry, or nil when metrics are
// not enabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// resetRegistry clears the process-wide registry. Test use only.
func resetRegistry() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
}

// Handler returns the scrape handler for the process-wide registry, or nil
// when metrics are not enabled.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Serve builds the dedicated metrics HTTP server on cfg.Address. The
// caller starts it with ListenAndServe and stops it with Shutdown.
func Serve(cfg *Config) *http.Server {
	cfg.ApplyDefaults()

	mux := http.NewServeMux()
	if h := Handler(); h != nil {
		mux.Handle("/metrics", h)
	}

	return &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
