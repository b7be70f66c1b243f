package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RoutingBackendConfig configures the road-network routing backend.
type RoutingBackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RideAPIConfig configures the ride/driver backend consumed through the
// retry client.
type RideAPIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RetryConfig is the retry/backoff policy for outbound backend calls.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// GeofenceConfig tunes the detector.
type GeofenceConfig struct {
	PollInterval       time.Duration
	PickupRadiusM      float64
	DestinationRadiusM float64
}

// RouteCacheConfig tunes the route engine cache. Path is the optional sqlite
// file for the persistent layer; empty disables it.
type RouteCacheConfig struct {
	TTL        time.Duration
	MaxEntries int
	Path       string
}

// KafkaConfig configures the event bus.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// VoiceConfig tunes voice announcements.
type VoiceConfig struct {
	Muted bool
}

// ServiceConfig holds all configuration for the navigation service.
type ServiceConfig struct {
	AppEnv         string
	RoutingBackend RoutingBackendConfig
	RideAPI        RideAPIConfig
	Retry          RetryConfig
	Geofence       GeofenceConfig
	RouteCache     RouteCacheConfig
	Kafka          KafkaConfig
	Voice          VoiceConfig
}

// Load reads configuration from NAV_-prefixed environment variables, falling
// back to the documented defaults.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("NAV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app_env", "development")
	v.SetDefault("routing.base_url", "http://localhost:5000")
	v.SetDefault("routing.timeout", "10s")
	v.SetDefault("ride_api.base_url", "http://localhost:3000")
	v.SetDefault("ride_api.timeout", "30s")
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay", "1000ms")
	v.SetDefault("retry.max_delay", "10000ms")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("geofence.poll_interval", "20s")
	v.SetDefault("geofence.pickup_radius_m", 500.0)
	v.SetDefault("geofence.destination_radius_m", 500.0)
	v.SetDefault("route_cache.ttl", "5m")
	v.SetDefault("route_cache.max_entries", 256)
	v.SetDefault("route_cache.path", "")
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.group_prefix", "ridelink.")
	v.SetDefault("voice.muted", false)

	cfg := &ServiceConfig{
		AppEnv: v.GetString("app_env"),
		RoutingBackend: RoutingBackendConfig{
			BaseURL: v.GetString("routing.base_url"),
			Timeout: v.GetDuration("routing.timeout"),
		},
		RideAPI: RideAPIConfig{
			BaseURL: v.GetString("ride_api.base_url"),
			Timeout: v.GetDuration("ride_api.timeout"),
		},
		Retry: RetryConfig{
			MaxRetries: v.GetInt("retry.max_retries"),
			BaseDelay:  v.GetDuration("retry.base_delay"),
			MaxDelay:   v.GetDuration("retry.max_delay"),
			Multiplier: v.GetFloat64("retry.multiplier"),
		},
		Geofence: GeofenceConfig{
			PollInterval:       v.GetDuration("geofence.poll_interval"),
			PickupRadiusM:      v.GetFloat64("geofence.pickup_radius_m"),
			DestinationRadiusM: v.GetFloat64("geofence.destination_radius_m"),
		},
		RouteCache: RouteCacheConfig{
			TTL:        v.GetDuration("route_cache.ttl"),
			MaxEntries: v.GetInt("route_cache.max_entries"),
			Path:       v.GetString("route_cache.path"),
		},
		Kafka: KafkaConfig{
			Brokers:     strings.Split(v.GetString("kafka.brokers"), ","),
			GroupPrefix: v.GetString("kafka.group_prefix"),
		},
		Voice: VoiceConfig{
			Muted: v.GetBool("voice.muted"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServiceConfig) validate() error {
	if c.RoutingBackend.BaseURL == "" {
		return fmt.Errorf("routing backend base URL is required")
	}
	if c.RideAPI.BaseURL == "" {
		return fmt.Errorf("ride API base URL is required")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry max_retries must not be negative")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry multiplier must be at least 1")
	}
	if c.Geofence.PollInterval <= 0 {
		return fmt.Errorf("geofence poll interval must be positive")
	}
	return nil
}
