// Package config loads the controller's process-wide configuration from
// the environment (§6), via viper's AutomaticEnv binding, with an optional
// local .env file loaded first for development.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Redth/npm-docker-sync/internal/labels"
)

// DefaultDockerHost is used when DOCKER_HOST is unset.
const DefaultDockerHost = "unix:///var/run/docker.sock"

// Config is every environment-derived setting this process needs at boot.
// Validation happens once, here; a missing required field is a
// Configuration Fatal (§7) and Load returns an error before any goroutine
// starts.
type Config struct {
	NPMURL      string
	NPMEmail    string
	NPMPassword string
	DockerHost  string

	InstanceIDOverride    string
	ProxyManagerContainer string
	HostAddressOverride   string

	ProxyDefaults labels.Defaults

	Mirrors []MirrorSlot

	LogLevel string
}

// known env vars (required and optional), bound individually so AutomaticEnv's case-folding
// behaves predictably regardless of the caller's shell.
var envKeys = []string{
	"NPM_URL", "NPM_EMAIL", "NPM_PASSWORD", "DOCKER_HOST",
	"SYNC_INSTANCE_ID", "NPM_CONTAINER", "HOST_ADDRESS",
	"SSL_FORCED_DEFAULT", "CACHING_DEFAULT", "BLOCK_COMMON_EXPLOITS_DEFAULT",
	"WEBSOCKETS_DEFAULT", "HTTP2_DEFAULT", "HSTS_DEFAULT", "HSTS_SUBDOMAINS_DEFAULT",
	"LOG_LEVEL",
	"MIRROR_EMAIL", "MIRROR_PASSWORD", "MIRROR_SYNC_INTERVAL", "MIRROR_URLS",
}

// Load reads and validates the process configuration. It loads a local
// .env file first (if present; absence is not an error), then binds every
// known key from the real environment, which always wins over .env.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	bindMirrorSlotEnv(v)

	cfg := &Config{
		NPMURL:                v.GetString("NPM_URL"),
		NPMEmail:              v.GetString("NPM_EMAIL"),
		NPMPassword:           v.GetString("NPM_PASSWORD"),
		DockerHost:            v.GetString("DOCKER_HOST"),
		InstanceIDOverride:    v.GetString("SYNC_INSTANCE_ID"),
		ProxyManagerContainer: v.GetString("NPM_CONTAINER"),
		HostAddressOverride:   v.GetString("HOST_ADDRESS"),
		LogLevel:              v.GetString("LOG_LEVEL"),
		ProxyDefaults: labels.Defaults{
			SSLForced:        v.GetBool("SSL_FORCED_DEFAULT"),
			CachingEnabled:   v.GetBool("CACHING_DEFAULT"),
			BlockExploits:    boolDefault(v, "BLOCK_COMMON_EXPLOITS_DEFAULT", true),
			WebsocketUpgrade: v.GetBool("WEBSOCKETS_DEFAULT"),
			HTTP2:            v.GetBool("HTTP2_DEFAULT"),
			HSTS:             v.GetBool("HSTS_DEFAULT"),
			HSTSSubdomains:   v.GetBool("HSTS_SUBDOMAINS_DEFAULT"),
		},
	}

	if cfg.DockerHost == "" {
		cfg.DockerHost = DefaultDockerHost
	}

	if cfg.NPMURL == "" || cfg.NPMEmail == "" || cfg.NPMPassword == "" {
		return nil, fmt.Errorf("NPM_URL, NPM_EMAIL, and NPM_PASSWORD are required")
	}

	mirrors, err := parseMirrorSlots(v)
	if err != nil {
		return nil, err
	}
	cfg.Mirrors = mirrors

	return cfg, nil
}

// boolDefault returns v's bool value if the key was explicitly set,
// otherwise fallback. viper.GetBool returns false for an unset key, which
// would silently override BlockExploits's true default.
func boolDefault(v *viper.Viper, key string, fallback bool) bool {
	if !v.IsSet(key) || v.GetString(key) == "" {
		return fallback
	}
	return parseBoolLoose(v.GetString(key), fallback)
}

func parseBoolLoose(s string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return fallback
	}
}

// EffectiveMirrorInterval computes §4.7's effective interval: the min of
// the global default and every configured slot's own interval, bounded to
// at least MinInterval.
func EffectiveMirrorInterval(mirrors []MirrorSlot, defaultInterval, minInterval time.Duration) time.Duration {
	effective := defaultInterval
	for _, m := range mirrors {
		if m.Interval > 0 && m.Interval < effective {
			effective = m.Interval
		}
	}
	if effective < minInterval {
		effective = minInterval
	}
	return effective
}
