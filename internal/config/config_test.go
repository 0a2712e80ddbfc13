package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearNPMEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NPM_URL", "NPM_EMAIL", "NPM_PASSWORD", "DOCKER_HOST",
		"SYNC_INSTANCE_ID", "NPM_CONTAINER", "HOST_ADDRESS",
		"SSL_FORCED_DEFAULT", "CACHING_DEFAULT", "BLOCK_COMMON_EXPLOITS_DEFAULT",
		"WEBSOCKETS_DEFAULT", "HTTP2_DEFAULT", "HSTS_DEFAULT", "HSTS_SUBDOMAINS_DEFAULT",
		"LOG_LEVEL", "MIRROR_EMAIL", "MIRROR_PASSWORD", "MIRROR_SYNC_INTERVAL", "MIRROR_URLS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_RequiresCredentials(t *testing.T) {
	clearNPMEnv(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NPM_URL")
}

func TestLoad_ValidBasicConfig(t *testing.T) {
	clearNPMEnv(t)
	t.Setenv("NPM_URL", "https://npm.example.com")
	t.Setenv("NPM_EMAIL", "admin@example.com")
	t.Setenv("NPM_PASSWORD", "hunter2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://npm.example.com", cfg.NPMURL)
	assert.Equal(t, "admin@example.com", cfg.NPMEmail)
	assert.Equal(t, DefaultDockerHost, cfg.DockerHost)
	assert.True(t, cfg.ProxyDefaults.BlockExploits, "BlockExploits defaults true when unset")
	assert.False(t, cfg.ProxyDefaults.SSLForced)
	assert.Empty(t, cfg.Mirrors)
}

func TestLoad_DockerHostOverride(t *testing.T) {
	clearNPMEnv(t)
	t.Setenv("NPM_URL", "https://npm.example.com")
	t.Setenv("NPM_EMAIL", "admin@example.com")
	t.Setenv("NPM_PASSWORD", "hunter2")
	t.Setenv("DOCKER_HOST", "tcp://docker.internal:2375")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tcp://docker.internal:2375", cfg.DockerHost)
}

func TestLoad_ProxyDefaultsExplicitlySet(t *testing.T) {
	clearNPMEnv(t)
	t.Setenv("NPM_URL", "https://npm.example.com")
	t.Setenv("NPM_EMAIL", "admin@example.com")
	t.Setenv("NPM_PASSWORD", "hunter2")
	t.Setenv("SSL_FORCED_DEFAULT", "true")
	t.Setenv("BLOCK_COMMON_EXPLOITS_DEFAULT", "false")
	t.Setenv("WEBSOCKETS_DEFAULT", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.ProxyDefaults.SSLForced)
	assert.False(t, cfg.ProxyDefaults.BlockExploits)
	assert.True(t, cfg.ProxyDefaults.WebsocketUpgrade)
}

func TestBoolDefault_LooseParsing(t *testing.T) {
	assert.True(t, parseBoolLoose("YES", false))
	assert.True(t, parseBoolLoose("1", false))
	assert.False(t, parseBoolLoose("off", true))
	assert.True(t, parseBoolLoose("garbage", true), "unrecognized values keep the fallback")
}

func TestEffectiveMirrorInterval(t *testing.T) {
	defaultInterval := 5 * time.Minute
	minInterval := time.Minute

	// no slots: falls back to the default
	assert.Equal(t, defaultInterval, EffectiveMirrorInterval(nil, defaultInterval, minInterval))

	// a slot with a shorter interval wins
	slots := []MirrorSlot{{Name: "1", Interval: 2 * time.Minute}}
	assert.Equal(t, 2*time.Minute, EffectiveMirrorInterval(slots, defaultInterval, minInterval))

	// an interval below the floor is clamped up to minInterval
	slots = []MirrorSlot{{Name: "1", Interval: 10 * time.Second}}
	assert.Equal(t, minInterval, EffectiveMirrorInterval(slots, defaultInterval, minInterval))
}
