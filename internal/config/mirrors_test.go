package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMirrorSlots_Numbered(t *testing.T) {
	clearNPMEnv(t)
	t.Setenv("MIRROR1_URL", "https://mirror-a.example.com")
	t.Setenv("MIRROR1_EMAIL", "a@example.com")
	t.Setenv("MIRROR1_PASSWORD", "pw-a")
	t.Setenv("MIRROR2_URL", "https://mirror-b.example.com")
	t.Setenv("MIRROR_EMAIL", "global@example.com")
	t.Setenv("MIRROR_PASSWORD", "global-pw")
	t.Setenv("MIRROR_SYNC_INTERVAL", "120")

	v := viper.New()
	v.AutomaticEnv()

	slots, err := parseMirrorSlots(v)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	assert.Equal(t, "https://mirror-a.example.com", slots[0].URL)
	assert.Equal(t, "a@example.com", slots[0].Email)
	assert.Equal(t, "pw-a", slots[0].Password)

	// slot 2 has no explicit credentials: falls back to the global ones
	assert.Equal(t, "https://mirror-b.example.com", slots[1].URL)
	assert.Equal(t, "global@example.com", slots[1].Email)
	assert.Equal(t, "global-pw", slots[1].Password)
	assert.Equal(t, 120_000_000_000, int(slots[1].Interval))
}

func TestParseMirrorSlots_DropsIncompleteSlot(t *testing.T) {
	clearNPMEnv(t)
	// slot 3 has a URL but no resolvable credentials anywhere
	t.Setenv("MIRROR3_URL", "https://mirror-c.example.com")

	v := viper.New()
	v.AutomaticEnv()

	slots, err := parseMirrorSlots(v)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestParseLegacyMirrorURLs(t *testing.T) {
	clearNPMEnv(t)
	t.Setenv("MIRROR_MIRROR_EXAMPLE_COM_EMAIL", "legacy@example.com")
	t.Setenv("MIRROR_MIRROR_EXAMPLE_COM_PASSWORD", "legacy-pw")

	slots := parseLegacyMirrorURLs("https://mirror.example.com, https://second.example.com", "global@example.com", "global-pw", 0)

	require.Len(t, slots, 2)
	assert.Equal(t, "legacy@example.com", slots[0].Email)
	assert.Equal(t, "legacy-pw", slots[0].Password)

	// second host has no per-host override: falls back to the global credentials
	assert.Equal(t, "global@example.com", slots[1].Email)
	assert.Equal(t, "global-pw", slots[1].Password)
}

func TestHostnameOf(t *testing.T) {
	assert.Equal(t, "mirror.example.com", hostnameOf("https://mirror.example.com:81/path"))
	assert.Equal(t, "mirror.example.com", hostnameOf("mirror.example.com"))
}

func TestSanitizeEnvName(t *testing.T) {
	assert.Equal(t, "MIRROR_EXAMPLE_COM", sanitizeEnvName("mirror.example.com"))
}

func TestParseIntervalEnv(t *testing.T) {
	assert.Equal(t, int64(0), int64(parseIntervalEnv("")))
	assert.Equal(t, int64(90_000_000_000), int64(parseIntervalEnv("90s")))
	assert.Equal(t, int64(90_000_000_000), int64(parseIntervalEnv("90")))
	assert.Equal(t, int64(0), int64(parseIntervalEnv("not-a-duration")))
}
