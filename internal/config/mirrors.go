package config

import (
	"context"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Redth/npm-docker-sync/internal/logging"
)

// MirrorSlot is one configured secondary proxy-manager instance, before it
// is turned into a mirror.Target with a live client (that wiring lives in
// cmd, which owns constructing adapters).
type MirrorSlot struct {
	Name     string // slot label, for logging: "1", "2", ... or the legacy URL's host
	URL      string
	Email    string
	Password string
	Interval time.Duration // 0 means "use the global default"
}

var slotKeyPattern = regexp.MustCompile(`^MIRROR(\d+)_(URL|EMAIL|PASSWORD|SYNC_INTERVAL)$`)

// bindMirrorSlotEnv is a no-op placeholder: viper's AutomaticEnv already
// resolves any key looked up via Get, numbered or not, directly against
// the process environment. Slot discovery itself happens in
// parseMirrorSlots by scanning os.Environ, since the slot numbers aren't
// known in advance.
func bindMirrorSlotEnv(_ *viper.Viper) {}

// parseMirrorSlots implements §4.7's configuration shape: numbered
// MIRROR{n}_{URL|EMAIL|PASSWORD|SYNC_INTERVAL} slots with global
// credential/interval fallbacks, plus a legacy comma-separated MIRROR_URLS
// list with per-host overrides derived by uppercasing the hostname. Slots
// missing a URL or resolvable credentials are dropped with a logged warning;
// validation itself never hard-fails boot, per §4.7 "drop slots missing
// URL or credentials (warn)".
func parseMirrorSlots(v *viper.Viper) ([]MirrorSlot, error) {
	globalEmail := v.GetString("MIRROR_EMAIL")
	globalPassword := v.GetString("MIRROR_PASSWORD")
	globalInterval := parseIntervalEnv(v.GetString("MIRROR_SYNC_INTERVAL"))

	numbered := map[int]*MirrorSlot{}
	for _, kv := range os.Environ() {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		key, value := kv[:eq], kv[eq+1:]
		m := slotKeyPattern.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slot := numbered[n]
		if slot == nil {
			slot = &MirrorSlot{Name: m[1]}
			numbered[n] = slot
		}
		switch m[2] {
		case "URL":
			slot.URL = value
		case "EMAIL":
			slot.Email = value
		case "PASSWORD":
			slot.Password = value
		case "SYNC_INTERVAL":
			slot.Interval = parseIntervalEnv(value)
		}
	}

	order := make([]int, 0, len(numbered))
	for n := range numbered {
		order = append(order, n)
	}
	sort.Ints(order)

	var out []MirrorSlot
	for _, n := range order {
		slot := numbered[n]
		if slot.Email == "" {
			slot.Email = globalEmail
		}
		if slot.Password == "" {
			slot.Password = globalPassword
		}
		if slot.Interval == 0 {
			slot.Interval = globalInterval
		}
		if slot.URL == "" || slot.Email == "" || slot.Password == "" {
			logging.From(context.Background()).Warn("dropping mirror slot missing URL or credentials", "slot", slot.Name)
			continue
		}
		out = append(out, *slot)
	}

	out = append(out, parseLegacyMirrorURLs(v.GetString("MIRROR_URLS"), globalEmail, globalPassword, globalInterval)...)

	return out, nil
}

// parseLegacyMirrorURLs parses the legacy comma-separated MIRROR_URLS list.
// Each host may override credentials via MIRROR_<HOST>_EMAIL /
// MIRROR_<HOST>_PASSWORD, derived by uppercasing the hostname and replacing
// non-alphanumeric characters with underscores.
func parseLegacyMirrorURLs(raw, globalEmail, globalPassword string, globalInterval time.Duration) []MirrorSlot {
	if raw == "" {
		return nil
	}
	var slots []MirrorSlot
	for _, u := range strings.Split(raw, ",") {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		host := hostnameOf(u)
		envPrefix := "MIRROR_" + sanitizeEnvName(host)

		email := os.Getenv(envPrefix + "_EMAIL")
		if email == "" {
			email = globalEmail
		}
		password := os.Getenv(envPrefix + "_PASSWORD")
		if password == "" {
			password = globalPassword
		}
		if email == "" || password == "" {
			logging.From(context.Background()).Warn("dropping legacy mirror URL missing credentials", "host", host)
			continue
		}

		slots = append(slots, MirrorSlot{
			Name:     host,
			URL:      u,
			Email:    email,
			Password: password,
			Interval: globalInterval,
		})
	}
	return slots
}

func hostnameOf(rawURL string) string {
	u := rawURL
	if idx := strings.Index(u, "://"); idx >= 0 {
		u = u[idx+3:]
	}
	if idx := strings.IndexByte(u, '/'); idx >= 0 {
		u = u[:idx]
	}
	if idx := strings.IndexByte(u, ':'); idx >= 0 {
		u = u[:idx]
	}
	return u
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

func sanitizeEnvName(host string) string {
	return strings.Trim(strings.ToUpper(nonAlnum.ReplaceAllString(host, "_")), "_")
}

func parseIntervalEnv(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}
