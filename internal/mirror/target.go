// Package mirror implements the Mirror Scheduler (§4.7) and the Resource
// Mirror (§4.8): periodic, on-demand replication of the primary
// proxy-manager's configuration onto zero or more secondary instances.
package mirror

import (
	"time"

	"github.com/Redth/npm-docker-sync/internal/boundaries/out"
)

// Target is one configured secondary proxy-manager instance: its own
// authenticated client plus the interval configured for its slot. The
// Scheduler does not read Interval; it syncs every target on one shared
// effective interval.
type Target struct {
	Name     string
	Client   out.ProxyManagerClient
	Interval time.Duration
}
