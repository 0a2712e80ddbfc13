// Package instanceid resolves this controller's own stable identity, used
// to stamp meta.sync_instance_id on every resource it writes and to decide
// ownership when reconciling against resources another instance created.
package instanceid

import (
	"context"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/Redth/npm-docker-sync/internal/boundaries/out"
	"github.com/Redth/npm-docker-sync/internal/logging"
)

// Resolve determines the instance id in priority order:
//
//  1. An explicit override (the SYNC_INSTANCE_ID environment variable, via
//     override), always wins.
//  2. If running inside a container, match the HOSTNAME against the
//     container host's own container list by id prefix, the way a
//     container's hostname defaults to its short container id. The full
//     container id is a stable identity that survives process restarts
//     without needing to persist anything.
//  3. A random uuid, generated once and used only for the lifetime of this
//     process (restarting without an override or a resolvable hostname
//     changes the instance id, which is safe: a resource whose instance no
//     longer matches is still recognized as "ours" once sync_instance_id is
//     absent would not apply, but a restart keeps the container running
//     with the same hostname, so case 2 normally applies before this).
func Resolve(ctx context.Context, host out.ContainerHost, override string) string {
	log := logging.From(ctx)

	if override != "" {
		log.Info("instance id set from override", "instance_id", override)
		return override
	}

	if id := fromContainerHostname(ctx, host); id != "" {
		log.Info("instance id resolved from container hostname", "instance_id", id)
		return id
	}

	id := uuid.NewString()
	log.Warn("instance id could not be resolved from hostname, generated random id", "instance_id", id)
	return id
}

// fromContainerHostname returns this process's own container id by matching
// the HOSTNAME environment variable (Docker sets a container's hostname to
// its short container id by default) against the container host's list.
func fromContainerHostname(ctx context.Context, host out.ContainerHost) string {
	if !runningInContainer() {
		return ""
	}
	hostname := os.Getenv("HOSTNAME")
	if hostname == "" {
		return ""
	}

	containers, err := host.ListContainers(ctx, true)
	if err != nil {
		return ""
	}
	for _, c := range containers {
		if strings.HasPrefix(c.ID, hostname) || strings.HasPrefix(hostname, c.ID) {
			return c.ID
		}
	}
	return ""
}

func runningInContainer() bool {
	return fileExists("/.dockerenv") || fileExists("/run/.containerenv")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
