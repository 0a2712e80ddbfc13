package npmclient

import (
	"strconv"
	"time"

	"github.com/Redth/npm-docker-sync/internal/domain"
)

// StampOwnershipMeta returns payload with its "meta" field set to the
// ownership ledger this controller writes on every resource it creates
// (§3, §4.4). It overwrites any meta the caller already set.
func StampOwnershipMeta(payload map[string]any, npmURL, instanceID, containerID string, kind domain.ResourceKind, index int) map[string]any {
	meta := map[string]any{
		"managed_by":       domain.ManagedByToken,
		"sync_instance_id": instanceID,
		"npm_url":          npmURL,
		"container_id":     containerID,
		"created_at":       time.Now().UTC().Format(time.RFC3339),
	}
	switch kind {
	case domain.KindProxy:
		meta["proxy_index"] = strconv.Itoa(index)
	case domain.KindStream:
		meta["stream_index"] = strconv.Itoa(index)
	}
	payload["meta"] = meta
	return payload
}

// StampMirrorMeta returns payload with its "meta" field set to mark it as
// mirrored from the primary instance, per §4.8.
func StampMirrorMeta(payload map[string]any, fromURL string) map[string]any {
	payload["meta"] = map[string]any{
		"mirrored_from": fromURL,
		"mirrored_at":   time.Now().UTC().Format(time.RFC3339),
	}
	return payload
}
