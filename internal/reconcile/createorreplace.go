package reconcile

import (
	"context"
	"errors"

	"github.com/Redth/npm-docker-sync/internal/adapters/out/npmclient"
	"github.com/Redth/npm-docker-sync/internal/domain"
	"github.com/Redth/npm-docker-sync/internal/logging"
)

// resourceOps parameterizes createOrReplace over proxy hosts and streams,
// which share identical create/replace/conflict semantics (§4.5) and differ
// only in API path, overlap test, and payload shape.
type resourceOps struct {
	apiKind      string
	kind         domain.ResourceKind
	overlaps     func(existing *domain.RemoteResource) bool
	buildPayload func() map[string]any
}

// createOrReplace implements the per-index algorithm in §4.5: if a handle
// already exists, delete then recreate unconditionally, since recreation is
// always safe given our own prior ownership. Otherwise look for an existing
// remote resource that overlaps (by domain or incoming port); if we own it,
// delete it and create a fresh one, otherwise report an ownership conflict
// and leave it untouched.
func (r *Reconciler) createOrReplace(ctx context.Context, containerID string, index int, ops resourceOps, existing []*domain.RemoteResource) error {
	log := logging.From(ctx)
	key := domain.HandleKey{ContainerID: containerID, Kind: ops.kind, Index: index}

	if h, ok := r.lookupHandle(key); ok {
		if err := r.client.Delete(ctx, ops.apiKind, h.RemoteID); err != nil {
			log.Warn("delete before recreate failed, recreating anyway", "kind", ops.apiKind, "remote_id", h.RemoteID, "error", err)
		}
		r.dropHandle(key)
		return r.create(ctx, containerID, index, ops)
	}

	var match *domain.RemoteResource
	for _, res := range existing {
		if ops.overlaps(res) {
			match = res
			break
		}
	}

	if match == nil {
		return r.create(ctx, containerID, index, ops)
	}

	if match.IsOursForInstance(r.instanceID) {
		if err := r.client.Delete(ctx, ops.apiKind, match.ID); err != nil {
			log.Warn("delete of our own stale resource failed, recreating anyway", "kind", ops.apiKind, "remote_id", match.ID, "error", err)
		}
		return r.create(ctx, containerID, index, ops)
	}

	owner := match.Meta.SyncInstanceID()
	if owner == "" {
		log.Error("ownership conflict: resource already exists and was not created by this controller", "kind", ops.apiKind, "remote_id", match.ID)
	} else {
		log.Error("ownership conflict: resource is owned by a different instance", "kind", ops.apiKind, "remote_id", match.ID, "owner_instance", owner)
	}
	return domain.ErrOwnershipConflict
}

func (r *Reconciler) create(ctx context.Context, containerID string, index int, ops resourceOps) error {
	payload := npmclient.StampOwnershipMeta(ops.buildPayload(), r.client.NPMURL(), r.instanceID, containerID, ops.kind, index)
	created, err := r.client.Create(ctx, ops.apiKind, payload)
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamConflict) {
			logging.From(ctx).Error("proxy manager rejected the create because a domain or port is already in use; remove or change the conflicting entry in the proxy manager or this container's labels", "kind", ops.apiKind, "container_id", containerID, "index", index, "error", err)
		}
		return err
	}
	r.setHandle(domain.HandleKey{ContainerID: containerID, Kind: ops.kind, Index: index}, domain.ResourceHandle{
		ContainerID: containerID,
		Kind:        ops.kind,
		Index:       index,
		RemoteID:    created.ID,
	})
	return nil
}
