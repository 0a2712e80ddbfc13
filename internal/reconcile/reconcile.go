// Package reconcile implements the Reconciler: the per-container
// diff-and-apply engine that owns the in-memory mapping from
// (containerId, kind, index) to remote proxy-manager resource id.
package reconcile

import (
	"context"
	"sync"

	"github.com/Redth/npm-docker-sync/internal/boundaries/out"
	"github.com/Redth/npm-docker-sync/internal/certmatch"
	"github.com/Redth/npm-docker-sync/internal/domain"
	"github.com/Redth/npm-docker-sync/internal/hashutil"
	"github.com/Redth/npm-docker-sync/internal/labels"
	"github.com/Redth/npm-docker-sync/internal/logging"
	"github.com/Redth/npm-docker-sync/internal/netinspect"
)

// Reconciler owns handleMap and labelHashMap and is the single entry point
// for turning one container's labels into proxy-manager state (§4.5).
type Reconciler struct {
	host       out.ContainerHost
	client     out.ProxyManagerClient
	netInspect *netinspect.Inspector
	certMatch  *certmatch.Matcher
	mirror     out.MirrorSignaler
	instanceID string
	defaults   labels.Defaults

	mu           sync.RWMutex
	handles      map[domain.HandleKey]domain.ResourceHandle
	labelHashMap map[string]uint64
}

// New constructs a Reconciler. mirror must not be nil; use
// out.NoopMirrorSignaler{} when mirroring is disabled.
func New(
	host out.ContainerHost,
	client out.ProxyManagerClient,
	netInspect *netinspect.Inspector,
	certMatch *certmatch.Matcher,
	mirror out.MirrorSignaler,
	instanceID string,
	defaults labels.Defaults,
) *Reconciler {
	return &Reconciler{
		host:         host,
		client:       client,
		netInspect:   netInspect,
		certMatch:    certMatch,
		mirror:       mirror,
		instanceID:   instanceID,
		defaults:     defaults,
		handles:      map[domain.HandleKey]domain.ResourceHandle{},
		labelHashMap: map[string]uint64{},
	}
}

// Reconcile is the single entry point per container event (§4.5).
func (r *Reconciler) Reconcile(ctx context.Context, containerID string, lbls map[string]string) error {
	ctx = logging.Component(ctx, "reconcile")
	log := logging.From(ctx)

	hash := hashutil.LabelHash(lbls, labels.Prefix)
	if stored, ok := r.storedHash(containerID); ok && stored == hash {
		return nil
	}

	parsed := labels.Parse(lbls, r.defaults)
	for _, warning := range parsed.Warnings {
		log.Warn("label parse warning", "container_id", containerID, "warning", warning)
	}

	container, err := r.host.InspectContainer(ctx, containerID)
	if err != nil {
		log.Error("inspect container failed, deferring reconcile to next event", "container_id", containerID, "error", err)
		return err
	}

	proxiesComplete := r.reconcileProxies(ctx, container, parsed.Proxies)
	streamsComplete := r.reconcileStreams(ctx, container, parsed.Streams)

	if proxiesComplete && streamsComplete {
		r.setStoredHash(containerID, hash)
	} else {
		log.Warn("reconcile did not fully complete, will retry on next event", "container_id", containerID)
	}

	r.mirror.SignalChange()
	return nil
}

// ContainerGone handles a stop/die/destroy event: every handle held for
// containerID is deleted best-effort and dropped regardless of outcome, so
// a proxy-manager restart never leaves a permanently leaked handle.
func (r *Reconciler) ContainerGone(ctx context.Context, containerID string) {
	ctx = logging.Component(ctx, "reconcile")
	log := logging.From(ctx)

	for _, key := range r.keysForContainer(containerID) {
		h := r.handle(key)
		apiKind := apiKindFor(key.Kind)
		if err := r.client.Delete(ctx, apiKind, h.RemoteID); err != nil {
			log.Error("failed to delete resource for gone container", "container_id", containerID, "remote_id", h.RemoteID, "error", err)
		}
		r.dropHandle(key)
	}

	r.dropStoredHash(containerID)
	r.mirror.SignalChange()
}

// RebuildHandles repopulates handleMap from the proxy manager's own state,
// per the cold-start rule in §9: every resource this instance owns carries
// meta.container_id and meta.proxy_index/stream_index, so handles can be
// rediscovered without any local persistence.
func (r *Reconciler) RebuildHandles(ctx context.Context) error {
	ctx = logging.Component(ctx, "reconcile")
	log := logging.From(ctx)

	containers, err := r.host.ListContainers(ctx, true)
	if err != nil {
		return err
	}
	present := make(map[string]struct{}, len(containers))
	for _, c := range containers {
		present[c.ID] = struct{}{}
	}

	rebuilt := 0
	for _, spec := range []struct {
		apiKind   string
		kind      domain.ResourceKind
		indexFunc func(domain.Meta) string
	}{
		{out.ResourceProxyHosts, domain.KindProxy, domain.Meta.ProxyIndex},
		{out.ResourceStreams, domain.KindStream, domain.Meta.StreamIndex},
	} {
		resources, err := r.client.List(ctx, spec.apiKind)
		if err != nil {
			log.Error("failed to list resources during handle rebuild", "kind", spec.apiKind, "error", err)
			continue
		}
		for _, res := range resources {
			if !res.IsOursForInstance(r.instanceID) {
				continue
			}
			containerID := res.Meta.ContainerID()
			if containerID == "" {
				continue
			}
			if _, ok := present[containerID]; !ok {
				continue
			}
			index, ok := parseIndex(spec.indexFunc(res.Meta))
			if !ok {
				continue
			}
			r.setHandle(domain.HandleKey{ContainerID: containerID, Kind: spec.kind, Index: index}, domain.ResourceHandle{
				ContainerID: containerID,
				Kind:        spec.kind,
				Index:       index,
				RemoteID:    res.ID,
			})
			rebuilt++
		}
	}

	log.Info("rebuilt resource handles from proxy manager state", "count", rebuilt)
	return nil
}

func apiKindFor(kind domain.ResourceKind) string {
	if kind == domain.KindStream {
		return out.ResourceStreams
	}
	return out.ResourceProxyHosts
}
