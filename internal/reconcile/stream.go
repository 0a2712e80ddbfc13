package reconcile

import (
	"context"
	"sort"

	"github.com/Redth/npm-docker-sync/internal/boundaries/out"
	"github.com/Redth/npm-docker-sync/internal/domain"
	"github.com/Redth/npm-docker-sync/internal/logging"
)

// reconcileStreams applies §4.5's stream loop for one container, grouping
// by incomingPort rather than domain, and reports whether every declared
// index was fully applied.
func (r *Reconciler) reconcileStreams(ctx context.Context, c *domain.Container, configs map[int]*domain.StreamConfig) bool {
	log := logging.From(ctx)
	containerID := c.ID

	for idx := range r.indicesForKind(containerID, domain.KindStream) {
		if _, stillWanted := configs[idx]; !stillWanted {
			r.deleteHandleAt(ctx, domain.KindStream, out.ResourceStreams, containerID, idx)
		}
	}

	if len(configs) == 0 {
		return true
	}

	existing, err := r.client.List(ctx, out.ResourceStreams)
	if err != nil {
		log.Error("failed to list existing streams, deferring all stream indices", "container_id", containerID, "error", err)
		return false
	}

	complete := true
	for _, idx := range sortedStreamIndices(configs) {
		cfg := configs[idx]

		cfg.ForwardHost = r.netInspect.ResolveForwardHost(cfg.ForwardHost, c)
		cfg.ForwardPort = r.netInspect.ResolveForwardPort(cfg.ForwardPort, c)
		if !cfg.HasForwardPort() {
			log.Error("could not resolve a forward port, skipping stream index", "container_id", containerID, "index", idx)
			complete = false
			continue
		}

		certID := r.resolveStreamCertificate(ctx, containerID, idx, cfg.SSLCertificate)

		ops := resourceOps{
			apiKind:      out.ResourceStreams,
			kind:         domain.KindStream,
			overlaps:     func(res *domain.RemoteResource) bool { return streamOverlaps(res, cfg) },
			buildPayload: func() map[string]any { return streamPayload(cfg, certID) },
		}
		if err := r.createOrReplace(ctx, containerID, idx, ops, existing); err != nil {
			log.Error("failed to reconcile stream", "container_id", containerID, "index", idx, "error", err)
			complete = false
		}
	}

	return complete
}

func streamOverlaps(res *domain.RemoteResource, cfg *domain.StreamConfig) bool {
	return res.Kind == "stream" && res.IncomingPort == cfg.IncomingPort
}

func streamPayload(cfg *domain.StreamConfig, certID int) map[string]any {
	payload := map[string]any{
		"incoming_port":   cfg.IncomingPort,
		"forwarding_host": cfg.ForwardHost,
		"forwarding_port": cfg.ForwardPort,
		"tcp_forwarding":  boolToInt(cfg.TCPForwarding),
		"udp_forwarding":  boolToInt(cfg.UDPForwarding),
	}
	if certID != 0 {
		payload["certificate_id"] = certID
	}
	return payload
}

// resolveStreamCertificate interprets a stream's raw `ssl` label: a bare
// numeric string is taken as a certificate id directly; anything else is
// treated as a domain and run through the same Certificate Matcher the
// proxy path uses. Returns 0 (no SSL) if neither resolves.
func (r *Reconciler) resolveStreamCertificate(ctx context.Context, containerID string, index int, raw string) int {
	if raw == "" {
		return 0
	}
	if n, ok := parseIndex(raw); ok {
		return n
	}
	id, err := r.certMatch.Match(ctx, []string{raw})
	if err != nil {
		logging.From(ctx).Warn("stream certificate auto-select failed, proceeding without a certificate", "container_id", containerID, "index", index, "error", err)
		return 0
	}
	return id
}

func sortedStreamIndices(m map[int]*domain.StreamConfig) []int {
	idx := make([]int, 0, len(m))
	for i := range m {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}
