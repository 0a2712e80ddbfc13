package reconcile

import (
	"context"
	"sort"
	"strings"

	"github.com/Redth/npm-docker-sync/internal/boundaries/out"
	"github.com/Redth/npm-docker-sync/internal/domain"
	"github.com/Redth/npm-docker-sync/internal/logging"
)

// reconcileProxies applies §4.5's proxy-host loop for one container and
// reports whether every declared index was fully applied.
func (r *Reconciler) reconcileProxies(ctx context.Context, c *domain.Container, configs map[int]*domain.ProxyConfig) bool {
	log := logging.From(ctx)
	containerID := c.ID

	for idx := range r.indicesForKind(containerID, domain.KindProxy) {
		if _, stillWanted := configs[idx]; !stillWanted {
			r.deleteHandleAt(ctx, domain.KindProxy, out.ResourceProxyHosts, containerID, idx)
		}
	}

	if len(configs) == 0 {
		return true
	}

	existing, err := r.client.List(ctx, out.ResourceProxyHosts)
	if err != nil {
		log.Error("failed to list existing proxy hosts, deferring all proxy indices", "container_id", containerID, "error", err)
		return false
	}

	complete := true
	for _, idx := range sortedProxyIndices(configs) {
		cfg := configs[idx]

		cfg.ForwardHost = r.netInspect.ResolveForwardHost(cfg.ForwardHost, c)
		cfg.ForwardPort = r.netInspect.ResolveForwardPort(cfg.ForwardPort, c)
		if !cfg.HasForwardPort() {
			log.Error("could not resolve a forward port, skipping index", "container_id", containerID, "index", idx)
			complete = false
			continue
		}

		if cfg.SSLForced && cfg.CertificateID == 0 {
			id, err := r.certMatch.Match(ctx, cfg.Domains)
			if err != nil {
				log.Warn("certificate auto-select failed, proceeding without a certificate", "container_id", containerID, "index", idx, "error", err)
			} else {
				cfg.CertificateID = id
			}
		}

		ops := resourceOps{
			apiKind:      out.ResourceProxyHosts,
			kind:         domain.KindProxy,
			overlaps:     func(res *domain.RemoteResource) bool { return proxyOverlaps(res, cfg) },
			buildPayload: func() map[string]any { return proxyPayload(cfg) },
		}
		if err := r.createOrReplace(ctx, containerID, idx, ops, existing); err != nil {
			log.Error("failed to reconcile proxy host", "container_id", containerID, "index", idx, "error", err)
			complete = false
		}
	}

	return complete
}

func (r *Reconciler) deleteHandleAt(ctx context.Context, kind domain.ResourceKind, apiKind, containerID string, index int) {
	log := logging.From(ctx)
	key := domain.HandleKey{ContainerID: containerID, Kind: kind, Index: index}
	h, ok := r.lookupHandle(key)
	if !ok {
		return
	}
	if err := r.client.Delete(ctx, apiKind, h.RemoteID); err != nil {
		log.Error("failed to delete resource for removed index", "container_id", containerID, "index", index, "error", err)
	}
	r.dropHandle(key)
}

func proxyOverlaps(res *domain.RemoteResource, cfg *domain.ProxyConfig) bool {
	if res.Kind != "proxy-host" {
		return false
	}
	set := cfg.DomainSet()
	for _, d := range res.DomainNames {
		if _, ok := set[normalizeDomain(d)]; ok {
			return true
		}
	}
	return false
}

func proxyPayload(cfg *domain.ProxyConfig) map[string]any {
	payload := map[string]any{
		"domain_names":            cfg.Domains,
		"forward_scheme":          cfg.ForwardScheme,
		"forward_host":            cfg.ForwardHost,
		"forward_port":            cfg.ForwardPort,
		"ssl_forced":              boolToInt(cfg.SSLForced),
		"caching_enabled":         boolToInt(cfg.CachingEnabled),
		"block_exploits":          boolToInt(cfg.BlockExploits),
		"allow_websocket_upgrade": boolToInt(cfg.WebsocketUpgrade),
		"http2_support":           boolToInt(cfg.HTTP2),
		"hsts_enabled":            boolToInt(cfg.HSTS),
		"hsts_subdomains":         boolToInt(cfg.HSTSSubdomains),
		"advanced_config":         cfg.AdvancedConfig,
	}
	if cfg.CertificateID != 0 {
		payload["certificate_id"] = cfg.CertificateID
	}
	if cfg.AccessListID != 0 {
		payload["access_list_id"] = cfg.AccessListID
	}
	return payload
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func normalizeDomain(d string) string {
	return strings.ToLower(strings.TrimSpace(d))
}

func sortedProxyIndices(m map[int]*domain.ProxyConfig) []int {
	idx := make([]int, 0, len(m))
	for i := range m {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}
