package labels

import (
	"fmt"
	"strconv"

	"github.com/Redth/npm-docker-sync/internal/domain"
)

func parseProxy(index int, f map[string]string, defaults Defaults) (*domain.ProxyConfig, string) {
	domainsRaw := f["domains"]
	if domainsRaw == "" {
		domainsRaw = f["domain"]
	}
	domains := splitDomains(domainsRaw)
	if len(domains) == 0 {
		return nil, fmt.Sprintf("proxy[%d]: missing required domains/domain label", index)
	}

	cfg := &domain.ProxyConfig{
		Index:            index,
		Domains:          domains,
		ForwardHost:      f["host"],
		ForwardScheme:    "http",
		SSLForced:        parseBool(f["ssl.force"], defaults.SSLForced),
		CachingEnabled:   parseBool(f["caching"], defaults.CachingEnabled),
		BlockExploits:    parseBool(f["block_common_exploits"], defaults.BlockExploits),
		WebsocketUpgrade: parseBool(f["websockets"], defaults.WebsocketUpgrade),
		HTTP2:            parseBool(f["ssl.http2"], defaults.HTTP2),
		HSTS:             parseBool(f["ssl.hsts"], defaults.HSTS),
		HSTSSubdomains:   parseBool(f["ssl.hsts.subdomains"], defaults.HSTSSubdomains),
		AdvancedConfig:   f["advanced.config"],
	}

	if scheme, ok := f["scheme"]; ok && scheme != "" {
		cfg.ForwardScheme = scheme
	}

	if raw, ok := f["port"]; ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Sprintf("proxy[%d]: invalid port %q: %v", index, raw, err)
		}
		cfg.ForwardPort = n
	}

	if raw, ok := f["ssl.certificate.id"]; ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Sprintf("proxy[%d]: invalid ssl.certificate.id %q: %v", index, raw, err)
		}
		cfg.CertificateID = n
	}

	if raw, ok := f["accesslist.id"]; ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Sprintf("proxy[%d]: invalid accesslist.id %q: %v", index, raw, err)
		}
		cfg.AccessListID = n
	}

	return cfg, ""
}
