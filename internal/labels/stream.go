package labels

import (
	"fmt"
	"strconv"

	"github.com/Redth/npm-docker-sync/internal/domain"
)

func parseStream(index int, f map[string]string) (*domain.StreamConfig, string) {
	raw, ok := f["incoming.port"]
	if !ok || raw == "" {
		return nil, fmt.Sprintf("stream[%d]: missing required incoming.port label", index)
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Sprintf("stream[%d]: invalid incoming.port %q", index, raw)
	}

	cfg := &domain.StreamConfig{
		Index:          index,
		IncomingPort:   port,
		ForwardHost:    f["forward.host"],
		TCPForwarding:  parseBool(f["forward.tcp"], true),
		UDPForwarding:  parseBool(f["forward.udp"], false),
		SSLCertificate: f["ssl"],
	}

	if rawPort, ok := f["forward.port"]; ok && rawPort != "" {
		n, err := strconv.Atoi(rawPort)
		if err != nil {
			return nil, fmt.Sprintf("stream[%d]: invalid forward.port %q: %v", index, rawPort, err)
		}
		cfg.ForwardPort = n
	}

	if !cfg.TCPForwarding && !cfg.UDPForwarding {
		return nil, fmt.Sprintf("stream[%d]: at least one of forward.tcp/forward.udp must be true", index)
	}

	return cfg, ""
}
