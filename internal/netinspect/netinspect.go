// Package netinspect determines forward-host and forward-port targets for
// containers by reasoning about container-host network topology.
package netinspect

import (
	"context"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-connections/nat"

	"github.com/Redth/npm-docker-sync/internal/boundaries/out"
	"github.com/Redth/npm-docker-sync/internal/domain"
	"github.com/Redth/npm-docker-sync/internal/logging"
)

// DefaultHostGateway is the special hostname most container runtimes
// resolve to the host's own network address, used as a last-resort forward
// target for containers not sharing a network with the proxy manager.
const DefaultHostGateway = "host.docker.internal"

// Inspector resolves forward targets, initialized once per process.
type Inspector struct {
	host out.ContainerHost

	proxyNets   map[string]struct{}
	hostAddress string
}

// dnsLookupTimeout bounds the tier-2 resolvability check so a host with no
// working DNS for DefaultHostGateway doesn't stall startup.
const dnsLookupTimeout = 2 * time.Second

// New initializes an Inspector.
//
// If proxyManagerContainer is non-empty, its networks are recorded as
// proxyNets by name- or id-prefix match. hostAddress resolves in priority
// order (§4.2): hostAddressOverride if set; else DefaultHostGateway if it is
// actually DNS-resolvable on this host; else the default bridge network's
// IPv4 gateway; else DefaultHostGateway again, used unconditionally with a
// warning.
func New(ctx context.Context, host out.ContainerHost, proxyManagerContainer, hostAddressOverride string) (*Inspector, error) {
	ctx = logging.Component(ctx, "netinspect")
	log := logging.From(ctx)

	insp := &Inspector{host: host, proxyNets: map[string]struct{}{}}

	if proxyManagerContainer != "" {
		containers, err := host.ListContainers(ctx, true)
		if err != nil {
			return nil, err
		}
		found := false
		for _, c := range containers {
			if strings.TrimPrefix(c.Name, "/") == proxyManagerContainer ||
				strings.HasPrefix(c.ID, proxyManagerContainer) {
				for _, n := range c.Networks {
					insp.proxyNets[n] = struct{}{}
				}
				found = true
				break
			}
		}
		if !found {
			log.Warn("proxy manager container not found, shared-network inference disabled", "container", proxyManagerContainer)
		}
	}

	if hostAddressOverride != "" {
		insp.hostAddress = hostAddressOverride
		return insp, nil
	}

	if isHostResolvable(ctx, DefaultHostGateway) {
		insp.hostAddress = DefaultHostGateway
		return insp, nil
	}

	if gw := defaultBridgeGateway(ctx, host); gw != "" {
		insp.hostAddress = gw
		return insp, nil
	}

	log.Warn("host gateway hostname is not DNS-resolvable and no bridge gateway was found, falling back to it anyway", "hostname", DefaultHostGateway)
	insp.hostAddress = DefaultHostGateway
	return insp, nil
}

// isHostResolvable reports whether hostname resolves to at least one
// address, implementing §4.2's tier-2 "DNS-resolvable special hostname"
// check ahead of the bridge-gateway fallback.
func isHostResolvable(ctx context.Context, hostname string) bool {
	ctx, cancel := context.WithTimeout(ctx, dnsLookupTimeout)
	defer cancel()
	addrs, err := net.DefaultResolver.LookupHost(ctx, hostname)
	return err == nil && len(addrs) > 0
}

func defaultBridgeGateway(ctx context.Context, host out.ContainerHost) string {
	nets, err := host.ListNetworks(ctx)
	if err != nil {
		return ""
	}
	for _, n := range nets {
		if n.Name == "bridge" && n.GatewayIPv4 != "" {
			return n.GatewayIPv4
		}
	}
	return ""
}

// ResolveForwardHost returns explicitHost if non-empty; otherwise the
// container's own name if it shares a network with the proxy manager, else
// the process-wide hostAddress.
func (i *Inspector) ResolveForwardHost(explicitHost string, c *domain.Container) string {
	if explicitHost != "" {
		return explicitHost
	}
	for _, n := range c.Networks {
		if _, ok := i.proxyNets[n]; ok {
			return c.Name
		}
	}
	return i.hostAddress
}

// ResolveForwardPort returns explicitPort if set (>0); otherwise ranks
// c's declared ports in deterministic order: published ports before merely
// exposed ones, ascending by the container's own port number within each
// group (§4.2), read directly off the Docker Engine API's nat.PortSet/
// nat.PortMap values. Returns 0 if none is available.
func (i *Inspector) ResolveForwardPort(explicitPort int, c *domain.Container) int {
	if explicitPort > 0 {
		return explicitPort
	}

	if port, ok := firstPublishedPort(c.PublishedPorts); ok {
		return port
	}
	if port, ok := firstExposedPort(c.ExposedPorts); ok {
		return port
	}
	return 0
}

// firstPublishedPort returns the host-side port of the lowest-numbered
// container port that has at least one binding, ascending by container port.
func firstPublishedPort(pm nat.PortMap) (int, bool) {
	for _, port := range sortedPorts(portMapKeys(pm)) {
		for _, binding := range pm[port] {
			if binding.HostPort == "" {
				continue
			}
			if hostPort, err := strconv.Atoi(binding.HostPort); err == nil {
				return hostPort, true
			}
		}
	}
	return 0, false
}

// firstExposedPort returns the lowest-numbered declared container port.
func firstExposedPort(ps nat.PortSet) (int, bool) {
	for _, port := range sortedPorts(portSetKeys(ps)) {
		return port.Int(), true
	}
	return 0, false
}

func portMapKeys(pm nat.PortMap) []nat.Port {
	keys := make([]nat.Port, 0, len(pm))
	for p := range pm {
		keys = append(keys, p)
	}
	return keys
}

func portSetKeys(ps nat.PortSet) []nat.Port {
	keys := make([]nat.Port, 0, len(ps))
	for p := range ps {
		keys = append(keys, p)
	}
	return keys
}

// sortedPorts orders nat.Port keys ascending by their numeric port value.
func sortedPorts(ports []nat.Port) []nat.Port {
	sort.Slice(ports, func(a, b int) bool {
		return ports[a].Int() < ports[b].Int()
	})
	return ports
}
