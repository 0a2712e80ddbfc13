// Package dockerhost implements the ContainerHost output port against the
// Docker Engine API.
package dockerhost

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/Redth/npm-docker-sync/internal/domain"
	"github.com/Redth/npm-docker-sync/internal/logging"
)

// Host implements the ContainerHost port using the Docker Engine API.
type Host struct {
	client *client.Client
}

// New creates a Host using the standard Docker environment (DOCKER_HOST,
// TLS env vars, or the default unix socket), negotiating the API version
// with the daemon.
func New() (*Host, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Host{client: cli}, nil
}

// NewWithClient wraps an existing client, for testing against a fake API
// server.
func NewWithClient(cli *client.Client) *Host {
	return &Host{client: cli}
}

// ListContainers lists containers, including stopped ones when all is true.
func (h *Host) ListContainers(ctx context.Context, all bool) ([]*domain.Container, error) {
	ctx = logging.Component(ctx, "dockerhost")
	list, err := h.client.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return nil, logging.WrapErr(ctx, err, "list containers")
	}

	result := make([]*domain.Container, 0, len(list))
	for _, c := range list {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		var networks []string
		if c.NetworkSettings != nil {
			for netName := range c.NetworkSettings.Networks {
				networks = append(networks, netName)
			}
		}
		exposed := nat.PortSet{}
		published := nat.PortMap{}
		for _, p := range c.Ports {
			port, convErr := nat.NewPort(p.Type, strconv.Itoa(int(p.PrivatePort)))
			if convErr != nil {
				continue
			}
			exposed[port] = struct{}{}
			if p.PublicPort > 0 {
				published[port] = append(published[port], nat.PortBinding{
					HostIP:   p.IP,
					HostPort: strconv.Itoa(int(p.PublicPort)),
				})
			}
		}
		result = append(result, &domain.Container{
			ID:             c.ID,
			Name:           name,
			Labels:         c.Labels,
			Networks:       networks,
			ExposedPorts:   exposed,
			PublishedPorts: published,
		})
	}
	return result, nil
}

// InspectContainer returns full labels/network/port detail for one container.
func (h *Host) InspectContainer(ctx context.Context, containerID string) (*domain.Container, error) {
	ctx = logging.Component(ctx, "dockerhost")
	resp, err := h.client.ContainerInspect(ctx, containerID)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return nil, domain.ErrContainerNotFound
		}
		return nil, logging.WrapErr(ctx, err, "inspect container")
	}

	c := &domain.Container{
		ID:           resp.ID,
		Name:         strings.TrimPrefix(resp.Name, "/"),
		Labels:       resp.Config.Labels,
		ExposedPorts: nat.PortSet{},
	}
	for p := range resp.Config.ExposedPorts {
		c.ExposedPorts[p] = struct{}{}
	}

	if resp.NetworkSettings != nil {
		for netName := range resp.NetworkSettings.Networks {
			c.Networks = append(c.Networks, netName)
		}
		c.PublishedPorts = resp.NetworkSettings.Ports
		for p := range resp.NetworkSettings.Ports {
			c.ExposedPorts[p] = struct{}{}
		}
	}

	return c, nil
}

// ListNetworks lists the host's networks.
func (h *Host) ListNetworks(ctx context.Context) ([]*domain.NetworkInfo, error) {
	ctx = logging.Component(ctx, "dockerhost")
	nets, err := h.client.NetworkList(ctx, network.ListOptions{})
	if err != nil {
		return nil, logging.WrapErr(ctx, err, "list networks")
	}

	result := make([]*domain.NetworkInfo, 0, len(nets))
	for _, n := range nets {
		info := &domain.NetworkInfo{
			ID:     n.ID,
			Name:   n.Name,
			Driver: n.Driver,
		}
		if n.IPAM.Config != nil {
			for _, cfg := range n.IPAM.Config {
				if cfg.Gateway != "" {
					info.GatewayIPv4 = cfg.Gateway
					break
				}
			}
		}
		for containerID := range n.Containers {
			info.ContainerIDs = append(info.ContainerIDs, containerID)
		}
		result = append(result, info)
	}
	return result, nil
}

func toDomainAction(a string) domain.ContainerEventAction {
	switch a {
	case "start":
		return domain.ActionStart
	case "die":
		return domain.ActionDie
	case "destroy":
		return domain.ActionDestroy
	case "stop", "kill", "pause":
		return domain.ActionStop
	case "update", "rename", "connect", "disconnect":
		return domain.ActionUpdate
	default:
		return domain.ActionOther
	}
}
