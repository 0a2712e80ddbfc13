package domain

import "github.com/docker/go-connections/nat"

// Container is the subset of container state this controller needs:
// identity, labels, and the network/port facts the Network Inspector and
// Label Parser reason about.
type Container struct {
	ID       string
	Name     string
	Labels   map[string]string
	Networks []string // network names this container is attached to

	// ExposedPorts and PublishedPorts drive forward-port inference (§4.2),
	// carried as the Docker Engine API's own typed port values so the
	// Network Inspector can rank them without losing protocol/binding
	// information. ExposedPorts are declared in the image/container but not
	// necessarily reachable from the host; PublishedPorts are bound to the
	// host and are preferred.
	ExposedPorts   nat.PortSet
	PublishedPorts nat.PortMap
}

// NetworkInfo describes a container-host network, as needed by the Network
// Inspector to determine the proxy manager's shared networks and to resolve
// the IPv4 gateway of the default bridge.
type NetworkInfo struct {
	ID           string
	Name         string
	Driver       string
	GatewayIPv4  string
	ContainerIDs []string
}

// ContainerEventAction is the lifecycle action carried by a container event
// message from the host's event stream.
type ContainerEventAction string

const (
	ActionStart   ContainerEventAction = "start"
	ActionUpdate  ContainerEventAction = "update"
	ActionStop    ContainerEventAction = "stop"
	ActionDie     ContainerEventAction = "die"
	ActionDestroy ContainerEventAction = "destroy"
	ActionOther   ContainerEventAction = "other"
)

// ContainerEvent is a single message from the container host's event
// stream, reduced to what the Event Loop needs.
type ContainerEvent struct {
	ContainerID string
	Action      ContainerEventAction
}
