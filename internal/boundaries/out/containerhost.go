// Package out defines output ports (interfaces) between the reconciliation
// core and the infrastructure it drives: the container host, the
// proxy-manager REST API, and the mirror scheduler.
package out

import (
	"context"

	"github.com/Redth/npm-docker-sync/internal/domain"
)

// ContainerHost abstracts the container host API (Docker, Podman, ...) down
// to the calls the Event Loop, Network Inspector, and Reconciler need.
// Only SubscribeEvents reconnects after transport errors; the list and
// inspect calls make a single attempt and return any transport error as is.
type ContainerHost interface {
	// ListContainers lists containers, including stopped ones when all is true.
	ListContainers(ctx context.Context, all bool) ([]*domain.Container, error)

	// InspectContainer returns full labels/network/port detail for one
	// container. Returns domain.ErrContainerNotFound if it no longer exists.
	InspectContainer(ctx context.Context, containerID string) (*domain.Container, error)

	// ListNetworks lists the host's networks.
	ListNetworks(ctx context.Context) ([]*domain.NetworkInfo, error)

	// SubscribeEvents streams container lifecycle events until ctx is
	// cancelled. It reconnects with backoff on transport errors and never
	// returns until ctx is done (it returns ctx.Err() then).
	SubscribeEvents(ctx context.Context, onEvent func(domain.ContainerEvent)) error
}
