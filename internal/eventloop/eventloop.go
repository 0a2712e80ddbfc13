// Package eventloop implements the Event Loop (§4.6): it performs the
// initial full scan, then subscribes to the container host's event stream
// and dispatches add/update/delete to the Reconciler, strictly
// sequentially (§5).
package eventloop

import (
	"context"
	"errors"

	"github.com/Redth/npm-docker-sync/internal/boundaries/out"
	"github.com/Redth/npm-docker-sync/internal/domain"
	"github.com/Redth/npm-docker-sync/internal/labels"
	"github.com/Redth/npm-docker-sync/internal/logging"
)

// Reconciler is the subset of *reconcile.Reconciler the Event Loop drives,
// narrowed to an interface so this package can be tested against a fake.
type Reconciler interface {
	Reconcile(ctx context.Context, containerID string, lbls map[string]string) error
	ContainerGone(ctx context.Context, containerID string)
	RebuildHandles(ctx context.Context) error
}

// EventLoop is the Event Loop component.
type EventLoop struct {
	host       out.ContainerHost
	reconciler Reconciler
}

// New constructs an EventLoop. The Network Inspector must already be
// initialized by the caller before Run starts the full scan, since the
// Reconciler holds a reference to it (§4.6 step 1 happens in wiring, ahead
// of this component).
func New(host out.ContainerHost, reconciler Reconciler) *EventLoop {
	return &EventLoop{host: host, reconciler: reconciler}
}

// Run rebuilds handles from existing proxy-manager state, performs the
// initial full scan, then subscribes to the event stream until ctx is
// cancelled.
func (e *EventLoop) Run(ctx context.Context) error {
	ctx = logging.Component(ctx, "eventloop")
	log := logging.From(ctx)

	if err := e.reconciler.RebuildHandles(ctx); err != nil {
		log.Error("failed to rebuild handles from proxy manager state", "error", err)
	}

	if err := e.fullScan(ctx); err != nil {
		return err
	}

	return e.host.SubscribeEvents(ctx, func(ev domain.ContainerEvent) {
		e.handleEvent(ctx, ev)
	})
}

// fullScan lists every container, including stopped ones, and reconciles
// each whose labels carry any reserved-namespace key.
func (e *EventLoop) fullScan(ctx context.Context) error {
	log := logging.From(ctx)

	containers, err := e.host.ListContainers(ctx, true)
	if err != nil {
		return logging.WrapErr(ctx, err, "full scan: list containers")
	}

	scanned := 0
	for _, c := range containers {
		if !labels.HasReservedLabels(c.Labels) {
			continue
		}
		scanned++
		if err := e.reconciler.Reconcile(ctx, c.ID, c.Labels); err != nil {
			log.Error("full scan reconcile failed", "container_id", c.ID, "error", err)
		}
	}
	log.Info("full scan complete", "containers_with_labels", scanned, "containers_total", len(containers))
	return nil
}

func (e *EventLoop) handleEvent(ctx context.Context, ev domain.ContainerEvent) {
	log := logging.From(ctx)

	switch ev.Action {
	case domain.ActionStart, domain.ActionUpdate:
		c, err := e.host.InspectContainer(ctx, ev.ContainerID)
		if err != nil {
			if errors.Is(err, domain.ErrContainerNotFound) {
				return
			}
			log.Error("inspect container failed for event", "container_id", ev.ContainerID, "error", err)
			return
		}
		if err := e.reconciler.Reconcile(ctx, c.ID, c.Labels); err != nil {
			log.Error("reconcile failed for event", "container_id", ev.ContainerID, "error", err)
		}

	case domain.ActionStop, domain.ActionDie, domain.ActionDestroy:
		e.reconciler.ContainerGone(ctx, ev.ContainerID)

	default:
		// ignored: connect/disconnect/rename surface as ActionUpdate already;
		// anything else carries no state this controller reconciles on.
	}
}
