package dockerhost

import (
	"context"
	"time"

	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"

	"github.com/Redth/npm-docker-sync/internal/domain"
	"github.com/Redth/npm-docker-sync/internal/logging"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 1 * time.Minute
	backoffFactor  = 1.5
)

// SubscribeEvents streams container lifecycle events until ctx is
// cancelled, reconnecting with exponential backoff whenever the daemon's
// event stream errors out. Failures reset the backoff to its floor once a
// reconnect delivers at least one event, mirroring a flapping daemon
// recovering rather than punishing it for a single blip.
func (h *Host) SubscribeEvents(ctx context.Context, onEvent func(domain.ContainerEvent)) error {
	ctx = logging.Component(ctx, "dockerhost")
	log := logging.From(ctx)

	delay := initialBackoff
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f := filters.NewArgs()
		f.Add("type", "container")
		f.Add("event", "start")
		f.Add("event", "die")
		f.Add("event", "destroy")
		f.Add("event", "stop")
		f.Add("event", "kill")
		f.Add("event", "rename")
		f.Add("event", "update")
		f.Add("event", "connect")
		f.Add("event", "disconnect")

		messages, errs := h.client.Events(ctx, events.ListOptions{Filters: f})
		log.Info("subscribed to container events")

		receivedAny := false
	streamLoop:
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case err := <-errs:
				if err == nil {
					continue
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Error("container event stream error", "error", err)
				if receivedAny {
					delay = initialBackoff
				} else {
					delay = time.Duration(float64(delay) * backoffFactor)
					if delay > maxBackoff {
						delay = maxBackoff
					}
				}
				break streamLoop
			case msg := <-messages:
				if !receivedAny {
					receivedAny = true
					delay = initialBackoff
				}
				if msg.Type != "container" {
					continue
				}
				onEvent(domain.ContainerEvent{
					ContainerID: msg.Actor.ID,
					Action:      toDomainAction(string(msg.Action)),
				})
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
