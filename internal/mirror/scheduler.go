package mirror

import (
	"context"
	"sync"
	"time"

	"github.com/Redth/npm-docker-sync/internal/boundaries/out"
	"github.com/Redth/npm-docker-sync/internal/logging"
)

// DefaultInterval is the fallback sync interval when neither a global nor
// a per-slot interval is configured (§4.7).
const DefaultInterval = 5 * time.Minute

// MinInterval is the floor every effective interval is bounded to.
const MinInterval = 1 * time.Minute

// debounceWindow coalesces a burst of SignalChange calls (e.g. many
// container events during a compose `up`) into a single sync, per
// SPEC_FULL's mirror debouncing addendum.
const debounceWindow = 250 * time.Millisecond

// Scheduler is the Mirror Scheduler (§4.7): it drives a periodic plus
// on-demand sync of the primary proxy manager's configuration to every
// configured secondary. It implements out.MirrorSignaler.
type Scheduler struct {
	primary  out.ProxyManagerClient
	targets  []Target
	interval time.Duration

	requested chan struct{}
	syncing   sync.Mutex
}

var _ out.MirrorSignaler = (*Scheduler)(nil)

// NewScheduler constructs a Scheduler. interval is the already-computed
// effective interval (min of global and per-slot intervals, bounded to
// MinInterval).
func NewScheduler(primary out.ProxyManagerClient, targets []Target, interval time.Duration) *Scheduler {
	if interval < MinInterval {
		interval = MinInterval
	}
	return &Scheduler{
		primary:   primary,
		targets:   targets,
		interval:  interval,
		requested: make(chan struct{}, 1),
	}
}

// SignalChange wakes the scheduler's debounce window. Non-blocking: a
// pending signal coalesces with any signal already queued.
func (s *Scheduler) SignalChange() {
	select {
	case s.requested <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled, performing an initial sync then
// looping on (interval elapses OR SignalChange fires, debounced) -> sync
// all targets. Returns ctx.Err() on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx = logging.Component(ctx, "mirror")
	log := logging.From(ctx)

	if len(s.targets) == 0 {
		log.Info("no mirror targets configured, scheduler inactive")
		return nil
	}

	s.syncAll(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timer.C:
			s.syncAll(ctx)
			timer.Reset(s.interval)

		case <-s.requested:
			if !s.waitDebounce(ctx) {
				return ctx.Err()
			}
			s.syncAll(ctx)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.interval)
		}
	}
}

// waitDebounce drains further requests for debounceWindow before returning,
// so a burst of near-simultaneous signals triggers exactly one sync.
// Returns false if ctx was cancelled while waiting.
func (s *Scheduler) waitDebounce(ctx context.Context) bool {
	t := time.NewTimer(debounceWindow)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-s.requested:
			if !t.Stop() {
				<-t.C
			}
			t.Reset(debounceWindow)
		case <-t.C:
			return true
		}
	}
}

// syncAll acquires the binary sync lock without blocking; an already
// in-flight sync makes a concurrent call a no-op, per §4.7 and §5's
// "overlapping periodic/triggered syncs collapse to one".
func (s *Scheduler) syncAll(ctx context.Context) {
	log := logging.From(ctx)
	if !s.syncing.TryLock() {
		log.Debug("mirror sync already in progress, skipping")
		return
	}
	defer s.syncing.Unlock()

	for _, target := range s.targets {
		if ctx.Err() != nil {
			return
		}
		SyncTarget(ctx, s.primary, target)
	}
}
