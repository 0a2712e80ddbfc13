package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Redth/npm-docker-sync/internal/adapters/out/dockerhost"
	"github.com/Redth/npm-docker-sync/internal/adapters/out/npmclient"
	"github.com/Redth/npm-docker-sync/internal/boundaries/out"
	"github.com/Redth/npm-docker-sync/internal/certmatch"
	"github.com/Redth/npm-docker-sync/internal/config"
	"github.com/Redth/npm-docker-sync/internal/eventloop"
	"github.com/Redth/npm-docker-sync/internal/instanceid"
	"github.com/Redth/npm-docker-sync/internal/logging"
	"github.com/Redth/npm-docker-sync/internal/mirror"
	"github.com/Redth/npm-docker-sync/internal/netinspect"
	"github.com/Redth/npm-docker-sync/internal/reconcile"
	"github.com/Redth/npm-docker-sync/internal/urlnorm"
)

// shutdownGrace bounds how long serve waits for an in-flight reconcile or
// mirror pass to observe cancellation before exiting anyway (§5).
const shutdownGrace = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the event loop and (if configured) the mirror scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	logging.ConfigureFromEnv()
	ctx = logging.Component(ctx, "main")
	log := logging.From(ctx)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.LogLevel != "" {
		logging.Configure(cfg.LogLevel)
	}

	npmURL, err := urlnorm.Normalize(cfg.NPMURL)
	if err != nil {
		return fmt.Errorf("invalid NPM_URL: %w", err)
	}

	host, err := dockerhost.New()
	if err != nil {
		return fmt.Errorf("failed to connect to container host: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	instanceID := instanceid.Resolve(ctx, host, cfg.InstanceIDOverride)

	netInspect, err := netinspect.New(ctx, host, cfg.ProxyManagerContainer, cfg.HostAddressOverride)
	if err != nil {
		return fmt.Errorf("failed to initialize network inspector: %w", err)
	}

	client := npmclient.New(npmURL, cfg.NPMEmail, cfg.NPMPassword)
	certMatch := certmatch.New(client)

	signaler, scheduler := buildMirror(ctx, cfg, client)

	reconciler := reconcile.New(host, client, netInspect, certMatch, signaler, instanceID, cfg.ProxyDefaults)
	loop := eventloop.New(host, reconciler)

	var wg sync.WaitGroup
	if scheduler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("mirror scheduler exited with error", "error", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("event loop exited with error", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("shutdown signal received, cancelling in-flight work")
		cancel()
	case <-done:
	}

	select {
	case <-done:
	case <-time.After(shutdownGrace):
		log.Warn("timed out waiting for in-flight reconcile/mirror pass to observe cancellation")
	}

	log.Info("shutdown complete", "instance_id", instanceID, "mirrors_configured", len(cfg.Mirrors))
	return nil
}

// buildMirror wires the Mirror Scheduler when at least one secondary is
// configured, otherwise returns a no-op signaler and a nil scheduler
// (§4.7: "if none, the mirror scheduler is inactive"; §9: the reconciler's
// signaler must always be non-nil).
func buildMirror(ctx context.Context, cfg *config.Config, primary out.ProxyManagerClient) (out.MirrorSignaler, *mirror.Scheduler) {
	log := logging.From(ctx)

	if len(cfg.Mirrors) == 0 {
		return out.NoopMirrorSignaler{}, nil
	}

	targets := make([]mirror.Target, 0, len(cfg.Mirrors))
	for _, slot := range cfg.Mirrors {
		url, err := urlnorm.Normalize(slot.URL)
		if err != nil {
			log.Warn("dropping mirror slot with invalid URL", "slot", slot.Name, "error", err)
			continue
		}
		targets = append(targets, mirror.Target{
			Name:     fmt.Sprintf("%s (%s)", slot.Name, url),
			Client:   npmclient.New(url, slot.Email, slot.Password),
			Interval: slot.Interval,
		})
	}
	if len(targets) == 0 {
		return out.NoopMirrorSignaler{}, nil
	}

	interval := config.EffectiveMirrorInterval(cfg.Mirrors, mirror.DefaultInterval, mirror.MinInterval)
	log.Info("mirror scheduler active", "targets", len(targets), "interval", interval)

	scheduler := mirror.NewScheduler(primary, targets, interval)
	return scheduler, scheduler
}
