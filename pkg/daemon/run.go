package daemon

import (
	"context"
	"fmt"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/config"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/logging"
)

// ServeOptions configures Serve. Empty file paths skip the corresponding
// file.
type ServeOptions struct {
	Runtime *config.Runtime

	PIDFile      string
	StatusFile   string
	HealthSocket string

	// Ready, when set, is called with the bound address once the hub
	// accepts connections.
	Ready func(addr string)
}

// Serve runs a hub for rt until ctx is done or, in headless mode, a client
// requests shutdown. Startup failures are recorded in the status file.
func Serve(ctx context.Context, opts ServeOptions) (err error) {
	log := logging.Get("hub")

	rt := opts.Runtime
	if rt == nil || rt.TCP == nil {
		return config.ErrHeadlessNeedsTCP
	}

	defer func() {
		if err != nil && opts.StatusFile != "" {
			_ = WriteStatusError(opts.StatusFile, err)
		}
	}()

	if opts.PIDFile != "" {
		if err = RecoverStale(Paths{PID: opts.PIDFile, Status: opts.StatusFile, Health: opts.HealthSocket}); err != nil {
			return err
		}
	}

	hub, err := NewHub(Config{
		Addr:     rt.TCP.Bind.String(),
		Token:    rt.TCP.Token,
		Headless: rt.Headless,
	})
	if err != nil {
		return err
	}
	defer hub.Stop()

	var health *HealthServer
	if opts.HealthSocket != "" {
		if health, err = NewHealthServer(opts.HealthSocket); err != nil {
			return fmt.Errorf("health socket: %w", err)
		}
		defer health.Close()
		go func() {
			if err := health.Serve(); err != nil {
				log.Warn("health server stopped", "error", err)
			}
		}()
	}

	if opts.PIDFile != "" {
		if err = WritePIDFile(opts.PIDFile); err != nil {
			return fmt.Errorf("write pid file: %w", err)
		}
		defer func() { _ = RemovePIDFile(opts.PIDFile) }()
	}

	hub.Start()
	addr := hub.Addr().String()

	if opts.StatusFile != "" {
		if err = WriteStatusReady(opts.StatusFile, addr); err != nil {
			return fmt.Errorf("write status file: %w", err)
		}
		defer func() { _ = RemoveStatus(opts.StatusFile) }()
	}
	if health != nil {
		health.SetServing(true)
	}
	if opts.Ready != nil {
		opts.Ready(addr)
	}
	log.Info("hub ready", "addr", addr, "headless", rt.Headless, "auth", rt.TCP.Token != "", "updater", rt.UpdaterEnabled)

	select {
	case <-ctx.Done():
		log.Info("stopping hub", "reason", ctx.Err())
	case <-hub.Shutdown():
		log.Info("stopping hub", "reason", "remote shutdown")
	}

	if health != nil {
		health.SetServing(false)
	}
	return nil
}
