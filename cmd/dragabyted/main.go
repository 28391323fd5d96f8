// Package main is dragabyted, the headless dragabyte hub. It serves the TCP
// control protocol until SIGINT, SIGTERM or a remote shutdown request.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/dragabyte/pkg/daemon"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/config"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/logging"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "dragabyted: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := daemon.DefaultPaths()
	cmd := &cobra.Command{
		Use:           "dragabyted",
		Short:         "Headless dragabyte hub",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	fs := cmd.Flags()
	fs.String("tcp-bind", "", "listener address (default "+config.DefaultBind+")")
	fs.String("tcp-token", "", "shared secret clients must send")
	fs.String("settings", "", "settings file")
	fs.String("health-socket", defaults.Health, `gRPC health socket ("" disables it)`)
	fs.String("pid-file", defaults.PID, "PID file")
	fs.String("status-file", defaults.Status, "startup status file")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-file", "", `log file path ("-" disables the file)`)
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	fs := cmd.Flags()

	level, _ := fs.GetString("log-level")
	logFile, _ := fs.GetString("log-file")
	if err := logging.Init(logging.Config{Level: level, Path: logFile, ConsoleLevel: level}); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	in := config.Inputs{Headless: true, TCP: true}
	if f := fs.Lookup("tcp-bind"); f.Changed {
		v := f.Value.String()
		in.TCPBind = &v
	}
	if f := fs.Lookup("tcp-token"); f.Changed {
		v := f.Value.String()
		in.TCPToken = &v
	}

	opts := daemon.ServeOptions{}
	settings, _ := fs.GetString("settings")
	opts.PIDFile, _ = fs.GetString("pid-file")
	opts.StatusFile, _ = fs.GetString("status-file")
	opts.HealthSocket, _ = fs.GetString("health-socket")

	rt, err := config.Resolve(in, config.LoadSettings(config.SettingsPath(settings, nil)))
	if err != nil {
		if opts.StatusFile != "" {
			_ = daemon.WriteStatusError(opts.StatusFile, err)
		}
		return err
	}
	opts.Runtime = rt

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return daemon.Serve(ctx, opts)
}
