package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jamesainslie/dragabyte/pkg/daemon"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the remote control hub",
	Long: `Serve the newline-delimited JSON control hub on TCP. The hub answers
list, disk, read, scan and cancel requests from remote clients.

Bind address and token resolve from flags, then DRAGABYTE_TCP_BIND and
DRAGABYTE_TCP_TOKEN, then the settings file, then 127.0.0.1:4799.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var errTCPDisabled = errors.New("remote serving is off: pass --tcp or --tcp-bind, or set " + config.EnvTCPBind)

func init() {
	rootCmd.AddCommand(serveCmd)
	addHubFlags(serveCmd.Flags())
	serveCmd.Flags().Bool("headless", false, "exit when a client requests shutdown")
	serveCmd.Flags().Bool("tcp", false, "enable the TCP listener")
	serveCmd.Flags().Bool("disable-updater", false, "turn off update checks in the settings")
}

// addHubFlags registers the listener and process file flags.
func addHubFlags(fs *pflag.FlagSet) {
	defaults := daemon.DefaultPaths()
	fs.String("tcp-bind", "", "listener address (host:port)")
	fs.String("tcp-token", "", "shared secret clients must send")
	fs.String("settings", "", "settings file (default: "+config.DefaultSettingsPath()+")")
	fs.String("health-socket", defaults.Health, `gRPC health socket ("" disables it)`)
	fs.String("pid-file", "", "write the process ID here")
	fs.String("status-file", "", "record startup status here")
}

// hubInputs collects resolver inputs from fs. Only flags given on the
// command line override the environment and settings.
func hubInputs(fs *pflag.FlagSet) config.Inputs {
	var in config.Inputs
	in.Headless, _ = fs.GetBool("headless")
	in.TCP, _ = fs.GetBool("tcp")
	in.DisableUpdater, _ = fs.GetBool("disable-updater")
	in.TCPBind = changedString(fs, "tcp-bind")
	in.TCPToken = changedString(fs, "tcp-token")
	return in
}

func changedString(fs *pflag.FlagSet, name string) *string {
	f := fs.Lookup(name)
	if f == nil || !f.Changed {
		return nil
	}
	v := f.Value.String()
	return &v
}

// hubOptions resolves the runtime and file locations for a hub.
func hubOptions(fs *pflag.FlagSet) (daemon.ServeOptions, error) {
	settings, _ := fs.GetString("settings")
	rt, err := config.Resolve(hubInputs(fs), config.LoadSettings(config.SettingsPath(settings, nil)))
	if err != nil {
		return daemon.ServeOptions{}, err
	}
	if rt.TCP == nil {
		return daemon.ServeOptions{}, errTCPDisabled
	}

	opts := daemon.ServeOptions{Runtime: rt}
	opts.PIDFile, _ = fs.GetString("pid-file")
	opts.StatusFile, _ = fs.GetString("status-file")
	opts.HealthSocket, _ = fs.GetString("health-socket")
	return opts, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	opts, err := hubOptions(cmd.Flags())
	if err != nil {
		return err
	}
	opts.Ready = func(addr string) {
		printInfo("Hub listening on %s", addr)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return daemon.Serve(ctx, opts)
}
