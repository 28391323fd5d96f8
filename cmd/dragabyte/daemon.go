package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/jamesainslie/dragabyte/pkg/client"
	"github.com/jamesainslie/dragabyte/pkg/daemon"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/config"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the background dragabyted hub",
	Long: `Manage dragabyted, the headless hub. It serves the TCP control protocol
in the background and exits when a client sends shutdown.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start dragabyted in the background",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask dragabyted to shut down",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStop,
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Stop and start dragabyted",
	Args:  cobra.NoArgs,
	RunE:  runDaemonRestart,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dragabyted status",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStatus,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonRestartCmd, daemonStatusCmd)

	fs := daemonCmd.PersistentFlags()
	fs.String("binary", "", "dragabyted executable (default: next to dragabyte, then PATH)")
	fs.String("tcp-bind", "", "listener address passed to dragabyted")
	fs.String("tcp-token", "", "shared secret passed to dragabyted")
	fs.String("settings", "", "settings file passed to dragabyted")
}

func daemonPaths(cmd *cobra.Command) client.DaemonPaths {
	binary, _ := cmd.Flags().GetString("binary")
	defaults := daemon.DefaultPaths()
	return client.DaemonPaths{Binary: binary, PID: defaults.PID, Status: defaults.Status}
}

// daemonArgs forwards the listener flags that were given.
func daemonArgs(cmd *cobra.Command) []string {
	var args []string
	for _, name := range []string{"tcp-bind", "tcp-token", "settings"} {
		if v := changedString(cmd.Flags(), name); v != nil {
			args = append(args, "--"+name, *v)
		}
	}
	return args
}

func daemonToken(cmd *cobra.Command) string {
	if token, _ := cmd.Flags().GetString("tcp-token"); token != "" {
		return token
	}
	return os.Getenv(config.EnvTCPToken)
}

func runDaemonStart(cmd *cobra.Command, _ []string) error {
	printVerbose("starting %s...", client.DaemonBinary)
	addr, err := client.StartDaemon(daemonPaths(cmd), daemonArgs(cmd)...)
	if err != nil {
		return err
	}
	printInfo("Hub running on %s", addr)
	return nil
}

func runDaemonStop(cmd *cobra.Command, _ []string) error {
	paths := daemonPaths(cmd)
	if !daemon.IsRunning(paths.PID) {
		return errors.New("hub is not running")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	printVerbose("sending shutdown...")
	if err := client.StopDaemon(ctx, paths, daemonToken(cmd)); err != nil {
		return err
	}
	printInfo("Hub stopped")
	return nil
}

func runDaemonRestart(cmd *cobra.Command, args []string) error {
	paths := daemonPaths(cmd)
	if daemon.IsRunning(paths.PID) {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		if err := client.StopDaemon(ctx, paths, daemonToken(cmd)); err != nil {
			return fmt.Errorf("stop: %w", err)
		}
	}
	return runDaemonStart(cmd, args)
}

func runDaemonStatus(cmd *cobra.Command, _ []string) error {
	paths := daemon.DefaultPaths()
	w := cmd.OutOrStdout()

	if !daemon.IsRunning(paths.PID) {
		fmt.Fprintln(w, "Hub: not running")
		if status, err := daemon.ReadStatus(paths.Status); err == nil && status.Status == daemon.StatusError {
			fmt.Fprintf(w, "Last start failed: %s\n", status.Error)
		}
		return nil
	}

	pid, _ := daemon.ReadPIDFile(paths.PID)
	fmt.Fprintf(w, "Hub: running (pid %d)\n", pid)
	if status, err := daemon.ReadStatus(paths.Status); err == nil && status.Bind != "" {
		fmt.Fprintf(w, "Address: %s\n", status.Bind)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
	defer cancel()
	health, err := client.CheckHealth(ctx, paths.Health)
	if err != nil {
		fmt.Fprintf(w, "Health: unknown (%v)\n", err)
		return nil
	}
	fmt.Fprintf(w, "Health: %s\n", healthLabel(health))
	return nil
}

func healthLabel(s healthpb.HealthCheckResponse_ServingStatus) string {
	switch s {
	case healthpb.HealthCheckResponse_SERVING:
		return "serving"
	case healthpb.HealthCheckResponse_NOT_SERVING:
		return "not serving"
	default:
		return "unknown"
	}
}
