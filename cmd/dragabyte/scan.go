package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/dragabyte/cmd/dragabyte/tui"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/logging"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/output"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/scanner"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/session"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Measure a directory tree",
	Long: `Walk a directory tree in parallel and report directory sizes and the
largest files. Ctrl+C stops the walk and reports what was counted so far.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	fs := scanCmd.Flags()
	fs.StringP("output", "o", "", "output format: "+strings.Join(output.Available(), ", "))
	fs.BoolP("no-interactive", "n", false, "skip the progress view")
	fs.Int("depth", 0, "directory levels to expand in text output")
	fs.Int("limit", 0, "largest files to list")
	addScanFlags(fs)

	_ = viper.BindPFlag("output", fs.Lookup("output"))
	_ = viper.BindPFlag("no_interactive", fs.Lookup("no-interactive"))
	_ = viper.BindPFlag("depth", fs.Lookup("depth"))
	_ = viper.BindPFlag("limit", fs.Lookup("limit"))
}

func runScan(cmd *cobra.Command, args []string) error {
	root, err := scanRoot(args)
	if err != nil {
		return err
	}
	opts, err := buildOptions()
	if err != nil {
		return err
	}
	formatter, err := output.Get(viper.GetString("output"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scan := func(ctx context.Context, progress func(types.ScanSummary)) tui.Outcome {
		return scanLocal(ctx, root, opts, progress)
	}

	var out tui.Outcome
	if interactive() {
		// The alternate screen owns the terminal; keep log lines off it.
		if err := logging.Init(loggingConfig(false)); err != nil {
			return err
		}
		if out, err = tui.Run(ctx, root, scan); err != nil {
			return err
		}
	} else {
		out = scan(ctx, nil)
	}

	result := &output.Result{
		Source:    root,
		Summary:   out.Summary,
		Cancelled: out.Cancelled,
		Depth:     viper.GetInt("depth"),
		Limit:     viper.GetInt("limit"),
	}
	if out.Err != nil {
		result.Error = out.Err.Error()
	}
	if disk, err := session.DiskUsage(root); err == nil {
		result.Disk = &disk
	} else {
		result.Warnings = append(result.Warnings, fmt.Sprintf("disk usage: %v", err))
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
		return err
	}

	if out.Err != nil {
		return out.Err
	}
	return nil
}

// scanRoot resolves the path argument, defaulting to the working directory.
func scanRoot(args []string) (string, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}

// interactive reports whether the progress view should be shown.
func interactive() bool {
	if viper.GetString("output") != "pretty" || viper.GetBool("no_interactive") {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// scanLocal runs one scan in this process and blocks until it ends. A
// cancelled scan reports the last progress snapshot as its summary.
func scanLocal(ctx context.Context, root string, opts scanner.Options, progress func(types.ScanSummary)) tui.Outcome {
	events := make(chan scanner.Event, 16)
	emit := scanner.EmitterFunc(func(e scanner.Event) {
		if e.Kind == scanner.KindProgress {
			// Drop snapshots the reader has not caught up with.
			select {
			case events <- e:
			default:
			}
			return
		}
		events <- e
	})

	reg := session.NewRegistry()
	if err := reg.Start(ctx, "cli", root, opts, nil, emit); err != nil {
		return tui.Outcome{Err: err}
	}
	defer reg.Wait()

	var last *types.ScanSummary
	for e := range events {
		switch e.Kind {
		case scanner.KindProgress:
			last = e.Summary
			if progress != nil && e.Summary != nil {
				progress(*e.Summary)
			}
		case scanner.KindComplete:
			return tui.Outcome{Summary: e.Summary}
		case scanner.KindCancelled:
			return tui.Outcome{Summary: last, Cancelled: true}
		case scanner.KindError:
			return tui.Outcome{Summary: last, Err: errors.New(e.Message)}
		}
	}
	return tui.Outcome{Summary: last}
}
