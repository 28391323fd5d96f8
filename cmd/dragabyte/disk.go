package main

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/output"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/session"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/volume"
)

var diskCmd = &cobra.Command{
	Use:   "disk [path]",
	Short: "Show capacity of the volume holding a path",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDisk,
}

var diskDrives bool

func init() {
	rootCmd.AddCommand(diskCmd)
	diskCmd.Flags().StringP("output", "o", "", "output format: "+strings.Join(output.Available(), ", "))
	diskCmd.Flags().BoolVar(&diskDrives, "drives", false, "report every mounted drive")
}

func runDisk(cmd *cobra.Command, args []string) error {
	format := viper.GetString("output")
	if f := cmd.Flags().Lookup("output"); f != nil && f.Changed {
		format = f.Value.String()
	}
	formatter, err := output.Get(format)
	if err != nil {
		return err
	}

	paths := []string{"."}
	if len(args) > 0 {
		paths = args
	}
	if diskDrives {
		paths = paths[:0]
		for _, d := range volume.Drives() {
			paths = append(paths, d.Path)
		}
		if len(paths) == 0 {
			paths = append(paths, "/")
		}
	}

	var buf bytes.Buffer
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		snap, err := session.DiskUsage(abs)
		if err != nil {
			return err
		}
		if err := formatter.Format(&buf, &output.Result{Source: abs, Disk: &snap}); err != nil {
			return err
		}
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}
