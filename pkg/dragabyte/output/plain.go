package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
)

// PlainFormatter writes unstyled tab aligned tables suitable for piping.
// Sizes are in bytes so the columns sort numerically.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if d := r.Disk; d != nil {
		fmt.Fprintf(tw, "TOTAL\tUSED\tFREE\tPATH\n")
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\n", d.TotalBytes, d.UsedBytes(), d.FreeBytes, d.Path)
		if r.Summary != nil {
			fmt.Fprintln(tw)
		}
	}

	if s := r.Summary; s != nil {
		fmt.Fprintf(tw, "SIZE\tFILES\tDIRS\tPATH\n")
		walk(s.Root, 0, r.depth(), func(node types.ScanNode, depth int) {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%s%s\n", node.SizeBytes, node.FileCount, node.DirCount, strings.Repeat("  ", depth), node.Path)
		})

		if files := r.largest(); len(files) > 0 {
			fmt.Fprintln(tw)
			fmt.Fprintf(tw, "SIZE\tFILE\n")
			for _, file := range files {
				fmt.Fprintf(tw, "%d\t%s\n", file.SizeBytes, file.Path)
			}
		}
	}

	switch {
	case r.Error != "":
		fmt.Fprintf(tw, "error: %s\n", r.Error)
	case r.Cancelled:
		fmt.Fprintf(tw, "cancelled\n")
	}

	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)
