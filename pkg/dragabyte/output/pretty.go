package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
)

// PrettyFormatter renders a styled report for terminal display: a header,
// the directory tree with size shares, the largest files and a footer.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	if r.Disk != nil {
		w.WriteString(f.formatDisk(*r.Disk))
	}

	if r.Summary != nil {
		w.WriteString(f.formatTree(r))
		w.WriteString(f.formatLargest(r.largest()))
		w.WriteString(f.formatFooter(r.Summary))
		w.WriteString("\n")
	}

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
		w.WriteString("\n")
		for _, warning := range r.Warnings {
			w.WriteString(WarningStyle.Render("  " + warning))
			w.WriteString("\n")
		}
	}
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Result) string {
	lines := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Source:"), ValueStyle.Render(r.Source)),
	}

	if s := r.Summary; s != nil {
		scanned := fmt.Sprintf("%s files, %s directories in %s",
			humanize.Comma(int64(s.FileCount)),
			humanize.Comma(int64(s.DirCount)),
			FormatDuration(time.Duration(s.DurationMs)*time.Millisecond))
		lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Scanned:"), ValueStyle.Render(scanned)))
	}

	switch {
	case r.Error != "":
		lines = append(lines, ErrorStyle.Bold(true).Render("Scan failed: "+r.Error))
	case r.Cancelled:
		lines = append(lines, WarningStyle.Bold(true).Render("Scan cancelled, totals are partial"))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatDisk(d types.DiskUsageSnapshot) string {
	used := d.UsedBytes()
	pct := percent(used, d.TotalBytes)
	return fmt.Sprintf("  %s %s %5.1f%%  %s used of %s, %s free\n\n",
		LabelStyle.Render("Disk:"),
		Bar(pct),
		pct,
		SizeStyle.Render(types.FormatSize(used)),
		ValueStyle.Render(types.FormatSize(d.TotalBytes)),
		SuccessStyle.Render(types.FormatSize(d.FreeBytes)))
}

func (f *PrettyFormatter) formatTree(r *Result) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %s\n", TableHeaderStyle.Render("DIRECTORIES")))

	root := r.Summary.Root
	walk(root, 0, r.depth(), func(node types.ScanNode, depth int) {
		name := node.Name
		if depth == 0 {
			name = node.Path
		}
		pct := percent(node.SizeBytes, root.SizeBytes)
		sb.WriteString(fmt.Sprintf("  %s %5.1f%%  %s%s %s\n",
			SizeStyle.Render(padLeft(types.FormatSize(node.SizeBytes), 10)),
			pct,
			strings.Repeat("  ", depth),
			PathStyle.Render(name),
			MutedStyle.Render(fmt.Sprintf("(%s files)", humanize.Comma(int64(node.FileCount))))))
	})
	return sb.String()
}

func (f *PrettyFormatter) formatLargest(files []types.ScanFile) string {
	if len(files) == 0 {
		return MutedStyle.Render("\n  No files found matching criteria\n")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\n  %s\n", TableHeaderStyle.Render("LARGEST FILES")))
	for _, file := range files {
		sb.WriteString(fmt.Sprintf("  %s  %s\n",
			SizeStyle.Render(padLeft(types.FormatSize(file.SizeBytes), 10)),
			PathStyle.Render(file.Path)))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(s *types.ScanSummary) string {
	parts := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Total:"), SizeStyle.Render(types.FormatSize(s.TotalBytes))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Files:"), ValueStyle.Render(humanize.Comma(int64(s.FileCount)))),
		MutedStyle.Render("Use -o plain for unformatted output"),
	}
	return FooterBox.Render(strings.Join(parts, "  "))
}

// padLeft pads s with spaces on the left to width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// FormatDuration formats d for humans: "350ms", "4.2s", "3m 5s", "1h 2m".
func FormatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
