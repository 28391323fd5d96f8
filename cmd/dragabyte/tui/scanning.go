package tui

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
)

// maxChildren is how many of the root's children the view lists.
const maxChildren = 8

// Outcome is how a scan ended.
type Outcome struct {
	// Summary is the final summary, or the last progress snapshot when the
	// scan was cancelled or failed.
	Summary   *types.ScanSummary
	Cancelled bool
	Err       error
}

// ScanFunc runs one scan, calling progress with every snapshot, and returns
// once a terminal event arrives.
type ScanFunc func(ctx context.Context, progress func(types.ScanSummary)) Outcome

// ProgressMsg carries a progress snapshot.
type ProgressMsg types.ScanSummary

// DoneMsg is sent when the scan has ended.
type DoneMsg Outcome

// ScanModel is the progress view.
type ScanModel struct {
	spinner    spinner.Model
	root       string
	summary    *types.ScanSummary
	startTime  time.Time
	width      int
	height     int
	cancel     context.CancelFunc
	cancelling bool
	done       bool
	outcome    Outcome
}

// NewScanModel returns a model for a scan of root. cancel stops the scan
// when the user quits.
func NewScanModel(root string, cancel context.CancelFunc) ScanModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return ScanModel{
		spinner:   s,
		root:      root,
		startTime: time.Now(),
		width:     80,
		height:    24,
		cancel:    cancel,
	}
}

// Init starts the spinner.
func (m ScanModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages for the scanning model.
func (m ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.cancelling && !m.done {
				m.cancelling = true
				if m.cancel != nil {
					m.cancel()
				}
			}
		}
		return m, nil

	case ProgressMsg:
		s := types.ScanSummary(msg)
		m.summary = &s
		return m, nil

	case DoneMsg:
		m.done = true
		m.outcome = Outcome(msg)
		if m.outcome.Summary == nil {
			m.outcome.Summary = m.summary
		}
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// Outcome returns how the scan ended. Valid once the program has exited.
func (m ScanModel) Outcome() Outcome {
	return m.outcome
}

// View renders the progress view.
func (m ScanModel) View() string {
	contentWidth := max(m.width-4, 40)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.renderHeader(contentWidth))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	switch {
	case m.done && m.outcome.Err != nil:
		b.WriteString(errorTextStyle.Render(fmt.Sprintf("  Error: %v", m.outcome.Err)))
	case m.done && m.outcome.Cancelled:
		b.WriteString(warningTextStyle.Render("  Scan cancelled"))
	case m.done:
		b.WriteString(successTextStyle.Render("  Scan complete!"))
	case m.cancelling:
		b.WriteString(fmt.Sprintf("  %s %s", m.spinner.View(), warningTextStyle.Render("Cancelling...")))
	default:
		b.WriteString(fmt.Sprintf("  %s Scanning: %s", m.spinner.View(), truncatePath(m.root, contentWidth-20)))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderStats(contentWidth))
	b.WriteString("\n\n")
	b.WriteString(m.renderChildren(contentWidth))

	content := b.String()
	if lines := strings.Count(content, "\n") + 1; m.height-2 > lines {
		content += strings.Repeat("\n", m.height-2-lines)
	}
	return outerBoxStyle.Width(m.width - 2).Render(content)
}

func (m ScanModel) renderHeader(width int) string {
	title := titleStyle.Render("  dragabyte")
	hint := mutedTextStyle.Render("[q or Ctrl+C to stop]")
	spacing := max(width-lipgloss.Width(title)-lipgloss.Width(hint), 1)
	return title + strings.Repeat(" ", spacing) + hint
}

func (m ScanModel) renderStats(totalWidth int) string {
	boxWidth := max((totalWidth-10)/4, 10)

	size, files, dirs := "-", "-", "-"
	if s := m.summary; s != nil {
		size = types.FormatSize(s.TotalBytes)
		files = humanize.Comma(int64(s.FileCount))
		dirs = humanize.Comma(int64(s.DirCount))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		"  ", m.renderStatBox("Size", size, boxWidth),
		" ", m.renderStatBox("Files", files, boxWidth),
		" ", m.renderStatBox("Dirs", dirs, boxWidth),
		" ", m.renderStatBox("Time", formatDuration(time.Since(m.startTime)), boxWidth))
}

func (m ScanModel) renderStatBox(label, value string, width int) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		center(statsLabelStyle.Render(label), width-4),
		center(statsValueStyle.Render(value), width-4))
	return statsBoxStyle.Width(width).Render(content)
}

// renderChildren lists the biggest children of the root with share bars.
func (m ScanModel) renderChildren(width int) string {
	if m.summary == nil || len(m.summary.Root.Children) == 0 {
		return mutedTextStyle.Render("  Waiting for the first snapshot...")
	}

	children := slices.Clone(m.summary.Root.Children)
	slices.SortFunc(children, func(a, b types.ScanNode) int {
		if c := cmp.Compare(b.SizeBytes, a.SizeBytes); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(children) > maxChildren {
		children = children[:maxChildren]
	}

	barWidth := max(width/4, 10)
	var b strings.Builder
	b.WriteString(mutedTextStyle.Render("  Biggest so far"))
	b.WriteString("\n")
	for _, child := range children {
		share := 0.0
		if m.summary.TotalBytes > 0 {
			share = float64(child.SizeBytes) / float64(m.summary.TotalBytes)
		}
		filled := min(int(share*float64(barWidth)), barWidth)
		bar := barFillStyle.Render(repeat("█", filled)) + barEmptyStyle.Render(repeat("░", barWidth-filled))
		b.WriteString(fmt.Sprintf("  %s %s  %s\n",
			sizeStyle.Render(fmt.Sprintf("%10s", types.FormatSize(child.SizeBytes))),
			bar,
			nameStyle.Render(truncatePath(child.Name, width-barWidth-16))))
	}
	return b.String()
}

// formatDuration formats d as M:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", d/time.Minute, (d%time.Minute)/time.Second)
}

// Run shows the progress view while scan runs and returns its outcome.
// Quitting the view cancels the scan and waits for it to stop.
func Run(ctx context.Context, root string, scan ScanFunc) (Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewScanModel(root, cancel), tea.WithAltScreen())

	go func() {
		out := scan(ctx, func(s types.ScanSummary) { p.Send(ProgressMsg(s)) })
		p.Send(DoneMsg(out))
	}()

	final, err := p.Run()
	if err != nil {
		return Outcome{}, fmt.Errorf("progress view: %w", err)
	}
	return final.(ScanModel).Outcome(), nil
}
