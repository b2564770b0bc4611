// Package tui provides the interactive extraction view.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/mcdonaldj/unpack/internal/extract"
	"github.com/mcdonaldj/unpack/internal/ports"
)

// Extractor runs one extraction. *extract.Service satisfies it.
type Extractor interface {
	ExtractFile(ctx context.Context, archivePath, rootDir string, opts extract.Options) (*extract.Result, error)
}

// Phase is where the model is in the extraction lifecycle.
type Phase int

const (
	Running Phase = iota
	Done
)

// Model is the main TUI model
type Model struct {
	svc         Extractor
	archivePath string
	destDir     string
	opts        extract.Options

	ctx    context.Context
	cancel context.CancelFunc
	events chan tea.Msg

	phase    Phase
	width    int
	height   int
	quitting bool

	bar      progress.Model
	current  int
	total    int
	failures []ports.EntryFailure
	scroll   int

	result *extract.Result
	err    error
}

// Key bindings
type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Messages produced while an extraction runs.
type progressMsg struct{ current, total int }

type failureMsg struct{ failure ports.EntryFailure }

type doneMsg struct {
	result *extract.Result
	err    error
}

// NewModel creates a model that extracts archivePath into destDir with svc.
// opts.Progress is replaced by the model's own reporter.
func NewModel(svc Extractor, archivePath, destDir string, opts extract.Options) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	return &Model{
		svc:         svc,
		archivePath: archivePath,
		destDir:     destDir,
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		events:      make(chan tea.Msg),
		phase:       Running,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
	}
}

// reporter forwards engine callbacks into the model's event channel.
type reporter struct {
	ctx    context.Context
	events chan<- tea.Msg
}

func (r reporter) send(msg tea.Msg) {
	select {
	case r.events <- msg:
	case <-r.ctx.Done():
	}
}

func (r reporter) Update(current, total int) { r.send(progressMsg{current, total}) }

func (r reporter) Failed(f ports.EntryFailure) { r.send(failureMsg{f}) }

var _ ports.ProgressReporter = reporter{}

// Init starts the extraction and the event subscription.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.runExtraction(), m.waitForEvent())
}

// runExtraction closes the event channel once the engine has returned.
// Events already taken off the channel can still reach Update after
// doneMsg, so late messages must not undo the final state.
func (m *Model) runExtraction() tea.Cmd {
	opts := m.opts
	opts.Progress = reporter{ctx: m.ctx, events: m.events}
	return func() tea.Msg {
		res, err := m.svc.ExtractFile(m.ctx, m.archivePath, m.destDir, opts)
		close(m.events)
		return doneMsg{result: res, err: err}
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(max(msg.Width-20, 10), 80)
		return m, nil

	case progressMsg:
		if m.phase == Running {
			m.current = msg.current
			m.total = msg.total
		}
		return m, m.waitForEvent()

	case failureMsg:
		m.failures = append(m.failures, msg.failure)
		return m, m.waitForEvent()

	case doneMsg:
		m.phase = Done
		m.result = msg.result
		m.err = msg.err
		if msg.result != nil && msg.err == nil {
			m.current = msg.result.Entries
			m.total = msg.result.Entries
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.cancel()
			m.quitting = true
			if m.phase == Running {
				m.err = context.Canceled
			}
			return m, tea.Quit

		case key.Matches(msg, keys.Up):
			if m.scroll > 0 {
				m.scroll--
			}

		case key.Matches(msg, keys.Down):
			if m.scroll < len(m.failures)-1 {
				m.scroll++
			}
		}
	}

	return m, nil
}

// Percent is the fraction of entries processed so far.
func (m *Model) Percent() float64 {
	if m.total == 0 {
		if m.phase == Done {
			return 1
		}
		return 0
	}
	return float64(m.current) / float64(m.total)
}

// Result returns the extraction result once the run has finished.
func (m *Model) Result() (*extract.Result, error) {
	return m.result, m.err
}

// View renders the UI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(" unpack "))
	b.WriteString("\n\n")
	b.WriteString(normalStyle.Render(m.archivePath))
	b.WriteString(dimStyle.Render(" → "))
	b.WriteString(normalStyle.Render(m.destDir))
	b.WriteString("\n\n")

	b.WriteString(m.bar.ViewAs(m.Percent()))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d/%d", m.current, m.total)))
	b.WriteString("\n\n")

	b.WriteString(m.renderFailures())

	b.WriteString("\n")
	switch {
	case m.phase == Running:
		b.WriteString(dimStyle.Render("Extracting..."))
	case m.err != nil:
		b.WriteString(errorBadge.Render(fmt.Sprintf("✗ %v", m.err)))
	default:
		b.WriteString(m.renderSummary())
	}
	b.WriteString("\n")

	help := "[q] quit"
	if m.phase == Running {
		help = "[q] cancel"
	}
	if len(m.failures) > m.visibleFailures() {
		help = "[↑/↓] scroll  " + help
	}
	b.WriteString(helpStyle.Render(help))

	return appStyle.Render(b.String())
}

func (m *Model) visibleFailures() int {
	h := m.height - 14
	if h < 3 {
		h = 3
	}
	return h
}

func (m *Model) renderFailures() string {
	if len(m.failures) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(errorBadge.Render(fmt.Sprintf("%d failed", len(m.failures))))
	b.WriteString("\n")

	visible := m.visibleFailures()
	start := m.scroll
	if start > len(m.failures)-visible {
		start = max(len(m.failures)-visible, 0)
	}
	for i := start; i < len(m.failures) && i < start+visible; i++ {
		f := m.failures[i]
		b.WriteString(failureStyle.Render("  ✗ "))
		b.WriteString(normalStyle.Render(truncate(f.Err.Error(), max(m.width-10, 40))))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderSummary() string {
	r := m.result
	if r == nil {
		return ""
	}
	line := fmt.Sprintf("✓ Extracted: %s", humanize.Bytes(uint64(r.TotalBytes)))
	counts := fmt.Sprintf("  %d files, %d directories", r.Files, r.Dirs)
	if r.Skipped > 0 {
		counts += fmt.Sprintf(", %d skipped", r.Skipped)
	}
	if len(r.Errors) > 0 {
		return errorBadge.Render(line) + dimStyle.Render(counts+fmt.Sprintf(", %d errors", len(r.Errors)))
	}
	return successBadge.Render(line) + dimStyle.Render(counts)
}

// Run extracts archivePath into destDir inside the interactive view and
// returns the fatal error, if any, once the user quits.
func Run(archivePath, destDir string, opts extract.Options) error {
	m := NewModel(extract.NewDefaultService(), archivePath, destDir, opts)

	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(*Model); ok && fm.err != nil {
		return fm.err
	}
	return nil
}

// Helper functions
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
