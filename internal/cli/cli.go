// Package cli provides the command-line interface with injectable io.Writer for testing.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/sahilm/fuzzy"

	"github.com/mcdonaldj/unpack/internal/adapters/autoarchive"
	"github.com/mcdonaldj/unpack/internal/adapters/barprogress"
	"github.com/mcdonaldj/unpack/internal/config"
	"github.com/mcdonaldj/unpack/internal/extract"
	"github.com/mcdonaldj/unpack/internal/ports"
	"github.com/mcdonaldj/unpack/internal/preview"
)

// ConfigService provides configuration operations for the CLI.
type ConfigService interface {
	Load() (*config.Config, error)
	Save(cfg *config.Config) error
	ConfigPath() (string, error)
	DefaultConfig() *config.Config
}

// ExtractService provides extraction for the CLI.
type ExtractService interface {
	ExtractFile(ctx context.Context, archivePath, rootDir string, opts extract.Options) (*extract.Result, error)
}

// PreviewService provides dry-run operations for the CLI.
type PreviewService interface {
	Plan(archive ports.Archive, rootDir string) ([]preview.PlanItem, error)
	FileDiff(archive ports.Archive, rootDir, name string) (*preview.FileDiff, error)
}

// UIRunner runs the interactive extraction view.
type UIRunner func(archivePath, destDir string, opts extract.Options) error

// CLI represents the command-line interface with injectable dependencies.
type CLI struct {
	Out     io.Writer // Standard output
	Err     io.Writer // Standard error, also carries the progress bar
	Version string    // Application version
	Args    []string  // Command arguments (like os.Args)

	// Exit function for testability (defaults to os.Exit)
	Exit func(code int)

	// Injectable dependencies (nil means use defaults)
	ConfigSvc  ConfigService
	ExtractSvc ExtractService
	Reader     ports.ArchiveReader
	PreviewSvc PreviewService
	RunUI      UIRunner

	// Color functions (can be disabled for testing)
	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
	gray   func(a ...interface{}) string
	red    func(a ...interface{}) string
}

// New creates a new CLI with default settings.
func New(version string) *CLI {
	return &CLI{
		Out:     os.Stdout,
		Err:     os.Stderr,
		Version: version,
		Args:    os.Args,
		Exit:    os.Exit,
		green:   color.New(color.FgGreen, color.Bold).SprintFunc(),
		yellow:  color.New(color.FgYellow).SprintFunc(),
		cyan:    color.New(color.FgCyan).SprintFunc(),
		gray:    color.New(color.FgHiBlack).SprintFunc(),
		red:     color.New(color.FgRed).SprintFunc(),
	}
}

// NewForTesting creates a CLI configured for testing (no colors, captured output).
func NewForTesting(out, errOut io.Writer, args []string) *CLI {
	noColor := func(a ...interface{}) string { return fmt.Sprint(a...) }
	return &CLI{
		Out:     out,
		Err:     errOut,
		Version: "test",
		Args:    args,
		Exit:    func(code int) {},
		green:   noColor,
		yellow:  noColor,
		cyan:    noColor,
		gray:    noColor,
		red:     noColor,
	}
}

// defaultConfigService wraps the config package functions.
type defaultConfigService struct{}

func (d *defaultConfigService) Load() (*config.Config, error) { return config.Load() }
func (d *defaultConfigService) Save(cfg *config.Config) error { return cfg.Save() }
func (d *defaultConfigService) ConfigPath() (string, error)   { return config.ConfigPath() }
func (d *defaultConfigService) DefaultConfig() *config.Config { return config.DefaultConfig() }

// Helper methods to get the service or default
func (c *CLI) configSvc() ConfigService {
	if c.ConfigSvc != nil {
		return c.ConfigSvc
	}
	return &defaultConfigService{}
}

func (c *CLI) extractSvc() ExtractService {
	if c.ExtractSvc != nil {
		return c.ExtractSvc
	}
	return extract.NewDefaultService()
}

func (c *CLI) reader() ports.ArchiveReader {
	if c.Reader != nil {
		return c.Reader
	}
	return autoarchive.New()
}

func (c *CLI) previewSvc() PreviewService {
	if c.PreviewSvc != nil {
		return c.PreviewSvc
	}
	return preview.NewDefaultPlanner()
}

// Run executes the CLI with the configured arguments.
func (c *CLI) Run() {
	if len(c.Args) < 2 {
		c.PrintUsage()
		c.Exit(1)
		return
	}

	switch c.Args[1] {
	case "extract", "x":
		c.RunExtract()
	case "list", "ls":
		c.ListEntries()
	case "plan":
		c.RunPlan()
	case "diff":
		c.RunDiff()
	case "ui", "tui":
		c.RunInteractive()
	case "init":
		c.InitConfig()
	case "version", "-v", "--version":
		fmt.Fprintf(c.Out, "unpack v%s\n", c.Version)
	case "help", "-h", "--help":
		c.PrintUsage()
	default:
		// unpack <archive> <dest>
		if len(c.Args) == 3 && !strings.HasPrefix(c.Args[1], "-") {
			c.extract(c.Args[1], c.Args[2])
			return
		}
		fmt.Fprintf(c.Err, "Unknown command: %s\n", c.Args[1])
		c.PrintUsage()
		c.Exit(1)
	}
}

// PrintUsage prints the help message.
func (c *CLI) PrintUsage() {
	fmt.Fprintln(c.Out, `unpack - Archive Extraction Tool

Usage:
  unpack <archive> <dest>                  Extract archive into dest
  unpack extract <archive> [dest]          Extract archive (dest defaults to config dest_dir)
  unpack list <archive> [query]            List entries, fuzzy filtered by query
  unpack plan <archive> <dest>             Show what extraction would do, without writing
  unpack diff <archive> <dest> <entry>     Show how an entry would change the file on disk
  unpack ui <archive> [dest]               Extract with the interactive progress view
  unpack init                              Create default config file
  unpack version, -v                       Show version
  unpack help, -h                          Show this help

Formats: zip (store, deflate, zstd, xz), 7z
Config: ~/.unpack/config.yaml (override with UNPACK_CONFIG)`)
}

// loadConfig loads the config and applies its color setting.
func (c *CLI) loadConfig() (*config.Config, bool) {
	cfg, err := c.configSvc().Load()
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return nil, false
	}
	if !cfg.Color {
		color.NoColor = true
	}
	return cfg, true
}

// destination returns the explicit destination or the configured default.
func (c *CLI) destination(cfg *config.Config, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return config.ExpandPath(cfg.DestDir)
}

func options(cfg *config.Config, progress ports.ProgressReporter) extract.Options {
	return extract.Options{
		Progress:      progress,
		ProgressEvery: cfg.ProgressEvery,
		MaxEntrySize:  cfg.MaxEntrySize,
	}
}

// InitConfig creates the default config file.
func (c *CLI) InitConfig() {
	svc := c.configSvc()
	if err := svc.Save(svc.DefaultConfig()); err != nil {
		fmt.Fprintf(c.Err, "Error saving config: %v\n", err)
		c.Exit(1)
		return
	}
	path, err := svc.ConfigPath()
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	fmt.Fprintf(c.Out, "Created config at %s\n", path)
}

// RunExtract runs the extract command.
func (c *CLI) RunExtract() {
	if len(c.Args) < 3 {
		fmt.Fprintln(c.Out, "Usage: unpack extract <archive> [dest]")
		c.Exit(1)
		return
	}
	dest := ""
	if len(c.Args) > 3 {
		dest = c.Args[3]
	}
	c.extract(c.Args[2], dest)
}

func (c *CLI) extract(archivePath, destArg string) {
	cfg, ok := c.loadConfig()
	if !ok {
		return
	}
	dest, err := c.destination(cfg, destArg)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(c.Out, "%s Extracting %s to %s\n", c.cyan("=>"), archivePath, dest)

	reporter := barprogress.New(c.Err, c.red("x"))
	res, err := c.extractSvc().ExtractFile(ctx, archivePath, dest, options(cfg, reporter))
	reporter.Finish()
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	c.printSummary(res)
}

// printSummary prints the terminal summary. It is printed even when every
// entry failed; per-entry failures do not change the exit status.
func (c *CLI) printSummary(res *extract.Result) {
	fmt.Fprintf(c.Out, "%s Extracted: %s\n", c.green("*"), humanize.Bytes(uint64(res.TotalBytes)))
	fmt.Fprintf(c.Out, "  %d files, %d directories",
		res.Files, res.Dirs)
	if res.Skipped > 0 {
		fmt.Fprintf(c.Out, ", %s", c.gray(fmt.Sprintf("%d skipped", res.Skipped)))
	}
	if len(res.Errors) > 0 {
		fmt.Fprintf(c.Out, ", %s", c.red(fmt.Sprintf("%d errors", len(res.Errors))))
	}
	fmt.Fprintln(c.Out)
}

// ListEntries lists the entries of an archive.
func (c *CLI) ListEntries() {
	if len(c.Args) < 3 {
		fmt.Fprintln(c.Out, "Usage: unpack list <archive> [query]")
		c.Exit(1)
		return
	}

	archive, err := c.reader().Open(c.Args[2])
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	defer func() { _ = archive.Close() }()

	entries := make([]ports.Entry, 0, archive.Len())
	names := make([]string, 0, archive.Len())
	for i := 0; i < archive.Len(); i++ {
		e, err := archive.EntryAt(i)
		if err != nil {
			fmt.Fprintf(c.Err, "Error: %v\n", err)
			c.Exit(1)
			return
		}
		entries = append(entries, e)
		names = append(names, e.Name())
	}

	if len(c.Args) < 4 {
		var total uint64
		for _, e := range entries {
			c.printEntry(e, e.Name())
			total += e.Size()
		}
		fmt.Fprintf(c.Out, "\n%d entries, %s uncompressed\n", len(entries), humanize.Bytes(total))
		return
	}

	matches := fuzzy.Find(c.Args[3], names)
	for _, m := range matches {
		c.printEntry(entries[m.Index], c.highlight(m))
	}
	fmt.Fprintf(c.Out, "\n%d of %d entries match %q\n", len(matches), len(entries), c.Args[3])
}

func (c *CLI) printEntry(e ports.Entry, display string) {
	size := c.gray("-")
	if !e.IsDir() {
		size = humanize.Bytes(e.Size())
	}
	fmt.Fprintf(c.Out, "  %10s  %s\n", size, display)
}

// highlight renders the matched characters of a fuzzy match.
func (c *CLI) highlight(m fuzzy.Match) string {
	matched := make(map[int]bool, len(m.MatchedIndexes))
	for _, i := range m.MatchedIndexes {
		matched[i] = true
	}
	var b strings.Builder
	for i, r := range m.Str {
		if matched[i] {
			b.WriteString(c.cyan(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RunPlan prints what extraction would do without writing anything.
func (c *CLI) RunPlan() {
	if len(c.Args) < 4 {
		fmt.Fprintln(c.Out, "Usage: unpack plan <archive> <dest>")
		c.Exit(1)
		return
	}

	archive, err := c.reader().Open(c.Args[2])
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	defer func() { _ = archive.Close() }()

	items, err := c.previewSvc().Plan(archive, c.Args[3])
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	for _, it := range items {
		fmt.Fprintf(c.Out, "  %s %s\n", c.actionLabel(it.Action), it.Name)
	}

	s := preview.Summarize(items)
	fmt.Fprintf(c.Out, "\n%d new, %d overwrite, %d mkdir",
		s[preview.ActionNew], s[preview.ActionOverwrite], s[preview.ActionCreateDir])
	if n := s[preview.ActionSkip]; n > 0 {
		fmt.Fprintf(c.Out, ", %s", c.gray(fmt.Sprintf("%d skipped", n)))
	}
	if n := s[preview.ActionBlocked] + s[preview.ActionReject]; n > 0 {
		fmt.Fprintf(c.Out, ", %s", c.red(fmt.Sprintf("%d would fail", n)))
	}
	fmt.Fprintln(c.Out)
}

func (c *CLI) actionLabel(a preview.Action) string {
	label := fmt.Sprintf("%-9s", a)
	switch a {
	case preview.ActionNew, preview.ActionCreateDir:
		return c.green(label)
	case preview.ActionOverwrite:
		return c.yellow(label)
	case preview.ActionBlocked, preview.ActionReject:
		return c.red(label)
	default:
		return c.gray(label)
	}
}

// RunDiff shows the line diff between an archived entry and its destination.
func (c *CLI) RunDiff() {
	if len(c.Args) < 5 {
		fmt.Fprintln(c.Out, "Usage: unpack diff <archive> <dest> <entry>")
		c.Exit(1)
		return
	}

	archive, err := c.reader().Open(c.Args[2])
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	defer func() { _ = archive.Close() }()

	d, err := c.previewSvc().FileDiff(archive, c.Args[3], c.Args[4])
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	fmt.Fprintf(c.Out, "--- %s\n", d.Dest)
	fmt.Fprintf(c.Out, "+++ %s:%s\n", c.Args[2], d.Name)
	switch {
	case d.IsBinary:
		fmt.Fprintln(c.Out, "Binary files differ")
		return
	case !d.Changed():
		fmt.Fprintln(c.Out, c.gray("No changes"))
		return
	}

	for _, l := range d.Lines {
		switch l.Type {
		case '+':
			fmt.Fprintln(c.Out, c.green("+"+l.Content))
		case '-':
			fmt.Fprintln(c.Out, c.red("-"+l.Content))
		default:
			fmt.Fprintln(c.Out, " "+l.Content)
		}
	}
	fmt.Fprintf(c.Out, "\n%d added, %d deleted\n", d.Added, d.Deleted)
}

// RunInteractive extracts with the interactive progress view.
func (c *CLI) RunInteractive() {
	if len(c.Args) < 3 {
		fmt.Fprintln(c.Out, "Usage: unpack ui <archive> [dest]")
		c.Exit(1)
		return
	}
	if c.RunUI == nil {
		fmt.Fprintln(c.Err, "Interactive mode is not available")
		c.Exit(1)
		return
	}

	cfg, ok := c.loadConfig()
	if !ok {
		return
	}
	destArg := ""
	if len(c.Args) > 3 {
		destArg = c.Args[3]
	}
	dest, err := c.destination(cfg, destArg)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	if err := c.RunUI(c.Args[2], dest, options(cfg, nil)); err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
	}
}
