// Package virtdoc implements the virtdoc command: it loads a directory of
// markdown files, tracks their fenced code blocks as embedded documents,
// and reports the tracked set and its changes.
package virtdoc

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pmezard/go-difflib/difflib"
	"go.lsp.dev/uri"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/albertocavalcante/virtdoc/internal/vdconfig"
	"github.com/albertocavalcante/virtdoc/internal/version"
	"github.com/albertocavalcante/virtdoc/pkg/docevent"
	"github.com/albertocavalcante/virtdoc/pkg/mdhost"
	"github.com/albertocavalcante/virtdoc/pkg/registry"
	"github.com/albertocavalcante/virtdoc/pkg/watch"
)

// Exit codes
const (
	exitOK    = 0
	exitError = 1
)

// Run executes virtdoc with the given arguments.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunWithIO(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

// RunWithIO allows custom IO for testing.
func RunWithIO(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var (
		versionFlag bool
		verboseFlag bool
		watchFlag   bool
		dirFlag     string
		langFlag    string
		configFlag  string
		mapFlag     string
	)

	fs := flag.NewFlagSet("virtdoc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")
	fs.BoolVar(&verboseFlag, "v", false, "verbose logging to stderr")
	fs.BoolVar(&watchFlag, "watch", false, "keep running and resync on file changes")
	fs.StringVar(&dirFlag, "dir", ".", "directory of markdown files to scan")
	fs.StringVar(&langFlag, "lang", "", "comma-separated language IDs to track (overrides config)")
	fs.StringVar(&configFlag, "config", "", "path to virtdoc.toml (overrides discovery)")
	fs.StringVar(&mapFlag, "map", "", "map a source offset, as FILE.md:OFFSET")

	fs.Usage = func() {
		writeln(stderr, "Usage: virtdoc [flags]")
		writeln(stderr)
		writeln(stderr, "Tracks fenced code blocks in markdown files as embedded documents")
		writeln(stderr, "and maps positions between a block and its host file.")
		writeln(stderr)
		writeln(stderr, "Flags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		return exitError
	}

	if versionFlag {
		writef(stdout, "virtdoc %s\n", version.String())
		return exitOK
	}

	cfg, cfgPath, err := loadConfig(configFlag, dirFlag)
	if err != nil {
		writef(stderr, "virtdoc: %v\n", err)
		return exitError
	}
	if langFlag != "" {
		cfg.Languages = splitLangs(langFlag)
	}
	if verboseFlag {
		cfg.Verbose = true
	}
	if watchFlag {
		cfg.Watch = true
	}

	logger := zap.NewNop()
	if cfg.Verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
			defer func() { _ = logger.Sync() }()
		}
	}
	if cfgPath != "" {
		logger.Debug("loaded config", zap.String("path", cfgPath))
	}

	workspace := mdhost.NewWorkspace(mdhost.WithLogger(logger))
	reg, err := registry.New(workspace, registry.Languages(cfg.Languages...), registry.WithLogger(logger))
	if err != nil {
		writef(stderr, "virtdoc: %v\n", err)
		return exitError
	}

	out := newPrinter(stdout)
	texts := make(map[uri.URI]string)
	sub := reg.Subscribe(func(e docevent.Event) {
		switch e.Kind {
		case docevent.Created:
			out.event(e.Kind, string(e.URI))
			texts[e.URI] = e.Document.Text
		case docevent.Changed:
			prev := texts[e.URI]
			if prev != e.Document.Text {
				out.event(e.Kind, string(e.URI))
				out.diff(string(e.URI), prev, e.Document.Text)
			}
			texts[e.URI] = e.Document.Text
		case docevent.Deleted:
			out.event(e.Kind, string(e.URI))
			delete(texts, e.URI)
		}
	})
	defer sub.Close()

	count, err := workspace.LoadDir(dirFlag, cfg.Include...)
	if err != nil {
		writef(stderr, "virtdoc: %v\n", err)
		return exitError
	}
	reg.Sync()

	writef(stdout, "loaded %d markdown files, tracking %d embedded documents\n", count, len(reg.All()))
	for _, doc := range reg.All() {
		writef(stdout, "  %s (%s, v%d, %d bytes)\n", doc.URI, doc.LanguageID, doc.Version, len(doc.Text))
	}

	if mapFlag != "" {
		if err := runMap(reg, mapFlag, stdout); err != nil {
			writef(stderr, "virtdoc: %v\n", err)
			return exitError
		}
	}

	if !cfg.Watch {
		return exitOK
	}

	if err := runWatch(ctx, workspace, reg, dirFlag, cfg.Include, logger, stderr); err != nil {
		writef(stderr, "virtdoc: %v\n", err)
		return exitError
	}
	return exitOK
}

// runMap resolves FILE.md:OFFSET against the tracked set and prints the
// generated offset in the embedded document containing it, if any.
func runMap(reg *registry.Registry, arg string, stdout io.Writer) error {
	idx := strings.LastIndex(arg, ":")
	if idx < 0 {
		return fmt.Errorf("invalid -map argument %q (want FILE.md:OFFSET)", arg)
	}
	path := arg[:idx]
	offset, err := strconv.Atoi(arg[idx+1:])
	if err != nil {
		return fmt.Errorf("invalid -map offset %q: %w", arg[idx+1:], err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	prefix := string(uri.File(abs)) + "#"
	for _, doc := range reg.All() {
		if !strings.HasPrefix(string(doc.URI), prefix) {
			continue
		}
		m, ok := reg.MapperFor(doc.URI)
		if !ok {
			continue
		}
		if gen, ok := m.ToGeneratedOffset(offset); ok {
			writef(stdout, "%s:%d -> %s:%d\n", path, offset, doc.URI, gen)
			return nil
		}
	}
	writef(stdout, "%s:%d has no mapping (gap between embedded documents)\n", path, offset)
	return nil
}

// runWatch resyncs the registry whenever a markdown file under dir is
// created, written, or removed, until the context is cancelled. Include
// patterns restrict the watched files the same way they restrict the
// initial load.
func runWatch(ctx context.Context, workspace *mdhost.Workspace, reg *registry.Registry, dir string, include []string, logger *zap.Logger, stderr io.Writer) error {
	src, err := watch.NewSource(
		watch.WithLogger(logger),
		watch.WithFilter(func(path string) bool {
			return strings.EqualFold(filepath.Ext(path), ".md") &&
				mdhost.MatchInclude(dir, include, path)
		}),
	)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	if err := src.Add(dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case e := <-src.Events():
			applyFileEvent(workspace, e)
			reg.Sync()

		case err := <-src.Errors():
			writef(stderr, "virtdoc: watch: %v\n", err)
		}
	}
}

// applyFileEvent mirrors a disk change into the workspace.
func applyFileEvent(workspace *mdhost.Workspace, e docevent.Event) {
	switch e.Kind {
	case docevent.Created, docevent.Changed:
		data, err := os.ReadFile(e.URI.Filename())
		if err != nil {
			// Raced with a delete; the remove event will follow.
			return
		}
		if !workspace.Update(e.URI, string(data)) {
			workspace.Open(e.URI, string(data))
		}
	case docevent.Deleted:
		workspace.Close(e.URI)
	}
}

func loadConfig(configFlag, dir string) (*vdconfig.Config, string, error) {
	if configFlag != "" {
		cfg, err := vdconfig.Load(configFlag)
		return cfg, configFlag, err
	}
	return vdconfig.Discover(dir)
}

func splitLangs(s string) []string {
	var langs []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}

// printer decorates event output with ANSI colors when stdout is a
// terminal.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer) *printer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &printer{w: w, color: color}
}

var kindColors = map[docevent.Kind]string{
	docevent.Created: "\033[32m", // green
	docevent.Changed: "\033[33m", // yellow
	docevent.Deleted: "\033[31m", // red
}

func (p *printer) event(kind docevent.Kind, target string) {
	if p.color {
		writef(p.w, "%s%-7s\033[0m %s\n", kindColors[kind], kind, target)
		return
	}
	writef(p.w, "%-7s %s\n", kind, target)
}

func (p *printer) diff(name, old, new string) {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(old),
		B:        difflib.SplitLines(new),
		FromFile: name + " (old)",
		ToFile:   name + " (new)",
		Context:  2,
	})
	if err != nil || text == "" {
		return
	}
	writef(p.w, "%s", text)
}

func writef(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

func writeln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}
