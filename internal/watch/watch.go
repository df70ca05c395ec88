// Package watch analyzes files as they appear in a directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Defaults for Config.
const (
	DefaultPattern = "*.txt"
	DefaultSuffix  = ".out"
	DefaultSettle  = 200 * time.Millisecond
)

// FileAnalyzer analyzes one file into another.
type FileAnalyzer interface {
	AnalyzeFile(ctx context.Context, inputPath, outputPath string) error
}

// Config configures a Watcher.
type Config struct {
	// InputDir is the watched directory. Subdirectories are not watched.
	InputDir string
	// OutputDir receives the results. Defaults to InputDir.
	OutputDir string
	// Pattern filters input base names (filepath.Match syntax).
	Pattern string
	// Suffix is appended to the input base name to form the output name.
	Suffix string
	// Settle is how long a file must stay unchanged before it is analyzed.
	Settle time.Duration
	// ProcessExisting analyzes matching files already present at startup.
	ProcessExisting bool
	// OnResult, if set, is called after every analysis.
	OnResult func(Result)
	Logger   *slog.Logger
}

// Result reports one analyzed file.
type Result struct {
	Input  string
	Output string
	Err    error
}

// Watcher feeds new or rewritten files of a directory to a FileAnalyzer.
type Watcher struct {
	cfg      Config
	analyzer FileAnalyzer
	log      *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
	done    chan struct{}
}

// New validates cfg and returns a Watcher. Nothing is watched until Run.
func New(cfg Config, analyzer FileAnalyzer) (*Watcher, error) {
	if cfg.InputDir == "" {
		return nil, fmt.Errorf("watch: input directory is required")
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = cfg.InputDir
	}

	if cfg.Pattern == "" {
		cfg.Pattern = DefaultPattern
	}

	if _, err := filepath.Match(cfg.Pattern, ""); err != nil {
		return nil, fmt.Errorf("watch: pattern %q: %w", cfg.Pattern, err)
	}

	if cfg.Suffix == "" {
		cfg.Suffix = DefaultSuffix
	}

	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Watcher{
		cfg:      cfg,
		analyzer: analyzer,
		log:      log.With("component", "watch"),
		pending:  make(map[string]*time.Timer),
		ready:    make(chan string, 64),
		done:     make(chan struct{}),
	}, nil
}

// OutputPath returns where the analysis of input is written.
func (w *Watcher) OutputPath(input string) string {
	return filepath.Join(w.cfg.OutputDir, filepath.Base(input)+w.cfg.Suffix)
}

// Run watches the input directory until ctx is done. A Watcher runs once.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("watch: create output directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.cfg.InputDir); err != nil {
		return fmt.Errorf("watch: add %s: %w", w.cfg.InputDir, err)
	}

	defer func() {
		close(w.done)
		w.stopTimers()
	}()

	w.log.Info("Watching directory", "dir", w.cfg.InputDir, "pattern", w.cfg.Pattern)

	if w.cfg.ProcessExisting {
		if err := w.scanExisting(); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			w.handleEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			w.log.Warn("Watcher error", "error", err)

		case path := <-w.ready:
			w.analyze(ctx, path)
		}
	}
}

func (w *Watcher) scanExisting() error {
	entries, err := os.ReadDir(w.cfg.InputDir)
	if err != nil {
		return fmt.Errorf("watch: read %s: %w", w.cfg.InputDir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(w.cfg.InputDir, entry.Name())
		if !entry.IsDir() && w.matches(path) {
			w.schedule(path)
		}
	}

	return nil
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	if !w.matches(event.Name) {
		return
	}

	w.schedule(event.Name)
}

// matches reports whether path is an input file and not one of our outputs.
func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)

	if strings.HasSuffix(base, w.cfg.Suffix) {
		return false
	}

	ok, _ := filepath.Match(w.cfg.Pattern, base)

	return ok
}

// schedule (re)starts the settle timer of path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.scheduleLocked(path)
}

// scheduleLocked requires w.mu. A timer that already fired is replaced,
// never re-armed, so each timer delivers its path at most once.
func (w *Watcher) scheduleLocked(path string) {
	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.cfg.Settle)

		return
	}

	var t *time.Timer

	t = time.AfterFunc(w.cfg.Settle, func() {
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-w.done:
		}
	})

	w.pending[path] = t
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) analyze(ctx context.Context, input string) {
	if info, err := os.Stat(input); err != nil || info.IsDir() {
		return
	}

	output := w.OutputPath(input)
	err := w.analyzer.AnalyzeFile(ctx, input, output)

	if err != nil {
		w.log.Error("Analysis failed", "input", input, "error", err)
	} else {
		w.log.Info("Analyzed file", "input", input, "output", output)
	}

	if w.cfg.OnResult != nil {
		w.cfg.OnResult(Result{Input: input, Output: output, Err: err})
	}
}
