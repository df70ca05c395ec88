package server

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/wagiedev/analyzer-client-go/internal/errors"
)

// BinaryNames are the executable names searched for in PATH, in order.
var BinaryNames = []string{"analyzer_server", "analyze"}

// Config holds configuration for server binary discovery.
type Config struct {
	// ServerPath is an explicit binary path that skips PATH search.
	ServerPath string

	// Logger is an optional logger for discovery operations.
	// If nil, nothing is logged.
	Logger *slog.Logger
}

// Discoverer locates the analysis server binary.
type Discoverer interface {
	// Discover returns the path of the server binary or a
	// *errors.ServerNotFoundError listing every place searched.
	Discover(ctx context.Context) (string, error)
}

type discoverer struct {
	cfg *Config
	log *slog.Logger
}

var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new server discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &discoverer{
		cfg: cfg,
		log: log.With("component", "discovery"),
	}
}

// Discover locates the server binary.
func (d *discoverer) Discover(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if d.cfg.ServerPath != "" {
		return d.explicit(d.cfg.ServerPath)
	}

	searched := make([]string, 0, len(BinaryNames)+4)

	for _, name := range BinaryNames {
		if path, err := exec.LookPath(name); err == nil {
			d.log.Debug("Found server binary in PATH", "path", path)

			return path, nil
		}

		searched = append(searched, "$PATH/"+name)
	}

	for _, path := range commonPaths() {
		searched = append(searched, path)

		if isExecutable(path) {
			d.log.Debug("Found server binary at common path", "path", path)

			return path, nil
		}
	}

	d.log.Warn("Analysis server binary not found", "searched_paths", searched)

	return "", &errors.ServerNotFoundError{SearchedPaths: searched}
}

// explicit accepts a configured path as-is, or resolves a bare name through PATH.
func (d *discoverer) explicit(path string) (string, error) {
	d.log.Debug("Using explicit server path", "path", path)

	if filepath.Base(path) == path {
		if resolved, err := exec.LookPath(path); err == nil {
			return resolved, nil
		}
	}

	if isExecutable(path) {
		return path, nil
	}

	return "", &errors.ServerNotFoundError{SearchedPaths: []string{path}}
}

func commonPaths() []string {
	var paths []string

	for _, dir := range []string{"/usr/local/bin", "/usr/bin", "/opt/freeling/bin"} {
		for _, name := range BinaryNames {
			paths = append(paths, filepath.Join(dir, name))
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".local/bin", BinaryNames[0]))
	}

	return paths
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	return info.Mode()&0o111 != 0
}
