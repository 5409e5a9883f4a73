package agents

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/devPermutations/agent-discovery/pkg/logger"
)

const (
	// DefaultRepoRoot is the repository root agent file paths are reported against
	DefaultRepoRoot = "."
	// DefaultAgentsDir is the agents directory, relative to the repository root
	DefaultAgentsDir = "vcli/.agents"
	// DefaultPattern selects agent files within each scanned directory
	DefaultPattern = "*" + markdownExt
)

// optionalSubdirs are scanned before the agents directory itself, in this order.
// Later locations win when names collide.
var optionalSubdirs = []string{"planning", "development"}

// Discovery scans the agents directory and its optional subdirectories
type Discovery struct {
	repoRoot       string
	agentsDir      string
	pattern        string
	strict         bool
	warnDuplicates bool
}

// Option is a function that configures a Discovery
type Option func(*Discovery) error

// WithRepoRoot sets the repository root. Agent file paths are reported
// relative to it and a relative agents directory is resolved against it.
func WithRepoRoot(root string) Option {
	return func(d *Discovery) error {
		if root == "" {
			return errors.New("repository root must not be empty")
		}
		d.repoRoot = root
		return nil
	}
}

// WithAgentsDir sets the agents directory
func WithAgentsDir(dir string) Option {
	return func(d *Discovery) error {
		if dir == "" {
			return errors.New("agents directory must not be empty")
		}
		d.agentsDir = dir
		return nil
	}
}

// WithPattern sets the file name pattern agent files must match
func WithPattern(pattern string) Option {
	return func(d *Discovery) error {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("invalid agent file pattern '%s'", pattern)
		}
		d.pattern = pattern
		return nil
	}
}

// WithStrict makes Discover fail when any agent file cannot be read
func WithStrict(strict bool) Option {
	return func(d *Discovery) error {
		d.strict = strict
		return nil
	}
}

// WithWarnDuplicates logs name collisions as warnings instead of debug messages
func WithWarnDuplicates(warn bool) Option {
	return func(d *Discovery) error {
		d.warnDuplicates = warn
		return nil
	}
}

// NewDiscovery creates a discovery instance, applying opts over the defaults
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{
		repoRoot:  DefaultRepoRoot,
		agentsDir: DefaultAgentsDir,
		pattern:   DefaultPattern,
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, errors.Wrap(err, "failed to apply discovery option")
		}
	}

	return d, nil
}

// AgentsDir returns the agents directory with relative paths resolved against the repository root
func (d *Discovery) AgentsDir() string {
	if filepath.IsAbs(d.agentsDir) {
		return d.agentsDir
	}
	return filepath.Join(d.repoRoot, d.agentsDir)
}

// Discover builds a registry from the planning, development and root agent
// directories. The subdirectories are optional; the agents directory is not.
func (d *Discovery) Discover(ctx context.Context) (*Registry, error) {
	registry := NewRegistry()
	var failures *multierror.Error
	agentsDir := d.AgentsDir()

	for _, sub := range optionalSubdirs {
		dir := filepath.Join(agentsDir, sub)
		if _, err := os.Stat(dir); err != nil {
			logger.G(ctx).WithField("dir", dir).Debug("Agent subdirectory not found, skipping")
			continue
		}
		if err := d.scanDir(ctx, dir, registry, &failures); err != nil {
			return nil, err
		}
	}

	if err := d.scanDir(ctx, agentsDir, registry, &failures); err != nil {
		return nil, err
	}

	if d.strict {
		if err := failures.ErrorOrNil(); err != nil {
			return nil, errors.Wrap(err, "failed to read agent files")
		}
	}

	logger.G(ctx).WithField("count", registry.Len()).Debug("Discovered agents")
	return registry, nil
}

// scanDir reads every matching entry of dir into the registry.
// Unreadable files are logged and recorded in failures; listing errors are returned.
func (d *Discovery) scanDir(ctx context.Context, dir string, registry *Registry, failures **multierror.Error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "failed to list agent directory '%s'", dir)
	}

	for _, entry := range entries {
		matched, err := doublestar.Match(d.pattern, entry.Name())
		if err != nil {
			return errors.Wrapf(err, "failed to match agent file pattern '%s'", d.pattern)
		}
		if !matched {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		agent, err := ReadAgentFile(ctx, path, d.repoRoot)
		if err != nil {
			logger.G(ctx).WithField("path", path).WithError(err).Warn("Could not read agent file, skipping")
			*failures = multierror.Append(*failures, err)
			continue
		}

		d.register(ctx, registry, agent)
	}

	return nil
}

func (d *Discovery) register(ctx context.Context, registry *Registry, agent *Agent) {
	previous, replaced := registry.Add(agent)
	if !replaced {
		return
	}

	log := logger.G(ctx).WithFields(map[string]interface{}{
		"agent":    agent.Name,
		"file":     agent.File,
		"previous": previous.File,
	})
	if d.warnDuplicates {
		log.Warn("Duplicate agent name, later file overrides earlier one")
	} else {
		log.Debug("Duplicate agent name, later file overrides earlier one")
	}
}
