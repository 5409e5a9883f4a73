// Package config loads agent-discovery settings with viper.
//
// Configuration priority (highest to lowest):
//  1. Command-line flags
//  2. Environment variables (AGENT_DISCOVERY_ prefix, e.g. AGENT_DISCOVERY_AGENTS_DIR)
//  3. Config file (agent-discovery.yaml in . or $HOME/.config/agent-discovery)
//  4. Defaults
package config

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/devPermutations/agent-discovery/pkg/agents"
)

const (
	// EnvPrefix is the prefix of every environment variable read by agent-discovery
	EnvPrefix = "AGENT_DISCOVERY"
	// ConfigName is the config file name without extension
	ConfigName = "agent-discovery"
	// DefaultOutput is the output file, relative to the repository root
	DefaultOutput = ".cursor/agents.json"
)

// Keys of the settings understood by Load
const (
	KeyRepoRoot       = "repo_root"
	KeyAgentsDir      = "agents_dir"
	KeyOutput         = "output"
	KeyPattern        = "pattern"
	KeyStrict         = "strict"
	KeyWarnDuplicates = "warn_duplicates"
	KeyQuiet          = "quiet"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
)

// Config holds the settings of a discovery run
type Config struct {
	RepoRoot       string `mapstructure:"repo_root"`
	AgentsDir      string `mapstructure:"agents_dir"`
	Output         string `mapstructure:"output"`
	Pattern        string `mapstructure:"pattern"`
	Strict         bool   `mapstructure:"strict"`
	WarnDuplicates bool   `mapstructure:"warn_duplicates"`
	Quiet          bool   `mapstructure:"quiet"`
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
}

// Defaults returns the configuration used when nothing is overridden
func Defaults() Config {
	return Config{
		RepoRoot:  agents.DefaultRepoRoot,
		AgentsDir: agents.DefaultAgentsDir,
		Output:    DefaultOutput,
		Pattern:   agents.DefaultPattern,
		LogLevel:  "info",
		LogFormat: "fmt",
	}
}

// Setup registers defaults and environment handling on v and reads the
// config file. configFile overrides the search paths when set; a missing
// file in the search paths is not an error.
func Setup(v *viper.Viper, configFile string) error {
	d := Defaults()
	v.SetDefault(KeyRepoRoot, d.RepoRoot)
	v.SetDefault(KeyAgentsDir, d.AgentsDir)
	v.SetDefault(KeyOutput, d.Output)
	v.SetDefault(KeyPattern, d.Pattern)
	v.SetDefault(KeyStrict, d.Strict)
	v.SetDefault(KeyWarnDuplicates, d.WarnDuplicates)
	v.SetDefault(KeyQuiet, d.Quiet)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFormat, d.LogFormat)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/agent-discovery")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "failed to read config file")
	}
	return nil
}

// Load decodes the settings held by v and validates them
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings that can never produce a successful run
func (c *Config) Validate() error {
	if c.RepoRoot == "" {
		return errors.New("repo_root must not be empty")
	}
	if c.AgentsDir == "" {
		return errors.New("agents_dir must not be empty")
	}
	if c.Output == "" {
		return errors.New("output must not be empty")
	}
	switch c.LogFormat {
	case "fmt", "text", "json":
	default:
		return errors.Errorf("unsupported log_format '%s', must be one of: fmt, text, json", c.LogFormat)
	}
	return nil
}

// OutputPath returns the absolute output file path. A relative output is
// resolved against the repository root.
func (c *Config) OutputPath() (string, error) {
	path := c.Output
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.RepoRoot, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve output path '%s'", path)
	}
	return abs, nil
}

// DiscoveryOptions converts the configuration into discovery options
func (c *Config) DiscoveryOptions() []agents.Option {
	return []agents.Option{
		agents.WithRepoRoot(c.RepoRoot),
		agents.WithAgentsDir(c.AgentsDir),
		agents.WithPattern(c.Pattern),
		agents.WithStrict(c.Strict),
		agents.WithWarnDuplicates(c.WarnDuplicates),
	}
}
