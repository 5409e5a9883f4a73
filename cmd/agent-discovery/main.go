package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/devPermutations/agent-discovery/pkg/agents"
	"github.com/devPermutations/agent-discovery/pkg/config"
	"github.com/devPermutations/agent-discovery/pkg/logger"
	"github.com/devPermutations/agent-discovery/pkg/presenter"
)

// cfg is loaded once per invocation before any command runs
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "agent-discovery",
	Short: "Register markdown agents for Cursor",
	Long: `agent-discovery scans the planning, development and root agent directories for
markdown agent definitions and writes their name, file and description to a
JSON file that Cursor reads.

Examples:
  agent-discovery
  agent-discovery --agents-dir docs/agents --output .cursor/agents.json
  agent-discovery list`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		if err := logger.Configure(loaded.LogLevel, loaded.LogFormat); err != nil {
			return err
		}
		presenter.SetQuiet(loaded.Quiet)
		cfg = loaded
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := runDiscovery(cmd.Context(), cfg, presenter.Default())
		return err
	},
}

// flagBinding ties a command-line flag to a viper key
type flagBinding struct {
	key  string
	flag string
}

func init() {
	defaults := config.Defaults()

	persistent := rootCmd.PersistentFlags()
	persistent.String("config", "", "Config file (default is ./agent-discovery.yaml or $HOME/.config/agent-discovery/agent-discovery.yaml)")
	persistent.String("repo-root", defaults.RepoRoot, "Repository root that agent file paths are reported against")
	persistent.String("agents-dir", defaults.AgentsDir, "Agents directory, relative to the repository root unless absolute")
	persistent.String("pattern", defaults.Pattern, "File name pattern selecting agent files")
	persistent.Bool("strict", defaults.Strict, "Fail when any agent file cannot be read")
	persistent.Bool("warn-duplicates", defaults.WarnDuplicates, "Warn when two agent files resolve to the same name")
	persistent.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	persistent.String("log-format", defaults.LogFormat, "Log format (fmt, json)")

	rootCmd.Flags().StringP("output", "o", defaults.Output, "Output file, relative to the repository root unless absolute")
	rootCmd.Flags().BoolP("quiet", "q", defaults.Quiet, "Do not print the discovery summary")

	bindFlags(persistent, []flagBinding{
		{"config", "config"},
		{config.KeyRepoRoot, "repo-root"},
		{config.KeyAgentsDir, "agents-dir"},
		{config.KeyPattern, "pattern"},
		{config.KeyStrict, "strict"},
		{config.KeyWarnDuplicates, "warn-duplicates"},
		{config.KeyLogLevel, "log-level"},
		{config.KeyLogFormat, "log-format"},
	})
	bindFlags(rootCmd.Flags(), []flagBinding{
		{config.KeyOutput, "output"},
		{config.KeyQuiet, "quiet"},
	})

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}

func bindFlags(flags *pflag.FlagSet, bindings []flagBinding) {
	for _, b := range bindings {
		if err := viper.BindPFlag(b.key, flags.Lookup(b.flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind %s flag: %v\n", b.flag, err)
		}
	}
}

func loadConfig(v *viper.Viper) (*config.Config, error) {
	if err := config.Setup(v, v.GetString("config")); err != nil {
		return nil, err
	}
	return config.Load(v)
}

// newDiscovery builds the scanner described by c
func newDiscovery(c *config.Config) (*agents.Discovery, error) {
	discovery, err := agents.NewDiscovery(c.DiscoveryOptions()...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to configure agent discovery")
	}
	return discovery, nil
}

// runDiscovery scans the agent directories, saves the registry and reports it
func runDiscovery(ctx context.Context, c *config.Config, p presenter.Presenter) (*agents.Registry, error) {
	discovery, err := newDiscovery(c)
	if err != nil {
		return nil, err
	}

	registry, err := discovery.Discover(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to discover agents")
	}

	outputPath, err := c.OutputPath()
	if err != nil {
		return nil, err
	}
	if err := registry.WriteFile(outputPath); err != nil {
		return nil, errors.Wrap(err, "failed to save agent configuration")
	}

	logger.G(ctx).WithFields(map[string]interface{}{
		"count":  registry.Len(),
		"output": outputPath,
	}).Debug("Saved agent configuration")

	p.AgentSummary(registry, outputPath)
	return registry, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		presenter.Error(err, "")
		os.Exit(1)
	}
}
