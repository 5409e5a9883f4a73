package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/devPermutations/agent-discovery/pkg/config"
)

// ListConfig holds the options of the list command
type ListConfig struct {
	JSON bool
}

// NewListConfig returns the list options with default values
func NewListConfig() *ListConfig {
	return &ListConfig{
		JSON: false,
	}
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered agents without writing the output file",
	Long: `List the agents that a discovery run would register, in registry order.
Nothing is written to disk.

Examples:
  agent-discovery list
  agent-discovery list --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return listAgents(cmd.Context(), cfg, getListConfigFromFlags(cmd), cmd.OutOrStdout())
	},
}

func init() {
	defaults := NewListConfig()
	listCmd.Flags().Bool("json", defaults.JSON, "Print the registry as it would be written to the output file")
}

func getListConfigFromFlags(cmd *cobra.Command) *ListConfig {
	listConfig := NewListConfig()
	if asJSON, err := cmd.Flags().GetBool("json"); err == nil {
		listConfig.JSON = asJSON
	}
	return listConfig
}

func listAgents(ctx context.Context, c *config.Config, listConfig *ListConfig, w io.Writer) error {
	discovery, err := newDiscovery(c)
	if err != nil {
		return err
	}

	registry, err := discovery.Discover(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to discover agents")
	}

	if listConfig.JSON {
		out, err := registry.Render()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}

	if registry.Len() == 0 {
		_, err := fmt.Fprintf(w, "No agents found in %s\n", discovery.AgentsDir())
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFILE\tDESCRIPTION")
	for _, agent := range registry.Agents() {
		fmt.Fprintf(tw, "@%s\t%s\t%s\n", agent.Name, agent.File, agent.Description)
	}
	return tw.Flush()
}
