package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/devPermutations/agent-discovery/pkg/agents"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the agents file",
	Long:  `Print the JSON Schema describing the file written by agent-discovery, for editors and validators.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printSchema(cmd.OutOrStdout())
	},
}

func printSchema(w io.Writer) error {
	out, err := json.MarshalIndent(agents.GenerateSchema(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode schema")
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
