package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devPermutations/agent-discovery/pkg/config"
	"github.com/devPermutations/agent-discovery/pkg/presenter"
)

// setupRepo lays out a repository with agents in every scanned location
func setupRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"vcli/.agents/planning/architect.md":   "# Solution Architect Agent\nDesigns the system.\n",
		"vcli/.agents/development/reviewer.md": "# Reviewer Agent",
		"vcli/.agents/prompt-engineer.md":      "# Prompt Engineer Agent\nHelps craft precise prompts.\n",
		"vcli/.agents/notes.txt":               "ignored",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func testConfig(root string) *config.Config {
	c := config.Defaults()
	c.RepoRoot = root
	return &c
}

func TestRunDiscovery(t *testing.T) {
	root := setupRepo(t)
	var out bytes.Buffer
	p := presenter.NewWithOptions(&out, &out, presenter.ColorNever)

	registry, err := runDiscovery(context.Background(), testConfig(root), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"solution-architect", "reviewer", "prompt-engineer"}, registry.Names())

	outputPath := filepath.Join(root, ".cursor", "agents.json")
	content, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	var written map[string]map[string]string
	require.NoError(t, json.Unmarshal(content, &written))
	assert.Equal(t, map[string]string{
		"name":        "reviewer",
		"file":        "vcli/.agents/development/reviewer.md",
		"description": "Agent for reviewer functionality",
	}, written["reviewer"])
	assert.Equal(t, "vcli/.agents/prompt-engineer.md", written["prompt-engineer"]["file"])

	summary := out.String()
	assert.Contains(t, summary, "Discovered 3 agents:")
	assert.Contains(t, summary, "  @prompt-engineer - Helps craft precise prompts.\n")
	assert.Contains(t, summary, "  @reviewer - Agent for reviewer functionality\n")
	assert.Contains(t, summary, "Agent configuration saved to: "+outputPath)
	assert.Contains(t, summary, presenter.RestartReminder)
}

func TestRunDiscovery_Idempotent(t *testing.T) {
	root := setupRepo(t)
	p := presenter.NewWithOptions(&bytes.Buffer{}, &bytes.Buffer{}, presenter.ColorNever)
	outputPath := filepath.Join(root, ".cursor", "agents.json")

	_, err := runDiscovery(context.Background(), testConfig(root), p)
	require.NoError(t, err)
	first, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	_, err = runDiscovery(context.Background(), testConfig(root), p)
	require.NoError(t, err)
	second, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRunDiscovery_MissingAgentsDir(t *testing.T) {
	root := t.TempDir()
	var out bytes.Buffer
	p := presenter.NewWithOptions(&out, &out, presenter.ColorNever)

	_, err := runDiscovery(context.Background(), testConfig(root), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to discover agents")
	assert.Empty(t, out.String())

	_, statErr := os.Stat(filepath.Join(root, ".cursor", "agents.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunDiscovery_WriteFailure(t *testing.T) {
	root := setupRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".cursor"), []byte("file in the way"), 0o644))
	var out bytes.Buffer
	p := presenter.NewWithOptions(&out, &out, presenter.ColorNever)

	_, err := runDiscovery(context.Background(), testConfig(root), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save agent configuration")
	assert.Empty(t, out.String())
}

func TestRunDiscovery_InvalidPattern(t *testing.T) {
	c := testConfig(t.TempDir())
	c.Pattern = "[md"

	_, err := runDiscovery(context.Background(), c, presenter.NewWithOptions(&bytes.Buffer{}, &bytes.Buffer{}, presenter.ColorNever))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to configure agent discovery")
}

func TestListAgents(t *testing.T) {
	root := setupRepo(t)

	t.Run("table", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, listAgents(context.Background(), testConfig(root), NewListConfig(), &out))

		result := out.String()
		assert.Contains(t, result, "NAME")
		assert.Contains(t, result, "@solution-architect")
		assert.Contains(t, result, "vcli/.agents/planning/architect.md")
		assert.Contains(t, result, "Designs the system.")

		_, err := os.Stat(filepath.Join(root, ".cursor", "agents.json"))
		assert.True(t, os.IsNotExist(err), "list must not write the output file")
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, listAgents(context.Background(), testConfig(root), &ListConfig{JSON: true}, &out))

		var decoded map[string]map[string]string
		require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
		assert.Len(t, decoded, 3)
	})

	t.Run("empty", func(t *testing.T) {
		emptyRoot := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(emptyRoot, "vcli", ".agents"), 0o755))

		var out bytes.Buffer
		require.NoError(t, listAgents(context.Background(), testConfig(emptyRoot), NewListConfig(), &out))
		assert.Contains(t, out.String(), "No agents found")
	})
}

func TestGetListConfigFromFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected *ListConfig
	}{
		{"no flags", []string{}, &ListConfig{JSON: false}},
		{"json flag", []string{"--json"}, &ListConfig{JSON: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.Flags().Bool("json", false, "")
			require.NoError(t, cmd.ParseFlags(tt.args))

			assert.Equal(t, tt.expected, getListConfigFromFlags(cmd))
		})
	}
}

func TestPrintSchema(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printSchema(&out))

	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &schema))
	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema, "additionalProperties")
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent-discovery.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agents_dir: docs/agents\nquiet: true\n"), 0o644))

	v := viper.New()
	v.Set("config", path)

	loaded, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "docs/agents", loaded.AgentsDir)
	assert.True(t, loaded.Quiet)
	assert.Equal(t, ".cursor/agents.json", loaded.Output)
}

func TestRootCommand(t *testing.T) {
	root := setupRepo(t)
	output := filepath.Join(t.TempDir(), "agents.json")

	rootCmd.SetArgs([]string{"--repo-root", root, "--output", output, "--quiet"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"solution-architect": {`)
	assert.Equal(t, root, cfg.RepoRoot)
	assert.True(t, cfg.Quiet)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() { rootCmd.SetOut(nil) })

	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	var info map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "gitCommit")
}
