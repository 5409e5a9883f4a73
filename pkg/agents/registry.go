package agents

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	outputIndent   = "  "
	outputFileMode = 0o644
)

// Registry maps agent names to agents in first-insertion order.
// Re-adding a name replaces the agent but keeps its first position.
// Integer-like names are ordered like any other name.
type Registry struct {
	agents *orderedmap.OrderedMap[string, *Agent]
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		agents: orderedmap.New[string, *Agent](),
	}
}

// Add stores the agent under its name and returns the agent it replaced, if any
func (r *Registry) Add(agent *Agent) (*Agent, bool) {
	return r.agents.Set(agent.Name, agent)
}

// Get returns the agent registered under name
func (r *Registry) Get(name string) (*Agent, bool) {
	return r.agents.Get(name)
}

// Len returns the number of registered agents
func (r *Registry) Len() int {
	return r.agents.Len()
}

// Names returns the registered names in registry order
func (r *Registry) Names() []string {
	names := make([]string, 0, r.agents.Len())
	for pair := r.agents.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Agents returns the registered agents in registry order
func (r *Registry) Agents() []*Agent {
	agents := make([]*Agent, 0, r.agents.Len())
	for pair := r.agents.Oldest(); pair != nil; pair = pair.Next() {
		agents = append(agents, pair.Value)
	}
	return agents
}

// MarshalJSON encodes the registry as a compact JSON object keyed by agent name
func (r *Registry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for pair := r.agents.Oldest(); pair != nil; pair = pair.Next() {
		if pair != r.agents.Oldest() {
			buf.WriteByte(',')
		}

		key, err := marshalUnescaped(pair.Key)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode agent name '%s'", pair.Key)
		}
		value, err := marshalUnescaped(pair.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode agent '%s'", pair.Key)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Render returns the registry as indented JSON without a trailing newline.
// The output depends only on the registry contents and order.
func (r *Registry) Render() ([]byte, error) {
	compact, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", outputIndent); err != nil {
		return nil, errors.Wrap(err, "failed to indent agent registry")
	}
	return out.Bytes(), nil
}

// WriteFile atomically replaces path with the rendered registry
func (r *Registry) WriteFile(path string) error {
	payload, err := r.Render()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create output directory '%s'", dir)
	}

	tempFile, err := os.CreateTemp(dir, ".agents-*.json")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary output file")
	}
	tempName := tempFile.Name()
	defer os.Remove(tempName)

	if _, err := tempFile.Write(payload); err != nil {
		_ = tempFile.Close()
		return errors.Wrap(err, "failed to write agent registry")
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return errors.Wrap(err, "failed to sync agent registry")
	}
	if err := tempFile.Close(); err != nil {
		return errors.Wrap(err, "failed to close agent registry")
	}
	if err := os.Chmod(tempName, outputFileMode); err != nil {
		return errors.Wrap(err, "failed to set output file permissions")
	}
	if err := os.Rename(tempName, path); err != nil {
		return errors.Wrapf(err, "failed to write output file '%s'", path)
	}
	return nil
}

// marshalUnescaped encodes v without HTML escaping so descriptions keep
// characters such as '<' and '&' verbatim. U+2028 and U+2029 are still
// written as \u escapes.
func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
