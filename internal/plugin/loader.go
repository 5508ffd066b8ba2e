package plugin

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// rawDefinition mirrors the on-disk YAML. Pointer fields distinguish a
// missing key from an empty value. Unknown keys are ignored.
type rawDefinition struct {
	Name            *string   `yaml:"name"`
	Description     yaml.Node `yaml:"description"`
	Run             *string   `yaml:"run"`
	Match           *string   `yaml:"match"`
	Type            *string   `yaml:"type"`
	Keywords        yaml.Node `yaml:"keywords"`
	IgnoreIf        string    `yaml:"ignore_if"`
	Prompt          string    `yaml:"prompt"`
	Model           string    `yaml:"model"`
	OutputExtension string    `yaml:"output_extension"`
	Command         string    `yaml:"command"`
}

// Load reads every *.yaml and *.yml file in dir, in file-name order, and
// returns the resulting registry. A missing or empty directory yields an empty
// registry. Any invalid definition aborts the load with a *ConfigError.
func Load(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("plugin: directory does not exist", "dir", dir)
		return NewRegistry()
	}
	if err != nil {
		return nil, fmt.Errorf("plugin: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	defs := make([]Definition, 0, len(files))
	for _, name := range files {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("plugin: read %q: %w", path, err)
		}
		def, err := Parse(path, data)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	reg, err := NewRegistry(defs...)
	if err != nil {
		return nil, err
	}
	slog.Debug("plugin: registry loaded", "dir", dir, "count", reg.Len())
	return reg, nil
}

// Parse decodes and validates a single YAML plugin definition. source is used
// for error messages and, when the document has no name, its file stem names
// the plugin.
func Parse(source string, data []byte) (Definition, error) {
	var raw rawDefinition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Definition{}, &ConfigError{File: source, Msg: "empty definition"}
		}
		return Definition{}, &ConfigError{File: source, Msg: fmt.Sprintf("decode yaml: %v", err)}
	}
	return raw.normalize(source)
}

func (r *rawDefinition) normalize(source string) (Definition, error) {
	def := Definition{
		IgnoreIf:        strings.TrimSpace(r.IgnoreIf),
		Prompt:          r.Prompt,
		Model:           strings.TrimSpace(r.Model),
		OutputExtension: normalizeExtension(r.OutputExtension),
		Command:         strings.TrimSpace(r.Command),
		Source:          source,
	}

	if r.Name != nil {
		def.Name = strings.TrimSpace(*r.Name)
	} else if source != "" {
		base := filepath.Base(source)
		def.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if def.Name == "" {
		return Definition{}, &ConfigError{File: source, Field: "name", Msg: "must not be empty"}
	}
	if strings.ContainsAny(def.Name, `/\`) || def.Name == "." || def.Name == ".." {
		return Definition{}, &ConfigError{File: source, Field: "name", Msg: fmt.Sprintf("%q is not a valid directory name", def.Name)}
	}

	desc, err := decodeDescription(&r.Description)
	if err != nil {
		return Definition{}, &ConfigError{File: source, Field: "description", Msg: err.Error()}
	}
	def.Description = desc

	if r.Run == nil {
		return Definition{}, &ConfigError{File: source, Field: "run", Msg: "is required"}
	}
	run, err := ParseRunMode(*r.Run)
	if err != nil {
		return Definition{}, &ConfigError{File: source, Field: "run", Msg: err.Error()}
	}
	def.Run = run

	def.Match = MatchAll
	switch {
	case r.Match != nil:
		m, err := ParseMatchMode(*r.Match)
		if err != nil {
			return Definition{}, &ConfigError{File: source, Field: "match", Msg: err.Error()}
		}
		def.Match = m
	case r.Type != nil:
		m, err := parseLegacyType(*r.Type)
		if err != nil {
			return Definition{}, &ConfigError{File: source, Field: "type", Msg: err.Error()}
		}
		def.Match = m
	}

	kw, err := decodeKeywords(&r.Keywords)
	if err != nil {
		return Definition{}, &ConfigError{File: source, Field: "keywords", Msg: err.Error()}
	}
	if len(kw) == 0 {
		kw = DeriveKeywords(def.Name)
	}
	def.Keywords = kw

	return def, nil
}

// parseLegacyType accepts only the historical "and"/"or" values.
func parseLegacyType(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "and":
		return MatchAll, nil
	case "or":
		return MatchAny, nil
	default:
		return "", fmt.Errorf("invalid legacy type %q, must be \"and\" or \"or\"", s)
	}
}

// decodeDescription requires the key to be present. An explicit null is an
// empty description.
func decodeDescription(n *yaml.Node) (string, error) {
	switch {
	case n.Kind == 0:
		return "", errors.New("is required")
	case n.Kind != yaml.ScalarNode:
		return "", errors.New("must be a string")
	case n.Tag == "!!null":
		return "", nil
	}
	return strings.TrimSpace(n.Value), nil
}

// decodeKeywords accepts a YAML sequence of strings or a single
// comma-separated string. A missing key yields nil.
func decodeKeywords(n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		return SplitKeywords(n.Value), nil
	case yaml.SequenceNode:
		var list []string
		if err := n.Decode(&list); err != nil {
			return nil, fmt.Errorf("must be a list of strings: %w", err)
		}
		out := make([]string, 0, len(list))
		for _, k := range list {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("must be a list or a comma-separated string")
	}
}
