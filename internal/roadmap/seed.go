package roadmap

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPreset is used when no seed is configured.
const DefaultPreset = "carsharing-actions"

//go:embed seeds/*.yaml
var presetFS embed.FS

// Entry is one barrier with its initial actions.
type Entry struct {
	Barrier string   `json:"barrier" yaml:"barrier"`
	Actions []string `json:"actions" yaml:"actions"`
}

// Seed is the literal table a session roadmap starts from.
type Seed []Entry

type seedFile struct {
	Barriers Seed `yaml:"barriers"`
}

// PresetNames lists the seed tables bundled with the binary.
func PresetNames() []string {
	entries, err := fs.ReadDir(presetFS, "seeds")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Preset loads a bundled seed table by name.
func Preset(name string) (Seed, error) {
	name = strings.TrimSpace(name)
	data, err := presetFS.ReadFile(path.Join("seeds", name+".yaml"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("roadmap: unknown seed preset %q (available: %s)", name, strings.Join(PresetNames(), ", "))
		}
		return nil, fmt.Errorf("roadmap: read preset %s: %w", name, err)
	}
	return ParseSeed(data)
}

// LoadSeed reads a seed table from a YAML file.
func LoadSeed(file string) (Seed, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("roadmap: read seed %s: %w", file, err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("roadmap: %s: %w", file, err)
	}
	return seed, nil
}

// ResolveSeed accepts either a preset name or a path to a seed file. Relative
// paths are resolved against baseDir.
func ResolveSeed(ref, baseDir string) (Seed, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Preset(DefaultPreset)
	}
	if !strings.ContainsAny(ref, `/\`) && filepath.Ext(ref) == "" {
		return Preset(ref)
	}
	if !filepath.IsAbs(ref) {
		ref = filepath.Join(baseDir, ref)
	}
	return LoadSeed(ref)
}

// ParseSeed decodes the YAML seed format:
//
//	barriers:
//	  - barrier: Equity
//	    actions: [Targeted outreach, Low-income pass]
func ParseSeed(data []byte) (Seed, error) {
	var parsed seedFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	for i, entry := range parsed.Barriers {
		if strings.TrimSpace(entry.Barrier) == "" {
			return nil, fmt.Errorf("barriers[%d]: barrier name is required", i)
		}
	}
	return parsed.Barriers, nil
}
