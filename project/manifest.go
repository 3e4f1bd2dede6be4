// Package project loads the sruby.yaml manifest that drives multi-file
// builds: which sources belong to the project, which targets to emit and
// where the output goes.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/s6ruby/srubyc/internal/naming"
	"github.com/s6ruby/srubyc/targets/types"
)

// DefaultFile is the manifest filename looked up in the working directory.
const DefaultFile = "sruby.yaml"

var (
	ErrInvalidManifest = errors.New("invalid manifest")
	ErrNoSources       = errors.New("no sources matched")
)

const (
	defaultOut     = "build"
	defaultInclude = "**/*.rb"
)

// Manifest is the parsed and validated sruby.yaml.
type Manifest struct {
	// Name of the project, informational only.
	Name string `yaml:"name"`

	// Out is the output directory for emitted code, "build" by default.
	Out string `yaml:"out"`

	// Targets lists the languages to emit, every target by default.
	Targets []types.Type `yaml:"-"`

	// Include and Exclude are source path patterns, ** supported. A path
	// is part of the project when it matches an include pattern and no
	// exclude pattern.
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`

	// Contracts overrides emitted contract names, keyed by source path.
	Contracts map[string]string `yaml:"contracts"`

	include []glob.Glob
	exclude []glob.Glob
}

// rawManifest carries the fields that need validation before they land in
// the Manifest.
type rawManifest struct {
	Targets []string `yaml:"targets"`
}

// Load reads and validates a manifest file. Target names and glob
// patterns are resolved eagerly so mistakes surface at load time.
func Load(path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(content)
}

// Parse validates manifest content.
func Parse(content []byte) (*Manifest, error) {
	m := &Manifest{}
	if err := yaml.Unmarshal(content, m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	raw := &rawManifest{}
	if err := yaml.Unmarshal(content, raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	for _, name := range raw.Targets {
		target, err := types.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
		}
		m.Targets = append(m.Targets, target)
	}
	if len(m.Targets) == 0 {
		m.Targets = types.All()
	}

	if m.Out == "" {
		m.Out = defaultOut
	}
	if len(m.Include) == 0 {
		m.Include = []string{defaultInclude}
	}

	var err error
	if m.include, err = compilePatterns(m.Include); err != nil {
		return nil, err
	}
	if m.exclude, err = compilePatterns(m.Exclude); err != nil {
		return nil, err
	}

	return m, nil
}

func compilePatterns(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %w", ErrInvalidManifest, p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Match reports whether a source path belongs to the project.
func (m *Manifest) Match(path string) bool {
	path = filepath.ToSlash(path)
	matched := false
	for _, g := range m.include {
		if g.Match(path) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, g := range m.exclude {
		if g.Match(path) {
			return false
		}
	}
	return true
}

// ContractName returns the emitted contract name for a source path: the
// configured override when present, the PascalCase basename otherwise.
func (m *Manifest) ContractName(path string) string {
	key := filepath.ToSlash(path)
	if name, ok := m.Contracts[key]; ok {
		return name
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return naming.Pascal(base)
}

// Sources walks root and returns the matching source paths, relative to
// root and sorted.
func (m *Manifest) Sources(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if m.Match(rel) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoSources, root)
	}
	sort.Strings(out)
	return out, nil
}
