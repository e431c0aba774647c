// Package project loads and edits jx.toml, the project manifest.
//
// The manifest declares the project's identity, its dependencies
// grouped by scope section, and the repositories to resolve against:
//
//	[project]
//	name = "my-app"
//	version = "1.0.0"
//
//	[dependencies.compile]
//	"com.google.guava:guava" = "32.1.3-jre"
//	"org.slf4j:slf4j-api" = { version = "2.0.9", optional = true }
//
//	[dependencies.test]
//	"junit:junit" = "4.13.2"
//
// A dependency value is either a bare version string or an inline
// table with version, optional, classifier, and exclusions fields.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jxtool/jx/pkg/maven"
	"github.com/jxtool/jx/pkg/registry"
)

// DefaultName is the manifest file name.
const DefaultName = "jx.toml"

// ErrNotExist is returned by Load when no manifest is present.
var ErrNotExist = errors.New("jx.toml does not exist")

// Manifest is the parsed jx.toml.
type Manifest struct {
	Project      Info                  `toml:"project"`
	Build        Build                 `toml:"build,omitempty"`
	Dependencies DependencySet         `toml:"dependencies,omitempty"`
	Repositories []registry.Repository `toml:"repositories,omitempty"`
}

// Info is the project identity section.
type Info struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Description string `toml:"description,omitempty"`
	License     string `toml:"license,omitempty"`
}

// Build carries JVM build settings. jx does not invoke a JVM itself;
// these fields are passed through to whatever build tool the project
// delegates to.
type Build struct {
	MainClass   string `toml:"main_class,omitempty"`
	JavaVersion string `toml:"java_version,omitempty"`
}

// DependencySet holds the scope-sectioned dependency tables.
type DependencySet struct {
	Compile  DepMap `toml:"compile,omitempty"`
	Runtime  DepMap `toml:"runtime,omitempty"`
	Test     DepMap `toml:"test,omitempty"`
	Provided DepMap `toml:"provided,omitempty"`
}

// DepMap maps "group:artifact" to its declared spec.
type DepMap map[string]DepSpec

// DepSpec is one declared dependency value: either a bare version
// string or an inline table.
type DepSpec struct {
	Version    string
	Optional   bool
	Classifier string
	Exclusions []string
}

// UnmarshalTOML accepts both the string and the table form.
func (d *DepSpec) UnmarshalTOML(v any) error {
	switch val := v.(type) {
	case string:
		d.Version = val
		return nil
	case map[string]any:
		if s, ok := val["version"].(string); ok {
			d.Version = s
		}
		if b, ok := val["optional"].(bool); ok {
			d.Optional = b
		}
		if s, ok := val["classifier"].(string); ok {
			d.Classifier = s
		}
		if list, ok := val["exclusions"].([]any); ok {
			for _, e := range list {
				s, ok := e.(string)
				if !ok {
					return fmt.Errorf("exclusion must be a string, got %T", e)
				}
				d.Exclusions = append(d.Exclusions, s)
			}
		}
		if d.Version == "" {
			return errors.New("dependency table requires a version field")
		}
		return nil
	default:
		return fmt.Errorf("dependency must be a version string or a table, got %T", v)
	}
}

// MarshalTOML writes the compact string form when only a version is
// set, and the inline table form otherwise.
func (d DepSpec) MarshalTOML() ([]byte, error) {
	if !d.Optional && d.Classifier == "" && len(d.Exclusions) == 0 {
		return []byte(fmt.Sprintf("%q", d.Version)), nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "{ version = %q", d.Version)
	if d.Optional {
		sb.WriteString(", optional = true")
	}
	if d.Classifier != "" {
		fmt.Fprintf(&sb, ", classifier = %q", d.Classifier)
	}
	if len(d.Exclusions) > 0 {
		sb.WriteString(", exclusions = [")
		for i, e := range d.Exclusions {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%q", e)
		}
		sb.WriteString("]")
	}
	sb.WriteString(" }")
	return []byte(sb.String()), nil
}

// Load reads and parses a manifest. It returns ErrNotExist when the
// file is absent.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}

// Save atomically rewrites the manifest. Hand-written comments are not
// preserved; jx add and jx remove regenerate the file.
func (m *Manifest) Save(path string) error {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(m); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".jx.toml-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(sb.String()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// scopeMaps pairs each scope with its map accessor so Declared, Add,
// and Remove stay in sync with the manifest shape.
func (m *Manifest) scopeMaps() map[maven.Scope]*DepMap {
	return map[maven.Scope]*DepMap{
		maven.ScopeCompile:  &m.Dependencies.Compile,
		maven.ScopeRuntime:  &m.Dependencies.Runtime,
		maven.ScopeTest:     &m.Dependencies.Test,
		maven.ScopeProvided: &m.Dependencies.Provided,
	}
}

// Declared flattens the scope sections into the dependency list that
// seeds resolution, in deterministic order.
func (m *Manifest) Declared() ([]maven.Dependency, error) {
	var deps []maven.Dependency
	for scope, dm := range m.scopeMaps() {
		for key, spec := range *dm {
			coord, err := maven.ParseCoordinate(key)
			if err != nil {
				return nil, fmt.Errorf("dependencies.%s: %w", scope, err)
			}
			if coord.Version != "" {
				return nil, fmt.Errorf("dependencies.%s: %q must not embed a version (use the value)", scope, key)
			}
			coord.Version = spec.Version
			dep := maven.Dependency{
				Coordinate: coord,
				Scope:      scope,
				Optional:   spec.Optional,
				Classifier: spec.Classifier,
			}
			for _, ex := range spec.Exclusions {
				exc, err := maven.ParseCoordinate(ex)
				if err != nil || exc.Version != "" {
					return nil, fmt.Errorf("dependencies.%s: invalid exclusion %q (expected group:artifact)", scope, ex)
				}
				dep.Exclusions = append(dep.Exclusions, maven.Exclusion{Group: exc.Group, Artifact: exc.Artifact})
			}
			deps = append(deps, dep)
		}
	}
	maven.SortDependencies(deps)
	return deps, nil
}

// Add declares a dependency, replacing any existing declaration of the
// same identity in any scope section.
func (m *Manifest) Add(dep maven.Dependency) {
	m.Remove(dep.ID())
	dm := m.scopeMaps()[dep.Scope]
	if *dm == nil {
		*dm = make(DepMap)
	}
	spec := DepSpec{Version: dep.Version, Optional: dep.Optional, Classifier: dep.Classifier}
	for _, ex := range dep.Exclusions {
		spec.Exclusions = append(spec.Exclusions, ex.ID())
	}
	(*dm)[dep.ID()] = spec
}

// Remove drops the identity from every scope section, reporting
// whether anything was declared.
func (m *Manifest) Remove(id string) bool {
	removed := false
	for _, dm := range m.scopeMaps() {
		if _, ok := (*dm)[id]; ok {
			delete(*dm, id)
			removed = true
		}
	}
	return removed
}

// Get returns the declared dependency for an identity, if present.
func (m *Manifest) Get(id string) (maven.Dependency, bool) {
	for scope, dm := range m.scopeMaps() {
		if spec, ok := (*dm)[id]; ok {
			coord, err := maven.ParseCoordinate(id)
			if err != nil {
				return maven.Dependency{}, false
			}
			coord.Version = spec.Version
			return maven.Dependency{Coordinate: coord, Scope: scope, Optional: spec.Optional, Classifier: spec.Classifier}, true
		}
	}
	return maven.Dependency{}, false
}

// Repos returns the configured repositories, defaulting to Maven
// Central when the manifest declares none.
func (m *Manifest) Repos() []registry.Repository {
	if len(m.Repositories) == 0 {
		return []registry.Repository{registry.MavenCentral}
	}
	return m.Repositories
}
