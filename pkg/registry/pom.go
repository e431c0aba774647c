package registry

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/jxtool/jx/pkg/maven"
)

// pomProject mirrors the subset of the POM schema the resolver needs:
// identity, parent, properties, direct dependencies, and the
// dependencyManagement table.
type pomProject struct {
	GroupID              string          `xml:"groupId"`
	ArtifactID           string          `xml:"artifactId"`
	Version              string          `xml:"version"`
	Packaging            string          `xml:"packaging"`
	Parent               *pomParent      `xml:"parent"`
	Properties           pomProperties   `xml:"properties"`
	Dependencies         []pomDependency `xml:"dependencies>dependency"`
	DependencyManagement []pomDependency `xml:"dependencyManagement>dependencies>dependency"`
}

type pomParent struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

type pomDependency struct {
	GroupID    string         `xml:"groupId"`
	ArtifactID string         `xml:"artifactId"`
	Version    string         `xml:"version"`
	Scope      string         `xml:"scope"`
	Classifier string         `xml:"classifier"`
	Optional   string         `xml:"optional"`
	Exclusions []pomExclusion `xml:"exclusions>exclusion"`
}

type pomExclusion struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
}

// pomProperties decodes <properties> into a flat map. Property names
// are arbitrary element names, so the default struct decoding does not
// apply.
type pomProperties map[string]string

func (p *pomProperties) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	m := make(map[string]string)
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			var value string
			if err := d.DecodeElement(&value, &el); err != nil {
				return err
			}
			m[el.Name.Local] = strings.TrimSpace(value)
		case xml.EndElement:
			if el.Name == start.Name {
				*p = m
				return nil
			}
		}
	}
}

func parsePOM(data []byte) (*pomProject, error) {
	var pom pomProject
	if err := xml.Unmarshal(data, &pom); err != nil {
		return nil, fmt.Errorf("parse pom: %w", err)
	}
	return &pom, nil
}

// effectiveGroupID and effectiveVersion fall back to the parent values,
// which a child POM may omit.
func (p *pomProject) effectiveGroupID() string {
	if p.GroupID != "" {
		return p.GroupID
	}
	if p.Parent != nil {
		return p.Parent.GroupID
	}
	return ""
}

func (p *pomProject) effectiveVersion() string {
	if p.Version != "" {
		return p.Version
	}
	if p.Parent != nil {
		return p.Parent.Version
	}
	return ""
}

// interpolate substitutes ${...} property references using the POM's
// properties plus the project.* builtins. Unknown references are left
// intact so downstream code can detect and skip them.
func (p *pomProject) interpolate(s string, props map[string]string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	expand := func(key string) (string, bool) {
		switch key {
		case "project.groupId", "pom.groupId":
			return p.effectiveGroupID(), true
		case "project.artifactId", "pom.artifactId":
			return p.ArtifactID, true
		case "project.version", "pom.version":
			return p.effectiveVersion(), true
		}
		v, ok := props[key]
		return v, ok
	}

	var out strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			out.WriteString(s)
			return out.String()
		}
		end := strings.Index(s[start:], "}")
		if end < 0 {
			out.WriteString(s)
			return out.String()
		}
		end += start
		out.WriteString(s[:start])
		if v, ok := expand(s[start+2 : end]); ok {
			out.WriteString(v)
		} else {
			out.WriteString(s[start : end+1])
		}
		s = s[end+1:]
	}
}

// unresolved reports whether s still contains a property reference
// after interpolation.
func unresolved(s string) bool { return strings.Contains(s, "${") }

// convertDependencies translates POM dependency elements into model
// values, interpolating properties and dropping entries the resolver
// cannot act on (system scope, unresolvable identities).
func convertDependencies(pom *pomProject, props map[string]string, elems []pomDependency) []maven.Dependency {
	deps := make([]maven.Dependency, 0, len(elems))
	for _, el := range elems {
		group := pom.interpolate(el.GroupID, props)
		artifact := pom.interpolate(el.ArtifactID, props)
		if group == "" || artifact == "" || unresolved(group) || unresolved(artifact) {
			continue
		}
		if el.Scope == "system" || el.Scope == "import" {
			continue
		}
		scope, err := maven.ParseScope(el.Scope)
		if err != nil {
			continue
		}

		version := pom.interpolate(el.Version, props)
		if unresolved(version) {
			version = ""
		}

		dep := maven.Dependency{
			Coordinate: maven.Coordinate{Group: group, Artifact: artifact, Version: version},
			Scope:      scope,
			Optional:   el.Optional == "true",
			Classifier: el.Classifier,
		}
		for _, ex := range el.Exclusions {
			dep.Exclusions = append(dep.Exclusions, maven.Exclusion{
				Group:    pom.interpolate(ex.GroupID, props),
				Artifact: pom.interpolate(ex.ArtifactID, props),
			})
		}
		deps = append(deps, dep)
	}
	return deps
}

// managedVersions builds the identity → version table from a
// dependencyManagement block. BOM imports (scope "import") are skipped;
// resolving nested BOMs is out of scope.
func managedVersions(pom *pomProject, props map[string]string) map[string]string {
	if len(pom.DependencyManagement) == 0 {
		return nil
	}
	managed := make(map[string]string, len(pom.DependencyManagement))
	for _, el := range pom.DependencyManagement {
		if el.Scope == "import" {
			continue
		}
		group := pom.interpolate(el.GroupID, props)
		artifact := pom.interpolate(el.ArtifactID, props)
		version := pom.interpolate(el.Version, props)
		if group == "" || artifact == "" || version == "" ||
			unresolved(group) || unresolved(artifact) || unresolved(version) {
			continue
		}
		managed[group+":"+artifact] = version
	}
	return managed
}
