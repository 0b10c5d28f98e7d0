// Package domain holds the manifest model, version-comparison logic, and the
// narrow interfaces the reconciliation service drives.
package domain

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// RepositoryEntry is one pinned dependency in the manifest.
type RepositoryEntry struct {
	Type    string `yaml:"type,omitempty"` // VCS type, conventionally "git"
	URL     string `yaml:"url"`
	Version string `yaml:"version"`
}

// Dependency is a (url, version) pair extracted from the manifest,
// carried through the per-dependency workflow.
type Dependency struct {
	URL     string
	Version string
}

// RepoID identifies a repository on the hosting service.
type RepoID struct {
	Owner string
	Name  string
}

func (r RepoID) String() string {
	return r.Owner + "/" + r.Name
}

// PullRequestInput contains the data needed to create a pull request.
type PullRequestInput struct {
	Title        string
	Body         string
	SourceBranch string
	TargetBranch string
}

// PullRequest represents a pull request returned by the hosting service.
// Write-only from this system's point of view; it is never read back.
type PullRequest struct {
	Number int
	Title  string
	URL    string
}

// Manifest is the ordered mapping from a local relative path to a
// RepositoryEntry. File order is preserved so that "last entry wins"
// semantics on duplicate URLs are deterministic.
type Manifest struct {
	paths   []string
	entries map[string]*RepositoryEntry
}

// manifestFile is the on-disk schema: a single top-level "repositories" key.
type manifestFile struct {
	Repositories *Manifest `yaml:"repositories"`
}

// ParseManifest decodes manifest YAML. It fails with ErrMalformedManifest
// when the top-level "repositories" key is absent or not a mapping.
func ParseManifest(data []byte) (*Manifest, error) {
	var file manifestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedManifest, err)
	}
	if file.Repositories == nil {
		return nil, fmt.Errorf("%w: missing %q key", ErrMalformedManifest, "repositories")
	}
	return file.Repositories, nil
}

// MarshalManifest encodes the manifest back into the same schema,
// preserving entry order.
func MarshalManifest(m *Manifest) ([]byte, error) {
	data, err := yaml.Marshal(manifestFile{Repositories: m})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return data, nil
}

// UnmarshalYAML decodes the "repositories" mapping node, keeping key order.
func (m *Manifest) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: %q is not a mapping", ErrMalformedManifest, "repositories")
	}

	m.paths = nil
	m.entries = make(map[string]*RepositoryEntry)

	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valNode := value.Content[i+1]

		var entry RepositoryEntry
		if err := valNode.Decode(&entry); err != nil {
			return fmt.Errorf("%w: entry %q: %w", ErrMalformedManifest, keyNode.Value, err)
		}

		if _, seen := m.entries[keyNode.Value]; !seen {
			m.paths = append(m.paths, keyNode.Value)
		}
		m.entries[keyNode.Value] = &entry
	}

	return nil
}

// MarshalYAML emits the mapping in the order the file declared it.
func (m *Manifest) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, path := range m.paths {
		var keyNode yaml.Node
		keyNode.SetString(path)

		var valNode yaml.Node
		if err := valNode.Encode(m.entries[path]); err != nil {
			return nil, err
		}

		node.Content = append(node.Content, &keyNode, &valNode)
	}
	return node, nil
}

// Paths returns the entry keys in file order.
func (m *Manifest) Paths() []string {
	out := make([]string, len(m.paths))
	copy(out, m.paths)
	return out
}

// Entry returns a copy of the entry stored under the given path key, or nil.
func (m *Manifest) Entry(path string) *RepositoryEntry {
	if e, ok := m.entries[path]; ok {
		entry := *e
		return &entry
	}
	return nil
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	return len(m.paths)
}

// CurrentVersions flattens the manifest into url -> version. When two entries
// share a URL the last one in file order wins; this mirrors the historical
// lookup behavior and is documented rather than deduplicated away.
func (m *Manifest) CurrentVersions() map[string]string {
	versions := make(map[string]string, len(m.paths))
	for _, path := range m.paths {
		entry := m.entries[path]
		versions[entry.URL] = entry.Version
	}
	return versions
}

// PinnedBySemver filters the manifest down to dependencies whose version
// string matches the given pattern (unanchored, like the conventional
// `(v\d+\.\d+\.\d+)` default). Results keep file order; duplicate URLs
// collapse into one dependency holding the last version seen, at the
// position of the first occurrence.
func (m *Manifest) PinnedBySemver(pattern *regexp.Regexp) []Dependency {
	var deps []Dependency
	index := make(map[string]int)

	for _, path := range m.paths {
		entry := m.entries[path]
		if !pattern.MatchString(entry.Version) {
			continue
		}
		if i, seen := index[entry.URL]; seen {
			deps[i].Version = entry.Version
			continue
		}
		index[entry.URL] = len(deps)
		deps = append(deps, Dependency{URL: entry.URL, Version: entry.Version})
	}

	return deps
}

// SetVersion overwrites the version of the entry whose URL matches. With
// duplicate URLs the last entry in file order is updated, matching
// CurrentVersions lookup semantics. Returns ErrUnknownRepository when no
// entry matches.
func (m *Manifest) SetVersion(url, newVersion string) error {
	target := ""
	for _, path := range m.paths {
		if m.entries[path].URL == url {
			target = path
		}
	}
	if target == "" {
		return fmt.Errorf("%w: %s", ErrUnknownRepository, url)
	}

	m.entries[target].Version = newVersion
	return nil
}
