// Package manifest persists the dependency manifest on disk.
package manifest

import (
	"fmt"
	"os"

	"github.com/platformci/repobump/domain"
)

const fileMode = 0o644

// Store loads and saves the manifest file. The parsed model itself lives in
// the domain package; this layer only does IO.
type Store struct{}

// NewStore creates a manifest store.
func NewStore() *Store {
	return &Store{}
}

// Load reads and parses the manifest at path.
func (s *Store) Load(path string) (*domain.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %q: %w", path, err)
	}

	m, err := domain.ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %q: %w", path, err)
	}
	return m, nil
}

// Save serializes the manifest back to path in the same schema.
func (s *Store) Save(m *domain.Manifest, path string) error {
	data, err := domain.MarshalManifest(m)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, fileMode); err != nil {
		return fmt.Errorf("failed to write manifest %q: %w", path, err)
	}
	return nil
}
