package project

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"sentinel/internal/errors"
	"sentinel/internal/paths"
)

// Identity is the persisted identity of an indexed project, stored in
// .sentinel/project.toml.
type Identity struct {
	ID        string     `toml:"id" json:"id"`
	Name      string     `toml:"name" json:"name"`
	Root      string     `toml:"root" json:"root"`
	CreatedAt time.Time  `toml:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `toml:"updated_at" json:"updatedAt"`
	Manifests []Manifest `toml:"manifests,omitempty" json:"manifests,omitempty"`
}

// Load reads the identity file of root.
func Load(root string) (*Identity, error) {
	path := paths.ProjectFile(root)
	var id Identity
	if _, err := toml.DecodeFile(path, &id); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.SymbolNotFound, "project is not initialized", err).WithPath(path)
		}
		return nil, errors.New(errors.InvalidDefinition, "failed to parse project file", err).WithPath(path)
	}
	if _, err := uuid.Parse(id.ID); err != nil {
		return nil, errors.New(errors.InvalidDefinition, "project id is not a UUID", err).WithPath(path)
	}
	return &id, nil
}

// LoadOrCreate returns the identity of root, creating it with a fresh
// project id on first use. Manifests are re-detected on every call.
func LoadOrCreate(root string) (*Identity, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to resolve project root", err).WithPath(root)
	}

	id, err := Load(abs)
	if err != nil {
		if !errors.IsCode(err, errors.SymbolNotFound) {
			return nil, err
		}
		now := time.Now().UTC().Truncate(time.Second)
		id = &Identity{
			ID:        uuid.NewString(),
			Name:      filepath.Base(abs),
			CreatedAt: now,
		}
	}
	id.Root = abs
	id.Manifests = DetectManifests(abs)
	if err := id.Save(); err != nil {
		return nil, err
	}
	return id, nil
}

// Save writes the identity to <root>/.sentinel/project.toml.
func (id *Identity) Save() error {
	if _, err := paths.EnsureDataDir(id.Root); err != nil {
		return errors.New(errors.StoreUnavailable, "failed to create data directory", err).WithPath(id.Root)
	}
	id.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(id); err != nil {
		return errors.New(errors.InternalError, "failed to encode project file", err)
	}
	path := paths.ProjectFile(id.Root)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.New(errors.StoreUnavailable, "failed to write project file", err).WithPath(path)
	}
	return nil
}
