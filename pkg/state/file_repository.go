package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

const identityFileName = "identity.json"

// FileRepository implements Repository with a JSON file in a directory.
type FileRepository struct {
	dir string
}

// NewFileRepository creates a new FileRepository for the given directory.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

// Load reads the identity file. A missing file yields an empty identity.
func (r *FileRepository) Load(ctx context.Context) (Identity, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Identity{}, nil
		}
		return Identity{}, err
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Save writes the identity to a temp file and renames it into place.
func (r *FileRepository) Save(ctx context.Context, id Identity) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the identity file.
func (r *FileRepository) Path() string {
	return filepath.Join(r.dir, identityFileName)
}

var _ Repository = (*FileRepository)(nil)
