package state

import (
	"context"
	"fmt"
)

// Repository persists the installation identity.
type Repository interface {
	// Load returns the saved identity, or an empty one and nil error if
	// none was saved.
	Load(ctx context.Context) (Identity, error)

	// Save persists the identity atomically.
	Save(ctx context.Context, id Identity) error
}

// LoadOrCreate returns the saved identity, generating and saving a new one
// on first use.
func LoadOrCreate(ctx context.Context, repo Repository) (Identity, error) {
	id, err := repo.Load(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("load identity: %w", err)
	}
	if !id.IsEmpty() {
		return id, nil
	}
	id = NewIdentity()
	if err := repo.Save(ctx, id); err != nil {
		return Identity{}, fmt.Errorf("save identity: %w", err)
	}
	return id, nil
}
