package state

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the persistent identity of one installation.
type Identity struct {
	// DeviceID is generated once and sent with every batch.
	DeviceID string `json:"device_id"`

	// CreatedAt is when the identity was generated.
	CreatedAt time.Time `json:"created_at"`
}

// IsEmpty returns true if the identity has not been initialized.
func (i Identity) IsEmpty() bool {
	return i.DeviceID == ""
}

// NewIdentity generates a fresh identity with a random device id.
func NewIdentity() Identity {
	return Identity{
		DeviceID:  uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}
