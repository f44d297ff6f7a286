package sender

import (
	"context"
	"errors"

	"github.com/bft-labs/trackship/pkg/batch"
)

var (
	// ErrServer is returned when the collector answers with an error envelope.
	ErrServer = errors.New("collector returned error")

	// ErrRejected is returned when the collector answers without an OK status.
	ErrRejected = errors.New("collector did not acknowledge batch")
)

// Sender delivers one batch to a collector.
// Implementations must not retry; the caller decides when to try again.
type Sender interface {
	// Send returns nil only when the collector acknowledged the batch.
	Send(ctx context.Context, b *batch.Batch, metadata Metadata) error
}
