// Package keyedstore provides the hierarchical key-value store backing the
// chat client: slash-separated paths, one-shot reads, whole-value overwrites
// and change subscriptions. There is no atomicity across paths; every write
// stands alone.
package keyedstore

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrAbsent is returned by ReadOnce when nothing is stored at the path.
var ErrAbsent = errors.New("no value at path")

// subscribeBuffer is the per-subscription channel depth. Snapshots beyond
// it are dropped rather than blocking writers.
const subscribeBuffer = 16

// Store is a path-addressed key-value store holding JSON values.
type Store interface {
	// ReadOnce returns the value currently stored at path, or ErrAbsent.
	ReadOnce(ctx context.Context, path string) (json.RawMessage, error)

	// Write marshals value and overwrites the whole subtree at path.
	Write(ctx context.Context, path string, value any) error

	// Subscribe delivers the current value at path immediately (nil when
	// absent), then every subsequent write, until cancel is called.
	// Cancel detaches the subscription and closes the channel; snapshots
	// already in flight may still be read from the buffer.
	Subscribe(path string) (<-chan json.RawMessage, func())
}
