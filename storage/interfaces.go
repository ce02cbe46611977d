package storage

import (
	"context"
	"fmt"

	"github.com/poiesic/ratatoskr/core"
)

// TerminalUpdate is a parameterized partial update applied to the record
// matching a query_id. The mutation shape is fixed; only the values vary,
// so untrusted response text can never alter the update semantics.
// Applying the same update twice leaves the record unchanged.
type TerminalUpdate struct {
	Status          core.QueryStatus
	Response        string
	Error           string
	ContextBranches []string
}

// Validate checks that the update describes a legal terminal write:
// the status must be terminal, and exactly one of Response/Error is
// the meaningful (non-empty) field.
func (u TerminalUpdate) Validate() error {
	if !u.Status.Terminal() {
		return fmt.Errorf("%w: status %q is not terminal", ErrInvalidUpdate, u.Status)
	}
	if u.Status == core.StatusCompleted && u.Response == "" {
		return fmt.Errorf("%w: completed update requires a response", ErrInvalidUpdate)
	}
	if u.Status == core.StatusError && u.Error == "" {
		return fmt.Errorf("%w: error update requires a diagnostic", ErrInvalidUpdate)
	}
	if u.Status == core.StatusCompleted && u.Error != "" {
		return fmt.Errorf("%w: completed update must not carry a diagnostic", ErrInvalidUpdate)
	}
	if u.Status == core.StatusError && u.Response != "" {
		return fmt.Errorf("%w: error update must not carry a response", ErrInvalidUpdate)
	}
	return nil
}

// QueryRepository provides operations for managing query records.
// Implementations must be thread-safe and support concurrent access.
type QueryRepository interface {
	// StoreQuery upserts a record keyed by its QueryID.
	// Returns a store-assigned result token ("created" or "updated").
	StoreQuery(ctx context.Context, record *core.QueryRecord) (string, error)

	// UpdateByQueryID applies a terminal update to the record matching queryID.
	// Returns ErrNotFound if no record matches. Re-applying the same update
	// to an already-terminal record is a no-op; an update that would move a
	// record out of a different terminal state returns ErrInvalidUpdate.
	UpdateByQueryID(ctx context.Context, queryID string, update TerminalUpdate) error

	// GetByQueryID retrieves the record matching queryID exactly.
	// Returns ErrNotFound if no record matches.
	GetByQueryID(ctx context.Context, queryID string) (*core.QueryRecord, error)

	// SearchBySession retrieves all records whose Session matches exactly,
	// ordered by creation timestamp ascending.
	SearchBySession(ctx context.Context, session string) ([]*core.QueryRecord, error)

	// Close closes the repository and releases resources.
	Close() error
}

// ChunkRepository provides operations over the retrieval index.
type ChunkRepository interface {
	// AddChunks upserts context chunks keyed by their content-derived IDs.
	// Chunks with Id=0 get one computed from their content.
	// Sets InsertedAt if not already set. Returns the stored chunks.
	AddChunks(ctx context.Context, chunks ...*core.ContextChunk) ([]*core.ContextChunk, error)

	// FindSimilar finds the k chunks nearest to the given vector,
	// ordered by similarity score descending.
	FindSimilar(ctx context.Context, vector []float32, k int) ([]*core.SimilarityHit, error)

	// GetBySource retrieves all chunks originating from the given source.
	GetBySource(ctx context.Context, source string) ([]*core.ContextChunk, error)

	// Close closes the repository and releases resources.
	Close() error
}
