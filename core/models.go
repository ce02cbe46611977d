package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored context chunks.
// It is generated from the chunk content, so re-ingesting the same
// content produces the same ID and upserts instead of duplicating.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// QueryStatus is the externally observable state of a query record.
type QueryStatus string

const (
	// StatusSubmitted is the initial state returned to the caller at dispatch
	// time. It is never persisted; the first persisted state is processing.
	StatusSubmitted QueryStatus = "submitted"
	// StatusProcessing is persisted when a pipeline run starts.
	StatusProcessing QueryStatus = "processing"
	// StatusCompleted is the terminal success state.
	StatusCompleted QueryStatus = "completed"
	// StatusError is the terminal failure state.
	StatusError QueryStatus = "error"
)

// Terminal reports whether no further transition can occur from s.
func (s QueryStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Valid reports whether s is one of the four known states.
func (s QueryStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status state machine permits moving
// from s to next. Status is monotonic along
// submitted -> processing -> {completed, error}; terminal states never move.
func (s QueryStatus) CanTransitionTo(next QueryStatus) bool {
	switch s {
	case StatusSubmitted:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusError
	}
	return false
}

// QueryRecord is the durable unit of work for one submitted query.
// It is created once by the pipeline with StatusProcessing and mutated
// exactly once more by the terminal update. Query and Timestamp are
// immutable after creation.
type QueryRecord struct {
	QueryID        string
	User           string
	Session        string
	Query          string
	Model          string
	Status         QueryStatus
	Response       string
	Error          string
	UseRAGDatabase bool
	// ContextBranches records which assembly branches contributed context
	// to the composed prompt ("rag", "session"). Written by the terminal
	// update for auditability.
	ContextBranches []string
	Timestamp       time.Time
}

// ContextChunk is one ingested content fragment in the retrieval index.
// Read-only from the query pipeline's perspective.
type ContextChunk struct {
	Id         ID
	Content    string
	Source     string
	Vector     []float32
	InsertedAt time.Time
}

// SimilarityHit is one vector-search result: chunk content, its origin,
// and the similarity score (higher is closer).
type SimilarityHit struct {
	Content string
	Source  string
	Score   float32
}
