package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContentDeterministic(t *testing.T) {
	id1 := IDFromContent("the quick brown fox")
	id2 := IDFromContent("the quick brown fox")
	id3 := IDFromContent("the quick brown foxes")

	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, id3)
	assert.NotZero(t, id1)
}

func TestStatusStateMachine(t *testing.T) {
	tests := []struct {
		name    string
		from    QueryStatus
		to      QueryStatus
		allowed bool
	}{
		{"submitted to processing", StatusSubmitted, StatusProcessing, true},
		{"processing to completed", StatusProcessing, StatusCompleted, true},
		{"processing to error", StatusProcessing, StatusError, true},
		{"submitted to completed skips processing", StatusSubmitted, StatusCompleted, false},
		{"completed never moves", StatusCompleted, StatusError, false},
		{"error never moves", StatusError, StatusProcessing, false},
		{"processing cannot reverse", StatusProcessing, StatusSubmitted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusSubmitted.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusError.Terminal())
}

func TestQueryRecordSerializationRoundTrip(t *testing.T) {
	record := QueryRecord{
		QueryID:         "b7c1d2e3-0000-4000-8000-000000000042",
		User:            "odin",
		Session:         "yggdrasil",
		Query:           "what gnaws at the roots?",
		Model:           "llama3",
		Status:          StatusCompleted,
		Response:        "Nidhogg.",
		UseRAGDatabase:  true,
		ContextBranches: []string{"rag", "session"},
		Timestamp:       time.Now().UTC().Truncate(time.Microsecond),
	}

	bs := make([]byte, QueryRecordMUS.Size(record))
	n := QueryRecordMUS.Marshal(record, bs)
	require.Equal(t, len(bs), n)

	decoded, n, err := QueryRecordMUS.Unmarshal(bs)
	require.NoError(t, err)
	require.Equal(t, len(bs), n)

	assert.True(t, record.Timestamp.Equal(decoded.Timestamp), "timestamp should survive the round trip")
	record.Timestamp, decoded.Timestamp = time.Time{}, time.Time{}
	assert.Equal(t, record, decoded)
}

func TestContextChunkSerializationRoundTrip(t *testing.T) {
	chunk := ContextChunk{
		Id:         IDFromContent("chunk body"),
		Content:    "chunk body",
		Source:     "/mnt/docs/eddas.pdf",
		Vector:     []float32{0.25, -0.5, 0.125},
		InsertedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	bs := make([]byte, ContextChunkMUS.Size(chunk))
	n := ContextChunkMUS.Marshal(chunk, bs)
	require.Equal(t, len(bs), n)

	decoded, n, err := ContextChunkMUS.Unmarshal(bs)
	require.NoError(t, err)
	require.Equal(t, len(bs), n)

	assert.True(t, chunk.InsertedAt.Equal(decoded.InsertedAt), "timestamp should survive the round trip")
	chunk.InsertedAt, decoded.InsertedAt = time.Time{}, time.Time{}
	assert.Equal(t, chunk, decoded)
}
