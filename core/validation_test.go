package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() *QueryRecord {
	return &QueryRecord{
		QueryID:   "q-1",
		Query:     "capital of France?",
		Model:     "llama3",
		Status:    StatusProcessing,
		Timestamp: time.Now().UTC(),
	}
}

func TestValidateQueryRecord(t *testing.T) {
	require.NoError(t, ValidateQueryRecord(validRecord()))

	t.Run("nil record", func(t *testing.T) {
		assert.ErrorIs(t, ValidateQueryRecord(nil), ErrInvalidQueryRecord)
	})

	t.Run("missing query id", func(t *testing.T) {
		r := validRecord()
		r.QueryID = ""
		assert.ErrorIs(t, ValidateQueryRecord(r), ErrEmptyQueryID)
	})

	t.Run("missing query", func(t *testing.T) {
		r := validRecord()
		r.Query = ""
		assert.ErrorIs(t, ValidateQueryRecord(r), ErrEmptyQuery)
	})

	t.Run("missing model", func(t *testing.T) {
		r := validRecord()
		r.Model = ""
		assert.ErrorIs(t, ValidateQueryRecord(r), ErrEmptyModel)
	})

	t.Run("unknown status", func(t *testing.T) {
		r := validRecord()
		r.Status = "pending"
		assert.ErrorIs(t, ValidateQueryRecord(r), ErrInvalidStatus)
	})

	t.Run("future timestamp", func(t *testing.T) {
		r := validRecord()
		r.Timestamp = time.Now().Add(time.Hour)
		assert.ErrorIs(t, ValidateQueryRecord(r), ErrInvalidTimestamp)
	})

	t.Run("optional fields may be empty", func(t *testing.T) {
		r := validRecord()
		r.User = ""
		r.Session = ""
		assert.NoError(t, ValidateQueryRecord(r))
	})
}

func TestValidateContextChunk(t *testing.T) {
	require.NoError(t, ValidateContextChunk(&ContextChunk{Content: "some text"}))

	assert.ErrorIs(t, ValidateContextChunk(nil), ErrInvalidContextChunk)
	assert.ErrorIs(t, ValidateContextChunk(&ContextChunk{}), ErrEmptyContent)
}
