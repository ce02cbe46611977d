// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"time"
)

// ValidateQueryRecord validates a QueryRecord according to domain rules.
//
// Validation rules:
//   - QueryID must not be empty
//   - Query must not be empty
//   - Model must not be empty
//   - Status must be a known state
//   - Timestamp must not be in the future
//
// NOT validated (populated later in the record lifecycle):
//   - Response and Error (empty until a terminal update lands)
//   - ContextBranches (written by the terminal update)
func ValidateQueryRecord(record *QueryRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidQueryRecord)
	}

	if record.QueryID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQueryRecord, ErrEmptyQueryID)
	}

	if record.Query == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQueryRecord, ErrEmptyQuery)
	}

	if record.Model == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQueryRecord, ErrEmptyModel)
	}

	if !record.Status.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidQueryRecord, ErrInvalidStatus, record.Status)
	}

	if !IsValidTimestamp(record.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidQueryRecord, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateContextChunk validates a ContextChunk according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//
// NOT validated:
//   - Vector (can be empty until the embedding step runs)
//   - Source (URL-less text ingestion produces chunks without one)
func ValidateContextChunk(chunk *ContextChunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidContextChunk)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidContextChunk, ErrEmptyContent)
	}

	return nil
}

// IsValidTimestamp reports whether t is not in the future.
// A small clock-skew allowance of one minute is tolerated.
func IsValidTimestamp(t time.Time) bool {
	return !t.After(time.Now().Add(time.Minute))
}
