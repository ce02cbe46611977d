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


// Package storage provides the storage abstraction layer for ratatoskr.
//
// It defines repository interfaces that decouple the query pipeline from the
// storage implementation, so different backends (BadgerDB, in-memory, a remote
// search index) can be used interchangeably.
//
// Two repositories cover the two document families:
//
//   - QueryRepository: the query-record index. Upsert by query_id, terminal
//     update-by-query, exact-match lookup, and term search by session.
//   - ChunkRepository: the retrieval (RAG) index. Upsert by content hash,
//     k-nearest-neighbour vector search, and lookup by source.
//
// Constructors in implementation packages return these interfaces rather than
// concrete types. Connectivity failures always surface as storage.ErrConnection;
// missing records as storage.ErrNotFound.
//
// Terminal updates are parameterized (storage.TerminalUpdate): the mutation
// shape is fixed and only bound values vary, and implementations must keep
// re-application idempotent and refuse transitions out of a terminal state.
//
// All repository methods accept context.Context and must be safe for
// concurrent use from multiple goroutines.
package storage
