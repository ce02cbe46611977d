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


// Package ai provides abstractions for the model-runtime services used in
// ratatoskr.
//
// Two interfaces cover the runtime surface:
//
//   - Runner: single prompt-completion calls bound to a model identifier
//   - Embedder: vector embeddings for semantic similarity search
//
// AIProvider aggregates both for convenient initialization.
//
// Implementation packages:
//
//   - ai/ollama: production implementation backed by an Ollama-compatible
//     runtime via langchaingo. The Runner keeps at most one active session
//     and swaps it when the requested model differs from the bound one.
//   - ai/mock: test doubles with injectable function fields.
//
// Public constructors return the interface types to enforce abstraction;
// mock constructors return concrete types so tests can inject behavior and
// assert on call counts.
//
// Failure modes are represented as the sentinel errors ErrNotConfigured,
// ErrModelInvocation, and ErrEmptyResponse. Callers decide whether a failure
// degrades (context assembly) or lands the record in the error state (the
// final model call); nothing in this package panics across the boundary.
package ai
