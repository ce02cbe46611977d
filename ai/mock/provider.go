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


package mock

import "github.com/poiesic/ratatoskr/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates mock runner and embedder instances.
type MockProvider struct {
	runner   *MockRunner
	embedder *MockEmbedder
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockRunner()/GetMockEmbedder() to access concrete types for assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		runner:   NewMockRunner(),
		embedder: NewMockEmbedder(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(runner *MockRunner, embedder *MockEmbedder) ai.AIProvider {
	return &MockProvider{
		runner:   runner,
		embedder: embedder,
	}
}

// Runner returns the mock runner.
func (p *MockProvider) Runner() ai.Runner {
	return p.runner
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockRunner returns the underlying mock runner for test assertions.
func (p *MockProvider) GetMockRunner() *MockRunner {
	return p.runner
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}
