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


package pipeline

import "errors"

var (
	// ErrQueryRepositoryRequired is returned when a query repository is not provided.
	ErrQueryRepositoryRequired = errors.New("query repository required")

	// ErrAssemblerRequired is returned when a context assembler is not provided.
	ErrAssemblerRequired = errors.New("context assembler required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrPipelineRequired is returned when a dispatcher is created without a pipeline.
	ErrPipelineRequired = errors.New("pipeline required")

	// ErrSubmitFailed is returned when a query could not be scheduled.
	ErrSubmitFailed = errors.New("submit failed")
)
