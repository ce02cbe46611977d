package ai

import "context"

// Runner executes single prompt-completion calls against a language-model
// runtime. Implementations must be thread-safe for concurrent use.
type Runner interface {
	// Run sends prompt to the runtime bound to the given model identifier
	// and returns the generated text. Returns ErrNotConfigured when no
	// runtime endpoint is configured, ErrEmptyResponse when the model
	// produced nothing, and ErrModelInvocation for runtime-level failures.
	// Run never panics across the boundary; every failure is an error.
	Run(ctx context.Context, prompt, model string) (string, error)
}

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice contains embeddings in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// AIProvider aggregates AI services for convenient initialization and
// lifecycle management.
type AIProvider interface {
	// Runner returns the prompt-completion service.
	Runner() Runner

	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	Close() error
}
