package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/poiesic/ratatoskr/ai"
	"github.com/poiesic/ratatoskr/assembler"
	"github.com/poiesic/ratatoskr/core"
	"github.com/poiesic/ratatoskr/storage"
)

const (
	feedbackChunkSize    = 500
	feedbackChunkOverlap = 20
)

// Pipeline processes one submitted query end to end: it persists the
// processing record, assembles the prompt, invokes the model, and applies
// the terminal update. Each query record has exactly one pipeline run as
// its writer, so no cross-run coordination is needed.
type Pipeline struct {
	queryRepo storage.QueryRepository
	assembler *assembler.Assembler
	runner    ai.Runner
	embedder  ai.Embedder

	// feedbackRepo, when set, receives completed responses back into the
	// retrieval index.
	feedbackRepo storage.ChunkRepository
	splitter     textsplitter.RecursiveCharacter

	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithResponseFeedback enables feeding completed responses back into the
// retrieval index held by repo. Feedback is one-way and failure-isolated:
// a feedback error never changes the outcome of the run that produced it.
func WithResponseFeedback(repo storage.ChunkRepository) Option {
	return func(p *Pipeline) error {
		p.feedbackRepo = repo
		return nil
	}
}

// NewPipeline creates a new query pipeline.
func NewPipeline(
	queryRepo storage.QueryRepository,
	contextAssembler *assembler.Assembler,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if queryRepo == nil {
		return nil, ErrQueryRepositoryRequired
	}
	if contextAssembler == nil {
		return nil, ErrAssemblerRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	p := &Pipeline{
		queryRepo: queryRepo,
		assembler: contextAssembler,
		runner:    provider.Runner(),
		embedder:  provider.Embedder(),
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(feedbackChunkSize),
			textsplitter.WithChunkOverlap(feedbackChunkOverlap),
		),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Run executes one pipeline run for record. The record arrives in the
// submitted state; Run moves it to processing, then to exactly one terminal
// state. If the processing write fails the run aborts without invoking the
// model, since an unpersisted query would be unobservable through status
// lookups.
func (p *Pipeline) Run(ctx context.Context, record *core.QueryRecord) {
	record.Status = core.StatusProcessing
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	if _, err := p.queryRepo.StoreQuery(ctx, record); err != nil {
		p.logger.Error("processing write failed, aborting run", "query_id", record.QueryID, "err", err)
		return
	}

	composed := p.assembler.Compose(ctx, record.Query, record.Session, record.Model, record.UseRAGDatabase)

	response, err := p.runner.Run(ctx, composed.Prompt, record.Model)

	update := storage.TerminalUpdate{ContextBranches: composed.Branches}
	if err != nil {
		p.logger.Error("model invocation failed", "query_id", record.QueryID, "model", record.Model, "err", err)
		update.Status = core.StatusError
		update.Error = err.Error()
	} else {
		update.Status = core.StatusCompleted
		update.Response = response
	}

	if err := p.queryRepo.UpdateByQueryID(ctx, record.QueryID, update); err != nil {
		p.logger.Error("terminal update failed", "query_id", record.QueryID, "status", update.Status, "err", err)
		return
	}

	if update.Status == core.StatusCompleted && p.feedbackRepo != nil {
		if err := p.feedResponse(ctx, record.QueryID, response); err != nil {
			p.logger.Warn("response feedback failed", "query_id", record.QueryID, "err", err)
		}
	}
}

// feedResponse chunks a completed response, embeds the chunks, and upserts
// them into the retrieval index with the query they answered as source.
func (p *Pipeline) feedResponse(ctx context.Context, queryID, response string) error {
	parts, err := p.splitter.SplitText(response)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return nil
	}

	vectors, err := p.embedder.EmbedTexts(ctx, parts)
	if err != nil {
		return err
	}

	chunks := make([]*core.ContextChunk, len(parts))
	for i, part := range parts {
		chunk := &core.ContextChunk{
			Content: part,
			Source:  "response:" + queryID,
		}
		if i < len(vectors) {
			chunk.Vector = vectors[i]
		}
		chunks[i] = chunk
	}

	_, err = p.feedbackRepo.AddChunks(ctx, chunks...)
	return err
}
