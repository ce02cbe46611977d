package assembler

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/poiesic/ratatoskr/ai"
	"github.com/poiesic/ratatoskr/core"
	"github.com/poiesic/ratatoskr/storage"
)

const (
	// defaultMinContentLength is the minimum candidate length for the RAG
	// branch; shorter fragments are too weak to summarize usefully.
	defaultMinContentLength = 200

	// defaultTopK bounds the similarity search result set.
	defaultTopK = 10

	// defaultMountPrefix marks internal mount paths whose sources are
	// normalized to their base name for display.
	defaultMountPrefix = "/mnt/"
)

// Assembler builds composed prompts from a raw query, the retrieval index,
// and prior session history.
type Assembler struct {
	queryRepo        storage.QueryRepository
	chunkRepo        storage.ChunkRepository
	embedder         ai.Embedder
	runner           ai.Runner
	topK             int
	minContentLength int
	mountPrefix      string
	logger           *slog.Logger
}

// Context is an assembled prompt plus the names of the branches that
// contributed context to it ("rag", "session").
type Context struct {
	Prompt   string
	Branches []string
}

// Option configures an Assembler.
type Option func(*Assembler) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// WithTopK sets the similarity search result bound.
func WithTopK(k int) Option {
	return func(a *Assembler) error {
		if k > 0 {
			a.topK = k
		}
		return nil
	}
}

// WithMinContentLength sets the RAG candidate length threshold.
func WithMinContentLength(length int) Option {
	return func(a *Assembler) error {
		if length >= 0 {
			a.minContentLength = length
		}
		return nil
	}
}

// WithMountPrefix sets the internal mount-path prefix used for source
// display normalization.
func WithMountPrefix(prefix string) Option {
	return func(a *Assembler) error {
		a.mountPrefix = prefix
		return nil
	}
}

// NewAssembler creates a new context assembler.
func NewAssembler(
	queryRepo storage.QueryRepository,
	chunkRepo storage.ChunkRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Assembler, error) {
	if queryRepo == nil {
		return nil, ErrQueryRepositoryRequired
	}
	if chunkRepo == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	a := &Assembler{
		queryRepo:        queryRepo,
		chunkRepo:        chunkRepo,
		embedder:         provider.Embedder(),
		runner:           provider.Runner(),
		topK:             defaultTopK,
		minContentLength: defaultMinContentLength,
		mountPrefix:      defaultMountPrefix,
		logger:           slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Compose assembles the final prompt for one query. Each branch is
// independently fault-tolerant: a failure inside a branch is logged and the
// branch contributes nothing; Compose itself never fails the pipeline run.
// The composition is deterministic: query, then RAG summary, then session
// summary, whichever exist.
func (a *Assembler) Compose(ctx context.Context, query, session, model string, useRAG bool) Context {
	var ragSummary, sessionSummary string
	var branches []string

	if useRAG {
		summary, err := a.ragSummary(ctx, query, model)
		if err != nil {
			a.logger.Warn("rag branch failed, continuing without it", "err", err)
		} else {
			ragSummary = summary
		}
	}

	if session != "" {
		summary, err := a.sessionSummary(ctx, query, session, model)
		if err != nil {
			a.logger.Warn("session branch failed, continuing without it", "session", session, "err", err)
		} else {
			sessionSummary = summary
		}
	}

	if ragSummary != "" {
		branches = append(branches, "rag")
	}
	if sessionSummary != "" {
		branches = append(branches, "session")
	}

	return Context{
		Prompt:   composePrompt(query, ragSummary, sessionSummary),
		Branches: branches,
	}
}

// ragSummary runs the RAG branch: similarity search, length filtering, and
// a bullet-point summary through the model. Returns "" when no candidate
// survives filtering.
func (a *Assembler) ragSummary(ctx context.Context, query, model string) (string, error) {
	hits, err := a.SearchSimilar(ctx, query)
	if err != nil {
		return "", err
	}

	survivors := make([]*core.SimilarityHit, 0, len(hits))
	for _, hit := range hits {
		if len(hit.Content) > a.minContentLength {
			survivors = append(survivors, hit)
		}
	}
	if len(survivors) == 0 {
		a.logger.Debug("no rag candidates survived filtering", "retrieved", len(hits))
		return "", nil
	}

	return a.runner.Run(ctx, buildRAGSummaryPrompt(survivors), model)
}

// sessionSummary runs the session branch: term search on the session
// identifier, exclusion of the current turn and of incomplete turns, and a
// summary through the model. Returns "" when no prior turn qualifies.
func (a *Assembler) sessionSummary(ctx context.Context, query, session, model string) (string, error) {
	records, err := a.queryRepo.SearchBySession(ctx, session)
	if err != nil {
		return "", err
	}

	turns := make([]*core.QueryRecord, 0, len(records))
	for _, record := range records {
		// the in-flight turn and unfinished turns do not count as context
		if record.Query == query || record.Response == "" {
			continue
		}
		turns = append(turns, record)
	}
	if len(turns) == 0 {
		a.logger.Debug("no prior session turns qualified", "session", session, "retrieved", len(records))
		return "", nil
	}

	return a.runner.Run(ctx, buildSessionSummaryPrompt(turns), model)
}

// SearchSimilar returns similarity hits for query with display-normalized
// sources, nearest first.
func (a *Assembler) SearchSimilar(ctx context.Context, query string) ([]*core.SimilarityHit, error) {
	vector, err := a.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := a.chunkRepo.FindSimilar(ctx, vector, a.topK)
	if err != nil {
		return nil, err
	}

	for _, hit := range hits {
		hit.Source = a.displaySource(hit.Source)
	}
	return hits, nil
}

// SummarizeSource summarizes all stored chunks for one source through the
// model. Returns ok=false when the source has no chunks.
func (a *Assembler) SummarizeSource(ctx context.Context, source, model string) (string, bool, error) {
	chunks, err := a.chunkRepo.GetBySource(ctx, source)
	if err != nil {
		return "", false, err
	}
	if len(chunks) == 0 {
		return "", false, nil
	}

	summary, err := a.runner.Run(ctx, buildSourceSummaryPrompt(chunks), model)
	if err != nil {
		return "", false, err
	}
	return summary, true, nil
}

// displaySource shortens sources under the internal mount prefix to their
// base name; other sources (URLs, external paths) pass through unchanged.
func (a *Assembler) displaySource(source string) string {
	if a.mountPrefix != "" && strings.HasPrefix(source, a.mountPrefix) {
		return filepath.Base(source)
	}
	return source
}
