package ingestion

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/panjf2000/ants/v2"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/poiesic/ratatoskr/ai"
	"github.com/poiesic/ratatoskr/core"
	"github.com/poiesic/ratatoskr/storage"
)

// Pipeline turns documents into indexed context chunks: load, split, embed,
// upsert. Chunk IDs are content-derived, so re-ingesting an unchanged
// document updates in place instead of duplicating.
type Pipeline struct {
	chunkRepo  storage.ChunkRepository
	embedder   ai.Embedder
	pool       *ants.Pool
	splitter   textsplitter.RecursiveCharacter
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for background ingestion.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

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

// WithChunking sets the splitter chunk size and overlap.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		if size > 0 && overlap >= 0 && overlap < size {
			p.splitter = newSplitter(size, overlap)
		}
		return nil
	}
}

// WithHTTPClient sets the client used for URL ingestion.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Pipeline) error {
		if client != nil {
			p.httpClient = client
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	chunkRepo storage.ChunkRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if chunkRepo == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		chunkRepo:  chunkRepo,
		embedder:   provider.Embedder(),
		pool:       pool,
		splitter:   newSplitter(chunkSize, chunkOverlap),
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// IngestFile loads one file, chooses the loader by extension, and indexes
// its chunks under the file path as source.
func (p *Pipeline) IngestFile(ctx context.Context, path string) error {
	docs, err := loadFile(ctx, path, p.splitter)
	if err != nil {
		return err
	}
	return p.store(ctx, docs, path)
}

// IngestURL fetches a page and indexes its chunks under the URL as source.
func (p *Pipeline) IngestURL(ctx context.Context, url string) error {
	docs, err := loadURL(ctx, p.httpClient, url, p.splitter)
	if err != nil {
		return err
	}
	return p.store(ctx, docs, url)
}

// IngestText indexes raw content under the given source, for callers that
// already hold the bytes (uploads).
func (p *Pipeline) IngestText(ctx context.Context, content, source string) error {
	docs, err := loadText(ctx, content, p.splitter)
	if err != nil {
		return err
	}
	return p.store(ctx, docs, source)
}

// Enqueue schedules IngestFile on the worker pool. Errors are logged, not
// returned; this is the entry point for watcher-driven ingestion.
func (p *Pipeline) Enqueue(path string) {
	err := p.pool.Submit(func() {
		if err := p.IngestFile(context.Background(), path); err != nil {
			p.logger.Error("background ingestion failed", "path", path, "err", err)
			return
		}
		p.logger.Info("ingested", "path", path)
	})
	if err != nil {
		p.logger.Error("could not schedule ingestion", "path", path, "err", err)
	}
}

// store embeds split documents and upserts them as chunks.
func (p *Pipeline) store(ctx context.Context, docs []schema.Document, source string) error {
	contents := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.PageContent == "" {
			continue
		}
		contents = append(contents, doc.PageContent)
	}
	if len(contents) == 0 {
		return ErrEmptyDocument
	}

	vectors, err := p.embedder.EmbedTexts(ctx, contents)
	if err != nil {
		return err
	}

	chunks := make([]*core.ContextChunk, len(contents))
	for i, content := range contents {
		chunk := &core.ContextChunk{
			Content: content,
			Source:  source,
		}
		if i < len(vectors) {
			chunk.Vector = vectors[i]
		}
		chunks[i] = chunk
	}

	stored, err := p.chunkRepo.AddChunks(ctx, chunks...)
	if err != nil {
		return err
	}

	p.logger.Debug("chunks indexed", "source", source, "count", len(stored))
	return nil
}

// Release releases the worker pool. The pipeline should not be used after
// calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
