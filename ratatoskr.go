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


package ratatoskr

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/ratatoskr/ai"
	"github.com/poiesic/ratatoskr/ai/ollama"
	"github.com/poiesic/ratatoskr/assembler"
	"github.com/poiesic/ratatoskr/config"
	"github.com/poiesic/ratatoskr/core"
	"github.com/poiesic/ratatoskr/ingestion"
	"github.com/poiesic/ratatoskr/pipeline"
	"github.com/poiesic/ratatoskr/storage"
	"github.com/poiesic/ratatoskr/storage/badger"
)

// Service aggregates the query pipeline, the retrieval index, and the
// ingestion machinery over one document store and one model runtime.
type Service struct {
	backend    *badger.Backend
	queryRepo  storage.QueryRepository
	chunkRepo  storage.ChunkRepository
	provider   ai.AIProvider
	assembler  *assembler.Assembler
	pipeline   *pipeline.Pipeline
	dispatcher *pipeline.Dispatcher
	ingestion  *ingestion.Pipeline
	watcher    *ingestion.Watcher

	defaultModel string
	logger       *slog.Logger
}

// SourceSummary is one summarize-by-source result.
type SourceSummary struct {
	Source  string `json:"source"`
	Summary string `json:"document_summary"`
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig         *ai.Config
	provider         ai.AIProvider
	inMemory         bool
	defaultModel     string
	queryWorkers     int
	topK             int
	minContentLength int
	mountPrefix      string
	responseFeedback bool
	ingestWorkers    int
	chunkSize        int
	chunkOverlap     int
}

// WithAIConfig sets the model runtime configuration.
func WithAIConfig(cfg *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithProvider injects a pre-built AI provider, bypassing WithAIConfig.
func WithProvider(provider ai.AIProvider) ServiceOption {
	return func(o *serviceOptions) { o.provider = provider }
}

// WithInMemoryStore keeps the document store in memory. For tests.
func WithInMemoryStore() ServiceOption {
	return func(o *serviceOptions) { o.inMemory = true }
}

// WithDefaultModel sets the model used when a submission names none.
func WithDefaultModel(model string) ServiceOption {
	return func(o *serviceOptions) { o.defaultModel = model }
}

// WithQueryWorkers sets the dispatch pool size.
func WithQueryWorkers(n int) ServiceOption {
	return func(o *serviceOptions) { o.queryWorkers = n }
}

// WithTopK sets the similarity search result bound.
func WithTopK(k int) ServiceOption {
	return func(o *serviceOptions) { o.topK = k }
}

// WithMinContentLength sets the RAG candidate length threshold.
func WithMinContentLength(n int) ServiceOption {
	return func(o *serviceOptions) { o.minContentLength = n }
}

// WithMountPrefix sets the mount-path prefix for source display normalization.
func WithMountPrefix(prefix string) ServiceOption {
	return func(o *serviceOptions) { o.mountPrefix = prefix }
}

// WithResponseFeedback feeds completed responses back into the retrieval index.
func WithResponseFeedback() ServiceOption {
	return func(o *serviceOptions) { o.responseFeedback = true }
}

// WithIngestionWorkers sets the ingestion pool size.
func WithIngestionWorkers(n int) ServiceOption {
	return func(o *serviceOptions) { o.ingestWorkers = n }
}

// WithChunking sets the ingestion chunk size and overlap.
func WithChunking(size, overlap int) ServiceOption {
	return func(o *serviceOptions) {
		o.chunkSize = size
		o.chunkOverlap = overlap
	}
}

// NewService opens the document store at filePath and wires the full stack.
func NewService(filePath string, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	queryRepo, err := badger.NewQueryRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunkRepo, err := badger.NewChunkRepository(backend)
	if err != nil {
		queryRepo.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = ollama.NewProvider(options.aiConfig)
		if err != nil {
			chunkRepo.Close()
			queryRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	teardown := func() {
		provider.Close()
		chunkRepo.Close()
		queryRepo.Close()
		backend.Close()
	}

	var assemblerOpts []assembler.Option
	if options.topK > 0 {
		assemblerOpts = append(assemblerOpts, assembler.WithTopK(options.topK))
	}
	if options.minContentLength > 0 {
		assemblerOpts = append(assemblerOpts, assembler.WithMinContentLength(options.minContentLength))
	}
	if options.mountPrefix != "" {
		assemblerOpts = append(assemblerOpts, assembler.WithMountPrefix(options.mountPrefix))
	}
	asm, err := assembler.NewAssembler(queryRepo, chunkRepo, provider, assemblerOpts...)
	if err != nil {
		teardown()
		return nil, err
	}

	var pipelineOpts []pipeline.Option
	if options.responseFeedback {
		pipelineOpts = append(pipelineOpts, pipeline.WithResponseFeedback(chunkRepo))
	}
	pipe, err := pipeline.NewPipeline(queryRepo, asm, provider, pipelineOpts...)
	if err != nil {
		teardown()
		return nil, err
	}

	var dispatcherOpts []pipeline.DispatcherOption
	if options.queryWorkers > 0 {
		dispatcherOpts = append(dispatcherOpts, pipeline.WithPoolSize(options.queryWorkers))
	}
	if options.defaultModel != "" {
		dispatcherOpts = append(dispatcherOpts, pipeline.WithDefaultModel(options.defaultModel))
	}
	dispatcher, err := pipeline.NewDispatcher(pipe, queryRepo, dispatcherOpts...)
	if err != nil {
		teardown()
		return nil, err
	}

	var ingestionOpts []ingestion.Option
	if options.ingestWorkers > 0 {
		ingestionOpts = append(ingestionOpts, ingestion.WithPoolSize(options.ingestWorkers))
	}
	if options.chunkSize > 0 {
		ingestionOpts = append(ingestionOpts, ingestion.WithChunking(options.chunkSize, options.chunkOverlap))
	}
	ingest, err := ingestion.NewPipeline(chunkRepo, provider, ingestionOpts...)
	if err != nil {
		dispatcher.Release()
		teardown()
		return nil, err
	}

	defaultModel := options.defaultModel
	if defaultModel == "" {
		defaultModel = "llama3"
	}

	return &Service{
		backend:      backend,
		queryRepo:    queryRepo,
		chunkRepo:    chunkRepo,
		provider:     provider,
		assembler:    asm,
		pipeline:     pipe,
		dispatcher:   dispatcher,
		ingestion:    ingest,
		defaultModel: defaultModel,
		logger:       slog.Default().With("component", "service"),
	}, nil
}

// NewServiceFromConfig wires a Service from a loaded configuration file.
func NewServiceFromConfig(cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(cfg.Ollama.BaseURL),
		ai.WithEmbeddingModel(cfg.Ollama.EmbeddingModel),
		ai.WithTimeout(time.Duration(cfg.Ollama.TimeoutSeconds)*time.Second),
	)

	all := []ServiceOption{
		WithAIConfig(aiConfig),
		WithDefaultModel(cfg.Ollama.DefaultModel),
		WithQueryWorkers(cfg.Pipeline.Workers),
		WithTopK(cfg.Pipeline.TopK),
		WithMinContentLength(cfg.Pipeline.MinContentLength),
		WithMountPrefix(cfg.Pipeline.MountPrefix),
		WithIngestionWorkers(cfg.Ingestion.Workers),
		WithChunking(cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap),
	}
	if cfg.Pipeline.ResponseFeedback {
		all = append(all, WithResponseFeedback())
	}
	all = append(all, opts...)

	return NewService(cfg.Storage.Path, all...)
}

// SubmitQuery schedules a query for asynchronous processing and returns
// its receipt immediately.
func (s *Service) SubmitQuery(ctx context.Context, sub pipeline.Submission) (pipeline.Receipt, error) {
	return s.dispatcher.Submit(ctx, sub)
}

// GetStatus returns the current record for queryID, in whatever state it
// holds. Returns storage.ErrNotFound for unknown IDs.
func (s *Service) GetStatus(ctx context.Context, queryID string) (*core.QueryRecord, error) {
	return s.dispatcher.GetStatus(ctx, queryID)
}

// SearchBySimilarity returns the indexed chunks nearest to query, with
// display-normalized sources.
func (s *Service) SearchBySimilarity(ctx context.Context, query string) ([]*core.SimilarityHit, error) {
	return s.assembler.SearchSimilar(ctx, query)
}

// SummarizeBySource summarizes the indexed content of each named source
// through the model. Sources with no indexed chunks are omitted from the
// result. An empty model falls back to the service default.
func (s *Service) SummarizeBySource(ctx context.Context, sources []string, model string) ([]SourceSummary, error) {
	if model == "" {
		model = s.defaultModel
	}

	summaries := make([]SourceSummary, 0, len(sources))
	for _, source := range sources {
		summary, ok, err := s.assembler.SummarizeSource(ctx, source, model)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		summaries = append(summaries, SourceSummary{Source: source, Summary: summary})
	}
	return summaries, nil
}

// IngestFile indexes one file into the retrieval index.
func (s *Service) IngestFile(ctx context.Context, path string) error {
	return s.ingestion.IngestFile(ctx, path)
}

// IngestURL fetches and indexes one page into the retrieval index.
func (s *Service) IngestURL(ctx context.Context, url string) error {
	return s.ingestion.IngestURL(ctx, url)
}

// IngestText indexes raw content under the given source.
func (s *Service) IngestText(ctx context.Context, content, source string) error {
	return s.ingestion.IngestText(ctx, content, source)
}

// WatchDirectories starts background ingestion of files dropped into dirs,
// including files already present. No-op when dirs is empty.
func (s *Service) WatchDirectories(ctx context.Context, dirs, extensions []string) error {
	if len(dirs) == 0 {
		return nil
	}

	watcher := ingestion.NewWatcher(dirs, extensions, s.ingestion.Enqueue)
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	watcher.SyncExisting()
	s.watcher = watcher
	return nil
}

// Close stops background work and releases the store. In-flight pipeline
// runs finish; queued ones are discarded.
func (s *Service) Close() error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	s.dispatcher.Release()
	s.ingestion.Release()

	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.chunkRepo.Close(); err != nil {
		s.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := s.queryRepo.Close(); err != nil {
		s.logger.Error("error closing query repository", "err", err)
		return err
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
