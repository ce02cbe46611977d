package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/ratatoskr/ai/mock"
	"github.com/poiesic/ratatoskr/assembler"
	"github.com/poiesic/ratatoskr/core"
	"github.com/poiesic/ratatoskr/storage"
	"github.com/poiesic/ratatoskr/storage/badger"
)

type env struct {
	pipeline   *Pipeline
	dispatcher *Dispatcher
	queryRepo  storage.QueryRepository
	chunkRepo  storage.ChunkRepository
	runner     *mock.MockRunner
	cleanup    func()
}

func newEnv(t *testing.T, pipelineOpts ...Option) *env {
	t.Helper()

	queryRepo, chunkRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)

	runner := mock.NewMockRunner()
	provider := mock.NewMockProviderWithServices(runner, mock.NewMockEmbedder())

	a, err := assembler.NewAssembler(queryRepo, chunkRepo, provider)
	require.NoError(t, err)

	p, err := NewPipeline(queryRepo, a, provider, pipelineOpts...)
	require.NoError(t, err)

	d, err := NewDispatcher(p, queryRepo, WithPoolSize(2))
	require.NoError(t, err)

	return &env{
		pipeline:   p,
		dispatcher: d,
		queryRepo:  queryRepo,
		chunkRepo:  chunkRepo,
		runner:     runner,
		cleanup: func() {
			d.Release()
			chunkRepo.Close()
			queryRepo.Close()
			backend.Close()
		},
	}
}

func awaitTerminal(t *testing.T, d *Dispatcher, queryID string) *core.QueryRecord {
	t.Helper()
	var record *core.QueryRecord
	require.Eventually(t, func() bool {
		r, err := d.GetStatus(context.Background(), queryID)
		if err != nil || !r.Status.Terminal() {
			return false
		}
		record = r
		return true
	}, 5*time.Second, 10*time.Millisecond, "query never reached a terminal state")
	return record
}

func TestSubmitReturnsImmediatelyWithSubmittedStatus(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	receipt, err := e.dispatcher.Submit(context.Background(), Submission{Query: "what is rust?"})
	require.NoError(t, err)

	assert.NotEmpty(t, receipt.QueryID)
	assert.Equal(t, core.StatusSubmitted, receipt.Status)

	awaitTerminal(t, e.dispatcher, receipt.QueryID)
}

func TestSubmitRejectsEmptyQuery(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	_, err := e.dispatcher.Submit(context.Background(), Submission{Session: "sess"})
	assert.ErrorIs(t, err, core.ErrEmptyQuery)
}

func TestSubmitPreservesCallerQueryID(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	receipt, err := e.dispatcher.Submit(context.Background(), Submission{
		QueryID: "caller-chosen-id",
		Query:   "what is go?",
	})
	require.NoError(t, err)
	assert.Equal(t, "caller-chosen-id", receipt.QueryID)

	record := awaitTerminal(t, e.dispatcher, "caller-chosen-id")
	assert.Equal(t, "caller-chosen-id", record.QueryID)
}

func TestSuccessfulRunCompletesRecord(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	e.runner.RunFunc = func(ctx context.Context, prompt, model string) (string, error) {
		return "the answer", nil
	}

	receipt, err := e.dispatcher.Submit(context.Background(), Submission{
		Query:   "what is go?",
		Session: "sess-1",
		Model:   "mistral",
	})
	require.NoError(t, err)

	record := awaitTerminal(t, e.dispatcher, receipt.QueryID)
	assert.Equal(t, core.StatusCompleted, record.Status)
	assert.Equal(t, "the answer", record.Response)
	assert.Empty(t, record.Error)
	assert.Equal(t, "mistral", record.Model)
	assert.Equal(t, "what is go?", record.Query)
}

func TestModelFailureLandsRecordInError(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	e.runner.RunFunc = func(ctx context.Context, prompt, model string) (string, error) {
		return "", errors.New("runtime unreachable")
	}

	receipt, err := e.dispatcher.Submit(context.Background(), Submission{Query: "doomed"})
	require.NoError(t, err)

	record := awaitTerminal(t, e.dispatcher, receipt.QueryID)
	assert.Equal(t, core.StatusError, record.Status)
	assert.Empty(t, record.Response)
	assert.Contains(t, record.Error, "runtime unreachable")
}

func TestGetStatusUnknownIDReturnsNotFound(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	_, err := e.dispatcher.GetStatus(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDefaultModelAppliedWhenMissing(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	receipt, err := e.dispatcher.Submit(context.Background(), Submission{Query: "untyped"})
	require.NoError(t, err)

	record := awaitTerminal(t, e.dispatcher, receipt.QueryID)
	assert.Equal(t, defaultModel, record.Model)
}

func TestTerminalStateIsStable(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	receipt, err := e.dispatcher.Submit(context.Background(), Submission{Query: "stable?"})
	require.NoError(t, err)

	first := awaitTerminal(t, e.dispatcher, receipt.QueryID)

	// a competing terminal write must not move the record
	err = e.queryRepo.UpdateByQueryID(context.Background(), receipt.QueryID, storage.TerminalUpdate{
		Status: core.StatusError,
		Error:  "late failure",
	})
	assert.ErrorIs(t, err, storage.ErrInvalidUpdate)

	second, err := e.dispatcher.GetStatus(context.Background(), receipt.QueryID)
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Response, second.Response)
}

func TestContextBranchesRecordedOnTerminalRecord(t *testing.T) {
	e := newEnv(t)
	defer e.cleanup()

	// a prior completed turn gives the session branch something to summarize
	_, err := e.queryRepo.StoreQuery(context.Background(), &core.QueryRecord{
		QueryID:   "prior-turn",
		Session:   "sess-ctx",
		Query:     "earlier question",
		Model:     "llama3",
		Status:    core.StatusCompleted,
		Response:  "earlier answer",
		Timestamp: time.Now().UTC().Add(-time.Minute),
	})
	require.NoError(t, err)

	receipt, err := e.dispatcher.Submit(context.Background(), Submission{
		Query:   "follow-up question",
		Session: "sess-ctx",
	})
	require.NoError(t, err)

	record := awaitTerminal(t, e.dispatcher, receipt.QueryID)
	assert.Equal(t, core.StatusCompleted, record.Status)
	assert.Equal(t, []string{"session"}, record.ContextBranches)
}

func TestResponseFeedbackStoresChunks(t *testing.T) {
	queryRepo, chunkRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	runner := mock.NewMockRunner()
	runner.RunFunc = func(ctx context.Context, prompt, model string) (string, error) {
		return strings.Repeat("useful answer text ", 10), nil
	}
	provider := mock.NewMockProviderWithServices(runner, mock.NewMockEmbedder())

	a, err := assembler.NewAssembler(queryRepo, chunkRepo, provider)
	require.NoError(t, err)

	p, err := NewPipeline(queryRepo, a, provider, WithResponseFeedback(chunkRepo))
	require.NoError(t, err)

	record := &core.QueryRecord{
		QueryID: "fed-back",
		Query:   "what now?",
		Model:   "llama3",
		Status:  core.StatusSubmitted,
	}
	p.Run(context.Background(), record)

	stored, err := queryRepo.GetByQueryID(context.Background(), "fed-back")
	require.NoError(t, err)
	require.Equal(t, core.StatusCompleted, stored.Status)

	chunks, err := chunkRepo.GetBySource(context.Background(), "response:fed-back")
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.NotEmpty(t, chunk.Vector)
	}
}

func TestFeedbackFailureDoesNotChangeOutcome(t *testing.T) {
	queryRepo, chunkRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	runner := mock.NewMockRunner()
	embedder := mock.NewMockEmbedder()
	provider := mock.NewMockProviderWithServices(runner, embedder)

	a, err := assembler.NewAssembler(queryRepo, chunkRepo, provider)
	require.NoError(t, err)

	p, err := NewPipeline(queryRepo, a, provider, WithResponseFeedback(chunkRepo))
	require.NoError(t, err)

	// the run's own prompt assembly never embeds (no RAG, no session), so
	// only the feedback path hits this failure
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}

	record := &core.QueryRecord{
		QueryID: "feedback-fails",
		Query:   "what now?",
		Model:   "llama3",
		Status:  core.StatusSubmitted,
	}
	p.Run(context.Background(), record)

	stored, err := queryRepo.GetByQueryID(context.Background(), "feedback-fails")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, stored.Status)
	assert.NotEmpty(t, stored.Response)
}
