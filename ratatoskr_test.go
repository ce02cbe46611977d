package ratatoskr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/ratatoskr/ai/mock"
	"github.com/poiesic/ratatoskr/core"
	"github.com/poiesic/ratatoskr/pipeline"
	"github.com/poiesic/ratatoskr/storage"
)

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()

	all := append([]ServiceOption{
		WithInMemoryStore(),
		WithProvider(mock.NewMockProvider()),
		WithQueryWorkers(2),
	}, opts...)

	svc, err := NewService("", all...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func awaitTerminal(t *testing.T, svc *Service, queryID string) *core.QueryRecord {
	t.Helper()
	var record *core.QueryRecord
	require.Eventually(t, func() bool {
		r, err := svc.GetStatus(context.Background(), queryID)
		if err != nil || !r.Status.Terminal() {
			return false
		}
		record = r
		return true
	}, 5*time.Second, 10*time.Millisecond)
	return record
}

func TestServiceQueryRoundTrip(t *testing.T) {
	svc := newTestService(t)

	receipt, err := svc.SubmitQuery(context.Background(), pipeline.Submission{
		Query:   "what is the capital of France?",
		Session: "sess-1",
	})
	require.NoError(t, err)
	assert.Equal(t, core.StatusSubmitted, receipt.Status)

	record := awaitTerminal(t, svc, receipt.QueryID)
	assert.Equal(t, core.StatusCompleted, record.Status)
	assert.NotEmpty(t, record.Response)
}

func TestServiceGetStatusNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetStatus(context.Background(), "never-submitted")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestServiceIngestAndSearch(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.IngestText(context.Background(), "badgers are burrowing mammals", "facts.txt"))

	hits, err := svc.SearchBySimilarity(context.Background(), "burrowing mammals")
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "facts.txt", hits[0].Source)
}

func TestServiceSummarizeBySourceOmitsUnknown(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.IngestText(context.Background(), "chapter one of the saga", "saga.txt"))

	summaries, err := svc.SummarizeBySource(context.Background(), []string{"saga.txt", "missing.txt"}, "")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "saga.txt", summaries[0].Source)
	assert.NotEmpty(t, summaries[0].Summary)
}

func TestServiceWatchDirectoriesNoDirs(t *testing.T) {
	svc := newTestService(t)
	assert.NoError(t, svc.WatchDirectories(context.Background(), nil, nil))
}
