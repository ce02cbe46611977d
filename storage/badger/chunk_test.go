package badger

import (
	"context"
	"testing"

	"github.com/poiesic/ratatoskr/core"
)

func TestChunkUpsertByContentHash(t *testing.T) {
	queryRepo, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); queryRepo.Close(); backend.Close() }()

	ctx := context.Background()

	first, err := chunkRepo.AddChunks(ctx, &core.ContextChunk{Content: "the same text", Source: "a.txt"})
	if err != nil {
		t.Fatalf("Failed to add chunk: %v", err)
	}
	second, err := chunkRepo.AddChunks(ctx, &core.ContextChunk{Content: "the same text", Source: "a.txt"})
	if err != nil {
		t.Fatalf("Failed to re-add chunk: %v", err)
	}
	if first[0].Id != second[0].Id {
		t.Fatalf("Identical content produced different IDs: %d vs %d", first[0].Id, second[0].Id)
	}

	chunks, err := chunkRepo.GetBySource(ctx, "a.txt")
	if err != nil {
		t.Fatalf("Failed to get by source: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 deduplicated chunk, got %d", len(chunks))
	}
}

func TestFindSimilarOrderingAndBound(t *testing.T) {
	queryRepo, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); queryRepo.Close(); backend.Close() }()

	ctx := context.Background()

	_, err = chunkRepo.AddChunks(ctx,
		&core.ContextChunk{Content: "exact", Source: "a", Vector: []float32{1, 0, 0}},
		&core.ContextChunk{Content: "close", Source: "b", Vector: []float32{0.9, 0.1, 0}},
		&core.ContextChunk{Content: "far", Source: "c", Vector: []float32{0, 0, 1}},
		&core.ContextChunk{Content: "no vector yet", Source: "d"},
	)
	if err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}

	hits, err := chunkRepo.FindSimilar(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Failed to find similar chunks: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Expected k=2 hits, got %d", len(hits))
	}
	if hits[0].Content != "exact" || hits[1].Content != "close" {
		t.Fatalf("Hits not ordered nearest-first: %q, %q", hits[0].Content, hits[1].Content)
	}
	if hits[0].Score < hits[1].Score {
		t.Fatalf("Scores not descending: %f < %f", hits[0].Score, hits[1].Score)
	}
}

func TestGetBySourceNoPrefixBleed(t *testing.T) {
	queryRepo, chunkRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); queryRepo.Close(); backend.Close() }()

	ctx := context.Background()
	_, err = chunkRepo.AddChunks(ctx,
		&core.ContextChunk{Content: "one", Source: "report.pdf"},
		&core.ContextChunk{Content: "two", Source: "report.pdf.bak"},
	)
	if err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}

	chunks, err := chunkRepo.GetBySource(ctx, "report.pdf")
	if err != nil {
		t.Fatalf("Failed to get by source: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Content != "one" {
		t.Fatalf("Source match leaked across prefixes: %+v", chunks)
	}
}
