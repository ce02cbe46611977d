package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/ratatoskr/core"
	"github.com/poiesic/ratatoskr/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &ChunkRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *ChunkRepository) Close() error {
	return nil
}

// AddChunks upserts context chunks keyed by their content-derived IDs.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.ContextChunk) ([]*core.ContextChunk, error) {
	for _, chunk := range chunks {
		if err := core.ValidateContextChunk(chunk); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if chunk.Id == 0 {
				chunk.Id = core.IDFromContent(chunk.Content)
			}
			if chunk.InsertedAt.IsZero() {
				chunk.InsertedAt = time.Now().UTC()
			}

			key := makeChunkRecordKey(chunk.Id)
			if err := tx.Set(key, storage.MarshalContextChunk(chunk)); err != nil {
				return err
			}

			if chunk.Source != "" {
				if err := tx.Set(makeSourceKey(chunk.Source, chunk.Id), nil); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, asStorageError(err)
	}

	return chunks, nil
}

// FindSimilar finds the k chunks nearest to the given vector,
// ordered by similarity score descending.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, k int) ([]*core.SimilarityHit, error) {
	var hits []*core.SimilarityHit

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.ContextChunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalContextChunk(val)
				return err
			})
			if err != nil {
				return err
			}

			// Skip chunks without embeddings
			if chunk == nil || len(chunk.Vector) == 0 {
				continue
			}

			hits = append(hits, &core.SimilarityHit{
				Content: chunk.Content,
				Source:  chunk.Source,
				Score:   cosineSimilarity(vector, chunk.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, asStorageError(err)
	}

	// Sort by similarity descending
	slices.SortFunc(hits, func(a, b *core.SimilarityHit) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(hits) > k {
		hits = hits[:k]
	}

	return hits, nil
}

// GetBySource retrieves all chunks originating from the given source.
func (r *ChunkRepository) GetBySource(ctx context.Context, source string) ([]*core.ContextChunk, error) {
	var chunks []*core.ContextChunk

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialSourceKey(source)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix)+8 {
				continue
			}
			id := core.ID(binary.BigEndian.Uint64(key[len(prefix):]))

			item, err := tx.Get(makeChunkRecordKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				// stale index entry, skip
				continue
			}
			if err != nil {
				return err
			}

			err = item.Value(func(val []byte) error {
				chunk, err := storage.UnmarshalContextChunk(val)
				if err != nil {
					return err
				}
				chunks = append(chunks, chunk)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, asStorageError(err)
	}

	return chunks, nil
}

// cosineSimilarity calculates the cosine similarity of two vectors.
// Returns 0 for mismatched or zero-magnitude vectors.
func cosineSimilarity(a, b []float32) float32 {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}

	var dot, magA, magB float64
	for i := 0; i < minLen; i++ {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(magA) * math.Sqrt(magB)))
}
