package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/ratatoskr/core"
	"github.com/poiesic/ratatoskr/storage"
)

// Store-assigned result tokens for upserts.
const (
	ResultCreated = "created"
	ResultUpdated = "updated"
)

// QueryRepository implements storage.QueryRepository for BadgerDB.
type QueryRepository struct {
	backend *Backend
}

var _ storage.QueryRepository = (*QueryRepository)(nil)

// NewQueryRepository creates a new QueryRepository.
func NewQueryRepository(backend *Backend) (*QueryRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &QueryRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *QueryRepository) Close() error {
	return nil
}

// StoreQuery upserts a record keyed by its QueryID.
func (r *QueryRepository) StoreQuery(ctx context.Context, record *core.QueryRecord) (string, error) {
	if err := core.ValidateQueryRecord(record); err != nil {
		return "", err
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	result := ResultCreated
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeQueryRecordKey(record.QueryID)

		_, err := tx.Get(key)
		switch {
		case err == nil:
			result = ResultUpdated
		case errors.Is(err, badger.ErrKeyNotFound):
			// first write for this query_id
		default:
			return err
		}

		if err := tx.Set(key, storage.MarshalQueryRecord(record)); err != nil {
			return err
		}

		if record.Session != "" {
			sessionKey := makeSessionKey(record.Session, record.Timestamp, record.QueryID)
			if err := tx.Set(sessionKey, []byte(record.QueryID)); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, true)
	if err != nil {
		return "", asStorageError(err)
	}

	return result, nil
}

// UpdateByQueryID applies a terminal update to the record matching queryID.
// The update is idempotent: re-applying an identical terminal update is a
// no-op, while an update that would move the record out of a different
// terminal state is refused.
func (r *QueryRepository) UpdateByQueryID(ctx context.Context, queryID string, update storage.TerminalUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeQueryRecordKey(queryID)
		record, err := readQueryRecord(tx, key)
		if err != nil {
			return err
		}
		if record == nil {
			return storage.ErrNotFound
		}

		if record.Status.Terminal() {
			if record.Status == update.Status &&
				record.Response == update.Response &&
				record.Error == update.Error {
				return nil // idempotent re-application
			}
			return fmt.Errorf("%w: record %s is already %s", storage.ErrInvalidUpdate, queryID, record.Status)
		}

		if !record.Status.CanTransitionTo(update.Status) {
			return fmt.Errorf("%w: %s -> %s", storage.ErrInvalidUpdate, record.Status, update.Status)
		}

		record.Status = update.Status
		record.Response = update.Response
		record.Error = update.Error
		record.ContextBranches = update.ContextBranches

		if err := tx.Set(key, storage.MarshalQueryRecord(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return asStorageError(err)
}

// GetByQueryID retrieves the record matching queryID exactly.
func (r *QueryRepository) GetByQueryID(ctx context.Context, queryID string) (*core.QueryRecord, error) {
	var record *core.QueryRecord

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		record, err = readQueryRecord(tx, makeQueryRecordKey(queryID))
		if err != nil {
			return err
		}
		if record == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	if err != nil {
		return nil, asStorageError(err)
	}

	return record, nil
}

// SearchBySession retrieves all records whose Session matches exactly,
// ordered by creation timestamp ascending.
func (r *QueryRepository) SearchBySession(ctx context.Context, session string) ([]*core.QueryRecord, error) {
	var records []*core.QueryRecord

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialSessionKey(session)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var queryID string
			err := iter.Item().Value(func(val []byte) error {
				queryID = string(val)
				return nil
			})
			if err != nil {
				return err
			}

			record, err := readQueryRecord(tx, makeQueryRecordKey(queryID))
			if err != nil {
				return err
			}
			if record == nil {
				// stale index entry, skip
				continue
			}
			records = append(records, record)
		}
		return nil
	}, false)
	if err != nil {
		return nil, asStorageError(err)
	}

	return records, nil
}

// readQueryRecord reads and unmarshals a record, returning nil when absent.
func readQueryRecord(tx *badger.Txn, key []byte) (*core.QueryRecord, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var record *core.QueryRecord
	err = item.Value(func(val []byte) error {
		record, err = storage.UnmarshalQueryRecord(val)
		return err
	})
	return record, err
}

// asStorageError maps backend failures onto the single distinguished
// connectivity error kind, leaving domain errors untouched.
func asStorageError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, storage.ErrInvalidUpdate) ||
		errors.Is(err, storage.ErrSerializationFailed) {
		return err
	}
	if errors.Is(err, badger.ErrDBClosed) {
		return fmt.Errorf("%w: %w", storage.ErrStorageClosed, err)
	}
	return fmt.Errorf("%w: %w", storage.ErrConnection, err)
}
