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


package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/ratatoskr/core"
	"github.com/poiesic/ratatoskr/storage"
)

// maxWorkers bounds the dispatch pool regardless of core count; pipeline
// runs spend most of their time waiting on the model runtime.
const maxWorkers = 8

const defaultModel = "llama3"

// Submission is one query handed to the dispatcher. QueryID and Model are
// optional; the dispatcher fills them in.
type Submission struct {
	QueryID        string
	User           string
	Session        string
	Query          string
	Model          string
	UseRAGDatabase bool
}

// Receipt acknowledges a scheduled submission. The status is always
// submitted; callers observe later states through GetStatus.
type Receipt struct {
	QueryID string
	Status  core.QueryStatus
}

// Dispatcher accepts query submissions, schedules pipeline runs on a
// bounded worker pool, and answers status lookups.
type Dispatcher struct {
	pipeline     *Pipeline
	queryRepo    storage.QueryRepository
	pool         *ants.Pool
	defaultModel string
	logger       *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher) error

// WithPoolSize sets the worker pool size.
// Default is min(NumCPU, 8).
func WithPoolSize(size int) DispatcherOption {
	return func(d *Dispatcher) error {
		if size < 1 {
			size = 1
		}
		if d.pool != nil {
			d.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		d.pool = pool
		return nil
	}
}

// WithDefaultModel sets the model used when a submission names none.
func WithDefaultModel(model string) DispatcherOption {
	return func(d *Dispatcher) error {
		if model != "" {
			d.defaultModel = model
		}
		return nil
	}
}

// WithDispatcherLogger sets a custom logger.
// Default is slog.Default().
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		return nil
	}
}

// NewDispatcher creates a new dispatcher running queries through p.
func NewDispatcher(p *Pipeline, queryRepo storage.QueryRepository, opts ...DispatcherOption) (*Dispatcher, error) {
	if p == nil {
		return nil, ErrPipelineRequired
	}
	if queryRepo == nil {
		return nil, ErrQueryRepositoryRequired
	}

	size := runtime.NumCPU()
	if size > maxWorkers {
		size = maxWorkers
	}
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		pipeline:     p,
		queryRepo:    queryRepo,
		pool:         pool,
		defaultModel: defaultModel,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(d); optErr != nil {
			d.Release()
			return nil, optErr
		}
	}

	return d, nil
}

// Submit validates sub, assigns a query_id when none is given, schedules a
// pipeline run, and returns immediately. The run itself executes on the
// worker pool with its own context; cancelling the submission context does
// not cancel the run.
func (d *Dispatcher) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	if sub.Query == "" {
		return Receipt{}, core.ErrEmptyQuery
	}

	queryID := sub.QueryID
	if queryID == "" {
		queryID = uuid.NewString()
	}

	model := sub.Model
	if model == "" {
		model = d.defaultModel
	}

	record := &core.QueryRecord{
		QueryID:        queryID,
		User:           sub.User,
		Session:        sub.Session,
		Query:          sub.Query,
		Model:          model,
		Status:         core.StatusSubmitted,
		UseRAGDatabase: sub.UseRAGDatabase,
	}

	err := d.pool.Submit(func() {
		d.pipeline.Run(context.Background(), record)
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	d.logger.Debug("query scheduled", "query_id", queryID, "session", sub.Session, "model", model)
	return Receipt{QueryID: queryID, Status: core.StatusSubmitted}, nil
}

// GetStatus returns the record matching queryID exactly, in whatever state
// it currently holds (processing, completed, or error). Returns
// storage.ErrNotFound for unknown IDs, and for scheduled runs that have not
// yet made their processing write.
func (d *Dispatcher) GetStatus(ctx context.Context, queryID string) (*core.QueryRecord, error) {
	return d.queryRepo.GetByQueryID(ctx, queryID)
}

// Release releases the worker pool. In-flight runs finish; queued runs are
// discarded. The dispatcher should not be used after calling Release.
func (d *Dispatcher) Release() {
	if d.pool != nil {
		d.pool.Release()
	}
}
