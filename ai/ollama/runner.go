package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/ratatoskr/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Runner implements ai.Runner against an Ollama-compatible runtime.
//
// It holds at most one active session at a time, represented explicitly as
// the {boundModel, session} pair. ensureBound re-creates the session when
// the requested model differs from the bound one (swap-on-demand, not
// pooled per model).
type Runner struct {
	host    string
	timeout time.Duration
	logger  *slog.Logger

	mu         sync.Mutex
	boundModel string
	session    *ollama.LLM
}

// newRunner is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newRunner(config *ai.Config) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Runner{
		host:    config.Host,
		timeout: config.Timeout,
		logger:  slog.Default().With("component", "ollama-runner"),
	}, nil
}

// NewRunner creates a new runner using the provided configuration.
//
// Returns ai.Runner interface to enforce abstraction.
func NewRunner(config *ai.Config) (ai.Runner, error) {
	return newRunner(config)
}

// ensureBound returns the session for model, creating or swapping it as needed.
func (r *Runner) ensureBound(model string) (*ollama.LLM, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil && r.boundModel == model {
		return r.session, nil
	}

	session, err := ollama.New(
		ollama.WithServerURL(r.host),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrNotConfigured, err)
	}

	r.logger.Debug("bound model session", "model", model, "previous", r.boundModel)
	r.session = session
	r.boundModel = model
	return session, nil
}

// Run sends prompt to the runtime and returns the generated text.
func (r *Runner) Run(ctx context.Context, prompt, model string) (string, error) {
	session, err := r.ensureBound(model)
	if err != nil {
		r.logger.Error("failed to bind model session", "model", model, "err", err)
		return "", err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	answer, err := llms.GenerateFromSinglePrompt(ctx, session, prompt)
	if err != nil {
		r.logger.Error("model call failed", "model", model, "err", err)
		return "", fmt.Errorf("%w: %w", ai.ErrModelInvocation, err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		r.logger.Warn("model returned empty response", "model", model)
		return "", ai.ErrEmptyResponse
	}

	return answer, nil
}
