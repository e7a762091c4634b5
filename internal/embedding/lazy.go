package embedding

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// LoadFunc constructs the embedding model.
type LoadFunc func() (Embedder, error)

// ModelLoadError reports that the embedding model could not be initialized.
type ModelLoadError struct {
	Err error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("embedding model load failed: %v", e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// LazyModel is the process-wide holder of the embedding model. The model is loaded on
// the first Get, shared by every later Get, and released by Close at process exit.
// Loading happens under the lock, so concurrent first callers wait for one load instead
// of racing their own. A failed load leaves the cell empty and the next Get retries.
type LazyModel struct {
	mu       sync.Mutex
	load     LoadFunc
	model    Embedder
	attempts int
	lastErr  error
	onLoad   func(err error)
	logger   *zap.Logger
}

// LazyOption configures a LazyModel.
type LazyOption func(*LazyModel)

// WithLogger sets a logger for load events.
func WithLogger(l *zap.Logger) LazyOption {
	return func(m *LazyModel) { m.logger = l }
}

// WithLoadHook registers a callback invoked after every load attempt with its error (nil on success).
func WithLoadHook(fn func(err error)) LazyOption {
	return func(m *LazyModel) { m.onLoad = fn }
}

// NewLazyModel returns an empty cell that loads with load on first use.
func NewLazyModel(load LoadFunc, opts ...LazyOption) *LazyModel {
	m := &LazyModel{load: load, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the loaded model, loading it first if needed. Failures are *ModelLoadError.
func (m *LazyModel) Get(ctx context.Context) (Embedder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.model != nil {
		return m.model, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, &ModelLoadError{Err: err}
	}
	m.attempts++
	model, err := m.safeLoad()
	if m.onLoad != nil {
		m.onLoad(err)
	}
	if err != nil {
		m.lastErr = err
		m.logger.Warn("embedding model load failed", zap.Int("attempt", m.attempts), zap.Error(err))
		return nil, &ModelLoadError{Err: err}
	}
	m.model = model
	m.lastErr = nil
	m.logger.Info("embedding model loaded", zap.Int("attempt", m.attempts), zap.Int("dimensions", model.Dimensions()))
	return model, nil
}

func (m *LazyModel) safeLoad() (model Embedder, err error) {
	defer func() {
		if r := recover(); r != nil {
			model, err = nil, fmt.Errorf("panic during model load: %v", r)
		}
	}()
	if m.load == nil {
		return nil, fmt.Errorf("no model loader configured")
	}
	model, err = m.load()
	if err == nil && model == nil {
		err = fmt.Errorf("model loader returned nil")
	}
	return model, err
}

// Loaded reports whether the model is currently loaded.
func (m *LazyModel) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model != nil
}

// Attempts returns the number of load attempts made so far.
func (m *LazyModel) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// LastError returns the error of the most recent failed load, or nil.
func (m *LazyModel) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Close releases the model. A later Get loads it again.
func (m *LazyModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.model == nil {
		return nil
	}
	err := m.model.Close()
	m.model = nil
	return err
}
