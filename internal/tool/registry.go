package tool

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"safegate/internal/domain"
)

// Registry holds the gateway operations, keyed by kind.
type Registry struct {
	mu     sync.RWMutex
	tools  map[domain.OperationKind]domain.Tool
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		tools:  make(map[domain.OperationKind]domain.Tool),
		logger: logger,
	}
}

func (r *Registry) Register(t domain.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Kind()] = t
	r.logger.Debug("registered tool", "operation", t.Kind())
}

func (r *Registry) Get(kind domain.OperationKind) domain.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[kind]
}

// Execute runs one operation. Blocked and failed requests come back as
// errors; a *domain.GateError carries the reason code.
func (r *Registry) Execute(ctx context.Context, kind domain.OperationKind, req domain.Request) (domain.Document, error) {
	t := r.Get(kind)
	if t == nil {
		return nil, fmt.Errorf("unknown operation: %s (available: %v)", kind, r.Kinds())
	}
	start := time.Now()
	doc, err := t.Execute(ctx, req)
	if err != nil {
		r.logger.Debug("operation failed", "operation", kind, "error", err, "duration", time.Since(start))
		return nil, err
	}
	r.logger.Debug("operation completed", "operation", kind, "duration", time.Since(start))
	return doc, nil
}

// Kinds returns the registered operations in enum order.
func (r *Registry) Kinds() []domain.OperationKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]domain.OperationKind, 0, len(r.tools))
	for k := range r.tools {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
