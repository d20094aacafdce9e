package cipher

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a concurrency-safe set of named operations.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// Register adds op, rejecting nil operations, empty names and duplicates.
func (r *Registry) Register(op Operation) error {
	if op == nil {
		return fmt.Errorf("cannot register nil operation")
	}
	name := op.Name()
	if name == "" {
		return fmt.Errorf("operation name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("operation %s is already registered", name)
	}
	r.ops[name] = op
	return nil
}

// Get looks up an operation by name.
func (r *Registry) Get(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// List returns operations sorted by name, optionally restricted to the given
// types.
func (r *Registry) List(types ...OperationType) []Operation {
	r.mu.RLock()
	ops := make([]Operation, 0, len(r.ops))
	for _, op := range r.ops {
		if len(types) == 0 || containsType(types, op.Type()) {
			ops = append(ops, op)
		}
	}
	r.mu.RUnlock()

	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Name() < ops[j].Name()
	})
	return ops
}

// Unregister removes an operation (mainly for testing)
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ops, name)
}

func containsType(types []OperationType, t OperationType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

var defaultRegistry = NewRegistry()

// RegisterOperation adds an operation to the global registry
func RegisterOperation(op Operation) error {
	return defaultRegistry.Register(op)
}

// GetOperation retrieves an operation from the global registry
func GetOperation(name string) (Operation, bool) {
	return defaultRegistry.Get(name)
}

// ListOperations returns every globally registered operation
func ListOperations() []Operation {
	return defaultRegistry.List()
}

// ListOperationsByType returns globally registered operations of one type
func ListOperationsByType(opType OperationType) []Operation {
	return defaultRegistry.List(opType)
}
