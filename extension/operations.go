// Package extension holds the registry of named operations that Call
// effects resolve against, plus an associated type registry so embedders can
// register the Go types their operation payloads use.
package extension

import (
	"fmt"
	"sort"
	"sync"

	"github.com/viant/x"

	"github.com/strandkit/strand/effect"
)

// Types wraps the x registry with lookup by registered name. The underlying
// registry keys types by package path, which callers registering aliases
// like "auth.LoginRequest" never see.
type Types struct {
	registry *x.Registry
	mu       sync.RWMutex
	byName   map[string]*x.Type
}

// NewTypes creates an empty type registry.
func NewTypes(options ...x.RegistryOption) *Types {
	return &Types{
		registry: x.NewRegistry(options...),
		byName:   make(map[string]*x.Type),
	}
}

// Register adds a data type, indexed both by its alias and by the
// underlying registry key.
func (t *Types) Register(dataType *x.Type) {
	t.registry.Register(dataType)
	if dataType.Name == "" {
		return
	}
	t.mu.Lock()
	t.byName[dataType.Name] = dataType
	t.mu.Unlock()
}

// Lookup resolves a data type by its registered alias, falling back to the
// underlying registry key.
func (t *Types) Lookup(name string) *x.Type {
	t.mu.RLock()
	dataType, ok := t.byName[name]
	t.mu.RUnlock()
	if ok {
		return dataType
	}
	return t.registry.Lookup(name)
}

// Operations maps fully qualified names ("auth.login") to operation
// functions.
type Operations struct {
	mu     sync.RWMutex
	byName map[string]effect.Op
	types  *Types
}

// New creates an empty registry.
func New(options ...x.RegistryOption) *Operations {
	return &Operations{
		byName: make(map[string]effect.Op),
		types:  NewTypes(options...),
	}
}

// Register adds a named operation; registering an existing name is an
// error.
func (o *Operations) Register(name string, op effect.Op) error {
	if name == "" {
		return fmt.Errorf("operation name is required")
	}
	if op == nil {
		return fmt.Errorf("operation %q is nil", name)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.byName[name]; ok {
		return fmt.Errorf("operation %q already registered", name)
	}
	o.byName[name] = op
	return nil
}

// Lookup resolves a named operation.
func (o *Operations) Lookup(name string) (effect.Op, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	op, ok := o.byName[name]
	return op, ok
}

// Names returns the registered operation names, sorted.
func (o *Operations) Names() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.byName))
	for name := range o.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterType adds a payload data type to the type registry.
func (o *Operations) RegisterType(dataType *x.Type) {
	o.types.Register(dataType)
}

// Types returns the payload type registry.
func (o *Operations) Types() *Types {
	return o.types
}
