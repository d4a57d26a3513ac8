// Package memory provides the default in-memory store bridge: a reducer
// applied under a single lock, path or function selectors, and synchronous
// listener fan-out.
package memory

import (
	"fmt"
	"sync"

	"github.com/viant/toolbox/data"

	"github.com/strandkit/strand/model/action"
	"github.com/strandkit/strand/store"
)

// Reducer derives the next state from the previous state and an action.
type Reducer func(state any, a action.Action) any

// Service implements store.Bridge. Dispatch applies the reducer atomically;
// listeners observe actions strictly after their state transition.
type Service struct {
	mu        sync.RWMutex
	state     any
	reducer   Reducer
	listeners []*listenerEntry
}

type listenerEntry struct {
	notify  store.Listener
	removed bool
}

var _ store.Bridge = (*Service)(nil)

// Option customises the service.
type Option func(*Service)

// WithState sets the initial state.
func WithState(state any) Option {
	return func(s *Service) { s.state = state }
}

// WithReducer sets the state transition function. Without one, dispatched
// actions leave state untouched (signal-only store).
func WithReducer(reducer Reducer) Option {
	return func(s *Service) { s.reducer = reducer }
}

// New creates a bridge with empty map state unless configured otherwise.
func New(options ...Option) *Service {
	s := &Service{state: map[string]any{}}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Dispatch applies a to state via the reducer, then notifies listeners in
// subscription order.
func (s *Service) Dispatch(a action.Action) {
	s.mu.Lock()
	if s.reducer != nil {
		s.state = s.reducer(s.state, a)
	}
	snapshot := make([]*listenerEntry, 0, len(s.listeners))
	for _, entry := range s.listeners {
		if !entry.removed {
			snapshot = append(snapshot, entry)
		}
	}
	s.mu.Unlock()

	for _, entry := range snapshot {
		entry.notify(a)
	}
}

// Subscribe registers a listener; the returned function removes it.
func (s *Service) Subscribe(listener store.Listener) func() {
	entry := &listenerEntry{notify: listener}
	s.mu.Lock()
	s.listeners = append(s.listeners, entry)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		entry.removed = true
		s.mu.Unlock()
	}
}

// State returns the current state value.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Select evaluates a selector: nil returns the whole state, a string is a
// data path ("user.profile.name"), and func selectors are applied to the
// state value.
func (s *Service) Select(selector any) (any, error) {
	state := s.State()
	switch actual := selector.(type) {
	case nil:
		return state, nil
	case string:
		return selectPath(state, actual)
	case func(state any) any:
		return actual(state), nil
	case func(state any) (any, error):
		return actual(state)
	}
	return nil, fmt.Errorf("unsupported selector %T", selector)
}

func selectPath(state any, path string) (any, error) {
	stateMap, ok := state.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("path selector %q requires map state, got %T", path, state)
	}
	stateData := data.Map(stateMap)
	value, has := stateData.GetValue(path)
	if !has {
		return nil, nil
	}
	return value, nil
}
