// Package store defines the narrow adapter between the engine and the
// surrounding application state container. The interpreter reads state
// through Select, forwards Emit effects through Dispatch, and feeds its
// broadcast matcher from Subscribe.
package store

import "github.com/strandkit/strand/model/action"

// Listener observes every dispatched action, after the bridge has applied
// it to state.
type Listener func(a action.Action)

// Bridge is the external state container boundary. Implementations must
// apply each dispatched action atomically before notifying listeners, so a
// Select issued by a resumed waiter observes the post-action state.
type Bridge interface {
	// Select evaluates a selector against current state. Supported selector
	// forms are implementation-defined; see store/memory for the default.
	Select(selector any) (any, error)

	// Dispatch applies an action to state and notifies subscribers.
	Dispatch(a action.Action)

	// Subscribe registers a listener for dispatched actions; the returned
	// function removes it.
	Subscribe(listener Listener) (unsubscribe func())
}
