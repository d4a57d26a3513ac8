// Package action defines the unit of communication between processes and the
// store bridge: a typed action value, and patterns that match actions when a
// process awaits a signal.
package action

// Action is an inert value handed to the store bridge by an Emit effect and
// observed by every waiting Take effect.
type Action struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// New creates an action with the supplied type and payload.
func New(actionType string, payload any) Action {
	return Action{Type: actionType, Payload: payload}
}
