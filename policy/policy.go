// Package policy provides a simple, optional gate over named operations
// invoked through the registry. It is attached to a run via context; engines
// that never embed a Policy keep the default allow-all behaviour at zero
// cost.
package policy

import (
	"context"
	"strings"
)

// Modes recognised by the Invoke handler.
const (
	ModeAuto = "auto" // execute automatically (default)
	ModeDeny = "deny" // block every registry invocation
)

// Policy holds allow/block settings for one run. A nil *Policy means
// "execute everything".
//
//   - Mode controls the high-level behaviour (auto / deny).
//   - AllowList and BlockList filter by fully qualified operation name
//     ("service.method"), case-insensitive; BlockList wins.
type Policy struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// IsAllowed evaluates the mode and lists for the given operation name.
func (p *Policy) IsAllowed(operation string) bool {
	if p == nil {
		return true
	}
	if strings.EqualFold(p.Mode, ModeDeny) {
		return false
	}

	normalized := strings.ToLower(operation)
	for _, blocked := range p.BlockList {
		if normalized == strings.ToLower(blocked) {
			return false
		}
	}
	if len(p.AllowList) == 0 {
		return true
	}
	for _, allowed := range p.AllowList {
		if normalized == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy returns a context carrying p.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext returns the policy carried by ctx, or nil.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	p, _ := ctx.Value(ctxKey).(*Policy)
	return p
}
