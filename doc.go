// Package strand provides a generator-style effect orchestration engine.
//
// Processes are plain Go functions that yield effect descriptors (invoke,
// emit, take, fork, race, ...) instead of performing side effects directly.
// A single-threaded scheduler interprets the descriptors one at a time,
// which keeps concurrent flows deterministic and makes process logic
// testable as data.
//
// The engine ships with pluggable layers:
//
//   - store     – bridge to an external state container (in-memory default)
//   - extension – registry of named operations callable from processes
//   - journal   – persistent task lifecycle records
//   - policy    – allow/block gate over named operations
//
// End-users typically interact via the high-level Service façade exposed by
// the root package:
//
//	srv := strand.New(strand.WithInitialState(map[string]any{"count": 0}))
//	rt := srv.Runtime()
//	_ = rt.Start(ctx)
//	handle := rt.Schedule(loginProcess, credentials)
//	result, err := handle.Join(ctx)
//
// See the individual sub-packages for details.
package strand
