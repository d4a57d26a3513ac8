package scheduler

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/strandkit/strand/effect"
	"github.com/strandkit/strand/runtime/task"
)

type groupMode int

const (
	raceGroup groupMode = iota
	allGroup
)

// group tracks one Race or All combinator: the suspended parent plus one
// child task per branch. Children are ordinary attached tasks, so parent
// cancellation reaches them through the subtree walk; the group only adds
// the first-settlement bookkeeping on top.
type group struct {
	mode      groupMode
	parent    *task.Task
	children  []int64
	labels    []string
	results   []any
	remaining int
	done      bool
}

func (s *Service) handleGroup(t *task.Task, eff effect.Effect) (task.Resume, bool) {
	if t.CancelRequested() {
		return task.Resume{Err: task.ErrCanceled}, false
	}
	g := &group{parent: t}
	var branches []effect.Effect
	awaiting := "all"
	if eff.Kind == effect.KindRace {
		g.mode = raceGroup
		awaiting = "race"
		if len(eff.Branches) == 0 {
			return task.Resume{Err: fmt.Errorf("%w: race without branches", ErrUnmatchedEffect)}, false
		}
		for label := range eff.Branches {
			g.labels = append(g.labels, label)
		}
		sort.Strings(g.labels)
		for _, label := range g.labels {
			branches = append(branches, eff.Branches[label])
		}
	} else {
		g.mode = allGroup
		if len(eff.Effects) == 0 {
			return task.Resume{Value: []any{}}, false
		}
		branches = eff.Effects
	}
	g.results = make([]any, len(branches))
	g.remaining = len(branches)
	for i, branch := range branches {
		name := "all." + strconv.Itoa(i)
		if g.mode == raceGroup {
			name = "race." + g.labels[i]
		}
		sub := branch
		handle := s.spawnTask(t, func(c *Context) (any, error) {
			return c.Yield(sub)
		}, nil, false, name)
		child := handle.Task()
		g.children = append(g.children, child.ID())
		s.groups[child.ID()] = g
	}
	t.Suspend(awaiting, nil)
	t.SetReleaser(func() { g.done = true })
	return task.Resume{}, true
}

// childDone settles one branch. For Race the first settlement wins and the
// losers are cancelled; for All the first failure cancels the rest, and
// otherwise results accumulate in branch order.
func (g *group) childDone(s *Service, child *task.Task) {
	if g.done || g.parent.Terminal() || g.parent.CancelRequested() {
		g.done = true
		return
	}
	value, err := child.Result()
	index := g.indexOf(child.ID())
	if index < 0 {
		return
	}
	switch g.mode {
	case raceGroup:
		g.done = true
		g.cancelOthers(s, child.ID())
		if err != nil {
			s.step(g.parent, task.Resume{Err: err})
			return
		}
		s.step(g.parent, task.Resume{Value: Winner{Label: g.labels[index], Value: value}})
	case allGroup:
		if err != nil {
			g.done = true
			g.cancelOthers(s, child.ID())
			s.step(g.parent, task.Resume{Err: err})
			return
		}
		g.results[index] = value
		g.remaining--
		if g.remaining == 0 {
			g.done = true
			s.step(g.parent, task.Resume{Value: g.results})
		}
	}
}

func (g *group) cancelOthers(s *Service, winnerID int64) {
	for _, id := range g.children {
		if id == winnerID {
			continue
		}
		s.cancelSubtree(s.arena.Lookup(id))
	}
}

func (g *group) indexOf(childID int64) int {
	for i, id := range g.children {
		if id == childID {
			return i
		}
	}
	return -1
}
