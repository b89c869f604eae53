package content

import (
	"container/heap"
	"fmt"
)

// Requires maps a concept id to the ids of its direct prerequisites.
type Requires map[string][]string

// Reaches reports whether to is reachable from from along REQUIRES edges.
func (r Requires) Reaches(from, to string) bool {
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		for _, next := range r[cur] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// CheckPrerequisite returns ErrCycle when "id requires requiresID" would
// close a cycle.
func (r Requires) CheckPrerequisite(id, requiresID string) error {
	if id == requiresID {
		return fmt.Errorf("%w: %s cannot require itself", ErrCycle, id)
	}
	if r.Reaches(requiresID, id) {
		return fmt.Errorf("%w: %s already depends on %s", ErrCycle, requiresID, id)
	}
	return nil
}

// Closure returns target and every transitive prerequisite of it.
func (r Requires) Closure(target string) map[string]bool {
	in := map[string]bool{target: true}
	stack := []string{target}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range r[cur] {
			if !in[next] {
				in[next] = true
				stack = append(stack, next)
			}
		}
	}
	return in
}

type readyQueue []Concept

func (q readyQueue) Len() int { return len(q) }
func (q readyQueue) Less(i, j int) bool {
	if q[i].Name != q[j].Name {
		return q[i].Name < q[j].Name
	}
	return q[i].ID < q[j].ID
}
func (q readyQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *readyQueue) Push(x any)   { *q = append(*q, x.(Concept)) }
func (q *readyQueue) Pop() any {
	old := *q
	c := old[len(old)-1]
	*q = old[:len(old)-1]
	return c
}

// LearningPath orders target and its transitive prerequisites so that every
// concept comes after everything it requires (Kahn's algorithm, ties broken
// by name then id). The target is always last. concepts must contain every
// id in the closure.
func LearningPath(target string, concepts map[string]Concept, req Requires) ([]Concept, error) {
	if _, ok := concepts[target]; !ok {
		return nil, fmt.Errorf("%w: concept %s", ErrNotFound, target)
	}
	in := req.Closure(target)

	pending := make(map[string]int, len(in))
	dependents := make(map[string][]string, len(in))
	for id := range in {
		if _, ok := concepts[id]; !ok {
			return nil, fmt.Errorf("%w: concept %s", ErrNotFound, id)
		}
		for _, pre := range req[id] {
			pending[id]++
			dependents[pre] = append(dependents[pre], id)
		}
	}

	ready := &readyQueue{}
	for id := range in {
		if pending[id] == 0 {
			*ready = append(*ready, concepts[id])
		}
	}
	heap.Init(ready)

	path := make([]Concept, 0, len(in))
	for ready.Len() > 0 {
		c := heap.Pop(ready).(Concept)
		path = append(path, c)
		for _, dep := range dependents[c.ID] {
			pending[dep]--
			if pending[dep] == 0 {
				heap.Push(ready, concepts[dep])
			}
		}
	}
	if len(path) != len(in) {
		return nil, fmt.Errorf("%w: learning path for %s", ErrCycle, target)
	}
	return path, nil
}
