package algoverse

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/okian/visualverse/internal/domain/frame"
)

// graph is an adjacency list preserving edge input order.
type graph struct {
	nodes []string
	adj   map[string][]frame.Edge
	edges []frame.Edge
}

func buildGraph(p GraphParams) (*graph, error) {
	if len(p.Nodes) == 0 {
		return nil, ErrEmptyInput
	}
	g := &graph{
		nodes: frame.CopyStrings(p.Nodes),
		adj:   make(map[string][]frame.Edge, len(p.Nodes)),
	}
	for _, n := range p.Nodes {
		if _, dup := g.adj[n]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNode, n)
		}
		g.adj[n] = nil
	}
	for _, e := range p.Edges {
		if _, ok := g.adj[e.From]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNode, e.From)
		}
		if _, ok := g.adj[e.To]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNode, e.To)
		}
		if !frame.Finite(e.Weight) {
			return nil, fmt.Errorf("%w: %s->%s", ErrInvalidWeight, e.From, e.To)
		}
		fe := frame.Edge{From: e.From, To: e.To, Weight: e.Weight}
		g.edges = append(g.edges, fe)
		g.adj[e.From] = append(g.adj[e.From], fe)
		if !p.Directed && e.From != e.To {
			back := frame.Edge{From: e.To, To: e.From, Weight: e.Weight}
			g.edges = append(g.edges, back)
			g.adj[e.To] = append(g.adj[e.To], back)
		}
	}
	if _, ok := g.adj[p.Source]; !ok {
		return nil, fmt.Errorf("%w: source %q", ErrUnknownNode, p.Source)
	}
	return g, nil
}

// traversal holds the mutable state shared by the graph walkers.
type traversal struct {
	g        *graph
	rec      *frame.GraphRecorder
	states   map[string]frame.State
	order    []string
	frontier []string
	dist     map[string]float64
}

func newTraversal(ctx context.Context, kind, title string, g *graph, o options) *traversal {
	t := &traversal{
		g:      g,
		rec:    frame.NewRecorder[frame.Graph](ctx, domain, kind, title, o.maxFrames),
		states: make(map[string]frame.State, len(g.nodes)),
		dist:   make(map[string]float64, len(g.nodes)),
	}
	for _, n := range g.nodes {
		t.states[n] = frame.StateDefault
	}
	return t
}

func (t *traversal) emit(action frame.Action, current string, edge *frame.Edge, msg string) error {
	f := frame.Graph{
		Action:     action,
		Current:    current,
		NodeStates: frame.CopyStateMap(t.states),
		Frontier:   frame.CopyStrings(t.frontier),
		VisitOrder: frame.CopyStrings(t.order),
		Distances:  frame.CopyFloatMap(t.dist),
		Message:    msg,
	}
	if edge != nil {
		e := *edge
		f.ActiveEdge = &e
	}
	if action == frame.ActionInit {
		f.Edges = append([]frame.Edge(nil), t.g.edges...)
	}
	return t.rec.Add(f)
}

func (t *traversal) finish() *frame.Sequence[frame.Graph] {
	t.rec.Set("nodes", float64(len(t.g.nodes)))
	t.rec.Set("visited", float64(len(t.order)))
	if len(t.order) > 0 {
		t.rec.Explain("Visit order: %s.", strings.Join(t.order, ", "))
	}
	return t.rec.Sequence()
}

// BFS explores nodes level by level from the source using a FIFO queue.
func BFS(ctx context.Context, p GraphParams, opts ...Option) (*frame.Sequence[frame.Graph], error) {
	g, err := buildGraph(p)
	if err != nil {
		return nil, err
	}
	t := newTraversal(ctx, "bfs", "Breadth-first search", g, buildOptions(opts))
	t.rec.Explain("Dequeue the oldest discovered node, then enqueue its undiscovered neighbours.")

	discovered := map[string]bool{p.Source: true}
	t.frontier = []string{p.Source}
	t.states[p.Source] = frame.StateFrontier
	t.dist[p.Source] = 0
	if err := t.emit(frame.ActionInit, p.Source, nil, "Enqueue source "+p.Source); err != nil {
		return nil, err
	}

	for len(t.frontier) > 0 {
		u := t.frontier[0]
		t.frontier = t.frontier[1:]
		t.states[u] = frame.StateCurrent
		t.order = append(t.order, u)
		if err := t.emit(frame.ActionVisit, u, nil,
			fmt.Sprintf("Visit %s at depth %.0f", u, t.dist[u])); err != nil {
			return nil, err
		}
		for _, e := range g.adj[u] {
			if discovered[e.To] {
				continue
			}
			discovered[e.To] = true
			t.dist[e.To] = t.dist[u] + 1
			t.states[e.To] = frame.StateFrontier
			t.frontier = append(t.frontier, e.To)
			if err := t.emit(frame.ActionEnqueue, u, &e,
				fmt.Sprintf("Discover %s from %s", e.To, u)); err != nil {
				return nil, err
			}
		}
		t.states[u] = frame.StateVisited
	}
	if err := t.emit(frame.ActionDone, "", nil, "Queue is empty"); err != nil {
		return nil, err
	}
	t.rec.Explain("Every node is enqueued at most once, so BFS runs in O(V + E).")
	return t.finish(), nil
}

// DFS explores as deep as possible along each branch using an explicit stack.
// Neighbours are visited in input order.
func DFS(ctx context.Context, p GraphParams, opts ...Option) (*frame.Sequence[frame.Graph], error) {
	g, err := buildGraph(p)
	if err != nil {
		return nil, err
	}
	t := newTraversal(ctx, "dfs", "Depth-first search", g, buildOptions(opts))
	t.rec.Explain("Pop the most recently pushed node, visit it, and push its neighbours.")

	visited := make(map[string]bool, len(g.nodes))
	t.frontier = []string{p.Source}
	t.states[p.Source] = frame.StateFrontier
	if err := t.emit(frame.ActionInit, p.Source, nil, "Push source "+p.Source); err != nil {
		return nil, err
	}

	for len(t.frontier) > 0 {
		u := t.frontier[len(t.frontier)-1]
		t.frontier = t.frontier[:len(t.frontier)-1]
		if visited[u] {
			continue
		}
		visited[u] = true
		t.states[u] = frame.StateCurrent
		t.order = append(t.order, u)
		if err := t.emit(frame.ActionVisit, u, nil, "Visit "+u); err != nil {
			return nil, err
		}
		nbrs := g.adj[u]
		for i := len(nbrs) - 1; i >= 0; i-- {
			e := nbrs[i]
			if visited[e.To] {
				continue
			}
			t.frontier = append(t.frontier, e.To)
			t.states[e.To] = frame.StateFrontier
			if err := t.emit(frame.ActionEnqueue, u, &e,
				fmt.Sprintf("Push %s from %s", e.To, u)); err != nil {
				return nil, err
			}
		}
		t.states[u] = frame.StateVisited
	}
	if err := t.emit(frame.ActionDone, "", nil, "Stack is empty"); err != nil {
		return nil, err
	}
	t.rec.Explain("Each edge is examined at most twice, so DFS runs in O(V + E).")
	return t.finish(), nil
}

type pqItem struct {
	id   string
	dist float64
}

type distQueue []pqItem

func (q distQueue) Len() int { return len(q) }
func (q distQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].id < q[j].id
}
func (q distQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *distQueue) Push(x any)   { *q = append(*q, x.(pqItem)) }
func (q *distQueue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}

// Dijkstra computes single-source shortest paths with a binary heap.
// Ties between equal distances are broken by node id.
func Dijkstra(ctx context.Context, p GraphParams, opts ...Option) (*frame.Sequence[frame.Graph], error) {
	g, err := buildGraph(p)
	if err != nil {
		return nil, err
	}
	for _, e := range g.edges {
		if e.Weight < 0 {
			return nil, fmt.Errorf("%w: %s->%s = %g", ErrNegativeWeight, e.From, e.To, e.Weight)
		}
	}
	t := newTraversal(ctx, "dijkstra", "Dijkstra shortest paths", g, buildOptions(opts))
	t.rec.Explain("Settle the unsettled node with the smallest tentative distance, then relax its outgoing edges.")

	for _, n := range g.nodes {
		t.dist[n] = math.Inf(1)
	}
	t.dist[p.Source] = 0
	prev := make(map[string]string, len(g.nodes))
	settled := make(map[string]bool, len(g.nodes))
	pq := &distQueue{{id: p.Source, dist: 0}}
	t.frontier = []string{p.Source}
	t.states[p.Source] = frame.StateFrontier
	if err := t.emit(frame.ActionInit, p.Source, nil, "dist["+p.Source+"] = 0, all others infinity"); err != nil {
		return nil, err
	}

	for pq.Len() > 0 {
		it := heap.Pop(pq).(pqItem)
		if settled[it.id] || it.dist > t.dist[it.id] {
			continue
		}
		u := it.id
		settled[u] = true
		t.frontier = removeString(t.frontier, u)
		t.states[u] = frame.StateCurrent
		t.order = append(t.order, u)
		if err := t.emit(frame.ActionVisit, u, nil,
			fmt.Sprintf("Settle %s with distance %g", u, t.dist[u])); err != nil {
			return nil, err
		}
		for _, e := range g.adj[u] {
			if settled[e.To] {
				continue
			}
			cand := t.dist[u] + e.Weight
			msg := fmt.Sprintf("Edge %s->%s: %g + %g does not improve %s", e.From, e.To, t.dist[u], e.Weight, fmtDist(t.dist[e.To]))
			if cand < t.dist[e.To] {
				msg = fmt.Sprintf("Edge %s->%s: improve dist[%s] from %s to %g", e.From, e.To, e.To, fmtDist(t.dist[e.To]), cand)
				t.dist[e.To] = cand
				prev[e.To] = u
				heap.Push(pq, pqItem{id: e.To, dist: cand})
				if t.states[e.To] != frame.StateFrontier {
					t.states[e.To] = frame.StateFrontier
					t.frontier = append(t.frontier, e.To)
				}
			}
			if err := t.emit(frame.ActionRelax, u, &e, msg); err != nil {
				return nil, err
			}
		}
		t.states[u] = frame.StateVisited
	}
	if err := t.emit(frame.ActionDone, "", nil, "All reachable nodes settled"); err != nil {
		return nil, err
	}
	explainPaths(t, p.Source, prev)
	t.rec.Explain("With a binary heap Dijkstra runs in O((V + E) log V).")
	return t.finish(), nil
}

// BellmanFord relaxes every edge up to V-1 times and then checks for a
// reachable negative cycle, which ends the sequence with a negative_cycle frame.
func BellmanFord(ctx context.Context, p GraphParams, opts ...Option) (*frame.Sequence[frame.Graph], error) {
	g, err := buildGraph(p)
	if err != nil {
		return nil, err
	}
	t := newTraversal(ctx, "bellman_ford", "Bellman-Ford shortest paths", g, buildOptions(opts))
	t.rec.Explain("Relax every edge in rounds; after V-1 rounds all shortest paths are final unless a negative cycle exists.")

	for _, n := range g.nodes {
		t.dist[n] = math.Inf(1)
	}
	t.dist[p.Source] = 0
	prev := make(map[string]string, len(g.nodes))
	t.states[p.Source] = frame.StateCurrent
	if err := t.emit(frame.ActionInit, p.Source, nil, "dist["+p.Source+"] = 0, all others infinity"); err != nil {
		return nil, err
	}

	rounds := 0
	for round := 1; round < len(g.nodes); round++ {
		rounds = round
		changed := false
		for _, e := range g.edges {
			if math.IsInf(t.dist[e.From], 1) {
				continue
			}
			cand := t.dist[e.From] + e.Weight
			if cand >= t.dist[e.To] {
				continue
			}
			old := t.dist[e.To]
			t.dist[e.To] = cand
			prev[e.To] = e.From
			t.states[e.To] = frame.StateVisited
			changed = true
			if err := t.emit(frame.ActionRelax, e.To, &e,
				fmt.Sprintf("Round %d: improve dist[%s] from %s to %g via %s", round, e.To, fmtDist(old), cand, e.From)); err != nil {
				return nil, err
			}
		}
		if !changed {
			t.rec.Explain("Round %d changed nothing, stopping early.", round)
			break
		}
	}
	t.rec.Set("rounds", float64(rounds))

	for _, e := range g.edges {
		if math.IsInf(t.dist[e.From], 1) || t.dist[e.From]+e.Weight >= t.dist[e.To] {
			continue
		}
		t.states[e.To] = frame.StateEliminated
		t.rec.Set("negative_cycle", 1)
		if err := t.emit(frame.ActionNegCycle, e.To, &e,
			fmt.Sprintf("Edge %s->%s can still be relaxed: negative cycle reachable from %s", e.From, e.To, p.Source)); err != nil {
			return nil, err
		}
		t.rec.Explain("A negative cycle is reachable, so shortest paths are undefined.")
		return t.finish(), nil
	}

	t.rec.Set("negative_cycle", 0)
	if err := t.emit(frame.ActionDone, "", nil, "No edge can be relaxed further"); err != nil {
		return nil, err
	}
	for _, n := range g.nodes {
		if !math.IsInf(t.dist[n], 1) {
			t.order = append(t.order, n)
		}
	}
	explainPaths(t, p.Source, prev)
	t.rec.Explain("Bellman-Ford runs in O(V * E) and tolerates negative edge weights.")
	return t.finish(), nil
}

func explainPaths(t *traversal, source string, prev map[string]string) {
	for _, n := range t.g.nodes {
		d := t.dist[n]
		if math.IsInf(d, 1) {
			t.rec.Explain("%s is unreachable from %s.", n, source)
			continue
		}
		path := []string{n}
		for cur := n; cur != source; {
			p, ok := prev[cur]
			if !ok {
				break
			}
			path = append([]string{p}, path...)
			cur = p
		}
		t.rec.Explain("%s: distance %g via %s.", n, d, strings.Join(path, " -> "))
	}
}

func fmtDist(d float64) string {
	if math.IsInf(d, 1) {
		return "infinity"
	}
	return fmt.Sprintf("%g", d)
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
