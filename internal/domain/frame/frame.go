// Package frame defines the animation frame records produced by the vertical
// generators and the Sequence that groups them.
package frame

import (
	"fmt"
	"math"
)

// State tags a single element or node within a frame.
type State string

// Element states understood by the player.
const (
	StateDefault    State = "default"
	StateComparing  State = "comparing"
	StateSwapping   State = "swapping"
	StateSorted     State = "sorted"
	StatePivot      State = "pivot"
	StateActive     State = "active"
	StateEliminated State = "eliminated"
	StateFound      State = "found"
	StateFrontier   State = "frontier"
	StateCurrent    State = "current"
	StateVisited    State = "visited"
)

// Action names what happened in a step.
type Action string

// Step actions.
const (
	ActionInit      Action = "init"
	ActionCompare   Action = "compare"
	ActionSwap      Action = "swap"
	ActionWrite     Action = "write"
	ActionMark      Action = "mark"
	ActionFound     Action = "found"
	ActionNotFound  Action = "not_found"
	ActionEnqueue   Action = "enqueue"
	ActionVisit     Action = "visit"
	ActionRelax     Action = "relax"
	ActionStep      Action = "step"
	ActionDone      Action = "done"
	ActionNegCycle  Action = "negative_cycle"
	ActionSample    Action = "sample"
	ActionConverged Action = "converged"
)

// Array is a sorting or searching step.
type Array struct {
	Number     int            `json:"frame_number"`
	Action     Action         `json:"action"`
	Data       []int          `json:"data"`
	Highlights []int          `json:"highlighted_indices"`
	States     []State        `json:"element_states"`
	Pointers   map[string]int `json:"pointers,omitempty"`
	Message    string         `json:"message"`
}

func (f *Array) setNumber(n int) { f.Number = n }

func (f *Array) finite() bool { return true }

// Edge identifies a directed or undirected graph edge.
type Edge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight float64 `json:"weight"`
}

// Graph is a graph or tree traversal step.
type Graph struct {
	Number     int                `json:"frame_number"`
	Action     Action             `json:"action"`
	Current    string             `json:"current,omitempty"`
	NodeStates map[string]State   `json:"node_states"`
	ActiveEdge *Edge              `json:"active_edge,omitempty"`
	Edges      []Edge             `json:"edges,omitempty"`
	Frontier   []string           `json:"frontier"`
	VisitOrder []string           `json:"visit_order"`
	Distances  map[string]float64 `json:"distances,omitempty"`
	Message    string             `json:"message"`
}

func (f *Graph) setNumber(n int) { f.Number = n }

func (f *Graph) finite() bool {
	if f.ActiveEdge != nil && !Finite(f.ActiveEdge.Weight) {
		return false
	}
	for _, e := range f.Edges {
		if !Finite(e.Weight) {
			return false
		}
	}
	return finiteMap(f.Distances)
}

// Vec2 is a 2-D vector in SI units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Scale returns v*k.
func (v Vec2) Scale(k float64) Vec2 { return Vec2{X: v.X * k, Y: v.Y * k} }

// Len returns the Euclidean norm.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

func (v Vec2) finite() bool { return Finite(v.X) && Finite(v.Y) }

// Physics is a sampled physical state.
type Physics struct {
	Number        int                `json:"frame_number"`
	Time          float64            `json:"time"`
	Positions     map[string]Vec2    `json:"positions"`
	Velocities    map[string]Vec2    `json:"velocities"`
	Accelerations map[string]Vec2    `json:"accelerations"`
	Scalars       map[string]float64 `json:"scalars,omitempty"`
	Message       string             `json:"message,omitempty"`
}

func (f *Physics) setNumber(n int) { f.Number = n }

func (f *Physics) finite() bool {
	if !Finite(f.Time) || !finiteMap(f.Scalars) {
		return false
	}
	for _, m := range []map[string]Vec2{f.Positions, f.Velocities, f.Accelerations} {
		for _, v := range m {
			if !v.finite() {
				return false
			}
		}
	}
	return true
}

// Chart carries plotted series and named values, used by math, chemistry and finance.
type Chart struct {
	Number  int                `json:"frame_number"`
	Action  Action             `json:"action"`
	Series  map[string][]Vec2  `json:"series,omitempty"`
	Values  map[string]float64 `json:"values"`
	Message string             `json:"message"`
}

func (f *Chart) setNumber(n int) { f.Number = n }

func (f *Chart) finite() bool {
	for _, pts := range f.Series {
		for _, v := range pts {
			if !v.finite() {
				return false
			}
		}
	}
	return finiteMap(f.Values)
}

// Playable is implemented by every Sequence regardless of frame kind.
type Playable interface {
	Len() int
	FrameAt(i int) any
}

// Sequence is an ordered list of frames with a summary and reasoning steps.
type Sequence[F any] struct {
	Domain      string             `json:"domain"`
	Kind        string             `json:"kind"`
	Title       string             `json:"title"`
	Frames      []F                `json:"frames"`
	Summary     map[string]float64 `json:"summary,omitempty"`
	Explanation []string           `json:"explanation,omitempty"`
}

// Len returns the number of frames.
func (s *Sequence[F]) Len() int { return len(s.Frames) }

// FrameAt returns frame i.
func (s *Sequence[F]) FrameAt(i int) any { return s.Frames[i] }

// Validate reports the first summary value that cannot be encoded as JSON.
// Frames are checked as they are recorded.
func (s *Sequence[F]) Validate() error {
	for k, v := range s.Summary {
		if !Finite(v) {
			return fmt.Errorf("%w: summary %s", ErrNonFinite, k)
		}
	}
	return nil
}

// Last returns the final frame and false when the sequence is empty.
func (s *Sequence[F]) Last() (F, bool) {
	var zero F
	if len(s.Frames) == 0 {
		return zero, false
	}
	return s.Frames[len(s.Frames)-1], true
}

// Finite reports whether x can be encoded as JSON.
func Finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func finiteMap(m map[string]float64) bool {
	for _, v := range m {
		if !Finite(v) {
			return false
		}
	}
	return true
}

// MaxSamples bounds counts derived from floating-point ratios such as
// duration / dt.
const MaxSamples = 1 << 20

// SampleCount converts a sample count computed in floating point to int.
// Values that are not finite or exceed MaxSamples saturate to MaxSamples+1,
// so callers can compare against MaxSamples without overflowing.
func SampleCount(x float64) int {
	if math.IsNaN(x) || x > MaxSamples {
		return MaxSamples + 1
	}
	if x < 0 {
		return 0
	}
	return int(x)
}
