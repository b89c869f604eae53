package frame

import (
	"context"
	"fmt"
)

type numbered interface {
	setNumber(n int)
	finite() bool
}

// framePtr constrains F to frame kinds whose pointer can be numbered.
type framePtr[F any] interface {
	*F
	numbered
}

// Recorder accumulates frames into a Sequence, numbering them in order.
type Recorder[F any, P framePtr[F]] struct {
	ctx   context.Context
	seq   *Sequence[F]
	limit int
}

// Recorders for each frame kind.
type (
	ArrayRecorder   = Recorder[Array, *Array]
	GraphRecorder   = Recorder[Graph, *Graph]
	PhysicsRecorder = Recorder[Physics, *Physics]
	ChartRecorder   = Recorder[Chart, *Chart]
)

// NewRecorder starts a sequence. limit <= 0 disables the frame cap.
func NewRecorder[F any, P framePtr[F]](ctx context.Context, domain, kind, title string, limit int) *Recorder[F, P] {
	return &Recorder[F, P]{
		ctx:   ctx,
		limit: limit,
		seq: &Sequence[F]{
			Domain:  domain,
			Kind:    kind,
			Title:   title,
			Summary: make(map[string]float64),
		},
	}
}

// Add appends f and assigns its frame number. Frames holding NaN or an
// infinity are rejected with ErrNonFinite.
func (r *Recorder[F, P]) Add(f F) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if r.limit > 0 && len(r.seq.Frames) >= r.limit {
		return fmt.Errorf("%w: more than %d frames", ErrFrameLimit, r.limit)
	}
	if !P(&f).finite() {
		return fmt.Errorf("%w: frame %d", ErrNonFinite, len(r.seq.Frames))
	}
	P(&f).setNumber(len(r.seq.Frames))
	r.seq.Frames = append(r.seq.Frames, f)
	return nil
}

// Explain appends a reasoning step.
func (r *Recorder[F, P]) Explain(format string, args ...any) {
	r.seq.Explanation = append(r.seq.Explanation, fmt.Sprintf(format, args...))
}

// Set records a summary value.
func (r *Recorder[F, P]) Set(key string, v float64) {
	r.seq.Summary[key] = v
}

// Len returns the number of frames recorded so far.
func (r *Recorder[F, P]) Len() int { return len(r.seq.Frames) }

// Sequence returns the recorded sequence.
func (r *Recorder[F, P]) Sequence() *Sequence[F] { return r.seq }

// Snapshot helpers copy generator state so frames never alias working memory.

// CopyInts returns a copy of s.
func CopyInts(s []int) []int {
	out := make([]int, len(s))
	copy(out, s)
	return out
}

// CopyStrings returns a copy of s, never nil.
func CopyStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// CopyStates returns a copy of s.
func CopyStates(s []State) []State {
	out := make([]State, len(s))
	copy(out, s)
	return out
}

// CopyStateMap returns a copy of m.
func CopyStateMap(m map[string]State) map[string]State {
	out := make(map[string]State, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CopyFloatMap returns a copy of m without non-finite values.
func CopyFloatMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if Finite(v) {
			out[k] = v
		}
	}
	return out
}

// Fill returns n copies of s.
func Fill(n int, s State) []State {
	out := make([]State, n)
	for i := range out {
		out[i] = s
	}
	return out
}
