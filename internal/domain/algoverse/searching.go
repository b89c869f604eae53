package algoverse

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/visualverse/internal/domain/frame"
)

type searcher struct {
	data        []int
	target      int
	rec         *frame.ArrayRecorder
	comparisons int
}

func newSearcher(ctx context.Context, kind, title string, p SearchParams, o options) (*searcher, error) {
	if len(p.Data) == 0 {
		return nil, ErrEmptyInput
	}
	return &searcher{
		data:   frame.CopyInts(p.Data),
		target: p.Target,
		rec:    frame.NewRecorder[frame.Array](ctx, domain, kind, title, o.maxFrames),
	}, nil
}

func (s *searcher) emit(action frame.Action, states []frame.State, highlights []int, pointers map[string]int, msg string) error {
	return s.rec.Add(frame.Array{
		Action:     action,
		Data:       frame.CopyInts(s.data),
		Highlights: highlights,
		States:     states,
		Pointers:   pointers,
		Message:    msg,
	})
}

func (s *searcher) finish(found bool, index int) *frame.Sequence[frame.Array] {
	f := 0.0
	if found {
		f = 1
	}
	s.rec.Set("found", f)
	s.rec.Set("index", float64(index))
	s.rec.Set("comparisons", float64(s.comparisons))
	s.rec.Set("n", float64(len(s.data)))
	return s.rec.Sequence()
}

// LinearSearch scans left to right until the target is found.
func LinearSearch(ctx context.Context, p SearchParams, opts ...Option) (*frame.Sequence[frame.Array], error) {
	s, err := newSearcher(ctx, "linear_search", "Linear search", p, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	n := len(s.data)
	states := frame.Fill(n, frame.StateDefault)
	if err := s.emit(frame.ActionInit, frame.CopyStates(states), nil, nil,
		fmt.Sprintf("Search for %d among %d elements", s.target, n)); err != nil {
		return nil, err
	}
	s.rec.Explain("Check every element in order; no ordering of the input is required.")

	for i := 0; i < n; i++ {
		s.comparisons++
		cur := frame.CopyStates(states)
		cur[i] = frame.StateComparing
		if err := s.emit(frame.ActionCompare, cur, []int{i}, map[string]int{"i": i},
			fmt.Sprintf("Compare a[%d]=%d with %d", i, s.data[i], s.target)); err != nil {
			return nil, err
		}
		if s.data[i] == s.target {
			states[i] = frame.StateFound
			if err := s.emit(frame.ActionFound, frame.CopyStates(states), []int{i}, map[string]int{"i": i},
				fmt.Sprintf("Found %d at index %d", s.target, i)); err != nil {
				return nil, err
			}
			s.rec.Explain("Found after %d comparisons; worst case is n = %d.", s.comparisons, n)
			return s.finish(true, i), nil
		}
		states[i] = frame.StateEliminated
	}
	if err := s.emit(frame.ActionNotFound, frame.CopyStates(states), nil, nil,
		fmt.Sprintf("%d is not present", s.target)); err != nil {
		return nil, err
	}
	s.rec.Explain("Not found after checking all %d elements.", n)
	return s.finish(false, -1), nil
}

// BinarySearch halves the candidate range [low, high] on every comparison.
// Input must be sorted in non-decreasing order. At most floor(log2 n)+1
// compare frames are emitted.
func BinarySearch(ctx context.Context, p SearchParams, opts ...Option) (*frame.Sequence[frame.Array], error) {
	s, err := newSearcher(ctx, "binary_search", "Binary search", p, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	if !sort.IntsAreSorted(s.data) {
		return nil, ErrUnsorted
	}
	n := len(s.data)
	lo, hi := 0, n-1
	if err := s.emit(frame.ActionInit, rangeStates(n, lo, hi), nil, map[string]int{"low": lo, "high": hi},
		fmt.Sprintf("Search for %d in a sorted array of %d elements", s.target, n)); err != nil {
		return nil, err
	}
	s.rec.Explain("Compare the middle element with the target and discard the half that cannot contain it.")

	for lo <= hi {
		mid := lo + (hi-lo)/2
		s.comparisons++
		ptr := map[string]int{"low": lo, "mid": mid, "high": hi}
		states := rangeStates(n, lo, hi)
		states[mid] = frame.StateComparing
		if err := s.emit(frame.ActionCompare, states, []int{mid}, ptr,
			fmt.Sprintf("Compare a[%d]=%d with %d", mid, s.data[mid], s.target)); err != nil {
			return nil, err
		}
		switch {
		case s.data[mid] == s.target:
			states = rangeStates(n, mid, mid)
			states[mid] = frame.StateFound
			if err := s.emit(frame.ActionFound, states, []int{mid}, map[string]int{"mid": mid},
				fmt.Sprintf("Found %d at index %d", s.target, mid)); err != nil {
				return nil, err
			}
			s.rec.Explain("Found after %d comparisons; O(log n) in the worst case.", s.comparisons)
			return s.finish(true, mid), nil
		case s.data[mid] < s.target:
			s.rec.Explain("a[%d]=%d < %d, continue in the right half.", mid, s.data[mid], s.target)
			lo = mid + 1
		default:
			s.rec.Explain("a[%d]=%d > %d, continue in the left half.", mid, s.data[mid], s.target)
			hi = mid - 1
		}
	}
	if err := s.emit(frame.ActionNotFound, frame.Fill(n, frame.StateEliminated), nil, nil,
		fmt.Sprintf("%d is not present", s.target)); err != nil {
		return nil, err
	}
	s.rec.Explain("The range became empty after %d comparisons.", s.comparisons)
	return s.finish(false, -1), nil
}

// rangeStates marks [lo, hi] active and everything else eliminated.
func rangeStates(n, lo, hi int) []frame.State {
	states := frame.Fill(n, frame.StateEliminated)
	for i := lo; i <= hi && i < n; i++ {
		if i >= 0 {
			states[i] = frame.StateActive
		}
	}
	return states
}
