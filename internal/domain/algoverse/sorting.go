package algoverse

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/visualverse/internal/domain/frame"
)

// sorter holds the mutable state of one sorting animation.
type sorter struct {
	data        []int
	states      []frame.State
	rec         *frame.ArrayRecorder
	comparisons int
	swaps       int
	writes      int
}

func newSorter(ctx context.Context, kind, title string, p SortParams, o options) (*sorter, error) {
	if len(p.Data) == 0 {
		return nil, ErrEmptyInput
	}
	s := &sorter{
		data:   frame.CopyInts(p.Data),
		states: frame.Fill(len(p.Data), frame.StateDefault),
		rec:    frame.NewRecorder[frame.Array](ctx, domain, kind, title, o.maxFrames),
	}
	s.rec.Set("n", float64(len(p.Data)))
	return s, s.emit(frame.ActionInit, fmt.Sprintf("Initial array of %d elements", len(p.Data)), nil, nil)
}

// emit snapshots the array; overlay states apply to this frame only.
func (s *sorter) emit(action frame.Action, msg string, overlay map[int]frame.State, pointers map[string]int) error {
	states := frame.CopyStates(s.states)
	highlights := make([]int, 0, len(overlay))
	for i, st := range overlay {
		states[i] = st
		highlights = append(highlights, i)
	}
	sort.Ints(highlights)
	return s.rec.Add(frame.Array{
		Action:     action,
		Data:       frame.CopyInts(s.data),
		Highlights: highlights,
		States:     states,
		Pointers:   pointers,
		Message:    msg,
	})
}

func (s *sorter) compare(i, j int, pointers map[string]int) error {
	s.comparisons++
	return s.emit(frame.ActionCompare,
		fmt.Sprintf("Compare a[%d]=%d with a[%d]=%d", i, s.data[i], j, s.data[j]),
		map[int]frame.State{i: frame.StateComparing, j: frame.StateComparing}, pointers)
}

func (s *sorter) swap(i, j int, pointers map[string]int) error {
	s.swaps++
	s.data[i], s.data[j] = s.data[j], s.data[i]
	return s.emit(frame.ActionSwap,
		fmt.Sprintf("Swap a[%d] and a[%d]", i, j),
		map[int]frame.State{i: frame.StateSwapping, j: frame.StateSwapping}, pointers)
}

func (s *sorter) write(k, v int) error {
	s.writes++
	s.data[k] = v
	return s.emit(frame.ActionWrite, fmt.Sprintf("Write %d to a[%d]", v, k),
		map[int]frame.State{k: frame.StateSwapping}, nil)
}

func (s *sorter) markSorted(i int) {
	s.states[i] = frame.StateSorted
}

func (s *sorter) finish() (*frame.Sequence[frame.Array], error) {
	for i := range s.states {
		s.states[i] = frame.StateSorted
	}
	if err := s.emit(frame.ActionDone, "Array is sorted", nil, nil); err != nil {
		return nil, err
	}
	s.rec.Set("comparisons", float64(s.comparisons))
	s.rec.Set("swaps", float64(s.swaps))
	s.rec.Set("writes", float64(s.writes))
	s.rec.Explain("Performed %d comparisons, %d swaps and %d writes.", s.comparisons, s.swaps, s.writes)
	return s.rec.Sequence(), nil
}

// BubbleSort repeatedly swaps adjacent out-of-order pairs and stops early on a clean pass.
func BubbleSort(ctx context.Context, p SortParams, opts ...Option) (*frame.Sequence[frame.Array], error) {
	s, err := newSorter(ctx, "bubble_sort", "Bubble sort", p, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	s.rec.Explain("Each pass bubbles the largest remaining element to the end of the unsorted prefix.")
	n := len(s.data)
	for pass := 0; pass < n-1; pass++ {
		swapped := false
		for j := 0; j < n-1-pass; j++ {
			ptr := map[string]int{"j": j}
			if err := s.compare(j, j+1, ptr); err != nil {
				return nil, err
			}
			if s.data[j] > s.data[j+1] {
				if err := s.swap(j, j+1, ptr); err != nil {
					return nil, err
				}
				swapped = true
			}
		}
		s.markSorted(n - 1 - pass)
		if !swapped {
			s.rec.Explain("Pass %d made no swaps, so the array is already sorted.", pass+1)
			break
		}
	}
	s.rec.Explain("Worst and average case O(n^2) comparisons, best case O(n) on sorted input.")
	return s.finish()
}

// SelectionSort moves the minimum of the unsorted suffix to its front on every pass.
func SelectionSort(ctx context.Context, p SortParams, opts ...Option) (*frame.Sequence[frame.Array], error) {
	s, err := newSorter(ctx, "selection_sort", "Selection sort", p, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	s.rec.Explain("Each pass selects the minimum of the unsorted suffix and swaps it into place.")
	n := len(s.data)
	for i := 0; i < n-1; i++ {
		minIdx := i
		for j := i + 1; j < n; j++ {
			if err := s.compare(j, minIdx, map[string]int{"i": i, "min": minIdx}); err != nil {
				return nil, err
			}
			if s.data[j] < s.data[minIdx] {
				minIdx = j
			}
		}
		if minIdx != i {
			if err := s.swap(i, minIdx, map[string]int{"i": i, "min": minIdx}); err != nil {
				return nil, err
			}
		}
		s.markSorted(i)
	}
	s.rec.Explain("Always O(n^2) comparisons but at most n-1 swaps.")
	return s.finish()
}

// InsertionSort grows a sorted prefix by sinking each new element into position.
func InsertionSort(ctx context.Context, p SortParams, opts ...Option) (*frame.Sequence[frame.Array], error) {
	s, err := newSorter(ctx, "insertion_sort", "Insertion sort", p, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	s.rec.Explain("Each element is shifted left until the prefix before it is sorted.")
	for i := 1; i < len(s.data); i++ {
		for j := i; j > 0; j-- {
			ptr := map[string]int{"i": i, "j": j}
			if err := s.compare(j-1, j, ptr); err != nil {
				return nil, err
			}
			if s.data[j-1] <= s.data[j] {
				break
			}
			if err := s.swap(j-1, j, ptr); err != nil {
				return nil, err
			}
		}
	}
	s.rec.Explain("O(n^2) in the worst case, O(n) when the input is nearly sorted; stable.")
	return s.finish()
}

// MergeSort splits the array in halves and merges them back through an auxiliary buffer.
func MergeSort(ctx context.Context, p SortParams, opts ...Option) (*frame.Sequence[frame.Array], error) {
	s, err := newSorter(ctx, "merge_sort", "Merge sort", p, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	s.rec.Explain("Recursively sort both halves, then merge them by repeatedly taking the smaller head.")
	aux := make([]int, len(s.data))
	if err := s.mergeSort(aux, 0, len(s.data)-1); err != nil {
		return nil, err
	}
	s.rec.Explain("O(n log n) comparisons in every case using O(n) extra space; stable.")
	return s.finish()
}

func (s *sorter) mergeSort(aux []int, lo, hi int) error {
	if lo >= hi {
		return nil
	}
	mid := lo + (hi-lo)/2
	if err := s.mergeSort(aux, lo, mid); err != nil {
		return err
	}
	if err := s.mergeSort(aux, mid+1, hi); err != nil {
		return err
	}
	copy(aux[lo:hi+1], s.data[lo:hi+1])

	i, j := lo, mid+1
	for k := lo; k <= hi; k++ {
		ptr := map[string]int{"lo": lo, "mid": mid, "hi": hi}
		switch {
		case i > mid:
			if err := s.write(k, aux[j]); err != nil {
				return err
			}
			j++
		case j > hi:
			if err := s.write(k, aux[i]); err != nil {
				return err
			}
			i++
		default:
			s.comparisons++
			if err := s.emit(frame.ActionCompare,
				fmt.Sprintf("Compare left head %d with right head %d", aux[i], aux[j]),
				map[int]frame.State{k: frame.StateComparing}, ptr); err != nil {
				return err
			}
			if aux[j] < aux[i] {
				if err := s.write(k, aux[j]); err != nil {
					return err
				}
				j++
			} else {
				if err := s.write(k, aux[i]); err != nil {
					return err
				}
				i++
			}
		}
	}
	return nil
}

// QuickSort partitions around the last element (Lomuto) and recurses on both sides.
func QuickSort(ctx context.Context, p SortParams, opts ...Option) (*frame.Sequence[frame.Array], error) {
	s, err := newSorter(ctx, "quick_sort", "Quick sort", p, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	s.rec.Explain("Pick the last element as pivot, move smaller elements before it, then recurse on both sides.")
	if err := s.quickSort(0, len(s.data)-1); err != nil {
		return nil, err
	}
	s.rec.Explain("O(n log n) on average, O(n^2) when pivots are consistently extreme.")
	return s.finish()
}

func (s *sorter) quickSort(lo, hi int) error {
	if lo > hi {
		return nil
	}
	if lo == hi {
		s.markSorted(lo)
		return nil
	}
	pivot := s.data[hi]
	i := lo
	for j := lo; j < hi; j++ {
		ptr := map[string]int{"pivot": hi, "i": i, "j": j}
		s.comparisons++
		if err := s.emit(frame.ActionCompare,
			fmt.Sprintf("Compare a[%d]=%d with pivot %d", j, s.data[j], pivot),
			map[int]frame.State{j: frame.StateComparing, hi: frame.StatePivot}, ptr); err != nil {
			return err
		}
		if s.data[j] < pivot {
			if i != j {
				if err := s.swap(i, j, ptr); err != nil {
					return err
				}
			}
			i++
		}
	}
	if i != hi {
		if err := s.swap(i, hi, map[string]int{"pivot": i}); err != nil {
			return err
		}
	}
	s.markSorted(i)
	if err := s.emit(frame.ActionMark, fmt.Sprintf("Pivot %d is in its final position %d", pivot, i),
		map[int]frame.State{i: frame.StatePivot}, nil); err != nil {
		return err
	}
	if err := s.quickSort(lo, i-1); err != nil {
		return err
	}
	return s.quickSort(i+1, hi)
}

// HeapSort builds a max-heap and repeatedly moves its root behind the heap.
func HeapSort(ctx context.Context, p SortParams, opts ...Option) (*frame.Sequence[frame.Array], error) {
	s, err := newSorter(ctx, "heap_sort", "Heap sort", p, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	s.rec.Explain("Build a max-heap in place, then swap the root to the end and restore the heap.")
	n := len(s.data)
	for i := n/2 - 1; i >= 0; i-- {
		if err := s.siftDown(i, n); err != nil {
			return nil, err
		}
	}
	for end := n - 1; end > 0; end-- {
		if err := s.swap(0, end, map[string]int{"end": end}); err != nil {
			return nil, err
		}
		s.markSorted(end)
		if err := s.siftDown(0, end); err != nil {
			return nil, err
		}
	}
	s.rec.Explain("O(n log n) in every case with O(1) extra space; not stable.")
	return s.finish()
}

func (s *sorter) siftDown(root, size int) error {
	for {
		largest := root
		for _, child := range []int{2*root + 1, 2*root + 2} {
			if child >= size {
				continue
			}
			if err := s.compare(child, largest, map[string]int{"root": root}); err != nil {
				return err
			}
			if s.data[child] > s.data[largest] {
				largest = child
			}
		}
		if largest == root {
			return nil
		}
		if err := s.swap(root, largest, map[string]int{"root": root}); err != nil {
			return err
		}
		root = largest
	}
}
