// Package render dispatches (domain, kind) requests to the vertical
// generators and enforces input and output limits.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/visualverse/internal/domain/algoverse"
	"github.com/okian/visualverse/internal/domain/catalog"
	"github.com/okian/visualverse/internal/domain/chemverse"
	"github.com/okian/visualverse/internal/domain/finverse"
	"github.com/okian/visualverse/internal/domain/frame"
	"github.com/okian/visualverse/internal/domain/mathverse"
	"github.com/okian/visualverse/internal/domain/physverse"
	"github.com/okian/visualverse/pkg/metrics"
)

const (
	defaultMaxInput  = 512
	defaultMaxFrames = 20000
)

// Result is a rendered sequence.
type Result struct {
	Domain     string         `json:"domain"`
	Kind       string         `json:"kind"`
	FrameCount int            `json:"frame_count"`
	Sequence   frame.Playable `json:"sequence"`
}

type sized interface {
	Size() int
}

// framed params know how many frames they will produce before rendering.
type framed interface {
	Frames() int
}

// generator decodes params with decode and renders at most maxFrames frames.
type generator func(ctx context.Context, decode func(any) error, maxFrames int) (frame.Playable, error)

// Registry maps (domain, kind) to a generator.
type Registry struct {
	gens      map[string]generator
	catalog   *catalog.Catalog
	validate  *validator.Validate
	maxInput  int
	maxFrames int
}

// bind adapts a typed generator.
func bind[P, F, O any](gen func(context.Context, P, ...O) (*frame.Sequence[F], error), withMax func(int) O) generator {
	return func(ctx context.Context, decode func(any) error, maxFrames int) (frame.Playable, error) {
		var p P
		if err := decode(&p); err != nil {
			return nil, err
		}
		seq, err := gen(ctx, p, withMax(maxFrames))
		if err != nil {
			return nil, err
		}
		if err := seq.Validate(); err != nil {
			return nil, err
		}
		return seq, nil
	}
}

// NewRegistry registers every vertical generator.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		gens:      make(map[string]generator),
		validate:  validator.New(),
		maxInput:  defaultMaxInput,
		maxFrames: defaultMaxFrames,
	}
	for _, opt := range opts {
		opt(r)
	}

	algo := algoverse.WithMaxFrames
	r.add(catalog.DomainAlgorithms, map[string]generator{
		"bubble_sort":    bind(algoverse.BubbleSort, algo),
		"selection_sort": bind(algoverse.SelectionSort, algo),
		"insertion_sort": bind(algoverse.InsertionSort, algo),
		"merge_sort":     bind(algoverse.MergeSort, algo),
		"quick_sort":     bind(algoverse.QuickSort, algo),
		"heap_sort":      bind(algoverse.HeapSort, algo),
		"linear_search":  bind(algoverse.LinearSearch, algo),
		"binary_search":  bind(algoverse.BinarySearch, algo),
		"bfs":            bind(algoverse.BFS, algo),
		"dfs":            bind(algoverse.DFS, algo),
		"dijkstra":       bind(algoverse.Dijkstra, algo),
		"bellman_ford":   bind(algoverse.BellmanFord, algo),
		"tree_traversal": bind(algoverse.TreeTraversal, algo),
	})
	phys := physverse.WithMaxFrames
	r.add(catalog.DomainPhysics, map[string]generator{
		"projectile":          bind(physverse.Projectile, phys),
		"free_fall":           bind(physverse.FreeFall, phys),
		"harmonic_oscillator": bind(physverse.HarmonicOscillator, phys),
		"pendulum":            bind(physverse.Pendulum, phys),
		"circular_motion":     bind(physverse.CircularMotion, phys),
		"elastic_collision":   bind(physverse.ElasticCollision, phys),
	})
	maths := mathverse.WithMaxFrames
	r.add(catalog.DomainMath, map[string]generator{
		"function_plot": bind(mathverse.FunctionPlot, maths),
		"tangent_line":  bind(mathverse.TangentLine, maths),
		"riemann_sum":   bind(mathverse.RiemannSum, maths),
		"unit_circle":   bind(mathverse.UnitCircle, maths),
	})
	chem := chemverse.WithMaxFrames
	r.add(catalog.DomainChemistry, map[string]generator{
		"molar_mass":        bind(chemverse.MolarMass, chem),
		"ideal_gas":         bind(chemverse.IdealGas, chem),
		"radioactive_decay": bind(chemverse.RadioactiveDecay, chem),
		"ph":                bind(chemverse.PH, chem),
	})
	fin := finverse.WithMaxFrames
	r.add(catalog.DomainFinance, map[string]generator{
		"compound_interest": bind(finverse.CompoundInterest, fin),
		"amortization":      bind(finverse.Amortization, fin),
		"npv":               bind(finverse.NPV, fin),
		"irr":               bind(finverse.IRR, fin),
	})

	var entries []catalog.Entry
	entries = append(entries, algoverse.Catalog()...)
	entries = append(entries, physverse.Catalog()...)
	entries = append(entries, mathverse.Catalog()...)
	entries = append(entries, chemverse.Catalog()...)
	entries = append(entries, finverse.Catalog()...)
	r.catalog = catalog.New(entries...)
	return r
}

func (r *Registry) add(domain string, gens map[string]generator) {
	for kind, g := range gens {
		r.gens[domain+"/"+kind] = g
	}
}

// Catalog returns the concept catalog of every vertical.
func (r *Registry) Catalog() *catalog.Catalog { return r.catalog }

// Has reports whether (domain, kind) can be rendered.
func (r *Registry) Has(domain, kind string) bool {
	_, ok := r.gens[domain+"/"+kind]
	return ok
}

// Kinds lists every registered "domain/kind" key, sorted.
func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.gens))
	for k := range r.gens {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Render decodes raw params (unknown fields rejected), validates them and
// runs the generator. Generator input errors are wrapped in ErrBadParams;
// frame-limit and input-size violations in ErrLimit.
func (r *Registry) Render(ctx context.Context, domain, kind string, raw json.RawMessage) (Result, error) {
	start := time.Now()
	gen, ok := r.gens[domain+"/"+kind]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s/%s", ErrUnknownKind, domain, kind)
	}

	seq, err := gen(ctx, r.decoder(raw), r.maxFrames)
	latency := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		err = r.classify(err)
		metrics.RecordRender(domain, kind, Code(err), 0, latency)
		return Result{}, err
	}
	metrics.RecordRender(domain, kind, "ok", seq.Len(), latency)
	return Result{Domain: domain, Kind: kind, FrameCount: seq.Len(), Sequence: seq}, nil
}

func (r *Registry) decoder(raw json.RawMessage) func(any) error {
	return func(dst any) error {
		body := bytes.TrimSpace(raw)
		if len(body) == 0 || bytes.Equal(body, []byte("null")) {
			body = []byte("{}")
		}
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(dst); err != nil {
			return fmt.Errorf("%w: %v", ErrBadParams, err)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: trailing data after params", ErrBadParams)
		}
		if err := r.validate.Struct(dst); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				fe := verrs[0]
				return fmt.Errorf("%w: field %s failed %s", ErrBadParams, fe.Field(), fe.Tag())
			}
			return fmt.Errorf("%w: %v", ErrBadParams, err)
		}
		if s, ok := dst.(sized); ok && s.Size() > r.maxInput {
			return fmt.Errorf("%w: size %d > %d", ErrLimit, s.Size(), r.maxInput)
		}
		if f, ok := dst.(framed); ok && r.maxFrames > 0 && f.Frames() > r.maxFrames {
			return fmt.Errorf("%w: %d frames > %d", ErrLimit, f.Frames(), r.maxFrames)
		}
		return nil
	}
}

func (r *Registry) classify(err error) error {
	switch {
	case errors.Is(err, ErrBadParams), errors.Is(err, ErrLimit),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, frame.ErrFrameLimit):
		return fmt.Errorf("%w: %w", ErrLimit, err)
	default:
		return fmt.Errorf("%w: %w", ErrBadParams, err)
	}
}

// Code names the class of a render error; it is also the metrics outcome label.
func Code(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnknownKind):
		return "unknown_kind"
	case errors.Is(err, ErrLimit):
		return "limit"
	case errors.Is(err, ErrBadParams):
		return "bad_params"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
