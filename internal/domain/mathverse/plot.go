package mathverse

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/visualverse/internal/domain/frame"
)

const (
	defaultSamples = 200
	maxPlotSamples = 1 << 16
	plotChunks     = 10
)

// PlotParams plots Function over [XMin, XMax].
type PlotParams struct {
	Function Function `json:"function" validate:"required"`
	XMin     float64  `json:"x_min"`
	XMax     float64  `json:"x_max" validate:"gtfield=XMin"`
	Samples  int      `json:"samples" validate:"gte=0"`
}

// Size reports the number of samples.
func (p PlotParams) Size() int {
	if p.Samples == 0 {
		return defaultSamples
	}
	return p.Samples
}

// FunctionPlot draws the curve progressively and marks its real roots.
func FunctionPlot(ctx context.Context, p PlotParams, opts ...Option) (*frame.Sequence[frame.Chart], error) {
	f, label, err := p.Function.compile()
	if err != nil {
		return nil, err
	}
	if err := interval(p.XMin, p.XMax); err != nil {
		return nil, err
	}
	n := p.Size()
	if n < 2 || n > maxPlotSamples {
		return nil, fmt.Errorf("%w: between 2 and %d samples", ErrInvalidParams, maxPlotSamples)
	}
	pts, undefined := sample(f, p.XMin, p.XMax, n)
	if len(pts) == 0 {
		return nil, fmt.Errorf("%w: no defined points on [%g, %g]", ErrUndefined, p.XMin, p.XMax)
	}

	rec := frame.NewRecorder[frame.Chart](ctx, domain, "function_plot", "Plot of y = "+label, buildOptions(opts).maxFrames)
	rec.Explain("Evaluate y = %s at %d evenly spaced points on [%g, %g].", label, n+1, p.XMin, p.XMax)
	if undefined > 0 {
		rec.Explain("%d points fall outside the function's domain and are skipped.", undefined)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	chunks := plotChunks
	if len(pts) < chunks {
		chunks = len(pts)
	}
	for c := 1; c <= chunks; c++ {
		end := len(pts) * c / chunks
		for _, pt := range pts[:end] {
			lo, hi = math.Min(lo, pt.Y), math.Max(hi, pt.Y)
		}
		if err := rec.Add(frame.Chart{
			Action: frame.ActionSample,
			Series: map[string][]frame.Vec2{"f": append([]frame.Vec2(nil), pts[:end]...)},
			Values: map[string]float64{"x": pts[end-1].X, "y": pts[end-1].Y, "min": lo, "max": hi},
		}); err != nil {
			return nil, err
		}
	}

	roots := findRoots(f, pts)
	rootPts := make([]frame.Vec2, len(roots))
	for i, r := range roots {
		rootPts[i] = frame.Vec2{X: r}
	}
	if len(roots) > 0 {
		rec.Explain("Sign changes locate %d real root(s), refined by bisection.", len(roots))
	} else {
		rec.Explain("The curve never crosses the x-axis on this interval.")
	}
	if err := rec.Add(frame.Chart{
		Action:  frame.ActionDone,
		Series:  map[string][]frame.Vec2{"f": append([]frame.Vec2(nil), pts...), "roots": rootPts},
		Values:  map[string]float64{"min": lo, "max": hi, "roots": float64(len(roots))},
		Message: fmt.Sprintf("y = %s", label),
	}); err != nil {
		return nil, err
	}
	rec.Set("min", lo)
	rec.Set("max", hi)
	rec.Set("roots", float64(len(roots)))
	rec.Set("undefined_points", float64(undefined))
	return rec.Sequence(), nil
}

// findRoots brackets sign changes between neighbouring samples.
func findRoots(f evaluator, pts []frame.Vec2) []float64 {
	var roots []float64
	for i, pt := range pts {
		if pt.Y == 0 {
			roots = append(roots, pt.X)
			continue
		}
		if i == 0 {
			continue
		}
		prev := pts[i-1]
		if prev.Y != 0 && (prev.Y < 0) != (pt.Y < 0) {
			if r, ok := bisect(f, prev.X, pt.X, prev.Y); ok {
				roots = append(roots, r)
			}
		}
	}
	return roots
}

func bisect(f evaluator, a, b, fa float64) (float64, bool) {
	for i := 0; i < 60; i++ {
		m := (a + b) / 2
		fm, ok := f(m)
		if !ok {
			return 0, false
		}
		if fm == 0 {
			return m, true
		}
		if (fa < 0) == (fm < 0) {
			a, fa = m, fm
		} else {
			b = m
		}
	}
	return (a + b) / 2, true
}
