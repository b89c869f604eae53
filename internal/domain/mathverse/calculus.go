package mathverse

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/visualverse/internal/domain/frame"
)

const (
	derivativeStep = 1e-5
	defaultSecants = 8
	maxSecants     = 30
	maxDoublings   = 12
	// maxStrips bounds the finest subdivision of a Riemann sum.
	maxStrips = 1 << 16
)

// TangentParams shrinks a secant through (X0, f(X0)) towards the tangent.
// H is the initial secant width, halved Steps times.
type TangentParams struct {
	Function Function `json:"function" validate:"required"`
	X0       float64  `json:"x0"`
	H        float64  `json:"h" validate:"gte=0"`
	Steps    int      `json:"steps" validate:"gte=0,lte=30"`
}

// Size reports the number of secants.
func (p TangentParams) Size() int {
	if p.Steps == 0 {
		return defaultSecants
	}
	return p.Steps
}

// TangentLine animates secant slopes converging to the derivative at X0,
// which is estimated by a central difference.
func TangentLine(ctx context.Context, p TangentParams, opts ...Option) (*frame.Sequence[frame.Chart], error) {
	f, label, err := p.Function.compile()
	if err != nil {
		return nil, err
	}
	h := p.H
	if h == 0 {
		h = 1
	}
	steps := p.Size()
	if h < 0 || !frame.Finite(h) || !frame.Finite(p.X0) || steps > maxSecants {
		return nil, fmt.Errorf("%w: h > 0 and at most %d steps", ErrInvalidParams, maxSecants)
	}
	y0, ok := f(p.X0)
	if !ok {
		return nil, fmt.Errorf("%w: f(%g)", ErrUndefined, p.X0)
	}
	fp, okp := f(p.X0 + derivativeStep)
	fm, okm := f(p.X0 - derivativeStep)
	if !okp || !okm {
		return nil, fmt.Errorf("%w: near x0 = %g", ErrUndefined, p.X0)
	}
	slope := (fp - fm) / (2 * derivativeStep)

	lo, hi := p.X0-2*h, p.X0+2*h
	curve, _ := sample(f, lo, hi, 100)

	rec := frame.NewRecorder[frame.Chart](ctx, domain, "tangent_line", "Tangent to y = "+label, buildOptions(opts).maxFrames)
	rec.Explain("The secant through x0 and x0 + h has slope (f(x0+h) - f(x0)) / h.")
	rec.Explain("As h shrinks the secant turns into the tangent; f'(%g) = %.6f by central difference.", p.X0, slope)

	for k := 0; k < steps; k++ {
		hk := h / math.Pow(2, float64(k))
		y1, ok := f(p.X0 + hk)
		if !ok {
			return nil, fmt.Errorf("%w: f(%g)", ErrUndefined, p.X0+hk)
		}
		m := (y1 - y0) / hk
		if err := rec.Add(frame.Chart{
			Action: frame.ActionStep,
			Series: map[string][]frame.Vec2{
				"f":      curve,
				"secant": line(p.X0, y0, m, lo, hi),
				"points": {{X: p.X0, Y: y0}, {X: p.X0 + hk, Y: y1}},
			},
			Values:  map[string]float64{"h": hk, "secant_slope": m, "error": math.Abs(m - slope)},
			Message: fmt.Sprintf("h = %g, slope %.6f", hk, m),
		}); err != nil {
			return nil, err
		}
	}
	if err := rec.Add(frame.Chart{
		Action: frame.ActionConverged,
		Series: map[string][]frame.Vec2{
			"f":       curve,
			"tangent": line(p.X0, y0, slope, lo, hi),
			"points":  {{X: p.X0, Y: y0}},
		},
		Values:  map[string]float64{"derivative": slope, "y0": y0, "intercept": y0 - slope*p.X0},
		Message: fmt.Sprintf("y = %.6f (x - %g) + %.6f", slope, p.X0, y0),
	}); err != nil {
		return nil, err
	}
	rec.Set("derivative", slope)
	rec.Set("y0", y0)
	return rec.Sequence(), nil
}

// Riemann sum methods.
const (
	MethodLeft      = "left"
	MethodRight     = "right"
	MethodMidpoint  = "midpoint"
	MethodTrapezoid = "trapezoid"
)

const (
	defaultDoublings = 6
	simpsonIntervals = 2000
)

// RiemannParams approximates the integral of Function over [A, B],
// starting with N subintervals and doubling Doublings times.
type RiemannParams struct {
	Function  Function `json:"function" validate:"required"`
	A         float64  `json:"a"`
	B         float64  `json:"b" validate:"gtfield=A"`
	Method    string   `json:"method" validate:"omitempty,oneof=left right midpoint trapezoid"`
	N         int      `json:"n" validate:"gte=0"`
	Doublings int      `json:"doublings" validate:"gte=0,lte=12"`
}

func (p RiemannParams) resolve() (n, doublings int, method string) {
	n, doublings, method = p.N, p.Doublings, p.Method
	if n == 0 {
		n = 2
	}
	if doublings == 0 {
		doublings = defaultDoublings
	}
	if method == "" {
		method = MethodMidpoint
	}
	return n, doublings, method
}

// Size reports the largest subinterval count, saturating above
// frame.MaxSamples instead of overflowing.
func (p RiemannParams) Size() int {
	n, d, _ := p.resolve()
	if n < 0 || d < 0 || d > maxDoublings || n > frame.MaxSamples>>d {
		return frame.MaxSamples + 1
	}
	return n << d
}

// RiemannSum animates rectangle (or trapezoid) approximations against a
// composite Simpson reference.
func RiemannSum(ctx context.Context, p RiemannParams, opts ...Option) (*frame.Sequence[frame.Chart], error) {
	f, label, err := p.Function.compile()
	if err != nil {
		return nil, err
	}
	if err := interval(p.A, p.B); err != nil {
		return nil, err
	}
	n, doublings, method := p.resolve()
	if n < 1 || doublings < 0 || doublings > maxDoublings || n > maxStrips>>doublings {
		return nil, fmt.Errorf("%w: n >= 1, at most %d doublings and %d strips", ErrInvalidParams, maxDoublings, maxStrips)
	}
	switch method {
	case MethodLeft, MethodRight, MethodMidpoint, MethodTrapezoid:
	default:
		return nil, fmt.Errorf("%w: method %q", ErrInvalidParams, method)
	}
	ref, err := simpson(f, p.A, p.B, simpsonIntervals)
	if err != nil {
		return nil, err
	}
	curve, _ := sample(f, p.A, p.B, 200)

	rec := frame.NewRecorder[frame.Chart](ctx, domain, "riemann_sum", "Riemann sums of y = "+label, buildOptions(opts).maxFrames)
	rec.Explain("Split [%g, %g] into n strips of width (b - a) / n and add up %s estimates.", p.A, p.B, method)
	rec.Explain("Simpson's rule with %d intervals gives the reference value %.8f.", simpsonIntervals, ref)

	var approx float64
	for d := 0; d <= doublings; d++ {
		k := n << d
		var heights []frame.Vec2
		approx, heights, err = riemann(f, p.A, p.B, k, method)
		if err != nil {
			return nil, err
		}
		if err := rec.Add(frame.Chart{
			Action: frame.ActionStep,
			Series: map[string][]frame.Vec2{"f": curve, "strips": heights},
			Values: map[string]float64{
				"n": float64(k), "approximation": approx, "reference": ref, "error": math.Abs(approx - ref),
			},
			Message: fmt.Sprintf("n = %d: %.8f", k, approx),
		}); err != nil {
			return nil, err
		}
	}
	rec.Explain("With n = %d the %s sum is %.8f, error %.2e.", n<<doublings, method, approx, math.Abs(approx-ref))
	rec.Set("approximation", approx)
	rec.Set("reference", ref)
	rec.Set("error", math.Abs(approx-ref))
	rec.Set("n", float64(n<<doublings))
	return rec.Sequence(), nil
}

// riemann returns the sum and, per strip, the left edge and the height drawn.
func riemann(f evaluator, a, b float64, n int, method string) (float64, []frame.Vec2, error) {
	w := (b - a) / float64(n)
	sum := 0.0
	strips := make([]frame.Vec2, 0, n)
	at := func(x float64) (float64, error) {
		y, ok := f(x)
		if !ok {
			return 0, fmt.Errorf("%w: f(%g)", ErrUndefined, x)
		}
		return y, nil
	}
	for i := 0; i < n; i++ {
		x := a + float64(i)*w
		var h float64
		var err error
		switch method {
		case MethodLeft:
			h, err = at(x)
		case MethodRight:
			h, err = at(x + w)
		case MethodMidpoint:
			h, err = at(x + w/2)
		case MethodTrapezoid:
			var l, r float64
			if l, err = at(x); err == nil {
				r, err = at(x + w)
				h = (l + r) / 2
			}
		}
		if err != nil {
			return 0, nil, err
		}
		sum += h * w
		strips = append(strips, frame.Vec2{X: x, Y: h})
	}
	return sum, strips, nil
}

// simpson applies the composite rule; n must be even.
func simpson(f evaluator, a, b float64, n int) (float64, error) {
	w := (b - a) / float64(n)
	sum := 0.0
	for i := 0; i <= n; i++ {
		y, ok := f(a + float64(i)*w)
		if !ok {
			return 0, fmt.Errorf("%w: f(%g)", ErrUndefined, a+float64(i)*w)
		}
		switch {
		case i == 0 || i == n:
			sum += y
		case i%2 == 1:
			sum += 4 * y
		default:
			sum += 2 * y
		}
	}
	return sum * w / 3, nil
}
