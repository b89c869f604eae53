// Package mathverse plots functions and animates calculus and trigonometry
// ideas as chart frames.
package mathverse

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/okian/visualverse/internal/domain/frame"
)

const domain = "math"

// Sentinel errors.
var (
	ErrInvalidParams   = errors.New("mathverse: invalid parameters")
	ErrUnknownFunction = errors.New("mathverse: unknown function kind")
	ErrUndefined       = errors.New("mathverse: function undefined on the interval")
)

// Function kinds.
const (
	KindPolynomial = "polynomial"
	KindSin        = "sin"
	KindCos        = "cos"
	KindExp        = "exp"
	KindLog        = "log"
)

// Option configures a generator run.
type Option func(*options)

type options struct {
	maxFrames int
}

// WithMaxFrames caps the number of frames; zero disables the cap.
func WithMaxFrames(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxFrames = n
		}
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Function describes a real function of one variable.
//
// For polynomials Coefficients are c0, c1, c2, ... of c0 + c1 x + c2 x^2.
// For sin, cos, exp and log they are a, b, c, d of a*f(b*x + c) + d;
// missing entries default to a=1, b=1, c=0, d=0.
type Function struct {
	Kind         string    `json:"kind" validate:"required,oneof=polynomial sin cos exp log"`
	Coefficients []float64 `json:"coefficients,omitempty" validate:"max=16"`
}

type evaluator func(x float64) (float64, bool)

func (f Function) compile() (evaluator, string, error) {
	for _, c := range f.Coefficients {
		if !frame.Finite(c) {
			return nil, "", fmt.Errorf("%w: coefficients must be finite", ErrInvalidParams)
		}
	}
	if f.Kind == KindPolynomial {
		cs := append([]float64(nil), f.Coefficients...)
		if len(cs) == 0 {
			cs = []float64{0}
		}
		eval := func(x float64) (float64, bool) {
			// Horner.
			y := 0.0
			for i := len(cs) - 1; i >= 0; i-- {
				y = y*x + cs[i]
			}
			return y, frame.Finite(y)
		}
		return eval, polyLabel(cs), nil
	}

	var base func(float64) (float64, bool)
	switch f.Kind {
	case KindSin:
		base = func(u float64) (float64, bool) { return math.Sin(u), true }
	case KindCos:
		base = func(u float64) (float64, bool) { return math.Cos(u), true }
	case KindExp:
		base = func(u float64) (float64, bool) { return math.Exp(u), true }
	case KindLog:
		base = func(u float64) (float64, bool) {
			if u <= 0 {
				return 0, false
			}
			return math.Log(u), true
		}
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownFunction, f.Kind)
	}
	k := [4]float64{1, 1, 0, 0}
	if len(f.Coefficients) > 4 {
		return nil, "", fmt.Errorf("%w: %s takes at most 4 coefficients", ErrInvalidParams, f.Kind)
	}
	copy(k[:], f.Coefficients)
	a, b, c, d := k[0], k[1], k[2], k[3]
	eval := func(x float64) (float64, bool) {
		v, ok := base(b*x + c)
		if !ok {
			return 0, false
		}
		y := a*v + d
		return y, frame.Finite(y)
	}
	label := fmt.Sprintf("%s*%s(%s*x + %s) + %s", num(a), f.Kind, num(b), num(c), num(d))
	return eval, label, nil
}

func polyLabel(cs []float64) string {
	var terms []string
	for i := len(cs) - 1; i >= 0; i-- {
		if cs[i] == 0 && len(cs) > 1 {
			continue
		}
		switch i {
		case 0:
			terms = append(terms, num(cs[i]))
		case 1:
			terms = append(terms, num(cs[i])+"x")
		default:
			terms = append(terms, fmt.Sprintf("%sx^%d", num(cs[i]), i))
		}
	}
	if len(terms) == 0 {
		return "0"
	}
	return strings.Join(terms, " + ")
}

func num(x float64) string { return fmt.Sprintf("%g", x) }

// interval validates lo < hi.
func interval(lo, hi float64) error {
	if !frame.Finite(lo) || !frame.Finite(hi) || lo >= hi || !frame.Finite(hi-lo) {
		return fmt.Errorf("%w: need a finite interval with min < max", ErrInvalidParams)
	}
	return nil
}

// sample evaluates f at n+1 evenly spaced points, skipping undefined ones.
func sample(f evaluator, lo, hi float64, n int) (pts []frame.Vec2, undefined int) {
	pts = make([]frame.Vec2, 0, n+1)
	for i := 0; i <= n; i++ {
		x := lo + (hi-lo)*float64(i)/float64(n)
		if y, ok := f(x); ok {
			pts = append(pts, frame.Vec2{X: x, Y: y})
		} else {
			undefined++
		}
	}
	return pts, undefined
}

// line returns the segment of y = y0 + m (x - x0) over [lo, hi].
func line(x0, y0, m, lo, hi float64) []frame.Vec2 {
	return []frame.Vec2{{X: lo, Y: y0 + m*(lo-x0)}, {X: hi, Y: y0 + m*(hi-x0)}}
}
