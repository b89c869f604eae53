// Package physverse samples classical mechanics scenarios into physics frames.
//
// Positions are in metres, velocities in m/s and accelerations in m/s^2.
// Energies are reported per unit mass unless a mass is part of the input.
package physverse

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/visualverse/internal/domain/frame"
)

const (
	domain = "physics"

	// StandardGravity is used when a scenario leaves gravity unset.
	StandardGravity = 9.81

	defaultDt       = 0.05
	defaultDuration = 10.0
)

// Sentinel errors.
var (
	ErrInvalidParams = errors.New("physverse: invalid parameters")
	ErrNoCollision   = errors.New("physverse: bodies never meet")
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

// Timing controls sampling. Zero values select the defaults (dt 0.05 s, 10 s).
type Timing struct {
	Dt       float64 `json:"dt" validate:"gte=0"`
	Duration float64 `json:"duration" validate:"gte=0"`
}

func (t Timing) resolve() (dt, duration float64, err error) {
	dt, duration = t.Dt, t.Duration
	if dt == 0 {
		dt = defaultDt
	}
	if duration == 0 {
		duration = defaultDuration
	}
	if dt <= 0 || duration <= 0 || !frame.Finite(dt) || !frame.Finite(duration) {
		return 0, 0, fmt.Errorf("%w: dt and duration must be positive", ErrInvalidParams)
	}
	if n := frame.SampleCount(math.Ceil(duration / dt)); n > frame.MaxSamples {
		return 0, 0, fmt.Errorf("%w: duration / dt exceeds %d samples", ErrInvalidParams, frame.MaxSamples)
	}
	return dt, duration, nil
}

// Frames estimates the number of samples. It saturates above
// frame.MaxSamples, and invalid timings report zero.
func (t Timing) Frames() int {
	dt, duration := t.Dt, t.Duration
	if dt == 0 {
		dt = defaultDt
	}
	if duration == 0 {
		duration = defaultDuration
	}
	if dt <= 0 || duration <= 0 {
		return 0
	}
	n := frame.SampleCount(math.Ceil(duration / dt))
	if n > frame.MaxSamples {
		return n
	}
	return n + 1
}

func gravity(g float64) float64 {
	if g == 0 {
		return StandardGravity
	}
	return g
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }

func rad2deg(r float64) float64 { return r * 180 / math.Pi }

// body builds the single-body maps of a frame.
func body(name string, pos, vel, acc frame.Vec2) (p, v, a map[string]frame.Vec2) {
	return map[string]frame.Vec2{name: pos}, map[string]frame.Vec2{name: vel}, map[string]frame.Vec2{name: acc}
}

// stepsPrealloc caps the capacity reserved up front by steps.
const stepsPrealloc = 4096

// steps returns sample times 0, dt, 2dt, ... up to and including end.
// More than frame.MaxSamples samples is an input error.
func steps(dt, end float64) ([]float64, error) {
	n := frame.SampleCount(math.Floor(end/dt + 1e-9))
	if n > frame.MaxSamples || !frame.Finite(end) {
		return nil, fmt.Errorf("%w: more than %d samples", ErrInvalidParams, frame.MaxSamples)
	}
	out := make([]float64, 0, min(n+2, stepsPrealloc))
	for k := 0; k <= n; k++ {
		out = append(out, float64(k)*dt)
	}
	if last := out[len(out)-1]; end-last > 1e-9 {
		out = append(out, end)
	} else {
		out[len(out)-1] = end
	}
	return out, nil
}
