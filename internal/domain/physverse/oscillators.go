package physverse

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/visualverse/internal/domain/frame"
)

// HarmonicParams is a mass on a spring released from rest at Amplitude.
// Damping is the linear drag coefficient c in N*s/m.
type HarmonicParams struct {
	Mass      float64 `json:"mass" validate:"gt=0"`
	Stiffness float64 `json:"stiffness" validate:"gt=0"`
	Amplitude float64 `json:"amplitude" validate:"ne=0"`
	Damping   float64 `json:"damping" validate:"gte=0"`
	Timing
}

// HarmonicOscillator evaluates the closed-form solution for the under-,
// critically and over-damped regimes.
func HarmonicOscillator(ctx context.Context, p HarmonicParams, opts ...Option) (*frame.Sequence[frame.Physics], error) {
	dt, duration, err := p.Timing.resolve()
	if err != nil {
		return nil, err
	}
	if p.Mass <= 0 || p.Stiffness <= 0 || p.Damping < 0 || p.Amplitude == 0 {
		return nil, fmt.Errorf("%w: mass and stiffness must be positive, damping non-negative", ErrInvalidParams)
	}
	m, k, A := p.Mass, p.Stiffness, p.Amplitude
	w0 := math.Sqrt(k / m)
	gamma := p.Damping / (2 * m)
	zeta := gamma / w0

	var state func(t float64) (x, v float64)
	regime := ""
	switch {
	case zeta < 1:
		wd := w0 * math.Sqrt(1-zeta*zeta)
		regime = "underdamped"
		state = func(t float64) (float64, float64) {
			e := math.Exp(-gamma * t)
			c, s := math.Cos(wd*t), math.Sin(wd*t)
			x := A * e * (c + gamma/wd*s)
			v := -A * e * (w0 * w0 / wd) * s
			return x, v
		}
	case zeta == 1:
		regime = "critically damped"
		state = func(t float64) (float64, float64) {
			e := math.Exp(-gamma * t)
			return A * e * (1 + gamma*t), -A * gamma * gamma * t * e
		}
	default:
		regime = "overdamped"
		root := math.Sqrt(gamma*gamma - w0*w0)
		r1, r2 := -gamma+root, -gamma-root
		c1 := -r2 * A / (r1 - r2)
		c2 := r1 * A / (r1 - r2)
		state = func(t float64) (float64, float64) {
			e1, e2 := math.Exp(r1*t), math.Exp(r2*t)
			return c1*e1 + c2*e2, c1*r1*e1 + c2*r2*e2
		}
	}

	rec := frame.NewRecorder[frame.Physics](ctx, domain, "harmonic_oscillator", "Simple harmonic motion", buildOptions(opts).maxFrames)
	rec.Explain("Natural angular frequency w0 = sqrt(k/m) = %.4f rad/s, period %.4f s.", w0, 2*math.Pi/w0)
	rec.Explain("Damping ratio zeta = c / (2 sqrt(k m)) = %.4f, so the motion is %s.", zeta, regime)

	times, err := steps(dt, duration)
	if err != nil {
		return nil, err
	}
	for _, t := range times {
		x, v := state(t)
		a := -(k*x + p.Damping*v) / m
		pos, vel, acc := body("mass", frame.Vec2{X: x}, frame.Vec2{X: v}, frame.Vec2{X: a})
		if err := rec.Add(frame.Physics{
			Time: t, Positions: pos, Velocities: vel, Accelerations: acc,
			Scalars: map[string]float64{
				"kinetic_energy":   0.5 * m * v * v,
				"potential_energy": 0.5 * k * x * x,
				"total_energy":     0.5*m*v*v + 0.5*k*x*x,
			},
		}); err != nil {
			return nil, err
		}
	}
	rec.Set("natural_frequency", w0)
	rec.Set("period", 2*math.Pi/w0)
	rec.Set("damping_ratio", zeta)
	return rec.Sequence(), nil
}

// PendulumParams is a simple pendulum released from rest at AngleDeg.
type PendulumParams struct {
	Length   float64 `json:"length" validate:"gt=0"`
	AngleDeg float64 `json:"angle_deg" validate:"gt=0,lt=180"`
	Gravity  float64 `json:"gravity" validate:"gte=0"`
	Damping  float64 `json:"damping" validate:"gte=0"`
	Timing
}

// pendulumSubsteps integrator steps are taken per sampled frame.
const pendulumSubsteps = 50

// Pendulum integrates d2theta/dt2 = -(g/L) sin(theta) - b dtheta/dt with
// semi-implicit Euler, so large amplitudes are handled without the
// small-angle approximation.
func Pendulum(ctx context.Context, p PendulumParams, opts ...Option) (*frame.Sequence[frame.Physics], error) {
	dt, duration, err := p.Timing.resolve()
	if err != nil {
		return nil, err
	}
	if p.Length <= 0 || p.AngleDeg <= 0 || p.AngleDeg >= 180 || p.Damping < 0 {
		return nil, fmt.Errorf("%w: length > 0 and 0 < angle < 180", ErrInvalidParams)
	}
	g := gravity(p.Gravity)
	L := p.Length
	smallAngle := 2 * math.Pi * math.Sqrt(L/g)

	rec := frame.NewRecorder[frame.Physics](ctx, domain, "pendulum", "Simple pendulum", buildOptions(opts).maxFrames)
	rec.Explain("Small-angle period T = 2 pi sqrt(L/g) = %.4f s.", smallAngle)
	if p.AngleDeg > 20 {
		rec.Explain("At %.0f degrees the small-angle approximation underestimates the true period.", p.AngleDeg)
	}

	theta, omega := deg2rad(p.AngleDeg), 0.0
	h := dt / pendulumSubsteps
	t := 0.0
	var crossings []float64
	emit := func() error {
		s, c := math.Sin(theta), math.Cos(theta)
		alpha := -g/L*s - p.Damping*omega
		// Tangential plus centripetal components in Cartesian form.
		acc := frame.Vec2{
			X: L * (alpha*c - omega*omega*s),
			Y: L * (alpha*s + omega*omega*c),
		}
		pos, vel, a := body("bob",
			frame.Vec2{X: L * s, Y: -L * c},
			frame.Vec2{X: L * omega * c, Y: L * omega * s},
			acc)
		return rec.Add(frame.Physics{
			Time: t, Positions: pos, Velocities: vel, Accelerations: a,
			Scalars: map[string]float64{
				"angle_deg":     rad2deg(theta),
				"angular_speed": omega,
				"energy":        0.5*L*L*omega*omega + g*L*(1-c),
			},
		})
	}
	if err := emit(); err != nil {
		return nil, err
	}
	frames := int(math.Round(duration / dt))
	for i := 0; i < frames; i++ {
		for j := 0; j < pendulumSubsteps; j++ {
			prev := theta
			omega += (-g/L*math.Sin(theta) - p.Damping*omega) * h
			theta += omega * h
			t += h
			if prev > 0 && theta <= 0 {
				// Linear interpolation of the downward zero crossing.
				crossings = append(crossings, t-h*theta/(theta-prev))
			}
		}
		if err := emit(); err != nil {
			return nil, err
		}
	}

	rec.Set("small_angle_period", smallAngle)
	if len(crossings) >= 2 {
		measured := (crossings[len(crossings)-1] - crossings[0]) / float64(len(crossings)-1)
		rec.Set("measured_period", measured)
		rec.Explain("Measured period from zero crossings: %.4f s.", measured)
	}
	return rec.Sequence(), nil
}
