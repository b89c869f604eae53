package physverse

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/visualverse/internal/domain/frame"
)

// ProjectileParams launches a point mass from Height at Speed and AngleDeg above horizontal.
type ProjectileParams struct {
	Speed    float64 `json:"speed" validate:"gt=0"`
	AngleDeg float64 `json:"angle_deg" validate:"gte=0,lte=90"`
	Height   float64 `json:"height" validate:"gte=0"`
	Gravity  float64 `json:"gravity" validate:"gte=0"`
	Timing
}

// Projectile samples the trajectory until ground impact; the last frame is the exact impact.
func Projectile(ctx context.Context, p ProjectileParams, opts ...Option) (*frame.Sequence[frame.Physics], error) {
	dt, _, err := p.Timing.resolve()
	if err != nil {
		return nil, err
	}
	if p.Speed <= 0 || p.AngleDeg < 0 || p.AngleDeg > 90 || p.Height < 0 {
		return nil, fmt.Errorf("%w: speed > 0, 0 <= angle <= 90, height >= 0", ErrInvalidParams)
	}
	g := gravity(p.Gravity)
	theta := deg2rad(p.AngleDeg)
	vx, vy := p.Speed*math.Cos(theta), p.Speed*math.Sin(theta)
	flight := (vy + math.Sqrt(vy*vy+2*g*p.Height)) / g
	apex := p.Height + vy*vy/(2*g)

	rec := frame.NewRecorder[frame.Physics](ctx, domain, "projectile", "Projectile motion", buildOptions(opts).maxFrames)
	rec.Explain("Horizontal velocity stays %.3f m/s; vertical velocity starts at %.3f m/s and decreases by g = %.2f m/s^2.", vx, vy, g)
	rec.Explain("Flight time t = (vy + sqrt(vy^2 + 2 g h)) / g = %.4f s.", flight)
	rec.Explain("Range R = vx * t = %.4f m, apex height %.4f m.", vx*flight, apex)

	times, err := steps(dt, flight)
	if err != nil {
		return nil, err
	}
	for _, t := range times {
		x := vx * t
		y := p.Height + vy*t - 0.5*g*t*t
		if t == flight {
			y = 0
		}
		vyt := vy - g*t
		pos, vel, acc := body("projectile", frame.Vec2{X: x, Y: y}, frame.Vec2{X: vx, Y: vyt}, frame.Vec2{Y: -g})
		msg := ""
		if t == flight {
			msg = "Impact"
		}
		if err := rec.Add(frame.Physics{
			Time: t, Positions: pos, Velocities: vel, Accelerations: acc,
			Scalars: map[string]float64{
				"kinetic_energy":   0.5 * (vx*vx + vyt*vyt),
				"potential_energy": g * y,
			},
			Message: msg,
		}); err != nil {
			return nil, err
		}
	}
	rec.Set("flight_time", flight)
	rec.Set("range", vx*flight)
	rec.Set("max_height", apex)
	return rec.Sequence(), nil
}

// FreeFallParams drops a ball from Height. Restitution in (0, 1] makes it bounce.
type FreeFallParams struct {
	Height      float64 `json:"height" validate:"gt=0"`
	Gravity     float64 `json:"gravity" validate:"gte=0"`
	Restitution float64 `json:"restitution" validate:"gte=0,lte=1"`
	Timing
}

// minBounceSpeed ends a bouncing simulation.
const minBounceSpeed = 0.05

// FreeFall samples a vertical drop, emitting an exact frame at every impact.
func FreeFall(ctx context.Context, p FreeFallParams, opts ...Option) (*frame.Sequence[frame.Physics], error) {
	dt, duration, err := p.Timing.resolve()
	if err != nil {
		return nil, err
	}
	if p.Height <= 0 || p.Restitution < 0 || p.Restitution > 1 {
		return nil, fmt.Errorf("%w: height > 0 and 0 <= restitution <= 1", ErrInvalidParams)
	}
	g := gravity(p.Gravity)
	rec := frame.NewRecorder[frame.Physics](ctx, domain, "free_fall", "Free fall", buildOptions(opts).maxFrames)
	firstImpact := math.Sqrt(2 * p.Height / g)
	rec.Explain("y(t) = h - g t^2 / 2, so the first impact happens at sqrt(2h/g) = %.4f s.", firstImpact)
	if p.Restitution > 0 {
		rec.Explain("Each bounce keeps %.0f%% of the impact speed.", p.Restitution*100)
	}

	// Flight segment: y = hs + vs (t - ts) - g (t - ts)^2 / 2.
	ts, hs, vs := 0.0, p.Height, 0.0
	te := ts + (vs+math.Sqrt(vs*vs+2*g*hs))/g
	bounces := 0
	emit := func(t, y, v float64, msg string) error {
		pos, vel, acc := body("ball", frame.Vec2{Y: y}, frame.Vec2{Y: v}, frame.Vec2{Y: -g})
		return rec.Add(frame.Physics{
			Time: t, Positions: pos, Velocities: vel, Accelerations: acc,
			Scalars: map[string]float64{"kinetic_energy": 0.5 * v * v, "potential_energy": g * y},
			Message: msg,
		})
	}

	for k := 0; ; k++ {
		t := float64(k) * dt
		for t >= te && te <= duration {
			impact := vs - g*(te-ts)
			if err := emit(te, 0, impact, fmt.Sprintf("Impact at %.3f m/s", -impact)); err != nil {
				return nil, err
			}
			rebound := -impact * p.Restitution
			if rebound < minBounceSpeed {
				rec.Set("bounces", float64(bounces))
				rec.Set("first_impact_time", firstImpact)
				rec.Set("rest_time", te)
				return rec.Sequence(), nil
			}
			bounces++
			ts, hs, vs = te, 0, rebound
			te = ts + 2*vs/g
		}
		if t > duration {
			break
		}
		dtSeg := t - ts
		if err := emit(t, hs+vs*dtSeg-0.5*g*dtSeg*dtSeg, vs-g*dtSeg, ""); err != nil {
			return nil, err
		}
	}
	rec.Set("bounces", float64(bounces))
	rec.Set("first_impact_time", firstImpact)
	return rec.Sequence(), nil
}

// CircularParams moves a body around a circle of Radius at constant tangential Speed.
type CircularParams struct {
	Radius float64 `json:"radius" validate:"gt=0"`
	Speed  float64 `json:"speed" validate:"gt=0"`
	Timing
}

// CircularMotion samples uniform circular motion; acceleration always points to the centre.
func CircularMotion(ctx context.Context, p CircularParams, opts ...Option) (*frame.Sequence[frame.Physics], error) {
	dt, duration, err := p.Timing.resolve()
	if err != nil {
		return nil, err
	}
	if p.Radius <= 0 || p.Speed <= 0 {
		return nil, fmt.Errorf("%w: radius and speed must be positive", ErrInvalidParams)
	}
	omega := p.Speed / p.Radius
	period := 2 * math.Pi / omega
	ac := p.Speed * p.Speed / p.Radius

	rec := frame.NewRecorder[frame.Physics](ctx, domain, "circular_motion", "Uniform circular motion", buildOptions(opts).maxFrames)
	rec.Explain("Angular velocity w = v / r = %.4f rad/s, period T = 2 pi / w = %.4f s.", omega, period)
	rec.Explain("Centripetal acceleration a = v^2 / r = %.4f m/s^2 points to the centre.", ac)

	times, err := steps(dt, duration)
	if err != nil {
		return nil, err
	}
	for _, t := range times {
		c, s := math.Cos(omega*t), math.Sin(omega*t)
		pos, vel, acc := body("body",
			frame.Vec2{X: p.Radius * c, Y: p.Radius * s},
			frame.Vec2{X: -p.Speed * s, Y: p.Speed * c},
			frame.Vec2{X: -ac * c, Y: -ac * s})
		if err := rec.Add(frame.Physics{
			Time: t, Positions: pos, Velocities: vel, Accelerations: acc,
			Scalars: map[string]float64{"angle_deg": math.Mod(rad2deg(omega*t), 360)},
		}); err != nil {
			return nil, err
		}
	}
	rec.Set("angular_velocity", omega)
	rec.Set("period", period)
	rec.Set("centripetal_acceleration", ac)
	return rec.Sequence(), nil
}

// CollisionParams places two bodies on a line with Position1 < Position2.
type CollisionParams struct {
	Mass1     float64 `json:"mass1" validate:"gt=0"`
	Mass2     float64 `json:"mass2" validate:"gt=0"`
	Velocity1 float64 `json:"velocity1"`
	Velocity2 float64 `json:"velocity2"`
	Position1 float64 `json:"position1"`
	Position2 float64 `json:"position2"`
	Timing
}

// ElasticCollision animates a 1-D perfectly elastic collision of two point masses.
func ElasticCollision(ctx context.Context, p CollisionParams, opts ...Option) (*frame.Sequence[frame.Physics], error) {
	dt, duration, err := p.Timing.resolve()
	if err != nil {
		return nil, err
	}
	if p.Mass1 <= 0 || p.Mass2 <= 0 || p.Position1 >= p.Position2 {
		return nil, fmt.Errorf("%w: masses must be positive and position1 < position2", ErrInvalidParams)
	}
	if p.Velocity1 <= p.Velocity2 {
		return nil, ErrNoCollision
	}
	m1, m2 := p.Mass1, p.Mass2
	tc := (p.Position2 - p.Position1) / (p.Velocity1 - p.Velocity2)
	xc := p.Position1 + p.Velocity1*tc
	u1 := ((m1-m2)*p.Velocity1 + 2*m2*p.Velocity2) / (m1 + m2)
	u2 := ((m2-m1)*p.Velocity2 + 2*m1*p.Velocity1) / (m1 + m2)

	rec := frame.NewRecorder[frame.Physics](ctx, domain, "elastic_collision", "Elastic collision", buildOptions(opts).maxFrames)
	rec.Explain("The bodies meet at t = %.4f s at x = %.4f m.", tc, xc)
	rec.Explain("Momentum and kinetic energy are conserved: v1' = %.4f m/s, v2' = %.4f m/s.", u1, u2)

	momentum := m1*p.Velocity1 + m2*p.Velocity2
	kinetic := 0.5*m1*p.Velocity1*p.Velocity1 + 0.5*m2*p.Velocity2*p.Velocity2
	times, err := steps(dt, duration)
	if err != nil {
		return nil, err
	}
	if tc <= duration {
		times = insertTime(times, tc)
	}
	for _, t := range times {
		var x1, x2, v1, v2 float64
		msg := ""
		if t < tc {
			x1, x2, v1, v2 = p.Position1+p.Velocity1*t, p.Position2+p.Velocity2*t, p.Velocity1, p.Velocity2
		} else {
			x1, x2, v1, v2 = xc+u1*(t-tc), xc+u2*(t-tc), u1, u2
			if t == tc {
				msg = "Collision"
			}
		}
		if err := rec.Add(frame.Physics{
			Time:          t,
			Positions:     map[string]frame.Vec2{"body1": {X: x1}, "body2": {X: x2}},
			Velocities:    map[string]frame.Vec2{"body1": {X: v1}, "body2": {X: v2}},
			Accelerations: map[string]frame.Vec2{"body1": {}, "body2": {}},
			Scalars: map[string]float64{
				"momentum":       m1*v1 + m2*v2,
				"kinetic_energy": 0.5*m1*v1*v1 + 0.5*m2*v2*v2,
			},
			Message: msg,
		}); err != nil {
			return nil, err
		}
	}
	rec.Set("collision_time", tc)
	rec.Set("velocity1_after", u1)
	rec.Set("velocity2_after", u2)
	rec.Set("momentum", momentum)
	rec.Set("kinetic_energy", kinetic)
	return rec.Sequence(), nil
}

func insertTime(times []float64, t float64) []float64 {
	for i, x := range times {
		if math.Abs(x-t) < 1e-12 {
			times[i] = t
			return times
		}
		if x > t {
			out := append([]float64{}, times[:i]...)
			out = append(out, t)
			return append(out, times[i:]...)
		}
	}
	return append(times, t)
}
