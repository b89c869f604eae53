package mathverse

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/visualverse/internal/domain/frame"
)

// UnitCircleParams sweeps an angle around the unit circle.
type UnitCircleParams struct {
	StepDeg float64 `json:"step_deg" validate:"gte=0,lte=180"`
	Turns   float64 `json:"turns" validate:"gte=0,lte=10"`
}

func (p UnitCircleParams) resolve() (step, turns float64) {
	step, turns = p.StepDeg, p.Turns
	if step == 0 {
		step = 15
	}
	if turns == 0 {
		turns = 1
	}
	return step, turns
}

// maxAngles allows tenth-of-a-degree steps over the full ten turns.
const maxAngles = 36001

// Size reports the number of angles visited, saturating above frame.MaxSamples.
func (p UnitCircleParams) Size() int {
	step, turns := p.resolve()
	if step <= 0 {
		return frame.MaxSamples + 1
	}
	n := frame.SampleCount(math.Floor(360*turns/step + 1e-9))
	if n > frame.MaxSamples {
		return n
	}
	return n + 1
}

// UnitCircle projects the rotating radius onto the axes, showing sin and cos
// as the y and x coordinates.
func UnitCircle(ctx context.Context, p UnitCircleParams, opts ...Option) (*frame.Sequence[frame.Chart], error) {
	step, turns := p.resolve()
	if step <= 0 || step > 180 || turns <= 0 || turns > 10 || p.Size() > maxAngles {
		return nil, fmt.Errorf("%w: 0 < step_deg <= 180, 0 < turns <= 10, at most %d angles", ErrInvalidParams, maxAngles)
	}
	rec := frame.NewRecorder[frame.Chart](ctx, domain, "unit_circle", "The unit circle", buildOptions(opts).maxFrames)
	rec.Explain("A point at angle theta on the unit circle has coordinates (cos theta, sin theta).")
	rec.Explain("tan theta = sin theta / cos theta is undefined where cos theta = 0.")

	var sinWave, cosWave []frame.Vec2
	for i := 0; i < p.Size(); i++ {
		deg := float64(i) * step
		rad := deg * math.Pi / 180
		s, c := math.Sin(rad), math.Cos(rad)
		sinWave = append(sinWave, frame.Vec2{X: deg, Y: s})
		cosWave = append(cosWave, frame.Vec2{X: deg, Y: c})
		values := map[string]float64{"angle_deg": deg, "angle_rad": rad, "sin": s, "cos": c}
		msg := fmt.Sprintf("theta = %g deg", deg)
		if math.Abs(c) > 1e-12 {
			values["tan"] = s / c
		} else {
			msg += ", tan undefined"
		}
		if err := rec.Add(frame.Chart{
			Action: frame.ActionStep,
			Series: map[string][]frame.Vec2{
				"radius": {{}, {X: c, Y: s}},
				"sin":    append([]frame.Vec2(nil), sinWave...),
				"cos":    append([]frame.Vec2(nil), cosWave...),
			},
			Values:  values,
			Message: msg,
		}); err != nil {
			return nil, err
		}
	}
	rec.Set("angles", float64(p.Size()))
	rec.Set("step_deg", step)
	return rec.Sequence(), nil
}
