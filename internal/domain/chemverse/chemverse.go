// Package chemverse turns stoichiometry, gas law, decay and acid-base
// calculations into step-by-step chart frames.
package chemverse

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/visualverse/internal/domain/frame"
)

const domain = "chemistry"

// Sentinel errors.
var (
	ErrInvalidParams  = errors.New("chemverse: invalid parameters")
	ErrBadFormula     = errors.New("chemverse: malformed formula")
	ErrUnknownElement = errors.New("chemverse: unknown element")
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

// MolarMassParams names a chemical formula.
type MolarMassParams struct {
	Formula string `json:"formula" validate:"required,max=128"`
}

// Size reports the formula length.
func (p MolarMassParams) Size() int { return len(p.Formula) }

// MolarMass adds up element contributions, one frame per element.
func MolarMass(ctx context.Context, p MolarMassParams, opts ...Option) (*frame.Sequence[frame.Chart], error) {
	comp, err := ParseFormula(p.Formula)
	if err != nil {
		return nil, err
	}
	rec := frame.NewRecorder[frame.Chart](ctx, domain, "molar_mass", "Molar mass of "+p.Formula, buildOptions(opts).maxFrames)
	rec.Explain("Molar mass is the sum over elements of count x standard atomic weight.")

	total := 0.0
	bars := make([]frame.Vec2, 0, len(comp.Order))
	for i, el := range comp.Order {
		w := atomicWeights[el]
		n := comp.Counts[el]
		contrib := w * float64(n)
		total += contrib
		bars = append(bars, frame.Vec2{X: float64(i), Y: contrib})
		rec.Explain("%s: %d x %.4f = %.4f g/mol", el, n, w, contrib)
		if err := rec.Add(frame.Chart{
			Action: frame.ActionStep,
			Series: map[string][]frame.Vec2{"contributions": append([]frame.Vec2(nil), bars...)},
			Values: map[string]float64{
				"count": float64(n), "atomic_weight": w, "contribution": contrib, "running_total": total,
			},
			Message: fmt.Sprintf("%s x%d", el, n),
		}); err != nil {
			return nil, err
		}
	}

	percent := make(map[string]float64, len(comp.Order)+1)
	for _, el := range comp.Order {
		pct := 100 * atomicWeights[el] * float64(comp.Counts[el]) / total
		percent["percent_"+el] = pct
		rec.Set("percent_"+el, pct)
	}
	percent["molar_mass"] = total
	if err := rec.Add(frame.Chart{
		Action:  frame.ActionDone,
		Series:  map[string][]frame.Vec2{"contributions": bars},
		Values:  percent,
		Message: fmt.Sprintf("M(%s) = %.3f g/mol", p.Formula, total),
	}); err != nil {
		return nil, err
	}
	rec.Set("molar_mass", total)
	rec.Set("elements", float64(len(comp.Order)))
	return rec.Sequence(), nil
}

// GasConstant in L*kPa/(mol*K).
const GasConstant = 8.314462618

const sweepFrames = 11

// IdealGasParams leaves exactly one of the four quantities unset; it is
// solved from PV = nRT. Units: kPa, L, mol, K.
type IdealGasParams struct {
	Pressure    *float64 `json:"pressure,omitempty" validate:"omitempty,gt=0"`
	Volume      *float64 `json:"volume,omitempty" validate:"omitempty,gt=0"`
	Moles       *float64 `json:"moles,omitempty" validate:"omitempty,gt=0"`
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gt=0"`
}

type gasVar struct {
	name string
	unit string
	val  *float64
}

// IdealGas solves for the missing quantity, then sweeps a known one from
// half to one and a half times its value to show the proportionality.
func IdealGas(ctx context.Context, p IdealGasParams, opts ...Option) (*frame.Sequence[frame.Chart], error) {
	vars := []gasVar{
		{"pressure", "kPa", p.Pressure}, {"volume", "L", p.Volume},
		{"moles", "mol", p.Moles}, {"temperature", "K", p.Temperature},
	}
	unknown := -1
	for i, v := range vars {
		if v.val == nil {
			if unknown >= 0 {
				return nil, fmt.Errorf("%w: exactly one quantity must be omitted", ErrInvalidParams)
			}
			unknown = i
			continue
		}
		if *v.val <= 0 || !frame.Finite(*v.val) {
			return nil, fmt.Errorf("%w: %s must be positive", ErrInvalidParams, v.name)
		}
	}
	if unknown < 0 {
		return nil, fmt.Errorf("%w: exactly one quantity must be omitted", ErrInvalidParams)
	}
	known := make(map[string]float64, 4)
	for _, v := range vars {
		if v.val != nil {
			known[v.name] = *v.val
		}
	}
	solve := func(k map[string]float64) float64 {
		switch vars[unknown].name {
		case "pressure":
			return k["moles"] * GasConstant * k["temperature"] / k["volume"]
		case "volume":
			return k["moles"] * GasConstant * k["temperature"] / k["pressure"]
		case "moles":
			return k["pressure"] * k["volume"] / (GasConstant * k["temperature"])
		default:
			return k["pressure"] * k["volume"] / (GasConstant * k["moles"])
		}
	}
	target := vars[unknown]
	answer := solve(known)

	// Sweep the first known quantity after the unknown, wrapping around.
	sweep := vars[(unknown+1)%len(vars)]
	rec := frame.NewRecorder[frame.Chart](ctx, domain, "ideal_gas", "Ideal gas law", buildOptions(opts).maxFrames)
	rec.Explain("PV = nRT with R = %.6f L*kPa/(mol*K).", GasConstant)
	rec.Explain("Solving for %s gives %.4f %s.", target.name, answer, target.unit)
	rec.Explain("Varying %s with the other quantities fixed shows how %s responds.", sweep.name, target.name)

	base := known[sweep.name]
	var curve []frame.Vec2
	for i := 0; i < sweepFrames; i++ {
		k := make(map[string]float64, 3)
		for name, v := range known {
			k[name] = v
		}
		x := base * (0.5 + float64(i)/float64(sweepFrames-1))
		k[sweep.name] = x
		y := solve(k)
		curve = append(curve, frame.Vec2{X: x, Y: y})
		values := map[string]float64{target.name: y}
		for name, v := range k {
			values[name] = v
		}
		if err := rec.Add(frame.Chart{
			Action:  frame.ActionStep,
			Series:  map[string][]frame.Vec2{target.name + "_vs_" + sweep.name: append([]frame.Vec2(nil), curve...)},
			Values:  values,
			Message: fmt.Sprintf("%s = %.4g %s -> %s = %.4g %s", sweep.name, x, sweep.unit, target.name, y, target.unit),
		}); err != nil {
			return nil, err
		}
	}
	rec.Set(target.name, answer)
	for name, v := range known {
		rec.Set(name, v)
	}
	return rec.Sequence(), nil
}

// DecayParams describes a radioactive sample.
type DecayParams struct {
	InitialAmount float64 `json:"initial_amount" validate:"gt=0"`
	HalfLife      float64 `json:"half_life" validate:"gt=0"`
	Duration      float64 `json:"duration" validate:"gte=0"`
	Steps         int     `json:"steps" validate:"gte=0,lte=1000"`
}

// Size reports the number of samples.
func (p DecayParams) Size() int {
	if p.Steps == 0 {
		return 50
	}
	return p.Steps
}

// RadioactiveDecay samples N(t) = N0 * 2^(-t / T).
func RadioactiveDecay(ctx context.Context, p DecayParams, opts ...Option) (*frame.Sequence[frame.Chart], error) {
	if p.InitialAmount <= 0 || p.HalfLife <= 0 || p.Duration < 0 || !frame.Finite(p.InitialAmount*p.HalfLife) {
		return nil, fmt.Errorf("%w: initial_amount and half_life must be positive", ErrInvalidParams)
	}
	duration := p.Duration
	if duration == 0 {
		duration = 5 * p.HalfLife
	}
	steps := p.Size()
	lambda := math.Ln2 / p.HalfLife

	rec := frame.NewRecorder[frame.Chart](ctx, domain, "radioactive_decay", "Radioactive decay", buildOptions(opts).maxFrames)
	rec.Explain("N(t) = N0 * 2^(-t/T) with half-life T = %g.", p.HalfLife)
	rec.Explain("The decay constant is ln 2 / T = %.6g; activity A = lambda * N.", lambda)

	var curve []frame.Vec2
	var n float64
	for i := 0; i <= steps; i++ {
		t := duration * float64(i) / float64(steps)
		n = p.InitialAmount * math.Exp2(-t/p.HalfLife)
		curve = append(curve, frame.Vec2{X: t, Y: n})
		if err := rec.Add(frame.Chart{
			Action: frame.ActionSample,
			Series: map[string][]frame.Vec2{"remaining": append([]frame.Vec2(nil), curve...)},
			Values: map[string]float64{
				"time": t, "remaining": n, "decayed": p.InitialAmount - n,
				"activity": lambda * n, "half_lives": t / p.HalfLife,
			},
		}); err != nil {
			return nil, err
		}
	}
	rec.Set("decay_constant", lambda)
	rec.Set("remaining", n)
	rec.Set("half_lives", duration/p.HalfLife)
	return rec.Sequence(), nil
}

// Solution types for PH.
const (
	SolutionAcid = "acid"
	SolutionBase = "base"
)

// WaterIonProduct Kw at 25 C.
const WaterIonProduct = 1e-14

// PHParams describes a strong monoprotic acid or base in water, diluted
// tenfold Dilutions times.
type PHParams struct {
	Concentration float64 `json:"concentration" validate:"gt=0,lte=20"`
	Type          string  `json:"type" validate:"required,oneof=acid base"`
	Dilutions     int     `json:"dilutions" validate:"gte=0,lte=12"`
}

// PH computes pH and pOH including water autoionisation, so heavy
// dilution approaches 7 instead of crossing it.
func PH(ctx context.Context, p PHParams, opts ...Option) (*frame.Sequence[frame.Chart], error) {
	if p.Concentration <= 0 || p.Concentration > 20 || p.Dilutions < 0 || p.Dilutions > 12 {
		return nil, fmt.Errorf("%w: 0 < concentration <= 20 mol/L, dilutions 0..12", ErrInvalidParams)
	}
	if p.Type != SolutionAcid && p.Type != SolutionBase {
		return nil, fmt.Errorf("%w: type must be acid or base", ErrInvalidParams)
	}
	rec := frame.NewRecorder[frame.Chart](ctx, domain, "ph", "pH of a strong "+p.Type, buildOptions(opts).maxFrames)
	if p.Type == SolutionAcid {
		rec.Explain("A strong acid dissociates completely: [H+] = c + [OH-].")
	} else {
		rec.Explain("A strong base dissociates completely: [OH-] = c + [H+].")
	}
	rec.Explain("With Kw = [H+][OH-] = 1e-14, the excess ion is c/2 + sqrt(c^2/4 + Kw).")
	rec.Explain("pH = -log10[H+] and pH + pOH = 14.")

	var curve []frame.Vec2
	var ph, poh, initialPH, initialPOH float64
	c := p.Concentration
	for d := 0; d <= p.Dilutions; d++ {
		excess := c/2 + math.Sqrt(c*c/4+WaterIonProduct)
		h, oh := excess, WaterIonProduct/excess
		if p.Type == SolutionBase {
			h, oh = oh, h
		}
		ph, poh = -math.Log10(h), -math.Log10(oh)
		if d == 0 {
			initialPH, initialPOH = ph, poh
		}
		curve = append(curve, frame.Vec2{X: float64(d), Y: ph})
		if err := rec.Add(frame.Chart{
			Action: frame.ActionStep,
			Series: map[string][]frame.Vec2{"ph": append([]frame.Vec2(nil), curve...)},
			Values: map[string]float64{
				"concentration": c, "h": h, "oh": oh, "ph": ph, "poh": poh,
			},
			Message: fmt.Sprintf("c = %.3g mol/L: pH %.3f", c, ph),
		}); err != nil {
			return nil, err
		}
		c /= 10
	}
	rec.Set("ph", initialPH)
	rec.Set("poh", initialPOH)
	rec.Set("final_ph", ph)
	return rec.Sequence(), nil
}
