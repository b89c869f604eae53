// Package finverse explains time-value-of-money calculations as chart frames.
package finverse

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/visualverse/internal/domain/frame"
)

const domain = "finance"

// Sentinel errors.
var (
	ErrInvalidParams = errors.New("finverse: invalid parameters")
	ErrNoIRR         = errors.New("finverse: cash flows never change sign")
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

// CompoundParams grows Principal at an annual Rate compounded
// PeriodsPerYear times, adding Contribution at the end of every period.
type CompoundParams struct {
	Principal      float64 `json:"principal" validate:"gte=0"`
	Rate           float64 `json:"rate" validate:"gt=-1,lte=10"`
	Years          int     `json:"years" validate:"gt=0,lte=100"`
	PeriodsPerYear int     `json:"periods_per_year" validate:"gte=0,lte=365"`
	Contribution   float64 `json:"contribution" validate:"gte=0"`
}

func (p CompoundParams) periods() int {
	if p.PeriodsPerYear == 0 {
		return 12
	}
	return p.PeriodsPerYear
}

// Size reports the number of compounding periods.
func (p CompoundParams) Size() int { return p.Years * p.periods() }

// CompoundInterest records the balance at the end of every year.
func CompoundInterest(ctx context.Context, p CompoundParams, opts ...Option) (*frame.Sequence[frame.Chart], error) {
	m := p.periods()
	if p.Principal < 0 || p.Contribution < 0 || p.Years <= 0 || p.Years > 100 || m <= 0 || m > 365 || p.Rate <= -1 || p.Rate > 10 {
		return nil, fmt.Errorf("%w: principal >= 0, 0 < years <= 100, 1 <= periods_per_year <= 365", ErrInvalidParams)
	}
	if p.Principal == 0 && p.Contribution == 0 {
		return nil, fmt.Errorf("%w: principal or contribution must be positive", ErrInvalidParams)
	}
	i := p.Rate / float64(m)

	rec := frame.NewRecorder[frame.Chart](ctx, domain, "compound_interest", "Compound interest", buildOptions(opts).maxFrames)
	rec.Explain("Each of the %d periods per year earns r/m = %.6f on the running balance.", m, i)
	rec.Explain("Closed form: FV = P(1+i)^n + C((1+i)^n - 1)/i.")
	if p.Contribution > 0 {
		rec.Explain("A contribution of %.2f is added at the end of every period.", p.Contribution)
	}

	balance, contributed := p.Principal, p.Principal
	var curve, paidIn []frame.Vec2
	curve = append(curve, frame.Vec2{X: 0, Y: balance})
	paidIn = append(paidIn, frame.Vec2{X: 0, Y: contributed})
	for year := 1; year <= p.Years; year++ {
		for k := 0; k < m; k++ {
			balance = balance*(1+i) + p.Contribution
			contributed += p.Contribution
		}
		if !frame.Finite(balance) || !frame.Finite(contributed) {
			return nil, fmt.Errorf("%w: balance overflows in year %d", ErrInvalidParams, year)
		}
		curve = append(curve, frame.Vec2{X: float64(year), Y: balance})
		paidIn = append(paidIn, frame.Vec2{X: float64(year), Y: contributed})
		if err := rec.Add(frame.Chart{
			Action: frame.ActionStep,
			Series: map[string][]frame.Vec2{
				"balance":     append([]frame.Vec2(nil), curve...),
				"contributed": append([]frame.Vec2(nil), paidIn...),
			},
			Values:  map[string]float64{"year": float64(year), "balance": balance, "contributed": contributed, "interest": balance - contributed},
			Message: fmt.Sprintf("Year %d: %.2f", year, balance),
		}); err != nil {
			return nil, err
		}
	}
	n := float64(m * p.Years)
	closed := p.Principal * math.Pow(1+i, n)
	if i != 0 {
		closed += p.Contribution * (math.Pow(1+i, n) - 1) / i
	} else {
		closed += p.Contribution * n
	}
	if !frame.Finite(closed) {
		return nil, fmt.Errorf("%w: closed-form value overflows", ErrInvalidParams)
	}
	rec.Set("future_value", balance)
	rec.Set("closed_form", closed)
	rec.Set("contributed", contributed)
	rec.Set("interest", balance-contributed)
	rec.Set("effective_annual_rate", math.Pow(1+i, float64(m))-1)
	return rec.Sequence(), nil
}

// AmortizationParams describes a fixed-payment loan with monthly payments
// unless PeriodsPerYear says otherwise.
type AmortizationParams struct {
	Principal      float64 `json:"principal" validate:"gt=0"`
	Rate           float64 `json:"rate" validate:"gte=0,lte=10"`
	Years          int     `json:"years" validate:"gt=0,lte=50"`
	PeriodsPerYear int     `json:"periods_per_year" validate:"gte=0,lte=52"`
}

func (p AmortizationParams) periods() int {
	if p.PeriodsPerYear == 0 {
		return 12
	}
	return p.PeriodsPerYear
}

// Size reports the number of payments.
func (p AmortizationParams) Size() int { return p.Years * p.periods() }

// Payment returns the level payment that repays principal over n periods at rate i.
func Payment(principal, i float64, n int) float64 {
	if i == 0 {
		return principal / float64(n)
	}
	return principal * i / (1 - math.Pow(1+i, -float64(n)))
}

// Amortization records one frame per payment. The last payment absorbs
// rounding so the closing balance is zero.
func Amortization(ctx context.Context, p AmortizationParams, opts ...Option) (*frame.Sequence[frame.Chart], error) {
	m := p.periods()
	if p.Principal <= 0 || p.Rate < 0 || p.Rate > 10 || p.Years <= 0 || p.Years > 50 || m <= 0 || m > 52 {
		return nil, fmt.Errorf("%w: principal > 0, 0 <= rate <= 10, 0 < years <= 50", ErrInvalidParams)
	}
	i := p.Rate / float64(m)
	n := p.Years * m
	pay := Payment(p.Principal, i, n)

	rec := frame.NewRecorder[frame.Chart](ctx, domain, "amortization", "Loan amortization", buildOptions(opts).maxFrames)
	rec.Explain("Payment = P i / (1 - (1+i)^-n) = %.2f for %d payments at %.6f per period.", pay, n, i)
	rec.Explain("Each payment first covers interest on the balance; the rest repays principal.")

	balance := p.Principal
	totalInterest := 0.0
	var balances []frame.Vec2
	for k := 1; k <= n; k++ {
		interest := balance * i
		principal := pay - interest
		if k == n {
			principal = balance
		}
		balance -= principal
		if k == n || math.Abs(balance) < 1e-9 {
			balance = 0
		}
		totalInterest += interest
		balances = append(balances, frame.Vec2{X: float64(k), Y: balance})
		if err := rec.Add(frame.Chart{
			Action: frame.ActionStep,
			Series: map[string][]frame.Vec2{"balance": append([]frame.Vec2(nil), balances...)},
			Values: map[string]float64{
				"period": float64(k), "payment": interest + principal,
				"interest": interest, "principal": principal, "balance": balance,
			},
		}); err != nil {
			return nil, err
		}
	}
	rec.Set("payment", pay)
	rec.Set("total_interest", totalInterest)
	rec.Set("total_paid", p.Principal+totalInterest)
	rec.Set("final_balance", balance)
	return rec.Sequence(), nil
}

// CashFlowParams is a series of cash flows, CashFlows[0] at time 0.
type CashFlowParams struct {
	Rate      float64   `json:"rate" validate:"gt=-1"`
	CashFlows []float64 `json:"cash_flows" validate:"required,min=1,max=600"`
}

// Size reports the number of cash flows.
func (p CashFlowParams) Size() int { return len(p.CashFlows) }

// NPVAt discounts flows at rate.
func NPVAt(flows []float64, rate float64) float64 {
	sum := 0.0
	d := 1.0
	for _, cf := range flows {
		sum += cf / d
		d *= 1 + rate
	}
	return sum
}

func checkFlows(flows []float64) error {
	if len(flows) == 0 {
		return fmt.Errorf("%w: at least one cash flow", ErrInvalidParams)
	}
	for _, cf := range flows {
		if !frame.Finite(cf) {
			return fmt.Errorf("%w: cash flows must be finite", ErrInvalidParams)
		}
	}
	return nil
}

// NPV discounts each flow and accumulates the present value frame by frame.
func NPV(ctx context.Context, p CashFlowParams, opts ...Option) (*frame.Sequence[frame.Chart], error) {
	if err := checkFlows(p.CashFlows); err != nil {
		return nil, err
	}
	if p.Rate <= -1 || !frame.Finite(p.Rate) {
		return nil, fmt.Errorf("%w: rate must exceed -100%%", ErrInvalidParams)
	}
	rec := frame.NewRecorder[frame.Chart](ctx, domain, "npv", "Net present value", buildOptions(opts).maxFrames)
	rec.Explain("NPV = sum of CF_t / (1 + r)^t with r = %.4f.", p.Rate)

	total := 0.0
	var pv, cumulative []frame.Vec2
	for t, cf := range p.CashFlows {
		disc := cf / math.Pow(1+p.Rate, float64(t))
		total += disc
		if !frame.Finite(disc) || !frame.Finite(total) {
			return nil, fmt.Errorf("%w: present value at t=%d overflows", ErrInvalidParams, t)
		}
		pv = append(pv, frame.Vec2{X: float64(t), Y: disc})
		cumulative = append(cumulative, frame.Vec2{X: float64(t), Y: total})
		if err := rec.Add(frame.Chart{
			Action: frame.ActionStep,
			Series: map[string][]frame.Vec2{
				"present_value": append([]frame.Vec2(nil), pv...),
				"cumulative":    append([]frame.Vec2(nil), cumulative...),
			},
			Values:  map[string]float64{"period": float64(t), "cash_flow": cf, "present_value": disc, "npv": total},
			Message: fmt.Sprintf("t=%d: %.2f -> %.2f", t, cf, disc),
		}); err != nil {
			return nil, err
		}
	}
	if total >= 0 {
		rec.Explain("NPV %.2f >= 0: the project meets the required return.", total)
	} else {
		rec.Explain("NPV %.2f < 0: the project falls short of the required return.", total)
	}
	rec.Set("npv", total)
	return rec.Sequence(), nil
}

const (
	irrLow     = -0.99
	irrHigh    = 10.0
	irrTol     = 1e-10
	irrMaxIter = 200
)

// IRRParams lists cash flows whose internal rate of return is wanted.
type IRRParams struct {
	CashFlows []float64 `json:"cash_flows" validate:"required,min=2,max=600"`
}

// Size reports the number of cash flows.
func (p IRRParams) Size() int { return len(p.CashFlows) }

// IRR bisects [-0.99, 10] for the rate where NPV is zero, one frame per step.
func IRR(ctx context.Context, p IRRParams, opts ...Option) (*frame.Sequence[frame.Chart], error) {
	if err := checkFlows(p.CashFlows); err != nil {
		return nil, err
	}
	pos, neg := false, false
	for _, cf := range p.CashFlows {
		pos = pos || cf > 0
		neg = neg || cf < 0
	}
	if !pos || !neg {
		return nil, ErrNoIRR
	}
	lo, hi := irrLow, irrHigh
	flo, fhi := NPVAt(p.CashFlows, lo), NPVAt(p.CashFlows, hi)
	if (flo < 0) == (fhi < 0) && flo != 0 && fhi != 0 {
		return nil, fmt.Errorf("%w: NPV does not cross zero on [%g, %g]", ErrNoIRR, irrLow, irrHigh)
	}

	rec := frame.NewRecorder[frame.Chart](ctx, domain, "irr", "Internal rate of return", buildOptions(opts).maxFrames)
	rec.Explain("IRR is the rate r with NPV(r) = 0; NPV(%.2f) = %.4g and NPV(%.2f) = %.4g bracket it.", lo, flo, hi, fhi)
	rec.Explain("Bisection halves the bracket, keeping the half where NPV changes sign.")

	var profile []frame.Vec2
	for k := 0; k <= 40; k++ {
		r := lo + (hi-lo)*float64(k)/40
		if v := NPVAt(p.CashFlows, r); frame.Finite(v) {
			profile = append(profile, frame.Vec2{X: r, Y: v})
		}
	}

	mid := lo
	iters := 0
	for ; iters < irrMaxIter && hi-lo > irrTol; iters++ {
		mid = (lo + hi) / 2
		fm := NPVAt(p.CashFlows, mid)
		if err := rec.Add(frame.Chart{
			Action: frame.ActionStep,
			Series: map[string][]frame.Vec2{"npv_profile": profile, "bracket": {{X: lo}, {X: hi}}},
			Values: map[string]float64{"low": lo, "high": hi, "mid": mid, "npv": fm},
		}); err != nil {
			return nil, err
		}
		if fm == 0 {
			lo, hi = mid, mid
			break
		}
		if (fm < 0) == (flo < 0) {
			lo, flo = mid, fm
		} else {
			hi = mid
		}
	}
	irr := (lo + hi) / 2
	if err := rec.Add(frame.Chart{
		Action:  frame.ActionConverged,
		Series:  map[string][]frame.Vec2{"npv_profile": profile},
		Values:  map[string]float64{"irr": irr, "npv": NPVAt(p.CashFlows, irr)},
		Message: fmt.Sprintf("IRR = %.4f%%", irr*100),
	}); err != nil {
		return nil, err
	}
	rec.Explain("After %d steps IRR = %.6f%%.", iters, irr*100)
	rec.Set("irr", irr)
	rec.Set("iterations", float64(iters))
	return rec.Sequence(), nil
}
