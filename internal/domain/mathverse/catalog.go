package mathverse

import "github.com/okian/visualverse/internal/domain/catalog"

// Catalog lists the math concepts.
func Catalog() []catalog.Entry {
	entry := func(kind, title, summary string, lvl catalog.Level, ex any, tags ...string) catalog.Entry {
		return catalog.Entry{
			Domain: catalog.DomainMath, Kind: kind, Title: title, Summary: summary,
			Level: lvl, Tags: tags, Example: catalog.Example(ex),
		}
	}
	cubic := Function{Kind: KindPolynomial, Coefficients: []float64{0, -3, 0, 1}}
	return []catalog.Entry{
		entry("function_plot", "Function plot", "Sample a function, trace its curve and locate real roots.", catalog.Beginner,
			PlotParams{Function: cubic, XMin: -2.5, XMax: 2.5}, "functions", "roots"),
		entry("tangent_line", "Tangent line", "Secant lines converge to the tangent as h shrinks.", catalog.Intermediate,
			TangentParams{Function: Function{Kind: KindSin}, X0: 1}, "calculus", "derivative"),
		entry("riemann_sum", "Riemann sums", "Approximate an integral with strips and watch the error fall.", catalog.Intermediate,
			RiemannParams{Function: Function{Kind: KindPolynomial, Coefficients: []float64{0, 0, 1}}, A: 0, B: 2, Method: MethodLeft}, "calculus", "integral"),
		entry("unit_circle", "Unit circle", "Sine and cosine as coordinates of a rotating radius.", catalog.Beginner,
			UnitCircleParams{StepDeg: 15}, "trigonometry"),
	}
}
