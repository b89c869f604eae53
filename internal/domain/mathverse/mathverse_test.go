package mathverse

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/visualverse/internal/domain/frame"
)

func TestFunctionCompile(t *testing.T) {
	cases := []struct {
		fn   Function
		x    float64
		want float64
	}{
		{Function{Kind: KindPolynomial, Coefficients: []float64{1, 2, 3}}, 2, 17},
		{Function{Kind: KindPolynomial}, 5, 0},
		{Function{Kind: KindSin}, math.Pi / 2, 1},
		{Function{Kind: KindCos, Coefficients: []float64{2, 1, 0, 1}}, 0, 3},
		{Function{Kind: KindExp, Coefficients: []float64{1, 2}}, 1, math.Exp(2)},
		{Function{Kind: KindLog}, math.E, 1},
	}
	for _, c := range cases {
		f, label, err := c.fn.compile()
		require.NoError(t, err)
		assert.NotEmpty(t, label)
		y, ok := f(c.x)
		require.True(t, ok)
		assert.InDelta(t, c.want, y, 1e-12, c.fn.Kind)
	}

	f, _, err := Function{Kind: KindLog}.compile()
	require.NoError(t, err)
	_, ok := f(-1)
	assert.False(t, ok)

	_, _, err = Function{Kind: "tanh"}.compile()
	assert.ErrorIs(t, err, ErrUnknownFunction)
	_, _, err = Function{Kind: KindSin, Coefficients: []float64{1, 2, 3, 4, 5}}.compile()
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestPolyLabel(t *testing.T) {
	assert.Equal(t, "1x^3 + -3x", polyLabel([]float64{0, -3, 0, 1}))
	assert.Equal(t, "0", polyLabel([]float64{0}))
}

func TestFunctionPlotRoots(t *testing.T) {
	cubic := Function{Kind: KindPolynomial, Coefficients: []float64{0, -3, 0, 1}}
	seq, err := FunctionPlot(context.Background(), PlotParams{Function: cubic, XMin: -2.5, XMax: 2.5, Samples: 101})
	require.NoError(t, err)
	assert.Equal(t, float64(3), seq.Summary["roots"])

	last, ok := seq.Last()
	require.True(t, ok)
	assert.Equal(t, frame.ActionDone, last.Action)
	assert.Len(t, last.Series["f"], 102)
	want := []float64{-math.Sqrt(3), 0, math.Sqrt(3)}
	require.Len(t, last.Series["roots"], 3)
	for i, r := range last.Series["roots"] {
		assert.InDelta(t, want[i], r.X, 1e-9)
	}

	prev := 0
	for _, f := range seq.Frames[:len(seq.Frames)-1] {
		assert.Greater(t, len(f.Series["f"]), prev, "curve grows every frame")
		prev = len(f.Series["f"])
	}
}

func TestFunctionPlotSkipsUndefined(t *testing.T) {
	seq, err := FunctionPlot(context.Background(), PlotParams{Function: Function{Kind: KindLog}, XMin: -1, XMax: 1, Samples: 20})
	require.NoError(t, err)
	assert.Equal(t, float64(11), seq.Summary["undefined_points"])

	_, err = FunctionPlot(context.Background(), PlotParams{Function: Function{Kind: KindLog}, XMin: -2, XMax: -1})
	assert.ErrorIs(t, err, ErrUndefined)

	_, err = FunctionPlot(context.Background(), PlotParams{Function: Function{Kind: KindSin}, XMin: 1, XMax: 1})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestTangentLineConverges(t *testing.T) {
	seq, err := TangentLine(context.Background(), TangentParams{Function: Function{Kind: KindSin}, X0: 1, Steps: 12})
	require.NoError(t, err)
	assert.InDelta(t, math.Cos(1), seq.Summary["derivative"], 1e-8)
	assert.Len(t, seq.Frames, 13)

	prevErr := math.Inf(1)
	for _, f := range seq.Frames[:12] {
		assert.Less(t, f.Values["error"], prevErr)
		prevErr = f.Values["error"]
	}
	last, _ := seq.Last()
	assert.Equal(t, frame.ActionConverged, last.Action)
}

func TestRiemannSumConverges(t *testing.T) {
	square := Function{Kind: KindPolynomial, Coefficients: []float64{0, 0, 1}}
	for _, method := range []string{MethodLeft, MethodRight, MethodMidpoint, MethodTrapezoid} {
		seq, err := RiemannSum(context.Background(), RiemannParams{Function: square, A: 0, B: 3, Method: method})
		require.NoError(t, err, method)
		assert.InDelta(t, 9.0, seq.Summary["reference"], 1e-9, method)
		assert.Len(t, seq.Frames, defaultDoublings+1)
		assert.Equal(t, float64(128), seq.Summary["n"])

		prevErr := math.Inf(1)
		for _, f := range seq.Frames {
			assert.Less(t, f.Values["error"], prevErr, method)
			prevErr = f.Values["error"]
			assert.Len(t, f.Series["strips"], int(f.Values["n"]))
		}
	}

	seq, err := RiemannSum(context.Background(), RiemannParams{Function: square, A: 0, B: 3, Method: MethodLeft, N: 3, Doublings: 1})
	require.NoError(t, err)
	// Left sum with n=3 is 0 + 1 + 4.
	assert.InDelta(t, 5.0, seq.Frames[0].Values["approximation"], 1e-12)
}

func TestRiemannSumRejectsUndefined(t *testing.T) {
	_, err := RiemannSum(context.Background(), RiemannParams{Function: Function{Kind: KindLog}, A: -1, B: 1})
	assert.ErrorIs(t, err, ErrUndefined)
	_, err = RiemannSum(context.Background(), RiemannParams{Function: Function{Kind: KindSin}, A: 0, B: 1, Method: "upper"})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestRiemannSumBoundsStripCount(t *testing.T) {
	sin := Function{Kind: KindSin}
	huge := RiemannParams{Function: sin, A: 0, B: 1, N: 1 << 62, Doublings: 2}
	assert.Greater(t, huge.Size(), frame.MaxSamples)
	_, err := RiemannSum(context.Background(), huge)
	assert.ErrorIs(t, err, ErrInvalidParams)

	assert.Greater(t, RiemannParams{Function: sin, A: 0, B: 1, N: 1, Doublings: 40}.Size(), frame.MaxSamples)
	assert.Equal(t, 4<<3, RiemannParams{Function: sin, A: 0, B: 1, N: 4, Doublings: 3}.Size())

	_, err = RiemannSum(context.Background(), RiemannParams{Function: sin, A: 0, B: 1, N: maxStrips, Doublings: 1})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestFunctionPlotBounds(t *testing.T) {
	_, err := FunctionPlot(context.Background(), PlotParams{Function: Function{Kind: KindSin}, XMin: 0, XMax: 1, Samples: maxPlotSamples + 1})
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = FunctionPlot(context.Background(), PlotParams{Function: Function{Kind: KindSin}, XMin: -1e308, XMax: 1e308})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestUnitCircle(t *testing.T) {
	seq, err := UnitCircle(context.Background(), UnitCircleParams{StepDeg: 30})
	require.NoError(t, err)
	assert.Len(t, seq.Frames, 13)
	for _, f := range seq.Frames {
		tip := f.Series["radius"][1]
		assert.InDelta(t, 1.0, tip.Len(), 1e-12)
	}
	_, hasTan := seq.Frames[3].Values["tan"]
	assert.False(t, hasTan, "tan is undefined at 90 degrees")
	assert.InDelta(t, 0.5, seq.Frames[1].Values["sin"], 1e-12)

	_, err = UnitCircle(context.Background(), UnitCircleParams{StepDeg: 500})
	assert.ErrorIs(t, err, ErrInvalidParams)

	tiny := UnitCircleParams{StepDeg: 1e-300}
	assert.Greater(t, tiny.Size(), frame.MaxSamples)
	_, err = UnitCircle(context.Background(), tiny)
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = UnitCircle(context.Background(), UnitCircleParams{StepDeg: 0.01, Turns: 10})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestCatalogEntries(t *testing.T) {
	entries := Catalog()
	assert.Len(t, entries, 4)
	for _, e := range entries {
		assert.Equal(t, "math", e.Domain)
	}
}
