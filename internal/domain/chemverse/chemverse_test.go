package chemverse

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/visualverse/internal/domain/frame"
)

func TestParseFormula(t *testing.T) {
	cases := map[string]map[string]int{
		"H2O":         {"H": 2, "O": 1},
		"Ca(OH)2":     {"Ca": 1, "O": 2, "H": 2},
		"K4[Fe(CN)6]": {"K": 4, "Fe": 1, "C": 6, "N": 6},
		"CuSO4·5H2O":  {"Cu": 1, "S": 1, "O": 9, "H": 10},
		"CuSO4*5H2O":  {"Cu": 1, "S": 1, "O": 9, "H": 10},
		"Al2(SO4)3":   {"Al": 2, "S": 3, "O": 12},
		"(CH3)3COH":   {"C": 4, "H": 10, "O": 1},
		" NaCl ":      {"Na": 1, "Cl": 1},
		"MgSO4.7H2O":  {"Mg": 1, "S": 1, "O": 11, "H": 14},
		"Mg3(PO4)2":   {"Mg": 3, "P": 2, "O": 8},
		"C6H12O6":     {"C": 6, "H": 12, "O": 6},
		"Co(NH3)6Cl3": {"Co": 1, "N": 6, "H": 18, "Cl": 3},
	}
	for formula, want := range cases {
		comp, err := ParseFormula(formula)
		require.NoError(t, err, formula)
		assert.Equal(t, want, comp.Counts, formula)
		assert.Len(t, comp.Order, len(want), formula)
	}

	comp, err := ParseFormula("NaCl")
	require.NoError(t, err)
	assert.Equal(t, []string{"Na", "Cl"}, comp.Order)
}

func TestParseFormulaErrors(t *testing.T) {
	bad := []string{"", "h2o", "H2O)", "Ca(OH", "()", "H0", "CuSO4··H2O", "Ca(OH]2", "H2O-"}
	for _, f := range bad {
		_, err := ParseFormula(f)
		assert.ErrorIs(t, err, ErrBadFormula, f)
	}
	_, err := ParseFormula("Xy2")
	assert.ErrorIs(t, err, ErrUnknownElement)
}

func TestParseFormulaBoundsAtomCounts(t *testing.T) {
	comp, err := ParseFormula("(H1000)1000")
	require.NoError(t, err)
	assert.Equal(t, 1_000_000, comp.Counts["H"])

	for _, f := range []string{
		"(H1000)1001",
		"((((H99999)99999)99999)99999)99999",
		"[(C99999)99999]99999",
		"H99999H99999H99999H99999H99999H99999H99999H99999H99999H99999H99999",
		"99999(H99999)2",
	} {
		_, err := ParseFormula(f)
		assert.ErrorIs(t, err, ErrBadFormula, f)
	}

	_, err = MolarMass(context.Background(), MolarMassParams{Formula: "((((H99999)99999)99999)99999)99999"})
	assert.ErrorIs(t, err, ErrBadFormula)
}

func TestMolarMass(t *testing.T) {
	cases := map[string]float64{
		"H2O":        18.015,
		"CuSO4·5H2O": 249.68,
		"NaCl":       58.44,
		"C6H12O6":    180.156,
	}
	for formula, want := range cases {
		seq, err := MolarMass(context.Background(), MolarMassParams{Formula: formula})
		require.NoError(t, err, formula)
		assert.InDelta(t, want, seq.Summary["molar_mass"], 0.01, formula)

		last, ok := seq.Last()
		require.True(t, ok)
		assert.Equal(t, frame.ActionDone, last.Action)
		sum := 0.0
		for k, v := range last.Values {
			if k != "molar_mass" {
				sum += v
			}
		}
		assert.InDelta(t, 100, sum, 1e-9, "mass percentages add up")
	}

	seq, err := MolarMass(context.Background(), MolarMassParams{Formula: "H2O"})
	require.NoError(t, err)
	require.Len(t, seq.Frames, 3)
	assert.InDelta(t, 2.016, seq.Frames[0].Values["running_total"], 1e-9)
}

func TestIdealGas(t *testing.T) {
	p, n, temp := 101.325, 1.0, 273.15
	seq, err := IdealGas(context.Background(), IdealGasParams{Pressure: &p, Moles: &n, Temperature: &temp})
	require.NoError(t, err)
	assert.InDelta(t, 22.414, seq.Summary["volume"], 0.001)
	assert.Len(t, seq.Frames, sweepFrames)
	for _, f := range seq.Frames {
		assert.InDelta(t, f.Values["pressure"]*f.Values["volume"], f.Values["moles"]*GasConstant*f.Values["temperature"], 1e-9)
	}

	v := 22.414
	seq, err = IdealGas(context.Background(), IdealGasParams{Pressure: &p, Volume: &v, Moles: &n})
	require.NoError(t, err)
	assert.InDelta(t, 273.15, seq.Summary["temperature"], 0.01)

	_, err = IdealGas(context.Background(), IdealGasParams{Pressure: &p, Moles: &n})
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = IdealGas(context.Background(), IdealGasParams{Pressure: &p, Volume: &v, Moles: &n, Temperature: &temp})
	assert.ErrorIs(t, err, ErrInvalidParams)
	neg := -1.0
	_, err = IdealGas(context.Background(), IdealGasParams{Pressure: &neg, Volume: &v, Moles: &n})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestRadioactiveDecay(t *testing.T) {
	seq, err := RadioactiveDecay(context.Background(), DecayParams{InitialAmount: 800, HalfLife: 10, Steps: 10})
	require.NoError(t, err)
	assert.Len(t, seq.Frames, 11)
	assert.InDelta(t, 25, seq.Summary["remaining"], 1e-9, "five half-lives leave 1/32")
	assert.InDelta(t, 400, seq.Frames[2].Values["remaining"], 1e-9)
	assert.InDelta(t, math.Ln2/10, seq.Summary["decay_constant"], 1e-15)

	_, err = RadioactiveDecay(context.Background(), DecayParams{InitialAmount: 1})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestPH(t *testing.T) {
	seq, err := PH(context.Background(), PHParams{Concentration: 0.01, Type: SolutionAcid, Dilutions: 8})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, seq.Summary["ph"], 1e-6)
	assert.InDelta(t, 12.0, seq.Summary["poh"], 1e-6)
	for _, f := range seq.Frames {
		assert.InDelta(t, 14, f.Values["ph"]+f.Values["poh"], 1e-9)
		assert.Less(t, f.Values["ph"], 7.0, "acid never crosses neutral")
	}
	assert.Greater(t, seq.Summary["final_ph"], 6.9)

	seq, err = PH(context.Background(), PHParams{Concentration: 0.001, Type: SolutionBase})
	require.NoError(t, err)
	assert.InDelta(t, 11.0, seq.Summary["ph"], 1e-6)

	_, err = PH(context.Background(), PHParams{Concentration: 0.1, Type: "salt"})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestCatalogEntries(t *testing.T) {
	entries := Catalog()
	assert.Len(t, entries, 4)
	for _, e := range entries {
		assert.Equal(t, "chemistry", e.Domain)
		assert.NotEmpty(t, e.Example)
	}
}
