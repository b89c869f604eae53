package chemverse

import "github.com/okian/visualverse/internal/domain/catalog"

func ptr(v float64) *float64 { return &v }

// Catalog lists the chemistry concepts.
func Catalog() []catalog.Entry {
	entry := func(kind, title, summary string, lvl catalog.Level, ex any, tags ...string) catalog.Entry {
		return catalog.Entry{
			Domain: catalog.DomainChemistry, Kind: kind, Title: title, Summary: summary,
			Level: lvl, Tags: tags, Example: catalog.Example(ex),
		}
	}
	return []catalog.Entry{
		entry("molar_mass", "Molar mass", "Add up atomic weights element by element, hydrates included.", catalog.Beginner,
			MolarMassParams{Formula: "CuSO4·5H2O"}, "stoichiometry"),
		entry("ideal_gas", "Ideal gas law", "Solve PV = nRT for the missing quantity.", catalog.Intermediate,
			IdealGasParams{Pressure: ptr(101.325), Moles: ptr(1), Temperature: ptr(273.15)}, "gases"),
		entry("radioactive_decay", "Radioactive decay", "Exponential decay measured in half-lives.", catalog.Intermediate,
			DecayParams{InitialAmount: 1000, HalfLife: 5730}, "nuclear", "exponential"),
		entry("ph", "pH of strong acids and bases", "Logarithmic acidity and the effect of dilution.", catalog.Beginner,
			PHParams{Concentration: 0.01, Type: SolutionAcid, Dilutions: 6}, "acids", "logarithm"),
	}
}
