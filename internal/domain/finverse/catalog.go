package finverse

import "github.com/okian/visualverse/internal/domain/catalog"

// Catalog lists the finance concepts.
func Catalog() []catalog.Entry {
	entry := func(kind, title, summary string, lvl catalog.Level, ex any, tags ...string) catalog.Entry {
		return catalog.Entry{
			Domain: catalog.DomainFinance, Kind: kind, Title: title, Summary: summary,
			Level: lvl, Tags: tags, Example: catalog.Example(ex),
		}
	}
	flows := []float64{-1000, 300, 400, 500, 200}
	return []catalog.Entry{
		entry("compound_interest", "Compound interest", "Interest on interest, with optional regular contributions.", catalog.Beginner,
			CompoundParams{Principal: 1000, Rate: 0.05, Years: 10, Contribution: 50}, "interest", "growth"),
		entry("amortization", "Loan amortization", "How fixed payments split between interest and principal.", catalog.Intermediate,
			AmortizationParams{Principal: 200000, Rate: 0.06, Years: 30}, "loans"),
		entry("npv", "Net present value", "Discount future cash flows to today.", catalog.Intermediate,
			CashFlowParams{Rate: 0.08, CashFlows: flows}, "valuation", "discounting"),
		entry("irr", "Internal rate of return", "Find the discount rate where NPV is zero.", catalog.Advanced,
			IRRParams{CashFlows: flows}, "valuation", "root-finding"),
	}
}
