package advisor

import "sort"

// SectorETFs maps candidate diversifier symbols to a display label: the
// major sector funds plus broad market, international, bond and commodity
// funds. Gap scans test exactly this set.
func SectorETFs() map[string]string {
	return map[string]string{
		"XLK":  "Technology",
		"XLF":  "Financials",
		"XLV":  "Healthcare",
		"XLE":  "Energy",
		"XLI":  "Industrials",
		"XLY":  "Consumer Discretionary",
		"XLP":  "Consumer Staples",
		"XLB":  "Materials",
		"XLRE": "Real Estate",
		"XLU":  "Utilities",
		"VOO":  "S&P 500",
		"VTI":  "Total Market",
		"VXUS": "International",
		"VNQ":  "Real Estate",
		"GLD":  "Gold",
		"TLT":  "Long-term Bonds",
		"AGG":  "Aggregate Bonds",
	}
}

// sectorETFSymbols returns the catalogue symbols in deterministic order
func sectorETFSymbols() []string {
	catalogue := SectorETFs()
	symbols := make([]string, 0, len(catalogue))
	for symbol := range catalogue {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
