package optimization

import (
	"strings"

	"github.com/aristath/frontier/internal/domain"
)

// DefaultViewConfidence applies when a view is built without one
const DefaultViewConfidence = 0.5

// ViewKind distinguishes the two supported investor view forms.
type ViewKind string

const (
	ViewAbsolute ViewKind = "absolute"
	ViewRelative ViewKind = "relative"
)

// View is an investor opinion fed into the Black-Litterman blend.
// Views are only built through NewAbsoluteView and NewRelativeView, which
// makes malformed shapes (a relative view across three assets, say)
// unrepresentable rather than silently truncated.
type View struct {
	Kind       ViewKind `json:"kind"`
	Assets     []string `json:"assets,omitempty"`
	AssetA     string   `json:"asset_a,omitempty"`
	AssetB     string   `json:"asset_b,omitempty"`
	Value      float64  `json:"value"`
	Confidence float64  `json:"confidence"`
}

// NewAbsoluteView asserts an expected annual return for one or more assets,
// weighted equally. Confidence must lie in (0, 1]; zero selects the default.
func NewAbsoluteView(assets []string, value, confidence float64) (View, error) {
	if len(assets) == 0 {
		return View{}, domain.NewValidationError("absolute view requires at least one asset")
	}
	cleaned := make([]string, 0, len(assets))
	seen := make(map[string]bool, len(assets))
	for _, a := range assets {
		symbol := strings.ToUpper(strings.TrimSpace(a))
		if symbol == "" {
			return View{}, domain.NewValidationError("absolute view contains a blank asset")
		}
		if seen[symbol] {
			return View{}, domain.NewValidationError("absolute view lists %s twice", symbol)
		}
		seen[symbol] = true
		cleaned = append(cleaned, symbol)
	}

	conf, err := normalizeConfidence(confidence)
	if err != nil {
		return View{}, err
	}

	return View{
		Kind:       ViewAbsolute,
		Assets:     cleaned,
		Value:      value,
		Confidence: conf,
	}, nil
}

// NewRelativeView asserts that assetA will outperform assetB by value
// (annualized, first minus second). Exactly two distinct assets.
func NewRelativeView(assetA, assetB string, value, confidence float64) (View, error) {
	a := strings.ToUpper(strings.TrimSpace(assetA))
	b := strings.ToUpper(strings.TrimSpace(assetB))
	if a == "" || b == "" {
		return View{}, domain.NewValidationError("relative view requires two assets")
	}
	if a == b {
		return View{}, domain.NewValidationError("relative view assets must differ, got %s twice", a)
	}

	conf, err := normalizeConfidence(confidence)
	if err != nil {
		return View{}, err
	}

	return View{
		Kind:       ViewRelative,
		AssetA:     a,
		AssetB:     b,
		Value:      value,
		Confidence: conf,
	}, nil
}

func normalizeConfidence(confidence float64) (float64, error) {
	if confidence == 0 {
		return DefaultViewConfidence, nil
	}
	if confidence < 0 || confidence > 1 {
		return 0, domain.NewValidationError("view confidence must be in (0, 1], got %v", confidence)
	}
	return confidence, nil
}

// members returns the tickers the view touches
func (v View) members() []string {
	if v.Kind == ViewRelative {
		return []string{v.AssetA, v.AssetB}
	}
	return v.Assets
}
