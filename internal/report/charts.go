package report

import (
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pks0715/seggy/internal/model"
)

// Chart defaults used when the report text yields no figures.
const (
	// defaultBaseRevenue anchors the EBITDA bridge when no revenue was found.
	defaultBaseRevenue = 100.0

	// marginPadFactor scales the last known margin to fill missing ones.
	marginPadFactor = 0.9
)

// Bridge ratios of base revenue.
const (
	cogsRatio   = 0.40
	grossRatio  = 0.60
	opexRatio   = 0.25
	ebitdaRatio = 0.35
)

// marginLabels name the four margin series in display order.
var marginLabels = []string{"Gross Margin", "Operating Margin", "EBITDA Margin", "Net Margin"}

// defaultMargins are shown when the report mentions no margins.
var defaultMargins = []float64{58.0, 28.0, 22.0, 16.0}

// BridgeStep is one bar of the EBITDA bridge.
type BridgeStep struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Total bool    `json:"total"`
}

// Risk is one point of the risk matrix. Severity and Likelihood are 1..4.
type Risk struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Severity   int    `json:"severity"`
	Likelihood int    `json:"likelihood"`
}

// Margin is a labelled margin percentage.
type Margin struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Charts is the chart data derived from a report.
type Charts struct {
	// Revenue pairs Years and Revenue from the summary. Empty when the
	// report carried no usable revenue series.
	Years   []int     `json:"years,omitempty"`
	Revenue []float64 `json:"revenue,omitempty"`

	Bridge  []BridgeStep `json:"ebitda_bridge"`
	Margins []Margin     `json:"margins"`
	Risks   []Risk       `json:"risks"`
}

// HasRevenueTrend reports whether a revenue chart can be drawn.
func (c Charts) HasRevenueTrend() bool {
	return len(c.Years) > 0 && len(c.Years) == len(c.Revenue)
}

// BuildCharts derives chart data from an extracted summary.
func BuildCharts(s model.FinancialSummary) Charts {
	c := Charts{
		Bridge:  ebitdaBridge(s.Revenue),
		Margins: marginSeries(s.Margins),
		Risks:   DefaultRisks(),
	}
	if len(s.Years) > 0 && len(s.Years) == len(s.Revenue) {
		c.Years = append([]int(nil), s.Years...)
		c.Revenue = append([]float64(nil), s.Revenue...)
	}
	return c
}

// ebitdaBridge builds Revenue -> COGS -> Gross Profit -> OpEx -> EBITDA
// from the first revenue figure.
func ebitdaBridge(revenue []float64) []BridgeStep {
	base := defaultBaseRevenue
	if len(revenue) > 0 {
		base = revenue[0]
	}
	return []BridgeStep{
		{Label: "Revenue", Value: base, Total: true},
		{Label: "COGS", Value: -base * cogsRatio},
		{Label: "Gross Profit", Value: base * grossRatio, Total: true},
		{Label: "OpEx", Value: -base * opexRatio},
		{Label: "EBITDA", Value: base * ebitdaRatio, Total: true},
	}
}

// marginSeries returns exactly four margins. Missing values are padded
// with 0.9 times the last known margin.
func marginSeries(margins []float64) []Margin {
	values := make([]float64, 0, len(marginLabels))
	switch {
	case len(margins) >= len(marginLabels):
		values = append(values, margins[:len(marginLabels)]...)
	case len(margins) > 0:
		values = append(values, margins...)
		pad := margins[len(margins)-1] * marginPadFactor
		for len(values) < len(marginLabels) {
			values = append(values, pad)
		}
	default:
		values = append(values, defaultMargins...)
	}

	out := make([]Margin, len(marginLabels))
	for i, label := range marginLabels {
		out[i] = Margin{Label: label, Value: values[i]}
	}
	return out
}

// riskCategories are the standard categories of the risk matrix, with
// their indicative severity and likelihood.
var riskCategories = []struct {
	name                 string
	severity, likelihood int
}{
	{"market", 3, 2},
	{"credit", 2, 3},
	{"operational", 4, 2},
	{"regulatory", 2, 3},
	{"technology", 3, 3},
	{"competition", 2, 4},
	{"liquidity", 2, 2},
	{"reputational", 3, 2},
}

// DefaultRisks returns the eight standard risk categories.
func DefaultRisks() []Risk {
	title := cases.Title(language.English)
	risks := make([]Risk, len(riskCategories))
	for i, rc := range riskCategories {
		risks[i] = Risk{
			ID:         "R" + strconv.Itoa(i+1),
			Name:       title.String(rc.name) + " Risk",
			Severity:   rc.severity,
			Likelihood: rc.likelihood,
		}
	}
	return risks
}
