package report

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pks0715/seggy/internal/model"
)

// Extraction limits. Reports mention the headline figures first; later
// matches are usually repetitions or peer comparisons.
const (
	maxRevenueMatches = 5
	maxEBITDAMatches  = 5
	maxMarginMatches  = 10
)

var (
	// revenuePattern captures year, amount and unit from phrases such as
	// "Revenue in 2023 reached $120.5M".
	revenuePattern = regexp.MustCompile(`(?i)(?:revenue|sales).*?(\d{4}).*?\$?([\d,]+\.?\d*)\s*([MB])`)

	// ebitdaPattern captures amount and unit from "EBITDA of $39.4M".
	ebitdaPattern = regexp.MustCompile(`(?i)EBITDA.*?\$?([\d,]+\.?\d*)\s*([MB])`)

	// marginPattern captures the percentage after "margin" or "Margin".
	marginPattern = regexp.MustCompile(`(?:margin|Margin).*?([\d.]+)%`)
)

// ExtractFinancialSummary pulls revenue by year, EBITDA and margin
// percentages out of free-form report text. Amounts are in millions of
// dollars; a B (billions) suffix is scaled by 1000. Matches that do not
// parse are skipped. The result is empty, not an error, when nothing
// matches.
func ExtractFinancialSummary(text string) model.FinancialSummary {
	var s model.FinancialSummary

	for _, m := range revenuePattern.FindAllStringSubmatch(text, maxRevenueMatches) {
		year, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		amount, ok := parseAmount(m[2], m[3])
		if !ok {
			continue
		}
		s.Years = append(s.Years, year)
		s.Revenue = append(s.Revenue, amount)
	}

	for _, m := range ebitdaPattern.FindAllStringSubmatch(text, maxEBITDAMatches) {
		if amount, ok := parseAmount(m[1], m[2]); ok {
			s.EBITDA = append(s.EBITDA, amount)
		}
	}

	for _, m := range marginPattern.FindAllStringSubmatch(text, maxMarginMatches) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || v >= 100 {
			continue
		}
		s.Margins = append(s.Margins, v)
	}

	return s
}

// parseAmount converts "1,234.5" with unit M or B into millions.
func parseAmount(raw, unit string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	if strings.EqualFold(unit, "B") {
		v *= 1000
	}
	return v, true
}
