package llm

import (
	"fmt"
	"regexp"
	"strings"
)

// Default quality gate settings.
// The values were tuned against observed behaviour of free-tier models and
// are configuration, not a contract. They can be overridden in the config file.
var (
	// DefaultTemplatePhrases are phrases that indicate the model declined to
	// produce a concrete analysis and answered with a generic outline instead.
	DefaultTemplatePhrases = []string{
		"here's a framework",
		"here’s a framework",
		"here is a framework",
		"[insert",
		"[company name]",
		"[amount]",
		"placeholder",
		"i cannot provide",
		"i can't provide",
		"i don't have access",
		"as an ai",
		"xx%",
		"$xx",
	}

	// DefaultKeywords are domain terms counted by the keyword threshold.
	DefaultKeywords = []string{
		"revenue", "ebitda", "margin", "cash", "debt", "profit",
		"income", "assets", "liabilities", "growth", "valuation", "risk",
	}
)

const (
	// DefaultMinNumericTokens is the minimum count of numeric, currency,
	// percentage or date-like tokens an answer must contain.
	DefaultMinNumericTokens = 5

	// DefaultMinKeywordHits disables the keyword threshold.
	DefaultMinKeywordHits = 0
)

// numericToken matches numbers with optional currency prefix, thousands
// separators, decimals and percent suffix. Dates such as 2024-03-31 count
// once per numeric component.
var numericToken = regexp.MustCompile(`(?:[$€£]\s?)?\d+(?:[.,]\d+)*(?:\s?%)?`)

// Verdict is the result of running text through a quality gate.
type Verdict struct {
	// Accepted is true when the text passed every check.
	Accepted bool

	// Reason describes the first failed check. Empty when accepted.
	Reason string

	// NumericTokens is the number of numeric tokens found.
	NumericTokens int

	// KeywordHits is the number of domain keyword occurrences found.
	KeywordHits int
}

// Gate decides whether generated text is concrete enough to accept.
// Implementations must be pure: the same text always yields the same verdict.
type Gate interface {
	Check(text string) Verdict
}

// QualityGate is the default Gate: an ordered list of banned phrases plus
// numeric and keyword thresholds.
//
// Checks run in a fixed order and the first failure wins:
//  1. template phrases (case-insensitive substring)
//  2. minimum numeric tokens
//  3. minimum keyword hits (skipped when MinKeywordHits is zero)
//
// Phrase rejection therefore takes precedence over the numeric count: an
// outline that happens to mention five figures is still an outline.
type QualityGate struct {
	TemplatePhrases  []string
	MinNumericTokens int
	Keywords         []string
	MinKeywordHits   int
}

// NewQualityGate creates a QualityGate with the default settings.
func NewQualityGate() *QualityGate {
	return &QualityGate{
		TemplatePhrases:  append([]string(nil), DefaultTemplatePhrases...),
		MinNumericTokens: DefaultMinNumericTokens,
		Keywords:         append([]string(nil), DefaultKeywords...),
		MinKeywordHits:   DefaultMinKeywordHits,
	}
}

// Check implements Gate.
func (g *QualityGate) Check(text string) Verdict {
	lower := strings.ToLower(text)

	v := Verdict{
		NumericTokens: CountNumericTokens(text),
		KeywordHits:   countKeywords(lower, g.Keywords),
	}

	for _, phrase := range g.TemplatePhrases {
		p := strings.ToLower(strings.TrimSpace(phrase))
		if p != "" && strings.Contains(lower, p) {
			v.Reason = fmt.Sprintf("template phrase %q", phrase)
			return v
		}
	}

	if v.NumericTokens < g.MinNumericTokens {
		v.Reason = fmt.Sprintf("only %d numeric tokens (minimum %d)", v.NumericTokens, g.MinNumericTokens)
		return v
	}

	if g.MinKeywordHits > 0 && v.KeywordHits < g.MinKeywordHits {
		v.Reason = fmt.Sprintf("only %d domain keywords (minimum %d)", v.KeywordHits, g.MinKeywordHits)
		return v
	}

	v.Accepted = true
	return v
}

// CountNumericTokens returns the number of numeric-like tokens in text.
func CountNumericTokens(text string) int {
	return len(numericToken.FindAllStringIndex(text, -1))
}

// countKeywords sums the occurrences of each keyword in the lowercased text.
func countKeywords(lower string, keywords []string) int {
	total := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		total += strings.Count(lower, kw)
	}
	return total
}

// AcceptAll is a Gate that accepts any non-empty text.
// It is useful when a caller wants raw backend fallback without quality checks.
type AcceptAll struct{}

// Check implements Gate.
func (AcceptAll) Check(text string) Verdict {
	if strings.TrimSpace(text) == "" {
		return Verdict{Reason: "empty text"}
	}
	return Verdict{Accepted: true}
}
