package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/markdown/mermaid/quadrant"
)

// riskScale is the number of steps on each risk matrix axis.
const riskScale = 4

// RenderCharts renders the chart section as Markdown with mermaid blocks.
func RenderCharts(c Charts) string {
	md := markdown.NewMarkdown(io.Discard)
	writeCharts(md, c)
	return md.String()
}

// writeCharts appends every chart of c to md.
func writeCharts(md *markdown.Markdown, c Charts) {
	md.H2("Financial Charts")
	md.PlainText("")

	if c.HasRevenueTrend() {
		writeRevenueTrend(md, c)
	}
	writeBridge(md, c.Bridge)
	writeMargins(md, c.Margins)
	writeRiskMatrix(md, c.Risks)
}

// writeRevenueTrend writes the revenue table and a bar chart.
func writeRevenueTrend(md *markdown.Markdown, c Charts) {
	md.H3("Revenue Trend")
	md.PlainText("")

	rows := make([][]string, len(c.Years))
	for i, year := range c.Years {
		rows[i] = []string{strconv.Itoa(year), formatMillions(c.Revenue[i])}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Year", "Revenue ($M)"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, revenueBarChart(c.Years, c.Revenue))
	md.PlainText("")
}

// revenueBarChart builds an xychart-beta definition.
// The markdown library has no xychart builder, so the block is written by hand.
func revenueBarChart(years []int, revenue []float64) string {
	labels := make([]string, len(years))
	values := make([]string, len(revenue))
	for i := range years {
		labels[i] = strconv.Itoa(years[i])
		values[i] = strconv.FormatFloat(revenue[i], 'f', 1, 64)
	}

	var sb strings.Builder
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Revenue Trend ($M)\"\n")
	fmt.Fprintf(&sb, "    x-axis [%s]\n", strings.Join(labels, ", "))
	sb.WriteString("    y-axis \"Revenue ($M)\"\n")
	fmt.Fprintf(&sb, "    bar [%s]", strings.Join(values, ", "))
	return sb.String()
}

// writeBridge writes the EBITDA bridge table.
func writeBridge(md *markdown.Markdown, steps []BridgeStep) {
	md.H3("EBITDA Bridge")
	md.PlainText("")

	rows := make([][]string, len(steps))
	for i, s := range steps {
		kind := "change"
		if s.Total {
			kind = "total"
		}
		rows[i] = []string{s.Label, formatMillions(s.Value), kind}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Step", "Value ($M)", "Type"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeMargins writes the margin pie chart.
func writeMargins(md *markdown.Markdown, margins []Margin) {
	md.H3("Margin Analysis")
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Margin Analysis (%)"),
		piechart.WithShowData(true),
	)
	for _, m := range margins {
		chart.LabelAndFloatValue(m.Label, m.Value)
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeRiskMatrix writes the risk quadrant chart and its legend.
func writeRiskMatrix(md *markdown.Markdown, risks []Risk) {
	md.H3("Risk Assessment Matrix")
	md.PlainText("")

	chart := quadrant.NewChart(io.Discard, quadrant.WithTitle("Risk Assessment Matrix")).
		XAxis("Rare", "Certain").
		YAxis("Low Impact", "Critical Impact").
		Quadrant1("Mitigate urgently").
		Quadrant2("Contingency plan").
		Quadrant3("Accept").
		Quadrant4("Monitor")
	for _, r := range risks {
		chart.Point(r.ID, riskCoordinate(r.Likelihood), riskCoordinate(r.Severity))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	rows := make([][]string, len(risks))
	for i, r := range risks {
		rows[i] = []string{r.ID, r.Name, severityLabel(r.Severity), likelihoodLabel(r.Likelihood)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Risk", "Severity", "Likelihood"},
		Rows:   rows,
	})
	md.PlainText("")
}

// riskCoordinate maps a 1..4 score to the centre of its cell in 0..1.
func riskCoordinate(score int) float64 {
	score = max(1, min(riskScale, score))
	return (float64(score) - 0.5) / riskScale
}

var (
	severityLabels   = []string{"Low", "Medium", "High", "Critical"}
	likelihoodLabels = []string{"Rare", "Unlikely", "Likely", "Certain"}
)

func severityLabel(score int) string {
	return severityLabels[max(1, min(riskScale, score))-1]
}

func likelihoodLabel(score int) string {
	return likelihoodLabels[max(1, min(riskScale, score))-1]
}

// formatMillions formats a value in millions with one decimal.
func formatMillions(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
