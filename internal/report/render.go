package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gomarkdown/markdown"

	"github.com/gkobilansky/ab-sim/internal/stats"
)

// WriteText prints the report as a plain-text summary table.
func WriteText(w io.Writer, r *Report) error {
	fmt.Fprintf(w, "REPORT: %s\n", r.ID)
	fmt.Fprintf(w, "SOURCE: %s\n", r.Source)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tUSERS\tCONVERSIONS\tRATE\t95% CI")
	for _, row := range []struct {
		name string
		g    stats.Group
	}{{"A", r.A}, {"B", r.B}} {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t[%s, %s]\n",
			row.name,
			formatNumber(row.g.N),
			formatNumber(row.g.Conversions),
			formatPercent(row.g.Mean),
			formatPercent(row.g.CILower),
			formatPercent(row.g.CIUpper),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	c := r.Comparison
	fmt.Fprintf(w, "Absolute lift:  %s\n", formatPercent(c.Lift))
	fmt.Fprintf(w, "Relative lift:  %s\n", formatPercent(c.RelativeLift))
	fmt.Fprintf(w, "T-statistic:    %.4f\n", c.TStatistic)
	fmt.Fprintf(w, "P-value:        %.4f\n", c.PValue)
	fmt.Fprintf(w, "Cohen's d:      %.4f\n", c.CohensD)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", verdictMark(r.Interpretation.Verdict), r.Interpretation.Message)

	if r.SampleSize != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, SampleSizeSentence(r.SampleSize))
	}
	return nil
}

func verdictMark(v Verdict) string {
	switch v {
	case VerdictBetter:
		return "✅"
	case VerdictWorse:
		return "⚠️"
	default:
		return "❌"
	}
}

// Number is a float64 that encodes infinities as the strings "Inf" and
// "-Inf" instead of failing, since JSON has no literal for them.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	case math.IsNaN(f):
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

type jsonComparison struct {
	Lift             float64 `json:"lift"`
	RelativeLift     float64 `json:"relative_lift"`
	TStatistic       Number  `json:"t_statistic"`
	PValue           float64 `json:"p_value"`
	DegreesOfFreedom float64 `json:"degrees_of_freedom"`
	CohensD          Number  `json:"cohens_d"`
	Significant      bool    `json:"significant"`
}

type jsonReport struct {
	ID             string            `json:"id"`
	Source         Source            `json:"source"`
	CreatedAt      string            `json:"created_at"`
	A              stats.Group       `json:"a"`
	B              stats.Group       `json:"b"`
	Comparison     jsonComparison    `json:"comparison"`
	Chart          []Bar             `json:"chart"`
	Interpretation Interpretation    `json:"interpretation"`
	SampleSize     *SampleSizeResult `json:"sample_size,omitempty"`
}

// MarshalJSON encodes the report with snake_case keys.
func (r *Report) MarshalJSON() ([]byte, error) {
	c := r.Comparison
	return json.Marshal(jsonReport{
		ID:        r.ID,
		Source:    r.Source,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
		A:         r.A,
		B:         r.B,
		Comparison: jsonComparison{
			Lift:             c.Lift,
			RelativeLift:     c.RelativeLift,
			TStatistic:       Number(c.TStatistic),
			PValue:           c.PValue,
			DegreesOfFreedom: c.DegreesOfFreedom,
			CohensD:          Number(c.CohensD),
			Significant:      c.Significant,
		},
		Chart:          r.Chart,
		Interpretation: r.Interpretation,
		SampleSize:     r.SampleSize,
	})
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// Markdown returns the test summary as markdown.
func Markdown(r *Report) string {
	var b strings.Builder
	c := r.Comparison

	fmt.Fprintf(&b, "- **Group A conversion:** %s (95%% CI: %s – %s)\n", formatPercent(r.A.Mean), formatPercent(r.A.CILower), formatPercent(r.A.CIUpper))
	fmt.Fprintf(&b, "- **Group B conversion:** %s (95%% CI: %s – %s)\n", formatPercent(r.B.Mean), formatPercent(r.B.CILower), formatPercent(r.B.CIUpper))
	fmt.Fprintf(&b, "- **Absolute lift:** %s\n", formatPercent(c.Lift))
	fmt.Fprintf(&b, "- **Relative lift:** %s\n", formatPercent(c.RelativeLift))
	fmt.Fprintf(&b, "- **T-statistic:** %.4f\n", c.TStatistic)
	fmt.Fprintf(&b, "- **P-value:** %.4f\n", c.PValue)
	fmt.Fprintf(&b, "- **Cohen's d (effect size):** %.4f\n", c.CohensD)
	b.WriteString("\n### Interpretation\n\n")
	fmt.Fprintf(&b, "%s %s\n", verdictMark(r.Interpretation.Verdict), r.Interpretation.Message)

	if r.SampleSize != nil {
		b.WriteString("\n### Sample size\n\n")
		b.WriteString(SampleSizeSentence(r.SampleSize))
		b.WriteString("\n")
	}
	return b.String()
}

// MarkdownHTML renders Markdown(r) to an HTML fragment.
func MarkdownHTML(r *Report) []byte {
	return markdown.ToHTML([]byte(Markdown(r)), nil, nil)
}

func formatPercent(rate float64) string {
	if rate == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", rate*100)
}

func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1000000, (n/1000)%1000, n%1000)
}
