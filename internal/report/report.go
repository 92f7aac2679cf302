// Package report renders an estimate as a human-readable markdown document.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"birthprev/app"
)

// I² thresholds for describing heterogeneity (Higgins et al., 2003).
const (
	lowHeterogeneity      = 0.25
	moderateHeterogeneity = 0.50
	highHeterogeneity     = 0.75
)

// HeterogeneityLevel names the band an I² value falls in.
func HeterogeneityLevel(i2 float64) string {
	switch {
	case i2 < lowHeterogeneity:
		return "negligible"
	case i2 < moderateHeterogeneity:
		return "low"
	case i2 < highHeterogeneity:
		return "moderate"
	}
	return "high"
}

// Markdown renders the estimate as a markdown report.
func Markdown(est *app.Estimate) []byte {
	t := est.Table
	sum := t.Summary
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Birth prevalence estimate\n\n")
	fmt.Fprintf(&b, "Run `%s`, input `%s`, %d studies, %s intervals.\n\n", est.RunID, est.Fingerprint.Short(), sum.StudyCount, t.Distribution)

	b.WriteString("## Pooled results (per 100,000 births)\n\n")
	b.WriteString("| Estimate | Value | 95% CI |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| Population-weighted average | %.4f | %.4f to %.4f |\n", sum.AveragePrevalencePer100k, sum.AverageCILower, sum.AverageCIUpper)
	fmt.Fprintf(&b, "| Inverse-variance pooled | %.4f | %.4f to %.4f |\n\n", sum.PooledPrevalenceInversePer100k, sum.PooledCILowerInverse, sum.PooledCIUpperInverse)

	b.WriteString("## Heterogeneity\n\n")
	if sum.HeterogeneityDegenerate {
		b.WriteString("Cochran's Q is zero: the pooled studies agree exactly, so I² is reported as 0.\n\n")
	} else {
		fmt.Fprintf(&b, "Cochran's Q = %.4f on %d degrees of freedom (p = %.4f). I² = %.1f%%, %s heterogeneity.\n\n",
			sum.QStatistic, sum.DegreesOfFreedom, sum.QPValue, sum.I2Statistic*100, HeterogeneityLevel(sum.I2Statistic))
	}
	if len(sum.ExcludedStudies) > 0 {
		fmt.Fprintf(&b, "Excluded from inverse-variance pooling (zero standard error): %s.\n\n", escape(strings.Join(sum.ExcludedStudies, "; ")))
	}

	b.WriteString("## Studies\n\n")
	fmt.Fprintf(&b, "| Author and year | Cases | Population | Per 100,000 | 95%% CI (%s) | Weight (population) | Weight (inverse variance) |\n", t.Distribution)
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, r := range t.Rows {
		ivWeight := fmt.Sprintf("%.4f", r.InverseVarianceWeight)
		if r.Excluded {
			ivWeight = "excluded"
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %.4f | %.4f to %.4f | %.4f | %s |\n",
			escape(r.Label), r.Cases, r.Population, r.PrevalencePer100k,
			r.CILower(t.Distribution), r.CIUpper(t.Distribution), r.PopulationWeight, ivWeight)
	}

	if len(est.Profile.Outliers) > 0 {
		fmt.Fprintf(&b, "\nStudies outside 1.5 IQR of the per-study prevalence: %s.\n", escape(strings.Join(est.Profile.Outliers, "; ")))
	}
	return b.Bytes()
}

// HTML renders the markdown report as an HTML fragment. Raw HTML in study
// labels is dropped and only safe link schemes are rendered as links.
func HTML(est *app.Estimate) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML | html.Safelink})
	return markdown.ToHTML(Markdown(est), p, renderer)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"<", "&lt;",
	"|", `\|`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"!", `\!`,
)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
