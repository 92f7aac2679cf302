package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"birthprev/app"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4CAF50"))
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB347"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// renderSummary draws the pooled results of one run as a bordered box.
func renderSummary(est *app.Estimate) string {
	sum := est.Summary()
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Birth prevalence per 100,000 (%d studies)", sum.StudyCount)),
		"",
		row("Average", fmt.Sprintf("%.4f  (95%% CI %.4f to %.4f)", sum.AveragePrevalencePer100k, sum.AverageCILower, sum.AverageCIUpper)),
		row("Pooled (inverse variance)", fmt.Sprintf("%.4f  (95%% CI %.4f to %.4f)", sum.PooledPrevalenceInversePer100k, sum.PooledCILowerInverse, sum.PooledCIUpperInverse)),
		row("Cochran's Q", fmt.Sprintf("%.4f  (df %d, p %.4f)", sum.QStatistic, sum.DegreesOfFreedom, sum.QPValue)),
		row("I²", fmt.Sprintf("%.1f%%", sum.I2Statistic*100)),
	}
	if sum.HeterogeneityDegenerate {
		lines = append(lines, warnStyle.Render("Q is zero: the studies show no heterogeneity, I² reported as 0"))
	}
	if len(sum.ExcludedStudies) > 0 {
		lines = append(lines, warnStyle.Render("Excluded from pooling: "+strings.Join(sum.ExcludedStudies, "; ")))
	}
	lines = append(lines, labelStyle.Render("run "+est.RunID.String()+"  input "+est.Fingerprint.Short()))

	return boxStyle.Render(strings.Join(lines, "\n")) + "\n"
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-27s", label)) + value
}
