package ui

import (
	"bytes"
	"html/template"
	"strconv"

	"birthprev/adapters/excel"
	"birthprev/app"
	"birthprev/domain/study"
	"birthprev/internal/profiling"
	"birthprev/internal/report"
)

// pageData is the model of index.html.
type pageData struct {
	Distribution string
	Policy       string
	Error        string
	Result       *resultView
}

// resultView carries one estimate in display form.
type resultView struct {
	RunID        string
	Fingerprint  string
	Distribution string
	Policy       string
	Rows         []rowView
	Summary      study.Summary
	Profile      profiling.PrevalenceProfile
	Stages       []stageView
	Report       template.HTML
	// InputCSV is posted back by the download form.
	InputCSV string
}

type rowView struct {
	study.StudyRow
	Lower float64
	Upper float64
}

type stageView struct {
	Name     string
	Duration int64
	Excluded int
}

func newPageData(defaults app.EstimateOptions) pageData {
	return pageData{
		Distribution: string(defaults.Distribution),
		Policy:       string(defaults.Policy),
	}
}

func newResultView(est *app.Estimate) (*resultView, error) {
	var input bytes.Buffer
	if err := excel.WriteStudiesCSV(&input, est.Table.Studies()); err != nil {
		return nil, err
	}

	rows := make([]rowView, len(est.Table.Rows))
	for i, r := range est.Table.Rows {
		rows[i] = rowView{StudyRow: r, Lower: r.CILower(est.Table.Distribution), Upper: r.CIUpper(est.Table.Distribution)}
	}

	stages := make([]stageView, len(est.Pipeline.Results))
	for i, r := range est.Pipeline.Results {
		stages[i] = stageView{Name: string(r.StageName), Duration: r.Duration, Excluded: r.Metrics.ExcludedCount}
	}

	return &resultView{
		RunID:        est.RunID.String(),
		Fingerprint:  est.Fingerprint.Short(),
		Distribution: string(est.Table.Distribution),
		Policy:       string(est.Table.Policy),
		Rows:         rows,
		Summary:      est.Summary(),
		Profile:      est.Profile,
		Stages:       stages,
		Report:       template.HTML(report.HTML(est)),
		InputCSV:     input.String(),
	}, nil
}

// formatNumber shows four decimals, enough to tell per-100k values apart.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
