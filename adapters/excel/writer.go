package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"birthprev/domain/study"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

// ResultWriter renders an estimated table as CSV or xlsx
type ResultWriter struct {
	config WriterConfig
}

// NewResultWriter creates a new result writer
func NewResultWriter(config WriterConfig) *ResultWriter {
	return &ResultWriter{config: config}
}

// SummaryItem is one named table-level result.
type SummaryItem struct {
	Name  string
	Value interface{}
}

// Headers returns the output columns for a distribution.
func (w *ResultWriter) Headers(dist study.Distribution) []string {
	headers := []string{
		ColumnLabel, ColumnCases, ColumnPopulation,
		"birth_prevalence_100k",
		fmt.Sprintf("95%% CI lower (%s)", dist),
		fmt.Sprintf("95%% CI upper (%s)", dist),
		"average birth prevalence_100k",
		"95% CI lower (average)",
		"95% CI upper (average)",
		"pooled birth prevalence (inverse) per 100K",
		"95% CI lower (inverse)",
		"95% CI upper (inverse)",
		"Q_statistic",
		"I2_statistic",
	}
	if !w.config.Detailed {
		return headers
	}
	other := study.DistributionNormal
	if dist == study.DistributionNormal {
		other = study.DistributionPoisson
	}
	return append(headers,
		"birth_prevalence",
		"margin_of_error",
		"margin_of_error_100k",
		fmt.Sprintf("95%% CI lower (%s)", other),
		fmt.Sprintf("95%% CI upper (%s)", other),
		"weight_population",
		"weighted_prevalence",
		"std_error_100k",
		"inverse_variance_coefficient",
		"inverse_variance_weight",
		"weighted_prevalence_inverse",
		"excluded",
	)
}

// Values returns one output row per study, in Headers order. Table-level
// results repeat on every row.
func (w *ResultWriter) Values(t *study.Table) [][]interface{} {
	sum := t.Summary
	other := study.DistributionNormal
	if t.Distribution == study.DistributionNormal {
		other = study.DistributionPoisson
	}

	out := make([][]interface{}, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := []interface{}{
			r.Label, r.Cases, r.Population,
			r.PrevalencePer100k,
			r.CILower(t.Distribution),
			r.CIUpper(t.Distribution),
			sum.AveragePrevalencePer100k,
			sum.AverageCILower,
			sum.AverageCIUpper,
			sum.PooledPrevalenceInversePer100k,
			sum.PooledCILowerInverse,
			sum.PooledCIUpperInverse,
			sum.QStatistic,
			sum.I2Statistic,
		}
		if w.config.Detailed {
			row = append(row,
				r.Prevalence,
				r.MarginOfError,
				r.MarginOfErrorPer100k,
				r.CILower(other),
				r.CIUpper(other),
				r.PopulationWeight,
				r.WeightedPrevalence,
				r.StdErrorPer100k,
				r.InverseVarianceCoefficient,
				r.InverseVarianceWeight,
				r.WeightedPrevalenceInverse,
				r.Excluded,
			)
		}
		out = append(out, row)
	}
	return out
}

// Records returns the header and rows as text, as written to CSV.
func (w *ResultWriter) Records(t *study.Table) [][]string {
	records := [][]string{w.Headers(t.Distribution)}
	for _, row := range w.Values(t) {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = FormatValue(v)
		}
		records = append(records, record)
	}
	return records
}

// SummaryItems lists the table-level results in display order.
func SummaryItems(t *study.Table) []SummaryItem {
	sum := t.Summary
	return []SummaryItem{
		{"studies", sum.StudyCount},
		{"included studies", sum.IncludedStudies},
		{"excluded studies", strings.Join(sum.ExcludedStudies, "; ")},
		{"distribution", string(t.Distribution)},
		{"degenerate policy", string(t.Policy)},
		{"average birth prevalence_100k", sum.AveragePrevalencePer100k},
		{"95% CI lower (average)", sum.AverageCILower},
		{"95% CI upper (average)", sum.AverageCIUpper},
		{"pooled birth prevalence (inverse) per 100K", sum.PooledPrevalenceInversePer100k},
		{"pooled standard error per 100K", sum.PooledStdErrorPer100k},
		{"95% CI lower (inverse)", sum.PooledCILowerInverse},
		{"95% CI upper (inverse)", sum.PooledCIUpperInverse},
		{"Q_statistic", sum.QStatistic},
		{"degrees_of_freedom", sum.DegreesOfFreedom},
		{"Q_p_value", sum.QPValue},
		{"I2_statistic", sum.I2Statistic},
		{"heterogeneity_degenerate", sum.HeterogeneityDegenerate},
	}
}

// FormatValue renders a cell with the shortest exact float representation.
func FormatValue(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	}
	return fmt.Sprint(v)
}

// WriteCSV writes the results table as CSV
func (w *ResultWriter) WriteCSV(out io.Writer, t *study.Table) error {
	cw := csv.NewWriter(out)
	if err := cw.WriteAll(w.Records(t)); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// WriteStudiesCSV writes studies with the input header, so the output can be
// read back by DataReader.
func WriteStudiesCSV(out io.Writer, studies []study.Study) error {
	cw := csv.NewWriter(out)
	records := [][]string{RequiredColumns}
	for _, s := range studies {
		records = append(records, []string{s.Label, strconv.Itoa(s.Cases), strconv.Itoa(s.Population)})
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with a Results sheet and a Summary sheet
func (w *ResultWriter) WriteXLSX(out io.Writer, t *study.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("failed to create %s sheet: %w", resultsSheet, err)
	}
	if err := setRow(f, resultsSheet, 1, toInterfaces(w.Headers(t.Distribution))); err != nil {
		return err
	}
	for i, row := range w.Values(t) {
		if err := setRow(f, resultsSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create %s sheet: %w", summarySheet, err)
	}
	if err := setRow(f, summarySheet, 1, []interface{}{"metric", "value"}); err != nil {
		return err
	}
	for i, item := range SummaryItems(t) {
		if err := setRow(f, summarySheet, i+2, []interface{}{item.Name, item.Value}); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteFile writes results to path; .xlsx gets a workbook, anything else CSV.
func (w *ResultWriter) WriteFile(path string, t *study.Table) error {
	return WriteFileAtomic(path, func(out io.Writer) error {
		if strings.EqualFold(filepath.Ext(path), ".xlsx") {
			return w.WriteXLSX(out, t)
		}
		return w.WriteCSV(out, t)
	})
}

// WriteFileAtomic writes into a temp file next to path and renames it into
// place once write succeeds. On failure path is left as it was.
func WriteFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if err = write(f); err != nil {
		return err
	}
	if err = f.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
