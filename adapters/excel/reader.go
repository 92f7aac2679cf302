package excel

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xuri/excelize/v2"

	"birthprev/domain/core"
	"birthprev/domain/study"
	"birthprev/internal"
	"birthprev/internal/errors"
)

// DataReader reads studies from CSV, Excel and JSON inputs
type DataReader struct {
	config ReaderConfig
	logger *internal.Logger
}

// NewDataReader creates a new data reader
func NewDataReader(config ReaderConfig, logger *internal.Logger) *DataReader {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &DataReader{config: config, logger: logger}
}

const (
	utf8BOM       = "\ufeff"
	maxExactCount = 1 << 53
)

// SupportedExtensions are the input file types ReadFile understands.
var SupportedExtensions = []string{".csv", ".xlsx", ".json"}

// ReadFile reads a study file, choosing the format from its extension
func (r *DataReader) ReadFile(path string) ([]study.Study, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	return r.ReadNamed(filepath.Base(path), f)
}

// ReadNamed reads an input whose format is given by the extension of name,
// as for an uploaded file.
func (r *DataReader) ReadNamed(name string, in io.Reader) ([]study.Study, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		return r.ReadCSV(in)
	case ".xlsx":
		return r.ReadXLSX(in)
	case ".json":
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON input: %w", err)
		}
		return r.ReadJSON(data)
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported file type %q (want one of %s)", ext, strings.Join(SupportedExtensions, ", ")))
	}
}

// ReadCSV reads studies from CSV text
func (r *DataReader) ReadCSV(in io.Reader) ([]study.Study, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], utf8BOM)
	}
	r.logger.Debug("read %d CSV rows", len(rows))

	return r.toStudies(r.processRows(rows))
}

// ReadXLSX reads studies from the configured sheet of a workbook
func (r *DataReader) ReadXLSX(in io.Reader) ([]study.Study, error) {
	f, err := excelize.OpenReader(in)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel workbook: %w", err)
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, core.NewMissingColumnError(RequiredColumns)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	r.logger.Debug("read %d rows from sheet %q", len(rows), sheet)

	return r.toStudies(r.processRows(rows))
}

// ReadJSON reads studies from an array of objects at the configured path
func (r *DataReader) ReadJSON(data []byte) ([]study.Study, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.InvalidInput("input is not valid JSON")
	}

	result := gjson.ParseBytes(data)
	if r.config.JSONPath != "" {
		result = result.Get(r.config.JSONPath)
		if !result.Exists() {
			return nil, errors.InvalidInput(fmt.Sprintf("JSON path %q not found", r.config.JSONPath))
		}
	}
	if !result.IsArray() {
		return nil, errors.InvalidInput("JSON studies must be an array of objects")
	}

	out := &ExcelData{}
	seen := make(map[string]bool)
	for _, item := range result.Array() {
		if !item.IsObject() {
			return nil, errors.InvalidInput("JSON studies must be an array of objects")
		}
		row := make(RawRowData)
		item.ForEach(func(key, value gjson.Result) bool {
			name := normalizeHeader(key.String())
			row[name] = strings.TrimSpace(value.String())
			if !seen[name] {
				seen[name] = true
				out.Headers = append(out.Headers, name)
			}
			return true
		})
		out.Rows = append(out.Rows, row)
	}
	r.logger.Debug("read %d JSON records", len(out.Rows))

	return r.toStudies(out)
}

// processRows converts raw string rows into ExcelData, dropping blank rows
func (r *DataReader) processRows(rows [][]string) *ExcelData {
	if len(rows) == 0 {
		return &ExcelData{}
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = normalizeHeader(header)
	}

	var dataRows []RawRowData
	for _, row := range rows[1:] {
		rowData := make(RawRowData)
		blank := true
		for j, cell := range row {
			if j >= len(headers) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell != "" {
				blank = false
			}
			rowData[headers[j]] = cell
		}
		if !blank {
			dataRows = append(dataRows, rowData)
		}
	}

	return &ExcelData{Headers: headers, Rows: dataRows}
}

// toStudies checks the required columns and parses every row, reporting all
// bad cells at once.
func (r *DataReader) toStudies(data *ExcelData) ([]study.Study, error) {
	if missing := missingColumns(data.Headers); len(missing) > 0 {
		return nil, core.NewMissingColumnError(missing)
	}

	studies := make([]study.Study, 0, len(data.Rows))
	var errs []error
	for i, row := range data.Rows {
		s := study.Study{Label: row[ColumnLabel]}

		cases, err := parseCount(row[ColumnCases])
		if err != nil {
			errs = append(errs, core.NewInvalidValueError(i+1, s.Label, ColumnCases, err.Error()))
		}
		population, err := parseCount(row[ColumnPopulation])
		if err != nil {
			errs = append(errs, core.NewInvalidValueError(i+1, s.Label, ColumnPopulation, err.Error()))
		}

		s.Cases = cases
		s.Population = population
		studies = append(studies, s)
	}

	if err := stderrors.Join(errs...); err != nil {
		return nil, err
	}
	return studies, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if canonical, ok := columnAliases[h]; ok {
		return canonical
	}
	return h
}

func missingColumns(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	var missing []string
	for _, c := range RequiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// parseCount accepts integers, including integral floats such as "8.0".
func parseCount(s string) (int, error) {
	if s == "" {
		return 0, stderrors.New("is empty")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("is not a number: %q", s)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("is not a whole number: %q", s)
	}
	if math.Abs(f) > maxExactCount {
		return 0, fmt.Errorf("is out of range: %q", s)
	}
	return int(f), nil
}
