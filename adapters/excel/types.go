package excel

// Column names of a study input. Headers match after trimming and
// lower-casing.
const (
	ColumnLabel      = "author and year"
	ColumnCases      = "case"
	ColumnPopulation = "population"
)

// RequiredColumns lists the columns every input must carry, in report order.
var RequiredColumns = []string{ColumnLabel, ColumnCases, ColumnPopulation}

// columnAliases maps the JSON field names of the API onto the input columns.
var columnAliases = map[string]string{
	"label": ColumnLabel,
	"cases": ColumnCases,
}

// RawRowData represents one input row as column name to trimmed cell text
type RawRowData map[string]string

// ExcelData represents a parsed input before conversion to studies
type ExcelData struct {
	Headers []string     // normalized column headers
	Rows    []RawRowData // non-blank data rows
}
