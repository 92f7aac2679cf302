package excel

// ReaderConfig holds options for reading study inputs
type ReaderConfig struct {
	// Sheet is the xlsx sheet to read; empty means the first sheet.
	Sheet string `json:"sheet"`
	// JSONPath is the gjson path of the study array; empty means the document root.
	JSONPath string `json:"json_path"`
}

// WriterConfig holds options for writing results
type WriterConfig struct {
	// Detailed appends every intermediate column to the output.
	Detailed bool `json:"detailed"`
}

// DefaultReaderConfig returns the reader defaults
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{}
}
