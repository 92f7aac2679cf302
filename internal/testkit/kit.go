package testkit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"birthprev/domain/study"
)

// ReferenceStudies is the eight-study dataset of the reference spreadsheet
// example. It doubles as the CLI's sample input.
func ReferenceStudies() []study.Study {
	return []study.Study{
		{Label: "Poupetova, 2010", Cases: 8, Population: 3362889},
		{Label: "Dionisi-Vici, 2002", Cases: 22, Population: 7173959},
		{Label: "Poorthuis, 1999", Cases: 30, Population: 7358444},
		{Label: "Hult, 2014", Cases: 10, Population: 2080791},
		{Label: "Czatoryska, 1993", Cases: 11, Population: 11951872},
		{Label: "Smith, 2011", Cases: 33, Population: 15192000},
		{Label: "Applegarth, 1999", Cases: 3, Population: 1035816},
		{Label: "Chin, 2022", Cases: 13, Population: 3693759},
	}
}

// Reference results for ReferenceStudies, per 100k.
const (
	ReferenceAveragePrevalence = 0.2507255128445716
	ReferenceAverageCILower    = 0.1407920187511825
	ReferenceAverageCIUpper    = 0.37608826926685734
	ReferencePooledPrevalence  = 0.18938431844705148
	ReferencePooledCILower     = 0.1519254095935615
	ReferencePooledCIUpper     = 0.22684322730054146
	ReferenceQStatistic        = 31.805267905131274
	ReferenceI2Statistic       = 0.7799106732608072
)

// EqualStudies returns n identical copies of one study.
func EqualStudies(n, cases, population int) []study.Study {
	out := make([]study.Study, n)
	for i := range out {
		out[i] = study.Study{Label: fmt.Sprintf("Study %d", i+1), Cases: cases, Population: population}
	}
	return out
}

// CSV renders studies with the required input header.
func CSV(studies []study.Study) string {
	var b strings.Builder
	b.WriteString("author and year,case,population\n")
	for _, s := range studies {
		fmt.Fprintf(&b, "%q,%d,%d\n", s.Label, s.Cases, s.Population)
	}
	return b.String()
}

// WriteFile writes content to name inside a fresh temp directory and returns the path.
func WriteFile(tb testing.TB, name, content string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}
