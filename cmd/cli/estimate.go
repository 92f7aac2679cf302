package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"birthprev/adapters/excel"
	"birthprev/app"
	"birthprev/domain/study"
	"birthprev/internal/errors"
	"birthprev/ports"
	"birthprev/internal/prompt"
	"birthprev/internal/report"
)

func newEstimateCmd(c *cli) *cobra.Command {
	var flags estimateFlags
	var input, output, reportPath string
	var noPrompt bool

	cmd := &cobra.Command{
		Use:   "estimate [input] [output]",
		Short: "Estimate pooled birth prevalence for one study file",
		Long: `Read a study file (csv, xlsx or json) with the columns "author and year",
"case" and "population", run the confidence interval, weighted average,
inverse variance and heterogeneity stages, and write the results.

Output ending in .xlsx gets a workbook with Results and Summary sheets;
anything else gets CSV. Without an output path and with --no-prompt the CSV
goes to stdout.

With --report a markdown summary of the run is written as well.

Example: birthprev estimate studies.csv results.csv --distribution normal`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				input = args[0]
			}
			if len(args) > 1 {
				output = args[1]
			}
			opts, err := flags.options()
			if err != nil {
				return err
			}
			return c.runEstimate(cmd, flags, opts, input, output, reportPath, noPrompt)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input study file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (.csv or .xlsx)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Also write a markdown report to this file")
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "Fail instead of asking for missing or unreadable paths")

	return cmd
}

func (c *cli) runEstimate(cmd *cobra.Command, flags estimateFlags, opts app.EstimateOptions, input, output, reportPath string, noPrompt bool) error {
	reader := flags.reader(c.logger)

	var studies []study.Study
	var err error
	if input == "" {
		err = fmt.Errorf("no input file given")
	} else {
		studies, err = loadStudies(reader, input)
	}
	if err != nil {
		if noPrompt {
			return err
		}
		if input != "" {
			fmt.Fprintln(c.errOut, errorStyle.Render(err.Error()))
		}
		// The validator keeps the studies of the accepted file.
		input, err = prompt.Run(c.in, c.errOut, "Path to the study file (csv, xlsx or json)", "studies.csv", func(path string) error {
			read, readErr := loadStudies(reader, path)
			if readErr != nil {
				return readErr
			}
			studies = read
			return nil
		})
		if err != nil {
			return err
		}
	}

	est, err := c.service.Estimate(cmd.Context(), studies, opts)
	if err != nil {
		return err
	}

	writer := flags.writer()
	if output == "" && !noPrompt {
		fallback := defaultOutput(input)
		output, err = prompt.Run(c.in, c.errOut, "Path for the results (enter for "+fallback+")", fallback, validateOutput)
		if err != nil {
			return err
		}
		if output == "" {
			output = fallback
		}
	}

	if output == "" {
		if err := writer.WriteCSV(c.out, est.Table); err != nil {
			return err
		}
		fmt.Fprint(c.errOut, renderSummary(est))
		return writeReport(reportPath, est)
	}

	if err := writer.WriteFile(output, est.Table); err != nil {
		return err
	}
	if err := writeReport(reportPath, est); err != nil {
		return err
	}
	fmt.Fprint(c.out, renderSummary(est))
	fmt.Fprintln(c.out, okStyle.Render("results written to "+output))
	return nil
}

// loadStudies reads a study file and rejects values the pipeline would
// refuse, so the prompt can ask again before anything runs.
func loadStudies(reader ports.StudyReaderPort, path string) ([]study.Study, error) {
	studies, err := reader.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := study.ValidateStudies(studies); err != nil {
		return nil, errors.Wrapf(err, "invalid studies in %s", path)
	}
	return studies, nil
}

// writeReport is a no-op without a path; results are written first.
func writeReport(path string, est *app.Estimate) error {
	if path == "" {
		return nil
	}
	err := excel.WriteFileAtomic(path, func(out io.Writer) error {
		_, err := out.Write(report.Markdown(est))
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "failed to write report %s", path)
	}
	return nil
}

func defaultOutput(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_results.csv"
}

// validateOutput accepts an empty path (the default) or a .csv/.xlsx path in
// an existing directory.
func validateOutput(path string) error {
	if path == "" {
		return nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx":
	default:
		return fmt.Errorf("output must end in .csv or .xlsx")
	}
	info, err := os.Stat(filepath.Dir(path))
	if err != nil || !info.IsDir() {
		return fmt.Errorf("directory %s does not exist", filepath.Dir(path))
	}
	return nil
}
