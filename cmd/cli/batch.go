package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"birthprev/app"
)

func newBatchCmd(c *cli) *cobra.Command {
	var flags estimateFlags
	var outDir, format string
	var concurrency int64

	cmd := &cobra.Command{
		Use:   "batch --out-dir DIR inputs...",
		Short: "Estimate several study files concurrently",
		Long: `Run every input file through the estimation pipeline independently and
write <name>_results.<format> into the output directory. A failing file is
reported and does not stop the others.

Example: birthprev batch --out-dir results registry/*.csv --concurrency 8`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			format = strings.TrimPrefix(strings.ToLower(format), ".")
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("--format must be csv or xlsx")
			}
			if concurrency > 0 {
				c.deps.Config.Batch.Concurrency = concurrency
			}

			batch := c.deps.Batch(flags.readerConfig(), flags.writerConfig())
			outcomes := batch.Run(cmd.Context(), batchJobs(args, outDir, format), opts)

			failed := 0
			for _, o := range outcomes {
				if o.Err != nil {
					failed++
					fmt.Fprintln(c.out, errorStyle.Render("FAIL "+o.Job.Input+": "+o.Err.Error()))
					continue
				}
				sum := o.Estimate.Summary()
				fmt.Fprintln(c.out, okStyle.Render("ok   "+o.Job.Input+" -> "+o.Job.Output)+
					labelStyle.Render(fmt.Sprintf("  pooled %.4f per 100k, I2 %.3f", sum.PooledPrevalenceInversePer100k, sum.I2Statistic)))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(outcomes))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for result files")
	cmd.Flags().StringVar(&format, "format", "csv", "Result format: csv or xlsx")
	cmd.Flags().Int64Var(&concurrency, "concurrency", 0, "Files estimated at once (default from BATCH_CONCURRENCY)")
	_ = cmd.MarkFlagRequired("out-dir")

	return cmd
}

// batchJobs maps each input to <out-dir>/<name>_results.<format>. Inputs that
// share a base name get _2, _3, ... so no two jobs write the same file.
func batchJobs(inputs []string, outDir, format string) []app.BatchJob {
	jobs := make([]app.BatchJob, len(inputs))
	used := make(map[string]bool, len(inputs))
	for i, input := range inputs {
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		name := base
		for n := 2; used[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		used[strings.ToLower(name)] = true
		jobs[i] = app.BatchJob{Input: input, Output: filepath.Join(outDir, name+"_results."+format)}
	}
	return jobs
}
