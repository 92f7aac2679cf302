package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"birthprev/adapters/excel"
	"birthprev/app"
	"birthprev/domain/study"
	"birthprev/internal"
	"birthprev/internal/config"
	"birthprev/internal/container"
	"birthprev/internal/prompt"
)

func main() {
	err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute()
	if err == nil || stderrors.Is(err, prompt.ErrCancelled) {
		return
	}
	fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
	os.Exit(1)
}

// cli holds what every command needs once configuration is loaded.
type cli struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	deps    *container.Container
	logger  *internal.Logger
	service *app.EstimationService
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	c := &cli{in: in, out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:           "birthprev",
		Short:         "Pooled birth prevalence estimates from per-study case counts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				c.logger.Sync()
			}
		},
	}

	rootCmd.AddCommand(
		newEstimateCmd(c),
		newBatchCmd(c),
		newSampleCmd(c),
	)
	return rootCmd
}

func (c *cli) setup() error {
	cfg, _, err := config.LoadWithDotenv()
	if err != nil {
		return err
	}
	// The CLI exits after one run, so there is nothing to scrape.
	cfg.Metrics.Enabled = false

	deps, err := container.New(cfg)
	if err != nil {
		return err
	}
	c.deps = deps
	c.logger = deps.Logger
	c.service = deps.Service
	return nil
}

// estimateFlags are shared by estimate and batch.
type estimateFlags struct {
	distribution string
	policy       string
	detailed     bool
	sheet        string
	jsonPath     string
}

func (f *estimateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.distribution, "distribution", "", "Per-study interval: poisson or normal (default from DISTRIBUTION)")
	cmd.Flags().StringVar(&f.policy, "degenerate-policy", "", "Zero-variance studies: error or exclude (default from DEGENERATE_POLICY)")
	cmd.Flags().BoolVar(&f.detailed, "detailed", false, "Append every intermediate column to the output")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "Sheet to read from xlsx input (default first sheet)")
	cmd.Flags().StringVar(&f.jsonPath, "json-path", "", "gjson path of the study array in JSON input (default root)")
}

func (f *estimateFlags) options() (app.EstimateOptions, error) {
	var opts app.EstimateOptions
	var err error
	if f.distribution != "" {
		if opts.Distribution, err = study.ParseDistribution(f.distribution); err != nil {
			return opts, err
		}
	}
	if f.policy != "" {
		if opts.Policy, err = study.ParseDegeneratePolicy(f.policy); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func (f *estimateFlags) readerConfig() excel.ReaderConfig {
	return excel.ReaderConfig{Sheet: f.sheet, JSONPath: f.jsonPath}
}

func (f *estimateFlags) writerConfig() excel.WriterConfig {
	return excel.WriterConfig{Detailed: f.detailed}
}

func (f *estimateFlags) reader(logger *internal.Logger) *excel.DataReader {
	return excel.NewDataReader(f.readerConfig(), logger)
}

func (f *estimateFlags) writer() *excel.ResultWriter {
	return excel.NewResultWriter(f.writerConfig())
}
