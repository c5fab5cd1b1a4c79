package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"famreg/pkg/config"
	"famreg/pkg/data"
	"famreg/pkg/dataprep"
	"famreg/pkg/logging"
	"famreg/pkg/pipeline"
	"famreg/pkg/report"
)

type rootOptions struct {
	logLevel string
	logJSON  bool
}

type runOptions struct {
	data        string
	configPath  string
	out         string
	families    []string
	dropInvalid bool
	parallel    bool
	cvFolds     int
	noPlots     bool
}

func newRootCmd() *cobra.Command {
	var ro rootOptions
	rootCmd := &cobra.Command{
		Use:           "famreport",
		Short:         "Compare Poisson, Gamma and Weibull models of family size",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&ro.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&ro.logJSON, "log-json", false, "Write logs as JSON")

	rootCmd.AddCommand(newRunCmd(&ro), newSummaryCmd(&ro))
	return rootCmd
}

// logger applies the global flags on top of the config's log section.
func (ro *rootOptions) logger(cmd *cobra.Command, cfg config.Config) (*logging.Logger, error) {
	lc := cfg.Logging()
	if ro.logLevel != "" {
		lvl, err := logging.ParseLevel(ro.logLevel)
		if err != nil {
			return nil, err
		}
		lc.Level = lvl
	}
	if cmd.Flags().Changed("log-json") {
		lc.JSON = ro.logJSON
	}
	lc.Output = cmd.ErrOrStderr()
	return logging.New(lc), nil
}

func newRunCmd(ro *rootOptions) *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fit every model family and write the comparison report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config(cmd)
			if err != nil {
				return err
			}
			log, err := ro.logger(cmd, cfg)
			if err != nil {
				return err
			}
			if err := runReport(cmd, cfg, log); err != nil {
				log.Error("run failed", "error", err)
				return err
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.data, "data", "", "CSV file with children, ageMarried, literacy and monthsSinceM")
	f.StringVar(&o.configPath, "config", "", "YAML config file")
	f.StringVar(&o.out, "out", "", "Directory for CSV and PNG output")
	f.StringSliceVar(&o.families, "families", nil, "Model families to fit (poisson,gamma,weibull)")
	f.BoolVar(&o.dropInvalid, "drop-invalid", false, "Drop rows that fail coercion instead of aborting")
	f.BoolVar(&o.parallel, "parallel", false, "Fit the families concurrently")
	f.IntVar(&o.cvFolds, "cv-folds", 0, "Cross-validation folds (0 disables)")
	f.BoolVar(&o.noPlots, "no-plots", false, "Skip PNG plots")
	return cmd
}

// config loads the file, if any, and lets explicitly set flags win.
func (o *runOptions) config(cmd *cobra.Command) (config.Config, error) {
	cfg := config.DefaultConfig()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.Data = o.data
	}
	if flags.Changed("out") {
		cfg.OutputDir = o.out
	}
	if flags.Changed("families") {
		cfg.Families = o.families
	}
	if flags.Changed("drop-invalid") && o.dropInvalid {
		cfg.CoercionPolicy = dataprep.PolicyDrop.String()
	}
	if flags.Changed("parallel") {
		cfg.Parallel = o.parallel
	}
	if flags.Changed("cv-folds") {
		cfg.CVFolds = o.cvFolds
	}
	if flags.Changed("no-plots") {
		cfg.Plots = !o.noPlots
	}
	if strings.TrimSpace(cfg.Data) == "" {
		return cfg, fmt.Errorf("no data file: pass --data or set data in the config")
	}
	return cfg, cfg.Validate()
}

func runReport(cmd *cobra.Command, cfg config.Config, log *logging.Logger) error {
	tbl, err := data.LoadFile(cfg.Data)
	if err != nil {
		return err
	}
	log.Info("data loaded", "source", cfg.Data, "rows", tbl.Len())

	p, err := pipeline.New(cfg, log)
	if err != nil {
		return err
	}
	res, err := p.Run(cmd.Context(), tbl)
	if err != nil {
		return err
	}
	rep := report.New(cfg.OutputDir,
		report.WithPlots(cfg.Plots),
		report.WithWriter(cmd.OutOrStdout()),
		report.WithLogger(log.With("run_id", res.RunID)),
	)
	_, err = rep.Write(res)
	return err
}

func newSummaryCmd(ro *rootOptions) *cobra.Command {
	var (
		path        string
		dropInvalid bool
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Describe the columns of the derived dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := ro.logger(cmd, config.DefaultConfig())
			if err != nil {
				return err
			}
			tbl, err := data.LoadFile(path)
			if err != nil {
				return err
			}
			policy := dataprep.PolicyAbort
			if dropInvalid {
				policy = dataprep.PolicyDrop
			}
			derived, err := dataprep.Derive(tbl, dataprep.WithPolicy(policy))
			if err != nil {
				log.Error("summary failed", "error", err)
				return err
			}
			if n := len(derived.Dropped); n > 0 {
				log.Warn("rows dropped", "count", n)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), report.SummaryTable(derived.Dataset))
			return err
		},
	}
	cmd.Flags().StringVar(&path, "data", "", "CSV file to summarise")
	cmd.Flags().BoolVar(&dropInvalid, "drop-invalid", false, "Drop rows that fail coercion instead of aborting")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}
