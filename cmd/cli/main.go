package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gaitspec/adapters/specdoc"
	"gaitspec/adapters/tables"
	"gaitspec/internal"
	"gaitspec/internal/comparator"
	"gaitspec/internal/config"
	"gaitspec/internal/resampler"
	"gaitspec/internal/segmenter"
	"gaitspec/internal/specstore"
	"gaitspec/internal/tuner"
	"gaitspec/internal/validator"
	"gaitspec/ports"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gaitspec-cli",
		Short: "Batch stride validation, spec tuning and dataset comparison",
	}

	rootCmd.AddCommand(
		newValidateCmd(),
		newCompareCmd(),
		newProposeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// engine bundles the wired components the subcommands share
type engine struct {
	store      *specstore.Store
	validator  *validator.Validator
	tuner      *tuner.Tuner
	comparator *comparator.Comparator
	reader     *tables.Reader
}

func buildEngine() (*engine, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := internal.DefaultLogger

	loader := specdoc.NewLoader()
	doc, err := loader.LoadSeed(cfg.Paths.SpecSeedFile)
	if err != nil {
		return nil, err
	}
	ranges, err := specdoc.ToRanges(doc)
	if err != nil {
		return nil, err
	}
	store, err := specstore.New(ranges, doc.Rationale, nil, logger)
	if err != nil {
		return nil, err
	}

	seg := segmenter.NewSegmenter(cfg.Engine.ForceThresholdN, logger)
	res := resampler.NewResampler(cfg.Engine.ResamplePoints)
	val := validator.NewValidator(seg, res, cfg.Engine.WorkerCapacity, logger)

	return &engine{
		store:      store,
		validator:  val,
		tuner:      tuner.NewTuner(store, val, cfg.Engine.MinSampleSize, logger),
		comparator: comparator.NewComparator(val, logger),
		reader:     tables.NewReader(cfg.Engine.ResamplePoints, logger),
	}, nil
}

func (e *engine) loadDatasets(ctx context.Context, paths []string) ([]*ports.Dataset, error) {
	datasets := make([]*ports.Dataset, 0, len(paths))
	for _, path := range paths {
		ds, err := e.reader.ReadDataset(ctx, path)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dataset-files...]",
		Short: "Validate datasets against the live range specification",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			datasets, err := eng.loadDatasets(cmd.Context(), args)
			if err != nil {
				return err
			}

			results, err := eng.validator.ValidateBatch(cmd.Context(), datasets, eng.store.Snapshot())
			if err != nil {
				return err
			}
			return printJSON(results)
		},
	}
}

func newCompareCmd() *cobra.Command {
	var test string
	var alpha float64

	cmd := &cobra.Command{
		Use:   "compare [dataset-files...]",
		Short: "Statistically compare two or more datasets",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			datasets, err := eng.loadDatasets(cmd.Context(), args)
			if err != nil {
				return err
			}

			result, err := eng.comparator.Compare(cmd.Context(), datasets, comparator.Config{
				Test:  comparator.TestKind(test),
				Alpha: alpha,
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().StringVar(&test, "test", "auto", "significance test: welch_ttest, anova or auto")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.05, "significance threshold")
	return cmd
}

func newProposeCmd() *cobra.Command {
	var method string
	var holdout []string

	cmd := &cobra.Command{
		Use:   "propose [reference-files...]",
		Short: "Stage automated range proposals from reference datasets",
		Long: `Estimate fresh validation ranges from reference data and print the staged
change set plus, when holdout datasets are given, the predicted pass-rate
impact. Nothing is committed; commits go through the HTTP API.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine()
			if err != nil {
				return err
			}
			refs, err := eng.loadDatasets(cmd.Context(), args)
			if err != nil {
				return err
			}

			cs, err := eng.tuner.ProposeAutomated(cmd.Context(), refs, tuner.Method(method))
			if err != nil {
				return err
			}
			if len(holdout) == 0 {
				return printJSON(cs)
			}

			holdouts, err := eng.loadDatasets(cmd.Context(), holdout)
			if err != nil {
				return err
			}
			preview, err := eng.tuner.PreviewImpact(cmd.Context(), cs, holdouts)
			if err != nil {
				return err
			}
			return printJSON(preview)
		},
	}

	cmd.Flags().StringVar(&method, "method", "percentile_95", "estimation method")
	cmd.Flags().StringSliceVar(&holdout, "holdout", nil, "holdout dataset files for impact preview")
	return cmd
}
