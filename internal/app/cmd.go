package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"partcat/internal/config"
	"partcat/internal/fallback"
)

type rootFlags struct {
	configPath string
	debug      bool

	input        string
	output       string
	sheet        string
	bodyworkOnly bool

	batchSize            int
	retries              int
	retryBaseSleep       float64
	maxCompletionTokens  int
	autosaveEveryBatches int
	limit                int

	provider     string
	model        string
	historyDB    string
	metricsFile  string
	glossaryPath string
}

func newRootCommand(stdout, stderr io.Writer, version string) *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:           "partcat",
		Short:         "Classify automotive spare parts in an xlsx workbook",
		Long:          "partcat adds a category column (or an es_carroceria SI/NO column) to a spare-parts workbook using a language model, with keyword fallback for rows the model cannot resolve.",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}
			logger := newLogger(stderr, cfg.LogLevel, f.debug)
			return classifySheet(cmd.Context(), cfg, stdout, logger)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (default $CONFIG_PATH or ./"+config.DefaultConfigFile+")")
	pf.BoolVar(&f.debug, "debug", false, "enable debug logging")
	pf.StringVar(&f.glossaryPath, "glossary", "", "keyword glossary YAML file")

	fl := cmd.Flags()
	fl.StringVar(&f.input, "input", "", "input xlsx workbook (required)")
	fl.StringVar(&f.output, "output", "", "output workbook (default <input>_categorizado.xlsx or <input>_carroceria.xlsx)")
	fl.StringVar(&f.sheet, "sheet", "", "worksheet name (default: active sheet)")
	fl.BoolVar(&f.bodyworkOnly, "carroceria-only", false, "only flag bodywork parts in an es_carroceria SI/NO column")
	fl.IntVar(&f.batchSize, "batch-size", 40, "rows per model request")
	fl.IntVar(&f.retries, "retries", 4, "attempts per batch before splitting it")
	fl.Float64Var(&f.retryBaseSleep, "retry-base-sleep", 1.5, "base wait in seconds between attempts")
	fl.IntVar(&f.maxCompletionTokens, "max-completion-tokens", 2600, "completion token cap per request (>= 200)")
	fl.IntVar(&f.autosaveEveryBatches, "autosave-every-batches", 3, "save progress every N batches (0 disables)")
	fl.IntVar(&f.limit, "limit", 0, "process at most N pending rows (0 means all)")
	fl.StringVar(&f.provider, "provider", "", "model provider: openai or anthropic")
	fl.StringVar(&f.model, "model", "", "model name")
	fl.StringVar(&f.historyDB, "history-db", "", "SQLite file for the classification history")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write run metrics to this Prometheus textfile")

	cmd.AddCommand(newGlossaryCommand(stdout, &f))
	return cmd
}

// resolveConfig layers explicitly set flags over the file and environment.
func resolveConfig(cmd *cobra.Command, f rootFlags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("input") {
		cfg.InputPath = f.input
	}
	if changed("output") {
		cfg.OutputPath = f.output
	}
	if changed("sheet") {
		cfg.Sheet = f.sheet
	}
	if changed("carroceria-only") {
		cfg.BodyworkOnly = f.bodyworkOnly
	}
	if changed("batch-size") {
		cfg.BatchSize = f.batchSize
	}
	if changed("retries") {
		cfg.Retries = f.retries
	}
	if changed("retry-base-sleep") {
		cfg.RetryBaseSleep = f.retryBaseSleep
	}
	if changed("max-completion-tokens") {
		cfg.MaxCompletionTokens = f.maxCompletionTokens
	}
	if changed("autosave-every-batches") {
		cfg.AutosaveEveryBatches = f.autosaveEveryBatches
	}
	if changed("limit") {
		cfg.Limit = f.limit
	}
	if changed("provider") {
		cfg.LLMProvider = f.provider
	}
	if changed("model") {
		cfg.LLMModel = f.model
	}
	if changed("history-db") {
		cfg.HistoryDBPath = f.historyDB
	}
	if changed("metrics-file") {
		cfg.MetricsTextfilePath = f.metricsFile
	}
	if changed("glossary") {
		cfg.KeywordGlossaryPath = f.glossaryPath
	}
	if f.debug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newGlossaryCommand(stdout io.Writer, f *rootFlags) *cobra.Command {
	glossary := &cobra.Command{
		Use:   "glossary",
		Short: "Manage the keyword glossary used for fallback classification",
	}
	glossary.AddCommand(&cobra.Command{
		Use:   "add PHRASE CATEGORY",
		Short: "Add a keyword phrase for a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := f.glossaryPath
			if path == "" {
				cfg, err := config.Load(f.configPath)
				if err != nil {
					return err
				}
				path = cfg.KeywordGlossaryPath
			}
			if path == "" {
				return fmt.Errorf("%w: no glossary path (use --glossary or keyword_glossary_path)", config.ErrInvalidConfig)
			}
			if err := fallback.AppendGlossaryTerm(path, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Glossary updated: %s\n", path)
			return nil
		},
	})
	return glossary
}
