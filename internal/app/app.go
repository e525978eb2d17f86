// Package app wires configuration, the model client and the spreadsheet
// pipeline behind the partcat command line.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"partcat/internal/classify"
	"partcat/internal/config"
	"partcat/internal/domain"
	"partcat/internal/fallback"
	"partcat/internal/httpx"
	"partcat/internal/integrations/llm"
	slacknotify "partcat/internal/integrations/slack"
	"partcat/internal/metrics"
	"partcat/internal/pipeline"
	"partcat/internal/storage/sqlite"
)

// Main runs the command line with the process arguments and returns the
// exit code.
func Main(version string) int {
	return Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, version)
}

// Run executes one command line. Errors are printed as "Error: <msg>" on
// stderr and turn into exit code 1.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer, version string) int {
	cmd := newRootCommand(stdout, stderr, version)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newLogger(w io.Writer, level string, debug bool) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if debug {
		lvl = slog.LevelDebug
	}
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isTerminal(f)
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}))
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func newCompleter(cfg config.Config) llm.Completer {
	switch cfg.LLMProvider {
	case llm.ProviderAnthropic:
		return llm.NewAnthropic(llm.AnthropicOptions{
			APIKey:     cfg.AnthropicAPIKey,
			Model:      cfg.LLMModel,
			MaxTokens:  cfg.MaxCompletionTokens,
			HTTPClient: httpx.ExternalHTTPClient(),
		})
	default:
		return llm.NewOpenAI(llm.OpenAIOptions{
			APIKey:              cfg.OpenAIAPIKey,
			Model:               cfg.LLMModel,
			BaseURL:             cfg.OpenAIBaseURL,
			MaxCompletionTokens: cfg.MaxCompletionTokens,
			HTTPClient:          httpx.ExternalHTTPClient(),
		})
	}
}

func loadKeywords(path string) (*fallback.Classifier, error) {
	if path == "" {
		return fallback.Default(), nil
	}
	g, err := fallback.LoadGlossary(path)
	if err != nil {
		return nil, err
	}
	return fallback.New(g), nil
}

// classifySheet runs the pipeline for cfg and prints the status lines to
// stdout. History and Slack failures are logged and never fail the run.
func classifySheet(ctx context.Context, cfg config.Config, stdout io.Writer, logger *slog.Logger) error {
	timeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	logger.Info("config loaded",
		"provider", cfg.LLMProvider,
		"model", cfg.LLMModel,
		"mode", cfg.Mode(),
		"batch_size", cfg.BatchSize,
		"retries", cfg.Retries,
		"autosave_every", cfg.AutosaveEveryBatches,
		"http_timeout", timeout,
	)

	keywords, err := loadKeywords(cfg.KeywordGlossaryPath)
	if err != nil {
		return err
	}

	client := llm.NewClient(newCompleter(cfg), logger)
	var runMetrics *metrics.Run
	if cfg.MetricsTextfilePath != "" {
		runMetrics = metrics.NewRun()
		client.OnRequest(runMetrics.RequestObserver(client.Provider()))
	}
	driver := classify.Driver{
		MaxRetries:  cfg.Retries,
		BackoffBase: time.Duration(cfg.RetryBaseSleep * float64(time.Second)),
		Logger:      logger,
	}
	p := pipeline.New(pipeline.Options{
		InputPath:       cfg.InputPath,
		OutputPath:      cfg.OutputPath,
		Sheet:           cfg.Sheet,
		Mode:            cfg.Mode(),
		BatchSize:       cfg.BatchSize,
		CheckpointEvery: cfg.AutosaveEveryBatches,
		Limit:           cfg.Limit,
	}, client, driver, keywords, logger)

	recorder, closeHistory := openHistory(cfg, logger)
	defer closeHistory()
	if recorder != nil {
		p.WithRecorder(recorder)
	}

	started := time.Now()
	summary, runErr := p.Run(ctx)
	if recorder != nil {
		if err := recorder.Finish(summary.Pending, summary.Fallbacks); err != nil {
			logger.Warn("history finish failed", "run_id", recorder.RunID(), "error", err)
		}
	}
	if runMetrics != nil {
		finished := time.Now()
		runMetrics.ObserveSummary(summary, finished.Sub(started), finished)
		if err := runMetrics.WriteTextfile(cfg.MetricsTextfilePath); err != nil {
			logger.Warn("metrics write failed", "path", cfg.MetricsTextfilePath, "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	printSummary(stdout, summary, client)

	if cfg.SlackConfigured() {
		notifier := slacknotify.New(cfg.SlackBotToken, cfg.ReportChannelID, httpx.ExternalHTTPClient())
		err := notifier.PostRunSummary(ctx, slacknotify.RunReport{
			InputPath: cfg.InputPath,
			Provider:  client.Provider(),
			Model:     client.Model(),
			Summary:   summary,
			Usage:     client.Usage(),
			Elapsed:   time.Since(started),
		})
		if err != nil {
			logger.Warn("slack summary failed", "channel", cfg.ReportChannelID, "error", err)
		}
	}
	return nil
}

// openHistory returns nil when history is disabled or unavailable.
func openHistory(cfg config.Config, logger *slog.Logger) (*sqlite.Recorder, func()) {
	noop := func() {}
	if cfg.HistoryDBPath == "" {
		return nil, noop
	}
	db, err := sqlite.InitDB(cfg.HistoryDBPath)
	if err != nil {
		logger.Warn("history disabled", "path", cfg.HistoryDBPath, "error", err)
		return nil, noop
	}
	recorder, err := sqlite.StartRun(db, domain.RunRecord{
		InputPath:  cfg.InputPath,
		OutputPath: cfg.OutputPath,
		Sheet:      cfg.Sheet,
		Mode:       cfg.Mode(),
		Provider:   cfg.LLMProvider,
		Model:      cfg.LLMModel,
	})
	if err != nil {
		logger.Warn("history disabled", "path", cfg.HistoryDBPath, "error", err)
		_ = db.Close()
		return nil, noop
	}
	logger.Debug("history run started", "run_id", recorder.RunID(), "path", cfg.HistoryDBPath)
	return recorder, func() { _ = db.Close() }
}

func printSummary(w io.Writer, s pipeline.Summary, client *llm.Client) {
	if s.Resumed {
		fmt.Fprintf(w, "Resuming from existing output: %s\n", s.OutputPath)
	}
	if s.AlreadyDone > 0 {
		fmt.Fprintf(w, "Rows already classified (skipped): %d\n", s.AlreadyDone)
	}
	fmt.Fprintln(w, s.StatusLine())
	if client.Calls() > 0 {
		u := client.Usage()
		fmt.Fprintf(w, "LLM usage: %d calls, %d input tokens, %d output tokens\n", client.Calls(), u.InputTokens, u.OutputTokens)
	}
}
