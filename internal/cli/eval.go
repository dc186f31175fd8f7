package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"compasseval/internal/config"
	"compasseval/internal/dataset"
	"compasseval/internal/logging"
	"compasseval/internal/runner"
	"compasseval/internal/store"
	"compasseval/internal/ui/live"
	"compasseval/internal/upload"
)

// startLiveUI is a test seam for the live UI controller.
var startLiveUI = func(stdout io.Writer, noColor bool, interrupt func()) liveController {
	return live.Start(stdout, live.Options{NoColor: noColor, OnInterrupt: interrupt})
}

// liveController is the part of the live UI the eval command drives.
type liveController interface {
	runner.RunObserver
	Close()
	Wait()
}

// uploadRegistry resolves upload providers by name.
var uploadRegistry = upload.DefaultRegistry

// evalFlags holds parsed eval command flags.
type evalFlags struct {
	configPath  string
	model       string
	threshold   float64
	concurrency int
	caseTimeout time.Duration
	outputDir   string
	store       string
	uiMode      string
	verbose     bool
	logPath     string
	noColor     bool
	upload      bool
	logLevel    string
}

// runEval builds the handler for the eval command.
func runEval(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		var opts evalFlags
		fs.StringVar(&opts.configPath, "config", "", "Path to config file (default: search for .compasseval.yml)")
		fs.StringVar(&opts.model, "model", "", "Model to evaluate (defaults to config default_model)")
		fs.Float64Var(&opts.threshold, "threshold", config.DefaultThreshold, "Minimum mean score to pass, between 0 and 1")
		fs.IntVar(&opts.concurrency, "concurrency", 0, "Cases evaluated at once (defaults to config)")
		fs.DurationVar(&opts.caseTimeout, "case-timeout", 0, "Per-case timeout, for example 90s (defaults to config)")
		fs.StringVar(&opts.outputDir, "output-dir", "", "Override output directory")
		fs.StringVar(&opts.store, "store", "", "DuckDB results store (defaults to config store.path)")
		fs.StringVar(&opts.uiMode, "ui", "auto", "Progress display: auto|live|plain")
		fs.BoolVar(&opts.verbose, "verbose", false, "Verbose logging")
		fs.StringVar(&opts.logPath, "log", "", "Write verbose logs to a file")
		fs.BoolVar(&opts.noColor, "no-color", false, "Disable ANSI colors in verbose logs")
		fs.BoolVar(&opts.upload, "upload", false, "Upload run artifacts with the configured upload provider")
		fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error")
		positional, code, ok := parseFlags(cmd, fs, args, stdout, stderr)
		if !ok {
			return code
		}
		if len(positional) != 1 {
			fmt.Fprintln(stderr, "Usage: compasseval eval <dataset.yml> [--model <id>]")
			return ExitUsage
		}
		datasetPath := positional[0]

		cfg, _, err := loadConfig(opts.configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
			return ExitError
		}
		if err := initLogging(cfg, opts.logLevel, stderr); err != nil {
			fmt.Fprintf(stderr, "Invalid log level: %v\n", err)
			return ExitUsage
		}

		model := strings.TrimSpace(opts.model)
		if model == "" {
			model = cfg.DefaultModel
		}
		if !cfg.HasModel(model) {
			fmt.Fprintf(stderr, "Unsupported model %q (expected one of: %s)\n", model, strings.Join(cfg.Models, ", "))
			return ExitUsage
		}

		threshold := cfg.ThresholdValue()
		if flagWasSet(fs, "threshold") {
			threshold = opts.threshold
		}
		if !(threshold >= 0 && threshold <= 1) {
			fmt.Fprintf(stderr, "Invalid threshold %v (expected a value between 0 and 1)\n", threshold)
			return ExitUsage
		}

		concurrency := cfg.Eval.Concurrency
		if flagWasSet(fs, "concurrency") {
			if opts.concurrency < 1 {
				fmt.Fprintln(stderr, "Invalid concurrency (expected at least 1)")
				return ExitUsage
			}
			concurrency = opts.concurrency
		}
		caseTimeout := time.Duration(cfg.Eval.CaseTimeoutSeconds) * time.Second
		if flagWasSet(fs, "case-timeout") {
			if opts.caseTimeout <= 0 {
				fmt.Fprintln(stderr, "Invalid case timeout (expected a positive duration)")
				return ExitUsage
			}
			caseTimeout = opts.caseTimeout
		}
		outputDir := cfg.Eval.OutputDir
		if strings.TrimSpace(opts.outputDir) != "" {
			outputDir = opts.outputDir
		}
		if opts.upload && cfg.Upload.Provider == "" {
			fmt.Fprintln(stderr, "--upload requires an upload section in the config")
			return ExitUsage
		}

		decision, err := resolveUIMode(opts.uiMode, opts.verbose, stdout)
		if err != nil {
			fmt.Fprintf(stderr, "Invalid ui mode: %v\n", err)
			return ExitUsage
		}
		if decision.warning != "" {
			fmt.Fprintln(stderr, decision.warning)
		}

		cases, err := dataset.LoadFile(datasetPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load dataset: %v\n", err)
			return ExitError
		}

		var logFile *os.File
		if strings.TrimSpace(opts.logPath) != "" {
			logFile, err = openLogFile(opts.logPath)
			if err != nil {
				fmt.Fprintf(stderr, "%v\n", err)
				return ExitError
			}
			defer func() { _ = logFile.Close() }()
		}
		var verboseWriter, verboseLogWriter io.Writer
		if opts.verbose {
			verboseWriter = stdout
		}
		if logFile != nil {
			verboseLogWriter = logFile
		}
		verboseWriter, verboseLogWriter = runner.WrapVerboseWriters(concurrency, verboseWriter, verboseLogWriter)

		ag, err := buildAgent(cfg, model, verboseOptions{
			Verbose:   opts.verbose,
			Writer:    verboseWriter,
			LogWriter: verboseLogWriter,
			NoColor:   opts.noColor,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Failed to build agent: %v\n", err)
			return ExitError
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		logger := logging.New("eval")
		var observer runner.RunObserver
		var controller liveController
		if decision.useLive {
			controller = startLiveUI(stdout, opts.noColor, cancel)
			observer = controller
		} else if !opts.verbose {
			observer = newPlainObserver(stdout)
		}

		results, paths, runErr := runner.RunAndWrite(ctx, runner.RunParams{
			DatasetPath: datasetPath,
			Cases:       cases,
			Model:       model,
			Agent:       ag,
			Eval: runner.EvalOptions{
				Concurrency: concurrency,
				CaseTimeout: caseTimeout,
				Threshold:   threshold,
				Observer:    observer,
				Logger:      logger,
			},
			OutputDir: outputDir,
		})
		if controller != nil {
			controller.Close()
			controller.Wait()
		}

		exitCode := ExitOK
		if results.RunID == "" {
			fmt.Fprintf(stderr, "Eval failed: %v\n", runErr)
			return ExitError
		}

		if err := runner.WriteFailures(stdout, results.Report); err != nil {
			fmt.Fprintf(stderr, "Failed to write failures: %v\n", err)
			exitCode = ExitError
		}
		if runErr != nil {
			fmt.Fprintf(stderr, "Eval interrupted: %v\n", runErr)
			exitCode = ExitError
		}
		if paths.RunID != "" {
			fmt.Fprintf(stdout, "Results: %s\n", paths.ResultsPath())
			fmt.Fprintf(stdout, "Report: %s\n", paths.ReportPath())
		}

		if path := storePath(opts.store, cfg); path != "" {
			if err := recordResults(context.WithoutCancel(ctx), path, cases, results); err != nil {
				fmt.Fprintf(stderr, "Failed to record run: %v\n", err)
				exitCode = ExitError
			} else {
				logger.Info("run recorded", slog.String("store", path), slog.String("run_id", results.RunID))
			}
		}

		if opts.upload && paths.RunID != "" {
			uploaded, err := uploadResults(context.WithoutCancel(ctx), cfg.Upload, paths)
			if err != nil {
				fmt.Fprintf(stderr, "Upload failed: %v\n", err)
				exitCode = ExitError
			}
			for _, remote := range uploaded {
				fmt.Fprintf(stdout, "Uploaded: %s\n", remote)
			}
		}

		if runErr != nil {
			return exitCode
		}
		if err := runner.WriteVerdict(stdout, results.Report); err != nil {
			return ExitError
		}
		if results.Report.Err() != nil {
			return ExitError
		}
		return exitCode
	}
}

// recordResults upserts the dataset and stores the run in the DuckDB registry.
func recordResults(ctx context.Context, path string, cases []dataset.Case, results runner.Results) error {
	db, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	record, err := store.UpsertDataset(ctx, db, results.DatasetName, results.Dataset, dataset.Description, cases)
	if err != nil {
		return err
	}
	return store.RecordRun(ctx, db, record.ID, results)
}

// uploadResults sends the run artifacts to the configured object store.
func uploadResults(ctx context.Context, cfg config.UploadConfig, paths runner.OutputPaths) ([]string, error) {
	provider, err := uploadRegistry().New(cfg.Provider)
	if err != nil {
		return nil, err
	}
	settings, err := upload.SettingsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := provider.Configure(ctx, settings); err != nil {
		return nil, fmt.Errorf("configure %s: %w", provider.Name(), err)
	}
	uploaded, err := upload.UploadRun(ctx, provider, paths)
	if err != nil {
		return uploaded, fmt.Errorf("upload to %s: %w", provider.Name(), err)
	}
	return uploaded, nil
}
