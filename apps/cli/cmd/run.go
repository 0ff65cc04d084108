package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/chlorine/packages/core/config"
	"github.com/abdul-hamid-achik/chlorine/packages/core/runner"
	"github.com/abdul-hamid-achik/chlorine/packages/history"
	"github.com/abdul-hamid-achik/chlorine/packages/logging"
	"github.com/abdul-hamid-achik/chlorine/packages/metrics"
	"github.com/abdul-hamid-achik/chlorine/packages/output"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the layout bundle",
	Long: `Run every spec of the built-in layout bundle.

Spec output is written to stderr in declaration order, followed by a
summary line. The formatted report goes to stdout or --output-file. The
process exits with the number of failed specs.

Examples:
  chlorine run
  chlorine run -j 8
  chlorine run --output junit --output-file report.xml
  chlorine run --history runs.db --metrics-file chlorine.prom
  chlorine run --watch`,
	Args: cobra.NoArgs,
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	jobsFlag        int
	configFlag      string
	verboseFlag     bool
	noColorFlag     bool
	outputFlag      string
	outputFileFlag  string
	historyFlag     string
	metricsFileFlag string
	startRateFlag   float64
	watchFlag       bool
	logFormatFlag   string
)

func init() {
	runCmd.Flags().IntVarP(&jobsFlag, "jobs", "j", getEnvInt("CHLORINE_JOBS", 0), "Number of workers for the parallel pass (env: CHLORINE_JOBS)")
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("CHLORINE_CONFIG", ""), "Path to config file (env: CHLORINE_CONFIG)")

	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("CHLORINE_VERBOSE", false), "Verbose report and debug logs (env: CHLORINE_VERBOSE)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("CHLORINE_NO_COLOR", false), "Disable colored output (env: CHLORINE_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("CHLORINE_OUTPUT", ""), "Output format: console, json, junit, tap (env: CHLORINE_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("CHLORINE_OUTPUT_FILE", ""), "Write the report to file (default: stdout) (env: CHLORINE_OUTPUT_FILE)")
	runCmd.Flags().StringVar(&logFormatFlag, "log-format", getEnvString("CHLORINE_LOG_FORMAT", "text"), "Log format: text, json (env: CHLORINE_LOG_FORMAT)")

	runCmd.Flags().StringVar(&historyFlag, "history", getEnvString("CHLORINE_HISTORY", ""), "Record runs in this SQLite database (env: CHLORINE_HISTORY)")
	runCmd.Flags().StringVar(&metricsFileFlag, "metrics-file", getEnvString("CHLORINE_METRICS_FILE", ""), "Write Prometheus textfile metrics after each run (env: CHLORINE_METRICS_FILE)")
	runCmd.Flags().Float64Var(&startRateFlag, "start-rate", getEnvFloat("CHLORINE_START_RATE", 0), "Max spec starts per second in the parallel pass, 0 for unlimited (env: CHLORINE_START_RATE)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch files for changes and re-run the bundle")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// flagConfig returns the settings given on the command line. Unset flags
// leave their fields zero so they do not override the config file.
func flagConfig(cmd *cobra.Command) *config.Config {
	cfg := &config.Config{
		Jobs:        jobsFlag,
		StartRate:   startRateFlag,
		Output:      outputFlag,
		OutputFile:  outputFileFlag,
		History:     historyFlag,
		MetricsFile: metricsFileFlag,
	}
	if cmd.Flags().Changed("verbose") || verboseFlag {
		cfg.Verbose = config.BoolPtr(verboseFlag)
	}
	if cmd.Flags().Changed("no-color") || noColorFlag {
		cfg.NoColor = config.BoolPtr(noColorFlag)
	}
	return cfg
}

func newLogger(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return logging.New(w, verbose), nil
	case "json":
		return logging.NewJSON(w, verbose), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}

// session holds what a run needs besides the bundle itself.
type session struct {
	cfg         *config.Config
	report      io.Writer
	diagnostics io.Writer
	logger      *slog.Logger
}

// execute runs the bundle once, reports it and persists it. It returns the
// number of failed specs.
func (s *session) execute(ctx context.Context) (int, error) {
	formatter, err := output.New(s.cfg.Output, s.report, s.cfg.GetVerbose())
	if err != nil {
		return 0, err
	}
	formatter.FormatHeader(version)

	r := runner.NewRunner(&runner.Config{
		Workers:     s.cfg.Jobs,
		Diagnostics: s.diagnostics,
		StartRate:   s.cfg.StartRate,
		Logger:      s.logger,
		Metrics:     metrics.NewRecorder(),
	})

	result, err := r.RunBundle(layoutBundle(s.cfg.Jobs))
	if err != nil {
		formatter.FormatError(err)
		return 0, err
	}
	formatter.FormatResult(result)

	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(result.Duration); err != nil {
			return result.Failed, fmt.Errorf("error writing output: %w", err)
		}
	}

	if s.cfg.MetricsFile != "" {
		labels := metrics.RunLabels{Bundle: result.Name, RunID: result.ID.String()}
		if err := r.Metrics().WriteTextfile(s.cfg.MetricsFile, labels); err != nil {
			s.logger.Warn("failed to write metrics", "file", s.cfg.MetricsFile, "error", err)
		}
	}

	if s.cfg.History != "" {
		if err := recordHistory(ctx, s.cfg.History, result); err != nil {
			s.logger.Warn("failed to record run", "history", s.cfg.History, "error", err)
		}
	}

	return result.Failed, nil
}

func recordHistory(ctx context.Context, path string, result *runner.RunResult) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(ctx, result)
}

func runCommand(cmd *cobra.Command, args []string) error {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := fileConfig.Merge(flagConfig(cmd))

	if cfg.GetNoColor() {
		color.NoColor = true
	}

	logger, err := newLogger(cmd.ErrOrStderr(), logFormatFlag, cfg.GetVerbose())
	if err != nil {
		return err
	}

	report := cmd.OutOrStdout()
	if cfg.OutputFile != "" {
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		report = f
	}

	s := &session{
		cfg:         cfg,
		report:      report,
		diagnostics: cmd.ErrOrStderr(),
		logger:      logger,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	failed, err := s.execute(ctx)
	if err != nil {
		return err
	}

	if !watchFlag {
		if failed > 0 {
			os.Exit(exitCode(failed))
		}
		return nil
	}

	return s.watch(ctx, cmd.OutOrStdout())
}

// watch re-runs the bundle whenever a watched path is written.
func (s *session) watch(ctx context.Context, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	paths := s.cfg.Watch
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		if err := watcher.Add(filepath.Clean(p)); err != nil {
			s.logger.Warn("failed to watch path", "path", p, "error", err)
		}
	}

	fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var (
		mu            sync.Mutex
		debounceTimer *time.Timer
	)
	rerun := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, "\n\nFile changed: %s\nRe-running specs...\n\n", name)
		if _, err := s.execute(ctx); err != nil {
			s.logger.Error("run failed", "error", err)
		}
		fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n")
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			mu.Unlock()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.logger.Debug("file changed", "path", event.Name, "op", event.Op.String())
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() { rerun(name) })

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}
