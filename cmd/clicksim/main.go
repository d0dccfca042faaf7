// Package main provides the CLI entrypoint for clicksim.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/clicksim/internal/batch"
	"github.com/verte-zerg/clicksim/internal/config"
	"github.com/verte-zerg/clicksim/internal/model"
	"github.com/verte-zerg/clicksim/internal/oracle"
	"github.com/verte-zerg/clicksim/internal/phrase"
	"github.com/verte-zerg/clicksim/internal/sim"
	"github.com/verte-zerg/clicksim/internal/stats"
	"github.com/verte-zerg/clicksim/internal/store"
	"github.com/verte-zerg/clicksim/internal/tokenize"
)

const (
	defaultLang     = "ja"
	defaultDict     = "ipa"
	defaultFallback = "phonetic"
	defaultBackend  = "http"
	defaultWorkers  = 1
	promptText      = "Enter>"
)

var (
	runLang          string
	runDict          string
	runFallback      string
	runOracle        string
	runEndpoint      string
	runScript        string
	runPhrases       string
	runWorkers       int
	runSentenceCount int
	runSentenceKeep  int
	runWordCount     int
	runNoStore       bool
	runNoCache       bool
	runTrace         bool
	runVerbose       bool

	tokenizeLang string
	tokenizeDict string

	phrasesLang string
	phrasesFile string

	statsLang string
	statsLast int
	statsRun  string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "clicksim [file]",
		Short:         "Simulate click savings of suggestion-assisted text entry",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runSimulateCmd,
	}
	addRunFlags(rootCmd)

	runCmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Simulate every line of a file (or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulateCmd,
	}
	addRunFlags(runCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(newTokenizeCmd())
	rootCmd.AddCommand(newPhrasesCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func addRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&runLang, "lang", defaultLang, "language code (ja, en)")
	flags.StringVar(&runDict, "dict", defaultDict, "Japanese dictionary (ipa, uni)")
	flags.StringVar(&runFallback, "fallback", defaultFallback, "fallback policy (phonetic, flat)")
	flags.StringVar(&runOracle, "oracle", defaultBackend, "suggestion backend (http, script, none)")
	flags.StringVar(&runEndpoint, "endpoint", oracle.DefaultEndpoint, "macro server endpoint")
	flags.StringVar(&runScript, "script", "", "TOML file of scripted suggestions (with --oracle script)")
	flags.StringVar(&runPhrases, "phrases", "", "file of initial phrases, one per line")
	flags.IntVar(&runWorkers, "workers", defaultWorkers, "sentences simulated concurrently")
	flags.IntVar(&runSentenceCount, "sentence-count", sim.DefaultSentenceCount, "sentence suggestions requested per query")
	flags.IntVar(&runSentenceKeep, "sentence-keep", sim.DefaultSentenceKeep, "sentence suggestions shown to the user")
	flags.IntVar(&runWordCount, "word-count", sim.DefaultWordCount, "word suggestions requested per query")
	flags.BoolVar(&runNoStore, "no-store", false, "do not save the run")
	flags.BoolVar(&runNoCache, "no-cache", false, "do not cache oracle answers")
	flags.BoolVar(&runTrace, "trace", false, "print every simulation step to stderr")
	flags.BoolVar(&runVerbose, "verbose", false, "enable debug logging")
}

type runSettings struct {
	lang      string
	dict      string
	fallback  string
	backend   string
	endpoint  string
	script    string
	phrases   string
	workers   int
	options   sim.Options
	store     bool
	cache     bool
	oracleCfg config.OracleConfig
}

func runSimulateCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	s := resolveRunSettings(cmd, fileCfg)
	if err := validateSettings(s); err != nil {
		return err
	}

	logger := newLogger(os.Stderr, runVerbose)

	tok, err := tokenize.New(s.lang, s.dict)
	if err != nil {
		return fmt.Errorf("failed to create tokenizer: %w", err)
	}
	phraseList := phrase.Defaults(s.lang)
	if s.phrases != "" {
		if phraseList, err = phrase.LoadFile(s.phrases); err != nil {
			return fmt.Errorf("failed to load phrases: %w", err)
		}
	}
	fallback, err := sim.ParseFallback(s.fallback)
	if err != nil {
		return err
	}

	var st *store.Store
	if s.store {
		st, err = store.Open(config.DefaultDBPath())
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
	}

	orc, backendName, err := buildOracle(s, logger)
	if err != nil {
		return err
	}
	if st != nil && s.cache && s.backend == "http" {
		orc = oracle.NewCached(orc, st, backendName, logger)
	}

	observers := sim.Observers{sim.LogObserver{Logger: logger}}
	if runTrace {
		if s.workers > 1 {
			logger.Warn("--trace is ignored with --workers > 1")
		} else {
			observers = append(observers, sim.TraceObserver{W: os.Stderr})
		}
	}
	simulator := sim.New(tok, orc, phrase.NewMatcher(tok, phraseList),
		sim.WithOptions(s.options),
		sim.WithFallback(fallback),
		sim.WithObserver(observers),
		sim.WithLogger(logger),
	)

	in, closeIn, err := openInput(args)
	if err != nil {
		return err
	}
	defer closeIn()

	renderOpts := stats.RenderOptions{Color: term.IsTerminal(int(os.Stdout.Fd()))}
	batchCfg := batch.Config{
		Workers: s.workers,
		Out:     cmd.OutOrStdout(),
		Render:  renderOpts,
		Logger:  logger,
	}
	if len(args) == 0 && s.workers == 1 && term.IsTerminal(int(os.Stdin.Fd())) {
		batchCfg.Prompt = promptText
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	started := time.Now()
	report, err := batch.New(simulator, batchCfg).Run(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to run batch: %w", err)
	}
	if batchCfg.Prompt != "" {
		if _, err := fmt.Fprintln(cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if err := stats.RenderSummary(cmd.OutOrStdout(), report.Aggregate, renderOpts); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if st == nil || report.Aggregate.Lines == 0 {
		return nil
	}
	run := model.RunRecord{
		StartedAt: started.UTC(),
		EndedAt:   time.Now().UTC(),
		Lang:      s.lang,
		Oracle:    backendName,
		Fallback:  fallback.Name(),
	}
	report.Aggregate.Record(&run)
	id, err := st.InsertRun(context.Background(), run, report.Records)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	logger.Info("run saved", "id", id)
	return nil
}

func resolveRunSettings(cmd *cobra.Command, fileCfg config.FileConfig) runSettings {
	simCfg := fileCfg.Simulate
	oracleCfg := fileCfg.Oracle
	applyStringConfig(cmd, "lang", &runLang, simCfg.Lang)
	applyStringConfig(cmd, "dict", &runDict, simCfg.Dict)
	applyStringConfig(cmd, "fallback", &runFallback, simCfg.Fallback)
	applyStringConfig(cmd, "phrases", &runPhrases, simCfg.PhrasesFile)
	applyIntConfig(cmd, "workers", &runWorkers, simCfg.Workers)
	applyIntConfig(cmd, "sentence-count", &runSentenceCount, simCfg.SentenceCount)
	applyIntConfig(cmd, "sentence-keep", &runSentenceKeep, simCfg.SentenceKeep)
	applyIntConfig(cmd, "word-count", &runWordCount, simCfg.WordCount)
	applyStringConfig(cmd, "oracle", &runOracle, oracleCfg.Backend)
	applyStringConfig(cmd, "endpoint", &runEndpoint, oracleCfg.Endpoint)
	applyStringConfig(cmd, "script", &runScript, oracleCfg.Script)
	applyNegatedBoolConfig(cmd, "no-store", &runNoStore, simCfg.Store)
	applyNegatedBoolConfig(cmd, "no-cache", &runNoCache, oracleCfg.Cache)

	return runSettings{
		lang:     strings.ToLower(strings.TrimSpace(runLang)),
		dict:     runDict,
		fallback: runFallback,
		backend:  strings.ToLower(strings.TrimSpace(runOracle)),
		endpoint: runEndpoint,
		script:   runScript,
		phrases:  runPhrases,
		workers:  runWorkers,
		options: sim.Options{
			SentenceCount: runSentenceCount,
			SentenceKeep:  runSentenceKeep,
			WordCount:     runWordCount,
		},
		store:     !runNoStore,
		cache:     !runNoCache,
		oracleCfg: oracleCfg,
	}
}

func validateSettings(s runSettings) error {
	if s.workers <= 0 {
		return fmt.Errorf("--workers must be > 0")
	}
	if err := s.options.Validate(); err != nil {
		return fmt.Errorf("invalid suggestion counts: %w", err)
	}
	switch s.backend {
	case "http", "none":
	case "script":
		if s.script == "" {
			return fmt.Errorf("--script is required with --oracle script")
		}
	default:
		return fmt.Errorf("unknown oracle %q (available: http, script, none)", s.backend)
	}
	if _, err := sim.ParseFallback(s.fallback); err != nil {
		return err
	}
	return nil
}

func buildOracle(s runSettings, logger *slog.Logger) (oracle.Oracle, string, error) {
	switch s.backend {
	case "none":
		return oracle.None{}, "none", nil
	case "script":
		script, err := oracle.LoadScript(s.script)
		if err != nil {
			return nil, "", err
		}
		return script, script.Name(), nil
	default:
		cfg := oracle.HTTPConfig{
			Endpoint: s.endpoint,
			Language: s.lang,
		}
		oc := s.oracleCfg
		if oc.SentenceMacro != nil {
			cfg.SentenceMacro = *oc.SentenceMacro
		}
		if oc.WordMacro != nil {
			cfg.WordMacro = *oc.WordMacro
		}
		if oc.Model != nil {
			cfg.Model = *oc.Model
		}
		if oc.Temperature != nil {
			cfg.Temperature = *oc.Temperature
		}
		if oc.Timeout != nil {
			cfg.Timeout = oc.Timeout.Duration
		}
		if oc.Retries != nil {
			cfg.Retries = *oc.Retries
		}
		client := oracle.NewHTTP(cfg, logger)
		return client, client.Name(), nil
	}
}

func openInput(args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close of a read-only file.
			_ = cerr
		}
	}, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newTokenizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokenize <text>",
		Short: "Print the tokens and readings of a sentence",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runTokenizeCmd,
	}
	cmd.Flags().StringVar(&tokenizeLang, "lang", defaultLang, "language code (ja, en)")
	cmd.Flags().StringVar(&tokenizeDict, "dict", defaultDict, "Japanese dictionary (ipa, uni)")
	return cmd
}

func runTokenizeCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "lang", &tokenizeLang, fileCfg.Simulate.Lang)
	applyStringConfig(cmd, "dict", &tokenizeDict, fileCfg.Simulate.Dict)

	tok, err := tokenize.New(tokenizeLang, tokenizeDict)
	if err != nil {
		return fmt.Errorf("failed to create tokenizer: %w", err)
	}
	text := strings.Join(args, " ")
	tokens := tok.Segment(text)
	out := cmd.OutOrStdout()
	baseline := 0
	for _, t := range tokens {
		reading := tok.Reading(t)
		baseline += len([]rune(reading))
		if _, err := fmt.Fprintf(out, "%s\t%s\n", t, reading); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if _, err := fmt.Fprintf(out, "tokens: %d, baseline keystrokes: %d\n", len(tokens), baseline); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newPhrasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phrases",
		Short: "List the initial phrases",
		Args:  cobra.NoArgs,
		RunE:  runPhrasesCmd,
	}
	cmd.Flags().StringVar(&phrasesLang, "lang", defaultLang, "language code (ja, en)")
	cmd.Flags().StringVar(&phrasesFile, "phrases", "", "file of initial phrases, one per line")
	return cmd
}

func runPhrasesCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "lang", &phrasesLang, fileCfg.Simulate.Lang)
	applyStringConfig(cmd, "phrases", &phrasesFile, fileCfg.Simulate.PhrasesFile)

	list := phrase.Defaults(phrasesLang)
	if phrasesFile != "" {
		if list, err = phrase.LoadFile(phrasesFile); err != nil {
			return fmt.Errorf("failed to load phrases: %w", err)
		}
	}
	if len(list) == 0 {
		return fmt.Errorf("no built-in phrases for language %q", phrasesLang)
	}
	for _, p := range list {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), p); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stored runs",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsLang, "lang", "", "language filter")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N runs")
	cmd.Flags().StringVar(&statsRun, "run", "", "show the sentences of a run (ID or unique prefix)")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := context.Background()
	out := cmd.OutOrStdout()
	opts := stats.RenderOptions{Color: term.IsTerminal(int(os.Stdout.Fd()))}

	if statsRun != "" {
		run, err := findRun(ctx, st, statsRun)
		if err != nil {
			return err
		}
		sentences, err := st.ListSentences(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("failed to load sentences: %w", err)
		}
		if err := stats.RenderSentences(out, sentences, opts); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if err := stats.RenderSummary(out, stats.FromRun(run), opts); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	history, err := stats.BuildHistory(ctx, st, model.RunFilter{Lang: statsLang, Last: statsLast})
	if err != nil {
		return fmt.Errorf("failed to load runs: %w", err)
	}
	if err := stats.RenderRuns(out, history.Runs, opts); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(history.Runs) == 0 {
		return nil
	}
	if err := stats.RenderSummary(out, history.Total, opts); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func findRun(ctx context.Context, st *store.Store, prefix string) (model.RunRecord, error) {
	runs, err := st.ListRuns(ctx, model.RunFilter{})
	if err != nil {
		return model.RunRecord{}, fmt.Errorf("failed to load runs: %w", err)
	}
	var matches []model.RunRecord
	for _, run := range runs {
		if strings.HasPrefix(run.ID, prefix) {
			matches = append(matches, run)
		}
	}
	switch len(matches) {
	case 0:
		return model.RunRecord{}, fmt.Errorf("run %q not found", prefix)
	case 1:
		return matches[0], nil
	default:
		return model.RunRecord{}, fmt.Errorf("run prefix %q is ambiguous (%d matches)", prefix, len(matches))
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := writeDefaultConfig(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// writeDefaultConfig creates the commented template unless a config exists.
func writeDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

// applyNegatedBoolConfig maps an enabling config key onto a --no-* flag.
func applyNegatedBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = !*value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# clicksim configuration
# Uncomment a value to enable it. CLI flags override config values.

[simulate]
# lang = %q               # Language code (ja, en)
# dict = %q              # Japanese dictionary (ipa, uni)
# fallback = %q     # Fallback policy (phonetic, flat)
# phrases-file = ""           # Initial phrases, one per line
# sentence-count = %d          # Sentence suggestions requested per query
# sentence-keep = %d           # Sentence suggestions shown to the user
# word-count = %d              # Word suggestions requested per query
# workers = %d                 # Sentences simulated concurrently
# store = true                # Save runs to the history database

[oracle]
# backend = %q            # http, script, none
# endpoint = %q
# sentence-macro = ""         # Defaults per language
# word-macro = %q
# model = %q
# temperature = 0.0
# timeout = %q
# retries = 0
# script = ""                 # TOML fixture for backend = "script"
# cache = true                # Cache http answers in the history database
`,
		defaultLang,
		defaultDict,
		defaultFallback,
		sim.DefaultSentenceCount,
		sim.DefaultSentenceKeep,
		sim.DefaultWordCount,
		defaultWorkers,
		defaultBackend,
		oracle.DefaultEndpoint,
		oracle.DefaultWordMacro,
		oracle.DefaultModel,
		oracle.DefaultTimeout.String(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
