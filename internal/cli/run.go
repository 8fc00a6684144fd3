package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/chorus-insights/chorus/internal/model"
	"github.com/chorus-insights/chorus/internal/pipeline"
	"github.com/chorus-insights/chorus/internal/store"
	"github.com/spf13/cobra"
)

var (
	runClient      string
	runConcurrency int
	runTimeout     time.Duration
	runNoCache     bool
	runDBPath      string
	runProvider    string
	runModel       string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <quotes.json>",
	Short: "Run the full pipeline on a file of scored quotes",
	Long: `Run ingests a JSON array of scored interview quotes for one client and
executes the complete pipeline: optional labeling through an external
collaborator, confidence scoring, diversity-aware theme assembly, and
deduplication into the canonical layer.

Emitted themes land as pending merge suggestions for analyst curation;
nothing is auto-approved.

Example:
  chorus run quotes.json --client acme
  chorus run quotes.json --client acme --llm-provider openai --concurrency 16`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runClient, "client", "", "client identifier (required)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "label workers (0 = config default)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "overall run timeout")
	runCmd.Flags().BoolVar(&runNoCache, "no-cache", false, "disable the label cache")
	runCmd.Flags().StringVar(&runDBPath, "db", "", "database path (default from config)")
	runCmd.Flags().StringVar(&runProvider, "llm-provider", "", "labeling provider (openai, ollama; empty = pre-labeled input)")
	runCmd.Flags().StringVar(&runModel, "llm-model", "", "labeling model name")

	_ = runCmd.MarkFlagRequired("client")
}

func runRun(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cfg)

	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	quotes, err := readQuotes(path)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Client: %s\n", runClient)
		fmt.Fprintf(os.Stderr, "Quotes: %d\n", len(quotes))
		fmt.Fprintf(os.Stderr, "Database: %s\n", cfg.Store.DBPath)
		fmt.Fprintln(os.Stderr)
	}

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	p, err := pipeline.New(cfg, st, log)
	if err != nil {
		return err
	}

	rc := model.RunContext{ClientID: runClient, Config: cfg}
	summary, err := p.Run(ctx, rc, quotes)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	fmt.Printf("✓ %d quotes in, %d findings, %d themes (target %d)\n",
		summary.QuotesIn, summary.Findings, summary.ThemesEmitted, summary.ThemesTarget)
	fmt.Printf("✓ %d merge suggestion(s), %d new canonical theme(s) awaiting review\n",
		summary.MergesSuggested, summary.NewCanonicals)
	if summary.QuotesUnscored > 0 {
		fmt.Printf("! %d quote(s) could not be labeled and were excluded\n", summary.QuotesUnscored)
	}
	if summary.Suppressed > 0 && verbose {
		fmt.Fprintf(os.Stderr, "%d candidate theme(s) suppressed below the company floor\n", summary.Suppressed)
	}

	return nil
}

// applyRunFlags overlays explicit CLI flags onto the loaded configuration
func applyRunFlags(cfg *model.Config) {
	if runConcurrency > 0 {
		cfg.Concurrency.LabelWorkers = runConcurrency
	}
	if runNoCache {
		cfg.Cache.Enabled = false
	}
	if runDBPath != "" {
		cfg.Store.DBPath = runDBPath
	}
	if runProvider != "" {
		cfg.LLM.Provider = runProvider
	}
	if runModel != "" {
		cfg.LLM.Model = runModel
	}
	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.Provider == "ollama" && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	cfg.Output.Verbose = verbose
}

// readQuotes loads and decodes the input file
func readQuotes(path string) ([]model.ScoredQuote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quotes file: %w", err)
	}
	var quotes []model.ScoredQuote
	if err := json.Unmarshal(data, &quotes); err != nil {
		return nil, fmt.Errorf("parse quotes file: %w", err)
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("quotes file %s contains no quotes", path)
	}
	return quotes, nil
}
