package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"redpen/internal/config"
	"redpen/internal/history"
	"redpen/internal/llm"
	"redpen/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "redpen",
		Short: "Editorial automation for Word documents",
	}
	configPath string
)

var (
	editOut            string
	editMode           string
	editAuthor         string
	editUseLLM         bool
	editLLMProvider    string
	editLLMModel       string
	editAPIKey         string
	editUseVale        bool
	editValeConfig     string
	editChunkStrategy  string
	editConcurrency    int
	editAutoAccept     bool
	editFeedbackRetry  bool
	editStyleRules     string
	editProseRules     string
	editProtectedTerms string
	editHistoryDB      string
	editCompareBackend string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")

	editCmd.Flags().StringVar(&editOut, "out", "out", "Output directory for the review bundle")
	editCmd.Flags().StringVar(&editMode, "mode", pipeline.ModeSafe, "Pipeline mode: safe, rewrite, or holistic")
	editCmd.Flags().StringVar(&editAuthor, "author", "Editorial Engine", "Author name recorded in the redline")
	editCmd.Flags().BoolVar(&editUseLLM, "use-llm", false, "Enable sentence-level LLM proposals (rewrite mode)")
	editCmd.Flags().StringVar(&editLLMProvider, "llm-provider", "", "LLM provider: gemini or openai")
	editCmd.Flags().StringVar(&editLLMModel, "llm-model", "", "Model name for the LLM provider")
	editCmd.Flags().StringVar(&editAPIKey, "api-key", "", "API key (overrides config and environment)")
	editCmd.Flags().BoolVar(&editUseVale, "use-vale", false, "Run the vale prose linter")
	editCmd.Flags().StringVar(&editValeConfig, "vale-config", "", "Path to a vale configuration file")
	editCmd.Flags().StringVar(&editChunkStrategy, "chunk-strategy", "paragraph", "Holistic chunking: paragraph, section, or adaptive")
	editCmd.Flags().IntVar(&editConcurrency, "concurrency", 0, "Concurrent LLM requests (0 = default)")
	editCmd.Flags().BoolVar(&editAutoAccept, "auto-accept", false, "Apply review-flagged rewrites instead of keeping originals")
	editCmd.Flags().BoolVar(&editFeedbackRetry, "feedback-retry", false, "Give flagged rewrites one linter-guided correction attempt")
	editCmd.Flags().StringVar(&editStyleRules, "rules", "", "Path to the style rule pack")
	editCmd.Flags().StringVar(&editProseRules, "prose-rules", "", "Path to the prose rule pack")
	editCmd.Flags().StringVar(&editProtectedTerms, "protected-terms", "", "Path to the protected terms file")
	editCmd.Flags().StringVar(&editHistoryDB, "history-db", "", "Path to the run-history database (SQLite)")
	editCmd.Flags().StringVar(&editCompareBackend, "compare-backend", "", "Redline backend: compare_tool or text_diff")

	historyCmd.Flags().StringVar(&editHistoryDB, "history-db", "redpen.db", "Path to the run-history database (SQLite)")

	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(historyCmd)
}

var editCmd = &cobra.Command{
	Use:   "edit <input.docx>",
	Short: "Run the editorial pipeline on a Word document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		llmOpts := llm.Options{
			Provider:    firstNonEmpty(editLLMProvider, cfg.LLM.Provider),
			Model:       firstNonEmpty(editLLMModel, cfg.LLM.Model),
			APIKey:      firstNonEmpty(editAPIKey, cfg.LLM.APIKey),
			BaseURL:     cfg.LLM.BaseURL,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		}

		// Fail fast: both LLM paths are useless without a key, and
		// finding out after a long extract stage wastes the run.
		needsLLM := editMode == pipeline.ModeHolistic || (editUseLLM && editMode == pipeline.ModeRewrite)
		if needsLLM && llmOpts.APIKey == "" {
			return fmt.Errorf("mode %q requires an API key (--api-key, config, or REDPEN_API_KEY)", editMode)
		}
		if editUseLLM && editMode == pipeline.ModeSafe {
			return fmt.Errorf("--use-llm requires --mode rewrite")
		}

		chunkStrategy := editChunkStrategy
		if cfg.Pipeline.ChunkStrategy != "" && !cmd.Flags().Changed("chunk-strategy") {
			chunkStrategy = cfg.Pipeline.ChunkStrategy
		}

		result, err := pipeline.Run(cmd.Context(), pipeline.Options{
			InputPath:          args[0],
			OutDir:             editOut,
			Mode:               editMode,
			StyleRulesPath:     firstNonEmpty(editStyleRules, cfg.Rules.StylePath),
			ProseRulesPath:     firstNonEmpty(editProseRules, cfg.Rules.ProsePath),
			ProtectedTermsPath: firstNonEmpty(editProtectedTerms, cfg.Rules.ProtectedTermsPath),
			UseLLM:             editUseLLM,
			LLM:                llmOpts,
			UseVale:            editUseVale,
			ValeBinary:         cfg.Vale.Binary,
			ValeConfigPath:     firstNonEmpty(editValeConfig, cfg.Vale.ConfigPath),
			ChunkStrategy:      chunkStrategy,
			Concurrency:        firstPositive(editConcurrency, cfg.Pipeline.Concurrency),
			AutoAccept:         editAutoAccept || cfg.Pipeline.AutoAccept,
			FeedbackRetry:      editFeedbackRetry || cfg.Pipeline.FeedbackRetry,
			Author:             firstNonEmpty(editAuthor, cfg.Redline.Author),
			PreferBackend:      firstNonEmpty(editCompareBackend, cfg.Redline.Backend),
			CompareBinary:      cfg.Redline.CompareBinary,
			HistoryDB:          firstNonEmpty(editHistoryDB, cfg.History.DBPath),
		})
		if err != nil {
			return err
		}

		fmt.Printf("Bundle: %s\n", result.BundleDir)
		fmt.Printf("Clean:  %s\n", result.CleanPath)
		if result.RedlinePath != "" {
			fmt.Printf("Redline: %s\n", result.RedlinePath)
		}
		for k, v := range result.Changelog.Stats {
			fmt.Printf("  %s: %d\n", k, v)
		}
		if result.ReviewNeeded {
			fmt.Println("Some rewrites are flagged for review; see review_report.md in the bundle.")
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent editorial runs",
	Run: func(cmd *cobra.Command, args []string) {
		store, err := history.Open(editHistoryDB)
		if err != nil {
			log.Fatalf("Failed to open history database: %v", err)
		}
		defer store.Close()

		runs, err := store.RecentRuns(context.Background(), 20)
		if err != nil {
			log.Fatalf("Failed to list runs: %v", err)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return
		}
		for _, r := range runs {
			review := ""
			if r.ReviewNeeded {
				review = " [review needed]"
			}
			fmt.Printf("%s  %-8s  %s%s\n", r.StartedAt.Format("2006-01-02 15:04"), r.Mode, r.InputPath, review)
			fmt.Printf("    bundle: %s\n", r.BundleDir)
		}
	},
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
