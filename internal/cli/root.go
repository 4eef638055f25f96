// Package cli defines the finsight command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finsightai/finsight/config"
	"github.com/finsightai/finsight/internal/agent"
	"github.com/finsightai/finsight/internal/display"
	"github.com/finsightai/finsight/internal/executor"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "finsight",
		Short: "FinSight - AI-powered financial question answering",
		Long: `FinSight answers financial questions by planning a sequence of data tool
calls with an LLM, executing them against SEC EDGAR, Polygon, Yahoo Finance,
and web research, and reporting an answer with a confidence score and a full
audit trail.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				cfg.Debug = true
			}
			if !cfg.Debug {
				log.SetOutput(io.Discard)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cfg, "")
		},
	}

	rootCmd.AddCommand(newAskCmd(cfg))
	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newPrecacheCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(cfg))

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	return rootCmd
}

// newAskCmd creates the ask command.
func newAskCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [QUESTION]",
		Short: "Answer a financial question",
		Long: `Answer a financial question end to end.
Example: finsight ask "What was Apple's revenue last quarter?"`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cfg, strings.Join(args, " "))
		},
	}
}

// newToolsCmd lists the tools the planner can schedule.
func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List available data tools",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available tools:")
			for _, name := range executor.KnownActionNames() {
				fmt.Printf("  - %s\n", name)
			}
		},
	}
}

// newPrecacheCmd warms the result cache for a set of tickers without
// running the planner.
func newPrecacheCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "precache",
		Short: "Warm the data cache for a list of tickers",
		Long: `Fetch and cache quarterly financials and competitor data for the given
tickers so later queries answer from cache.
Example: finsight precache --tickers AAPL,MSFT,GOOGL`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tickers, _ := cmd.Flags().GetStringSlice("tickers")
			if len(tickers) == 0 {
				return fmt.Errorf("at least one ticker is required (--tickers)")
			}
			return runPrecache(cfg, tickers)
		},
	}
	cmd.Flags().StringSlice("tickers", nil, "Comma-separated ticker symbols to cache")
	cmd.MarkFlagRequired("tickers")
	return cmd
}

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("FinSight v1.0.0")
			fmt.Println("AI-Powered Financial Question Answering")
		},
	}
}

// newConfigCmd creates the config command.
func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Println("Configuration OK")
			return nil
		},
	})

	return configCmd
}

// runAsk answers one question, prompting interactively when none is given.
func runAsk(cfg *config.Config, query string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	display.Banner()

	if strings.TrimSpace(query) == "" {
		var err error
		query, err = PromptForQuestion()
		if err != nil {
			return err
		}
	}

	ctx := context.Background()
	a, err := agent.New(ctx, cfg)
	if err != nil {
		return err
	}

	state := a.Ask(ctx, query)

	fmt.Println(display.Report(state))
	if cfg.Debug {
		fmt.Println(display.ExecutionLog(state))
	}
	return nil
}

// runPrecache resolves financials and competitors for each ticker so the
// results land in the cache.
func runPrecache(cfg *config.Config, tickers []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	a, err := agent.New(ctx, cfg)
	if err != nil {
		return err
	}

	capabilities := []executor.ActionKind{
		executor.ActionQuarterlyFinancials,
		executor.ActionFindCompetitors,
	}

	for _, ticker := range tickers {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker == "" {
			continue
		}
		for _, kind := range capabilities {
			result := a.Chain(kind).Resolve(ctx, map[string]any{"ticker": ticker})
			status := "cached"
			if !result.Success {
				status = "failed: " + result.Error
			}
			fmt.Printf("%s %s: %s\n", ticker, kind, status)
		}
	}
	return nil
}

func showConfig(cfg *config.Config) {
	fmt.Println("Current FinSight Configuration:")
	fmt.Printf("Project Directory:  %s\n", cfg.ProjectDir)
	fmt.Printf("Data Directory:     %s\n", cfg.DataDir)
	fmt.Printf("Cache Directory:    %s\n", cfg.DataCacheDir)
	fmt.Printf("LLM Base URL:       %s\n", cfg.LLMBaseURL)
	fmt.Printf("LLM Model:          %s\n", cfg.LLMModel)
	fmt.Printf("LLM API Key:        %s\n", maskKey(cfg.LLMAPIKey))
	fmt.Printf("Polygon API Key:    %s\n", maskKey(cfg.PolygonAPIKey))
	fmt.Printf("Tavily API Key:     %s\n", maskKey(cfg.TavilyAPIKey))
	fmt.Printf("SEC User-Agent:     %s\n", cfg.SECUserAgent)
	fmt.Printf("Cache Enabled:      %t\n", cfg.CacheEnabled)
	fmt.Printf("Cache TTL (hours):  %d\n", cfg.CacheTTLHours)
	fmt.Printf("Online Tools:       %t\n", cfg.OnlineTools)
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
