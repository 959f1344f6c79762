package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/doclantern/doclantern/internal/config"
	"github.com/doclantern/doclantern/internal/docs"
	"github.com/doclantern/doclantern/internal/retry"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show doclantern status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	fmt.Printf("%s doclantern Status\n\n", logo)

	_, statErr := os.Stat(cfgPath)
	cfgMark := "✗"
	if statErr == nil {
		cfgMark = "✓"
	}
	fmt.Printf("Config:  %s %s\n", cfgPath, cfgMark)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	fmt.Printf("Model:   %s\n\n", cfg.Agents.Defaults.Model)

	fmt.Println("Providers:")
	printProvider("OpenRouter", cfg.Providers.OpenRouter)
	printProvider("OpenAI", cfg.Providers.OpenAI)
	printProvider("Custom", cfg.Providers.Custom)

	fmt.Println("\nChannels:")
	printEnabled("Telegram", cfg.Channels.Telegram.Enabled, cfg.Channels.Telegram.Token != "")
	printEnabled("Slack", cfg.Channels.Slack.Enabled, cfg.Channels.Slack.BotToken != "")

	fmt.Println("\nDocs backend:")
	if cfg.Docs.URL != "" {
		fmt.Printf("  URL:     %s\n", cfg.Docs.URL)
	} else {
		fmt.Printf("  Command: %s\n", cfg.Docs.Command)
	}
	fmt.Printf("  Ping:    %s\n", pingBackend(cfg))
	return nil
}

func printProvider(label string, p config.ProviderConfig) {
	if p.APIKey != "" {
		fmt.Printf("  %-12s ✓\n", label)
	} else if p.APIBase != "" {
		fmt.Printf("  %-12s ✓ %s\n", label, p.APIBase)
	} else {
		fmt.Printf("  %-12s (not set)\n", label)
	}
}

func printEnabled(label string, enabled, hasToken bool) {
	switch {
	case enabled && hasToken:
		fmt.Printf("  %-12s ✓\n", label)
	case enabled:
		fmt.Printf("  %-12s enabled, token missing\n", label)
	default:
		fmt.Printf("  %-12s (disabled)\n", label)
	}
}

func pingBackend(cfg *config.Config) string {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	dc := docs.NewClient(docs.Config{
		Command:     cfg.Docs.Command,
		Args:        cfg.Docs.Args,
		Env:         cfg.Docs.Env,
		URL:         cfg.Docs.URL,
		Headers:     cfg.Docs.Headers,
		CallTimeout: 10 * time.Second,
		Retry:       retry.Policy{MaxAttempts: 1},
	})
	if err := dc.Connect(ctx); err != nil {
		return "✗ " + err.Error()
	}
	defer dc.Close()

	if err := dc.Ping(ctx); err != nil {
		return "✗ " + err.Error()
	}
	return "✓ reachable"
}
