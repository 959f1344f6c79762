package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/doclantern/doclantern/internal/config"
	"github.com/doclantern/doclantern/internal/dependency"
)

var askSession string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "cli:direct", "Session key")
}

func runAsk(_ *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dc := container.DocsClient()
	if err := dc.Connect(ctx); err != nil {
		return fmt.Errorf("docs backend: %w", err)
	}
	defer dc.Close()
	if rc := container.ResolveCache(); rc != nil {
		defer rc.Close()
	}

	question := strings.Join(args, " ")
	fmt.Fprintf(os.Stderr, "  ↳ looking it up...\n")

	answer := container.Orchestrator().Process(ctx, question, askSession)
	for _, inv := range answer.Invocations {
		note := inv.Tool
		if inv.Cached {
			note += " (cached)"
		}
		if inv.Err != "" {
			note += " — failed"
		}
		fmt.Fprintf(os.Stderr, "  ↳ %s %s\n", note, inv.Argument)
	}

	fmt.Printf("\n%s doclantern\n%s\n\n", logo, answer.Text)
	return nil
}
