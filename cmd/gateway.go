package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/doclantern/doclantern/internal/channels"
	"github.com/doclantern/doclantern/internal/config"
	"github.com/doclantern/doclantern/internal/dependency"
	"github.com/doclantern/doclantern/internal/health"
)

var (
	gatewayConfig      string
	gatewayInteractive bool
	gatewayWatch       bool
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the doclantern gateway",
	RunE:  runGateway,
}

func init() {
	gatewayCmd.Flags().StringVarP(&gatewayConfig, "config", "c", "", "Config file path (default ~/.doclantern/config.json)")
	gatewayCmd.Flags().BoolVarP(&gatewayInteractive, "interactive", "i", false, "Also serve a terminal REPL")
	gatewayCmd.Flags().BoolVar(&gatewayWatch, "watch", true, "Reload channel allowlists on config change")
}

func runGateway(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(gatewayConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("%s Starting doclantern gateway...\n", logo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dc := container.DocsClient()
	if err := dc.Connect(ctx); err != nil {
		return fmt.Errorf("docs backend: %w", err)
	}
	defer dc.Close()

	if rc := container.ResolveCache(); rc != nil {
		defer rc.Close()
	}

	channelMgr := channels.NewManager(cfg, container.MessageBus(), gatewayInteractive)
	if enabled := channelMgr.EnabledChannels(); len(enabled) > 0 {
		fmt.Printf("✓ Channels enabled: %s\n", strings.Join(enabled, ", "))
	} else {
		fmt.Println("Warning: no channels enabled")
	}

	probe := container.Probe()
	healthSrv := health.NewServer(probe, cfg.Health.Host, cfg.Health.Port, cfg.Health.Path)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return container.Orchestrator().Run(gctx) })
	g.Go(func() error { return container.Sessions().Start(gctx) })
	g.Go(func() error { return channelMgr.StartAll(gctx) })
	g.Go(func() error { return probe.Start(gctx) })
	g.Go(func() error { return healthSrv.Start(gctx) })
	if gatewayWatch {
		g.Go(func() error {
			return config.Watch(gctx, gatewayConfig, func(next *config.Config) {
				// Only settings read per request take effect without restart.
				*cfg = *next
			})
		})
	}

	fmt.Printf("%s Gateway running. Press Ctrl+C to stop.\n", logo)

	if err := g.Wait(); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "gateway error: %v\n", err)
		return err
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
