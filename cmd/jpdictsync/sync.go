package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/birchill/hikibiki-data/pkg/config"
	"github.com/birchill/hikibiki-data/pkg/downloader"
	"github.com/birchill/hikibiki-data/pkg/events"
	"github.com/birchill/hikibiki-data/pkg/jpdict"
	"github.com/birchill/hikibiki-data/pkg/log"
	"github.com/birchill/hikibiki-data/pkg/metrics"
	"github.com/birchill/hikibiki-data/pkg/retry"
	"github.com/birchill/hikibiki-data/pkg/store"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one update pass against every series",
	Long: `Sync downloads and applies the latest kanji, radicals, names and
words data, then exits. Use --watch to keep retrying forever instead.

Examples:
  # One-shot sync
  jpdictsync sync --config jpdictsync.yaml

  # Keep the process running, retrying on failure per the update policy
  jpdictsync sync --config jpdictsync.yaml --watch`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Bool("watch", false, "Stay running and retry updates instead of exiting")
	syncCmd.Flags().Bool("force", false, "Bypass the cached manifest for this run")
}

func runSync(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	watch, _ := cmd.Flags().GetBool("watch")
	force, _ := cmd.Flags().GetBool("force")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	facade, broker, shutdown, err := buildFacade(cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	ctx := cmd.Context()

	if !watch {
		fmt.Println("Syncing jpdict data...")
		if err := facade.Update(ctx, cfg.Language, force); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		fmt.Println("✓ Sync complete")
		return nil
	}

	monitor := retry.NewDialMonitor("8.8.8.8:53", 5*time.Second, 15*time.Second)
	monitor.Start()
	defer monitor.Stop()

	controller := retry.New(retry.Config{
		Facade:  facade,
		Monitor: monitor,
		Lang:    cfg.Language,
		OnError: func(err error) {
			log.WithComponent("jpdictsync").Error().Err(err).Msg("sync gave up")
		},
		ConstraintViolationDelay: cfg.Retry.ConstraintViolationRetryDelay,
	})
	controller.Start()
	defer controller.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	fmt.Println("Watching for updates (Ctrl+C to stop)...")
	controller.ForceUpdate()

	for {
		select {
		case ev := <-sub:
			fmt.Printf("[%s] %s -> %s\n", ev.Timestamp.Format(time.RFC3339), ev.Series, ev.Metadata["status"])
		case <-ctx.Done():
			return nil
		}
	}
}

// buildFacade wires a Facade from cfg, along with a started events
// broker and a shutdown func that closes both the store and the
// broker's distribution loop.
func buildFacade(cfg *config.Config) (*jpdict.Facade, *events.Broker, func(), error) {
	st := store.NewBoltStore(cfg.DataDir)
	dl := downloader.New(downloader.Config{
		BaseURL: cfg.BaseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	})
	broker := events.NewBroker()
	broker.Start()

	facade := jpdict.New(jpdict.Config{
		Store:         st,
		Downloader:    dl,
		Broker:        broker,
		SchemaVersion: store.CurrentSchemaVersion,
	})

	collector := metrics.NewCollector(facade)
	collector.Start()

	if err := facade.Open(context.Background()); err != nil {
		collector.Stop()
		broker.Stop()
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	shutdown := func() {
		collector.Stop()
		broker.Stop()
		facade.Close()
	}
	return facade, broker, shutdown, nil
}
