package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/birchill/hikibiki-data/pkg/config"
	"github.com/birchill/hikibiki-data/pkg/log"
	"github.com/birchill/hikibiki-data/pkg/metrics"
	"github.com/birchill/hikibiki-data/pkg/retry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the retry-driven sync loop with a Prometheus /metrics endpoint",
	Long: `Serve keeps jpdictsync running indefinitely: it performs an initial
sync, exposes Prometheus metrics over HTTP, and retries updates
according to the update-with-retry policy on a timer.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("metrics-addr", ":9090", "Address to serve /metrics on")
	serveCmd.Flags().Duration("sync-interval", time.Hour, "How often to request a fresh sync pass")
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	syncInterval, _ := cmd.Flags().GetDuration("sync-interval")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	facade, _, shutdown, err := buildFacade(cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	metrics.SetVersion(Version)
	metrics.RegisterComponent("store", true, "")
	metrics.RegisterComponent("downloader", true, "")

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())
	metricsServer := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithComponent("jpdictsync").Error().Err(err).Msg("metrics server exited")
		}
	}()

	monitor := retry.NewDialMonitor("8.8.8.8:53", 5*time.Second, 15*time.Second)
	monitor.Start()
	defer monitor.Stop()

	controller := retry.New(retry.Config{
		Facade:  facade,
		Monitor: monitor,
		Lang:    cfg.Language,
		OnError: func(err error) {
			log.WithComponent("jpdictsync").Error().Err(err).Msg("sync gave up")
			metrics.UpdateComponent("downloader", false, err.Error())
		},
		ConstraintViolationDelay: cfg.Retry.ConstraintViolationRetryDelay,
	})
	controller.Start()
	defer controller.Stop()

	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()
	controller.ForceUpdate()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("Serving metrics on %s, syncing every %s\n", metricsAddr, syncInterval)
	for {
		select {
		case <-ticker.C:
			controller.ForceUpdate()
		case <-sigCh:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(ctx)
		}
	}
}
