package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/creatorhub/hub/pkg/channel"
	"github.com/creatorhub/hub/pkg/metrics"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the message worker",
	Long: `Starts the worker that consumes queued channel messages, generates
assistant replies and embeds newly added documents.`,
	Run: runWorker,
}

func init() {
	f := workerCmd.Flags()
	f.Int("worker.concurrency", 4, "Number of concurrent event processors")
	viper.BindPFlags(f)
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) {
	logger := buildLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer app.Close()

	var metricsWg sync.WaitGroup
	if cfg.Metrics.Enabled {
		metrics.StartPrometheusServer(ctx, &metricsWg, &metrics.PromServerOpts{Addr: cfg.Metrics.Addr})
	}

	deliveries, err := app.bus.Subscribe(ctx)
	if err != nil {
		logger.Fatal("subscribe to event bus", zap.Error(err))
	}

	dispatcher := channel.NewDispatcher(app.registry, app.engine, app.ingestor, app.creators, logger)

	concurrency := viper.GetInt("worker.concurrency")
	if concurrency < 1 {
		concurrency = 1
	}
	logger.Info("worker started", zap.Int("concurrency", concurrency))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dispatcher.Run(ctx, deliveries)
		}()
	}
	wg.Wait()
	metricsWg.Wait()
	logger.Info("worker stopped")
}
