package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/creatorhub/hub/pkg/rag"
)

var (
	ingestCreator string
	ingestDir     string
	ingestWatch   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest documents from a directory",
	Long: `Chunks and embeds text files from a directory into a creator's
knowledge base. With --watch it keeps running and re-ingests files as they
change.`,
	Run: runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.StringVar(&ingestCreator, "creator", "", "Creator ID to ingest documents for")
	f.StringVar(&ingestDir, "dir", ".", "Directory to ingest")
	f.BoolVar(&ingestWatch, "watch", false, "Keep watching the directory for changes")
	ingestCmd.MarkFlagRequired("creator")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	logger := buildLogger()
	defer logger.Sync()

	creatorID, err := uuid.Parse(ingestCreator)
	if err != nil {
		logger.Fatal("invalid creator id", zap.String("creator", ingestCreator))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer app.Close()

	watcher := rag.NewWatcher(app.ingestor, app.creators, creatorID, logger)

	if err := watcher.Scan(ctx, ingestDir); err != nil {
		logger.Fatal("scan directory", zap.Error(err))
	}
	logger.Info("directory scan complete", zap.String("dir", ingestDir))

	if ingestWatch {
		if err := watcher.Watch(ctx, ingestDir); err != nil && ctx.Err() == nil {
			logger.Fatal("watch directory", zap.Error(err))
		}
	}
}
