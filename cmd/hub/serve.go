package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/creatorhub/hub/pkg/auth"
	"github.com/creatorhub/hub/pkg/channel"
	"github.com/creatorhub/hub/pkg/creator"
	"github.com/creatorhub/hub/pkg/httputil"
	mw "github.com/creatorhub/hub/pkg/httputil/middleware"
	"github.com/creatorhub/hub/pkg/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Starts the HTTP server: creator auth and CRUD, channel webhooks and the web widget endpoints.`,
	Run:   runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringP("server.listenAddr", "l", "", "HTTP listen address")
	f.StringP("postgres.connString", "c", "", "PostgreSQL connection string")
	f.String("redis.addr", "", "Redis address")

	viper.BindPFlags(f)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	logger := buildLogger()
	defer logger.Sync()

	if addr := viper.GetString("server.listenAddr"); addr != "" {
		cfg.Server.ListenAddr = addr
	}
	if conn := viper.GetString("postgres.connString"); conn != "" {
		cfg.Postgres.ConnString = conn
	}
	if addr := viper.GetString("redis.addr"); addr != "" {
		cfg.Redis.Addr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer app.Close()

	var opts []httputil.RouterOptions
	if cfg.Server.TLSCert != "" {
		opts = append(opts, httputil.WithTLS(cfg.Server.TLSCert, cfg.Server.TLSKey))
	}
	r := httputil.NewRouter(opts...)
	r.Use(
		mw.RequestID,
		mw.CORSWithOptions(nil),
		mw.Metrics,
		mw.LoggerWithOptions(&mw.LoggerOptions{Logger: logger}),
	)

	r.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authHandler := auth.NewHandler(app.auth)
	authHandler.Register(r)

	webhooks := channel.NewWebhookHandler(app.registry, app.bus, channel.NewRedisDeduper(app.rdb), logger)
	webhooks.Register(r)

	widget := channel.NewWidgetHandler(app.widget, app.engine, app.engine, logger)
	widget.Register(r)

	api := r.Group("/api/v1")
	if cfg.Auth.OIDC.ClientID != "" && cfg.Auth.OIDC.Issuer != "" {
		oidcCfg := mw.OIDCProviderConfig{
			ClientID:     cfg.Auth.OIDC.ClientID,
			ClientSecret: cfg.Auth.OIDC.ClientSecret,
			Issuer:       cfg.Auth.OIDC.Issuer,
		}
		api.Use(
			mw.VerifyOIDCToken(oidcCfg, true),
			mw.TenantFromOIDC(cfg.Auth.OIDC.TenantClaimKey),
		)
	} else {
		api.Use(mw.RequireAuth(app.auth))
	}
	authHandler.RegisterProtected(api)
	creator.NewHandler(app.creators, app.bus).Register(api)

	var wg sync.WaitGroup
	if cfg.Metrics.Enabled {
		metrics.StartPrometheusServer(ctx, &wg, &metrics.PromServerOpts{Addr: cfg.Metrics.Addr})
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API server listening", zap.String("addr", cfg.Server.ListenAddr))
		errCh <- r.ListenAndServe(cfg.Server.ListenAddr)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}
	wg.Wait()
}
