package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/athlete-draft/internal/catalog"
	"github.com/DoyleJ11/athlete-draft/internal/config"
	"github.com/DoyleJ11/athlete-draft/internal/engine"
	"github.com/DoyleJ11/athlete-draft/internal/httpapi"
	"github.com/DoyleJ11/athlete-draft/internal/hub"
	"github.com/DoyleJ11/athlete-draft/internal/lobby"
	"github.com/DoyleJ11/athlete-draft/internal/logging"
	"github.com/DoyleJ11/athlete-draft/internal/metrics"
	"github.com/DoyleJ11/athlete-draft/internal/ws"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "athlete-draft",
		Short:        "Live snake draft server for fantasy athlete leagues",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newServeCmd(), newOrderCmd())
	return rootCmd
}

type serveFlags struct {
	envFile string
	catalog string
	port    int
}

func newServeCmd() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the draft HTTP and websocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(f.envFile)
			if err != nil {
				return err
			}
			if f.catalog != "" {
				cfg.CatalogPath = f.catalog
			}
			if f.port != 0 {
				cfg.Port = f.port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&f.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.Flags().StringVar(&f.catalog, "catalog", "", "athlete rankings CSV (overrides CATALOG_PATH)")
	cmd.Flags().IntVar(&f.port, "port", 0, "listen port (overrides PORT)")
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	items, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return err
	}
	log.Info("catalog loaded", zap.String("path", cfg.CatalogPath), zap.Int("athletes", len(items)))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector(reg)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, func(ctx context.Context) *lobby.Lobby {
		session := engine.NewSession(items, engine.WithRounds(cfg.Rounds))
		return lobby.NewLobby(ctx, session,
			lobby.WithLogger(log.Named("lobby")),
			lobby.WithRecorder(m),
		)
	}, log.Named("hub"))

	handler := httpapi.SetupRoutes(h, httpapi.Deps{
		Logger:       log.Named("http"),
		Gatherer:     reg,
		Metrics:      m,
		CookieSecure: cfg.CookieSecure,
		WS: ws.Options{
			ClientBuffer:   cfg.ClientBuffer,
			PingInterval:   cfg.PingInterval,
			WriteTimeout:   cfg.WriteTimeout,
			MessageRate:    rate.Limit(cfg.MessageRate),
			MessageBurst:   cfg.MessageBurst,
			OriginPatterns: cfg.AllowedOrigin,
			Logger:         log.Named("ws"),
			Metrics:        m,
		},
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		// Close the draft first so websocket handlers return.
		h.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func newOrderCmd() *cobra.Command {
	var (
		teams  []string
		rounds int
	)
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Print the snake pick order for a fixed draft order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(teams) == 0 {
				return errors.New("--teams is required")
			}
			if rounds <= 0 {
				return fmt.Errorf("--rounds must be positive, got %d", rounds)
			}
			for i := range teams {
				teams[i] = strings.TrimSpace(teams[i])
			}
			for i, team := range engine.BuildSnakeOrder(teams, rounds) {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i+1, team)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&teams, "teams", nil, "draft order, comma separated")
	cmd.Flags().IntVar(&rounds, "rounds", engine.DefaultRounds, "number of rounds")
	return cmd
}
