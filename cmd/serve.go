package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hh-interviewer/internal/logger"
	"github.com/spigell/hh-interviewer/internal/metrics"
	"github.com/spigell/hh-interviewer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the interview HTTP service",
	PreRunE: bindMaxQuestions,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("address", "", "listen address (default :8080)")
	serveCmd.Flags().String("metrics-address", "", "serve /metrics on a separate listener as well")
	serveCmd.Flags().Int("max-questions", 0, "questions per interview (1-20, default 8)")

	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
	viper.BindPFlag("metrics-address", serveCmd.Flags().Lookup("metrics-address"))
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync() //nolint:errcheck

	config, err := getConfig()
	if err != nil {
		logger.Error("getting a config", zap.Error(err))
		return err
	}

	logger.Info("starting the hh-interviewer", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	var closers []closer
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		closeAll(closeCtx, logger, closers)
	}()

	store, closeStore, err := newStore(ctx, config.Store, logger)
	if err != nil {
		logger.Error("opening session store", zap.String("backend", config.Store.Backend), zap.Error(err))
		return err
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	locker, closeLocker, err := newLocker(ctx, config.Lock, logger)
	if err != nil {
		logger.Error("creating session lock", zap.String("backend", config.Lock.Backend), zap.Error(err))
		return err
	}
	if closeLocker != nil {
		closers = append(closers, closeLocker)
	}

	jobLookup, err := newJobs(config.Jobs, logger)
	if err != nil {
		logger.Error("creating job source", zap.String("source", config.Jobs.Source), zap.Error(err))
		return err
	}

	engine, err := newEngine(ctx, config, engineParts{Store: store, Jobs: jobLookup, Locker: locker}, logger)
	if err != nil {
		logger.Error("creating interview engine", zap.Error(err))
		return err
	}

	logger.Info("interview engine ready",
		zap.Int("max_questions", engine.MaxQuestions()),
		zap.String("store", config.Store.Backend),
		zap.String("lock", config.Lock.Backend),
		zap.String("jobs", config.Jobs.Source),
		zap.String("ai_provider", config.AI.Provider),
	)

	srv := server.New(config.Server, engine, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if addr := viper.GetString("metrics-address"); addr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, addr, logger)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}

func serveMetrics(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listener started", zap.String("address", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics listener: %w", err)
	}
	return nil
}
