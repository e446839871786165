package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/spelling-bee-backend/internal/config"
	"github.com/DoyleJ11/spelling-bee-backend/internal/httpapi"
	"github.com/DoyleJ11/spelling-bee-backend/internal/hub"
	"github.com/DoyleJ11/spelling-bee-backend/internal/logging"
	"github.com/DoyleJ11/spelling-bee-backend/internal/store"
	"github.com/DoyleJ11/spelling-bee-backend/internal/tournament"
)

const releaseVersion = "0.1.0"

func main() {
	log.SetFlags(0)
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg := &config.Server{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Server) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bee-server",
		Short:         "Runs spelling bee tournaments and streams them to displays.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	config.BindServer(cmd, cfg)
	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetVersionTemplate("bee-server v{{.Version}}\n")
	return cmd
}

func openStore(ctx context.Context, dsn string, log *zap.Logger) (store.Store, error) {
	if dsn == "" {
		log.Warn("no --database-url, keeping tournaments in memory")
		return store.NewMemory(), nil
	}
	pg, err := store.OpenPostgres(ctx, dsn, log)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

func serve(parent context.Context, cfg *config.Server) error {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()

	opts := tournament.Options{
		ShuffleDuration: cfg.ShuffleDuration,
		ShuffleInterval: cfg.ShuffleInterval,
	}
	h := hub.NewHub(ctx, func(ctx context.Context, id string) (*tournament.Tournament, error) {
		return tournament.New(ctx, id, st, opts, logger)
	}, logger)

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:       h,
			Store:     st,
			Log:       logger,
			PublicURL: cfg.PublicURL,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if herr := h.Shutdown(shutdownCtx); herr != nil {
			logger.Warn("hub shutdown", zap.Error(herr))
		}
		logger.Info("stopped")
		return err
	})
	return g.Wait()
}
