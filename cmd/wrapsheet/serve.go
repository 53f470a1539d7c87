package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/berealtors/wrapsheet/internal/api"
	"github.com/berealtors/wrapsheet/internal/auth"
	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/database"
	"github.com/berealtors/wrapsheet/internal/growthzone"
	"github.com/berealtors/wrapsheet/internal/license"
	"github.com/berealtors/wrapsheet/internal/listings"
	"github.com/berealtors/wrapsheet/internal/mailer"
	"github.com/berealtors/wrapsheet/internal/metrics"
	"github.com/berealtors/wrapsheet/internal/ocr"
	"github.com/berealtors/wrapsheet/internal/scheduler"
)

func serveCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Addr = addr
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}

// mailers picks the provider for each message kind. A kind whose provider is
// not configured is dropped by the dispatcher with a warning.
func mailers(cfg *config.Config) map[string]mailer.Mailer {
	out := map[string]mailer.Mailer{}
	if cfg.Mail.From != "" {
		out[mailer.KindCompletion] = &mailer.MailChannels{URL: cfg.Mail.MailChannelURL}
	}
	if cfg.Mail.MailjetKey != "" && cfg.Mail.MailjetSecret != "" {
		out[mailer.KindLogs] = &mailer.Mailjet{
			URL:       cfg.Mail.MailjetURL,
			APIKey:    cfg.Mail.MailjetKey,
			APISecret: cfg.Mail.MailjetSecret,
		}
	}
	return out
}

// services wires every collaborator of the API around db.
type services struct {
	deps   api.Deps
	syncer *growthzone.Syncer
}

func buildServices(cfg *config.Config, db database.Repository, logger *slog.Logger) services {
	m := metrics.New()
	gz := growthzone.NewClient(cfg.GZ.BaseURL, cfg.GZ.APIKey, config.UpstreamTimeout)

	svc := services{deps: api.Deps{
		Store:    db,
		Mail:     mailer.NewDispatcher(mailers(cfg), logger, m, config.MailTimeout),
		License:  license.New(config.UpstreamTimeout),
		OCR:      ocr.New(cfg.Gemini.BaseURL, cfg.Gemini.Model, cfg.Gemini.APIKey, config.UpstreamTimeout),
		Auth:     auth.New(cfg.Admin.TokenHash, cfg.Admin.JWTSecret, config.AdminSessionTTL),
		Metrics:  m,
		GZProxy:  growthzone.NewProxy(gz),
		Listings: listings.New(cfg.Listings.UpstreamURL, cfg.Listings.BridgeToken, cfg.Listings.CacheTTL, config.UpstreamTimeout, logger),
		Logger:   logger,
		Config:   cfg,
	}}
	if gz.APIKey != "" {
		svc.syncer = growthzone.NewSyncer(gz, db, cfg.GZ.SyncLookback, logger, m)
		svc.deps.Syncer = svc.syncer
	}
	return svc
}

func (a *app) serve(ctx context.Context) error {
	warnings, err := a.cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, w := range warnings {
		a.logger.Warn(w)
	}

	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc := buildServices(a.cfg, db, a.logger)
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           api.New(svc.deps).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	jobs := scheduler.New(a.logger, svc.deps.Metrics)
	if svc.syncer != nil {
		err := jobs.Every(ctx, "office_sync", a.cfg.GZ.SyncInterval, func(ctx context.Context) error {
			_, err := svc.syncer.Run(ctx)
			return err
		})
		if err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.cfg.Addr, "db", a.cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown failed", "error", err)
	}
	jobs.Wait()
	svc.deps.Mail.Wait()
	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}
