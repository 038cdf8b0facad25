package oracled

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"oddsbook/observability/logging"
)

// Main runs the oracle daemon using the provided command line flags.
func Main() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/oracled/config.toml", "path to oracled config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("ODDSBOOK_ENV"))

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("oracled", env, logging.Options{File: cfg.LogFile})

	token := strings.TrimSpace(os.Getenv("ODDSBOOK_RPC_TOKEN"))
	if token == "" {
		token = cfg.NodeToken
	}
	node := NewNodeClient(cfg.NodeURL, token, cfg.OracleAccount)
	feed := NewFeedClient(cfg.FeedURL, cfg.FeedRatePerSec)
	worker := NewWorker(feed, node, logger, time.Duration(cfg.PollSeconds)*time.Second, cfg.TotalsThreshold)

	secret := strings.TrimSpace(os.Getenv("ODDSBOOK_WEBHOOK_SECRET"))
	if secret == "" {
		secret = cfg.WebhookSecret
	}
	webhook := NewWebhookServer(worker, secret, cfg.WebhookIssuer, logger)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      webhook.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 2)
	go func() {
		logger.Info("oracled listening", "addr", cfg.ListenAddress)
		errs <- httpServer.ListenAndServe()
	}()
	go func() {
		errs <- worker.Run(stopCtx)
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed && err != context.Canceled {
			return err
		}
		return nil
	}
}
