package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acoeffic/readon/internal/assistant"
	"github.com/acoeffic/readon/internal/badge"
	"github.com/acoeffic/readon/internal/billing"
	"github.com/acoeffic/readon/internal/blobstore"
	"github.com/acoeffic/readon/internal/config"
	"github.com/acoeffic/readon/internal/kindle"
	"github.com/acoeffic/readon/internal/notify"
	"github.com/acoeffic/readon/internal/server"
	"github.com/acoeffic/readon/internal/system"
)

var (
	serveWatch bool
	tokenTTL   time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP backend",
	RunE:  runServe,
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send one round of streak reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		sender, release, err := notify.NewSender(cfg.Notify, logger)
		if err != nil {
			return err
		}
		defer release()

		res, err := notify.NewDispatcher(st, sender, logger).Run(ctx, time.Now())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <user>",
	Short: "Issue a bearer token, e.g. for the browser extension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		token, err := st.IssueToken(ctx, args[0], tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload the config file when it changes")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (0: never expires)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	system.InitResourceLimits(logger)

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	bucket, err := openBucket()
	if err != nil {
		return err
	}
	reg := newFonts()
	go func() { _ = reg.Load(ctx, nil) }()

	var chat *assistant.Service
	if cfg.OpenAI.APIKey != "" {
		llm, err := assistant.NewOpenAIClient(cfg.OpenAI)
		if err != nil {
			return err
		}
		chat = assistant.NewService(st, llm, logger)
		chat.SetForcePremium(cfg.Dev.ForcePremium)
	} else {
		logger.Warn("OPENAI_API_KEY not set, ai-chat is disabled")
	}

	sender, release, err := notify.NewSender(cfg.Notify, logger)
	if err != nil {
		return err
	}
	defer release()

	srv, err := server.New(server.Options{
		Store:     st,
		Assistant: chat,
		Billing:   billing.NewProcessor(st, cfg.Billing.WebhookSecret, logger),
		Reminders: notify.NewDispatcher(st, sender, logger),
		Badges:    badge.NewGenerator(st, bucket, reg, logger),
		Kindle:    kindle.NewSyncService(st, logger),
		Buckets:   []blobstore.Bucket{bucket},
		Fonts:     reg,
		Log:       logger,
		Timeout:   cfg.Server.RequestTimeout,
	})
	if err != nil {
		return err
	}

	if serveWatch {
		w, err := config.NewWatcher(configPath, logger)
		if err != nil {
			return err
		}
		w.OnChange(func(c *config.Config) {
			srv.SetTimeout(c.Server.RequestTimeout)
			if chat != nil {
				chat.SetForcePremium(c.Dev.ForcePremium)
			}
		})
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
