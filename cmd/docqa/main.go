// Command docqa answers questions about uploaded PDFs and images.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/docqa-go/internal/adapters/loader"
	"github.com/0xcro3dile/docqa-go/internal/adapters/pdf"
	"github.com/0xcro3dile/docqa-go/internal/config"
	"github.com/0xcro3dile/docqa-go/internal/domain/usecases"
	httpserver "github.com/0xcro3dile/docqa-go/internal/infrastructure/http"
	"github.com/0xcro3dile/docqa-go/internal/logging"
	"github.com/0xcro3dile/docqa-go/internal/session"
)

var (
	version    = "0.1.0"
	configPath string
)

func main() {
	root := &cobra.Command{
		Use:           "docqa",
		Short:         "Document Q&A over uploaded PDFs and images",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "docqa.yaml", "path to config file")

	root.AddCommand(serveCmd())
	root.AddCommand(askCmd())
	root.AddCommand(extractCmd())
	root.AddCommand(initCmd())

	if err := root.Execute(); err != nil {
		var reqErr *usecases.RequestError
		if errors.As(err, &reqErr) {
			printJSON(map[string]any{"status_code": reqErr.Status.Code(), "detail": reqErr.Message})
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger.
func setup() (*config.AppConfig, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the inbox watcher when enabled)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.PDF.Reader == "service" {
				if !pdf.NewServiceReader(cfg.PDF.ServiceURL).IsServiceHealthy(ctx) {
					logger.Warn("PDF service not reachable", zap.String("url", cfg.PDF.ServiceURL))
				}
			}

			if cfg.Watcher.Enabled {
				if err := startInbox(ctx, a); err != nil {
					return err
				}
			}

			srv := httpserver.NewServer(a.chat, a.loader, cfg.Server, logger)
			return srv.Start(ctx)
		},
	}
}

func startInbox(ctx context.Context, a *app) error {
	cfg := a.cfg.Watcher
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return err
	}
	watcher, err := filewatcher.NewFSNotifyWatcher(filewatcher.DefaultExtensions, a.logger)
	if err != nil {
		return err
	}

	inbox := usecases.NewInbox(watcher, a.loader, a.chat, 0, a.logger)
	inboxCtx := session.WithID(ctx, cfg.Session)
	go func() {
		defer watcher.Stop()
		if err := inbox.Run(inboxCtx, cfg.Dir); err != nil {
			a.logger.Error("inbox stopped", zap.Error(err))
		}
	}()
	a.logger.Info("inbox enabled", zap.String("dir", cfg.Dir), zap.String("session", cfg.Session))
	return nil
}

func askCmd() *cobra.Command {
	var files []string
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ingest files and answer one question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			ctx := session.WithID(cmd.Context(), "cli")
			defer a.sessions.End(ctx)

			for _, path := range files {
				up, err := a.loader.Load(ctx, path)
				if err != nil {
					return err
				}
				if _, err := a.chat.IngestFile(ctx, up); err != nil {
					return err
				}
			}

			resp, err := a.chat.Ask(ctx, args[0])
			if err != nil {
				return err
			}
			printJSON(resp)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "PDF or image to ingest (repeatable)")
	return cmd
}

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract [path]",
		Short: "Extract text from a PDF or image and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			extractor, err := newExtractor(cfg, logger)
			if err != nil {
				return err
			}
			up, err := loader.NewFileLoader().Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res := extractor.Extract(cmd.Context(), up)
			printJSON(map[string]any{
				"status_code": res.Status.Code(),
				"text":        res.Text,
				"message":     res.Message,
				"metadata":    res.Metadata,
			})
			return nil
		},
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("%s already exists", configPath)
			}
			if err := config.Save(configPath, config.Default()); err != nil {
				return err
			}
			fmt.Println("wrote", configPath)
			return nil
		},
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
