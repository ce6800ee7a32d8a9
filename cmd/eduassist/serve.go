package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eduassist/internal/api"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(debug *bool) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := setupLogger(*debug)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer log.Sync()

			cfg := loadConfigOrExit(log)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, err := buildDeps(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("wire dependencies: %w", err)
			}
			defer d.vectors.Close()

			handlers := api.NewHandlers(d.orch, d.machine, d.sessions, d.vectors, d.embedder, log)
			router := api.NewRouter(handlers)

			srv := &http.Server{Addr: addr, Handler: router}

			go func() {
				log.Info("http server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("server error", zap.Error(err))
				}
			}()

			<-ctx.Done()
			log.Info("server stopping...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	return cmd
}
