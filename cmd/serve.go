package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quangmanh-dev/webscan/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scan core as an HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
		corsOrigins, _ := cmd.Flags().GetStringSlice("cors-origins")
		production, _ := cmd.Flags().GetBool("production")

		defer func() {
			_ = logger.Sync()
		}()

		c, err := buildCore(production)
		if err != nil {
			return err
		}
		defer c.close()

		adminKey := viper.GetString("admin_key")
		if adminKey == "" {
			logger.Warn("no admin_key configured: super-admin elevation is disabled")
		}

		server := api.NewServer(api.Config{
			Sessions:    c.sessions,
			Limiter:     c.limiter,
			Dispatcher:  c.dispatcher,
			AdminKey:    adminKey,
			Logger:      logger,
			CORSOrigins: corsOrigins,
		})

		httpServer := &http.Server{
			Addr:         addr,
			Handler:      server,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("%s scan API listening on %s\n", colorInfo("→"), addr)
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Printf("\n%s received %v, shutting down\n", colorInfo("→"), sig)
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown failed", zap.Error(err))
				_ = httpServer.Close()
			}
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	serveCmd.Flags().StringSlice("cors-origins", nil, "allowed CORS origins (empty allows all)")
	serveCmd.Flags().Bool("production", false, "require production configuration (signing secret)")
	rootCmd.AddCommand(serveCmd)
}
