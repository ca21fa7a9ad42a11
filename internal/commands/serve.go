package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/filesmanager/api/internal/router"
	"github.com/filesmanager/api/internal/services"
	"github.com/filesmanager/api/pkg/logger"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var flagPort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Init("api")

		if flagPort != "" {
			cfg.Server.Port = flagPort
		}

		rt, err := connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		users := services.NewUserService(rt.db)
		app := router.New(router.Deps{
			Server: cfg.Server,
			DB:     rt.db,
			Cache:  rt.cache,
			Tokens: services.NewTokenService(rt.db, rt.cache, cfg.Session.TTL),
			Users:  users,
			Files:  services.NewFileService(rt.db, rt.store, rt.queue),
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- app.Listen(":" + cfg.Server.Port)
		}()

		logger.Info("server_started", map[string]interface{}{
			"port":            cfg.Server.Port,
			"storage_driver":  cfg.Storage.Driver,
			"db_driver":       cfg.DB.Driver,
			"session_ttl_sec": int(cfg.Session.TTL.Seconds()),
		})

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("server_shutting_down", nil)
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("server_shutdown_failed", err, nil)
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagPort, "port", "", "Override the listen port (default: PORT or 5000)")
	rootCmd.AddCommand(serveCmd)
}
