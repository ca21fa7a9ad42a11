package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/filesmanager/api/internal/services"
	"github.com/filesmanager/api/pkg/logger"
	"github.com/spf13/cobra"
)

var flagConcurrency int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume thumbnail jobs until interrupted",
	Long: `worker generates 500, 250 and 100 pixel wide thumbnails for every
uploaded image. Jobs left unfinished by a previous worker are requeued on
start, so run one worker per queue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Init("worker")

		concurrency := cfg.Thumbnail.Concurrency
		if flagConcurrency > 0 {
			concurrency = flagConcurrency
		}

		rt, err := connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		recovered, err := rt.queue.RecoverStale(ctx)
		if err != nil {
			logger.Error("thumbnail_recovery_failed", err, nil)
		} else if recovered > 0 {
			logger.Info("thumbnail_jobs_requeued", map[string]interface{}{
				"count": recovered,
			})
		}

		thumbnails := services.NewThumbnailService(rt.db, rt.store)
		return rt.queue.Process(ctx, concurrency, thumbnails.Process)
	},
}

func init() {
	workerCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Jobs processed in parallel (default: THUMBNAIL_CONCURRENCY or 4)")
	rootCmd.AddCommand(workerCmd)
}
