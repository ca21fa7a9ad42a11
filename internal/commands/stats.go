package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/filesmanager/api/internal/database"
	"github.com/filesmanager/api/internal/services"
	"github.com/spf13/cobra"
)

var flagJSON bool

type statsOutput struct {
	Users      int64 `json:"users"`
	Files      int64 `json:"files"`
	Redis      bool  `json:"redis"`
	DB         bool  `json:"db"`
	Pending    int64 `json:"pendingThumbnails"`
	Processing int64 `json:"processingThumbnails"`
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print user and file counts and store health",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		stats, err := services.NewUserService(rt.db).Stats(ctx)
		if err != nil {
			return fmt.Errorf("counting records: %w", err)
		}

		out := statsOutput{
			Users: stats.Users,
			Files: stats.Files,
			Redis: rt.cache.IsAlive(ctx),
			DB:    database.Ping(rt.db),
		}
		if depth, err := rt.queue.Depth(ctx); err == nil {
			out.Pending = depth.Pending
			out.Processing = depth.Processing
		}

		w := cmd.OutOrStdout()
		if flagJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Users:\t%d\n", out.Users)
		fmt.Fprintf(tw, "Files:\t%d\n", out.Files)
		fmt.Fprintf(tw, "Redis:\t%v\n", out.Redis)
		fmt.Fprintf(tw, "Database:\t%v\n", out.DB)
		fmt.Fprintf(tw, "Thumbnails pending:\t%d\n", out.Pending)
		fmt.Fprintf(tw, "Thumbnails processing:\t%d\n", out.Processing)
		return tw.Flush()
	},
}

func init() {
	statsCmd.Flags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(statsCmd)
}
