package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/filesmanager/api/internal/config"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "filesmanager",
	Short: "Files manager API server and thumbnail worker",
	Long: `filesmanager runs the files manager HTTP API and its background
thumbnail worker. Both processes read their settings from the environment
or a .env file in the working directory.

  filesmanager serve     Start the HTTP API
  filesmanager worker    Consume thumbnail jobs
  filesmanager stats     Print user and file counts`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
