package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "csv-editor",
		Short: "csv-editor",
		Long:  `Edit, validate and preview ClusterServiceVersion documents.`,

		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("debug", false, "use debug log level")

	rootCmd.AddCommand(
		newServeCmd(),
		newValidateCmd(),
		newPreviewCmd(),
		newImportCmd(),
		newWatchCmd(),
		newCatalogCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// newLogger builds the command logger and reports its level.
func newLogger(cmd *cobra.Command) *log.Logger {
	logger := log.New()
	logger.SetOutput(cmd.ErrOrStderr())
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logger.SetLevel(log.DebugLevel)
	}
	logger.Debugf("log level %s", logger.Level)
	return logger
}
