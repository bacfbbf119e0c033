package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview PATH...",
		Short: "Print the document built from manifest files or directories as YAML",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, report, err := loadDocument(newLogger(cmd), args)
			if err != nil {
				return err
			}
			printReport(cmd.ErrOrStderr(), report)
			out, err := doc.YAML()
			if err != nil {
				return errors.Wrap(err, "error rendering document")
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newImportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "import PATH...",
		Short: "Fold manifests into a ClusterServiceVersion file",
		Long: `Fold CRDs, deployments and roles into a ClusterServiceVersion. A
ClusterServiceVersion among the inputs is used as the base document; the
result is written to --output, or printed when no output is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd)
			doc, report, err := loadDocument(logger, args)
			if err != nil {
				return err
			}
			printReport(cmd.ErrOrStderr(), report)
			out, err := doc.YAML()
			if err != nil {
				return errors.Wrap(err, "error rendering document")
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return errors.Wrapf(err, "error writing %s", output)
			}
			logger.Infof("wrote %s", output)
			return report.Err()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write the document to")
	return cmd
}
