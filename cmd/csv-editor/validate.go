package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/operator-framework/csv-editor/pkg/metrics"
	"github.com/operator-framework/csv-editor/pkg/validation"
)

var errInvalid = errors.New("document is not valid")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate PATH...",
		Short: "Validate the document built from manifest files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd)
			doc, report, err := loadDocument(logger, args)
			if err != nil {
				return err
			}
			printReport(cmd.ErrOrStderr(), report)

			start := time.Now()
			failures := validation.Default.Failures(doc)
			if len(failures) == 0 {
				metrics.RegisterValidationSuccess(time.Since(start))
				fmt.Fprintln(cmd.OutOrStdout(), "valid")
				return nil
			}
			metrics.RegisterValidationFailure(time.Since(start))
			for _, f := range failures {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", f.Path, f.Error.Error())
			}
			return errInvalid
		},
	}
}
