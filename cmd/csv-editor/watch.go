package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/operator-framework/csv-editor/pkg/lib/filemonitor"
	"github.com/operator-framework/csv-editor/pkg/lib/signals"
	"github.com/operator-framework/csv-editor/pkg/validation"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch DIR",
		Short: "Revalidate a manifest directory whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd)
			ctx, cancel := context.WithCancel(signals.Context())
			defer cancel()
			return watchDir(ctx, logger, cmd.OutOrStdout(), args[0])
		},
	}
}

func watchDir(ctx context.Context, logger *logrus.Logger, out io.Writer, dir string) error {
	check := func() {
		doc, report, err := loadDocument(logger, []string{dir})
		if err != nil {
			logger.WithError(err).Warn("error loading manifests")
			return
		}
		printReport(out, report)
		failures := validation.Default.Failures(doc)
		if len(failures) == 0 {
			fmt.Fprintln(out, "valid")
			return
		}
		fmt.Fprintf(out, "%d invalid fields\n", len(failures))
		for _, f := range failures {
			fmt.Fprintf(out, "  %s: %s\n", f.Path, f.Error.Error())
		}
	}
	check()

	w, err := filemonitor.NewWatch(logger, []string{dir}, filemonitor.ManifestFilter(
		func(_ logrus.FieldLogger, event fsnotify.Event) {
			logger.Debugf("%s changed", event.Name)
			check()
		},
	))
	if err != nil {
		return errors.Wrapf(err, "error watching %s", dir)
	}
	w.Run(ctx)
	<-ctx.Done()
	return nil
}
