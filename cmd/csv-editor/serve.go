package main

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/operator-framework/csv-editor/pkg/feature"
	"github.com/operator-framework/csv-editor/pkg/lib/filemonitor"
	libserver "github.com/operator-framework/csv-editor/pkg/lib/server"
	"github.com/operator-framework/csv-editor/pkg/lib/signals"
	"github.com/operator-framework/csv-editor/pkg/manifests"
	"github.com/operator-framework/csv-editor/pkg/metrics"
	"github.com/operator-framework/csv-editor/pkg/server"
)

const defaultAddress = ":8080"

type serveOptions struct {
	address    string
	debug      bool
	profiling  bool
	watchDir   string
	configPath string
}

func newServeCmd() *cobra.Command {
	o := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editor API",
		Long: `Serve the editor API over HTTP. With --watch-dir a session is seeded from the
manifests of the directory and re-imported whenever they change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.debug, _ = cmd.Flags().GetBool("debug")
			if o.configPath != "" {
				c, err := loadConfig(o.configPath)
				if err != nil {
					return err
				}
				c.applyTo(&o, cmd.Flags())
				if !cmd.Flags().Changed("feature-gates") && len(c.FeatureGates) > 0 {
					if err := feature.Set(c.featureGateString()); err != nil {
						return errors.Wrap(err, "invalid feature gates in config")
					}
				}
			}

			logger := logrus.New()
			logger.SetOutput(cmd.ErrOrStderr())
			if o.debug {
				logger.SetLevel(logrus.DebugLevel)
			}
			logger.Infof("log level %s", logger.Level)

			ctx, cancel := context.WithCancel(signals.Context())
			defer cancel()

			return o.run(ctx, logger)
		},
	}

	cmd.Flags().StringVar(&o.address, "address", defaultAddress, "address to serve the API on")
	cmd.Flags().BoolVar(&o.profiling, "profiling", false, "serve pprof handlers")
	cmd.Flags().StringVar(&o.watchDir, "watch-dir", "", "manifest directory to seed and refresh a session from")
	cmd.Flags().StringVar(&o.configPath, "config", "", "path to a YAML config file; flags override its values")
	feature.AddFlag(cmd.Flags())

	return cmd
}

func (o *serveOptions) run(ctx context.Context, logger *logrus.Logger) error {
	metrics.Register()

	store := server.NewStore(logger)
	api := server.NewAPI(server.WithLogger(logger), server.WithStore(store))

	serve, err := libserver.GetListenAndServeFunc(
		libserver.WithLogger(logger),
		libserver.WithAddress(o.address),
		libserver.WithHandler(api),
		libserver.WithDebug(o.debug),
		libserver.WithProfiling(o.profiling),
	)
	if err != nil {
		return errors.Wrap(err, "error configuring server")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serve(ctx)
	})

	if o.watchDir != "" {
		if err := o.watch(ctx, logger, store); err != nil {
			return err
		}
	}

	return g.Wait()
}

// watch seeds a session from the watched directory and replaces its document
// on every manifest change.
func (o *serveOptions) watch(ctx context.Context, logger *logrus.Logger, store *server.Store) error {
	importer := manifests.NewImporter(manifests.WithLogger(logger))
	session := store.Create()
	log := logger.WithFields(logrus.Fields{"session": session.State().ID(), "dir": o.watchDir})

	reload := func() {
		session.Lock()
		defer session.Unlock()
		doc, report, err := importer.ImportDir(session.State().Operator(), o.watchDir)
		if err != nil {
			log.WithError(err).Warn("error importing manifests")
			return
		}
		if err := report.Err(); err != nil {
			log.WithError(err).Warn("some manifests failed to import")
		}
		session.Replace(doc)
		log.Infof("imported %d manifests", report.Count(manifests.Imported))
	}
	reload()

	w, err := filemonitor.NewWatch(logger, []string{o.watchDir}, filemonitor.ManifestFilter(
		func(_ logrus.FieldLogger, _ fsnotify.Event) {
			reload()
		},
	))
	if err != nil {
		return errors.Wrapf(err, "error watching %s", o.watchDir)
	}
	w.Run(ctx)
	log.Info("watching manifests")
	return nil
}
