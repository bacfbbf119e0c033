package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/operator-framework/csv-editor/pkg/lib/profile"
)

const defaultAddress = ":8080"

// Option applies a configuration option to the given config.
type Option func(s *serverConfig)

// GetListenAndServeFunc returns a function that serves the configured
// handler until ctx is done and then shuts the server down.
func GetListenAndServeFunc(options ...Option) (func(ctx context.Context) error, error) {
	sc := defaultServerConfig()
	sc.apply(options)

	return sc.getListenAndServeFunc()
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(sc *serverConfig) {
		sc.logger = logger
	}
}

func WithDebug(debug bool) Option {
	return func(sc *serverConfig) {
		sc.debug = debug
	}
}

// WithAddress sets the listen address.
func WithAddress(address string) Option {
	return func(sc *serverConfig) {
		sc.address = address
	}
}

// WithHandler mounts h at the root of the server.
func WithHandler(h http.Handler) Option {
	return func(sc *serverConfig) {
		sc.handler = h
	}
}

// WithProfiling exposes the pprof handlers. Outside debug mode they only
// answer loopback clients.
func WithProfiling(enabled bool) Option {
	return func(sc *serverConfig) {
		sc.profiling = enabled
	}
}

// WithShutdownTimeout bounds the graceful shutdown.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(sc *serverConfig) {
		sc.shutdownTimeout = timeout
	}
}

// withListener serves on an existing listener. Used by tests.
func withListener(l net.Listener) Option {
	return func(sc *serverConfig) {
		sc.listener = l
	}
}

type serverConfig struct {
	logger          logrus.FieldLogger
	address         string
	handler         http.Handler
	listener        net.Listener
	debug           bool
	profiling       bool
	shutdownTimeout time.Duration
}

func (sc *serverConfig) apply(options []Option) {
	for _, o := range options {
		o(sc)
	}
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		logger:          logrus.StandardLogger(),
		address:         defaultAddress,
		debug:           false,
		shutdownTimeout: 10 * time.Second,
	}
}

func (sc *serverConfig) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())
	if sc.profiling {
		profile.RegisterHandlers(r, profile.WithAll(), profile.WithLocalOnly(!sc.debug))
	}
	if sc.handler != nil {
		r.Mount("/", sc.handler)
	}
	return r
}

func (sc serverConfig) getListenAndServeFunc() (func(ctx context.Context) error, error) {
	if sc.address == "" && sc.listener == nil {
		return nil, fmt.Errorf("no listen address configured")
	}
	if sc.handler == nil {
		sc.logger.Warn("no API handler configured, serving health and metrics only")
	}

	s := &http.Server{
		Handler:           sc.router(),
		Addr:              sc.address,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			var err error
			if sc.listener != nil {
				err = s.Serve(sc.listener)
			} else {
				sc.logger.Infof("serving on %s", sc.address)
				err = s.ListenAndServe()
			}
			errCh <- err
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		sc.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), sc.shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down server: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, nil
}
