package profile

import (
	"net"
	"net/http"
	"net/http/pprof"

	"github.com/go-chi/chi/v5"
)

type profileConfig struct {
	pprof     bool
	cmdline   bool
	profile   bool
	symbol    bool
	trace     bool
	localOnly bool
}

// Option applies a configuration option to the given config.
type Option func(p *profileConfig)

func (p *profileConfig) apply(options []Option) {
	if len(options) == 0 {
		// If no options are given, default to all
		p.pprof = true
		p.cmdline = true
		p.profile = true
		p.symbol = true
		p.trace = true

		return
	}

	for _, o := range options {
		o(p)
	}
}

// WithAll enables every profile handler.
func WithAll() Option {
	return func(p *profileConfig) {
		p.pprof = true
		p.cmdline = true
		p.profile = true
		p.symbol = true
		p.trace = true
	}
}

// WithLocalOnly rejects requests that do not come from a loopback address.
func WithLocalOnly(localOnly bool) Option {
	return func(p *profileConfig) {
		p.localOnly = localOnly
	}
}

func defaultProfileConfig() *profileConfig {
	// Initialize config
	return &profileConfig{}
}

// RegisterHandlers registers profile Handlers with the given router.
//
// The Handlers registered are determined by the given options.
// If no options are given, all available handlers are registered by default.
func RegisterHandlers(r chi.Router, options ...Option) {
	config := defaultProfileConfig()
	config.apply(options)

	wrap := func(h http.HandlerFunc) http.Handler {
		if config.localOnly {
			return requireLoopback(h)
		}
		return h
	}

	if config.pprof {
		r.Handle("/debug/pprof/*", wrap(pprof.Index))
	}
	if config.cmdline {
		r.Handle("/debug/pprof/cmdline", wrap(pprof.Cmdline))
	}
	if config.profile {
		r.Handle("/debug/pprof/profile", wrap(pprof.Profile))
	}
	if config.symbol {
		r.Handle("/debug/pprof/symbol", wrap(pprof.Symbol))
	}
	if config.trace {
		r.Handle("/debug/pprof/trace", wrap(pprof.Trace))
	}
}

func requireLoopback(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		h.ServeHTTP(w, r)
	})
}
