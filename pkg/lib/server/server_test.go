package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

var apiHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, "api")
})

func TestRouter(t *testing.T) {
	tests := []struct {
		description string
		options     []Option
		path        string
		remoteAddr  string
		code        int
	}{
		{
			description: "Healthz",
			path:        "/healthz",
			code:        http.StatusOK,
		},
		{
			description: "Metrics",
			path:        "/metrics",
			code:        http.StatusOK,
		},
		{
			description: "MountedHandler",
			options:     []Option{WithHandler(apiHandler)},
			path:        "/api/v1/sessions",
			code:        http.StatusOK,
		},
		{
			description: "ProfilingDisabled",
			path:        "/debug/pprof/cmdline",
			code:        http.StatusNotFound,
		},
		{
			description: "ProfilingRejectsRemoteClients",
			options:     []Option{WithProfiling(true)},
			path:        "/debug/pprof/cmdline",
			code:        http.StatusForbidden,
		},
		{
			description: "ProfilingAllowsLoopback",
			options:     []Option{WithProfiling(true)},
			path:        "/debug/pprof/cmdline",
			remoteAddr:  "127.0.0.1:4321",
			code:        http.StatusOK,
		},
		{
			description: "ProfilingOpenInDebug",
			options:     []Option{WithProfiling(true), WithDebug(true)},
			path:        "/debug/pprof/cmdline",
			code:        http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			sc := defaultServerConfig()
			sc.apply(append([]Option{WithLogger(discardLogger())}, tt.options...))

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.remoteAddr != "" {
				req.RemoteAddr = tt.remoteAddr
			}
			rec := httptest.NewRecorder()
			sc.router().ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestListenAndServeStopsWithContext(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	serve, err := GetListenAndServeFunc(
		WithLogger(discardLogger()),
		WithHandler(apiHandler),
		withListener(l),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx)
	}()

	resp, err := http.Get("http://" + l.Addr().String() + "/anything")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "api", string(body))

	cancel()
	assert.NoError(t, <-done)
}

func TestGetListenAndServeFuncRequiresAddress(t *testing.T) {
	_, err := GetListenAndServeFunc(WithLogger(discardLogger()), WithAddress(""))
	assert.Error(t, err)
}
