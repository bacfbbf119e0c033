package filemonitor

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestFilter(t *testing.T) {
	tests := []struct {
		description string
		event       fsnotify.Event
		wants       bool
	}{
		{description: "WriteYAML", event: fsnotify.Event{Name: "csv.yaml", Op: fsnotify.Write}, wants: true},
		{description: "CreateJSON", event: fsnotify.Event{Name: "crd.JSON", Op: fsnotify.Create}, wants: true},
		{description: "RemoveYML", event: fsnotify.Event{Name: "role.yml", Op: fsnotify.Remove}, wants: true},
		{description: "Chmod", event: fsnotify.Event{Name: "csv.yaml", Op: fsnotify.Chmod}, wants: false},
		{description: "SwapFile", event: fsnotify.Event{Name: ".csv.yaml.swp", Op: fsnotify.Write}, wants: false},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			called := false
			ManifestFilter(func(logrus.FieldLogger, fsnotify.Event) { called = true })(logrus.New(), tt.event)
			assert.Equal(t, tt.wants, called)
		})
	}
}

func TestWatcherDeliversEvents(t *testing.T) {
	dir := t.TempDir()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var (
		mu    sync.Mutex
		names []string
	)
	w, err := NewWatch(logger, []string{dir}, ManifestFilter(func(_ logrus.FieldLogger, e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()
		names = append(names, filepath.Base(e.Name))
	}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "csv.yaml"), []byte("kind: x\n"), 0o644))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(names) > 0
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "csv.yaml", names[0])
	mu.Unlock()
}

func TestNewWatchMissingPath(t *testing.T) {
	_, err := NewWatch(logrus.New(), []string{filepath.Join(t.TempDir(), "missing")}, nil)
	assert.Error(t, err)
}
