package signals

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithShutdownCancelsOnSignal(t *testing.T) {
	ctx, cancel := WithShutdown(context.Background(), nil)
	defer cancel()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled by SIGTERM")
	}
}

func TestWithShutdownCancel(t *testing.T) {
	ctx, cancel := WithShutdown(context.Background(), nil)
	cancel()
	require.Error(t, ctx.Err())
}
