//go:build linux

package irq

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGPIO(t *testing.T) {
	root := t.TempDir()
	SysfsGPIORoot = root
	defer func() { SysfsGPIORoot = "/sys/class/gpio" }()
	dir := filepath.Join(root, "gpio17")
	require.NoError(t, os.Mkdir(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "value"), []byte("0\n"), 0644))

	var count atomic.Int32
	g, err := NewGPIO(17, NotifyFunc(func() { count.Add(1) }))
	require.NoError(t, err)
	require.Equal(t, "irq-gpio17", g.Name())
	edge, err := os.ReadFile(filepath.Join(dir, "edge"))
	require.NoError(t, err)
	require.Equal(t, "falling", string(edge))

	g.Recheck = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- g.Run(ctx) }()
	require.Eventually(t, func() bool { return count.Load() > 0 }, 5*time.Second, time.Millisecond)
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestGPIOExportFailure(t *testing.T) {
	SysfsGPIORoot = filepath.Join(t.TempDir(), "missing")
	defer func() { SysfsGPIORoot = "/sys/class/gpio" }()
	_, err := NewGPIO(3, NotifyFunc(func() {}))
	require.Error(t, err)
}
