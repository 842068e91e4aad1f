//go:build unix

package docgen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// processAlive treats zombies as gone: they are dead, just not reaped yet
func processAlive(pid int) bool {
	if err := syscall.Kill(pid, 0); err != nil {
		return false
	}
	stat, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return true
	}
	fields := strings.Fields(string(stat[strings.LastIndexByte(string(stat), ')')+1:]))
	return len(fields) == 0 || fields[0] != "Z"
}

func TestOfficeConverterTimeoutKillsForkedEngine(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "engine.pid")
	t.Setenv("FAKE_SOFFICE_CHILD", pidFile)

	// the launcher forks the long running engine instead of exec'ing it
	conv, tempRoot := newTestConverter(t, fakeSoffice(t, `sleep 30 &
echo $! > "$FAKE_SOFFICE_CHILD"
wait`))
	conv.Timeout = 300 * time.Millisecond

	_, err := conv.Convert(context.Background(), []byte("docx"))
	var timeout *ConversionTimeoutError
	require.True(t, errors.As(err, &timeout), "got %v", err)

	raw, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = syscall.Kill(pid, syscall.SIGKILL) })

	assert.Eventually(t, func() bool { return !processAlive(pid) }, 2*time.Second, 20*time.Millisecond,
		"engine process %d outlived the timeout", pid)
	assertEmptyDir(t, tempRoot)
}

func TestOfficeConverterFailureStopsLeftoverProcesses(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "engine.pid")
	t.Setenv("FAKE_SOFFICE_CHILD", pidFile)

	conv, _ := newTestConverter(t, fakeSoffice(t, `sleep 30 >/dev/null 2>&1 &
echo $! > "$FAKE_SOFFICE_CHILD"
exit 3`))

	_, err := conv.Convert(context.Background(), []byte("docx"))
	var failed *ConversionFailedError
	require.True(t, errors.As(err, &failed), "got %v", err)
	assert.Equal(t, 3, failed.ExitCode)

	raw, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = syscall.Kill(pid, syscall.SIGKILL) })

	assert.Eventually(t, func() bool { return !processAlive(pid) }, 2*time.Second, 20*time.Millisecond)
}
