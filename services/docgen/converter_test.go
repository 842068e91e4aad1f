package docgen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSoffice writes an executable shell script standing in for the engine
func fakeSoffice(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine is a shell script")
	}
	path := filepath.Join(t.TempDir(), "soffice")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// writesPDF mimics the engine: <outdir>/<input basename>.pdf
const writesPDF = `echo "$@" > "$FAKE_SOFFICE_RECORD"
echo "$HOME" >> "$FAKE_SOFFICE_RECORD"
base=$(basename "$6" .docx)
printf '%%PDF-1.4 fake' > "$5/$base.pdf"
echo "converted $6"`

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "job files must be removed")
}

func newTestConverter(t *testing.T, bin string) (*OfficeConverter, string) {
	t.Helper()
	tempRoot := t.TempDir()
	return &OfficeConverter{
		Path:       bin,
		Candidates: []string{},
		TempDir:    tempRoot,
		Timeout:    5 * time.Second,
	}, tempRoot
}

func TestOfficeConverterSuccess(t *testing.T) {
	record := filepath.Join(t.TempDir(), "record.txt")
	t.Setenv("FAKE_SOFFICE_RECORD", record)

	conv, tempRoot := newTestConverter(t, fakeSoffice(t, writesPDF))
	pdf, err := conv.Convert(context.Background(), []byte("docx bytes"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(pdf))

	recorded, err := os.ReadFile(record)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(recorded)), "\n")
	require.Len(t, lines, 2)

	args := strings.Fields(lines[0])
	require.Len(t, args, 6)
	assert.Equal(t, []string{"--headless", "--convert-to", "pdf", "--outdir"}, args[:4])
	jobDir := args[4]
	assert.Equal(t, tempRoot, filepath.Dir(jobDir))
	assert.Equal(t, jobDir, filepath.Dir(args[5]))
	assert.True(t, strings.HasSuffix(args[5], ".docx"))
	assert.Equal(t, jobDir, lines[1], "engine runs with a private HOME")

	assertEmptyDir(t, tempRoot)
}

func TestOfficeConverterUniqueJobs(t *testing.T) {
	record := filepath.Join(t.TempDir(), "record.txt")
	t.Setenv("FAKE_SOFFICE_RECORD", record)
	conv, _ := newTestConverter(t, fakeSoffice(t, writesPDF))

	seen := make(map[string]bool)
	for range 3 {
		_, err := conv.Convert(context.Background(), []byte("docx"))
		require.NoError(t, err)
		recorded, err := os.ReadFile(record)
		require.NoError(t, err)
		input := strings.Fields(string(recorded))[5]
		assert.False(t, seen[input], "input names must not repeat")
		seen[input] = true
	}
}

func TestOfficeConverterFailure(t *testing.T) {
	conv, tempRoot := newTestConverter(t, fakeSoffice(t, `echo "Error: source file could not be loaded" >&2
exit 3`))

	_, err := conv.Convert(context.Background(), []byte("docx"))
	require.Error(t, err)

	var failed *ConversionFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, 3, failed.ExitCode)
	assert.Contains(t, failed.Output, "source file could not be loaded")
	assertEmptyDir(t, tempRoot)
}

func TestOfficeConverterMissingOutput(t *testing.T) {
	conv, tempRoot := newTestConverter(t, fakeSoffice(t, `echo "nothing to do"`))

	_, err := conv.Convert(context.Background(), []byte("docx"))

	var failed *ConversionFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, 0, failed.ExitCode)
	assert.Contains(t, failed.Output, "nothing to do")
	assertEmptyDir(t, tempRoot)
}

func TestOfficeConverterTimeout(t *testing.T) {
	conv, tempRoot := newTestConverter(t, fakeSoffice(t, `sleep 10`))
	conv.Timeout = 200 * time.Millisecond

	started := time.Now()
	_, err := conv.Convert(context.Background(), []byte("docx"))
	require.Error(t, err)
	assert.Less(t, time.Since(started), 5*time.Second)

	var timeout *ConversionTimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, "200ms", timeout.Timeout)
	assertEmptyDir(t, tempRoot)
}

func TestOfficeConverterNotFound(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("execute bits are not checked on windows")
	}
	t.Setenv("PATH", t.TempDir())

	dir := t.TempDir()
	notExecutable := filepath.Join(dir, "soffice-plain")
	require.NoError(t, os.WriteFile(notExecutable, []byte("#!/bin/sh\n"), 0o644))

	tempRoot := t.TempDir()
	conv := &OfficeConverter{
		Path:       filepath.Join(dir, "missing-override"),
		Candidates: []string{"/nonexistent/soffice", dir, notExecutable},
		TempDir:    tempRoot,
	}

	_, err := conv.Convert(context.Background(), []byte("docx"))
	require.Error(t, err)

	var notFound *ConverterNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, []string{
		filepath.Join(dir, "missing-override"),
		"/nonexistent/soffice",
		dir,
		notExecutable,
		"$PATH/soffice",
		"$PATH/libreoffice",
	}, notFound.Probed)
	assertEmptyDir(t, tempRoot)
}

func TestResolveExecutableOrder(t *testing.T) {
	first := fakeSoffice(t, "exit 0")
	second := fakeSoffice(t, "exit 0")

	t.Run("Override wins", func(t *testing.T) {
		conv := &OfficeConverter{Path: first, Candidates: []string{second}}
		bin, err := conv.ResolveExecutable()
		require.NoError(t, err)
		assert.Equal(t, first, bin)
	})

	t.Run("Candidates follow an unusable override", func(t *testing.T) {
		conv := &OfficeConverter{Path: "/nonexistent/soffice", Candidates: []string{"/also/missing", second}}
		bin, err := conv.ResolveExecutable()
		require.NoError(t, err)
		assert.Equal(t, second, bin)
	})

	t.Run("PATH is probed last", func(t *testing.T) {
		t.Setenv("PATH", filepath.Dir(first))
		conv := &OfficeConverter{Candidates: []string{}}
		bin, err := conv.ResolveExecutable()
		require.NoError(t, err)
		assert.Equal(t, first, bin)
	})
}

func TestDefaultCandidates(t *testing.T) {
	assert.Contains(t, defaultCandidates("linux"), "/usr/bin/soffice")
	assert.Contains(t, defaultCandidates("darwin"), "/Applications/LibreOffice.app/Contents/MacOS/soffice")
	assert.Contains(t, defaultCandidates("windows"), `C:\Program Files\LibreOffice\program\soffice.exe`)
}
