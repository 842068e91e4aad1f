package docgen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultConversionTimeout bounds a single engine invocation
const DefaultConversionTimeout = 60 * time.Second

// maxDiagnostic caps the engine output kept on errors
const maxDiagnostic = 4096

// JobDirPrefix prefixes the per-conversion scratch directories created under TempDir
const JobDirPrefix = "docgen-"

// Converter turns a rendered docx into PDF bytes
type Converter interface {
	Convert(ctx context.Context, docx []byte) ([]byte, error)
}

// OfficeConverter runs a headless LibreOffice engine per job
type OfficeConverter struct {
	// Path overrides candidate probing (SOFFICE_PATH)
	Path string
	// Candidates replaces the per-OS install locations when non-nil
	Candidates []string
	TempDir    string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewOfficeConverter returns a converter using the default candidate list
func NewOfficeConverter(path, tempDir string, timeout time.Duration, logger *zap.Logger) *OfficeConverter {
	return &OfficeConverter{
		Path:    path,
		TempDir: tempDir,
		Timeout: timeout,
		Logger:  logger,
	}
}

func (c *OfficeConverter) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *OfficeConverter) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultConversionTimeout
	}
	return c.Timeout
}

// defaultCandidates lists install locations in probing order
func defaultCandidates(goos string) []string {
	switch goos {
	case "windows":
		return []string{
			`C:\Program Files\LibreOffice\program\soffice.exe`,
			`C:\Program Files (x86)\LibreOffice\program\soffice.exe`,
		}
	case "darwin":
		return []string{
			"/Applications/LibreOffice.app/Contents/MacOS/soffice",
			"/opt/homebrew/bin/soffice",
			"/usr/local/bin/soffice",
		}
	default:
		return []string{
			"/usr/bin/soffice",
			"/usr/local/bin/soffice",
			"/usr/lib/libreoffice/program/soffice",
			"/opt/libreoffice/program/soffice",
			"/snap/bin/libreoffice",
		}
	}
}

func usableExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// ResolveExecutable probes the override, the candidate list and then PATH
func (c *OfficeConverter) ResolveExecutable() (string, error) {
	var probed []string

	if override := strings.Trim(strings.TrimSpace(c.Path), `"`); override != "" {
		if abs, err := filepath.Abs(override); err == nil {
			override = abs
		}
		probed = append(probed, override)
		if usableExecutable(override) {
			return override, nil
		}
		c.logger().Warn("conversion engine override is not executable", zap.String("path", override))
	}

	candidates := c.Candidates
	if candidates == nil {
		candidates = defaultCandidates(runtime.GOOS)
	}
	for _, candidate := range candidates {
		probed = append(probed, candidate)
		if usableExecutable(candidate) {
			return candidate, nil
		}
	}

	for _, name := range []string{"soffice", "libreoffice"} {
		probed = append(probed, "$PATH/"+name)
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", &ConverterNotFoundError{Probed: probed}
}

// Convert writes docx into a private job directory, runs the engine and returns the PDF.
// The job directory is removed whatever the outcome.
func (c *OfficeConverter) Convert(ctx context.Context, docx []byte) ([]byte, error) {
	bin, err := c.ResolveExecutable()
	if err != nil {
		return nil, err
	}

	jobDir, err := os.MkdirTemp(c.TempDir, JobDirPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversion directory: %w", err)
	}
	defer os.RemoveAll(jobDir)

	base := uuid.New().String()
	input := filepath.Join(jobDir, base+".docx")
	if err := os.WriteFile(input, docx, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write conversion input: %w", err)
	}

	timeout := c.timeout()
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, bin, "--headless", "--convert-to", "pdf", "--outdir", jobDir, input)
	cmd.Dir = jobDir
	// A private HOME gives every job its own engine profile.
	cmd.Env = append(os.Environ(), "HOME="+jobDir)
	cmd.WaitDelay = 2 * time.Second
	// soffice is a launcher that forks the real engine
	startInOwnGroup(cmd)

	started := time.Now()
	output, runErr := cmd.CombinedOutput()
	if err := killGroup(cmd); err != nil {
		c.logger().Warn("failed to stop engine processes", zap.Error(err))
	}
	diagnostic := truncate(string(output), maxDiagnostic)

	log := c.logger().With(
		zap.String("engine", bin),
		zap.String("job", base),
		zap.Duration("elapsed", time.Since(started)),
	)

	if runErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			log.Error("conversion timed out", zap.Duration("timeout", timeout))
			return nil, &ConversionTimeoutError{Timeout: timeout.String(), Output: diagnostic}
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		log.Error("conversion failed", zap.Int("exit_code", exitCode), zap.String("output", diagnostic))
		return nil, &ConversionFailedError{ExitCode: exitCode, Output: diagnostic, Err: runErr}
	}

	pdf, err := os.ReadFile(filepath.Join(jobDir, base+".pdf"))
	if err != nil || len(pdf) == 0 {
		if err == nil {
			err = errors.New("empty output file")
		}
		log.Error("conversion produced no output", zap.String("output", diagnostic))
		return nil, &ConversionFailedError{ExitCode: 0, Output: diagnostic, Err: err}
	}

	log.Info("document converted", zap.Int("pdf_bytes", len(pdf)))
	return pdf, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
