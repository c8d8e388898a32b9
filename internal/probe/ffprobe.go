package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/heimdex/reelquiz/internal/logging"
)

const maxStderrBytes = 8 * 1024 // tail of stderr kept for diagnostics

type Config struct {
	Binary  string        // ffprobe binary; empty = "ffprobe" on PATH
	Timeout time.Duration // per-file timeout
	Logger  *slog.Logger
}

// FFprobe runs `ffprobe -print_format json` as a subprocess.
type FFprobe struct {
	cfg    Config
	binary string
}

// NewFFprobe resolves the ffprobe binary. It fails when the binary is not
// found; callers fall back to StubProber.
func NewFFprobe(cfg Config) (*FFprobe, error) {
	name := cfg.Binary
	if name == "" {
		name = "ffprobe"
	}
	binary, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("cannot locate ffprobe %q: %w", name, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cfg.Logger.Info("ffprobe resolved", "binary", binary)
	return &FFprobe{cfg: cfg, binary: binary}, nil
}

func (f *FFprobe) Probe(ctx context.Context, path string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.binary,
		"-v", "error",
		"-show_entries", "format=duration,format_name",
		"-print_format", "json",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Writer(&limitedWriter{w: &stderr, limit: maxStderrBytes})

	start := time.Now()
	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		f.cfg.Logger.Warn("ffprobe failed",
			"path", logging.SanitizePath(path),
			"exit_code", exitCode,
			"stderr_tail", truncate(stderr.String(), 512),
		)
		return Result{}, fmt.Errorf("ffprobe exited %d: %s", exitCode, strings.TrimSpace(truncate(stderr.String(), 512)))
	}

	res, err := parseOutput(stdout.Bytes())
	if err != nil {
		return Result{}, err
	}
	f.cfg.Logger.Debug("ffprobe succeeded",
		"path", logging.SanitizePath(path),
		"duration_ms", res.Duration.Milliseconds(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

type ffprobeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

func parseOutput(data []byte) (Result, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Result{}, fmt.Errorf("cannot parse ffprobe JSON: %w", err)
	}
	if out.Format.Duration == "" || out.Format.Duration == "N/A" {
		return Result{}, ErrUnknownDuration
	}
	secs, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil || secs <= 0 || math.IsInf(secs, 0) || math.IsNaN(secs) {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownDuration, out.Format.Duration)
	}
	return Result{
		Duration: time.Duration(math.Round(secs*1000)) * time.Millisecond,
		Format:   out.Format.FormatName,
		ProbedAt: time.Now(),
	}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
