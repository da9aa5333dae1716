package processors

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"librarian/internal/logging"
)

// runFFmpeg renders dest from src with the given filter args. Returns dest on
// success and "" when the tool fails or times out; a half-written dest is
// removed.
func runFFmpeg(ctx context.Context, logger *slog.Logger, cfg Config, src, dest string, args []string) string {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		logger.Debug("thumb dir create failed", logging.String(logging.FieldPath, dest), logging.Error(err))
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ThumbTimeout)
	defer cancel()

	full := append([]string{"-y", "-loglevel", "error", "-i", src}, args...)
	full = append(full, dest)
	cmd := exec.CommandContext(ctx, cfg.FFmpegBinary, full...)
	if output, err := cmd.CombinedOutput(); err != nil {
		logger.Debug("thumb render failed",
			logging.String(logging.FieldPath, src),
			logging.String("output", string(output)),
			logging.Error(err))
		_ = os.Remove(dest)
		return ""
	}
	return dest
}

func scaleFilter(width, height int) string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", width, height)
}

func qualityArg(quality int) string {
	return fmt.Sprintf("%d", quality)
}
