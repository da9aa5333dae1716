package processors

import (
	"context"
	"encoding/json"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"librarian/internal/logging"
)

// probeResult is the subset of ffprobe's JSON report the facet extractors
// read.
type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// durationSeconds prefers the container duration and falls back to the first
// stream reporting one.
func (r probeResult) durationSeconds() float64 {
	if d := parseProbeFloat(r.Format.Duration); d > 0 {
		return d
	}
	for _, stream := range r.Streams {
		if d := parseProbeFloat(stream.Duration); d > 0 {
			return d
		}
	}
	return 0
}

// videoDimensions returns the width and height of the first video stream.
func (r probeResult) videoDimensions() (int, int) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") && stream.Width > 0 {
			return stream.Width, stream.Height
		}
	}
	return 0, 0
}

func parseProbeFloat(value string) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

// probeMedia runs ffprobe over path and decodes its JSON report. Failures are
// soft: the caller keeps whatever the tag parsers extracted.
func probeMedia(ctx context.Context, logger *slog.Logger, cfg Config, path string) (probeResult, bool) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ThumbTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, cfg.FFprobeBinary,
		"-v", "error", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		logger.Debug("media probe failed", logging.String(logging.FieldPath, path), logging.Error(err))
		return probeResult{}, false
	}
	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		logger.Debug("media probe parse failed", logging.String(logging.FieldPath, path), logging.Error(err))
		return probeResult{}, false
	}
	return result, true
}
