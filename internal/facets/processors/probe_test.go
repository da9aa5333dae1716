package processors

import (
	"encoding/json"
	"testing"
)

func TestProbeResultReadsFormatAndStreams(t *testing.T) {
	payload := `{
		"streams": [
			{"codec_type": "video", "width": 640, "height": 360},
			{"codec_type": "audio", "duration": "12.5"}
		],
		"format": {"duration": "123.45"}
	}`
	var result probeResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d := result.durationSeconds(); d != 123.45 {
		t.Fatalf("duration = %v, want 123.45", d)
	}
	width, height := result.videoDimensions()
	if width != 640 || height != 360 {
		t.Fatalf("dimensions = %dx%d, want 640x360", width, height)
	}
}

func TestProbeDurationFallsBackToStreams(t *testing.T) {
	result := probeResult{
		Streams: []probeStream{
			{CodecType: "audio", Duration: "12.5"},
		},
	}
	if d := result.durationSeconds(); d != 12.5 {
		t.Fatalf("duration = %v, want 12.5", d)
	}

	width, height := result.videoDimensions()
	if width != 0 || height != 0 {
		t.Fatalf("dimensions = %dx%d for audio-only container", width, height)
	}
}

func TestParseProbeFloatRejectsGarbage(t *testing.T) {
	for _, value := range []string{"", "N/A", "-3"} {
		if parsed := parseProbeFloat(value); parsed != 0 {
			t.Fatalf("parseProbeFloat(%q) = %v, want 0", value, parsed)
		}
	}
	if parsed := parseProbeFloat(" 7.25 "); parsed != 7.25 {
		t.Fatalf("parseProbeFloat = %v, want 7.25", parsed)
	}
}
