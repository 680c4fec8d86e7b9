// Package media wraps the external ffprobe/ffmpeg tools used to inspect
// clips and decode still frames from them.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ProbeResult holds the technical attributes of a clip.
type ProbeResult struct {
	Duration  float64
	Width     int
	Height    int
	FrameRate float64
	Codec     string
}

type probePayload struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// Probe executes ffprobe against path and returns the parsed result.
// The binary argument may be empty to use "ffprobe" from PATH.
func Probe(ctx context.Context, binary, path string) (ProbeResult, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return ProbeResult{}, errors.New("probe: empty path")
	}

	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		"--", path,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return ProbeResult{}, fmt.Errorf("probe %s: %w: %s", path, err, strings.TrimSpace(string(output)))
	}
	return parseProbeOutput(path, output)
}

func parseProbeOutput(path string, output []byte) (ProbeResult, error) {
	var payload probePayload
	if err := json.Unmarshal(output, &payload); err != nil {
		return ProbeResult{}, fmt.Errorf("probe parse %s: %w", path, err)
	}

	result := ProbeResult{
		Duration: parseFloat(payload.Format.Duration),
	}
	for _, stream := range payload.Streams {
		if !strings.EqualFold(stream.CodecType, "video") {
			continue
		}
		result.Width = stream.Width
		result.Height = stream.Height
		result.Codec = stream.CodecName
		result.FrameRate = parseFrameRate(stream.RFrameRate)
		break
	}

	if result.Width == 0 || result.Height == 0 {
		return ProbeResult{}, fmt.Errorf("probe %s: no video stream", path)
	}
	if result.Duration <= 0 {
		return ProbeResult{}, fmt.Errorf("probe %s: missing duration", path)
	}
	return result, nil
}

// parseFrameRate converts ffprobe rational strings like "24000/1001"
// into frames per second, or 0 when unparseable.
func parseFrameRate(value string) float64 {
	num, den, ok := strings.Cut(strings.TrimSpace(value), "/")
	if !ok {
		return parseFloat(value)
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return parsed
}
