package media

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Keyframe is a still image decoded from a clip at a specific offset.
// Keyframes live only in memory for the duration of one ingestion pass.
type Keyframe struct {
	Timestamp float64
	JPEG      []byte
}

// SampleTimestamps returns n offsets evenly spread across (0, duration),
// at fractions i/(n+1) so the exact boundaries are never sampled. Cut
// points tend to be black frames; staying strictly inside avoids them.
func SampleTimestamps(duration float64, n int) []float64 {
	if n <= 0 || duration <= 0 {
		return nil
	}
	stamps := make([]float64, 0, n)
	for i := 1; i <= n; i++ {
		stamps = append(stamps, duration*float64(i)/float64(n+1))
	}
	return stamps
}

// ExtractKeyframe decodes one JPEG still at the given offset using
// ffmpeg's image2pipe output, so nothing touches the filesystem.
func ExtractKeyframe(ctx context.Context, binary, path string, timestamp float64) (Keyframe, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if timestamp <= 0 {
		return Keyframe{}, fmt.Errorf("extract keyframe: timestamp %g not inside clip", timestamp)
	}

	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-ss", strconv.FormatFloat(timestamp, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	data, err := cmd.Output()
	if err != nil {
		return Keyframe{}, fmt.Errorf("extract keyframe %s@%.3fs: %w: %s", path, timestamp, err, strings.TrimSpace(stderr.String()))
	}
	if len(data) == 0 {
		return Keyframe{}, fmt.Errorf("extract keyframe %s@%.3fs: empty frame", path, timestamp)
	}
	return Keyframe{Timestamp: timestamp, JPEG: data}, nil
}

// ExtractKeyframes samples n stills across the clip. Individual frame
// failures degrade to fewer keyframes; zero usable frames is an error
// and the caller excludes the clip from the index.
func ExtractKeyframes(ctx context.Context, binary, path string, duration float64, n int) ([]Keyframe, error) {
	stamps := SampleTimestamps(duration, n)
	if len(stamps) == 0 {
		return nil, fmt.Errorf("extract keyframes %s: no sample points for duration %g", path, duration)
	}

	frames := make([]Keyframe, 0, len(stamps))
	var errs []error
	for _, ts := range stamps {
		frame, err := ExtractKeyframe(ctx, binary, path, ts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("extract keyframes %s: all samples failed: %w", path, errors.Join(errs...))
	}
	return frames, nil
}
