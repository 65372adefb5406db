package transcode

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/Cartasiane/Keson-spectral-improver/logging"
)

// Matches the integrated loudness line of ffmpeg's ebur128 summary block,
// e.g. "    I:         -14.5 LUFS".
var integratedLoudnessRe = regexp.MustCompile(`I:\s+(-?\d+(?:\.\d+)?)\s+LUFS`)

// LoudnessProbe measures integrated loudness (EBU R128) by running the file
// through ffmpeg's ebur128 filter and parsing its textual summary. It is a
// thin wrapper around the external analyzer; no measurement happens in-process.
type LoudnessProbe struct {
	config *DecoderConfig
}

// NewLoudnessProbe creates a new loudness probe
func NewLoudnessProbe(config *DecoderConfig) *LoudnessProbe {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &LoudnessProbe{config: config}
}

// Measure returns the integrated loudness of the file in LUFS
func (p *LoudnessProbe) Measure(ctx context.Context, filename string) (float64, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "loudness_probe",
		"filename":  filename,
	})

	args := []string{
		"-hide_banner",
		"-nostats",
		"-i", filename,
		"-vn",
		"-af", "ebur128",
		"-f", "null",
		"-",
	}

	probeCtx := ctx
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(probeCtx, p.config.FFmpegPath, args...)

	// The ebur128 filter reports on stderr
	output, err := cmd.CombinedOutput()
	if err != nil {
		logger.Error(err, "FFmpeg loudness probe failed", logging.Fields{
			"output": string(output),
		})
		return 0, fmt.Errorf("ffmpeg loudness probe failed: %w", err)
	}

	lufs, err := parseIntegratedLoudness(string(output))
	if err != nil {
		logger.Error(err, "Failed to parse loudness output")
		return 0, err
	}

	logger.Debug("Loudness measured", logging.Fields{"lufs": lufs})

	return lufs, nil
}

// parseIntegratedLoudness extracts the integrated loudness from the ebur128
// filter output. The filter prints running values followed by a summary
// block; the last match is the summary.
func parseIntegratedLoudness(output string) (float64, error) {
	matches := integratedLoudnessRe.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("no integrated loudness found in ebur128 output")
	}

	last := matches[len(matches)-1]
	lufs, err := strconv.ParseFloat(last[1], 64)
	if err != nil {
		return 0, fmt.Errorf("unreadable loudness value %q: %w", last[1], err)
	}

	return lufs, nil
}
