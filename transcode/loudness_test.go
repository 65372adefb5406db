package transcode

import (
	"context"
	"testing"
)

// A trimmed ebur128 stderr transcript: running frame lines followed by the
// summary block. Only the summary value must be reported.
const ebur128Output = `[Parsed_ebur128_0 @ 0x55e] t: 0.1       TARGET:-23 LUFS    M: -120.7 S:-120.7     I: -70.0 LUFS       LRA:   0.0 LU
[Parsed_ebur128_0 @ 0x55e] t: 1.2       TARGET:-23 LUFS    M:  -15.1 S: -16.0     I: -16.9 LUFS       LRA:   1.2 LU
[Parsed_ebur128_0 @ 0x55e] t: 2.3       TARGET:-23 LUFS    M:  -14.8 S: -15.2     I: -15.3 LUFS       LRA:   1.4 LU
[Parsed_ebur128_0 @ 0x55e] Summary:

  Integrated loudness:
    I:         -14.5 LUFS
    Threshold: -25.2 LUFS

  Loudness range:
    LRA:         2.1 LU
    Threshold: -35.3 LUFS
    LRA low:   -16.2 LUFS
    LRA high:  -14.1 LUFS
`

func TestParseIntegratedLoudness(t *testing.T) {
	lufs, err := parseIntegratedLoudness(ebur128Output)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if lufs != -14.5 {
		t.Errorf("lufs = %v, want -14.5", lufs)
	}
}

func TestParseIntegratedLoudnessIntegerValue(t *testing.T) {
	lufs, err := parseIntegratedLoudness("    I:         -23 LUFS\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if lufs != -23 {
		t.Errorf("lufs = %v, want -23", lufs)
	}
}

func TestParseIntegratedLoudnessNoMatch(t *testing.T) {
	if _, err := parseIntegratedLoudness("ffmpeg version n7.0\nnothing to see here\n"); err == nil {
		t.Error("parse should fail without an integrated loudness line")
	}
}

func TestMeasureLoudness(t *testing.T) {
	requireFFmpeg(t)

	filename := generateTestWav(t, t.TempDir())

	probe := NewLoudnessProbe(nil)
	lufs, err := probe.Measure(context.Background(), filename)
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}

	// A full-scale-ish sine should land well inside this window.
	if lufs < -40 || lufs > 0 {
		t.Errorf("lufs = %v, want within [-40, 0]", lufs)
	}
}

func TestMeasureLoudnessMissingFile(t *testing.T) {
	requireFFmpeg(t)

	probe := NewLoudnessProbe(nil)
	if _, err := probe.Measure(context.Background(), "/nonexistent/audio.flac"); err == nil {
		t.Error("measuring a missing file should fail")
	}
}
