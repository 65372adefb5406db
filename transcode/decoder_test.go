package transcode

import (
	"context"
	"encoding/binary"
	"math"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

const validProbeJSON = `{
	"streams": [
		{
			"codec_type": "audio",
			"codec_name": "flac",
			"sample_rate": "44100",
			"channels": 2,
			"duration": "183.4",
			"bit_rate": "912000"
		}
	]
}`

func TestParseFFprobeOutput(t *testing.T) {
	metadata, err := parseFFprobeOutput([]byte(validProbeJSON))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if metadata.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", metadata.SampleRate)
	}
	if metadata.Channels != 2 {
		t.Errorf("Channels = %d, want 2", metadata.Channels)
	}
	if metadata.Codec != "flac" {
		t.Errorf("Codec = %q, want flac", metadata.Codec)
	}
	if metadata.Duration != 183.4 {
		t.Errorf("Duration = %v, want 183.4", metadata.Duration)
	}
	if metadata.Bitrate != 912000 {
		t.Errorf("Bitrate = %d, want 912000", metadata.Bitrate)
	}
}

func TestParseFFprobeOutputMissingOptionalFields(t *testing.T) {
	metadata, err := parseFFprobeOutput([]byte(`{
		"streams": [
			{"codec_type": "audio", "codec_name": "pcm_s16le", "sample_rate": "48000", "channels": 1}
		]
	}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if metadata.Duration != 0 {
		t.Errorf("Duration = %v, want 0 for a missing field", metadata.Duration)
	}
	if metadata.Bitrate != 0 {
		t.Errorf("Bitrate = %d, want 0 for a missing field", metadata.Bitrate)
	}
}

func TestParseFFprobeOutputRejects(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"not json", `{{{`},
		{"no streams", `{"streams": []}`},
		{"video stream", `{"streams": [{"codec_type": "video", "codec_name": "h264"}]}`},
		{"bad sample rate", `{"streams": [{"codec_type": "audio", "sample_rate": "fast", "channels": 2}]}`},
		{"zero channels", `{"streams": [{"codec_type": "audio", "sample_rate": "44100", "channels": 0}]}`},
		{"too many channels", `{"streams": [{"codec_type": "audio", "sample_rate": "44100", "channels": 9}]}`},
	}

	for _, tc := range cases {
		if _, err := parseFFprobeOutput([]byte(tc.json)); err == nil {
			t.Errorf("%s: parse should fail", tc.name)
		}
	}
}

func TestBytesToFloat32(t *testing.T) {
	want := []float64{1.0, -0.5, 0.25}

	data := make([]byte, 0, len(want)*4+2)
	for _, v := range want {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(v)))
		data = append(data, buf[:]...)
	}
	// Trailing partial sample must be trimmed, not read.
	data = append(data, 0xde, 0xad)

	samples := bytesToFloat32(data)
	if len(samples) != len(want) {
		t.Fatalf("sample count = %d, want %d", len(samples), len(want))
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, samples[i], want[i])
		}
	}

	if got := bytesToFloat32(nil); got != nil {
		t.Errorf("empty input should yield nil, got %v", got)
	}
	if got := bytesToFloat32([]byte{1, 2, 3}); got != nil {
		t.Errorf("sub-sample input should yield nil, got %v", got)
	}
}

func TestDeinterleave(t *testing.T) {
	channels := Deinterleave([]float64{1, 2, 3, 4, 5, 6}, 2)

	if len(channels) != 2 {
		t.Fatalf("channel count = %d, want 2", len(channels))
	}
	wantLeft := []float64{1, 3, 5}
	wantRight := []float64{2, 4, 6}
	for i := range wantLeft {
		if channels[0][i] != wantLeft[i] {
			t.Errorf("left[%d] = %v, want %v", i, channels[0][i], wantLeft[i])
		}
		if channels[1][i] != wantRight[i] {
			t.Errorf("right[%d] = %v, want %v", i, channels[1][i], wantRight[i])
		}
	}

	// A trailing incomplete frame is dropped.
	partial := Deinterleave([]float64{1, 2, 3, 4, 5, 6, 7}, 2)
	if len(partial[0]) != 3 || len(partial[1]) != 3 {
		t.Errorf("frame counts = %d/%d, want 3/3", len(partial[0]), len(partial[1]))
	}

	if Deinterleave([]float64{1, 2}, 0) != nil {
		t.Error("zero channels should yield nil")
	}
}

func TestMonoMix(t *testing.T) {
	mono := MonoMix([][]float64{{1, 3}, {3, 5}})
	if mono[0] != 2 || mono[1] != 4 {
		t.Errorf("mix = %v, want [2 4]", mono)
	}

	source := []float64{0.5, -0.5}
	single := MonoMix([][]float64{source})
	single[0] = 99
	if source[0] != 0.5 {
		t.Error("single-channel mix must copy, not alias")
	}

	if MonoMix(nil) != nil {
		t.Error("no channels should yield nil")
	}
}

// requireFFmpeg skips the test when the ffmpeg toolchain is not installed.
func requireFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not available: %v", bin, err)
		}
	}
}

// generateTestWav synthesizes a short sine wav through ffmpeg.
func generateTestWav(t *testing.T, dir string) string {
	t.Helper()

	filename := filepath.Join(dir, "tone.wav")
	cmd := exec.Command("ffmpeg",
		"-f", "lavfi",
		"-i", "sine=frequency=1000:duration=2",
		"-ar", "44100",
		"-ac", "1",
		"-v", "error",
		filename,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg generation failed: %v\n%s", err, output)
	}
	return filename
}

func TestDecodeFile(t *testing.T) {
	requireFFmpeg(t)

	filename := generateTestWav(t, t.TempDir())

	decoder := NewDecoder(nil)
	audio, err := decoder.DecodeFile(context.Background(), filename)
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}

	if audio.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", audio.SampleRate)
	}
	if audio.Channels != 1 {
		t.Errorf("Channels = %d, want 1", audio.Channels)
	}
	if len(audio.Mono) != len(audio.ChannelData[0]) {
		t.Errorf("mono length %d != channel length %d", len(audio.Mono), len(audio.ChannelData[0]))
	}

	wantSamples := 2 * 44100
	if len(audio.Mono) < wantSamples-4410 || len(audio.Mono) > wantSamples+4410 {
		t.Errorf("decoded %d samples, want about %d", len(audio.Mono), wantSamples)
	}
	if audio.Duration < 1900*time.Millisecond || audio.Duration > 2100*time.Millisecond {
		t.Errorf("Duration = %v, want about 2s", audio.Duration)
	}

	peak := 0.0
	for _, s := range audio.Mono {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak < 0.1 {
		t.Errorf("decoded peak = %v, looks silent", peak)
	}
}

func TestDecodeFileMissing(t *testing.T) {
	requireFFmpeg(t)

	decoder := NewDecoder(nil)
	if _, err := decoder.DecodeFile(context.Background(), filepath.Join(t.TempDir(), "missing.flac")); err == nil {
		t.Error("decoding a missing file should fail")
	}
}

func TestCheckFFmpegAvailability(t *testing.T) {
	requireFFmpeg(t)

	if err := NewDecoder(nil).CheckFFmpegAvailability(); err != nil {
		t.Errorf("availability check failed: %v", err)
	}

	bad := NewDecoder(&DecoderConfig{
		FFmpegPath:  "/nonexistent/ffmpeg",
		FFprobePath: "/nonexistent/ffprobe",
		Timeout:     time.Second,
	})
	if err := bad.CheckFFmpegAvailability(); err == nil {
		t.Error("availability check should fail for bogus paths")
	}
}
