package transcode

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"time"

	"github.com/Cartasiane/Keson-spectral-improver/logging"
)

// DecodedAudio represents one fully decoded file: per-channel PCM at the
// file's native sample rate plus the element-wise mono mix. Each instance is
// owned by a single in-flight analysis; nothing here is shared or cached.
type DecodedAudio struct {
	SampleRate  int           `json:"sample_rate"`
	Channels    int           `json:"channels"`
	ChannelData [][]float64   `json:"-"`
	Mono        []float64     `json:"-"`
	Duration    time.Duration `json:"duration"`
	Codec       string        `json:"codec,omitempty"`
	Bitrate     int           `json:"bitrate,omitempty"`
}

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	FFmpegPath  string        `json:"ffmpeg_path"`  // Path to ffmpeg binary
	FFprobePath string        `json:"ffprobe_path"` // Path to ffprobe binary
	Timeout     time.Duration `json:"timeout"`      // Timeout for external process invocations
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		FFmpegPath:  "ffmpeg", // Assume in PATH
		FFprobePath: "ffprobe",
		Timeout:     60 * time.Second,
	}
}

// Decoder is the PCM adapter: it decodes compressed audio files through
// FFmpeg into per-channel float PCM at the file's native sample rate.
type Decoder struct {
	config *DecoderConfig
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// DecodeFile probes and decodes a file. Any failure means the file is
// unusable for analysis; the caller is expected to skip it rather than guess.
func (d *Decoder) DecodeFile(ctx context.Context, filename string) (*DecodedAudio, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"filename":  filename,
	})

	metadata, err := d.probeAudioFile(ctx, filename)
	if err != nil {
		logger.Error(err, "Failed to probe audio file")
		return nil, err
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"sample_rate": metadata.SampleRate,
		"channels":    metadata.Channels,
		"codec":       metadata.Codec,
		"duration":    metadata.Duration,
		"bitrate":     metadata.Bitrate,
	})

	if metadata.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", metadata.SampleRate)
	}

	return d.decodeWithFFmpeg(ctx, filename, metadata, logger)
}

// probeAudioFile uses ffprobe to get audio information from a file
func (d *Decoder) probeAudioFile(ctx context.Context, filename string) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet", // Suppress verbose output
		"-print_format", "json", // JSON output
		"-show_streams",          // Show stream info
		"-select_streams", "a:0", // First audio stream only
		filename,
	}

	probeCtx := ctx
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(probeCtx, d.config.FFprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseFFprobeOutput(output)
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType  string `json:"codec_type"`
			CodecName  string `json:"codec_name"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
			Duration   string `json:"duration"`
			BitRate    string `json:"bit_rate"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found")
	}

	stream := probe.Streams[0]

	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sampleRate <= 0 {
		return nil, fmt.Errorf("unreadable sample rate: %q", stream.SampleRate)
	}

	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	duration, err := strconv.ParseFloat(stream.Duration, 64)
	if err != nil {
		duration = 0
	}

	bitrate, err := strconv.Atoi(stream.BitRate)
	if err != nil {
		bitrate = 0
	}

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
	}, nil
}

// decodeWithFFmpeg decodes the file to raw interleaved f32le at its native
// sample rate and channel layout, then splits channels and mixes to mono.
func (d *Decoder) decodeWithFFmpeg(ctx context.Context, filename string, metadata *AudioMetadata, logger logging.Logger) (*DecodedAudio, error) {
	args := []string{
		"-i", filename,
		"-vn",         // No video
		"-f", "f32le", // Raw float32 little-endian
		"-ac", strconv.Itoa(metadata.Channels), // Keep native channel layout
		"-ar", strconv.Itoa(metadata.SampleRate), // Keep native sample rate
		"-v", "error",
		"pipe:1",
	}

	decodeCtx := ctx
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		decodeCtx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(decodeCtx, d.config.FFmpegPath, args...)

	startTime := time.Now()
	output, err := cmd.Output()
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			logger.Error(err, "FFmpeg decode failed", logging.Fields{
				"stderr": string(exitError.Stderr),
			})
			return nil, fmt.Errorf("ffmpeg decode failed: %w, stderr: %s", err, string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	samples := bytesToFloat32(output)
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio samples decoded")
	}

	channels := Deinterleave(samples, metadata.Channels)
	if len(channels) == 0 || len(channels[0]) == 0 {
		return nil, fmt.Errorf("no audio samples decoded")
	}

	samplesPerChannel := len(channels[0])
	duration := time.Duration(samplesPerChannel) * time.Second / time.Duration(metadata.SampleRate)

	logger.Debug("FFmpeg decode completed", logging.Fields{
		"samples_per_channel": samplesPerChannel,
		"duration":            duration.Seconds(),
		"decode_time":         time.Since(startTime).Seconds(),
	})

	return &DecodedAudio{
		SampleRate:  metadata.SampleRate,
		Channels:    metadata.Channels,
		ChannelData: channels,
		Mono:        MonoMix(channels),
		Duration:    duration,
		Codec:       metadata.Codec,
		Bitrate:     metadata.Bitrate,
	}, nil
}

// bytesToFloat32 converts raw f32le bytes to []float64 samples
func bytesToFloat32(data []byte) []float64 {
	if len(data)%4 != 0 {
		// Trim to multiple of 4 bytes
		data = data[:len(data)-(len(data)%4)]
	}

	if len(data) == 0 {
		return nil
	}

	sampleCount := len(data) / 4
	samples := make([]float64, sampleCount)

	for i := range sampleCount {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		samples[i] = float64(math.Float32frombits(bits))
	}

	return samples
}

// Deinterleave splits an interleaved sample buffer into per-channel buffers.
// Trailing samples that do not form a complete frame are dropped.
func Deinterleave(samples []float64, channels int) [][]float64 {
	if channels <= 0 {
		return nil
	}

	frames := len(samples) / channels
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}

	for frame := range frames {
		base := frame * channels
		for ch := range out {
			out[ch][frame] = samples[base+ch]
		}
	}

	return out
}

// MonoMix returns the element-wise average of all channels
func MonoMix(channels [][]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}
	if len(channels) == 1 {
		mono := make([]float64, len(channels[0]))
		copy(mono, channels[0])
		return mono
	}

	mono := make([]float64, len(channels[0]))
	scale := 1.0 / float64(len(channels))
	for _, channel := range channels {
		for i, sample := range channel {
			mono[i] += sample * scale
		}
	}

	return mono
}

// CheckFFmpegAvailability verifies that ffmpeg and ffprobe can be invoked
func (d *Decoder) CheckFFmpegAvailability() error {
	cmd := exec.Command(d.config.FFmpegPath, "-version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg not found at %s: %w", d.config.FFmpegPath, err)
	}

	cmd = exec.Command(d.config.FFprobePath, "-version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffprobe not found at %s: %w", d.config.FFprobePath, err)
	}

	return nil
}
