package quality

import (
	"context"
	"fmt"

	"github.com/Cartasiane/Keson-spectral-improver/algorithms/spectral"
	"github.com/Cartasiane/Keson-spectral-improver/algorithms/temporal"
	"github.com/Cartasiane/Keson-spectral-improver/logging"
	"github.com/Cartasiane/Keson-spectral-improver/transcode"
)

// Analyzer wires the decoder, loudness probe, frequency ceiling analysis and
// dynamic range estimation into one quality report per file. The numeric
// stages run synchronously on the calling goroutine; only the two external
// process invocations (decode, loudness) overlap.
type Analyzer struct {
	decoder   *transcode.Decoder
	loudness  *transcode.LoudnessProbe
	ceiling   *spectral.CeilingAnalyzer
	estimator *temporal.Estimator
	logger    logging.Logger
}

// NewAnalyzer creates an analyzer using the given decoder configuration
// (nil for defaults)
func NewAnalyzer(config *transcode.DecoderConfig) *Analyzer {
	if config == nil {
		config = transcode.DefaultDecoderConfig()
	}
	return &Analyzer{
		decoder:   transcode.NewDecoder(config),
		loudness:  transcode.NewLoudnessProbe(config),
		ceiling:   spectral.NewCeilingAnalyzer(),
		estimator: temporal.NewEstimator(),
		logger:    logging.WithFields(logging.Fields{"component": "quality_analyzer"}),
	}
}

// AnalyzeFile decodes the file and produces its quality report. A decode
// failure yields no report; a failed loudness probe only drops the loudness
// clause.
func (a *Analyzer) AnalyzeFile(ctx context.Context, filename string) (*Report, error) {
	type loudnessResult struct {
		lufs float64
		err  error
	}

	// Loudness measurement is independent of decoding; run both external
	// invocations concurrently.
	loudnessCh := make(chan loudnessResult, 1)
	go func() {
		lufs, err := a.loudness.Measure(ctx, filename)
		loudnessCh <- loudnessResult{lufs: lufs, err: err}
	}()

	audio, err := a.decoder.DecodeFile(ctx, filename)
	if err != nil {
		a.logger.Warn("Skipping undecodable file", logging.Fields{
			"filename": filename,
			"error":    err.Error(),
		})
		<-loudnessCh
		return nil, err
	}

	var lufs *float64
	if res := <-loudnessCh; res.err != nil {
		a.logger.Warn("Loudness probe failed, omitting loudness", logging.Fields{
			"filename": filename,
			"error":    res.err.Error(),
		})
	} else {
		lufs = &res.lufs
	}

	return a.Analyze(audio, lufs)
}

// Analyze runs the numeric pipeline over already decoded audio. The loudness
// value is optional.
func (a *Analyzer) Analyze(audio *transcode.DecodedAudio, lufs *float64) (*Report, error) {
	if audio == nil || audio.SampleRate <= 0 || len(audio.Mono) == 0 {
		return nil, fmt.Errorf("no usable PCM to analyze")
	}

	maxFreq, found := a.ceiling.MaxSignificantFrequency(audio.Mono, audio.SampleRate)

	dr := a.estimator.Compute(audio.ChannelData, audio.SampleRate)

	verdict := Classify(audio.SampleRate, maxFreq, found)

	a.logger.Debug("Analysis complete", logging.Fields{
		"sample_rate":     audio.SampleRate,
		"max_freq":        maxFreq,
		"frequency_found": found,
		"verdict":         verdict.Tag(),
		"dr_status":       dr.Status.String(),
	})

	return BuildReport(verdict, maxFreq, found, dr, lufs), nil
}
