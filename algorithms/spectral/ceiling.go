package spectral

import (
	"math"

	"github.com/Cartasiane/Keson-spectral-improver/algorithms/common"
	"github.com/Cartasiane/Keson-spectral-improver/algorithms/smoothing"
	"github.com/Cartasiane/Keson-spectral-improver/logging"
)

// Analysis parameters. The window size must stay a power of two.
const (
	WindowSize = 2048
	HopSize    = 512

	smoothingWindow = 11
	smoothingOrder  = 2

	// Base significance threshold: mean + significanceSigma * stddev of the
	// smoothed decibel matrix.
	significanceSigma = 1.5

	// The threshold is relaxed by up to this many dB as frequency approaches
	// Nyquist, so natural high-frequency roll-off is not penalized as heavily
	// as midband silence.
	rolloffAllowanceDb = 18.0

	// Magnitudes are floored here before the log to avoid -Inf.
	magnitudeFloor = 1e-12
)

// CeilingAnalyzer estimates the highest frequency of a signal that still
// carries energy distinguishable from the noise floor.
type CeilingAnalyzer struct {
	stft   *STFT
	logger logging.Logger
}

// NewCeilingAnalyzer creates a new frequency ceiling analyzer
func NewCeilingAnalyzer() *CeilingAnalyzer {
	return &CeilingAnalyzer{
		stft:   NewSTFT(),
		logger: logging.WithFields(logging.Fields{"component": "ceiling_analyzer"}),
	}
}

// MaxSignificantFrequency returns the highest frequency in Hz whose smoothed
// spectral level exceeds the adaptive significance threshold in at least one
// frame. ok is false when the signal is shorter than one analysis window or
// carries no energy at all; both are expected conditions, not errors.
func (c *CeilingAnalyzer) MaxSignificantFrequency(mono []float64, sampleRate int) (freq float64, ok bool) {
	if sampleRate <= 0 || len(mono) < WindowSize {
		c.logger.Debug("signal too short for spectral analysis", logging.Fields{
			"samples":     len(mono),
			"sample_rate": sampleRate,
		})
		return 0, false
	}

	spec, err := c.stft.Compute(mono, WindowSize, HopSize, sampleRate)
	if err != nil {
		c.logger.Error(err, "spectrogram computation failed")
		return 0, false
	}

	db, ok := toDecibels(spec.Magnitude)
	if !ok {
		c.logger.Debug("silent signal, no magnitude above zero")
		return 0, false
	}

	for _, frame := range db {
		// order < window always holds for the fixed constants; a failure here
		// is a programming error.
		if err := smoothing.SmoothInPlace(frame, smoothingWindow, smoothingOrder); err != nil {
			c.logger.Fatal(err, "invalid smoothing configuration")
			return 0, false
		}
	}

	mean, std := matrixStats(db)
	baseThreshold := mean + significanceSigma*std

	nyquist := float64(sampleRate) / 2.0

	for bin := spec.FreqBins - 1; bin >= 0; bin-- {
		binFreq := float64(bin) * spec.FreqResolution
		threshold := baseThreshold - rolloffAllowanceDb*(binFreq/nyquist)

		for frame := range db {
			if db[frame][bin] > threshold {
				return binFreq, true
			}
		}
	}

	return 0, false
}

// toDecibels converts the magnitude matrix to decibels relative to its global
// maximum. ok is false when the whole matrix is zero.
func toDecibels(magnitude [][]float64) (db [][]float64, ok bool) {
	globalMax := 0.0
	for _, frame := range magnitude {
		for _, mag := range frame {
			if mag > globalMax {
				globalMax = mag
			}
		}
	}
	if globalMax == 0 {
		return nil, false
	}

	db = make([][]float64, len(magnitude))
	for i, frame := range magnitude {
		db[i] = make([]float64, len(frame))
		for j, mag := range frame {
			if mag < magnitudeFloor {
				mag = magnitudeFloor
			}
			db[i][j] = 20.0 * math.Log10(mag/globalMax)
		}
	}
	return db, true
}

func matrixStats(matrix [][]float64) (mean, std float64) {
	if len(matrix) == 0 {
		return 0, 0
	}

	flat := make([]float64, 0, len(matrix)*len(matrix[0]))
	for _, row := range matrix {
		flat = append(flat, row...)
	}

	return common.Mean(flat), common.StandardDeviation(flat)
}
