package spectral

import (
	"fmt"
	"math/cmplx"

	"github.com/Cartasiane/Keson-spectral-improver/algorithms/windowing"
)

// Spectrogram holds the magnitude matrix of a short-time Fourier transform.
// It is produced once per analysis and immutable afterwards.
type Spectrogram struct {
	Magnitude      [][]float64 `json:"magnitude"`       // Time x Frequency magnitude matrix
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64     `json:"time_resolution"` // Time resolution (seconds/frame)
}

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft *FFT
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		fft: NewFFT(),
	}
}

// Compute windows the signal with a Hann window at the given window and hop
// sizes and returns the magnitude spectrogram over the positive frequencies.
// The frames are processed sequentially on the calling goroutine.
func (s *STFT) Compute(signal []float64, windowSize, hopSize, sampleRate int) (*Spectrogram, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}
	if len(signal) < windowSize {
		return nil, fmt.Errorf("signal too short for given window size: %d < %d", len(signal), windowSize)
	}

	numFrames := (len(signal)-windowSize)/hopSize + 1
	freqBins := windowSize/2 + 1
	window := windowing.NewHann(windowSize)

	magnitude := make([][]float64, numFrames)
	frameBuffer := make([]float64, windowSize)

	for frameIdx := range numFrames {
		start := frameIdx * hopSize
		copy(frameBuffer, signal[start:start+windowSize])

		if err := window.ApplyInPlace(frameBuffer); err != nil {
			return nil, err
		}

		spectrum, err := s.fft.Compute(frameBuffer)
		if err != nil {
			return nil, err
		}

		magnitude[frameIdx] = make([]float64, freqBins)
		for i := range freqBins {
			magnitude[frameIdx][i] = cmplx.Abs(spectrum[i])
		}
	}

	return &Spectrogram{
		Magnitude:      magnitude,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sampleRate),
	}, nil
}
