package temporal

import (
	"math"
	"sort"

	"github.com/Cartasiane/Keson-spectral-improver/algorithms/common"
)

// Non-overlapping analysis blocks of roughly this many seconds.
const blockSeconds = 3

// Status describes whether a dynamic-range figure could be computed. Short or
// silent tracks are expected inputs, so they are statuses rather than errors.
type Status int

const (
	StatusOK Status = iota
	StatusTooShort
	StatusSilent
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTooShort:
		return "too_short"
	case StatusSilent:
		return "silent"
	default:
		return "unknown"
	}
}

// Result holds the dynamic-range statistic of one track. DynamicRange is only
// meaningful when Status is StatusOK. AvgPeakDb and AvgRmsDb may be -Inf for
// tracks containing all-zero blocks.
type Result struct {
	Status       Status  `json:"status"`
	DynamicRange float64 `json:"dynamic_range"`
	AvgPeakDb    float64 `json:"avg_peak_db"`
	AvgRmsDb     float64 `json:"avg_rms_db"`
}

// Estimator computes a per-track dynamic-range statistic contrasting the
// near-peak level against the RMS of the loudest sustained passages, as a
// mastering/authenticity signal.
type Estimator struct{}

// NewEstimator creates a new dynamic range estimator
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Compute partitions each channel into ~3 second blocks, takes the
// second-highest block peak (robust against single transient clicks) and the
// RMS of the loudest 20% of blocks, and reports the mean per-channel
// peak-to-loud-RMS ratio in dB, rounded to two decimals.
func (e *Estimator) Compute(channels [][]float64, sampleRate int) *Result {
	if len(channels) == 0 || sampleRate <= 0 {
		return &Result{Status: StatusTooShort}
	}

	blockLen := blockSeconds * sampleRate

	var channelDr []float64
	var allPeaksDb []float64
	var allRmsDb []float64

	for _, samples := range channels {
		peaks, rmsValues := blockLevels(samples, blockLen)
		if len(peaks) < 2 {
			return &Result{Status: StatusTooShort}
		}

		for i := range peaks {
			allPeaksDb = append(allPeaksDb, common.AmplitudeToDb(peaks[i]))
			allRmsDb = append(allRmsDb, common.AmplitudeToDb(rmsValues[i]))
		}

		sort.Float64s(peaks)
		secondPeak := peaks[len(peaks)-2]
		if secondPeak == 0 {
			return &Result{Status: StatusSilent}
		}

		topRms := loudestRms(rmsValues)

		channelDr = append(channelDr, -20.0*math.Log10(topRms/secondPeak))
	}

	dr := common.Mean(channelDr)

	return &Result{
		Status:       StatusOK,
		DynamicRange: math.Round(dr*100) / 100,
		AvgPeakDb:    common.Mean(allPeaksDb),
		AvgRmsDb:     common.Mean(allRmsDb),
	}
}

// blockLevels returns the sample peak and RMS of each non-overlapping block.
// A trailing partial block is kept, so any non-empty channel yields at least
// one block.
func blockLevels(samples []float64, blockLen int) (peaks, rmsValues []float64) {
	for start := 0; start < len(samples); start += blockLen {
		end := start + blockLen
		if end > len(samples) {
			end = len(samples)
		}
		block := samples[start:end]

		peaks = append(peaks, common.PeakAbs(block))
		rmsValues = append(rmsValues, common.RMS(block))
	}
	return peaks, rmsValues
}

// loudestRms returns the root-mean-square of the squared RMS values of the
// loudest 20% of blocks.
func loudestRms(rmsValues []float64) float64 {
	sorted := make([]float64, len(rmsValues))
	copy(sorted, rmsValues)
	sort.Float64s(sorted)

	count := len(sorted) / 5
	if count < 1 {
		count = 1
	}

	sumSquares := 0.0
	for _, rms := range sorted[len(sorted)-count:] {
		sumSquares += rms * rms
	}

	return math.Sqrt(sumSquares / float64(count))
}
