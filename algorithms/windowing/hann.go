package windowing

import (
	"fmt"
	"math"
	"sync"
)

var (
	hannMu    sync.RWMutex
	hannCache = make(map[int][]float64)
)

// Hann represents a periodic Hann window of a fixed length. Coefficients are
// computed once per length and shared across all instances; they are read-only
// after creation.
type Hann struct {
	size         int
	coefficients []float64
}

// NewHann creates a Hann window of the given size
func NewHann(size int) *Hann {
	return &Hann{
		size:         size,
		coefficients: hannCoefficients(size),
	}
}

func hannCoefficients(size int) []float64 {
	hannMu.RLock()
	coeffs, ok := hannCache[size]
	hannMu.RUnlock()
	if ok {
		return coeffs
	}

	coeffs = make([]float64, size)
	for i := range size {
		coeffs[i] = 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/float64(size)))
	}

	hannMu.Lock()
	if existing, ok := hannCache[size]; ok {
		coeffs = existing
	} else {
		hannCache[size] = coeffs
	}
	hannMu.Unlock()

	return coeffs
}

// Apply applies the window to a signal (creates new array)
func (h *Hann) Apply(signal []float64) []float64 {
	if len(signal) != h.size {
		return nil
	}

	windowed := make([]float64, h.size)
	for i := range signal {
		windowed[i] = signal[i] * h.coefficients[i]
	}

	return windowed
}

// ApplyInPlace applies the window to a signal in-place
func (h *Hann) ApplyInPlace(signal []float64) error {
	if len(signal) != h.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), h.size)
	}

	for i := range signal {
		signal[i] *= h.coefficients[i]
	}

	return nil
}

// GetCoefficients returns a copy of the window coefficients
func (h *Hann) GetCoefficients() []float64 {
	coeffs := make([]float64, len(h.coefficients))
	copy(coeffs, h.coefficients)
	return coeffs
}

// GetSize returns the window size
func (h *Hann) GetSize() int {
	return h.size
}

// GetType returns the window type
func (h *Hann) GetType() string {
	return "hann"
}
