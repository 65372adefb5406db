package spectral

import (
	"fmt"
	"math"
	"sync"
)

// Iterative radix-2 FFT with per-size twiddle tables. Twiddles are a pure
// function of the transform size, so each table is computed at most once per
// process and shared read-only afterwards.

type twiddleTable struct {
	cos []float64
	sin []float64
}

var (
	twiddleMu    sync.RWMutex
	twiddleCache = make(map[int]*twiddleTable)
)

func twiddlesFor(n int) *twiddleTable {
	twiddleMu.RLock()
	table, ok := twiddleCache[n]
	twiddleMu.RUnlock()
	if ok {
		return table
	}

	half := n / 2
	table = &twiddleTable{
		cos: make([]float64, half),
		sin: make([]float64, half),
	}
	for k := range half {
		angle := -2 * math.Pi * float64(k) / float64(n)
		table.cos[k] = math.Cos(angle)
		table.sin[k] = math.Sin(angle)
	}

	twiddleMu.Lock()
	if existing, ok := twiddleCache[n]; ok {
		table = existing
	} else {
		twiddleCache[n] = table
	}
	twiddleMu.Unlock()

	return table
}

// FFT computes radix-2 fast Fourier transforms
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute transforms a real signal whose length must be a power of two and
// returns the full complex spectrum.
func (f *FFT) Compute(signal []float64) ([]complex128, error) {
	n := len(signal)
	if n == 0 {
		return []complex128{}, nil
	}
	if n&(n-1) != 0 {
		return nil, fmt.Errorf("signal length must be a power of two: %d", n)
	}

	re := make([]float64, n)
	im := make([]float64, n)
	copy(re, signal)

	f.transform(re, im)

	spectrum := make([]complex128, n)
	for i := range n {
		spectrum[i] = complex(re[i], im[i])
	}
	return spectrum, nil
}

// transform runs the bit-reversal permutation followed by the butterfly
// passes, in place.
func (f *FFT) transform(re, im []float64) {
	n := len(re)
	if n < 2 {
		return
	}

	// Bit-reversal permutation
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j |= bit
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	twiddles := twiddlesFor(n)

	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		step := n / size
		for start := 0; start < n; start += size {
			for k := range half {
				idx := k * step
				wRe := twiddles.cos[idx]
				wIm := twiddles.sin[idx]

				even := start + k
				odd := even + half

				tRe := re[odd]*wRe - im[odd]*wIm
				tIm := re[odd]*wIm + im[odd]*wRe

				re[odd] = re[even] - tRe
				im[odd] = im[even] - tIm
				re[even] += tRe
				im[even] += tIm
			}
		}
	}
}
