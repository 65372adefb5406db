package smoothing

import (
	"fmt"
	"sync"
)

// Savitzky-Golay smoothing: fits a low-order polynomial to a sliding window by
// least squares and evaluates it at the window center. The center-point kernel
// is a pure function of (window, order), so computed kernels are cached for
// the process lifetime.

type kernelKey struct {
	window int
	order  int
}

var (
	kernelMu    sync.RWMutex
	kernelCache = make(map[kernelKey][]float64)
)

// Coefficients returns the center-point Savitzky-Golay kernel for the given
// window length and polynomial order. The window must be odd and larger than
// the order; anything else is a configuration error, not a runtime condition.
func Coefficients(window, order int) ([]float64, error) {
	kernel, err := cachedKernel(window, order)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(kernel))
	copy(out, kernel)
	return out, nil
}

// Smooth applies the (window, order) kernel to the series. Window reads past
// either end are clamped to the boundary sample (edge replication). The input
// is not modified.
func Smooth(series []float64, window, order int) ([]float64, error) {
	kernel, err := cachedKernel(window, order)
	if err != nil {
		return nil, err
	}

	half := window / 2
	smoothed := make([]float64, len(series))

	for i := range series {
		acc := 0.0
		for j := -half; j <= half; j++ {
			idx := i + j
			if idx < 0 {
				idx = 0
			} else if idx >= len(series) {
				idx = len(series) - 1
			}
			acc += kernel[j+half] * series[idx]
		}
		smoothed[i] = acc
	}

	return smoothed, nil
}

// SmoothInPlace is Smooth writing the result back into the series.
func SmoothInPlace(series []float64, window, order int) error {
	smoothed, err := Smooth(series, window, order)
	if err != nil {
		return err
	}
	copy(series, smoothed)
	return nil
}

func cachedKernel(window, order int) ([]float64, error) {
	if window <= 0 || window%2 == 0 {
		return nil, fmt.Errorf("window length must be odd and positive: %d", window)
	}
	if order < 0 || order >= window {
		return nil, fmt.Errorf("polynomial order %d invalid for window length %d", order, window)
	}

	key := kernelKey{window: window, order: order}

	kernelMu.RLock()
	kernel, ok := kernelCache[key]
	kernelMu.RUnlock()
	if ok {
		return kernel, nil
	}

	kernel, err := computeKernel(window, order)
	if err != nil {
		return nil, err
	}

	kernelMu.Lock()
	// Another goroutine may have raced us here; keep the first entry so
	// repeated lookups stay bit-identical.
	if existing, ok := kernelCache[key]; ok {
		kernel = existing
	} else {
		kernelCache[key] = kernel
	}
	kernelMu.Unlock()

	return kernel, nil
}

// computeKernel builds the Vandermonde design matrix for offsets
// -(window-1)/2 .. +(window-1)/2 raised to powers 0..order, solves the normal
// equations (AtA)^-1 At, and returns the first row of the pseudo-inverse: the
// least-squares estimate of the polynomial value at the window center.
func computeKernel(window, order int) ([]float64, error) {
	half := (window - 1) / 2
	terms := order + 1

	design := make([][]float64, window)
	for i := range window {
		offset := float64(i - half)
		design[i] = make([]float64, terms)
		power := 1.0
		for j := range terms {
			design[i][j] = power
			power *= offset
		}
	}

	// AtA (terms x terms)
	ata := make([][]float64, terms)
	for i := range terms {
		ata[i] = make([]float64, terms)
		for j := range terms {
			sum := 0.0
			for k := range window {
				sum += design[k][i] * design[k][j]
			}
			ata[i][j] = sum
		}
	}

	inv, err := invert(ata)
	if err != nil {
		return nil, fmt.Errorf("normal equations singular for window %d order %d: %w", window, order, err)
	}

	// First row of (AtA)^-1 At
	kernel := make([]float64, window)
	for k := range window {
		sum := 0.0
		for j := range terms {
			sum += inv[0][j] * design[k][j]
		}
		kernel[k] = sum
	}

	return kernel, nil
}

// invert computes the inverse of a square matrix by Gauss-Jordan elimination
// with partial pivoting.
func invert(m [][]float64) ([][]float64, error) {
	n := len(m)

	// Augment [m | I]
	aug := make([][]float64, n)
	for i := range n {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], m[i])
		aug[i][n+i] = 1.0
	}

	for col := range n {
		// Partial pivot: largest absolute value in this column
		pivot := col
		for row := col + 1; row < n; row++ {
			if abs(aug[row][col]) > abs(aug[pivot][col]) {
				pivot = row
			}
		}
		if abs(aug[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("matrix is singular at column %d", col)
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		scale := aug[col][col]
		for j := range 2 * n {
			aug[col][j] /= scale
		}

		for row := range n {
			if row == col {
				continue
			}
			factor := aug[row][col]
			if factor == 0 {
				continue
			}
			for j := range 2 * n {
				aug[row][j] -= factor * aug[col][j]
			}
		}
	}

	inv := make([][]float64, n)
	for i := range n {
		inv[i] = make([]float64, n)
		copy(inv[i], aug[i][n:])
	}

	return inv, nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
