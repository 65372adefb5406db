package spectral

import (
	"math"
	"math/cmplx"
	"testing"

	godsp "github.com/mjibson/go-dsp/fft"
)

func TestFFTImpulse(t *testing.T) {
	const n = 16
	signal := make([]float64, n)
	signal[0] = 1.0

	spectrum, err := NewFFT().Compute(signal)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	// A unit impulse has a flat spectrum of ones.
	for i, bin := range spectrum {
		if cmplx.Abs(bin-1) > 1e-12 {
			t.Errorf("bin %d = %v, want 1+0i", i, bin)
		}
	}
}

func TestFFTDC(t *testing.T) {
	const n = 16
	signal := make([]float64, n)
	for i := range signal {
		signal[i] = 1.0
	}

	spectrum, err := NewFFT().Compute(signal)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if cmplx.Abs(spectrum[0]-complex(n, 0)) > 1e-9 {
		t.Errorf("DC bin = %v, want %d+0i", spectrum[0], n)
	}
	for i := 1; i < n; i++ {
		if cmplx.Abs(spectrum[i]) > 1e-9 {
			t.Errorf("bin %d = %v, want 0", i, spectrum[i])
		}
	}
}

func TestFFTSingleBinSine(t *testing.T) {
	const (
		n   = 64
		bin = 5
	)

	signal := make([]float64, n)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * bin * float64(i) / n)
	}

	spectrum, err := NewFFT().Compute(signal)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	// All energy lands in bin 5 and its mirror, each at amplitude n/2.
	for i := 0; i <= n/2; i++ {
		mag := cmplx.Abs(spectrum[i])
		if i == bin {
			if math.Abs(mag-n/2.0) > 1e-9 {
				t.Errorf("bin %d magnitude = %v, want %v", i, mag, n/2.0)
			}
		} else if mag > 1e-9 {
			t.Errorf("bin %d magnitude = %v, want 0", i, mag)
		}
	}
}

// Cross-check against go-dsp over a range of transform sizes.
func TestFFTMatchesReference(t *testing.T) {
	for _, n := range []int{8, 32, 128, 512, 2048} {
		signal := make([]float64, n)
		for i := range signal {
			x := float64(i)
			signal[i] = math.Sin(0.7*x) + 0.3*math.Sin(2.1*x+1.0) + 0.05*math.Cos(5.3*x)
		}

		got, err := NewFFT().Compute(signal)
		if err != nil {
			t.Fatalf("n=%d: Compute failed: %v", n, err)
		}

		want := godsp.FFTReal(signal)
		if len(got) != len(want) {
			t.Fatalf("n=%d: spectrum length = %d, want %d", n, len(got), len(want))
		}

		for i := range want {
			if cmplx.Abs(got[i]-want[i]) > 1e-8*float64(n) {
				t.Fatalf("n=%d: bin %d = %v, reference %v", n, i, got[i], want[i])
			}
		}
	}
}

func TestFFTParseval(t *testing.T) {
	const n = 256
	signal := make([]float64, n)
	for i := range signal {
		signal[i] = math.Sin(0.42*float64(i)) - 0.2
	}

	spectrum, err := NewFFT().Compute(signal)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	timeEnergy := 0.0
	for _, s := range signal {
		timeEnergy += s * s
	}

	freqEnergy := 0.0
	for _, bin := range spectrum {
		freqEnergy += real(bin)*real(bin) + imag(bin)*imag(bin)
	}
	freqEnergy /= n

	if math.Abs(timeEnergy-freqEnergy) > 1e-8 {
		t.Errorf("energy mismatch: time %v, freq %v", timeEnergy, freqEnergy)
	}
}

func TestFFTNonPowerOfTwo(t *testing.T) {
	if _, err := NewFFT().Compute(make([]float64, 100)); err == nil {
		t.Error("Compute should fail for a non-power-of-two length")
	}
}

func TestFFTEmptySignal(t *testing.T) {
	spectrum, err := NewFFT().Compute(nil)
	if err != nil {
		t.Fatalf("Compute on empty signal failed: %v", err)
	}
	if len(spectrum) != 0 {
		t.Errorf("spectrum length = %d, want 0", len(spectrum))
	}
}
