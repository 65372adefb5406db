package quality

// Verdict is the authenticity tier assigned to one analyzed track. Exactly
// one verdict is produced per analysis.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictFake
	VerdictLikelyFake
	VerdictMaybeFake
	VerdictMaybeAuthentic
	VerdictLikelyAuthentic
	VerdictAuthentic
	VerdictAAC256
	VerdictSubAACLossy
)

// Tag returns the machine-readable verdict tag
func (v Verdict) Tag() string {
	switch v {
	case VerdictFake:
		return "fake"
	case VerdictLikelyFake:
		return "likely_fake"
	case VerdictMaybeFake:
		return "maybe_fake"
	case VerdictMaybeAuthentic:
		return "maybe_authentic"
	case VerdictLikelyAuthentic:
		return "likely_authentic"
	case VerdictAuthentic:
		return "authentic"
	case VerdictAAC256:
		return "aac_256"
	case VerdictSubAACLossy:
		return "sub_aac_lossy"
	default:
		return "unknown"
	}
}

// Label returns the human-readable verdict label
func (v Verdict) Label() string {
	switch v {
	case VerdictFake:
		return "Fake"
	case VerdictLikelyFake:
		return "Likely fake"
	case VerdictMaybeFake:
		return "Possibly fake"
	case VerdictMaybeAuthentic:
		return "Possibly authentic"
	case VerdictLikelyAuthentic:
		return "Likely authentic"
	case VerdictAuthentic:
		return "Authentic"
	case VerdictAAC256:
		return "AAC 256 source"
	case VerdictSubAACLossy:
		return "Low-bitrate lossy source"
	default:
		return "Unknown"
	}
}

func (v Verdict) String() string {
	return v.Tag()
}

// Sample-rate bands. Each band carries its own threshold table; the cut
// points are deliberately kept as literal per-band data rather than derived
// from one formula, so every tie-break constant stays auditable.
type band int

const (
	bandLowRate  band = iota // below 44.1 kHz
	bandStandard             // 44.1 to 48 kHz
	bandHiRes                // above 48 kHz
)

func bandFor(sampleRate int) band {
	switch {
	case sampleRate < 44100:
		return bandLowRate
	case sampleRate <= 48000:
		return bandStandard
	default:
		return bandHiRes
	}
}

// thresholdRow maps a minimum ceiling-to-Nyquist ratio to a verdict. Rows are
// evaluated in order; the first row whose MinRatio is not above the observed
// ratio wins, and every table ends with a MinRatio of 0.
type thresholdRow struct {
	MinRatio float64
	Verdict  Verdict
}

// Content on a hi-res carrier whose ceiling sits below this is lossy material
// upsampled to look lossless, regardless of how the ratio rows would score it.
const hiResFakeCeilingHz = 20000.0

var verdictTables = map[band][]thresholdRow{
	// CD/DAT rates. The 0.83..0.93 slice is the spectral roll-off band an
	// AAC-256 encode leaves at these rates: expected, not deceptive. Ceilings
	// below it mean a lossy re-encode dressed up as lossless; ceilings under
	// 45% of Nyquist are below even low-bitrate AAC grades.
	bandStandard: {
		{MinRatio: 0.99, Verdict: VerdictAuthentic},
		{MinRatio: 0.93, Verdict: VerdictLikelyAuthentic},
		{MinRatio: 0.90, Verdict: VerdictMaybeAuthentic},
		{MinRatio: 0.83, Verdict: VerdictAAC256},
		{MinRatio: 0.45, Verdict: VerdictFake},
		{MinRatio: 0, Verdict: VerdictSubAACLossy},
	},
	// Above 48 kHz there is no expected lossy roll-off band: genuine hi-res
	// content keeps energy near Nyquist, so the tiers track the ratio alone.
	bandHiRes: {
		{MinRatio: 0.99, Verdict: VerdictAuthentic},
		{MinRatio: 0.90, Verdict: VerdictLikelyAuthentic},
		{MinRatio: 0.80, Verdict: VerdictMaybeAuthentic},
		{MinRatio: 0.50, Verdict: VerdictMaybeFake},
		{MinRatio: 0, Verdict: VerdictLikelyFake},
	},
	// Sub-44.1 material is rare enough that the cuts are slightly more
	// forgiving at the top and harsher at the bottom.
	bandLowRate: {
		{MinRatio: 0.985, Verdict: VerdictAuthentic},
		{MinRatio: 0.92, Verdict: VerdictLikelyAuthentic},
		{MinRatio: 0.88, Verdict: VerdictMaybeAuthentic},
		{MinRatio: 0.80, Verdict: VerdictMaybeFake},
		{MinRatio: 0.45, Verdict: VerdictLikelyFake},
		{MinRatio: 0, Verdict: VerdictFake},
	},
}

// Classify maps the sample rate and the detected maximum significant
// frequency to an authenticity verdict. It is a pure, total function: any
// input, including absence of a detected frequency, yields a verdict.
func Classify(sampleRate int, maxFreq float64, found bool) Verdict {
	if !found || sampleRate <= 0 {
		return VerdictUnknown
	}

	nyquist := float64(sampleRate) / 2.0
	ratio := maxFreq / nyquist

	b := bandFor(sampleRate)

	if b == bandHiRes && maxFreq < hiResFakeCeilingHz {
		return VerdictFake
	}

	for _, row := range verdictTables[b] {
		if ratio >= row.MinRatio {
			return row.Verdict
		}
	}

	return VerdictUnknown
}
