package quality

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Cartasiane/Keson-spectral-improver/algorithms/temporal"
)

// Separator between summary clauses
const summarySeparator = " | "

// Shown when no sub-result produced a clause at all
const summaryUnavailable = "spectral analysis unavailable"

// Report is the terminal, caller-facing value of one analysis. It is built
// once and never mutated.
type Report struct {
	Verdict        Verdict          `json:"verdict"`
	VerdictLabel   string           `json:"verdict_label"`
	MaxFrequencyHz float64          `json:"max_frequency_hz,omitempty"`
	FrequencyFound bool             `json:"frequency_found"`
	DynamicRange   *temporal.Result `json:"dynamic_range,omitempty"`
	LoudnessLUFS   *float64         `json:"loudness_lufs,omitempty"`
	Summary        string           `json:"summary"`
}

// MarshalJSON serializes the verdict as its machine-readable tag
func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Tag())
}

// BuildReport assembles all partial results into one report. It never fails:
// a missing sub-result just drops its clause from the summary line.
func BuildReport(verdict Verdict, maxFreq float64, found bool, dr *temporal.Result, lufs *float64) *Report {
	var clauses []string

	if verdict != VerdictUnknown {
		clauses = append(clauses, verdict.Label())
	}

	if found {
		clauses = append(clauses, fmt.Sprintf("max %.1f kHz", maxFreq/1000.0))
	}

	if clause := dynamicRangeClause(dr); clause != "" {
		clauses = append(clauses, clause)
	}

	if lufs != nil {
		clauses = append(clauses, fmt.Sprintf("%.1f LUFS", *lufs))
	}

	summary := summaryUnavailable
	if len(clauses) > 0 {
		summary = strings.Join(clauses, summarySeparator)
	}

	return &Report{
		Verdict:        verdict,
		VerdictLabel:   verdict.Label(),
		MaxFrequencyHz: maxFreq,
		FrequencyFound: found,
		DynamicRange:   dr,
		LoudnessLUFS:   lufs,
		Summary:        summary,
	}
}

func dynamicRangeClause(dr *temporal.Result) string {
	if dr == nil {
		return ""
	}

	switch dr.Status {
	case temporal.StatusOK:
		return fmt.Sprintf("DR %.2f dB", dr.DynamicRange)
	case temporal.StatusTooShort:
		return "DR (too short)"
	case temporal.StatusSilent:
		return "DR (silent track)"
	default:
		return ""
	}
}
