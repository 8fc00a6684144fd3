package assemble

import (
	"math"

	"github.com/chorus-insights/chorus/internal/model"
)

// TargetInput carries the coverage statistics the theme-count formula runs on
type TargetInput struct {
	Companies      int
	TotalFindings  int
	PatternDensity float64 // findings per quote, a measure of recurring structure
	AvgConfidence  float64 // mean finding confidence
}

// Target is the resolved theme-count decision with its intermediate values
// retained for transparent reporting
type Target struct {
	Base                 int
	PatternMultiplier    float64
	ConfidenceMultiplier float64
	Recommended          int
	MinThemes            int
	MaxThemes            int
	Themes               int
}

// ThemeCountTarget decides how many themes the evidence actually supports.
// Company coverage drives the base; pattern density and average confidence
// scale it; the result is bounded so sparse data never manufactures
// segmentation.
func ThemeCountTarget(in TargetInput) Target {
	var base int
	switch {
	case in.Companies >= 5:
		base = maxInt(3, int(math.Floor(float64(in.Companies)*0.4)))
	case in.Companies >= 3:
		base = maxInt(2, int(math.Floor(float64(in.Companies)*0.5)))
	default:
		base = maxInt(1, minInt(in.Companies, 2))
	}

	pattern := in.PatternDensity * 5
	if pattern < 0.5 {
		pattern = 0.5
	}
	if pattern > 1.5 {
		pattern = 1.5
	}

	confidence := 0.7
	if in.AvgConfidence >= 4.0 {
		confidence = 1.3
	} else if in.AvgConfidence >= 3.0 {
		confidence = 1.0
	}

	recommended := int(math.Round(float64(base) * pattern * confidence))

	minThemes := maxInt(1, in.Companies/3)
	maxThemes := minInt(in.Companies, in.TotalFindings/2)

	themes := recommended
	if themes < minThemes {
		themes = minThemes
	}
	if themes > maxThemes {
		themes = maxThemes
	}
	// Degenerate inputs (no findings) can invert the bounds; the minimum wins
	// so a run with any companies at all still reports at least its floor.
	if maxThemes < minThemes {
		themes = minThemes
	}

	return Target{
		Base:                 base,
		PatternMultiplier:    pattern,
		ConfidenceMultiplier: confidence,
		Recommended:          recommended,
		MinThemes:            minThemes,
		MaxThemes:            maxThemes,
		Themes:               themes,
	}
}

// AlertTarget bounds how many single-company strategic alerts a run may emit
func AlertTarget(findings []model.Finding, impactFloor float64, maxAlerts int) int {
	n := 0
	for _, f := range findings {
		if f.SingleSourceAlert && f.UrgencyFlag && f.Confidence >= impactFloor {
			n++
		}
	}
	if n > maxAlerts {
		return maxAlerts
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
