// Package calculator holds the grade and absence arithmetic shared by every service.
package calculator

import (
	"errors"
	"math"
)

// PassingGrade is the minimum average required to validate a module.
const PassingGrade = 12.0

// Severity bands used to colour-code blacklisted students.
const (
	CriticalRate = 0.8
	HighRate     = 0.65
)

// ErrInvalidTotalHours is returned when the total hours denominator is not strictly positive.
var ErrInvalidTotalHours = errors.New("total hours must be greater than zero")

// ErrInvalidThreshold is returned when a blacklist threshold cannot be interpreted.
var ErrInvalidThreshold = errors.New("threshold must be between 0 and 1 (or a percentage up to 100)")

// Severity classifies how far above the blacklist threshold a student sits.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// FinalGradeResult is the breakdown of the absence penalty applied to an average.
type FinalGradeResult struct {
	Average     float64 `json:"moyenne"`
	AbsenceRate float64 `json:"tauxAbsence"`
	Penalty     float64 `json:"penalite"`
	FinalGrade  float64 `json:"noteFinale"`
}

// Average returns the mean of the two notes. When a single note is present it
// is returned as-is; ok is false when both are missing.
func Average(note1, note2 *float64) (float64, bool) {
	switch {
	case note1 == nil && note2 == nil:
		return 0, false
	case note1 == nil:
		return *note2, true
	case note2 == nil:
		return *note1, true
	default:
		return (*note1 + *note2) / 2, true
	}
}

// IsPassing reports whether the average of both notes reaches PassingGrade.
func IsPassing(note1, note2 *float64) bool {
	average, ok := Average(note1, note2)
	if !ok {
		return false
	}
	return average >= PassingGrade
}

// AbsenceRate returns hoursAbsent/hoursTotal as a fraction. The result is not clamped.
func AbsenceRate(hoursAbsent, hoursTotal float64) (float64, error) {
	if math.IsNaN(hoursTotal) || hoursTotal <= 0 {
		return 0, ErrInvalidTotalHours
	}
	return hoursAbsent / hoursTotal, nil
}

// IsBlacklisted reports whether the absence rate meets or exceeds threshold.
func IsBlacklisted(hoursAbsent, hoursTotal, threshold float64) (bool, error) {
	rate, err := AbsenceRate(hoursAbsent, hoursTotal)
	if err != nil {
		return false, err
	}
	return rate >= threshold, nil
}

// ClassifySeverity buckets a rate. Rates in the critical and high bands are
// reported regardless of threshold; anything else is medium when it meets
// the threshold and none otherwise.
func ClassifySeverity(rate, threshold float64) Severity {
	switch {
	case rate >= CriticalRate:
		return SeverityCritical
	case rate >= HighRate:
		return SeverityHigh
	case rate >= threshold:
		return SeverityMedium
	default:
		return SeverityNone
	}
}

// FinalGrade subtracts the absence penalty (rate * average) from the average.
// Neither the rate nor the result is clamped.
func FinalGrade(average, absenceRate float64) FinalGradeResult {
	penalty := absenceRate * average
	return FinalGradeResult{
		Average:     average,
		AbsenceRate: absenceRate,
		Penalty:     penalty,
		FinalGrade:  average - penalty,
	}
}

// Percent converts a fractional rate to a percentage.
func Percent(rate float64) float64 {
	return rate * 100
}

// NormalizeThreshold accepts either a fraction in [0,1] or a legacy percentage
// in (1,100] and returns the fraction.
func NormalizeThreshold(value float64) (float64, error) {
	switch {
	case math.IsNaN(value) || value < 0 || value > 100:
		return 0, ErrInvalidThreshold
	case value > 1:
		return value / 100, nil
	default:
		return value, nil
	}
}
