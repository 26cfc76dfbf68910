package dto

import (
	"github.com/noah-isme/scolarite-api/internal/calculator"
	"github.com/noah-isme/scolarite-api/internal/models"
)

// AbsenceRequest captures payloads for creating or replacing an absence record.
// HoursTotal falls back to the configured default when omitted.
type AbsenceRequest struct {
	LastName    string   `json:"nom" validate:"required,max=100"`
	FirstName   string   `json:"prenom" validate:"required,max=100"`
	CNE         string   `json:"cne" validate:"required,min=5,max=20"`
	Level       string   `json:"niveau" validate:"required,oneof=L1 L2 L3 M1 M2"`
	HoursAbsent float64  `json:"heuresAbsence" validate:"gte=0"`
	HoursTotal  *float64 `json:"heuresTotal" validate:"omitempty,gt=0"`
	Module      string   `json:"module" validate:"omitempty,max=120"`
}

// AbsenceResponse serializes an absence record with its computed rate.
type AbsenceResponse struct {
	ID          uint                `json:"id"`
	LastName    string              `json:"nom"`
	FirstName   string              `json:"prenom"`
	CNE         string              `json:"cne"`
	Level       string              `json:"niveau"`
	HoursAbsent float64             `json:"heuresAbsence"`
	HoursTotal  float64             `json:"heuresTotal"`
	Module      string              `json:"module"`
	Rate        float64             `json:"tauxAbsence"`
	RatePercent float64             `json:"tauxAbsencePourcent"`
	Severity    calculator.Severity `json:"severite"`
}

// AbsenceRateResponse exposes only the absence rate of a record.
type AbsenceRateResponse struct {
	ID          uint    `json:"id"`
	CNE         string  `json:"cne"`
	HoursAbsent float64 `json:"heuresAbsence"`
	HoursTotal  float64 `json:"heuresTotal"`
	Rate        float64 `json:"tauxAbsence"`
	RatePercent float64 `json:"tauxAbsencePourcent"`
}

// BlacklistResponse lists the records at or above a threshold.
type BlacklistResponse struct {
	Threshold float64           `json:"seuil"`
	Total     int               `json:"total"`
	Items     []AbsenceResponse `json:"items"`
}

// ImportRowError describes a spreadsheet row that could not be imported.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarises an absence spreadsheet import.
type ImportResult struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors"`
}

// NewAbsenceResponse converts a model into its DTO. Records are validated on
// write, so a non-positive total only happens with legacy rows and yields a zero rate.
func NewAbsenceResponse(model models.AbsenceRecord, threshold float64) AbsenceResponse {
	rate, err := calculator.AbsenceRate(model.HoursAbsent, model.HoursTotal)
	if err != nil {
		rate = 0
	}

	return AbsenceResponse{
		ID:          model.ID,
		LastName:    model.LastName,
		FirstName:   model.FirstName,
		CNE:         model.CNE,
		Level:       model.Level,
		HoursAbsent: model.HoursAbsent,
		HoursTotal:  model.HoursTotal,
		Module:      model.Module,
		Rate:        rate,
		RatePercent: calculator.Percent(rate),
		Severity:    calculator.ClassifySeverity(rate, threshold),
	}
}

// NewAbsenceResponses converts a slice of models.
func NewAbsenceResponses(items []models.AbsenceRecord, threshold float64) []AbsenceResponse {
	responses := make([]AbsenceResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewAbsenceResponse(item, threshold))
	}
	return responses
}

// NewAbsenceRateResponse converts a model into the rate-only DTO.
func NewAbsenceRateResponse(model models.AbsenceRecord, rate float64) AbsenceRateResponse {
	return AbsenceRateResponse{
		ID:          model.ID,
		CNE:         model.CNE,
		HoursAbsent: model.HoursAbsent,
		HoursTotal:  model.HoursTotal,
		Rate:        rate,
		RatePercent: calculator.Percent(rate),
	}
}
