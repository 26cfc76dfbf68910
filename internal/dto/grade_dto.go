package dto

import (
	"github.com/noah-isme/scolarite-api/internal/calculator"
	"github.com/noah-isme/scolarite-api/internal/models"
)

// GradeStudentRequest captures payloads for creating or replacing a graded student.
type GradeStudentRequest struct {
	LastName  string   `json:"nom" validate:"required,max=100"`
	FirstName string   `json:"prenom" validate:"required,max=100"`
	CNE       string   `json:"cne" validate:"required,min=5,max=20"`
	Note1     *float64 `json:"note1" validate:"omitempty,gte=0,lte=20"`
	Note2     *float64 `json:"note2" validate:"omitempty,gte=0,lte=20"`
	Module    string   `json:"module" validate:"omitempty,max=120"`
}

// GradeStudentResponse serializes a graded student with the derived average.
type GradeStudentResponse struct {
	ID        uint     `json:"id"`
	LastName  string   `json:"nom"`
	FirstName string   `json:"prenom"`
	CNE       string   `json:"cne"`
	Note1     *float64 `json:"note1"`
	Note2     *float64 `json:"note2"`
	Module    string   `json:"module"`
	Average   *float64 `json:"moyenne"`
	Passed    bool     `json:"valide"`
}

// FinalGradeResponse joins a student's average with their absence record.
type FinalGradeResponse struct {
	StudentID       uint    `json:"etudiantId"`
	CNE             string  `json:"cne"`
	LastName        string  `json:"nom"`
	FirstName       string  `json:"prenom"`
	Average         float64 `json:"moyenne"`
	AbsenceRate     float64 `json:"tauxAbsence"`
	Penalty         float64 `json:"penalite"`
	FinalGrade      float64 `json:"noteFinale"`
	AbsenceRecorded bool    `json:"absenceEnregistree"`
}

// NewGradeStudentResponse converts a model into its DTO.
func NewGradeStudentResponse(model models.GradeStudent) GradeStudentResponse {
	response := GradeStudentResponse{
		ID:        model.ID,
		LastName:  model.LastName,
		FirstName: model.FirstName,
		CNE:       model.CNE,
		Note1:     model.Note1,
		Note2:     model.Note2,
		Module:    model.Module,
		Passed:    calculator.IsPassing(model.Note1, model.Note2),
	}
	if average, ok := calculator.Average(model.Note1, model.Note2); ok {
		response.Average = &average
	}
	return response
}

// NewGradeStudentResponses converts a slice of models.
func NewGradeStudentResponses(items []models.GradeStudent) []GradeStudentResponse {
	responses := make([]GradeStudentResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewGradeStudentResponse(item))
	}
	return responses
}

// NewFinalGradeResponse builds the final grade breakdown for a student.
func NewFinalGradeResponse(student models.GradeStudent, result calculator.FinalGradeResult, absenceRecorded bool) FinalGradeResponse {
	return FinalGradeResponse{
		StudentID:       student.ID,
		CNE:             student.CNE,
		LastName:        student.LastName,
		FirstName:       student.FirstName,
		Average:         result.Average,
		AbsenceRate:     result.AbsenceRate,
		Penalty:         result.Penalty,
		FinalGrade:      result.FinalGrade,
		AbsenceRecorded: absenceRecorded,
	}
}
