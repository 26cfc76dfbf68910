package dto

import (
	"github.com/noah-isme/scolarite-api/internal/calculator"
	"github.com/noah-isme/scolarite-api/internal/models"
)

// StudentRequest captures create and update payloads for the CRUD student service.
type StudentRequest struct {
	LastName  string   `json:"nom" validate:"required,max=100"`
	FirstName string   `json:"prenom" validate:"required,max=100"`
	Note1     *float64 `json:"note1" validate:"omitempty,gte=0,lte=20"`
	Note2     *float64 `json:"note2" validate:"omitempty,gte=0,lte=20"`
}

// StudentResponse serializes a student with the derived average.
type StudentResponse struct {
	ID        uint     `json:"id"`
	LastName  string   `json:"nom"`
	FirstName string   `json:"prenom"`
	Note1     *float64 `json:"note1"`
	Note2     *float64 `json:"note2"`
	Average   *float64 `json:"moyenne"`
}

// NewStudentResponse converts a model into its DTO.
func NewStudentResponse(model models.Student) StudentResponse {
	response := StudentResponse{
		ID:        model.ID,
		LastName:  model.LastName,
		FirstName: model.FirstName,
		Note1:     model.Note1,
		Note2:     model.Note2,
	}
	if average, ok := calculator.Average(model.Note1, model.Note2); ok {
		response.Average = &average
	}
	return response
}

// NewStudentResponses converts a slice of models.
func NewStudentResponses(items []models.Student) []StudentResponse {
	responses := make([]StudentResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewStudentResponse(item))
	}
	return responses
}
