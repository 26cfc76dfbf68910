package models

import "time"

// GradeStudent is a student tracked by the grades service with two module notes.
type GradeStudent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LastName  string    `gorm:"column:nom;size:100;not null" json:"nom"`
	FirstName string    `gorm:"column:prenom;size:100;not null" json:"prenom"`
	CNE       string    `gorm:"column:cne;size:20;uniqueIndex;not null" json:"cne"`
	Note1     *float64  `gorm:"column:note1" json:"note1,omitempty"`
	Note2     *float64  `gorm:"column:note2" json:"note2,omitempty"`
	Module    string    `gorm:"column:module;size:120" json:"module"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
