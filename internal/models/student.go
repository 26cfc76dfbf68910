package models

import "time"

// Student is the record managed by the plain CRUD grades service.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LastName  string    `gorm:"column:nom;size:100;not null;index" json:"nom"`
	FirstName string    `gorm:"column:prenom;size:100;not null" json:"prenom"`
	Note1     *float64  `gorm:"column:note1" json:"note1,omitempty"`
	Note2     *float64  `gorm:"column:note2" json:"note2,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
