package models

import "time"

// Enrollment levels accepted by the absence service.
const (
	LevelL1 = "L1"
	LevelL2 = "L2"
	LevelL3 = "L3"
	LevelM1 = "M1"
	LevelM2 = "M2"
)

// Levels lists every valid enrollment level in display order.
var Levels = []string{LevelL1, LevelL2, LevelL3, LevelM1, LevelM2}

// AbsenceRecord tracks missed hours against total scheduled hours for a student.
type AbsenceRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	LastName    string    `gorm:"column:nom;size:100;not null" json:"nom"`
	FirstName   string    `gorm:"column:prenom;size:100;not null" json:"prenom"`
	CNE         string    `gorm:"column:cne;size:20;uniqueIndex;not null" json:"cne"`
	Level       string    `gorm:"column:niveau;size:2;not null;index" json:"niveau"`
	HoursAbsent float64   `gorm:"column:heures_absence;not null" json:"heuresAbsence"`
	HoursTotal  float64   `gorm:"column:heures_total;not null" json:"heuresTotal"`
	Module      string    `gorm:"column:module;size:120" json:"module"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
