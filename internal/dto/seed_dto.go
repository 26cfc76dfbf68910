package dto

// SeedResult reports how many demo rows were inserted per table.
type SeedResult struct {
	GradeStudents  int `json:"gradeStudents"`
	AbsenceRecords int `json:"absenceRecords"`
	Students       int `json:"students"`
}
