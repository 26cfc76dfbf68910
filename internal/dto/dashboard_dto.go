package dto

import "time"

// SeverityBreakdown counts blacklisted records per severity band.
type SeverityBreakdown struct {
	Critical int64 `json:"critical"`
	High     int64 `json:"high"`
	Medium   int64 `json:"medium"`
}

// DashboardStatsResponse aggregates the headline figures shown on the dashboard.
type DashboardStatsResponse struct {
	TotalStudents      int64             `json:"totalEtudiants"`
	PassingStudents    int64             `json:"etudiantsValidant"`
	PassRate           float64           `json:"tauxReussite"`
	OverallAverage     *float64          `json:"moyenneGenerale"`
	BestAverage        *float64          `json:"meilleureMoyenne"`
	TotalAbsences      int64             `json:"totalAbsences"`
	AverageAbsenceRate float64           `json:"tauxAbsenceMoyen"`
	Threshold          float64           `json:"seuil"`
	Blacklisted        int64             `json:"listeNoire"`
	Severities         SeverityBreakdown `json:"severites"`
	GeneratedAt        time.Time         `json:"generatedAt"`
	CacheHit           bool              `json:"cacheHit"`
}
