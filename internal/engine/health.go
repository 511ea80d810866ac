package engine

import "github.com/miradorstack/flightwatch/internal/models"

// AssessHealth grades a cycle's anomalies: critical if any record is critical,
// degraded if any is high, normal otherwise.
func AssessHealth(records []models.AnomalyRecord) models.SystemHealth {
	worst := 0
	for _, rec := range records {
		if rank := rec.Severity.Rank(); rank > worst {
			worst = rank
		}
	}
	switch {
	case worst >= models.SeverityCritical.Rank():
		return models.HealthCritical
	case worst >= models.SeverityHigh.Rank():
		return models.HealthDegraded
	default:
		return models.HealthNormal
	}
}
