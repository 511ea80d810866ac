package engine

import (
	"testing"

	"github.com/miradorstack/flightwatch/internal/models"
)

func TestAssessHealth(t *testing.T) {
	cases := []struct {
		severities []models.Severity
		want       models.SystemHealth
	}{
		{nil, models.HealthNormal},
		{[]models.Severity{models.SeverityLow, models.SeverityMedium}, models.HealthNormal},
		{[]models.Severity{models.SeverityMedium, models.SeverityHigh}, models.HealthDegraded},
		{[]models.Severity{models.SeverityHigh, models.SeverityCritical, models.SeverityLow}, models.HealthCritical},
	}
	for _, tc := range cases {
		records := make([]models.AnomalyRecord, 0, len(tc.severities))
		for _, sev := range tc.severities {
			records = append(records, models.AnomalyRecord{Severity: sev})
		}
		if got := AssessHealth(records); got != tc.want {
			t.Fatalf("%v: expected %s, got %s", tc.severities, tc.want, got)
		}
	}
}
