package compliance

import (
	"time"

	"github.com/crewdocs/crewdocs-api/internal/models"
)

// Summarize groups a subject's records by sub-type, picks the most recently
// created record of each group as "current", classifies each current record,
// and reports the mandatory sub-types with no document at all.
//
// When two records of the same sub-type share a CreatedAt, the one with the
// higher ID wins, so repeated runs over identical input always produce the
// same summary.
func Summarize(records []models.DocumentRecord, required []models.SubType, now time.Time) models.ComplianceSummary {
	summary := models.ComplianceSummary{
		Missing: []models.SubType{},
		Current: make(map[models.SubType]*models.DocumentRecord),
	}

	for i := range records {
		rec := &records[i]
		current, ok := summary.Current[rec.SubCategory]
		if !ok || newerThan(rec, current) {
			summary.Current[rec.SubCategory] = rec
		}
	}

	for _, rec := range summary.Current {
		switch Classify(rec.ExpiryDate, now) {
		case models.StateExpired:
			summary.Expired++
		case models.StateExpiringSoon:
			summary.ExpiringSoon++
		default:
			summary.Valid++
		}
	}

	for _, subType := range required {
		if _, ok := summary.Current[subType]; !ok {
			summary.Missing = append(summary.Missing, subType)
		}
	}

	return summary
}

func newerThan(a, b *models.DocumentRecord) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}
