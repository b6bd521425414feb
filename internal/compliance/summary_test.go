package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdocs/crewdocs-api/internal/models"
)

func record(id string, subType models.SubType, createdAt time.Time, expiry *time.Time) models.DocumentRecord {
	return models.DocumentRecord{
		ID:          id,
		SubjectID:   "emp-1",
		Category:    models.CategoryRegulatory,
		SubCategory: subType,
		Title:       string(subType),
		StorageKey:  "emp-1/regulatory/" + string(subType) + "/doc.pdf",
		ExpiryDate:  expiry,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestSummarizeEmptySet(t *testing.T) {
	required := models.RequiredSubTypes(models.CategoryRegulatory)

	summary := Summarize(nil, required, today)

	assert.Zero(t, summary.Valid)
	assert.Zero(t, summary.ExpiringSoon)
	assert.Zero(t, summary.Expired)
	assert.Equal(t, required, summary.Missing)
	assert.Empty(t, summary.Current)
}

func TestSummarizeCountsCurrentsOnly(t *testing.T) {
	created := today.AddDate(0, -1, 0)
	records := []models.DocumentRecord{
		// Two ASO records; only the newer one counts, and it is valid.
		record("a1", models.SubTypeASO, created, dayOffset(-10)),
		record("a2", models.SubTypeASO, created.AddDate(0, 0, 5), dayOffset(60)),
		// One expired, one expiring.
		record("b1", models.SubTypeNR06, created, dayOffset(-1)),
		record("c1", models.SubTypeNR18, created, dayOffset(10)),
	}

	summary := Summarize(records, models.RequiredSubTypes(models.CategoryRegulatory), today)

	assert.Equal(t, 1, summary.Valid)
	assert.Equal(t, 1, summary.ExpiringSoon)
	assert.Equal(t, 1, summary.Expired)

	require.Contains(t, summary.Current, models.SubTypeASO)
	assert.Equal(t, "a2", summary.Current[models.SubTypeASO].ID)

	// nr-01, nr-11, nr-12, mopi, registration-form have no document at all.
	assert.ElementsMatch(t, []models.SubType{
		models.SubTypeNR01, models.SubTypeNR11, models.SubTypeNR12,
		models.SubTypeMOPI, models.SubTypeRegistrationForm,
	}, summary.Missing)
}

func TestSummarizeTieBreakByID(t *testing.T) {
	created := today.AddDate(0, 0, -7)

	a := record("0042", models.SubTypeNationalID, created, nil)
	b := record("0117", models.SubTypeNationalID, created, nil)

	// Same CreatedAt in both orders: the higher ID must win every time.
	for i := 0; i < 10; i++ {
		forward := Summarize([]models.DocumentRecord{a, b}, nil, today)
		reverse := Summarize([]models.DocumentRecord{b, a}, nil, today)

		require.Equal(t, "0117", forward.Current[models.SubTypeNationalID].ID)
		require.Equal(t, "0117", reverse.Current[models.SubTypeNationalID].ID)
	}
}

func TestSummarizeMissingIgnoresOptionalSlots(t *testing.T) {
	created := today.AddDate(0, 0, -1)
	records := []models.DocumentRecord{
		record("p1", models.SubTypeNationalID, created, nil),
		record("p2", models.SubTypeOther, created, nil),
	}

	summary := Summarize(records, models.RequiredSubTypes(models.CategoryPersonalID), today)

	assert.Equal(t, 2, summary.Valid)
	assert.ElementsMatch(t, []models.SubType{
		models.SubTypeDriverLicense, models.SubTypeTaxID,
		models.SubTypeProofOfAddress, models.SubTypeBirthCertificate,
	}, summary.Missing)
}
