package models

import (
	"fmt"
	"time"
)

// DocumentCategory partitions the storage namespace and decides which
// upload/validation rules apply to a document.
type DocumentCategory string

const (
	CategoryRegulatory  DocumentCategory = "regulatory"
	CategoryCertificate DocumentCategory = "certificate"
	CategoryPersonalID  DocumentCategory = "personal-id"
	CategoryFine        DocumentCategory = "fine"
	CategoryGeneral     DocumentCategory = "general"
)

// Categories lists every valid document category.
func Categories() []DocumentCategory {
	return []DocumentCategory{
		CategoryRegulatory,
		CategoryCertificate,
		CategoryPersonalID,
		CategoryFine,
		CategoryGeneral,
	}
}

// ParseCategory validates a raw category string.
func ParseCategory(raw string) (DocumentCategory, error) {
	c := DocumentCategory(raw)
	for _, known := range Categories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown document category %q", raw)
}

// SubType is the fixed slot a document occupies inside its category.
// Regulatory and personal-id documents have a closed slot list; the other
// categories leave it empty.
type SubType string

const (
	// Regulatory slots, one document per slot.
	SubTypeNR01             SubType = "nr-01"
	SubTypeNR06             SubType = "nr-06"
	SubTypeNR11             SubType = "nr-11"
	SubTypeNR12             SubType = "nr-12"
	SubTypeNR18             SubType = "nr-18"
	SubTypeMOPI             SubType = "mopi"
	SubTypeASO              SubType = "aso"
	SubTypeRegistrationForm SubType = "registration-form"

	// Personal identification slots.
	SubTypeNationalID       SubType = "national-id"
	SubTypeDriverLicense    SubType = "driver-license"
	SubTypeTaxID            SubType = "tax-id"
	SubTypeProofOfAddress   SubType = "proof-of-address"
	SubTypeBirthCertificate SubType = "birth-certificate"
	SubTypeOther            SubType = "other"
)

// RequiredSubTypes returns the mandatory slot list for a category. Categories
// without fixed slots have no mandatory sub-types.
func RequiredSubTypes(category DocumentCategory) []SubType {
	switch category {
	case CategoryRegulatory:
		return []SubType{
			SubTypeNR01, SubTypeNR06, SubTypeNR11, SubTypeNR12, SubTypeNR18,
			SubTypeMOPI, SubTypeASO, SubTypeRegistrationForm,
		}
	case CategoryPersonalID:
		return []SubType{
			SubTypeNationalID, SubTypeDriverLicense, SubTypeTaxID,
			SubTypeProofOfAddress, SubTypeBirthCertificate,
		}
	default:
		return nil
	}
}

// AllowedSubTypes returns every slot a category accepts, or nil for
// free-form categories.
func AllowedSubTypes(category DocumentCategory) []SubType {
	switch category {
	case CategoryRegulatory:
		return RequiredSubTypes(CategoryRegulatory)
	case CategoryPersonalID:
		return append(RequiredSubTypes(CategoryPersonalID), SubTypeOther)
	default:
		return nil
	}
}

// ParseSubType validates a raw sub-type against its category. Free-form
// categories only accept the empty sub-type.
func ParseSubType(category DocumentCategory, raw string) (SubType, error) {
	allowed := AllowedSubTypes(category)
	if allowed == nil {
		if raw != "" {
			return "", fmt.Errorf("category %q does not take a sub-type", category)
		}
		return "", nil
	}
	s := SubType(raw)
	for _, known := range allowed {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown sub-type %q for category %q", raw, category)
}

// ComplianceState is derived from a document's expiry date; it is never
// persisted and is recomputed on every read.
type ComplianceState string

const (
	StateValid        ComplianceState = "valid"
	StateExpiringSoon ComplianceState = "expiring-soon"
	StateExpired      ComplianceState = "expired"
)

// FineStatus tracks the payment state of a fine document.
type FineStatus string

const (
	FinePaid        FineStatus = "paid"
	FinePending     FineStatus = "pending"
	FineUnderAppeal FineStatus = "under-appeal"
)

// DocumentRecord is the metadata row referencing a stored blob. StorageKey is
// the durable reference; FileURL is a snapshot of the last resolved URL and may
// go stale when a signed URL expires, so readers re-resolve from StorageKey.
type DocumentRecord struct {
	ID          string           `json:"id" db:"id"`
	SubjectID   string           `json:"subject_id" db:"subject_id"`
	Category    DocumentCategory `json:"category" db:"category"`
	SubCategory SubType          `json:"sub_category,omitempty" db:"sub_category"`
	Title       string           `json:"title" db:"title"`
	StorageKey  string           `json:"storage_key" db:"storage_key"`
	FileURL     string           `json:"file_url,omitempty" db:"file_url"`
	FileSize    int64            `json:"file_size" db:"file_size"`
	ContentType string           `json:"content_type" db:"content_type"`
	ExpiryDate  *time.Time       `json:"expiry_date,omitempty" db:"expiry_date"`
	IssueDate   *time.Time       `json:"issue_date,omitempty" db:"issue_date"`
	FineAmount  *float64         `json:"fine_amount,omitempty" db:"fine_amount"`
	FinePoints  *int             `json:"fine_points,omitempty" db:"fine_points"`
	FineStatus  *FineStatus      `json:"fine_status,omitempty" db:"fine_status"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// StoredFileMeta describes a blob as listed from the storage backend.
type StoredFileMeta struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// ResolvedURL is a retrieval link for a stored blob. Signed URLs expire at
// ExpiresAt; public fallback URLs are long-lived. Callers decide whether to
// cache or re-resolve based on Signed.
type ResolvedURL struct {
	URL       string     `json:"url"`
	Signed    bool       `json:"signed"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ComplianceSummary aggregates a subject's documents within one category.
type ComplianceSummary struct {
	SubjectID    string                      `json:"subject_id"`
	Category     DocumentCategory            `json:"category"`
	Valid        int                         `json:"valid"`
	ExpiringSoon int                         `json:"expiring_soon"`
	Expired      int                         `json:"expired"`
	Missing      []SubType                   `json:"missing"`
	Current      map[SubType]*DocumentRecord `json:"current,omitempty"`
}

// DocumentView is a DocumentRecord enriched with its derived compliance state
// and a freshly resolved retrieval URL.
type DocumentView struct {
	DocumentRecord
	State         ComplianceState `json:"state"`
	StatusMessage string          `json:"status_message"`
	URL           *ResolvedURL    `json:"url,omitempty"`
}

// StorageUsage reports the total blob footprint of one subject.
type StorageUsage struct {
	SubjectID  string `json:"subject_id"`
	TotalBytes int64  `json:"total_bytes"`
	TotalHuman string `json:"total_human"`
	FileCount  int    `json:"file_count"`
}
