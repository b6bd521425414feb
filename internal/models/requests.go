package models

import "time"

// UploadDocumentRequest carries one validated upload through the service
// layer. Data is the raw file payload; ContentType may be empty, in which
// case the store sniffs it.
type UploadDocumentRequest struct {
	SubjectID   string
	Category    DocumentCategory
	SubCategory SubType
	Title       string
	FileName    string
	ContentType string
	Data        []byte
	ExpiryDate  *time.Time
	IssueDate   *time.Time
	FineAmount  *float64
	FinePoints  *int
	FineStatus  *FineStatus
}

// ExportRequest selects documents for a batch export hand-off.
type ExportRequest struct {
	SubjectID   string   `json:"subject_id"`
	SubjectName string   `json:"subject_name"`
	Channel     string   `json:"channel"`
	Recipient   string   `json:"recipient"`
	DocumentIDs []string `json:"document_ids"`
}
