// Package repository persists document metadata rows. It owns nothing about
// the blobs themselves; callers hand it the storage key and URL produced by
// the document store.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/crewdocs/crewdocs-api/internal/models"
)

const dateLayout = "2006-01-02"

type Repository interface {
	Create(ctx context.Context, rec *models.DocumentRecord) error
	GetByID(ctx context.Context, id string) (*models.DocumentRecord, error)
	ListBySubject(ctx context.Context, subjectID string, category models.DocumentCategory) ([]models.DocumentRecord, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.DocumentRecord, error)
	Update(ctx context.Context, rec *models.DocumentRecord) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, rec *models.DocumentRecord) error {
	query := `
		INSERT INTO document_records (
			id, subject_id, category, sub_category, title, storage_key, file_url,
			file_size, content_type, expiry_date, issue_date,
			fine_amount, fine_points, fine_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.SubjectID,
		rec.Category,
		rec.SubCategory,
		rec.Title,
		rec.StorageKey,
		rec.FileURL,
		rec.FileSize,
		rec.ContentType,
		dateOrNil(rec.ExpiryDate),
		dateOrNil(rec.IssueDate),
		rec.FineAmount,
		rec.FinePoints,
		fineStatusOrNil(rec.FineStatus),
		rec.CreatedAt.Format(time.RFC3339Nano),
		rec.UpdatedAt.Format(time.RFC3339Nano),
	)

	return err
}

const selectColumns = `
	id, subject_id, category, sub_category, title, storage_key, file_url,
	file_size, content_type, expiry_date, issue_date,
	fine_amount, fine_points, fine_status, created_at, updated_at
`

func (r *repository) GetByID(ctx context.Context, id string) (*models.DocumentRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM document_records WHERE id = $1`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *repository) ListBySubject(ctx context.Context, subjectID string, category models.DocumentCategory) ([]models.DocumentRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM document_records WHERE subject_id = $1`
	args := []any{subjectID}
	if category != "" {
		query += ` AND category = $2`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (r *repository) ListByIDs(ctx context.Context, ids []string) ([]models.DocumentRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT `+selectColumns+` FROM document_records WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}

	// Preserve the caller's selection order.
	byID := make(map[string]models.DocumentRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	ordered := make([]models.DocumentRecord, 0, len(records))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			ordered = append(ordered, rec)
		}
	}
	return ordered, nil
}

func (r *repository) Update(ctx context.Context, rec *models.DocumentRecord) error {
	query := `
		UPDATE document_records
		SET title = $2, storage_key = $3, file_url = $4, file_size = $5,
		    content_type = $6, expiry_date = $7, issue_date = $8,
		    fine_amount = $9, fine_points = $10, fine_status = $11, updated_at = $12
		WHERE id = $1
	`

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Title,
		rec.StorageKey,
		rec.FileURL,
		rec.FileSize,
		rec.ContentType,
		dateOrNil(rec.ExpiryDate),
		dateOrNil(rec.IssueDate),
		rec.FineAmount,
		rec.FinePoints,
		fineStatusOrNil(rec.FineStatus),
		now.Format(time.RFC3339Nano),
	)
	if err == nil {
		rec.UpdatedAt = now
	}
	return err
}

func (r *repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM document_records WHERE id = $1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.DocumentRecord, error) {
	var (
		rec        models.DocumentRecord
		expiry     sql.NullString
		issue      sql.NullString
		fineStatus sql.NullString
		createdAt  string
		updatedAt  string
	)

	err := row.Scan(
		&rec.ID,
		&rec.SubjectID,
		&rec.Category,
		&rec.SubCategory,
		&rec.Title,
		&rec.StorageKey,
		&rec.FileURL,
		&rec.FileSize,
		&rec.ContentType,
		&expiry,
		&issue,
		&rec.FineAmount,
		&rec.FinePoints,
		&fineStatus,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.ExpiryDate, err = parseDate(expiry); err != nil {
		return nil, err
	}
	if rec.IssueDate, err = parseDate(issue); err != nil {
		return nil, err
	}
	if fineStatus.Valid {
		status := models.FineStatus(fineStatus.String)
		rec.FineStatus = &status
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]models.DocumentRecord, error) {
	var records []models.DocumentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func dateOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func fineStatusOrNil(s *models.FineStatus) any {
	if s == nil {
		return nil
	}
	return string(*s)
}

func parseDate(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse date %q: %w", v.String, err)
	}
	return &t, nil
}
