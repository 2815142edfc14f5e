package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Filter selects a slice of the cached reports. The zero value matches
// everything. Search matches title, description and userName
// case-insensitively; Urgent means pending with a priority type.
type Filter struct {
	UserID string
	Status *Status
	Type   *ReportType
	Urgent bool
	Search string
}

// Matches reports whether r satisfies the filter. Kept in sync with the
// SQL built by the sqlx cache so in-memory fakes and subscriptions agree.
func (f Filter) Matches(r *Report) bool {
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	if f.Type != nil && r.Type != *f.Type {
		return false
	}
	if f.Urgent && !r.Urgent() {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.Title), q) &&
			!strings.Contains(strings.ToLower(r.Description), q) &&
			!strings.Contains(strings.ToLower(r.UserName), q) {
			return false
		}
	}
	return true
}

// StatusCounts are the per-status aggregates used for moderation stats
type StatusCounts struct {
	Pending  int
	Approved int
	Rejected int
	Total    int
}

// Cache is the on-device mirror of the report collection. It is the
// default read path and must keep working with no network connectivity.
// Upserts are idempotent on id.
type Cache interface {
	Upsert(ctx context.Context, r *Report) error
	Delete(ctx context.Context, id uuid.UUID) error
	// GetByID returns (nil, nil) on a cache miss
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	List(ctx context.Context, f Filter) ([]*Report, error)
	Counts(ctx context.Context) (*StatusCounts, error)
}

// reportRow is the cache row shape: enums as text, timestamps as epoch
// milliseconds, nullable columns as sql.Null*.
type reportRow struct {
	ID               uuid.UUID      `db:"id"`
	UserID           string         `db:"user_id"`
	UserName         string         `db:"user_name"`
	Title            string         `db:"title"`
	Description      string         `db:"description"`
	ReportType       string         `db:"report_type"`
	Status           string         `db:"status"`
	Latitude         float64        `db:"latitude"`
	Longitude        float64        `db:"longitude"`
	Address          sql.NullString `db:"address"`
	ImageURL         sql.NullString `db:"image_url"`
	CreatedAt        int64          `db:"created_at"`
	UpdatedAt        int64          `db:"updated_at"`
	ApprovedBy       sql.NullString `db:"approved_by"`
	RejectionReason  sql.NullString `db:"rejection_reason"`
	EditedBy         sql.NullString `db:"edited_by"`
	LastEditAt       sql.NullInt64  `db:"last_edit_at"`
	ModeratorComment sql.NullString `db:"moderator_comment"`
	IsSynced         bool           `db:"is_synced"`
}

func toRow(r *Report) *reportRow {
	row := &reportRow{
		ID:          r.ID,
		UserID:      r.UserID,
		UserName:    r.UserName,
		Title:       r.Title,
		Description: r.Description,
		ReportType:  string(r.Type),
		Status:      string(r.Status),
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		CreatedAt:   r.CreatedAt.UnixMilli(),
		UpdatedAt:   r.UpdatedAt.UnixMilli(),
		IsSynced:    r.IsSynced,
	}
	row.Address = nullString(r.Address)
	row.ImageURL = nullString(r.ImageURL)
	row.ApprovedBy = nullString(r.ApprovedBy)
	row.RejectionReason = nullString(r.RejectionReason)
	row.EditedBy = nullString(r.EditedBy)
	row.ModeratorComment = nullString(r.ModeratorComment)
	if r.LastEditAt != nil {
		row.LastEditAt = sql.NullInt64{Int64: r.LastEditAt.UnixMilli(), Valid: true}
	}
	return row
}

func fromRow(row *reportRow) (*Report, error) {
	reportType, ok := ParseReportType(row.ReportType)
	if !ok {
		return nil, fmt.Errorf("cached report %s has unknown type %q", row.ID, row.ReportType)
	}
	reportStatus, ok := ParseStatus(row.Status)
	if !ok {
		return nil, fmt.Errorf("cached report %s has unknown status %q", row.ID, row.Status)
	}

	r := &Report{
		ID:               row.ID,
		UserID:           row.UserID,
		UserName:         row.UserName,
		Title:            row.Title,
		Description:      row.Description,
		Type:             reportType,
		Status:           reportStatus,
		Latitude:         row.Latitude,
		Longitude:        row.Longitude,
		Address:          stringPtr(row.Address),
		ImageURL:         stringPtr(row.ImageURL),
		CreatedAt:        time.UnixMilli(row.CreatedAt),
		UpdatedAt:        time.UnixMilli(row.UpdatedAt),
		ApprovedBy:       stringPtr(row.ApprovedBy),
		RejectionReason:  stringPtr(row.RejectionReason),
		EditedBy:         stringPtr(row.EditedBy),
		ModeratorComment: stringPtr(row.ModeratorComment),
		IsSynced:         row.IsSynced,
	}
	if row.LastEditAt.Valid {
		t := time.UnixMilli(row.LastEditAt.Int64)
		r.LastEditAt = &t
	}
	return r, nil
}

// escapeLike quotes LIKE metacharacters so search terms match literally,
// keeping the SQL path in agreement with Filter.Matches
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

type sqlCache struct {
	db *sqlx.DB
}

// NewCache creates the sqlx-backed local cache
func NewCache(db *sqlx.DB) Cache {
	return &sqlCache{db: db}
}

func (c *sqlCache) Upsert(ctx context.Context, r *Report) error {
	// Single-statement upsert keeps concurrent writes to the same row
	// serialized by the database, avoiding lost updates on-device
	query := `
		INSERT INTO reports (
			id, user_id, user_name, title, description, report_type, status,
			latitude, longitude, address, image_url, created_at, updated_at,
			approved_by, rejection_reason, edited_by, last_edit_at,
			moderator_comment, is_synced
		) VALUES (
			:id, :user_id, :user_name, :title, :description, :report_type, :status,
			:latitude, :longitude, :address, :image_url, :created_at, :updated_at,
			:approved_by, :rejection_reason, :edited_by, :last_edit_at,
			:moderator_comment, :is_synced
		)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			user_name = EXCLUDED.user_name,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			report_type = EXCLUDED.report_type,
			status = EXCLUDED.status,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			address = EXCLUDED.address,
			image_url = EXCLUDED.image_url,
			updated_at = EXCLUDED.updated_at,
			approved_by = EXCLUDED.approved_by,
			rejection_reason = EXCLUDED.rejection_reason,
			edited_by = EXCLUDED.edited_by,
			last_edit_at = EXCLUDED.last_edit_at,
			moderator_comment = EXCLUDED.moderator_comment,
			is_synced = EXCLUDED.is_synced
	`
	_, err := c.db.NamedExecContext(ctx, query, toRow(r))
	return err
}

func (c *sqlCache) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
	return err
}

func (c *sqlCache) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	var row reportRow
	err := c.db.GetContext(ctx, &row, `SELECT * FROM reports WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return fromRow(&row)
}

func (c *sqlCache) List(ctx context.Context, f Filter) ([]*Report, error) {
	query := `SELECT * FROM reports WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if f.UserID != "" {
		query += fmt.Sprintf(` AND user_id = $%d`, argPos)
		args = append(args, f.UserID)
		argPos++
	}

	if f.Status != nil {
		query += fmt.Sprintf(` AND status = $%d`, argPos)
		args = append(args, string(*f.Status))
		argPos++
	}

	if f.Type != nil {
		query += fmt.Sprintf(` AND report_type = $%d`, argPos)
		args = append(args, string(*f.Type))
		argPos++
	}

	if f.Urgent {
		query += fmt.Sprintf(` AND status = $%d AND report_type IN ($%d, $%d, $%d, $%d)`,
			argPos, argPos+1, argPos+2, argPos+3, argPos+4)
		args = append(args, string(StatusPending),
			string(TypeRobbery), string(TypeFire), string(TypeAccident), string(TypeFight))
		argPos += 5
	}

	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		query += fmt.Sprintf(` AND (LOWER(title) LIKE $%d ESCAPE '\' OR LOWER(description) LIKE $%d ESCAPE '\' OR LOWER(user_name) LIKE $%d ESCAPE '\')`,
			argPos, argPos, argPos)
		args = append(args, pattern)
		argPos++
	}

	query += ` ORDER BY created_at DESC`

	var rows []*reportRow
	if err := c.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	reports := make([]*Report, 0, len(rows))
	for _, row := range rows {
		r, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (c *sqlCache) Counts(ctx context.Context) (*StatusCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = $1) AS pending,
			COUNT(*) FILTER (WHERE status = $2) AS approved,
			COUNT(*) FILTER (WHERE status = $3) AS rejected,
			COUNT(*) AS total
		FROM reports
	`
	var row struct {
		Pending  int `db:"pending"`
		Approved int `db:"approved"`
		Rejected int `db:"rejected"`
		Total    int `db:"total"`
	}
	err := c.db.GetContext(ctx, &row, query,
		string(StatusPending), string(StatusApproved), string(StatusRejected))
	if err != nil {
		return nil, err
	}

	return &StatusCounts{
		Pending:  row.Pending,
		Approved: row.Approved,
		Rejected: row.Rejected,
		Total:    row.Total,
	}, nil
}
