package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"opinion_mining/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// UpsertReviews inserts reviews keyed by (business_id, source_id); re-uploading
// the same export updates rows in place.
func (r *Repo) UpsertReviews(ctx context.Context, rs []domain.Review) error {
	for start := 0; start < len(rs); start += upsertBatch {
		end := min(start+upsertBatch, len(rs))
		if err := r.upsertChunk(ctx, rs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) upsertChunk(ctx context.Context, rs []domain.Review) error {
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*8) // 8 params per row
	for _, rv := range rs {
		values = append(values, "(?,?,?,?,?,?,?,?)")
		args = append(args,
			rv.BusinessID,       // business_id
			rv.SourceID,         // source_id
			rv.Version,          // version ('' when the export has none)
			valStr(rv.UserName), // user_name
			rv.Rating,           // rating (0 = missing)
			valStr(rv.Lang),     // lang
			rv.Text,             // text
			valTime(rv.Date),    // reviewed_at
		)
	}
	sqlStr := insertReviewsPrefix + strings.Join(values, ",") + insertReviewsOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *Repo) ListReviews(ctx context.Context, businessID, version string) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, listReviewsSQL, businessID, version, version)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var rv domain.Review
		var (
			userName   sql.NullString
			lang       sql.NullString
			reviewedAt sql.NullTime
		)
		if err := rows.Scan(
			&rv.ID,
			&rv.BusinessID,
			&rv.SourceID,
			&rv.Version,
			&userName,
			&rv.Rating,
			&lang,
			&rv.Text,
			&reviewedAt,
		); err != nil {
			return nil, err
		}
		rv.UserName = userName.String
		rv.Lang = lang.String
		if reviewedAt.Valid {
			t := reviewedAt.Time.UTC()
			rv.Date = &t
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
