package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"reviewdeck/internal/domain"
)

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertProfile(ctx context.Context, p domain.ProfileDocument) error {
	_, err := r.db.ExecContext(ctx, upsertProfileSQL, p.ID, p.Name, nullTime(p.ExecutionTimestamp))
	return err
}

func reviewArgs(profileID string, rv domain.ReviewRecord) []any {
	var replyComment, replyUpdate any
	replyAI := false
	if rv.Reply != nil {
		// An empty reply comment is stored as '' so presence survives the
		// round trip; status still derives to pending for it.
		replyComment = rv.Reply.Comment
		replyUpdate = nullTime(rv.Reply.UpdateTime)
		replyAI = rv.Reply.AIGenerated
	}
	return []any{
		profileID,
		rv.ReviewID,
		nullStr(rv.Reviewer.DisplayName),
		nullStr(rv.Reviewer.ProfilePhotoURL),
		string(rv.StarRating),
		nullStr(rv.Comment),
		nullTime(rv.CreateTime),
		nullTime(rv.UpdateTime),
		replyComment,
		replyUpdate,
		replyAI,
		nullStr(rv.ResourceName),
		valJSON(rv.RawJSON),
	}
}

func (r *Repo) InsertReviews(ctx context.Context, profileID string, rs []domain.ReviewRecord) (int, error) {
	if len(rs) == 0 {
		return 0, nil
	}
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*13)
	for _, rv := range rs {
		values = append(values, insertReviewsRow)
		args = append(args, reviewArgs(profileID, rv)...)
	}
	res, err := r.db.ExecContext(ctx, insertReviewsPrefix+strings.Join(values, ","), args...)
	if err != nil {
		return 0, err
	}
	// INSERT IGNORE reports one affected row per actual insert; skipped
	// duplicates don't count.
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *Repo) UpsertReview(ctx context.Context, rv domain.ReviewRecord) error {
	_, err := r.db.ExecContext(ctx, upsertReviewSQL, reviewArgs(rv.ProfileID, rv)...)
	return err
}

func (r *Repo) LogMiss(ctx context.Context, profileID string, status int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, profileID, status, reason)
	return err
}

// buildFilter translates a ListFilter into WHERE clauses. The derived reply
// status is a CASE over reply_comment; "ignored" has no persisted state and
// matches nothing by contract.
func buildFilter(f domain.ListFilter) (string, []any) {
	var where []string
	var args []any

	if f.Profile != nil {
		where = append(where, "(r.profile_id = ? OR r.profile_id = ? OR LOWER(p.name) = LOWER(?))")
		args = append(args, f.Profile.Raw(), f.Profile.Canonical(), f.Profile.Raw())
	}
	switch f.Status {
	case "", "all":
	case string(domain.StatusReplied):
		where = append(where, "(r.reply_comment IS NOT NULL AND r.reply_comment <> '')")
	case string(domain.StatusPending):
		where = append(where, "(r.reply_comment IS NULL OR r.reply_comment = '')")
	default: // including "ignored": never derived, never matches
		where = append(where, "1 = 0")
	}
	if f.Rating != "" && f.Rating != "all" {
		// Stored ratings are the enum literals; the query param is numeric.
		if sr, ok := domain.ParseStarRating(f.Rating); ok {
			where = append(where, "r.star_rating = ?")
			args = append(args, string(sr))
		} else {
			where = append(where, "1 = 0")
		}
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pat := "%" + strings.ToLower(s) + "%"
		where = append(where, "(LOWER(r.comment) LIKE ? OR LOWER(r.reviewer_name) LIKE ? OR LOWER(p.name) LIKE ?)")
		args = append(args, pat, pat, pat)
	}

	if len(where) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(where, " AND "), args
}

func (r *Repo) ListReviews(ctx context.Context, f domain.ListFilter) (domain.ReviewPage, error) {
	whereSQL, args := buildFilter(f)

	var total int
	if err := r.db.QueryRowContext(ctx, countReviewsPrefix+whereSQL, args...).Scan(&total); err != nil {
		return domain.ReviewPage{}, err
	}

	query := selectReviewColumns + whereSQL + "\nORDER BY r.create_time DESC, r.id DESC\nLIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, f.Limit, f.Skip)...)
	if err != nil {
		return domain.ReviewPage{}, err
	}
	defer rows.Close()

	items, err := scanReviews(rows)
	if err != nil {
		return domain.ReviewPage{}, err
	}
	return domain.ReviewPage{Items: items, Total: total}, nil
}

func (r *Repo) FetchReviews(ctx context.Context, s domain.StatsScope) ([]domain.ReviewRecord, error) {
	var where []string
	var args []any
	if s.Profile != nil {
		where = append(where, "(r.profile_id = ? OR r.profile_id = ? OR LOWER(p.name) = LOWER(?))")
		args = append(args, s.Profile.Raw(), s.Profile.Canonical(), s.Profile.Raw())
	}
	if !s.Since.IsZero() {
		where = append(where, "r.create_time >= ?")
		args = append(args, s.Since.UTC())
	}
	if !s.Until.IsZero() {
		where = append(where, "r.create_time <= ?")
		args = append(args, s.Until.UTC())
	}
	query := selectReviewColumns
	if len(where) > 0 {
		query += "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	query += "ORDER BY r.create_time ASC, r.id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReviews(rows)
}

func scanReviews(rows *sql.Rows) ([]domain.ReviewRecord, error) {
	var out []domain.ReviewRecord
	for rows.Next() {
		var (
			rv            domain.ReviewRecord
			profileName   sql.NullString
			reviewerName  sql.NullString
			reviewerPhoto sql.NullString
			comment       sql.NullString
			createTime    sql.NullTime
			updateTime    sql.NullTime
			replyComment  sql.NullString
			replyUpdate   sql.NullTime
			replyAI       bool
			resourceName  sql.NullString
			star          string
		)
		if err := rows.Scan(
			&rv.ReviewID,
			&rv.ProfileID,
			&profileName,
			&reviewerName,
			&reviewerPhoto,
			&star,
			&comment,
			&createTime,
			&updateTime,
			&replyComment,
			&replyUpdate,
			&replyAI,
			&resourceName,
		); err != nil {
			return nil, err
		}

		rv.ProfileName = profileName.String
		rv.Reviewer = domain.Reviewer{DisplayName: reviewerName.String, ProfilePhotoURL: reviewerPhoto.String}
		rv.StarRating = domain.StarRating(star)
		rv.Comment = comment.String
		if createTime.Valid {
			rv.CreateTime = createTime.Time.UTC()
		}
		if updateTime.Valid {
			rv.UpdateTime = updateTime.Time.UTC()
		}
		if replyComment.Valid {
			rv.Reply = &domain.ReviewReply{Comment: replyComment.String, AIGenerated: replyAI}
			if replyUpdate.Valid {
				rv.Reply.UpdateTime = replyUpdate.Time.UTC()
			}
		}
		rv.ResourceName = resourceName.String
		rv.Status = rv.ReplyStatus()

		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
