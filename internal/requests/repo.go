package requests

import (
	"context"
	"database/sql"
	"fmt"

	"bookarr/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Create(ctx context.Context, req models.Request) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO requests (user_id, external_id, title, author, cover_url, status, provider_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, req.UserID, req.ExternalID, req.Title, req.Author, req.CoverURL, req.Status, nullableID(req.ProviderID))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("request id: %w", err)
	}
	return id, nil
}

// ExistsForUser reports whether the user already requested this external id.
func (r *Repo) ExistsForUser(ctx context.Context, userID, externalID string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `
		SELECT 1 FROM requests WHERE user_id = ? AND external_id = ?
	`, userID, externalID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("request exists: %w", err)
	}
	return true, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]models.Request, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, external_id, title, author, cover_url, status, provider_id, requested_at, completed_at
		FROM requests
		WHERE user_id = ?
		ORDER BY requested_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

// Outstanding returns every request still waiting for an import, i.e.
// pending or added but not yet completed.
func (r *Repo) Outstanding(ctx context.Context) ([]models.Request, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, external_id, title, author, cover_url, status, provider_id, requested_at, completed_at
		FROM requests
		WHERE status != ?
	`, models.RequestCompleted)
	if err != nil {
		return nil, fmt.Errorf("outstanding requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

// MarkCompleted stamps a request completed. The status guard keeps the
// transition monotonic: a completed request can never be re-completed or
// reverted by a later pass.
func (r *Repo) MarkCompleted(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE requests
		SET status = ?, completed_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status != ?
	`, models.RequestCompleted, id, models.RequestCompleted)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func scanRequests(rows *sql.Rows) ([]models.Request, error) {
	var out []models.Request
	for rows.Next() {
		var (
			req        models.Request
			coverURL   sql.NullString
			providerID sql.NullInt64
			completed  sql.NullTime
		)
		if err := rows.Scan(&req.ID, &req.UserID, &req.ExternalID, &req.Title, &req.Author,
			&coverURL, &req.Status, &providerID, &req.RequestedAt, &completed); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		req.CoverURL = coverURL.String
		req.ProviderID = providerID.Int64
		if completed.Valid {
			t := completed.Time
			req.CompletedAt = &t
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("request rows: %w", err)
	}
	return out, nil
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
