package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/storefront-checkout/internal/domain"
	"github.com/utafrali/storefront-checkout/pkg/database"
	apperrors "github.com/utafrali/storefront-checkout/pkg/errors"
	"github.com/utafrali/storefront-checkout/pkg/pagination"
)

// SubmissionRepository implements repository.SubmissionRepository using PostgreSQL.
type SubmissionRepository struct {
	pool database.DBTX
}

// NewSubmissionRepository creates a new PostgreSQL-backed submission repository.
func NewSubmissionRepository(pool database.DBTX) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

const insertSubmission = `
		INSERT INTO checkout_submissions (id, session_id, payment_method, status, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

// Create inserts a new submission.
func (r *SubmissionRepository) Create(ctx context.Context, s *domain.Submission) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateSubmission", insertSubmission)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, insertSubmission,
		s.ID,
		s.SessionID,
		s.PaymentMethod,
		s.Status,
		s.Total,
		s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	return nil
}

const completeSubmission = `
		UPDATE checkout_submissions
		SET status = $1, order_id = $2, redirect_url = $3, failure_reason = $4, completed_at = $5
		WHERE id = $6`

// Complete stores the final status of a submission.
func (r *SubmissionRepository) Complete(ctx context.Context, s *domain.Submission) (err error) {
	ctx, end := database.TraceQuery(ctx, "CompleteSubmission", completeSubmission)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, completeSubmission,
		s.Status,
		s.OrderID,
		s.RedirectURL,
		s.FailureReason,
		s.CompletedAt,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("complete submission: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("submission", s.ID)
	}

	return nil
}

const listSubmissionsBySession = `
		SELECT id, session_id, payment_method, status, total, order_id, redirect_url, failure_reason, created_at, completed_at,
		       count(*) OVER() AS total_count
		FROM checkout_submissions
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

// ListBySession returns a session's submissions with pagination.
func (r *SubmissionRepository) ListBySession(ctx context.Context, sessionID string, page pagination.Params) (_ []domain.Submission, _ int, err error) {
	ctx, end := database.TraceQuery(ctx, "ListSubmissionsBySession", listSubmissionsBySession)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, listSubmissionsBySession, sessionID, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list submissions by session: %w", err)
	}
	defer rows.Close()

	var totalCount int
	submissions := make([]domain.Submission, 0)

	for rows.Next() {
		var s domain.Submission
		if err := rows.Scan(
			&s.ID,
			&s.SessionID,
			&s.PaymentMethod,
			&s.Status,
			&s.Total,
			&s.OrderID,
			&s.RedirectURL,
			&s.FailureReason,
			&s.CreatedAt,
			&s.CompletedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan submission row: %w", err)
		}
		submissions = append(submissions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate submission rows: %w", err)
	}

	return submissions, totalCount, nil
}
