package repository

import (
	"context"

	"github.com/utafrali/storefront-checkout/internal/domain"
	"github.com/utafrali/storefront-checkout/pkg/pagination"
)

// SubmissionRepository persists the audit trail of checkout submissions.
type SubmissionRepository interface {
	// Create inserts a pending submission.
	Create(ctx context.Context, s *domain.Submission) error

	// Complete stores the final status of a submission.
	Complete(ctx context.Context, s *domain.Submission) error

	// ListBySession returns a page of a session's submissions, newest first,
	// together with the total number of submissions for the session.
	ListBySession(ctx context.Context, sessionID string, page pagination.Params) ([]domain.Submission, int, error)
}
