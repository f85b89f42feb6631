package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront-checkout/internal/domain"
	pkgkafka "github.com/utafrali/storefront-checkout/pkg/kafka"
	"github.com/utafrali/storefront-checkout/pkg/logger"
)

// Kafka topics for checkout wizard analytics.
const (
	TopicStepCompleted    = "storefront.checkout.step_completed"
	TopicSubmitted        = "storefront.checkout.submitted"
	TopicSubmissionFailed = "storefront.checkout.submission_failed"
)

const (
	AggregateTypeWizard  = "checkout_wizard"
	SourceCheckoutWizard = "checkout-wizard"
)

// StepCompletedData is emitted when the shopper advances past a step.
type StepCompletedData struct {
	SessionID string      `json:"session_id"`
	Step      domain.Step `json:"step"`
	NextStep  domain.Step `json:"next_step"`
	ItemCount int         `json:"item_count"`
	Subtotal  int64       `json:"subtotal"`
}

// SubmissionData is the payload of the submitted and submission_failed
// topics.
type SubmissionData struct {
	SubmissionID  string               `json:"submission_id"`
	SessionID     string               `json:"session_id"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Total         int64                `json:"total"`
	OrderID       string               `json:"order_id,omitempty"`
	FailureReason string               `json:"failure_reason,omitempty"`
}

// Publisher is the subset of pkgkafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes checkout wizard events.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

func (p *Producer) PublishStepCompleted(ctx context.Context, data StepCompletedData) error {
	return p.publish(ctx, TopicStepCompleted, data.SessionID, data)
}

func (p *Producer) PublishSubmitted(ctx context.Context, s *domain.Submission) error {
	return p.publish(ctx, TopicSubmitted, s.SessionID, submissionData(s))
}

func (p *Producer) PublishSubmissionFailed(ctx context.Context, s *domain.Submission) error {
	return p.publish(ctx, TopicSubmissionFailed, s.SessionID, submissionData(s))
}

func submissionData(s *domain.Submission) SubmissionData {
	return SubmissionData{
		SubmissionID:  s.ID,
		SessionID:     s.SessionID,
		PaymentMethod: s.PaymentMethod,
		Total:         s.Total,
		OrderID:       s.OrderID,
		FailureReason: s.FailureReason,
	}
}

func (p *Producer) publish(ctx context.Context, topic, sessionID string, data any) error {
	ev, err := pkgkafka.NewEvent(topic, sessionID, AggregateTypeWizard, SourceCheckoutWizard, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		ev.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("session_id", sessionID),
	)
	return nil
}
