// Package notify is the side-effect sink for the workflow services. It
// persists notification records, fans them out over the message bus and
// sends templated email. It always runs after the entity write it reports on
// has been committed.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/telemetry"
	"github.com/khrees2412/talentflow/pkg/models"
)

var tracer = telemetry.GetTracer("talentflow/notify")

// NotificationStore persists notification records
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Publisher fans a stored notification out to live consumers
type Publisher interface {
	PublishNotification(ctx context.Context, n *models.Notification) error
}

// Email is a request to render and send one template
type Email struct {
	Template    TemplateKey
	To          []string
	Cc          []string
	Variables   map[string]string
	Attachments []Attachment
}

// Dispatcher is shared by the pipeline, requisition and interview services
type Dispatcher struct {
	store     NotificationStore
	mailer    Mailer
	renderer  Renderer
	publisher Publisher
	from      string
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Dispatcher)

// WithPublisher enables live fan-out of every stored notification
func WithPublisher(p Publisher) Option {
	return func(d *Dispatcher) { d.publisher = p }
}

// WithFrom sets the sender address of outgoing email
func WithFrom(from string) Option {
	return func(d *Dispatcher) { d.from = from }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(store NotificationStore, mailer Mailer, renderer Renderer, logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		mailer:   mailer,
		renderer: renderer,
		from:     "careers@talentflow.local",
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify stores n and publishes it. Failures are logged and never returned:
// the caller's write has already succeeded.
func (d *Dispatcher) Notify(ctx context.Context, n models.Notification) {
	ctx, span := tracer.Start(ctx, "Dispatcher.Notify")
	defer span.End()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Priority == "" {
		n.Priority = models.PriorityNormal
	}
	if n.EntityType == "" {
		n.EntityType = models.EntityNotification
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.now().UTC()
	}
	span.SetAttributes(
		telemetry.String("notification.entity_type", string(n.EntityType)),
		telemetry.String("notification.receiver", n.ReceiverID),
	)

	if err := d.store.CreateNotification(ctx, &n); err != nil {
		span.RecordError(err)
		d.logger.Error("failed to store notification",
			zap.String("title", n.Title),
			zap.String("entity_type", string(n.EntityType)),
			zap.String("receiver_id", n.ReceiverID),
			zap.Error(err))
		return
	}

	if d.publisher == nil {
		return
	}
	if err := d.publisher.PublishNotification(ctx, &n); err != nil {
		span.RecordError(err)
		d.logger.Warn("failed to publish notification",
			zap.String("id", n.ID),
			zap.Error(err))
	}
}

// SendEmail renders and sends e. A transport failure or any rejected
// recipient is returned as a Delivery error alongside the receipt.
func (d *Dispatcher) SendEmail(ctx context.Context, e Email) (Receipt, error) {
	ctx, span := tracer.Start(ctx, "Dispatcher.SendEmail")
	defer span.End()
	span.SetAttributes(
		telemetry.String("email.template", string(e.Template)),
		telemetry.Int("email.recipients", len(e.To)+len(e.Cc)),
	)

	if len(e.To) == 0 {
		return Receipt{}, apperrors.Delivery(fmt.Sprintf("email %s has no recipients", e.Template), nil)
	}

	content, err := d.renderer.Render(e.Template, e.Variables)
	if err != nil {
		span.RecordError(err)
		d.logger.Error("failed to render email", zap.String("template", string(e.Template)), zap.Error(err))
		return Receipt{}, apperrors.Delivery("render email "+string(e.Template), err)
	}

	receipt, err := d.mailer.Send(ctx, Message{
		From:        d.from,
		To:          e.To,
		Cc:          e.Cc,
		Subject:     content.Subject,
		Text:        content.Text,
		HTML:        content.HTML,
		Attachments: e.Attachments,
	})
	if err != nil {
		span.RecordError(err)
		d.logger.Error("failed to send email",
			zap.String("template", string(e.Template)),
			zap.Strings("to", e.To),
			zap.Error(err))
		return receipt, apperrors.Delivery("send email "+string(e.Template), err)
	}
	if len(receipt.Rejected) > 0 {
		d.logger.Warn("email recipients rejected",
			zap.String("template", string(e.Template)),
			zap.Strings("rejected", receipt.Rejected))
		return receipt, apperrors.Delivery(
			fmt.Sprintf("email %s rejected for %s", e.Template, strings.Join(receipt.Rejected, ", ")), nil)
	}
	return receipt, nil
}
