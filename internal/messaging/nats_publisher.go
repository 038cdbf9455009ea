package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/telemetry"
	"github.com/khrees2412/talentflow/pkg/models"
)

var tracer = telemetry.GetTracer("talentflow/messaging")

// Connect dials the NATS server at url, retrying in the background while
// the server is unavailable.
func Connect(url, name string, timeout time.Duration) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, apperrors.Internal("connecting to NATS", err)
	}
	return conn, nil
}

// NotificationPublisher publishes stored notifications for live consumers
type NotificationPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

func NewNotificationPublisher(conn *nats.Conn, subject string, logger *zap.Logger) *NotificationPublisher {
	return &NotificationPublisher{conn: conn, subject: subject, logger: logger}
}

// PublishNotification sends n on <subject>.<entity_type> so consumers can
// subscribe to a single kind or to <subject>.>
func (p *NotificationPublisher) PublishNotification(ctx context.Context, n *models.Notification) error {
	_, span := tracer.Start(ctx, "PublishNotification")
	defer span.End()

	data, err := json.Marshal(n)
	if err != nil {
		span.RecordError(err)
		return apperrors.Internal("marshaling notification", err)
	}

	subject := p.subject + "." + string(n.EntityType)
	span.SetAttributes(
		telemetry.String("nats.subject", subject),
		telemetry.Int("message.size", len(data)),
	)

	if err := p.conn.Publish(subject, data); err != nil {
		span.RecordError(err)
		p.logger.Error("failed to publish notification",
			zap.String("id", n.ID),
			zap.Error(err))
		return apperrors.Internal("publishing to NATS", err)
	}

	p.logger.Debug("published notification",
		zap.String("id", n.ID),
		zap.String("subject", subject))
	return nil
}
