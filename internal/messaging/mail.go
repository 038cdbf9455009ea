package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/notify"
	"github.com/khrees2412/talentflow/internal/telemetry"
)

// MailQueue is the queue group shared by every gateway instance
const MailQueue = "talentflow-mail"

// mailReply is the gateway's answer to one mail request
type mailReply struct {
	Rejected []string `json:"rejected"`
	Error    string   `json:"error,omitempty"`
}

// NATSMailer sends mail by request/reply to a MailGateway
type NATSMailer struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
	logger  *zap.Logger
}

func NewNATSMailer(conn *nats.Conn, subject string, timeout time.Duration, logger *zap.Logger) *NATSMailer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NATSMailer{conn: conn, subject: subject, timeout: timeout, logger: logger}
}

func (m *NATSMailer) Send(ctx context.Context, msg notify.Message) (notify.Receipt, error) {
	ctx, span := tracer.Start(ctx, "NATSMailer.Send")
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return notify.Receipt{}, apperrors.Internal("marshaling mail", err)
	}
	span.SetAttributes(
		telemetry.String("nats.subject", m.subject),
		telemetry.Int("message.size", len(data)),
	)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	reply, err := m.conn.RequestWithContext(ctx, m.subject, data)
	if err != nil {
		span.RecordError(err)
		return notify.Receipt{}, apperrors.Internal("mail request", err)
	}
	return decodeReply(reply.Data)
}

func decodeReply(data []byte) (notify.Receipt, error) {
	var r mailReply
	if err := json.Unmarshal(data, &r); err != nil {
		return notify.Receipt{}, apperrors.Internal("decoding mail reply", err)
	}
	if r.Error != "" {
		return notify.Receipt{Rejected: r.Rejected}, apperrors.Internal("mail gateway", errors.New(r.Error))
	}
	if r.Rejected == nil {
		r.Rejected = []string{}
	}
	return notify.Receipt{Rejected: r.Rejected}, nil
}

func encodeReply(receipt notify.Receipt, err error) []byte {
	r := mailReply{Rejected: receipt.Rejected}
	if r.Rejected == nil {
		r.Rejected = []string{}
	}
	if err != nil {
		r.Error = err.Error()
	}
	data, _ := json.Marshal(r)
	return data
}

// MailGateway serves mail requests from NATSMailer clients by handing them
// to a local Mailer
type MailGateway struct {
	logger  *zap.Logger
	nc      *nats.Conn
	tracer  trace.Tracer
	mailer  notify.Mailer
	subject string
	sub     *nats.Subscription
}

func NewMailGateway(logger *zap.Logger, nc *nats.Conn, mailer notify.Mailer, subject string) *MailGateway {
	return &MailGateway{
		logger:  logger,
		nc:      nc,
		tracer:  telemetry.GetTracer("talentflow/mail-gateway"),
		mailer:  mailer,
		subject: subject,
	}
}

func (g *MailGateway) RegisterSubscriptions(lc fx.Lifecycle) error {
	sub, err := g.nc.QueueSubscribe(g.subject, MailQueue, g.handleMail)
	if err != nil {
		return apperrors.Internal("subscribe to "+g.subject, err)
	}

	g.sub = sub
	g.logger.Info("registered mail gateway", zap.String("subject", g.subject))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return g.sub.Unsubscribe()
		},
	})

	return nil
}

func (g *MailGateway) handleMail(msg *nats.Msg) {
	ctx, span := g.tracer.Start(context.Background(), "handleMail")
	defer span.End()

	var m notify.Message
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		span.RecordError(err)
		g.logger.Error("invalid mail request", zap.String("subject", msg.Subject), zap.Error(err))
		g.respond(msg, encodeReply(notify.Receipt{}, err))
		return
	}

	receipt, err := g.mailer.Send(ctx, m)
	if err != nil {
		span.RecordError(err)
		g.logger.Error("failed to send mail", zap.Strings("to", m.To), zap.Error(err))
	}
	g.respond(msg, encodeReply(receipt, err))
}

func (g *MailGateway) respond(msg *nats.Msg, data []byte) {
	if msg.Reply == "" {
		return
	}
	if err := msg.Respond(data); err != nil {
		g.logger.Warn("failed to reply to mail request", zap.Error(err))
	}
}
