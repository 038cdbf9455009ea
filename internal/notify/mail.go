package notify

import (
	"context"
	"net/mail"

	"go.uber.org/zap"
)

// Attachment is a file carried by an email
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// Message is a fully rendered email
type Message struct {
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Cc          []string     `json:"cc,omitempty"`
	Subject     string       `json:"subject"`
	Text        string       `json:"text"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Receipt lists the recipients the transport refused
type Receipt struct {
	Rejected []string `json:"rejected"`
}

// Mailer hands a message to a transport. A transport that cannot be reached
// returns an error; a transport that accepts the message but refuses some
// recipients reports them in the receipt.
type Mailer interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// LogMailer writes messages to the log instead of delivering them. It rejects
// recipients whose address does not parse.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) (Receipt, error) {
	receipt := Receipt{Rejected: []string{}}
	accepted := make([]string, 0, len(msg.To)+len(msg.Cc))
	for _, addr := range append(append([]string{}, msg.To...), msg.Cc...) {
		if _, err := mail.ParseAddress(addr); err != nil {
			receipt.Rejected = append(receipt.Rejected, addr)
			continue
		}
		accepted = append(accepted, addr)
	}

	m.logger.Info("email",
		zap.String("from", msg.From),
		zap.Strings("to", accepted),
		zap.Strings("rejected", receipt.Rejected),
		zap.String("subject", msg.Subject),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return receipt, nil
}
