package messaging

import (
	"errors"
	"testing"

	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/notify"
)

func TestMailReplyRoundTrip(t *testing.T) {
	tests := []struct {
		name         string
		receipt      notify.Receipt
		err          error
		wantRejected int
		wantErr      bool
	}{
		{"accepted", notify.Receipt{}, nil, 0, false},
		{"rejected recipients", notify.Receipt{Rejected: []string{"a@x", "b@x"}}, nil, 2, false},
		{"gateway failure", notify.Receipt{}, errors.New("smtp down"), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receipt, err := decodeReply(encodeReply(tt.receipt, tt.err))
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeReply err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(receipt.Rejected) != tt.wantRejected {
				t.Errorf("expected %d rejected, got %v", tt.wantRejected, receipt.Rejected)
			}
			if receipt.Rejected == nil {
				t.Error("rejected list should never be nil")
			}
		})
	}
}

func TestDecodeReplyGarbage(t *testing.T) {
	_, err := decodeReply([]byte("not json"))
	if !apperrors.Is(err, apperrors.ErrTypeInternal) {
		t.Errorf("expected internal error, got %v", err)
	}
}
