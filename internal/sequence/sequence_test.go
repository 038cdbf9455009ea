package sequence

import (
	"context"
	"sync"
	"testing"
	"time"
)

type memCounter struct {
	mu   sync.Mutex
	seqs map[string]int64
}

func (m *memCounter) NextSequence(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seqs == nil {
		m.seqs = map[string]int64{}
	}
	m.seqs[name]++
	return m.seqs[name], nil
}

func TestFormatJobCode(t *testing.T) {
	tests := []struct {
		seq  int64
		want string
	}{
		{1, "JOB-2025-0001"},
		{42, "JOB-2025-0042"},
		{9999, "JOB-2025-9999"},
		{12345, "JOB-2025-12345"},
	}

	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatJobCode(at, tt.seq); got != tt.want {
				t.Errorf("FormatJobCode(%d) = %q, want %q", tt.seq, got, tt.want)
			}
		})
	}
}

func TestJobCounterIsYearScoped(t *testing.T) {
	a := JobCounter(time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC))
	b := JobCounter(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if a == b {
		t.Errorf("counters for different years must differ, both %q", a)
	}
	if b != "job-2025" {
		t.Errorf("unexpected counter name %q", b)
	}
}

func TestStoreSequencer(t *testing.T) {
	seq := NewStore(&memCounter{})
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := seq.Next(ctx, "job-2025")
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}
}
