package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestPurpose: Validates that sensitive metadata keys are identified so they
// are redacted before reaching the log pipeline (CWE-532).
// Scope: Unit Test
// Expected: Returns true for keys containing 'password', 'token', 'secret',
// etc., and false for non-sensitive keys.
func TestAudit_IsSecret(t *testing.T) {
	tests := []struct {
		key      string
		isSecret bool
	}{
		{"password", true},
		{"Password", true},
		{"PASSWORD", true},
		{"token", true},
		{"access_token", true},
		{"secret", true},
		{"api_key", true},
		{"hash", true},
		{"password_hash", true},
		{"credential", true},
		{"private_key", true},
		{"user_id", false},
		{"tenant_id", false},
		{"email", false},
		{"status", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := isSecret(tt.key); got != tt.isSecret {
				t.Errorf("isSecret(%q) = %v, want %v", tt.key, got, tt.isSecret)
			}
		})
	}
}

type stubRecorder struct {
	entries []Entry
	err     error
}

func (s *stubRecorder) Record(_ context.Context, e Entry) error {
	s.entries = append(s.entries, e)
	return s.err
}

// TestPurpose: Validates fanout semantics — the durable recorder decides
// success, the best-effort recorder never does.
func TestFanoutRecorder(t *testing.T) {
	entry := Entry{
		TenantID:     "tenant-1",
		UserID:       "user-1",
		Action:       ActionDecisionAllowed,
		ResourceType: "case",
		Timestamp:    time.Now().UTC(),
	}

	t.Run("durable failure surfaces", func(t *testing.T) {
		durable := &stubRecorder{err: ErrUnavailable}
		best := &stubRecorder{}
		fanout := NewFanoutRecorder(durable, best)

		err := fanout.Record(context.Background(), entry)
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("Record() error = %v, want ErrUnavailable", err)
		}
		if len(best.entries) != 1 {
			t.Errorf("best-effort recorder got %d entries, want 1", len(best.entries))
		}
	})

	t.Run("best-effort failure is swallowed", func(t *testing.T) {
		durable := &stubRecorder{}
		best := &stubRecorder{err: errors.New("log pipe broken")}
		fanout := NewFanoutRecorder(durable, best)

		if err := fanout.Record(context.Background(), entry); err != nil {
			t.Fatalf("Record() error = %v, want nil", err)
		}
		if len(durable.entries) != 1 {
			t.Errorf("durable recorder got %d entries, want 1", len(durable.entries))
		}
	})

	t.Run("nil best-effort recorder", func(t *testing.T) {
		durable := &stubRecorder{}
		fanout := NewFanoutRecorder(durable, nil)

		if err := fanout.Record(context.Background(), entry); err != nil {
			t.Fatalf("Record() error = %v, want nil", err)
		}
	})
}
