// Copyright 2026 The Lexgate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package audit defines the append-only compliance trail. Every
// authorization decision and every privileged mutation produces exactly one
// entry. Entries are immutable once recorded; retention and deletion are a
// separate compliance policy applied outside this package (see cmd/cleanup).
package audit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// Actions recorded in the trail.
const (
	ActionDecisionAllowed    = "decision_allowed"
	ActionDecisionDenied     = "decision_denied"
	ActionRestrictionAdded   = "restriction_added"
	ActionRestrictionRemoved = "restriction_removed"
	ActionTenantCreated      = "tenant_created"
	ActionTenantUpdated      = "tenant_updated"
	ActionTenantDeactivated  = "tenant_deactivated"
	ActionUserCreated        = "user_created"
	ActionUserUpdated        = "user_updated"
	ActionGrantRejected      = "grant_rejected"
)

// ErrUnavailable marks a failure to durably persist an entry. Callers must
// treat the operation the entry describes as not yet authorized.
var ErrUnavailable = errors.New("audit store unavailable")

// Entry is one immutable record in the audit trail.
type Entry struct {
	ID           string
	TenantID     string
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Timestamp    time.Time
	IPAddress    string
	UserAgent    string
	Metadata     map[string]any
}

// Recorder appends entries to the audit trail. Record must not return nil
// unless the entry is durably committed under the recorder's durability
// model; a silent loss of trail is a compliance violation, not a background
// concern.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Filter narrows an audit trail query. Zero-value fields match everything;
// Limit caps the result set, newest entries first.
type Filter struct {
	TenantID     string
	UserID       string
	Action       string
	ResourceType string
	Since        time.Time
	Until        time.Time
	Limit        int
}

// Reader queries the recorded trail. Reading never mutates entries.
type Reader interface {
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

// SlogRecorder emits entries through the structured logger. Durability is
// whatever the log pipeline provides; it is suitable for development and as
// the observability half of a fanout with a durable recorder.
type SlogRecorder struct{}

// NewSlogRecorder creates a log-backed recorder.
func NewSlogRecorder() *SlogRecorder {
	return &SlogRecorder{}
}

// Record writes the entry at INFO level with redacted metadata.
func (r *SlogRecorder) Record(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	attrs := []any{
		slog.String("audit_action", entry.Action),
		slog.String("tenant_id", entry.TenantID),
		slog.String("user_id", entry.UserID),
		slog.String("resource_type", entry.ResourceType),
		slog.Time("timestamp", entry.Timestamp),
	}
	if entry.ResourceID != "" {
		attrs = append(attrs, slog.String("resource_id", entry.ResourceID))
	}
	if entry.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", entry.IPAddress))
	}
	if entry.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", entry.UserAgent))
	}

	if len(entry.Metadata) > 0 {
		group := []any{}
		for k, v := range entry.Metadata {
			if isSecret(k) {
				v = "[REDACTED]"
			}
			group = append(group, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", group...))
	}

	slog.InfoContext(ctx, "AUDIT_EVENT", append(attrs, slog.String("component", "audit"))...)
	return nil
}

// FanoutRecorder sends each entry to a durable recorder and a best-effort
// observability recorder. The durable write decides success: if it fails the
// entry counts as unrecorded regardless of what the log pipeline saw.
type FanoutRecorder struct {
	durable    Recorder
	bestEffort Recorder
}

// NewFanoutRecorder composes a durable recorder with a best-effort one.
func NewFanoutRecorder(durable, bestEffort Recorder) *FanoutRecorder {
	return &FanoutRecorder{durable: durable, bestEffort: bestEffort}
}

// Record appends to both recorders; only the durable result is reported.
func (r *FanoutRecorder) Record(ctx context.Context, entry Entry) error {
	if r.bestEffort != nil {
		_ = r.bestEffort.Record(ctx, entry)
	}
	return r.durable.Record(ctx, entry)
}

// isSecret checks if a metadata key likely carries a credential
func isSecret(key string) bool {
	key = strings.ToLower(key)
	secrets := []string{"password", "secret", "token", "key", "hash", "credential", "authorization"}
	for _, s := range secrets {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
