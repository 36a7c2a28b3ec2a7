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

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// AuthzMetrics holds the instruments for the authorization pipeline.
type AuthzMetrics struct {
	decisions     metric.Int64Counter
	auditFailures metric.Int64Counter
	wallMutations metric.Int64Counter
	checkDuration metric.Float64Histogram
}

// New creates the authorization instruments on the global meter provider.
func New(ctx context.Context, cfg Config, serviceName string) (*AuthzMetrics, error) {
	name := serviceName
	if !cfg.Enabled {
		name = "noop"
	}
	meter := otel.Meter(name)

	decisions, err := meter.Int64Counter(
		"authz_decisions_total",
		metric.WithDescription("Authorization decisions by outcome and reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decisions counter: %w", err)
	}

	auditFailures, err := meter.Int64Counter(
		"audit_write_failures_total",
		metric.WithDescription("Audit entries that could not be durably recorded"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit failure counter: %w", err)
	}

	wallMutations, err := meter.Int64Counter(
		"ethical_wall_mutations_total",
		metric.WithDescription("Ethical wall restriction adds and removes"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create wall mutation counter: %w", err)
	}

	checkDuration, err := meter.Float64Histogram(
		"authz_check_duration_seconds",
		metric.WithDescription("End-to-end latency of one authorization check"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create check duration histogram: %w", err)
	}

	return &AuthzMetrics{
		decisions:     decisions,
		auditFailures: auditFailures,
		wallMutations: wallMutations,
		checkDuration: checkDuration,
	}, nil
}

// RecordDecision counts one authorization decision.
func (m *AuthzMetrics) RecordDecision(ctx context.Context, allowed bool, reason string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.Bool("allowed", allowed),
		attribute.String("reason", reason),
	)
	m.decisions.Add(ctx, 1, attrs)
	m.checkDuration.Record(ctx, seconds, attrs)
}

// RecordAuditFailure counts a failed durable audit write. Operators alert on
// this separately from denials: it is compliance risk, not access refusal.
func (m *AuthzMetrics) RecordAuditFailure(ctx context.Context) {
	m.auditFailures.Add(ctx, 1)
}

// RecordWallMutation counts a restriction add or remove.
func (m *AuthzMetrics) RecordWallMutation(ctx context.Context, op string) {
	m.wallMutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
