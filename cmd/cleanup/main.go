// Command cleanup is the retention job. It purges expired ethical wall
// restrictions and applies each firm's audit retention policy. Retention is
// compliance policy, deliberately kept out of the serving path: the server
// only ever appends to the trail.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lexgate/lexgate/internal/store/postgres"
	"github.com/lexgate/lexgate/internal/wall"
)

func main() {
	ctx := context.Background()

	db, err := postgres.New(ctx, postgres.Config{
		Host:         envOr("DB_HOST", "localhost"),
		Port:         envOr("DB_PORT", "5432"),
		User:         envOr("DB_USER", "lexgate"),
		Password:     os.Getenv("DB_PASSWORD"),
		Database:     envOr("DB_NAME", "lexgate"),
		SSLMode:      envOr("DB_SSLMODE", "disable"),
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	walls := wall.NewService(postgres.NewRestrictionRepository(db))
	purged, err := walls.PurgeExpired(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Purging expired restrictions failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Purged %d expired restrictions.\n", purged)

	tenantRepo := postgres.NewTenantRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	policies, err := tenantRepo.ListRetentionPolicies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Listing retention policies failed: %v\n", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	var removed int64
	for tenantID, policy := range policies {
		cutoff := now.Add(-retentionPeriod(policy))
		n, err := auditRepo.DeleteOlderThan(ctx, tenantID, cutoff)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Audit retention for tenant %s failed: %v\n", tenantID, err)
			os.Exit(1)
		}
		removed += n
	}
	fmt.Printf("Removed %d audit entries past retention.\n", removed)
}

// retentionPeriod maps a firm's policy label to a duration. Unknown labels
// fall back to the seven year default rather than deleting aggressively.
func retentionPeriod(policy string) time.Duration {
	year := 365 * 24 * time.Hour
	switch policy {
	case "1_year":
		return 1 * year
	case "5_years":
		return 5 * year
	case "10_years":
		return 10 * year
	default:
		return 7 * year
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
