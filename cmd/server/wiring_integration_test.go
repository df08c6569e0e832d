//go:build integration

package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TylerGelinas/socure/internal/platform/config"
	"github.com/TylerGelinas/socure/internal/platform/health"
	"github.com/TylerGelinas/socure/pkg/platform/audit"
	"github.com/TylerGelinas/socure/pkg/testutil/containers"
)

func TestAuditEventsLandInIdentityDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	pg := containers.GetManager().GetPostgres(t)
	require.NoError(t, pg.Truncate(ctx, "audit_events"))

	cfg := config.Default()
	cfg.Identity.DatabaseURL = pg.DSN
	cfg.Identity.CacheSize = 0
	cfg.Audit.AsyncBuffer = 0

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	hh := health.New("test")
	app := &application{}
	t.Cleanup(func() { _ = app.close(context.Background()) })

	_, err := app.identitySource(ctx, cfg.Identity, reg, log, hh)
	require.NoError(t, err)
	require.NotNil(t, app.db)

	pub, err := app.auditPublisher(ctx, cfg.Audit, reg, log, hh)
	require.NoError(t, err)
	require.NoError(t, pub.Emit(ctx, audit.Event{
		Action:  string(audit.EventDecisionMade),
		Subject: "hash-a",
		Modules: []string{"kyc"},
	}))

	var n int
	require.NoError(t, pg.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_events WHERE subject = $1", "hash-a").Scan(&n))
	assert.Equal(t, 1, n)
}
