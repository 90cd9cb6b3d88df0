package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/geocoder89/credhub/internal/actorctx"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_AddsUserID(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	ctx := actorctx.WithUserID(context.Background(), "user-1")
	log.InfoContext(ctx, "who_am_i")
	log.DebugContext(ctx, "dropped in prod")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "who_am_i", rec["msg"])
	assert.Equal(t, "user-1", rec["user_id"])
	assert.NotContains(t, rec, "trace_id")
}

func TestLogger_DebugInDev(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "dev").Debug("visible")

	assert.Contains(t, buf.String(), "visible")
}

func TestClassifyDBErr(t *testing.T) {
	cases := map[string]error{
		"unique_violation":      &pgconn.PgError{Code: "23505"},
		"deadlock":              fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40P01"}),
		"pg_42P01":              &pgconn.PgError{Code: "42P01"},
		"timeout":               fmt.Errorf("query: %w", context.DeadlineExceeded),
		"canceled":              context.Canceled,
		"unknown":               errors.New("boom"),
		"serialization_failure": &pgconn.PgError{Code: "40001"},
	}

	for want, err := range cases {
		assert.Equal(t, want, classifyDBErr(err), "err=%v", err)
	}
}

func TestObserveDB_CountsErrors(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	err := p.ObserveDB("users.insert", func() error { return &pgconn.PgError{Code: "23505"} })
	require.Error(t, err)

	require.NoError(t, p.ObserveDB("users.insert", func() error { return nil }))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.insert", "unique_violation")))
}

func TestProm_NilSafeHelpers(t *testing.T) {
	var p *Prom
	assert.NotPanics(t, func() {
		p.AuthEvent("login", "ok")
		p.CacheLookup("hit")
	})

	p = NewProm(prometheus.NewRegistry())
	p.AuthEvent("login", "invalid_credentials")
	p.AuthEvent("login", "invalid_credentials")
	assert.Equal(t, 2.0, testutil.ToFloat64(p.AuthEvents.WithLabelValues("login", "invalid_credentials")))
}

func TestInitTracer_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracerConfig{ServiceName: "credhub"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(0).Description(), "root:AlwaysOnSampler")
	assert.Contains(t, sampler(1).Description(), "root:AlwaysOnSampler")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}
