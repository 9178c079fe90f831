package database

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lazyPool returns a pool that never dials: MinConns is zero and nothing acquires.
func lazyPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool, err := pgxpool.New(context.Background(), "postgres://u:p@127.0.0.1:1/db?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(lazyPool(t), "storefront")

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}
	assert.Len(t, names, 7)
	assert.Contains(t, strings.Join(names, " "), "db_pool_acquired_connections")
}

func TestPoolStatsCollector_Collect(t *testing.T) {
	c := NewPoolStatsCollector(lazyPool(t), "storefront")

	assert.Equal(t, 7, testutil.CollectAndCount(c))
	assert.Equal(t, 7, testutil.CollectAndCount(c, "db_pool_max_connections",
		"db_pool_acquired_connections", "db_pool_idle_connections", "db_pool_total_connections",
		"db_pool_acquire_count_total", "db_pool_empty_acquire_count_total", "db_pool_acquire_duration_seconds_total"))
}

func TestRegisterPoolMetrics_DuplicateFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	pool := lazyPool(t)

	require.NoError(t, RegisterPoolMetrics(reg, pool, "storefront"))
	require.Error(t, RegisterPoolMetrics(reg, pool, "storefront"))
}
