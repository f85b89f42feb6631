package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolStatsCollector_Collect(t *testing.T) {
	c := NewPoolStatsCollector(func() PoolSnapshot {
		return PoolSnapshot{Acquired: 3, Idle: 2, Total: 5, Max: 10, AcquireCount: 42, EmptyAcquire: 1}
	}, "checkout")

	assert.Equal(t, 6, testutil.CollectAndCount(c))

	expected := `
# HELP db_pool_acquired_connections Number of currently acquired connections
# TYPE db_pool_acquired_connections gauge
db_pool_acquired_connections{service="checkout"} 3
# HELP db_pool_acquire_count_total Total number of connection acquires
# TYPE db_pool_acquire_count_total counter
db_pool_acquire_count_total{service="checkout"} 42
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"db_pool_acquired_connections", "db_pool_acquire_count_total")
	require.NoError(t, err)
}

func TestPoolStatsCollector_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	snap := func() PoolSnapshot { return PoolSnapshot{} }

	require.NoError(t, reg.Register(NewPoolStatsCollector(snap, "checkout")))
	assert.Error(t, reg.Register(NewPoolStatsCollector(snap, "checkout")))
}
