package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var estimatorNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func TestNextRun_IntervalWithoutLastRun(t *testing.T) {
	next := NextRun(Schedule{IntervalSeconds: 3600}, nil, estimatorNow)
	require.NotNil(t, next)
	assert.Equal(t, estimatorNow.Add(time.Hour), *next)
}

func TestNextRun_IntervalCatchesUpInWholeMultiples(t *testing.T) {
	// Slept through three 1-hour slots: the next run is on-grid, 4 whole
	// intervals after the last run, not lastRun+interval.
	lastRun := estimatorNow.Add(-3*time.Hour - 20*time.Minute)
	next := NextRun(Schedule{IntervalSeconds: 3600}, &lastRun, estimatorNow)
	require.NotNil(t, next)
	assert.Equal(t, lastRun.Add(4*time.Hour), *next)
	assert.True(t, next.After(estimatorNow))
}

func TestNextRun_IntervalFutureLastRunKept(t *testing.T) {
	lastRun := estimatorNow.Add(30 * time.Minute)
	next := NextRun(Schedule{IntervalSeconds: 3600}, &lastRun, estimatorNow)
	require.NotNil(t, next)
	assert.Equal(t, lastRun, *next)
}

func TestNextRun_CronStandard(t *testing.T) {
	next := NextRun(Schedule{CronExpr: "0 0 * * *"}, nil, estimatorNow)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), *next)
}

func TestNextRun_CronAnchoredOnLastRunStaysFuture(t *testing.T) {
	lastRun := estimatorNow.Add(-48 * time.Hour)
	next := NextRun(Schedule{CronExpr: "0 */6 * * *"}, &lastRun, estimatorNow)
	require.NotNil(t, next)
	assert.True(t, next.After(estimatorNow))
	assert.Equal(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), *next)
}

func TestNextRun_CronWithSecondsField(t *testing.T) {
	next := NextRun(Schedule{CronExpr: "0 0 */12 * * *"}, nil, estimatorNow)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), *next)
}

func TestNextRun_Malformed(t *testing.T) {
	assert.Nil(t, NextRun(Schedule{CronExpr: "not a cron"}, nil, estimatorNow))
	assert.Nil(t, NextRun(Schedule{CronExpr: "99 99 * * *"}, nil, estimatorNow))
	assert.Nil(t, NextRun(Schedule{}, nil, estimatorNow))
}
