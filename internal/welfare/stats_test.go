package welfare

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"welfare-workers/internal/common/config"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/models"
)

func testWelfareConfig() config.WelfareConfig {
	return config.WelfareConfig{
		OperationalThreshold:    100,
		MemberContribution:      200,
		ReimbursementWindowDays: 14,
		WaitingPeriodDays:       60,
	}
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func expectCounts(mock sqlmock.Sqlmock, active, total int) {
	mock.ExpectQuery(`SELECT\s+COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"active", "total"}).AddRow(active, total))
}

func expectFundRow(mock sqlmock.Sqlmock, active, total int, amount string, operational bool, launch, waitingEnd interface{}) {
	mock.ExpectQuery(`SELECT id, total_amount, total_members, active_members, is_operational`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "total_amount", "total_members", "active_members",
			"is_operational", "launch_date", "waiting_period_end", "last_updated",
		}).AddRow(
			"fund-1", amount, total, active, operational,
			launch, waitingEnd, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		))
}

func TestRecompute_CrossesThreshold(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()
	mr, cache := setupRedis(t)

	expectCounts(mock, 100, 130)
	expectFundRow(mock, 99, 129, "19800", false, nil, nil)
	mock.ExpectExec(`UPDATE welfare_funds`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	agg := NewStatsAggregator(db, cache, testWelfareConfig(), logger.NewTestLogger(t))
	snap, err := agg.Recompute(context.Background())

	assert.NoError(t, err)
	assert.True(t, snap.IsOperational)
	assert.Equal(t, 100, snap.ActiveMembers)
	assert.Equal(t, 130, snap.TotalMembers)
	assert.True(t, snap.TotalAmount.Equal(mustDecimal(t, "20000")))
	if assert.NotNil(t, snap.LaunchDate) && assert.NotNil(t, snap.WaitingPeriodEnd) {
		assert.Equal(t, snap.LaunchDate.AddDate(0, 0, 60), *snap.WaitingPeriodEnd)
	}
	assert.NoError(t, mock.ExpectationsWereMet())

	// Snapshot is mirrored to the cache for dashboard reads.
	cached, err := mr.Get(FundSnapshotCacheKey)
	assert.NoError(t, err)
	var fromCache models.FundSnapshot
	assert.NoError(t, json.Unmarshal([]byte(cached), &fromCache))
	assert.Equal(t, 100, fromCache.ActiveMembers)
}

func TestRecompute_OperationalIsMonotonic(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()
	_, cache := setupRedis(t)

	launch := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	waitingEnd := launch.AddDate(0, 0, 60)

	// Membership dropped below the threshold after launch. The fund stays
	// operational and keeps its original launch date.
	expectCounts(mock, 40, 150)
	expectFundRow(mock, 90, 150, "18000", true, launch, waitingEnd)
	mock.ExpectExec(`UPDATE welfare_funds`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	agg := NewStatsAggregator(db, cache, testWelfareConfig(), logger.NewTestLogger(t))
	snap, err := agg.Recompute(context.Background())

	assert.NoError(t, err)
	assert.True(t, snap.IsOperational)
	assert.Equal(t, 40, snap.ActiveMembers)
	if assert.NotNil(t, snap.LaunchDate) {
		assert.Equal(t, launch, *snap.LaunchDate)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecompute_NoWriteWhenUnchanged(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()
	_, cache := setupRedis(t)

	expectCounts(mock, 50, 80)
	expectFundRow(mock, 50, 80, "10000", false, nil, nil)
	// No UPDATE expected.

	agg := NewStatsAggregator(db, cache, testWelfareConfig(), logger.NewTestLogger(t))
	snap, err := agg.Recompute(context.Background())

	assert.NoError(t, err)
	assert.False(t, snap.IsOperational)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecompute_CreatesInitialFundRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()
	_, cache := setupRedis(t)

	expectCounts(mock, 5, 8)
	mock.ExpectQuery(`SELECT id, total_amount, total_members, active_members, is_operational`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "total_amount", "total_members", "active_members",
			"is_operational", "launch_date", "waiting_period_end", "last_updated",
		}))
	mock.ExpectExec(`INSERT INTO welfare_funds`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE welfare_funds`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	agg := NewStatsAggregator(db, cache, testWelfareConfig(), logger.NewTestLogger(t))
	snap, err := agg.Recompute(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 5, snap.ActiveMembers)
	assert.Equal(t, 8, snap.TotalMembers)
	assert.False(t, snap.IsOperational)
	assert.Nil(t, snap.LaunchDate)
	assert.True(t, snap.TotalAmount.Equal(mustDecimal(t, "1000")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecompute_SurvivesCacheOutage(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()
	mr, cache := setupRedis(t)
	mr.Close() // cache unreachable

	expectCounts(mock, 100, 100)
	expectFundRow(mock, 99, 99, "19800", false, nil, nil)
	mock.ExpectExec(`UPDATE welfare_funds`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	agg := NewStatsAggregator(db, cache, testWelfareConfig(), logger.NewTestLogger(t))
	snap, err := agg.Recompute(context.Background())

	assert.NoError(t, err)
	assert.True(t, snap.IsOperational)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}
