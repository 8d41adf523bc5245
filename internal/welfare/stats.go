// internal/welfare/stats.go
package welfare

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"welfare-workers/internal/common/config"
	"welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/common/metrics"
	"welfare-workers/internal/models"
)

const (
	// FundSnapshotCacheKey is where the dashboard reads the latest snapshot.
	FundSnapshotCacheKey = "welfare:fund:snapshot"

	fundSnapshotCacheTTL = 10 * time.Minute
)

// StatsAggregator recomputes the fund's derived aggregate view. The persisted
// fund row is a cache of registrations + applications, never a source of
// truth, so Recompute is idempotent and safe to run after any mutating event.
type StatsAggregator struct {
	db     *sql.DB
	cache  *redis.Client
	cfg    config.WelfareConfig
	logger logger.Logger
}

func NewStatsAggregator(db *sql.DB, cache *redis.Client, cfg config.WelfareConfig, log logger.Logger) *StatsAggregator {
	return &StatsAggregator{
		db:     db,
		cache:  cache,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "stats-aggregator"}),
	}
}

// Recompute rebuilds the fund snapshot from registrations and persists it
// only when a derived field actually changed. The operational flag is
// monotonic: once the active-member threshold is reached the fund stays
// operational, and launchDate/waitingPeriodEnd are written exactly once.
func (a *StatsAggregator) Recompute(ctx context.Context) (*models.FundSnapshot, error) {
	var activeMembers, totalMembers int
	err := a.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'ACTIVE' AND payment_status = 'PAID'),
			COUNT(*)
		FROM welfare_registrations`).Scan(&activeMembers, &totalMembers)
	if err != nil {
		return nil, errors.NewStorageFailureError("count registrations", err)
	}

	current, err := a.loadCurrent(ctx)
	if err != nil {
		return nil, errors.NewStorageFailureError("load fund snapshot", err)
	}

	now := time.Now().UTC()
	next := &models.FundSnapshot{
		ID:               current.ID,
		TotalMembers:     totalMembers,
		ActiveMembers:    activeMembers,
		TotalAmount:      decimal.NewFromFloat(a.cfg.MemberContribution).Mul(decimal.NewFromInt(int64(activeMembers))),
		IsOperational:    current.IsOperational || activeMembers >= a.cfg.OperationalThreshold,
		LaunchDate:       current.LaunchDate,
		WaitingPeriodEnd: current.WaitingPeriodEnd,
		LastUpdated:      current.LastUpdated,
	}

	// First false -> true transition launches the fund.
	if next.IsOperational && !current.IsOperational && current.LaunchDate == nil {
		launch := now
		waitingEnd := now.AddDate(0, 0, a.cfg.WaitingPeriodDays)
		next.LaunchDate = &launch
		next.WaitingPeriodEnd = &waitingEnd
	}

	if next.Equal(current) {
		a.publishGauges(next)
		return next, nil
	}

	next.LastUpdated = now
	// COALESCE keeps launch_date and waiting_period_end immutable once set.
	_, err = a.db.ExecContext(ctx, `
		UPDATE welfare_funds
		SET total_amount = $2,
		    total_members = $3,
		    active_members = $4,
		    is_operational = $5,
		    launch_date = COALESCE(launch_date, $6),
		    waiting_period_end = COALESCE(waiting_period_end, $7),
		    last_updated = $8
		WHERE id = $1`,
		next.ID, next.TotalAmount, next.TotalMembers, next.ActiveMembers,
		next.IsOperational, next.LaunchDate, next.WaitingPeriodEnd, next.LastUpdated,
	)
	if err != nil {
		return nil, errors.NewStorageFailureError("update fund snapshot", err)
	}

	a.publishGauges(next)
	a.refreshCache(ctx, next)

	return next, nil
}

// loadCurrent returns the authoritative fund row, creating the initial one if
// the fund has never been computed.
func (a *StatsAggregator) loadCurrent(ctx context.Context) (*models.FundSnapshot, error) {
	var f models.FundSnapshot
	err := a.db.QueryRowContext(ctx, `
		SELECT id, total_amount, total_members, active_members, is_operational,
		       launch_date, waiting_period_end, last_updated
		FROM welfare_funds
		ORDER BY last_updated DESC
		LIMIT 1`).Scan(
		&f.ID, &f.TotalAmount, &f.TotalMembers, &f.ActiveMembers,
		&f.IsOperational, &f.LaunchDate, &f.WaitingPeriodEnd, &f.LastUpdated,
	)
	if err == sql.ErrNoRows {
		f = models.FundSnapshot{
			ID:          uuid.New().String(),
			TotalAmount: decimal.Zero,
			LastUpdated: time.Now().UTC(),
		}
		_, insertErr := a.db.ExecContext(ctx, `
			INSERT INTO welfare_funds
				(id, total_amount, total_members, active_members, is_operational, last_updated)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			f.ID, f.TotalAmount, f.TotalMembers, f.ActiveMembers, f.IsOperational, f.LastUpdated,
		)
		if insertErr != nil {
			return nil, insertErr
		}
		return &f, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (a *StatsAggregator) publishGauges(snap *models.FundSnapshot) {
	metrics.FundActiveMembers.Set(float64(snap.ActiveMembers))
	if snap.IsOperational {
		metrics.FundOperational.Set(1)
	} else {
		metrics.FundOperational.Set(0)
	}
}

// refreshCache pushes the snapshot to Redis for dashboard reads. Best-effort:
// a cache failure never fails the recompute.
func (a *StatsAggregator) refreshCache(ctx context.Context, snap *models.FundSnapshot) {
	if a.cache == nil {
		return
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		a.logger.Warn("failed to marshal fund snapshot for cache", map[string]interface{}{
			"error": err,
		})
		return
	}

	if err := a.cache.Set(ctx, FundSnapshotCacheKey, payload, fundSnapshotCacheTTL).Err(); err != nil {
		a.logger.Warn("fund snapshot cache refresh failed", map[string]interface{}{
			"error": err,
		})
	}
}
