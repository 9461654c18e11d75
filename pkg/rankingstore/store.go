// Package rankingstore persists one run's ranked validator set into
// ClickHouse, replacing the prior generation atomically and publishing a
// best-effort notification once the write lands.
package rankingstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/canopy-network/validator-ranker/pkg/db/clickhouse"
	"github.com/canopy-network/validator-ranker/pkg/ranking/types"
)

// Notifier is satisfied by pkg/redis.Client; kept as a narrow interface so
// this package doesn't depend on the Redis client directly.
type Notifier interface {
	Publish(ctx context.Context, channel string, message interface{})
}

const rankingUpdatedChannel = "ranking.updated"

// Totals are the run-level aggregates persisted into the singleton total table.
type Totals struct {
	ActiveValidatorCount  int
	WaitingValidatorCount int
	NominatorCount        int
	CurrentEra            types.Era
	MinimumStake          types.Stake
}

// Store wraps a ClickHouse client scoped to the ranking/total tables.
type Store struct {
	client   *clickhouse.Client
	dbName   string
	notifier Notifier
	logger   *zap.Logger
}

// New creates a Store and ensures its database and tables exist.
func New(ctx context.Context, client *clickhouse.Client, dbName string, notifier Notifier, logger *zap.Logger) (*Store, error) {
	s := &Store{
		client:   client,
		dbName:   clickhouse.SanitizeName(dbName),
		notifier: notifier,
		logger:   logger,
	}
	if err := s.initializeDB(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initializeDB(ctx context.Context) error {
	if err := s.client.CreateDbIfNotExists(ctx, s.dbName); err != nil {
		return fmt.Errorf("create database %s: %w", s.dbName, err)
	}
	if err := s.initRanking(ctx); err != nil {
		return fmt.Errorf("init ranking table: %w", err)
	}
	if err := s.initTotal(ctx); err != nil {
		return fmt.Errorf("init total table: %w", err)
	}
	return nil
}

func (s *Store) initRanking(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = %s
		ORDER BY (block_height, stash_id)
		SETTINGS index_granularity = 8192
	`, s.dbName, RankingTableName, ColumnsToSchemaSQL(RankingColumns), clickhouse.ReplicatedEngine(clickhouse.ReplacingMergeTree, "updated_at"))
	return s.client.Exec(ctx, query)
}

func (s *Store) initTotal(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = %s
		ORDER BY name
		SETTINGS index_granularity = 8192
	`, s.dbName, TotalTableName, ColumnsToSchemaSQL(TotalColumns), clickhouse.ReplicatedEngine(clickhouse.ReplacingMergeTree, "updated_at"))
	return s.client.Exec(ctx, query)
}

// WriteRanking inserts every row of the newly computed ranking, deletes
// every row belonging to a prior block height (the atomic "replace the
// materialized ranking" step), persists the run's totals, and publishes a
// best-effort ranking.updated notification. A single row's insert failure
// is logged and skipped rather than aborting the whole write.
func (s *Store) WriteRanking(ctx context.Context, blockHeight uint64, ranked []types.RankedValidator, totals Totals) error {
	if err := s.insertRows(ctx, blockHeight, ranked); err != nil {
		return fmt.Errorf("insert ranking rows: %w", err)
	}

	if err := s.deletePriorGenerations(ctx, blockHeight); err != nil {
		return fmt.Errorf("delete prior ranking generation: %w", err)
	}

	// A failure updating the singleton totals is logged and skipped rather
	// than aborting the run: the ranking table itself is already correct.
	if err := s.writeTotals(ctx, totals); err != nil {
		s.logger.Warn("skipping totals update after write failure", zap.Error(err))
	}

	if s.notifier != nil {
		if payload, err := json.Marshal(map[string]uint64{"blockHeight": blockHeight}); err == nil {
			s.notifier.Publish(ctx, rankingUpdatedChannel, string(payload))
		}
	}

	return nil
}

func (s *Store) insertRows(ctx context.Context, blockHeight uint64, ranked []types.RankedValidator) error {
	query := fmt.Sprintf(`INSERT INTO "%s"."%s" (%s) VALUES`, s.dbName, RankingTableName, columnList(RankingColumns))

	batch, err := s.client.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func() { _ = batch.Abort() }()

	now := time.Now()
	inserted := 0
	for _, rv := range ranked {
		row, err := toRow(blockHeight, rv, now)
		if err != nil {
			s.logger.Warn("skipping ranking row that failed to encode", zap.String("stash", rv.StashID), zap.Error(err))
			continue
		}
		if err := batch.Append(row...); err != nil {
			s.logger.Warn("skipping ranking row rejected by clickhouse", zap.String("stash", rv.StashID), zap.Error(err))
			continue
		}
		inserted++
	}

	if inserted == 0 {
		return nil
	}
	return batch.Send()
}

func (s *Store) deletePriorGenerations(ctx context.Context, blockHeight uint64) error {
	query := fmt.Sprintf(`DELETE FROM "%s"."%s" WHERE block_height != ?`, s.dbName, RankingTableName)
	return s.client.Exec(ctx, query, blockHeight)
}

func (s *Store) writeTotals(ctx context.Context, totals Totals) error {
	query := fmt.Sprintf(`INSERT INTO "%s"."%s" (%s) VALUES`, s.dbName, TotalTableName, columnList(TotalColumns))

	batch, err := s.client.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func() { _ = batch.Abort() }()

	now := time.Now()
	rows := []struct {
		name  string
		count string
	}{
		{"active_validator_count", fmt.Sprintf("%d", totals.ActiveValidatorCount)},
		{"waiting_validator_count", fmt.Sprintf("%d", totals.WaitingValidatorCount)},
		{"nominator_count", fmt.Sprintf("%d", totals.NominatorCount)},
		{"current_era", fmt.Sprintf("%d", totals.CurrentEra)},
		{"minimum_stake", stakeString(totals.MinimumStake)},
	}

	for _, r := range rows {
		if err := batch.Append(r.name, r.count, now); err != nil {
			return err
		}
	}
	return batch.Send()
}

func columnList(columns []ColumnDef) string {
	names := ColumnNames(columns)
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

func stakeString(s types.Stake) string {
	if s == nil {
		return "0"
	}
	return s.String()
}

// toRow encodes one RankedValidator into a positional argument list matching
// RankingColumns' order exactly.
func toRow(blockHeight uint64, rv types.RankedValidator, now time.Time) ([]interface{}, error) {
	commissionHistory, err := json.Marshal(rv.CommissionHistory)
	if err != nil {
		return nil, err
	}
	eraPointsHistory, err := json.Marshal(rv.EraPointsHistory)
	if err != nil {
		return nil, err
	}
	payoutHistory, err := json.Marshal(rv.PayoutHistory)
	if err != nil {
		return nil, err
	}
	slashes, err := json.Marshal(rv.Slashes)
	if err != nil {
		return nil, err
	}

	return []interface{}{
		blockHeight,
		rv.StashID,
		rv.ControllerID,
		rv.Name,
		rv.Active,
		uint32(rv.Rank),
		int32(rv.TotalRating),
		int32(rv.ActiveRating),
		int32(rv.AddressCreationRating),
		int32(rv.IdentityRating),
		int32(rv.SubAccountsRating),
		int32(rv.NominatorsRating),
		int32(rv.CommissionRating),
		int32(rv.EraPointsRating),
		int32(rv.SlashRating),
		int32(rv.GovernanceRating),
		int32(rv.PayoutRating),
		stakeString(rv.SelfStake),
		stakeString(rv.TotalStake),
		stakeString(rv.OtherStake),
		uint32(rv.NominatorCount),
		rv.CouncilBacking,
		rv.ActiveInGovernance,
		uint32(rv.ActiveEras),
		rv.Performance,
		rv.RelativePerformance,
		rv.ClusterName,
		uint32(rv.ClusterMembers),
		rv.PartOfCluster,
		rv.ShowClusterMember,
		rv.Dominated,
		rv.IncludedThousandValidators,
		string(commissionHistory),
		string(eraPointsHistory),
		string(payoutHistory),
		string(slashes),
		now,
	}, nil
}
