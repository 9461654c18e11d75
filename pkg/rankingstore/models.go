package rankingstore

import (
	"fmt"
	"strings"
)

// RankingTableName and TotalTableName are the pipeline's two ClickHouse
// tables: the materialized ranking itself and a singleton key/count table
// of run-level aggregates.
const (
	RankingTableName = "ranking"
	TotalTableName   = "total"
)

// ColumnDef defines a single ClickHouse column, grounded on the indexer's
// column-def convention but trimmed of the cross-chain renaming/skipping
// fields this single-chain pipeline has no use for.
type ColumnDef struct {
	Name  string
	Type  string
	Codec string
}

// SQL returns the column definition fragment for a CREATE TABLE statement.
func (c ColumnDef) SQL() string {
	if c.Codec != "" {
		return fmt.Sprintf("%s %s CODEC(%s)", c.Name, c.Type, c.Codec)
	}
	return fmt.Sprintf("%s %s", c.Name, c.Type)
}

// ColumnsToSchemaSQL joins column definitions into a CREATE TABLE body.
func ColumnsToSchemaSQL(columns []ColumnDef) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = c.SQL()
	}
	return strings.Join(parts, ",\n\t\t\t")
}

// ColumnNames extracts just the column names, in order, for INSERT statements.
func ColumnNames(columns []ColumnDef) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

// RankingColumns is the schema for the ranking table: one row per ranked
// validator per run. Nested history arrays are stored as JSON-encoded
// strings, matching the indexer's practice of storing free-form event
// payloads as a plain String column.
var RankingColumns = []ColumnDef{
	{Name: "block_height", Type: "UInt64", Codec: "Delta, ZSTD(3)"},
	{Name: "stash_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "controller_id", Type: "String", Codec: "ZSTD(1)"},
	{Name: "name", Type: "String", Codec: "ZSTD(1)"},
	{Name: "active", Type: "UInt8"},
	{Name: "rank", Type: "UInt32", Codec: "Delta, ZSTD(3)"},
	{Name: "total_rating", Type: "Int32"},
	{Name: "active_rating", Type: "Int32"},
	{Name: "address_creation_rating", Type: "Int32"},
	{Name: "identity_rating", Type: "Int32"},
	{Name: "sub_accounts_rating", Type: "Int32"},
	{Name: "nominators_rating", Type: "Int32"},
	{Name: "commission_rating", Type: "Int32"},
	{Name: "era_points_rating", Type: "Int32"},
	{Name: "slash_rating", Type: "Int32"},
	{Name: "governance_rating", Type: "Int32"},
	{Name: "payout_rating", Type: "Int32"},
	{Name: "self_stake", Type: "String"},
	{Name: "total_stake", Type: "String"},
	{Name: "other_stake", Type: "String"},
	{Name: "nominator_count", Type: "UInt32"},
	{Name: "council_backing", Type: "UInt8"},
	{Name: "active_in_governance", Type: "UInt8"},
	{Name: "active_eras", Type: "UInt32"},
	{Name: "performance", Type: "Float64"},
	{Name: "relative_performance", Type: "Float64"},
	{Name: "cluster_name", Type: "String", Codec: "ZSTD(1)"},
	{Name: "cluster_members", Type: "UInt32"},
	{Name: "part_of_cluster", Type: "UInt8"},
	{Name: "show_cluster_member", Type: "UInt8"},
	{Name: "dominated", Type: "UInt8"},
	{Name: "included_thousand_validators", Type: "UInt8"},
	{Name: "commission_history", Type: "String", Codec: "ZSTD(3)"},
	{Name: "era_points_history", Type: "String", Codec: "ZSTD(3)"},
	{Name: "payout_history", Type: "String", Codec: "ZSTD(3)"},
	{Name: "slashes", Type: "String", Codec: "ZSTD(3)"},
	{Name: "updated_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
}

// TotalColumns is the schema for the singleton total(name, count) table that
// carries run-level aggregates (active_validator_count, waiting_validator_count,
// nominator_count, current_era, minimum_stake).
var TotalColumns = []ColumnDef{
	{Name: "name", Type: "String", Codec: "ZSTD(1)"},
	{Name: "count", Type: "String"},
	{Name: "updated_at", Type: "DateTime64(3)", Codec: "DoubleDelta, ZSTD(1)"},
}
