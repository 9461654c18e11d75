// Package config loads the ranking pipeline's configuration from the
// environment, the same Env/EnvInt idiom the indexer uses in pkg/utils/env.go.
package config

import (
	"fmt"
	"time"

	"github.com/canopy-network/validator-ranker/pkg/utils"
)

// Config holds every recognized configuration option.
type Config struct {
	// StartDelay is the initial delay before the first run (first-run hint only).
	StartDelay time.Duration
	// PollingTime is the inter-run period, measured from the previous run's completion.
	PollingTime time.Duration
	// HistorySize is the number of recent eras included in each run.
	HistorySize uint32
	// ErasPerDay is used to convert payout backlog into a rating band.
	ErasPerDay uint32
	// TokenDecimals normalizes stake quantities for performance calculation.
	TokenDecimals uint32
	// MaxNominatorRewardedPerValidator bounds the nominatorsRating band.
	MaxNominatorRewardedPerValidator int

	// WSProviderURL is the chain RPC WebSocket endpoint. Required.
	WSProviderURL string

	// ThousandValidatorsURL is the thousand-validator-program candidates endpoint.
	ThousandValidatorsURL string
	// ThousandValidatorsCacheTTL bounds how long a cached successful response
	// is reused across a single transient outage.
	ThousandValidatorsCacheTTL time.Duration

	// ClickHouseDatabase is the target database for the ranking/total tables.
	ClickHouseDatabase string
}

// Load reads Config from the environment. A missing WSProviderURL is a
// configuration error: fatal at startup, never retried.
func Load() (*Config, error) {
	cfg := &Config{
		StartDelay:                        time.Duration(utils.EnvInt("START_DELAY_MS", 0)) * time.Millisecond,
		PollingTime:                       time.Duration(utils.EnvInt("POLLING_TIME_MS", 6*60*60*1000)) * time.Millisecond,
		HistorySize:                       uint32(utils.EnvInt("HISTORY_SIZE", 84)),
		ErasPerDay:                        uint32(utils.EnvInt("ERAS_PER_DAY", 4)),
		TokenDecimals:                     uint32(utils.EnvInt("TOKEN_DECIMALS", 12)),
		MaxNominatorRewardedPerValidator:  utils.EnvInt("MAX_NOMINATOR_REWARDED_PER_VALIDATOR", 512),
		WSProviderURL:                     utils.Env("WS_PROVIDER_URL", ""),
		ThousandValidatorsURL:             utils.Env("THOUSAND_VALIDATORS_URL", "https://kusama.w3f.community/candidates"),
		ThousandValidatorsCacheTTL:        time.Duration(utils.EnvInt("THOUSAND_VALIDATORS_CACHE_TTL_S", 24*60*60)) * time.Second,
		ClickHouseDatabase:                utils.Env("CLICKHOUSE_DATABASE", "validator_ranker"),
	}

	if cfg.WSProviderURL == "" {
		return nil, fmt.Errorf("WS_PROVIDER_URL is required")
	}
	if cfg.HistorySize == 0 {
		return nil, fmt.Errorf("HISTORY_SIZE must be positive")
	}
	if cfg.ErasPerDay == 0 {
		return nil, fmt.Errorf("ERAS_PER_DAY must be positive")
	}

	return cfg, nil
}
