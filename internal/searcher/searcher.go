package searcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/dshills/pinup/internal/parser"
	"github.com/dshills/pinup/internal/storage"
	"github.com/dshills/pinup/pkg/types"
)

const (
	DefaultLimit     = 20
	MaxLimit         = 200
	DefaultCacheSize = 1000
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query  string
	Limit  int // 0 selects the configured default
	Offset int
	Sort   types.SortMode // empty selects relevance

	// IncludeArchived lists archived snippets alongside live ones when the
	// query carries no archived: filter
	IncludeArchived bool
}

// Config contains configuration for the searcher
type Config struct {
	DefaultLimit int
	MaxLimit     int
	CacheSize    int // 0 disables the result cache
	Logger       *slog.Logger
}

// Searcher turns query strings into ranked, paginated result pages
type Searcher struct {
	storage storage.Storage
	parser  *parser.Parser

	cache   *lru.Cache[[32]byte, *types.SearchResponse]
	cacheMu sync.Mutex
	gen     uint64 // bumped on every invalidation, guarded by cacheMu
	flights singleflight.Group

	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
}

// New creates a Searcher over store. A nil config selects the defaults.
func New(store storage.Storage, config *Config) (*Searcher, error) {
	cfg := Config{DefaultLimit: DefaultLimit, MaxLimit: MaxLimit, CacheSize: DefaultCacheSize}
	if config != nil {
		cfg = *config
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxLimit
	}
	if cfg.DefaultLimit <= 0 || cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = min(DefaultLimit, cfg.MaxLimit)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Searcher{
		storage:      store,
		parser:       parser.New(),
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		logger:       cfg.Logger,
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[[32]byte, *types.SearchResponse](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create LRU cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Search parses the query, plans and executes it, and assembles one page of
// results. Count, page and membership are read in a single transaction so
// the total always agrees with the page.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*types.SearchResponse, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	hash := computeQueryHash(req)
	if cached := s.checkCache(hash); cached != nil {
		cached.CacheHit = true
		cached.Duration = time.Since(startTime)
		return cached, nil
	}

	gen := s.generation()
	key := strconv.FormatUint(gen, 10) + ":" + hex.EncodeToString(hash[:])
	v, err, _ := s.flights.Do(key, func() (interface{}, error) {
		return s.execute(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	shared := v.(*types.SearchResponse)
	s.storeInCache(hash, gen, shared)

	response := copySearchResponse(shared)
	response.Duration = time.Since(startTime)
	s.logger.Debug("search executed",
		"query", req.Query,
		"sort", req.Sort,
		"total", response.Total,
		"returned", len(response.Results),
		"duration", response.Duration)
	return response, nil
}

func (s *Searcher) execute(ctx context.Context, req SearchRequest) (*types.SearchResponse, error) {
	query := s.parser.Parse(req.Query)
	s.logger.Debug("search planned",
		"free_text", query.HasTerms(),
		"filters", query.HasFilters())

	tx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	page, err := tx.SearchSnippets(ctx, query, storage.SearchOptions{
		Sort:            req.Sort,
		Limit:           req.Limit,
		Offset:          req.Offset,
		IncludeArchived: req.IncludeArchived,
	})
	if err != nil {
		return nil, err
	}

	results, err := assembleResults(ctx, tx, page.Rows)
	if err != nil {
		return nil, err
	}

	return &types.SearchResponse{
		Query:   req.Query,
		Sort:    req.Sort,
		Limit:   req.Limit,
		Offset:  req.Offset,
		Total:   page.Total,
		Results: results,
	}, nil
}

// validateRequest applies defaults and rejects out of range parameters
func (s *Searcher) validateRequest(req *SearchRequest) error {
	if req.Limit == 0 {
		req.Limit = s.defaultLimit
	}
	if req.Limit < 1 || req.Limit > s.maxLimit {
		return fmt.Errorf("%w: must be between 1 and %d", types.ErrInvalidLimit, s.maxLimit)
	}
	if req.Offset < 0 {
		return types.ErrInvalidOffset
	}

	sort, err := types.ParseSortMode(string(req.Sort))
	if err != nil {
		return err
	}
	req.Sort = sort
	req.Query = strings.TrimSpace(req.Query)
	return nil
}

func (s *Searcher) generation() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.gen
}

// checkCache returns a copy of the cached response for hash, if any
func (s *Searcher) checkCache(hash [32]byte) *types.SearchResponse {
	if s.cache == nil {
		return nil
	}
	entry, found := s.cache.Get(hash)
	if !found {
		return nil
	}
	return copySearchResponse(entry)
}

// storeInCache saves response unless the cache was invalidated after the
// search started
func (s *Searcher) storeInCache(hash [32]byte, gen uint64, response *types.SearchResponse) {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if gen != s.gen {
		return
	}
	s.cache.Add(hash, copySearchResponse(response))
}

// InvalidateCache drops every cached result. Call after any committed write.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.gen++
	if s.cache != nil {
		s.cache.Purge()
	}
}

// CacheLen reports the number of cached responses
func (s *Searcher) CacheLen() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Len()
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *types.SearchResponse) *types.SearchResponse {
	if src == nil {
		return nil
	}

	dst := *src
	dst.Results = make([]types.ResultItem, len(src.Results))
	for i, item := range src.Results {
		item.Tags = append([]string{}, item.Tags...)
		item.Collections = append([]string{}, item.Collections...)
		if item.Source != nil {
			item.Source = types.StringPtr(*item.Source)
		}
		if item.Language != nil {
			item.Language = types.StringPtr(*item.Language)
		}
		dst.Results[i] = item
	}
	return &dst
}

// computeQueryHash computes a unique hash for a validated search request
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(string(req.Sort))
	data.WriteString("|")
	data.WriteString(fmt.Sprintf("%d|%d|%t", req.Limit, req.Offset, req.IncludeArchived))
	return sha256.Sum256([]byte(data.String()))
}
