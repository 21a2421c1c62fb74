package artifact

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type CacheConfig struct {
	ReportTTL        time.Duration
	ReportMaxEntries int
	ListTTL          time.Duration
	ListMaxEntries   int
	URLTTL           time.Duration
	URLMaxEntries    int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		ReportTTL:        10 * time.Minute,
		ReportMaxEntries: 256,
		ListTTL:          time.Minute,
		ListMaxEntries:   256,
		// Below the default presign expiry so cached links stay valid.
		URLTTL:        30 * time.Minute,
		URLMaxEntries: 256,
	}
}

type MetricsSnapshot struct {
	ReportHits    uint64
	ReportMisses  uint64
	ListHits      uint64
	ListMisses    uint64
	URLHits       uint64
	URLMisses     uint64
	OriginReads   uint64
	OriginWrites  uint64
	OriginReadErr uint64
}

type metrics struct {
	reportHits    atomic.Uint64
	reportMisses  atomic.Uint64
	listHits      atomic.Uint64
	listMisses    atomic.Uint64
	urlHits       atomic.Uint64
	urlMisses     atomic.Uint64
	originReads   atomic.Uint64
	originWrites  atomic.Uint64
	originReadErr atomic.Uint64
}

// CachedStore is a read-through cache in front of another Store. Reports
// are immutable once written, so Put refreshes the cached copy in place.
type CachedStore struct {
	origin Store

	reports *expirable.LRU[string, []byte]
	lists   *expirable.LRU[string, []string]
	urls    *expirable.LRU[string, string]
	metrics metrics
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.ReportTTL <= 0 {
		cfg.ReportTTL = def.ReportTTL
	}
	if cfg.ReportMaxEntries <= 0 {
		cfg.ReportMaxEntries = def.ReportMaxEntries
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = def.ListTTL
	}
	if cfg.ListMaxEntries <= 0 {
		cfg.ListMaxEntries = def.ListMaxEntries
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = def.URLTTL
	}
	if cfg.URLMaxEntries <= 0 {
		cfg.URLMaxEntries = def.URLMaxEntries
	}
	return &CachedStore{
		origin:  origin,
		reports: expirable.NewLRU[string, []byte](cfg.ReportMaxEntries, nil, cfg.ReportTTL),
		lists:   expirable.NewLRU[string, []string](cfg.ListMaxEntries, nil, cfg.ListTTL),
		urls:    expirable.NewLRU[string, string](cfg.URLMaxEntries, nil, cfg.URLTTL),
	}
}

func (s *CachedStore) Put(ctx context.Context, analysisID, name string, content []byte) error {
	s.metrics.originWrites.Add(1)
	if err := s.origin.Put(ctx, analysisID, name, content); err != nil {
		return err
	}
	key := cacheKey(analysisID, name)
	s.reports.Add(key, append([]byte(nil), content...))
	s.lists.Remove(strings.TrimSpace(analysisID))
	s.urls.Remove(key)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, analysisID, name string) ([]byte, error) {
	key := cacheKey(analysisID, name)
	if raw, ok := s.reports.Get(key); ok {
		s.metrics.reportHits.Add(1)
		return append([]byte(nil), raw...), nil
	}
	s.metrics.reportMisses.Add(1)
	s.metrics.originReads.Add(1)
	raw, err := s.origin.Get(ctx, analysisID, name)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return nil, err
	}
	s.reports.Add(key, append([]byte(nil), raw...))
	return raw, nil
}

func (s *CachedStore) List(ctx context.Context, analysisID string) ([]string, error) {
	analysisID = strings.TrimSpace(analysisID)
	if names, ok := s.lists.Get(analysisID); ok {
		s.metrics.listHits.Add(1)
		return append([]string(nil), names...), nil
	}
	s.metrics.listMisses.Add(1)
	s.metrics.originReads.Add(1)
	names, err := s.origin.List(ctx, analysisID)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return nil, err
	}
	s.lists.Add(analysisID, append([]string(nil), names...))
	return names, nil
}

func (s *CachedStore) URL(ctx context.Context, analysisID, name string) (string, error) {
	key := cacheKey(analysisID, name)
	if u, ok := s.urls.Get(key); ok {
		s.metrics.urlHits.Add(1)
		return u, nil
	}
	s.metrics.urlMisses.Add(1)
	s.metrics.originReads.Add(1)
	u, err := s.origin.URL(ctx, analysisID, name)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return "", err
	}
	if u != "" {
		s.urls.Add(key, u)
	}
	return u, nil
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		ReportHits:    s.metrics.reportHits.Load(),
		ReportMisses:  s.metrics.reportMisses.Load(),
		ListHits:      s.metrics.listHits.Load(),
		ListMisses:    s.metrics.listMisses.Load(),
		URLHits:       s.metrics.urlHits.Load(),
		URLMisses:     s.metrics.urlMisses.Load(),
		OriginReads:   s.metrics.originReads.Load(),
		OriginWrites:  s.metrics.originWrites.Load(),
		OriginReadErr: s.metrics.originReadErr.Load(),
	}
}

func cacheKey(analysisID, name string) string {
	return strings.TrimSpace(analysisID) + "/" + strings.TrimLeft(strings.TrimSpace(name), "/")
}
