package services

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"tripledger/internal/cache"
	"tripledger/internal/core"
	"tripledger/internal/metrics"
	"tripledger/internal/storage"
)

// SummaryQuery narrows a dashboard summary. Zero bounds are open.
type SummaryQuery struct {
	From       core.Date
	To         core.Date
	CategoryID string
}

// DashboardService filters an owner's expenses and aggregates them.
//
// Results are cached per owner, generation and query. Any committed change
// for the owner bumps the generation, so an in-flight fill started before the
// change can only populate a key nobody asks for again.
type DashboardService struct {
	store   storage.ExpenseStore
	cache   cache.Cache[core.Summary]
	metrics *metrics.Metrics
	group   singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

var _ Invalidator = (*DashboardService)(nil)

// NewDashboardService builds the service; a nil result cache disables caching.
func NewDashboardService(store storage.ExpenseStore, results cache.Cache[core.Summary], m *metrics.Metrics) *DashboardService {
	return &DashboardService{
		store:       store,
		cache:       results,
		metrics:     m,
		generations: make(map[string]uint64),
	}
}

func (s *DashboardService) Summary(ctx context.Context, ownerID string, q SummaryQuery) (core.Summary, error) {
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return core.Summary{}, core.NewValidationError("startDate", "must not be after endDate")
	}
	if s.cache == nil {
		return s.compute(ctx, ownerID, q)
	}

	key := s.key(ownerID, q)
	if sum, ok := s.cache.Get(key); ok {
		s.metrics.SummaryCache(metrics.CacheHit)
		return sum, nil
	}
	s.metrics.SummaryCache(metrics.CacheMiss)

	// The fill is shared by every caller of key, so it must outlive the
	// request that happened to start it.
	v, err, _ := s.group.Do(key, func() (any, error) {
		sum, err := s.compute(context.WithoutCancel(ctx), ownerID, q)
		if err != nil {
			return core.Summary{}, err
		}
		s.cache.Set(key, sum)
		return sum, nil
	})
	if err != nil {
		return core.Summary{}, err
	}
	return v.(core.Summary), nil
}

func (s *DashboardService) compute(ctx context.Context, ownerID string, q SummaryQuery) (core.Summary, error) {
	expenses, err := s.store.ListExpenses(ctx, storage.ExpenseFilter{
		OwnerID:    ownerID,
		From:       q.From,
		To:         q.To,
		CategoryID: q.CategoryID,
		SortBy:     storage.SortByDate,
		SortOrder:  storage.SortAsc,
	})
	if err != nil {
		return core.Summary{}, fmt.Errorf("list expenses for summary: %w", err)
	}
	return core.Summarize(expenses), nil
}

// Invalidate forgets every cached summary of the owner.
func (s *DashboardService) Invalidate(ownerID string) {
	s.mu.Lock()
	s.generations[ownerID]++
	s.mu.Unlock()
	if s.cache != nil {
		s.cache.DeletePrefix(ownerID + "|")
	}
}

func (s *DashboardService) key(ownerID string, q SummaryQuery) string {
	s.mu.Lock()
	gen := s.generations[ownerID]
	s.mu.Unlock()
	return fmt.Sprintf("%s|%d|%s|%s|%s", ownerID, gen, q.From, q.To, q.CategoryID)
}
