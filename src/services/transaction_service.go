// backend/src/services/transaction_service.go
package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/bankfolio/backend/src/logger"
	"github.com/username/bankfolio/backend/src/model"
	"github.com/username/bankfolio/backend/src/models"
	"github.com/username/bankfolio/backend/src/suppliers"
	"golang.org/x/sync/singleflight"
)

const (
	// upstreamPageSize is the hard cap the bank API puts on a single call.
	upstreamPageSize = 120

	unconstrainedCacheKey = "transactions:unconstrained"

	DefaultCacheExpiration = 5 * time.Minute
	CacheCleanupInterval   = 10 * time.Minute
)

type transactionServiceImpl struct {
	client    *BankClient
	cache     *cache.Cache
	learner   *suppliers.Learner
	resolver  *suppliers.Resolver
	db        *sql.DB
	pageDelay time.Duration
	cacheTTL  time.Duration
	flight    singleflight.Group
}

// NewTransactionService wires the retrieval engine. db may be nil to disable
// archiving (tests); learner may be nil to disable supplier learning.
func NewTransactionService(
	client *BankClient,
	fetchCache *cache.Cache,
	learner *suppliers.Learner,
	resolver *suppliers.Resolver,
	db *sql.DB,
	pageDelay time.Duration,
	cacheTTL time.Duration,
) TransactionService {
	return &transactionServiceImpl{
		client:    client,
		cache:     fetchCache,
		learner:   learner,
		resolver:  resolver,
		db:        db,
		pageDelay: pageDelay,
		cacheTTL:  cacheTTL,
	}
}

// FetchAll returns the transaction sequence, value-date descending.
// Unconstrained queries (no date bounds) are served from the cache when
// fresh; concurrent cache misses are coalesced into a single upstream
// pagination. Queries with explicit bounds always bypass the cache.
func (s *transactionServiceImpl) FetchAll(ctx context.Context, opts FetchOptions) ([]models.Transaction, error) {
	unconstrained := opts.Start.IsZero() && opts.End.IsZero()
	if !unconstrained {
		return s.paginate(ctx, opts), nil
	}

	if cached, found := s.cache.Get(unconstrainedCacheKey); found {
		if txs, ok := cached.([]models.Transaction); ok {
			logger.L.Debug("Transaction cache hit", "count", len(txs))
			return capResults(txs, opts.Limit), nil
		}
	}

	if opts.Limit > 0 {
		// A capped fetch can stop mid-pagination; a truncated set must not
		// poison the cache for unlimited callers.
		return s.paginate(ctx, opts), nil
	}

	v, _, shared := s.flight.Do(unconstrainedCacheKey, func() (interface{}, error) {
		txs := s.paginate(ctx, FetchOptions{})
		if len(txs) > 0 {
			s.cache.Set(unconstrainedCacheKey, txs, s.cacheTTL)
		}
		return txs, nil
	})
	if shared {
		logger.L.Debug("Unconstrained fetch coalesced with an in-flight request")
	}
	txs, _ := v.([]models.Transaction)
	return txs, nil
}

// FetchByPeriod fetches with upstream date bounds and then re-filters the
// result client-side against [startOfDay(start), endOfDay(end)] inclusive at
// millisecond precision, because the upstream filter is date-only and may
// include boundary-adjacent rows.
func (s *transactionServiceImpl) FetchByPeriod(ctx context.Context, start, end time.Time) ([]models.Transaction, error) {
	if start.After(end) {
		return nil, ErrInvalidPeriod
	}

	txs, err := s.FetchAll(ctx, FetchOptions{Start: start, End: end})
	if err != nil {
		return nil, err
	}

	from := startOfDay(start)
	to := endOfDay(end)
	filtered := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.ValueDate.Before(from) || tx.ValueDate.After(to) {
			continue
		}
		filtered = append(filtered, tx)
	}
	return filtered, nil
}

func (s *transactionServiceImpl) GetCredits(ctx context.Context, limit int) ([]models.Transaction, error) {
	return s.filterByDirection(ctx, models.DirectionCredit, limit)
}

func (s *transactionServiceImpl) GetDebits(ctx context.Context, limit int) ([]models.Transaction, error) {
	return s.filterByDirection(ctx, models.DirectionDebit, limit)
}

// SearchByDescription returns the transactions whose description resolves to
// the supplier identified by term.
func (s *transactionServiceImpl) SearchByDescription(ctx context.Context, term string) ([]models.Transaction, error) {
	txs, err := s.FetchAll(ctx, FetchOptions{})
	if err != nil {
		return nil, err
	}
	matched := make([]models.Transaction, 0)
	for _, tx := range txs {
		if s.resolver.Matches(tx.Description, term) {
			matched = append(matched, tx)
		}
	}
	return matched, nil
}

func (s *transactionServiceImpl) GetStats(ctx context.Context) (models.TransactionStats, error) {
	txs, err := s.FetchAll(ctx, FetchOptions{})
	if err != nil {
		return models.TransactionStats{}, err
	}

	stats := models.TransactionStats{
		Count:        len(txs),
		TotalCredits: decimal.Zero,
		TotalDebits:  decimal.Zero,
	}
	for _, tx := range txs {
		if tx.Direction == models.DirectionCredit {
			stats.CreditCount++
			stats.TotalCredits = stats.TotalCredits.Add(tx.Amount.Abs())
		} else {
			stats.DebitCount++
			stats.TotalDebits = stats.TotalDebits.Add(tx.Amount.Abs())
		}
		if stats.OldestDate.IsZero() || tx.ValueDate.Before(stats.OldestDate) {
			stats.OldestDate = tx.ValueDate
		}
		if stats.NewestDate.IsZero() || tx.ValueDate.After(stats.NewestDate) {
			stats.NewestDate = tx.ValueDate
		}
	}
	stats.Net = stats.TotalCredits.Sub(stats.TotalDebits)
	return stats, nil
}

// FlushCache drops the cached unconstrained result so the next fetch re-hits
// upstream.
func (s *transactionServiceImpl) FlushCache() {
	s.cache.Flush()
	logger.L.Info("Transaction fetch cache flushed")
}

func (s *transactionServiceImpl) filterByDirection(ctx context.Context, direction models.Direction, limit int) ([]models.Transaction, error) {
	txs, err := s.FetchAll(ctx, FetchOptions{})
	if err != nil {
		return nil, err
	}
	filtered := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Direction == direction {
			filtered = append(filtered, tx)
		}
	}
	return capResults(filtered, limit), nil
}

// paginate walks the upstream offset cursor until a short or empty page, or
// until limit transactions have been accumulated. An upstream error aborts
// the loop; whatever was accumulated is returned and the error is only
// logged, so results are best-effort.
func (s *transactionServiceImpl) paginate(ctx context.Context, opts FetchOptions) []models.Transaction {
	var results []models.Transaction
	offset := 0
	for page := 0; ; page++ {
		if page > 0 && s.pageDelay > 0 {
			// Upstream throttles bursts; space the page requests out.
			time.Sleep(s.pageDelay)
		}

		rows, err := s.client.FetchPage(ctx, offset, upstreamPageSize, opts.Start, opts.End)
		if err != nil {
			logger.L.Error("Upstream page fetch failed, returning partial results",
				"offset", offset, "accumulated", len(results), "error", err)
			break
		}

		for _, raw := range rows {
			tx, err := ConvertRawTransaction(raw)
			if err != nil {
				logger.L.Warn("Skipping malformed upstream transaction row", "error", err)
				continue
			}
			if s.learner != nil {
				s.learner.Learn(tx.Description)
			}
			s.archiveTransaction(tx)
			results = append(results, tx)
			if opts.Limit > 0 && len(results) >= opts.Limit {
				return results
			}
		}

		if len(rows) < upstreamPageSize {
			break
		}
		offset += upstreamPageSize
	}
	return results
}

// archiveTransaction persists the converted row into the local archive.
// Best-effort: failures are logged and never fail a fetch.
func (s *transactionServiceImpl) archiveTransaction(tx models.Transaction) {
	if s.db == nil {
		return
	}
	if err := model.InsertArchivedTransaction(s.db, tx); err != nil {
		logger.L.Warn("Failed to archive transaction", "id", tx.ID, "error", err)
	}
}

func capResults(txs []models.Transaction, limit int) []models.Transaction {
	if limit > 0 && len(txs) > limit {
		return txs[:limit]
	}
	return txs
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}
