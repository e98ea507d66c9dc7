// backend/src/services/transaction_service_test.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/bankfolio/backend/src/models"
	"github.com/username/bankfolio/backend/src/suppliers"
)

type upstreamStub struct {
	server *httptest.Server
	calls  int32
}

// newUpstreamStub serves rows through the paginated listing contract the
// real bank API exposes (offset/limit slicing, value-date descending input
// order preserved).
func newUpstreamStub(t *testing.T, rows []models.RawBankTransaction) *upstreamStub {
	t.Helper()
	stub := &upstreamStub{}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&stub.calls, 1)

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if offset > len(rows) {
			offset = len(rows)
		}
		end := offset + limit
		if end > len(rows) {
			end = len(rows)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"transactions": rows[offset:end],
			"total":        len(rows),
		})
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *upstreamStub) callCount() int {
	return int(atomic.LoadInt32(&s.calls))
}

func newTestSuppliers(t *testing.T) (*suppliers.Registry, *suppliers.Resolver, *suppliers.Learner) {
	t.Helper()
	registry := suppliers.NewRegistry(filepath.Join(t.TempDir(), "suppliers.json"))
	registry.Load()
	resolver := suppliers.NewResolver(registry)
	return registry, resolver, suppliers.NewLearner(registry, resolver)
}

func newTestService(t *testing.T, stub *upstreamStub, learner *suppliers.Learner, resolver *suppliers.Resolver) TransactionService {
	t.Helper()
	client := NewBankClient(stub.server.URL, "test-token", 5*time.Second)
	fetchCache := cache.New(DefaultCacheExpiration, CacheCleanupInterval)
	return NewTransactionService(client, fetchCache, learner, resolver, nil, 0, time.Minute)
}

// makeRows generates count rows with strictly descending value dates.
func makeRows(count int) []models.RawBankTransaction {
	base := time.Date(2025, 12, 24, 12, 0, 0, 0, time.UTC)
	rows := make([]models.RawBankTransaction, 0, count)
	for i := 0; i < count; i++ {
		rows = append(rows, models.RawBankTransaction{
			ID:              fmt.Sprintf("tx-%04d", i),
			AccountIBAN:     "BE68 5390 0754 7034",
			Amount:          "-12.50",
			Side:            "debit",
			Currency:        "EUR",
			ValueDate:       base.Add(-time.Duration(i) * time.Hour).Format(time.RFC3339Nano),
			CounterpartName: "COFFEE CORNER",
			Communication:   fmt.Sprintf("receipt %04d", i),
		})
	}
	return rows
}

func TestFetchAllPaginatesToCompletion(t *testing.T) {
	stub := newUpstreamStub(t, makeRows(285))
	_, resolver, _ := newTestSuppliers(t)
	svc := newTestService(t, stub, nil, resolver)

	txs, err := svc.FetchAll(context.Background(), FetchOptions{})
	require.NoError(t, err)

	// Pages of 120, 120 and 45 rows: exactly three upstream calls.
	assert.Equal(t, 3, stub.callCount())
	require.Len(t, txs, 285)

	seen := make(map[string]bool, len(txs))
	for i, tx := range txs {
		assert.False(t, seen[tx.ID], "duplicate transaction %s", tx.ID)
		seen[tx.ID] = true
		if i > 0 {
			assert.False(t, tx.ValueDate.After(txs[i-1].ValueDate), "descending date order broken at index %d", i)
		}
	}
}

func TestFetchAllServesSecondCallFromCache(t *testing.T) {
	stub := newUpstreamStub(t, makeRows(45))
	_, resolver, _ := newTestSuppliers(t)
	svc := newTestService(t, stub, nil, resolver)

	first, err := svc.FetchAll(context.Background(), FetchOptions{})
	require.NoError(t, err)
	second, err := svc.FetchAll(context.Background(), FetchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, stub.callCount(), "second unconstrained fetch within the TTL must not hit upstream")
	assert.Equal(t, len(first), len(second))
}

func TestFetchAllNeverCachesEmptyResults(t *testing.T) {
	stub := newUpstreamStub(t, nil)
	_, resolver, _ := newTestSuppliers(t)
	svc := newTestService(t, stub, nil, resolver)

	txs, err := svc.FetchAll(context.Background(), FetchOptions{})
	require.NoError(t, err)
	assert.Empty(t, txs)

	_, err = svc.FetchAll(context.Background(), FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, stub.callCount(), "an empty result must not populate the cache")
}

func TestFetchAllDateBoundsBypassCache(t *testing.T) {
	stub := newUpstreamStub(t, makeRows(10))
	_, resolver, _ := newTestSuppliers(t)
	svc := newTestService(t, stub, nil, resolver)

	_, err := svc.FetchAll(context.Background(), FetchOptions{})
	require.NoError(t, err)

	start := time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC)
	_, err = svc.FetchAll(context.Background(), FetchOptions{Start: start, End: start})
	require.NoError(t, err)
	assert.Equal(t, 2, stub.callCount(), "date-bounded queries always go upstream")
}

func TestFetchAllLimitedFetchIsNotCached(t *testing.T) {
	stub := newUpstreamStub(t, makeRows(45))
	_, resolver, _ := newTestSuppliers(t)
	svc := newTestService(t, stub, nil, resolver)

	txs, err := svc.FetchAll(context.Background(), FetchOptions{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, txs, 10)

	full, err := svc.FetchAll(context.Background(), FetchOptions{})
	require.NoError(t, err)
	assert.Len(t, full, 45)
	assert.Equal(t, 2, stub.callCount(), "a capped fetch must not poison the cache for unlimited callers")
}

func TestFetchAllReturnsPartialResultsOnUpstreamError(t *testing.T) {
	var calls int32
	rows := makeRows(240)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n > 1 {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"transactions": rows[:120], "total": len(rows)})
	}))
	t.Cleanup(server.Close)

	_, resolver, _ := newTestSuppliers(t)
	client := NewBankClient(server.URL, "", 5*time.Second)
	svc := NewTransactionService(client, cache.New(time.Minute, time.Minute), nil, resolver, nil, 0, time.Minute)

	txs, err := svc.FetchAll(context.Background(), FetchOptions{})
	require.NoError(t, err, "upstream failures are logged, not returned")
	assert.Len(t, txs, 120, "results accumulated before the failure are kept")
}

func TestFetchByPeriodFiltersBoundariesInclusive(t *testing.T) {
	rows := []models.RawBankTransaction{
		{ID: "tx-late", AccountIBAN: "BE1", Amount: "-1.00", Side: "debit", ValueDate: "2025-12-25T00:00:00.001Z", CounterpartName: "A"},
		{ID: "tx-mid", AccountIBAN: "BE1", Amount: "-2.00", Side: "debit", ValueDate: "2025-12-24T12:00:00.000Z", CounterpartName: "B"},
		{ID: "tx-early", AccountIBAN: "BE1", Amount: "-3.00", Side: "debit", ValueDate: "2025-12-23T23:59:59.999Z", CounterpartName: "C"},
	}
	stub := newUpstreamStub(t, rows)
	_, resolver, _ := newTestSuppliers(t)
	svc := newTestService(t, stub, nil, resolver)

	day := time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC)
	txs, err := svc.FetchByPeriod(context.Background(), day, day)
	require.NoError(t, err)

	require.Len(t, txs, 1)
	assert.Equal(t, "tx-mid", txs[0].ID)
}

func TestFetchByPeriodIncludesFullDayBoundaries(t *testing.T) {
	rows := []models.RawBankTransaction{
		{ID: "tx-end", AccountIBAN: "BE1", Amount: "1.00", Side: "credit", ValueDate: "2025-12-24T23:59:59.999Z", CounterpartName: "A"},
		{ID: "tx-start", AccountIBAN: "BE1", Amount: "2.00", Side: "credit", ValueDate: "2025-12-24T00:00:00.000Z", CounterpartName: "B"},
	}
	stub := newUpstreamStub(t, rows)
	_, resolver, _ := newTestSuppliers(t)
	svc := newTestService(t, stub, nil, resolver)

	day := time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC)
	txs, err := svc.FetchByPeriod(context.Background(), day, day)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestFetchByPeriodRejectsInvertedBounds(t *testing.T) {
	stub := newUpstreamStub(t, nil)
	_, resolver, _ := newTestSuppliers(t)
	svc := newTestService(t, stub, nil, resolver)

	start := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC)
	_, err := svc.FetchByPeriod(context.Background(), start, end)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestFetchAllLearnsSuppliersFromDescriptions(t *testing.T) {
	rows := []models.RawBankTransaction{
		{
			ID:                    "tx-1",
			AccountIBAN:           "BE1",
			Amount:                "-55.00",
			Side:                  "debit",
			ValueDate:             "2025-12-24T10:00:00Z",
			CounterpartName:       "",
			RemittanceInformation: "DOMICILIATION EUROPEENNE ACME UTILITIES SA 00012345 MANDAT 777",
		},
	}
	stub := newUpstreamStub(t, rows)
	registry, resolver, learner := newTestSuppliers(t)
	svc := newTestService(t, stub, learner, resolver)

	_, err := svc.FetchAll(context.Background(), FetchOptions{})
	require.NoError(t, err)

	_, ok := registry.Get("acme utilities")
	assert.True(t, ok, "the learner should have registered the supplier seen during ingestion")
}

func TestGetCreditsAndDebits(t *testing.T) {
	rows := []models.RawBankTransaction{
		{ID: "tx-c", AccountIBAN: "BE1", Amount: "100.00", Side: "credit", ValueDate: "2025-12-24T10:00:00Z", CounterpartName: "EMPLOYER"},
		{ID: "tx-d1", AccountIBAN: "BE1", Amount: "-40.00", Side: "debit", ValueDate: "2025-12-23T10:00:00Z", CounterpartName: "SHOP"},
		{ID: "tx-d2", AccountIBAN: "BE1", Amount: "-10.00", Side: "debit", ValueDate: "2025-12-22T10:00:00Z", CounterpartName: "SHOP"},
	}
	stub := newUpstreamStub(t, rows)
	_, resolver, _ := newTestSuppliers(t)
	svc := newTestService(t, stub, nil, resolver)

	credits, err := svc.GetCredits(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.Equal(t, "tx-c", credits[0].ID)

	debits, err := svc.GetDebits(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, debits, 1)
	assert.Equal(t, "tx-d1", debits[0].ID)

	assert.Equal(t, 1, stub.callCount(), "derived views share the cached unconstrained fetch")
}

func TestSearchByDescription(t *testing.T) {
	rows := []models.RawBankTransaction{
		{ID: "tx-1", AccountIBAN: "BE1", Amount: "-20.00", Side: "debit", ValueDate: "2025-12-24T10:00:00Z", CounterpartName: "EDENRED BELGIUM SA/NV", Communication: "31347257 629914ETR171225"},
		{ID: "tx-2", AccountIBAN: "BE1", Amount: "-15.00", Side: "debit", ValueDate: "2025-12-23T10:00:00Z", CounterpartName: "LOCAL BAKERY"},
	}
	stub := newUpstreamStub(t, rows)
	_, resolver, _ := newTestSuppliers(t)
	svc := newTestService(t, stub, nil, resolver)

	matched, err := svc.SearchByDescription(context.Background(), "Eden Red")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "tx-1", matched[0].ID)
}

func TestGetStats(t *testing.T) {
	rows := []models.RawBankTransaction{
		{ID: "tx-c", AccountIBAN: "BE1", Amount: "100.00", Side: "credit", ValueDate: "2025-12-24T10:00:00Z", CounterpartName: "EMPLOYER"},
		{ID: "tx-d", AccountIBAN: "BE1", Amount: "-40.00", Side: "debit", ValueDate: "2025-12-20T10:00:00Z", CounterpartName: "SHOP"},
	}
	stub := newUpstreamStub(t, rows)
	_, resolver, _ := newTestSuppliers(t)
	svc := newTestService(t, stub, nil, resolver)

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 1, stats.CreditCount)
	assert.Equal(t, 1, stats.DebitCount)
	assert.True(t, stats.TotalCredits.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, stats.TotalDebits.Equal(decimal.RequireFromString("40.00")))
	assert.True(t, stats.Net.Equal(decimal.RequireFromString("60.00")))
	assert.Equal(t, time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC), stats.OldestDate)
	assert.Equal(t, time.Date(2025, 12, 24, 10, 0, 0, 0, time.UTC), stats.NewestDate)
}

func TestFlushCacheForcesRefetch(t *testing.T) {
	stub := newUpstreamStub(t, makeRows(5))
	_, resolver, _ := newTestSuppliers(t)
	svc := newTestService(t, stub, nil, resolver)

	_, err := svc.FetchAll(context.Background(), FetchOptions{})
	require.NoError(t, err)
	svc.FlushCache()
	_, err = svc.FetchAll(context.Background(), FetchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, stub.callCount())
}
