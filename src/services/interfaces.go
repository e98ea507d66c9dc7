// backend/src/services/interfaces.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/username/bankfolio/backend/src/models"
)

// Define common service errors
var (
	ErrInvalidPeriod = errors.New("period start must not be after period end")
)

// FetchOptions narrows a FetchAll call. A zero Start and End means the query
// is unconstrained and eligible for the long-lived cache; Limit caps the
// total number of transactions returned (0 = no cap).
type FetchOptions struct {
	Limit int
	Start time.Time
	End   time.Time
}

// TransactionService is the retrieval engine: it presents a complete,
// correctly time-windowed transaction sequence from the paginated upstream
// bank API while minimizing redundant upstream calls.
//
// Fetches are best-effort: an upstream failure mid-pagination is logged and
// the partial results accumulated so far are returned without an error, so
// callers cannot distinguish a complete set from a truncated one.
type TransactionService interface {
	FetchAll(ctx context.Context, opts FetchOptions) ([]models.Transaction, error)
	FetchByPeriod(ctx context.Context, start, end time.Time) ([]models.Transaction, error)
	GetCredits(ctx context.Context, limit int) ([]models.Transaction, error)
	GetDebits(ctx context.Context, limit int) ([]models.Transaction, error)
	SearchByDescription(ctx context.Context, term string) ([]models.Transaction, error)
	GetStats(ctx context.Context) (models.TransactionStats, error)
	FlushCache()
}
