// backend/src/services/bank_client.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/username/bankfolio/backend/src/logger"
	"github.com/username/bankfolio/backend/src/models"
	"golang.org/x/net/publicsuffix"
)

// bankPageResponse is one page of the upstream transaction listing.
type bankPageResponse struct {
	Transactions []models.RawBankTransaction `json:"transactions"`
	Total        int                         `json:"total"`
}

// BankClient talks to the upstream bank transaction API. The API caps every
// call at a fixed page size and sorts by value date descending; pagination is
// driven by an offset cursor.
type BankClient struct {
	baseURL    string
	token      string
	httpClient http.Client
}

func NewBankClient(baseURL, token string, timeout time.Duration) *BankClient {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	return &BankClient{
		baseURL: baseURL,
		token:   token,
		httpClient: http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
	}
}

// FetchPage requests one page of transactions. start and end, when non-zero,
// become the upstream date-range filter (inclusive, date-only precision: the
// upstream may return boundary-adjacent rows, which the service re-filters
// client-side).
func (c *BankClient) FetchPage(ctx context.Context, offset, pageSize int, start, end time.Time) ([]models.RawBankTransaction, error) {
	params := url.Values{}
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(pageSize))
	params.Set("sort", "valueDate:desc")
	if !start.IsZero() {
		params.Set("from", start.Format("2006-01-02"))
	}
	if !end.IsZero() {
		params.Set("to", end.Format("2006-01-02"))
	}

	reqURL := fmt.Sprintf("%s/transactions?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction page request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call bank transaction API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("bank transaction API returned non-OK status %d", resp.StatusCode)
	}

	var page bankPageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode bank transaction page: %w", err)
	}
	return page.Transactions, nil
}
