// backend/src/handlers/transaction_handler.go
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/username/bankfolio/backend/src/database"
	"github.com/username/bankfolio/backend/src/logger"
	"github.com/username/bankfolio/backend/src/model"
	"github.com/username/bankfolio/backend/src/models"
	"github.com/username/bankfolio/backend/src/services"
	"github.com/username/bankfolio/backend/src/utils"
)

const dateQueryFormat = "2006-01-02"

type TransactionHandler struct {
	txService services.TransactionService
}

func NewTransactionHandler(txService services.TransactionService) *TransactionHandler {
	return &TransactionHandler{txService: txService}
}

// HandleGetTransactions serves GET /transactions?limit=&start=&end=.
func (h *TransactionHandler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	opts := services.FetchOptions{Limit: parseLimit(r)}

	var err error
	if opts.Start, err = parseDateParam(r, "start"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if opts.End, err = parseDateParam(r, "end"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	txs, err := h.txService.FetchAll(r.Context(), opts)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to fetch transactions", "error", err)
		utils.SendJSONError(w, "Failed to fetch transactions", http.StatusBadGateway)
		return
	}
	utils.SendJSONResponse(w, nonNil(txs), http.StatusOK)
}

// HandleGetTransactionsByPeriod serves GET /transactions/period?start=&end=.
// Both bounds are required and inclusive.
func (h *TransactionHandler) HandleGetTransactionsByPeriod(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r, "start")
	if err != nil || start.IsZero() {
		utils.SendJSONError(w, "query parameter 'start' is required in YYYY-MM-DD format", http.StatusBadRequest)
		return
	}
	end, err := parseDateParam(r, "end")
	if err != nil || end.IsZero() {
		utils.SendJSONError(w, "query parameter 'end' is required in YYYY-MM-DD format", http.StatusBadRequest)
		return
	}

	txs, err := h.txService.FetchByPeriod(r.Context(), start, end)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	utils.SendJSONResponse(w, nonNil(txs), http.StatusOK)
}

func (h *TransactionHandler) HandleGetCredits(w http.ResponseWriter, r *http.Request) {
	txs, err := h.txService.GetCredits(r.Context(), parseLimit(r))
	if err != nil {
		utils.SendJSONError(w, "Failed to fetch credits", http.StatusBadGateway)
		return
	}
	utils.SendJSONResponse(w, nonNil(txs), http.StatusOK)
}

func (h *TransactionHandler) HandleGetDebits(w http.ResponseWriter, r *http.Request) {
	txs, err := h.txService.GetDebits(r.Context(), parseLimit(r))
	if err != nil {
		utils.SendJSONError(w, "Failed to fetch debits", http.StatusBadGateway)
		return
	}
	utils.SendJSONResponse(w, nonNil(txs), http.StatusOK)
}

// HandleSearchTransactions serves GET /transactions/search?q=<term>. The term
// is resolved to supplier match patterns before filtering.
func (h *TransactionHandler) HandleSearchTransactions(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		utils.SendJSONError(w, "query parameter 'q' is required", http.StatusBadRequest)
		return
	}

	txs, err := h.txService.SearchByDescription(r.Context(), term)
	if err != nil {
		utils.SendJSONError(w, "Failed to search transactions", http.StatusBadGateway)
		return
	}
	utils.SendJSONResponse(w, nonNil(txs), http.StatusOK)
}

func (h *TransactionHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.txService.GetStats(r.Context())
	if err != nil {
		utils.SendJSONError(w, "Failed to compute transaction stats", http.StatusBadGateway)
		return
	}
	utils.SendJSONResponse(w, stats, http.StatusOK)
}

// HandleGetArchive serves GET /transactions/archive?limit= from the local
// sqlite archive rather than upstream.
func (h *TransactionHandler) HandleGetArchive(w http.ResponseWriter, r *http.Request) {
	txs, err := model.ListArchivedTransactions(database.DB, parseLimit(r))
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list archived transactions", "error", err)
		utils.SendJSONError(w, "Failed to list archived transactions", http.StatusInternalServerError)
		return
	}
	utils.SendJSONResponse(w, nonNil(txs), http.StatusOK)
}

// HandleFlushCache serves POST /transactions/cache/flush.
func (h *TransactionHandler) HandleFlushCache(w http.ResponseWriter, r *http.Request) {
	h.txService.FlushCache()
	w.WriteHeader(http.StatusNoContent)
}

func parseLimit(r *http.Request) int {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateQueryFormat, value)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func nonNil(txs []models.Transaction) []models.Transaction {
	if txs == nil {
		return []models.Transaction{}
	}
	return txs
}
