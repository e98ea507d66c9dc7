// backend/src/handlers/supplier_handler.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/username/bankfolio/backend/src/logger"
	"github.com/username/bankfolio/backend/src/security/validation"
	"github.com/username/bankfolio/backend/src/suppliers"
	"github.com/username/bankfolio/backend/src/utils"
)

type SupplierHandler struct {
	registry *suppliers.Registry
	resolver *suppliers.Resolver
	learner  *suppliers.Learner
}

func NewSupplierHandler(registry *suppliers.Registry, resolver *suppliers.Resolver, learner *suppliers.Learner) *SupplierHandler {
	return &SupplierHandler{
		registry: registry,
		resolver: resolver,
		learner:  learner,
	}
}

// HandleListSuppliers serves GET /suppliers: the full registry snapshot.
func (h *SupplierHandler) HandleListSuppliers(w http.ResponseWriter, r *http.Request) {
	utils.SendJSONResponse(w, h.registry.All(), http.StatusOK)
}

// AddSupplierRequest is the body of POST /suppliers.
type AddSupplierRequest struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// HandleAddSupplier registers a supplier by operator request, sharing the
// learner's key derivation.
func (h *SupplierHandler) HandleAddSupplier(w http.ResponseWriter, r *http.Request) {
	var req AddSupplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Name = validation.SanitizeText(req.Name)
	if err := validation.ValidateSupplierName(req.Name, "name"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	for i, alias := range req.Aliases {
		req.Aliases[i] = validation.SanitizeText(alias)
		if err := validation.ValidateSupplierName(req.Aliases[i], "alias"); err != nil {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	added, status := h.learner.AddManual(req.Name, req.Aliases)
	if !added {
		utils.SendJSONError(w, status, http.StatusConflict)
		return
	}

	logger.FromContext(r.Context()).Info("Supplier added via API", "name", req.Name)
	utils.SendJSONResponse(w, map[string]string{"status": status}, http.StatusCreated)
}

// HandleRemoveSupplier serves DELETE /suppliers/{key}.
func (h *SupplierHandler) HandleRemoveSupplier(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		utils.SendJSONError(w, "supplier key is required", http.StatusBadRequest)
		return
	}
	if !h.learner.Remove(key) {
		utils.SendJSONError(w, "supplier not found", http.StatusNotFound)
		return
	}
	logger.FromContext(r.Context()).Info("Supplier removed via API", "key", key)
	w.WriteHeader(http.StatusNoContent)
}

// HandleResolveSupplier serves GET /suppliers/resolve?term=: the canonical
// display name and match patterns the resolver would use for a term.
func (h *SupplierHandler) HandleResolveSupplier(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")
	if err := validation.ValidateStringNotEmpty(term, "term"); err != nil {
		utils.SendJSONError(w, "query parameter 'term' is required", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringMaxLength(term, validation.MaxSearchTermLength, "term"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	utils.SendJSONResponse(w, map[string]interface{}{
		"display_name": h.resolver.DisplayName(term),
		"patterns":     h.resolver.PatternsFor(term),
	}, http.StatusOK)
}
