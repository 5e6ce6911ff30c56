package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"budgetdash/internal/api"
	"budgetdash/internal/core"
	"budgetdash/internal/log"
)

// LedgerService is what the ledger endpoint serves.
type LedgerService interface {
	GetSnapshot(ctx context.Context) (core.BudgetSnapshot, error)
	AppendExpense(ctx context.Context, category string, amount core.Money, description string) (core.ExpenseRecord, error)
	Ready(ctx context.Context) error
}

type ledgerHandlers struct {
	store LedgerService
}

// NewLedgerServer serves the query-style ledger endpoint on /exec.
func NewLedgerServer(addr string, store LedgerService, opts ...Option) *Server {
	s := newServer(addr, opts)
	h := &ledgerHandlers{store: store}
	s.handle("/exec", "exec", h.handleExec)
	s.addCheck("ledger", store.Ready)
	return s
}

// handleExec dispatches GET ?action=... and POSTed addExpense bodies. HEAD
// only reads.
func (h *ledgerHandlers) handleExec(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		q := r.URL.Query()
		switch q.Get("action") {
		case api.ActionGetBudget:
			h.getBudget(w, r)
		case api.ActionAddExpense:
			if r.Method == http.MethodHead {
				w.Header().Set("Allow", "GET, POST")
				writeJSON(w, http.StatusMethodNotAllowed, api.ErrorResponse{Error: "addExpense needs GET or POST", Code: api.CodeActionUnrecognized})
				return
			}
			params, err := ParseExpenseParams(q.Get)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			h.addExpense(w, r, params)
		default:
			h.fail(w, r, fmt.Errorf("%w: %q", core.ErrActionUnrecognized, q.Get("action")))
		}
	case http.MethodPost:
		params, err := parsePostedExpense(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if params.Action != api.ActionAddExpense {
			h.fail(w, r, fmt.Errorf("%w: %q", core.ErrActionUnrecognized, params.Action))
			return
		}
		h.addExpense(w, r, params)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		writeJSON(w, http.StatusMethodNotAllowed, api.ErrorResponse{Error: "method not allowed", Code: api.CodeActionUnrecognized})
	}
}

// parsePostedExpense accepts a JSON body or a form-encoded one.
func parsePostedExpense(r *http.Request) (ExpenseParams, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return ExpenseParams{}, fmt.Errorf("%w: malformed body: %v", core.ErrValidation, err)
	}
	if !p.IsJSON() {
		return ParseExpenseParams(p.Get)
	}
	var req api.AddExpenseRequest
	if err := json.Unmarshal(p.GetRaw(), &req); err != nil {
		return ExpenseParams{}, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
	}
	return ExpenseParams{
		Action:      sanitizeInput(req.Action),
		Category:    sanitizeInput(req.Category),
		Amount:      req.Amount,
		Description: sanitizeInput(req.Description),
	}, nil
}

func (h *ledgerHandlers) getBudget(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.GetSnapshot(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *ledgerHandlers) addExpense(w http.ResponseWriter, r *http.Request, p ExpenseParams) {
	rec, err := h.store.AppendExpense(r.Context(), p.Category, p.Amount, p.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.AddExpenseResponse{
		Success: true,
		Message: "Expense recorded",
		Gasto:   rec,
	})
}

// fail writes the wire error body. Client mistakes are logged at warn,
// store failures at error.
func (h *ledgerHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	resp, status := api.NewErrorResponse(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Ledger request failed", log.FieldError, err, "code", resp.Code)
	} else {
		logger.WarnContext(r.Context(), "Ledger request rejected", log.FieldError, err, "code", resp.Code)
	}
	writeJSON(w, status, resp)
}
