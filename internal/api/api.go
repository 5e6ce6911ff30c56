// Package api defines the ledger endpoint's wire contract, shared by the
// HTTP handlers that serve it and the sync client that calls it.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"budgetdash/internal/core"
)

// Actions accepted by the ledger endpoint.
const (
	ActionGetBudget  = "getBudget"
	ActionAddExpense = "addExpense"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeValidation         = "validation_error"
	CodeStoreUnavailable   = "store_unavailable"
	CodeStoreFormat        = "store_format_error"
	CodeActionUnrecognized = "action_unrecognized"
	CodeInternal           = "internal_error"
)

// ErrorResponse is the body of every failed call.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// AddExpenseRequest is the JSON body accepted by POST.
type AddExpenseRequest struct {
	Action      string     `json:"action"`
	Category    string     `json:"category"`
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
}

// AddExpenseResponse is the body of a successful addExpense call.
type AddExpenseResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Gasto   core.ExpenseRecord `json:"gasto"`
}

var codes = []struct {
	err    error
	code   string
	status int
}{
	{core.ErrValidation, CodeValidation, http.StatusBadRequest},
	{core.ErrStoreUnavailable, CodeStoreUnavailable, http.StatusServiceUnavailable},
	{core.ErrStoreFormat, CodeStoreFormat, http.StatusBadGateway},
	{core.ErrActionUnrecognized, CodeActionUnrecognized, http.StatusBadRequest},
}

// Classify maps an error to its wire code and HTTP status.
func Classify(err error) (code string, status int) {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code, c.status
		}
	}
	return CodeInternal, http.StatusInternalServerError
}

// NewErrorResponse builds the wire body for err.
func NewErrorResponse(err error) (ErrorResponse, int) {
	code, status := Classify(err)
	return ErrorResponse{Error: err.Error(), Code: code}, status
}

// Err turns a decoded error body back into an error wrapping the matching
// sentinel. Unknown codes are reported as ErrStoreUnavailable.
func (r ErrorResponse) Err() error {
	for _, c := range codes {
		if c.code == r.Code {
			return fmt.Errorf("%w: remote: %s", c.err, r.Error)
		}
	}
	return fmt.Errorf("%w: remote: %s", core.ErrStoreUnavailable, r.Error)
}
