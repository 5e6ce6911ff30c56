package syncclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"budgetdash/internal/api"
	"budgetdash/internal/core"
)

const maxResponseBytes = 4 << 20

// remote calls the ledger endpoint with query-style actions.
type remote struct {
	http *http.Client
}

func (r *remote) getBudget(ctx context.Context, endpoint string) (core.BudgetSnapshot, error) {
	var snap core.BudgetSnapshot
	if err := r.call(ctx, endpoint, url.Values{"action": {api.ActionGetBudget}}, &snap); err != nil {
		return core.BudgetSnapshot{}, err
	}
	if snap.CategoryBudgets == nil {
		return core.BudgetSnapshot{}, fmt.Errorf("%w: snapshot has no categoryBudgets", core.ErrStoreFormat)
	}
	if snap.ExpenseRecords == nil {
		snap.ExpenseRecords = []core.ExpenseRecord{}
	}
	return snap, nil
}

func (r *remote) addExpense(ctx context.Context, endpoint, category string, amount core.Money, description string) (core.ExpenseRecord, error) {
	params := url.Values{
		"action":      {api.ActionAddExpense},
		"category":    {category},
		"amount":      {amount.String()},
		"description": {description},
	}
	var resp api.AddExpenseResponse
	if err := r.call(ctx, endpoint, params, &resp); err != nil {
		return core.ExpenseRecord{}, err
	}
	if !resp.Success {
		return core.ExpenseRecord{}, fmt.Errorf("%w: addExpense reported no success", core.ErrStoreFormat)
	}
	return resp.Gasto, nil
}

func (r *remote) call(ctx context.Context, endpoint string, params url.Values, out any) error {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: invalid endpoint %q", core.ErrStoreUnavailable, endpoint)
	}
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", core.ErrStoreUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", core.ErrStoreUnavailable, err)
	}

	// Error bodies are recognised by their "error" key regardless of status,
	// since script hosts often answer 200 with an error payload.
	var eresp api.ErrorResponse
	if json.Unmarshal(body, &eresp) == nil && eresp.Error != "" {
		return eresp.Err()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status %d", core.ErrStoreUnavailable, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", core.ErrStoreFormat, err)
	}
	return nil
}
