package http

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"budgetdash/internal/core"
	"budgetdash/internal/dashboard"
	"budgetdash/internal/log"
	"budgetdash/internal/syncclient"
)

var errTemplatesNotLoaded = errors.New("templates not loaded")

var templateFuncs = template.FuncMap{
	"percent": func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) },
}

// SyncClient is what the dashboard drives.
type SyncClient interface {
	FetchSnapshot(ctx context.Context) core.BudgetSnapshot
	SubmitExpense(ctx context.Context, category string, amount core.Money, description string) (core.ExpenseRecord, error)
	SetEndpoint(ctx context.Context, endpoint string) error
	UseLocal()
	Snapshot() (core.BudgetSnapshot, bool)
	State() syncclient.State
	Source() syncclient.Source
	Mode() syncclient.Mode
	Endpoint() string
}

type dashboardHandlers struct {
	srv    *Server
	client SyncClient
}

// NewDashboardServer serves the budget page and its HTMX partials.
func NewDashboardServer(addr string, client SyncClient, opts ...Option) *Server {
	s := newServer(addr, opts)
	s.loadTemplates()
	h := &dashboardHandlers{srv: s, client: client}
	s.handle("/", "index", h.handleIndex)
	s.handle("/ui/budget", "budget", h.handleBudget)
	s.handle("/ui/preview", "preview", h.handlePreview)
	s.handle("/expenses", "expenses", h.handleCreateExpense)
	s.handle("/refresh", "refresh", h.handleRefresh)
	s.handle("/settings/endpoint", "settings_endpoint", h.handleSetEndpoint)
	s.handle("/settings/local", "settings_local", h.handleUseLocal)
	return s
}

func (h *dashboardHandlers) page(snap core.BudgetSnapshot) dashboard.Page {
	return dashboard.Build(snap, dashboard.Meta{
		Mode:     string(h.client.Mode()),
		State:    string(h.client.State()),
		Source:   string(h.client.Source()),
		Endpoint: h.client.Endpoint(),
		Degraded: h.client.State() == syncclient.StateDegraded,
	})
}

// current returns the last snapshot, fetching one if none was served yet.
func (h *dashboardHandlers) current(ctx context.Context) core.BudgetSnapshot {
	if snap, ok := h.client.Snapshot(); ok {
		return snap
	}
	return h.client.FetchSnapshot(ctx)
}

// render executes name into a buffer so a template failure never leaves a
// half-written page behind.
func (h *dashboardHandlers) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if h.srv.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate,
			"error_type", log.ErrorTypeConfiguration)
		ErrorFragment(http.StatusInternalServerError, "templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := h.srv.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err, "template", name, log.FieldOperation, log.OpRender)
		ErrorFragment(http.StatusInternalServerError, "rendering failed").Write(w)
		return
	}
	NewFragment().HTML(buf.String()).Write(w)
}

func (h *dashboardHandlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	snap := h.client.FetchSnapshot(r.Context())
	h.render(w, r, "index.html", h.page(snap))
}

// handleBudget re-renders the summary, cards and journal from the last
// snapshot.
func (h *dashboardHandlers) handleBudget(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	h.render(w, r, "budget", h.page(h.current(r.Context())))
}

func (h *dashboardHandlers) handlePreview(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	q := r.URL.Query()
	p := dashboard.BuildPreview(h.current(r.Context()), sanitizeInput(q.Get("category")), sanitizeInput(q.Get("amount")))
	h.render(w, r, "preview", p)
}

func (h *dashboardHandlers) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx)

	params, err := ParseExpenseParams(r.PostForm.Get)
	if err != nil {
		ErrorFragment(http.StatusUnprocessableEntity, "Enter an amount greater than zero").Write(w)
		return
	}

	rec, err := h.client.SubmitExpense(ctx, params.Category, params.Amount, params.Description)
	if err != nil {
		fields := log.NewFields().WithExpense(params.Category, params.Amount.Cents, params.Description)
		switch {
		case errors.Is(err, core.ErrValidation):
			logger.WarnContext(ctx, "Expense rejected", append(fields.WithError(err).ToSlice(), log.FieldComponent, log.ComponentDashboard)...)
			ErrorFragment(http.StatusUnprocessableEntity, validationMessage(err)).Write(w)
		default:
			logger.ErrorContext(ctx, "Expense submission failed", append(fields.WithError(err).ToSlice(), log.FieldComponent, log.ComponentDashboard)...)
			ErrorFragment(http.StatusBadGateway, "Could not record the expense: "+err.Error()).Write(w)
		}
		return
	}

	msg := "Expense recorded: " + dashboard.FormatMoney(rec.Amount) + " in " + rec.Category
	NewFragment().
		ExpenseRecorded(rec.Category).
		FormReset().
		BudgetRefresh().
		Notify(NoticeSuccess, msg).
		HTML(`<div class="success">` + template.HTMLEscapeString(msg) + `</div>`).
		Write(w)
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Enter an amount greater than zero"
	case errors.Is(err, core.ErrUnknownCategory):
		return "Choose one of the budget categories"
	case errors.Is(err, core.ErrDescriptionTooLong):
		return "Description is too long"
	default:
		return "Invalid expense"
	}
}

// refreshed fetches a new snapshot and tells the user where it came from.
func (h *dashboardHandlers) refreshed(ctx context.Context, f *Fragment) *Fragment {
	h.client.FetchSnapshot(ctx)
	f.BudgetRefresh()
	switch {
	case h.client.Mode() == syncclient.ModeLocal:
		return f.Notify(NoticeInfo, "Using local data")
	case h.client.Source() == syncclient.SourceRemote:
		return f.Notify(NoticeSuccess, "Budget updated")
	default:
		return f.Notify(NoticeWarning, "Ledger unavailable, showing local data")
	}
}

func (h *dashboardHandlers) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	h.refreshed(r.Context(), NewFragment().Status(http.StatusNoContent)).Write(w)
}

func (h *dashboardHandlers) handleSetEndpoint(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	endpoint := sanitizeInput(r.PostForm.Get("endpoint"))
	if err := h.client.SetEndpoint(r.Context(), endpoint); err != nil {
		if errors.Is(err, core.ErrValidation) {
			ErrorFragment(http.StatusUnprocessableEntity, "Enter the ledger URL (http or https)").Write(w)
			return
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Saving endpoint failed",
			log.FieldError, err, log.FieldEndpoint, endpoint, log.FieldComponent, log.ComponentDashboard)
		ErrorFragment(http.StatusInternalServerError, "Could not save the ledger URL").Write(w)
		return
	}
	h.refreshed(r.Context(), NewFragment().Status(http.StatusNoContent)).Write(w)
}

func (h *dashboardHandlers) handleUseLocal(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	h.client.UseLocal()
	h.refreshed(r.Context(), NewFragment().Status(http.StatusNoContent)).Write(w)
}
