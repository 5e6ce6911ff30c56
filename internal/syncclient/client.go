// Package syncclient fetches budget snapshots from the ledger endpoint and
// submits expenses to it. When the endpoint cannot serve a read, the client
// degrades to local data: the last good snapshot (or the bundled defaults)
// with its spent figures recomputed from the local fallback ledger.
package syncclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"budgetdash/internal/budget"
	"budgetdash/internal/core"
	"budgetdash/internal/localstore"
	"budgetdash/internal/log"
	"budgetdash/internal/metrics"
)

// Mode selects where reads and writes go.
type Mode string

const (
	ModeLive  Mode = "live"
	ModeLocal Mode = "local"
)

// State is the read state machine: Idle -> Fetching -> Succeeded | Failed,
// and Failed -> Degraded once local data has been served.
type State string

const (
	StateIdle      State = "idle"
	StateFetching  State = "fetching"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateDegraded  State = "degraded"
)

// Source names where the last snapshot came from.
type Source string

const (
	SourceNone    Source = ""
	SourceRemote  Source = "remote"
	SourceCache   Source = "cache"
	SourceDefault Source = "default"
)

const defaultTimeout = 10 * time.Second

// Config is passed at construction.
type Config struct {
	Endpoint string
	Mode     Mode
	// Timeout bounds each remote call; zero means 10s.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	local      localstore.Store
	remote     *remote
	now        func() time.Time
	logger     *log.Logger
	structured *log.StructuredLogger
	metrics    *metrics.Metrics

	mu       sync.Mutex
	endpoint string
	mode     Mode
	state    State
	source   Source
	last     core.BudgetSnapshot
	hasLast  bool
	lastErr  error

	// ledgerMu serializes read-modify-write of the local fallback ledger.
	ledgerMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentSync) }
}

func WithMetrics(m *metrics.Metrics) Option { return func(c *Client) { c.metrics = m } }

// New builds a client. A persisted endpoint overrides cfg.Endpoint; with
// no endpoint at all the client starts in local mode.
func New(ctx context.Context, cfg Config, local localstore.Store, opts ...Option) (*Client, error) {
	if local == nil {
		local = localstore.NewMemory()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	c := &Client{
		local:    local,
		remote:   &remote{http: httpClient},
		now:      time.Now,
		endpoint: strings.TrimSpace(cfg.Endpoint),
		mode:     cfg.Mode,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentSync)
	}
	c.structured = log.NewStructuredLogger(c.logger)

	saved, ok, err := local.Get(ctx, localstore.KeyEndpoint)
	if err != nil {
		return nil, fmt.Errorf("load saved endpoint: %w", err)
	}
	if ok && strings.TrimSpace(saved) != "" {
		c.endpoint = strings.TrimSpace(saved)
	}
	if c.mode == "" {
		c.mode = ModeLive
	}
	if c.endpoint == "" {
		c.mode = ModeLocal
	}
	return c, nil
}

// FetchSnapshot returns the current snapshot. It never fails: if the live
// read does not succeed the client serves local data instead.
func (c *Client) FetchSnapshot(ctx context.Context) core.BudgetSnapshot {
	c.mu.Lock()
	mode, endpoint := c.mode, c.endpoint
	c.state = StateFetching
	c.mu.Unlock()

	if mode == ModeLive {
		snap, err := c.remote.getBudget(ctx, endpoint)
		if err == nil {
			c.writeCache(ctx, snap)
			c.metrics.SyncRead(string(SourceRemote))
			c.finish(StateSucceeded, SourceRemote, snap, nil)
			return snap
		}
		c.mu.Lock()
		c.state = StateFailed
		c.mu.Unlock()
		snap, src := c.fallback(ctx)
		c.structured.LogFallback(ctx, err, string(mode), len(snap.ExpenseRecords))
		c.finish(StateDegraded, src, snap, err)
		return snap
	}

	snap, src := c.fallback(ctx)
	c.finish(StateDegraded, src, snap, nil)
	return snap
}

func (c *Client) finish(st State, src Source, snap core.BudgetSnapshot, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = st
	c.source = src
	c.last = snap
	c.hasLast = true
	c.lastErr = err
}

// fallback rebuilds a snapshot from local data.
func (c *Client) fallback(ctx context.Context) (core.BudgetSnapshot, Source) {
	base, src := c.readCache(ctx)
	records := c.readLocalLedger(ctx)
	c.metrics.SyncRead(string(src))
	return budget.Reconcile(base, records, c.now().UTC()), src
}

func (c *Client) readCache(ctx context.Context) (core.BudgetSnapshot, Source) {
	raw, ok, err := c.local.Get(ctx, localstore.KeySnapshot)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to read cached snapshot", log.FieldError, err)
	}
	if ok && raw != "" {
		var snap core.BudgetSnapshot
		if err := json.Unmarshal([]byte(raw), &snap); err == nil && snap.CategoryBudgets != nil {
			return snap, SourceCache
		}
		c.logger.WarnContext(ctx, "Ignoring unreadable cached snapshot")
	}
	return core.ConfigSnapshot(core.DefaultConfig()), SourceDefault
}

func (c *Client) writeCache(ctx context.Context, snap core.BudgetSnapshot) {
	raw, err := json.Marshal(snap)
	if err == nil {
		err = c.local.Put(ctx, localstore.KeySnapshot, string(raw))
	}
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to cache snapshot", log.FieldError, err)
	}
}

func (c *Client) readLocalLedger(ctx context.Context) []core.ExpenseRecord {
	raw, ok, err := c.local.Get(ctx, localstore.KeyExpenses)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to read local ledger", log.FieldError, err)
		return []core.ExpenseRecord{}
	}
	if !ok || raw == "" {
		return []core.ExpenseRecord{}
	}
	var records []core.ExpenseRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		c.logger.WarnContext(ctx, "Ignoring unreadable local ledger", log.FieldError, err)
		return []core.ExpenseRecord{}
	}
	return records
}

// SubmitExpense validates the candidate and records it: remotely in live
// mode, in the local fallback ledger in local mode. In live mode the ledger
// owns the category list, so only amount and description are checked here
// and an unknown category comes back as the ledger's validation error. Live
// failures are returned as is; there is no write fallback. On success the
// snapshot is fetched again so the record shows up.
func (c *Client) SubmitExpense(ctx context.Context, category string, amount core.Money, description string) (core.ExpenseRecord, error) {
	description = strings.TrimSpace(description)

	c.mu.Lock()
	mode, endpoint := c.mode, c.endpoint
	c.mu.Unlock()

	if mode == ModeLive {
		if err := core.ValidateCandidate(amount, description); err != nil {
			return core.ExpenseRecord{}, err
		}
	} else {
		snap := c.currentSnapshot(ctx)
		if err := core.ValidateExpense(category, amount, description, snap.CategoryNames()); err != nil {
			return core.ExpenseRecord{}, err
		}
	}

	var (
		rec core.ExpenseRecord
		err error
	)
	if mode == ModeLive {
		rec, err = c.remote.addExpense(ctx, endpoint, category, amount, description)
	} else {
		rec, err = c.appendLocal(ctx, category, amount, description)
	}
	c.metrics.SyncSubmit(string(mode), err)
	if err != nil {
		c.logger.ErrorContext(ctx, "Expense submission failed",
			log.FieldMode, string(mode), log.FieldCategory, category, log.FieldError, err)
		return core.ExpenseRecord{}, err
	}

	c.FetchSnapshot(ctx)
	return rec, nil
}

func (c *Client) currentSnapshot(ctx context.Context) core.BudgetSnapshot {
	c.mu.Lock()
	snap, ok := c.last, c.hasLast
	c.mu.Unlock()
	if ok {
		return snap
	}
	return c.FetchSnapshot(ctx)
}

func (c *Client) appendLocal(ctx context.Context, category string, amount core.Money, description string) (core.ExpenseRecord, error) {
	c.ledgerMu.Lock()
	defer c.ledgerMu.Unlock()

	rec := core.ExpenseRecord{
		Timestamp:   c.now().UTC(),
		Category:    category,
		Amount:      amount,
		Description: description,
	}
	records := append(c.readLocalLedger(ctx), rec)
	raw, err := json.Marshal(records)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("encode local ledger: %w", err)
	}
	if err := c.local.Put(ctx, localstore.KeyExpenses, string(raw)); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("%w: save local ledger: %w", core.ErrStoreUnavailable, err)
	}
	return rec, nil
}

// SetEndpoint persists a new endpoint and switches to live mode.
func (c *Client) SetEndpoint(ctx context.Context, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: endpoint must be an http(s) URL", core.ErrValidation)
	}
	if err := c.local.Put(ctx, localstore.KeyEndpoint, endpoint); err != nil {
		return fmt.Errorf("save endpoint: %w", err)
	}
	c.mu.Lock()
	c.endpoint = endpoint
	c.mode = ModeLive
	c.mu.Unlock()
	c.logger.InfoContext(ctx, "Endpoint configured", log.FieldEndpoint, endpoint)
	return nil
}

// UseLocal switches reads and writes to local data.
func (c *Client) UseLocal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = ModeLocal
}

// Snapshot returns the last snapshot served, if any.
func (c *Client) Snapshot() (core.BudgetSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.hasLast
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Source reports where the last snapshot came from.
func (c *Client) Source() Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

// LastError is the live read error behind the current degraded state.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Client) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Client) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}
