// Package paginator is a client for cursor-paginated query APIs. It keeps
// the cursor bookkeeping for one table view, prefetches the next page in the
// background, and can stream the whole view over a server-sent-event
// connection.
package paginator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
)

// Row is one record as returned by the server, opaque to the paginator.
type Row = map[string]any

type Config struct {
	// Table is the only required field.
	Table         string
	TableAlias    string
	Limit         int // default 50
	Filters       map[string]any
	Joins         []string
	SelectColumns []string
	SortColumn    string
	SortDirection string // default "ASC"

	// DisablePrefetch turns off the speculative fetch of the next page.
	DisablePrefetch bool

	HttpClient *http.Client // default http.DefaultClient
	Logger     *log.Logger  // default log.Default()
}

// Hooks are optional observation callbacks. Nil hooks become no-ops, call
// sites never need a nil check.
type Hooks struct {
	OnPageLoad func(page Page)
	OnProgress func(progress Progress)
	OnError    func(err error)
}

// Page is a settled page load snapshot.
type Page struct {
	Rows           []Row
	NextCursor     string
	PrevCursor     string
	HasNext        bool
	HasPrev        bool
	TotalEstimated int
	QueryTimeMS    float64
}

// Progress reports streaming milestones to the OnProgress hook.
type Progress struct {
	Type         string // "start", "data" or "complete"
	Table        string
	Limit        int
	TotalSoFar   int
	HasMore      bool
	TotalRecords int
	ElapsedMS    float64
}

type Paginator struct {
	base   string
	config Config
	hooks  Hooks
	client *http.Client
	logger *log.Logger

	mutex         sync.Mutex
	loading       bool
	streaming     bool
	currentCursor string
	lastPage      *Page
	prefetching   map[string]bool
	session       *streamSession
}

// New builds a paginator against the query API served at base (scheme and
// host, no trailing path).
func New(base string, config Config, hooks Hooks) (*Paginator, error) {

	if config.Table == "" {
		return nil, fmt.Errorf("config.Table is required")
	}
	if config.Limit <= 0 {
		config.Limit = 50
	}
	if config.SortDirection == "" {
		config.SortDirection = "ASC"
	}
	if config.Filters == nil {
		config.Filters = map[string]any{}
	}
	if hooks.OnPageLoad == nil {
		hooks.OnPageLoad = func(Page) {}
	}
	if hooks.OnProgress == nil {
		hooks.OnProgress = func(Progress) {}
	}
	if hooks.OnError == nil {
		hooks.OnError = func(error) {}
	}

	client := config.HttpClient
	if client == nil {
		client = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Paginator{
		base:        base,
		config:      config,
		hooks:       hooks,
		client:      client,
		logger:      logger,
		prefetching: map[string]bool{},
	}, nil
}

// LoadPage fetches the page the cursor points at; an empty cursor means the
// first page. While a previous load is still in flight it does not issue a
// new request and returns the last settled page instead (possibly nil).
func (p *Paginator) LoadPage(ctx context.Context, cursor string) (*Page, error) {
	return p.loadPage(ctx, cursor, true)
}

// LoadNextPage follows next_cursor. Returns nil, nil when there is no next
// page.
func (p *Paginator) LoadNextPage(ctx context.Context) (*Page, error) {

	p.mutex.Lock()
	last := p.lastPage
	p.mutex.Unlock()

	if last == nil || !last.HasNext || last.NextCursor == "" {
		return nil, nil
	}

	return p.LoadPage(ctx, last.NextCursor)
}

// LoadPrevPage follows prev_cursor. Returns nil, nil when there is no
// previous page.
func (p *Paginator) LoadPrevPage(ctx context.Context) (*Page, error) {

	p.mutex.Lock()
	last := p.lastPage
	p.mutex.Unlock()

	if last == nil || !last.HasPrev || last.PrevCursor == "" {
		return nil, nil
	}

	return p.LoadPage(ctx, last.PrevCursor)
}

// loadPage is the single load path. Foreground loads notify hooks and
// trigger prefetch; prefetch loads pass notify=false so their failures stay
// local.
func (p *Paginator) loadPage(ctx context.Context, cursor string, notify bool) (*Page, error) {

	page, prefetchCursor, err := p.doLoadPage(ctx, cursor, notify)

	// Fire after the load has settled so the prefetch does not trip over
	// the loading guard of its own trigger.
	if prefetchCursor != "" {
		p.prefetchNextPage(prefetchCursor)
	}

	return page, err
}

func (p *Paginator) doLoadPage(ctx context.Context, cursor string, notify bool) (page *Page, prefetchCursor string, err error) {

	p.mutex.Lock()
	if p.loading {
		last := p.lastPage
		p.mutex.Unlock()
		return last, "", nil
	}
	p.loading = true
	p.currentCursor = cursor
	query := p.buildQuery(cursor)
	p.mutex.Unlock()

	defer func() {
		p.mutex.Lock()
		p.loading = false
		p.mutex.Unlock()
	}()

	page, err = p.fetchPage(ctx, query)
	if err != nil {
		if notify {
			p.hooks.OnError(err)
		}
		return nil, "", err
	}

	p.mutex.Lock()
	p.lastPage = page
	if !p.config.DisablePrefetch && page.HasNext && page.NextCursor != "" {
		prefetchCursor = page.NextCursor
	}
	p.mutex.Unlock()

	p.hooks.OnPageLoad(*page)

	return page, prefetchCursor, nil
}

type cursorResponse struct {
	Success        bool    `json:"success"`
	Error          string  `json:"error"`
	Data           []Row   `json:"data"`
	NextCursor     string  `json:"next_cursor"`
	PrevCursor     string  `json:"prev_cursor"`
	HasNext        bool    `json:"has_next"`
	HasPrev        bool    `json:"has_prev"`
	TotalEstimated int     `json:"total_estimated"`
	QueryTimeMS    float64 `json:"query_time_ms"`
}

func (p *Paginator) fetchPage(ctx context.Context, query url.Values) (*Page, error) {

	req, err := http.NewRequestWithContext(ctx, "GET", p.base+"/api/query/cursor?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HttpError{StatusCode: resp.StatusCode}
	}

	payload := &cursorResponse{}
	err = json.NewDecoder(resp.Body).Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !payload.Success {
		return nil, &QueryError{Message: payload.Error}
	}

	rows := payload.Data
	if rows == nil {
		rows = []Row{}
	}

	return &Page{
		Rows:           rows,
		NextCursor:     payload.NextCursor,
		PrevCursor:     payload.PrevCursor,
		HasNext:        payload.HasNext,
		HasPrev:        payload.HasPrev,
		TotalEstimated: payload.TotalEstimated,
		QueryTimeMS:    payload.QueryTimeMS,
	}, nil
}

// prefetchNextPage speculatively loads cursor in the background. Per-cursor
// idempotent: a cursor already being prefetched is skipped. Failures are
// logged, never surfaced.
func (p *Paginator) prefetchNextPage(cursor string) {

	p.mutex.Lock()
	if cursor == "" || p.prefetching[cursor] {
		p.mutex.Unlock()
		return
	}
	p.prefetching[cursor] = true
	p.mutex.Unlock()

	go func() {
		defer func() {
			p.mutex.Lock()
			delete(p.prefetching, cursor)
			p.mutex.Unlock()
		}()

		_, err := p.loadPage(context.Background(), cursor, false)
		if err != nil {
			p.logger.Printf("WARNING: prefetch %s: %s", cursor, err.Error())
		}
	}()
}

// UpdateFilters merges newFilters into the current filter set (new keys win)
// and reloads the first page of the merged view.
func (p *Paginator) UpdateFilters(ctx context.Context, newFilters map[string]any) (*Page, error) {

	p.mutex.Lock()
	for k, v := range newFilters {
		p.config.Filters[k] = v
	}
	p.resetLocked()
	p.mutex.Unlock()

	return p.LoadPage(ctx, "")
}

// Reset clears cursor bookkeeping and cached data, then reloads the first
// page under unchanged filters.
func (p *Paginator) Reset(ctx context.Context) (*Page, error) {

	p.mutex.Lock()
	p.resetLocked()
	p.mutex.Unlock()

	return p.LoadPage(ctx, "")
}

func (p *Paginator) resetLocked() {
	p.currentCursor = ""
	p.lastPage = nil
}

func (p *Paginator) buildQuery(cursor string) url.Values {

	query := url.Values{}
	query.Set("table", p.config.Table)
	query.Set("limit", strconv.Itoa(p.config.Limit))
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if p.config.SortColumn != "" {
		query.Set("sort_column", p.config.SortColumn)
		query.Set("sort_direction", p.config.SortDirection)
	}
	if len(p.config.Filters) > 0 {
		filters, _ := json.Marshal(p.config.Filters)
		query.Set("filters", string(filters))
	}
	if len(p.config.Joins) > 0 {
		joins, _ := json.Marshal(p.config.Joins)
		query.Set("joins", string(joins))
	}
	if len(p.config.SelectColumns) > 0 {
		columns, _ := json.Marshal(p.config.SelectColumns)
		query.Set("select_columns", string(columns))
	}
	if p.config.TableAlias != "" {
		query.Set("table_alias", p.config.TableAlias)
	}

	return query
}

// CurrentData returns the rows of the last settled page.
func (p *Paginator) CurrentData() []Row {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.lastPage == nil {
		return nil
	}
	return p.lastPage.Rows
}

// CurrentCursor returns the cursor of the most recently initiated load, even
// if that load has not settled yet.
func (p *Paginator) CurrentCursor() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.currentCursor
}

func (p *Paginator) NextCursor() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.lastPage == nil {
		return ""
	}
	return p.lastPage.NextCursor
}

func (p *Paginator) PrevCursor() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.lastPage == nil {
		return ""
	}
	return p.lastPage.PrevCursor
}

func (p *Paginator) HasNext() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.lastPage != nil && p.lastPage.HasNext
}

func (p *Paginator) HasPrev() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.lastPage != nil && p.lastPage.HasPrev
}

func (p *Paginator) TotalEstimated() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.lastPage == nil {
		return 0
	}
	return p.lastPage.TotalEstimated
}

func (p *Paginator) IsLoading() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.loading
}

func (p *Paginator) IsStreaming() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.streaming
}
