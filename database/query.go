package database

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SierraSoftworks/connor"

	"github.com/fulldump/pagestream/table"
)

// QueryRequest describes one cursor-paginated (or streamed) read. All fields
// but Table are optional.
type QueryRequest struct {
	Table         string
	TableAlias    string
	Limit         int
	Filters       map[string]any
	Joins         []string
	SelectColumns []string
	SortColumn    string
	SortDirection string
	Cursor        string
}

type QueryResult struct {
	Data           []map[string]any
	NextCursor     string
	PrevCursor     string
	HasNext        bool
	HasPrev        bool
	TotalEstimated int
	QueryTimeMS    float64
}

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// ExecuteCursorQuery materializes the filtered/joined/sorted view and
// returns the page the cursor points at. The view is deterministic for a
// fixed dataset, so cursors remain valid across requests.
func (db *Database) ExecuteCursorQuery(req *QueryRequest) (*QueryResult, error) {

	t0 := time.Now()

	view, err := db.buildView(req)
	if err != nil {
		return nil, err
	}

	limit := normalizeLimit(req.Limit)

	offset := 0
	if req.Cursor != "" {
		token, err := decodeCursor(req.Cursor, req.Table)
		if err != nil {
			return nil, err
		}
		offset = token.Offset
	}

	result := &QueryResult{
		Data:           []map[string]any{},
		TotalEstimated: len(view),
	}

	end := offset + limit
	if end > len(view) {
		end = len(view)
	}
	if offset < len(view) {
		result.Data = view[offset:end]
	}

	if end < len(view) {
		result.HasNext = true
		result.NextCursor = encodeCursor(req.Table, end)
	}
	if offset > 0 {
		result.HasPrev = true
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		result.PrevCursor = encodeCursor(req.Table, prev)
	}

	result.QueryTimeMS = float64(time.Since(t0).Microseconds()) / 1000.0

	return result, nil
}

// ExecuteStream walks the whole view in batches. The emit callback receives
// each batch together with a flag telling whether more batches follow; a
// false return stops the traversal.
func (db *Database) ExecuteStream(req *QueryRequest, batchSize int, emit func(batch []map[string]any, hasMore bool) bool) (total int, err error) {

	if batchSize <= 0 {
		batchSize = 100
	}

	view, err := db.buildView(req)
	if err != nil {
		return 0, err
	}

	for start := 0; start < len(view); start += batchSize {
		end := start + batchSize
		if end > len(view) {
			end = len(view)
		}
		if !emit(view[start:end], end < len(view)) {
			return end, nil
		}
	}

	return len(view), nil
}

// IntegrityVerdict is returned as-is to clients, which treat it as opaque.
type IntegrityVerdict struct {
	Success       bool   `json:"success"`
	Verified      bool   `json:"verified"`
	ExpectedCount int    `json:"expected_count"`
	ActualCount   int    `json:"actual_count"`
	Checksum      string `json:"checksum"`
}

// CheckIntegrity recounts the rows reachable from cursor under the request
// filters and compares against the expected count.
func (db *Database) CheckIntegrity(req *QueryRequest, expectedCount int) (*IntegrityVerdict, error) {

	view, err := db.buildView(req)
	if err != nil {
		return nil, err
	}

	offset := 0
	if req.Cursor != "" {
		token, err := decodeCursor(req.Cursor, req.Table)
		if err != nil {
			return nil, err
		}
		offset = token.Offset
	}

	remaining := view[min(offset, len(view)):]

	h := sha256.New()
	for _, row := range remaining {
		payload, _ := json.Marshal(row["id"])
		h.Write(payload)
	}

	return &IntegrityVerdict{
		Success:       true,
		Verified:      len(remaining) == expectedCount,
		ExpectedCount: expectedCount,
		ActualCount:   len(remaining),
		Checksum:      hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// buildView resolves joins, filters and sorting into an ordered slice of
// projected rows. Base order is insertion order.
func (db *Database) buildView(req *QueryRequest) ([]map[string]any, error) {

	t := db.GetTable(req.Table)
	if t == nil {
		return nil, fmt.Errorf("table '%s' not found", req.Table)
	}

	joins, err := db.parseJoins(req.Joins)
	if err != nil {
		return nil, err
	}

	hasFilter := len(req.Filters) > 0

	view := []map[string]any{}
	var traverseErr error
	t.Traverse(func(row *table.Row) bool {

		item := cloneRow(row.Payload)
		for _, j := range joins {
			j.apply(item)
		}

		if hasFilter {
			match, err := connor.Match(req.Filters, item)
			if err != nil {
				traverseErr = fmt.Errorf("match: %w", err)
				return false
			}
			if !match {
				return true
			}
		}

		view = append(view, item)
		return true
	})
	if traverseErr != nil {
		return nil, traverseErr
	}

	if req.SortColumn != "" {
		descending := strings.EqualFold(req.SortDirection, "DESC")
		sort.SliceStable(view, func(i, j int) bool {
			less := compareValues(view[i][req.SortColumn], view[j][req.SortColumn]) < 0
			if descending {
				return !less
			}
			return less
		})
	}

	if len(req.SelectColumns) > 0 || req.TableAlias != "" {
		for i, item := range view {
			view[i] = project(item, req.SelectColumns, req.TableAlias)
		}
	}

	return view, nil
}

type join struct {
	table      *table.Table
	tableName  string
	leftField  string
	rightField string
}

// parseJoins accepts clauses shaped like "other_table ON left_field=right_field"
// (an optional leading "JOIN " is tolerated).
func (db *Database) parseJoins(clauses []string) ([]*join, error) {

	joins := []*join{}
	for _, clause := range clauses {
		s := strings.TrimSpace(clause)
		s = strings.TrimPrefix(s, "JOIN ")
		name, condition, found := strings.Cut(s, " ON ")
		if !found {
			return nil, fmt.Errorf("invalid join clause '%s'", clause)
		}
		left, right, found := strings.Cut(condition, "=")
		if !found {
			return nil, fmt.Errorf("invalid join condition '%s'", condition)
		}

		name = strings.TrimSpace(name)
		t := db.GetTable(name)
		if t == nil {
			return nil, fmt.Errorf("table '%s' not found", name)
		}

		joins = append(joins, &join{
			table:      t,
			tableName:  name,
			leftField:  strings.TrimSpace(left),
			rightField: strings.TrimSpace(right),
		})
	}

	return joins, nil
}

// apply merges the first matching row of the joined table into item, its
// columns prefixed with the joined table name. Rows without a match keep
// only base columns (left join semantics).
func (j *join) apply(item map[string]any) {

	value, exist := item[j.leftField]
	if !exist {
		return
	}

	j.table.Traverse(func(row *table.Row) bool {
		if compareValues(row.Payload[j.rightField], value) != 0 {
			return true
		}
		for k, v := range row.Payload {
			item[j.tableName+"."+k] = v
		}
		return false
	})
}

func project(item map[string]any, columns []string, alias string) map[string]any {

	result := map[string]any{}

	if len(columns) == 0 {
		for k, v := range item {
			result[prefixColumn(alias, k)] = v
		}
		return result
	}

	for _, column := range columns {
		if value, exist := item[column]; exist {
			result[prefixColumn(alias, column)] = value
		}
	}

	return result
}

func prefixColumn(alias, column string) string {
	if alias == "" {
		return column
	}
	return alias + "." + column
}

func cloneRow(payload map[string]any) map[string]any {
	clone := make(map[string]any, len(payload))
	for k, v := range payload {
		clone[k] = v
	}
	return clone
}

// compareValues orders JSON scalar values: nil first, then booleans, numbers,
// strings. Mixed or composite types fall back to their string rendering.
func compareValues(a, b any) int {

	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	switch valA := a.(type) {
	case bool:
		if valB, ok := b.(bool); ok {
			if valA == valB {
				return 0
			}
			if valB {
				return -1
			}
			return 1
		}
	case float64:
		if valB, ok := b.(float64); ok {
			switch {
			case valA < valB:
				return -1
			case valA > valB:
				return 1
			}
			return 0
		}
	case string:
		if valB, ok := b.(string); ok {
			return strings.Compare(valA, valB)
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
