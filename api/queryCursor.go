package api

import (
	"context"
	"encoding/json"
	"net/http"
)

func queryCursor(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	req, err := parseQueryRequest(r)
	if err != nil {
		return writeQueryFailure(w, err)
	}

	s := GetServicer(ctx)
	result, err := s.QueryCursor(req)
	if err != nil {
		return writeQueryFailure(w, err)
	}

	return json.NewEncoder(w).Encode(map[string]interface{}{
		"success":         true,
		"data":            result.Data,
		"next_cursor":     nullableCursor(result.NextCursor),
		"prev_cursor":     nullableCursor(result.PrevCursor),
		"has_next":        result.HasNext,
		"has_prev":        result.HasPrev,
		"total_estimated": result.TotalEstimated,
		"query_time_ms":   result.QueryTimeMS,
	})
}

// nullableCursor keeps absent cursors as JSON null on the wire.
func nullableCursor(cursor string) any {
	if cursor == "" {
		return nil
	}
	return cursor
}
