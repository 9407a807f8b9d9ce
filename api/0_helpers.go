package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fulldump/box"

	"github.com/fulldump/pagestream/database"
	"github.com/fulldump/pagestream/service"
)

func InterceptorUnavailable(db *database.Database) box.I {
	return func(next box.H) box.H {
		return func(ctx context.Context) {

			status := db.GetStatus()
			if status == database.StatusOpening {
				box.SetError(ctx, fmt.Errorf("temporary unavailable: opening"))
				return
			}
			if status == database.StatusClosing {
				box.SetError(ctx, fmt.Errorf("temporary unavailable: closing"))
				return
			}
			next(ctx)
		}
	}
}

func PrettyErrorInterceptor(next box.H) box.H {
	return func(ctx context.Context) {

		next(ctx)

		err := box.GetError(ctx)
		if err == nil {
			return
		}
		w := box.GetResponse(ctx)

		if err == box.ErrResourceNotFound {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{
					"message":     err.Error(),
					"description": fmt.Sprintf("resource '%s' not found", box.GetRequest(ctx).URL.String()),
				},
			})
			return
		}

		if err == box.ErrMethodNotAllowed {
			w.WriteHeader(http.StatusMethodNotAllowed)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{
					"message":     err.Error(),
					"description": fmt.Sprintf("method '%s' not allowed", box.GetRequest(ctx).Method),
				},
			})
			return
		}

		if err == service.ErrorTableNotFound {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{
					"message":     err.Error(),
					"description": "Table does not exist",
				},
			})
			return
		}

		if _, ok := err.(*json.SyntaxError); ok {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{
					"message":     err.Error(),
					"description": "Malformed JSON",
				},
			})
			return
		}

		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"message":     err.Error(),
				"description": "Unexpected error",
			},
		})

	}
}

// parseQueryRequest maps the query-string protocol of /api/query/* onto a
// database.QueryRequest. Composite parameters travel JSON-encoded.
func parseQueryRequest(r *http.Request) (*database.QueryRequest, error) {

	params := r.URL.Query()

	req := &database.QueryRequest{
		Table:         params.Get("table"),
		TableAlias:    params.Get("table_alias"),
		SortColumn:    params.Get("sort_column"),
		SortDirection: params.Get("sort_direction"),
		Cursor:        params.Get("cursor"),
	}

	if req.Table == "" {
		return nil, fmt.Errorf("parameter 'table' is required")
	}

	if limit := params.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return nil, fmt.Errorf("invalid limit '%s'", limit)
		}
		req.Limit = n
	}

	if filters := params.Get("filters"); filters != "" {
		err := json.Unmarshal([]byte(filters), &req.Filters)
		if err != nil {
			return nil, fmt.Errorf("invalid filters: %w", err)
		}
	}

	if joins := params.Get("joins"); joins != "" {
		err := json.Unmarshal([]byte(joins), &req.Joins)
		if err != nil {
			return nil, fmt.Errorf("invalid joins: %w", err)
		}
	}

	if columns := params.Get("select_columns"); columns != "" {
		err := json.Unmarshal([]byte(columns), &req.SelectColumns)
		if err != nil {
			return nil, fmt.Errorf("invalid select_columns: %w", err)
		}
	}

	return req, nil
}

// writeQueryFailure renders a query-level failure: HTTP 200 with
// success=false, so clients can tell it apart from transport errors.
func writeQueryFailure(w http.ResponseWriter, err error) error {
	return json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}
