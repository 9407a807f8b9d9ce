package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// queryStream pushes the whole filtered view over a server-sent-event
// connection: one 'start' message, 'data' batches, then 'complete' (or
// 'error'). Each message is a single 'data:' line with a type discriminator.
func queryStream(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	req, err := parseQueryRequest(r)
	if err != nil {
		return writeQueryFailure(w, err)
	}

	batchSize := 100
	if param := r.URL.Query().Get("batch_size"); param != "" {
		n, err := strconv.Atoi(param)
		if err != nil {
			return writeQueryFailure(w, fmt.Errorf("invalid batch_size '%s'", param))
		}
		if n > 0 {
			batchSize = n
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeEvent := func(v any) bool {
		payload, err := json.Marshal(v)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	writeEvent(map[string]any{
		"type":  "start",
		"table": req.Table,
		"limit": req.Limit,
	})

	t0 := time.Now()
	batch := 0

	s := GetServicer(ctx)
	total, err := s.QueryStream(req, batchSize, func(records []map[string]any, hasMore bool) bool {
		if r.Context().Err() != nil {
			return false
		}
		batch++
		return writeEvent(map[string]any{
			"type":     "data",
			"batch":    batch,
			"records":  records,
			"has_more": hasMore,
		})
	})
	if err != nil {
		writeEvent(map[string]any{
			"type":  "error",
			"error": err.Error(),
		})
		return nil
	}

	elapsed := time.Since(t0)
	throughput := 0.0
	if elapsed > 0 {
		throughput = float64(total) / elapsed.Seconds()
	}

	writeEvent(map[string]any{
		"type":               "complete",
		"total_records":      total,
		"elapsed_ms":         float64(elapsed.Microseconds()) / 1000.0,
		"records_per_second": throughput,
	})

	return nil
}
