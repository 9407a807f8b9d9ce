package paginator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// CheckIntegrity asks the server to verify that expectedCount rows are
// reachable from cursor under the current filters. The verdict is returned
// as-is; this is diagnostic support, errors propagate to the caller and are
// not routed through OnError.
func (p *Paginator) CheckIntegrity(ctx context.Context, cursor string, expectedCount int) (map[string]any, error) {

	p.mutex.Lock()
	query := url.Values{}
	query.Set("table", p.config.Table)
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	query.Set("expected_count", strconv.Itoa(expectedCount))
	if len(p.config.Filters) > 0 {
		filters, _ := json.Marshal(p.config.Filters)
		query.Set("filters", string(filters))
	}
	p.mutex.Unlock()

	req, err := http.NewRequestWithContext(ctx, "GET", p.base+"/api/query/integrity?"+query.Encode(), nil)
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

	verdict := map[string]any{}
	err = json.NewDecoder(resp.Body).Decode(&verdict)
	if err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}

	return verdict, nil
}
