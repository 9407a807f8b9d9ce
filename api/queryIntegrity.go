package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

func queryIntegrity(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	req, err := parseQueryRequest(r)
	if err != nil {
		return writeQueryFailure(w, err)
	}

	expectedCount := 0
	if param := r.URL.Query().Get("expected_count"); param != "" {
		expectedCount, err = strconv.Atoi(param)
		if err != nil {
			return writeQueryFailure(w, fmt.Errorf("invalid expected_count '%s'", param))
		}
	}

	s := GetServicer(ctx)
	verdict, err := s.QueryIntegrity(req, expectedCount)
	if err != nil {
		return writeQueryFailure(w, err)
	}

	return json.NewEncoder(w).Encode(verdict)
}
