package api

import (
	"context"
	"net/http"
)

func listTables(ctx context.Context, w http.ResponseWriter) (interface{}, error) {

	s := GetServicer(ctx)

	result, err := s.ListTables()
	if err != nil {
		return nil, err // todo: wrap this?
	}

	return result, nil
}
