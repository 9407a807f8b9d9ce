package api

import (
	"context"
	"net/http"

	"github.com/fulldump/box"

	"github.com/fulldump/pagestream/service"
)

func getTable(ctx context.Context, w http.ResponseWriter) (*service.Table, error) {

	s := GetServicer(ctx)
	tableName := box.GetUrlParameter(ctx, "tableName")

	t, err := s.GetTable(tableName)
	if err == service.ErrorTableNotFound {
		w.WriteHeader(http.StatusNotFound)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	return t, nil
}
