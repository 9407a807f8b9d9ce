package api

import (
	"context"
	"net/http"

	"github.com/fulldump/box"
)

func dropTable(ctx context.Context, w http.ResponseWriter) error {

	s := GetServicer(ctx)
	tableName := box.GetUrlParameter(ctx, "tableName")

	err := s.DeleteTable(tableName)
	if err != nil {
		return err
	}

	w.WriteHeader(http.StatusOK)
	return nil
}
