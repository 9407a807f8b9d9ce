package api

import (
	"context"
	"net/http"

	"github.com/fulldump/pagestream/service"
)

type createTableRequest struct {
	Name string `json:"name"`
}

func createTable(ctx context.Context, w http.ResponseWriter, input *createTableRequest) (*service.Table, error) {

	s := GetServicer(ctx)

	t, err := s.CreateTable(input.Name)
	if err == service.ErrorTableAlreadyExists {
		w.WriteHeader(http.StatusConflict)
		return nil, err // todo: return custom error, with detailed description
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return nil, err
	}

	w.WriteHeader(http.StatusCreated)
	return t, nil
}
