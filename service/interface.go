package service

import (
	"errors"

	"github.com/fulldump/pagestream/database"
	"github.com/fulldump/pagestream/table"
)

var ErrorTableNotFound = errors.New("table not found")

type Servicer interface { // todo: review naming
	CreateTable(name string) (*Table, error)
	GetTable(name string) (*Table, error)
	ListTables() ([]*Table, error)
	DeleteTable(name string) error
	InsertRow(tableName string, item map[string]any) (*table.Row, error)
	QueryCursor(req *database.QueryRequest) (*database.QueryResult, error)
	QueryStream(req *database.QueryRequest, batchSize int, emit func(batch []map[string]any, hasMore bool) bool) (int, error)
	QueryIntegrity(req *database.QueryRequest, expectedCount int) (*database.IntegrityVerdict, error)
}
