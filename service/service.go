package service

import (
	"errors"

	"github.com/fulldump/pagestream/database"
	"github.com/fulldump/pagestream/table"
)

// Table is the admin view of a table, detached from its rows.
type Table struct {
	Name  string `json:"name"`
	Total int    `json:"total"`
}

type Service struct {
	db *database.Database
}

func NewService(db *database.Database) *Service {
	return &Service{
		db: db,
	}
}

var ErrorTableAlreadyExists = errors.New("table already exists")

func (s *Service) CreateTable(name string) (*Table, error) {

	t, err := s.db.CreateTable(name)
	if err != nil {
		return nil, ErrorTableAlreadyExists
	}

	return &Table{
		Name:  name,
		Total: t.Size(),
	}, nil
}

func (s *Service) GetTable(name string) (*Table, error) {

	t := s.db.GetTable(name)
	if t == nil {
		return nil, ErrorTableNotFound
	}

	return &Table{
		Name:  name,
		Total: t.Size(),
	}, nil
}

func (s *Service) ListTables() ([]*Table, error) {

	result := []*Table{}
	for _, name := range s.db.TableNames() {
		if t := s.db.GetTable(name); t != nil {
			result = append(result, &Table{
				Name:  name,
				Total: t.Size(),
			})
		}
	}

	return result, nil
}

func (s *Service) DeleteTable(name string) error {

	err := s.db.DropTable(name)
	if err != nil {
		return ErrorTableNotFound
	}

	return nil
}

func (s *Service) InsertRow(tableName string, item map[string]any) (*table.Row, error) {

	t := s.db.GetTable(tableName)
	if t == nil {
		return nil, ErrorTableNotFound
	}

	return t.Insert(item)
}

func (s *Service) QueryCursor(req *database.QueryRequest) (*database.QueryResult, error) {
	return s.db.ExecuteCursorQuery(req)
}

func (s *Service) QueryStream(req *database.QueryRequest, batchSize int, emit func(batch []map[string]any, hasMore bool) bool) (int, error) {
	return s.db.ExecuteStream(req, batchSize, emit)
}

func (s *Service) QueryIntegrity(req *database.QueryRequest, expectedCount int) (*database.IntegrityVerdict, error) {
	return s.db.CheckIntegrity(req, expectedCount)
}
