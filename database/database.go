package database

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fulldump/pagestream/table"
	"github.com/fulldump/pagestream/utils"
)

const (
	StatusOpening   = "opening"
	StatusOperating = "operating"
	StatusClosing   = "closing"
)

type Config struct {
	// Dir is an optional seed directory: every '*.jsonl' file becomes a
	// table with one JSON object per line.
	Dir string
}

type Database struct {
	config      *Config
	status      string
	statusMutex *sync.RWMutex
	Tables      map[string]*table.Table
	tablesMutex *sync.RWMutex
	exit        chan struct{}
}

func NewDatabase(config *Config) *Database {
	if config == nil {
		config = &Config{}
	}
	return &Database{
		config:      config,
		status:      StatusOpening,
		statusMutex: &sync.RWMutex{},
		Tables:      map[string]*table.Table{},
		tablesMutex: &sync.RWMutex{},
		exit:        make(chan struct{}),
	}
}

func (db *Database) GetStatus() string {
	db.statusMutex.RLock()
	defer db.statusMutex.RUnlock()
	return db.status
}

func (db *Database) setStatus(status string) {
	db.statusMutex.Lock()
	db.status = status
	db.statusMutex.Unlock()
}

func (db *Database) CreateTable(name string) (*table.Table, error) {

	db.tablesMutex.Lock()
	defer db.tablesMutex.Unlock()

	_, exists := db.Tables[name]
	if exists {
		return nil, fmt.Errorf("table '%s' already exists", name)
	}

	t := table.NewTable(name)
	db.Tables[name] = t

	return t, nil
}

func (db *Database) GetTable(name string) *table.Table {
	db.tablesMutex.RLock()
	defer db.tablesMutex.RUnlock()
	return db.Tables[name]
}

// TableNames returns the table names in lexical order.
func (db *Database) TableNames() []string {
	db.tablesMutex.RLock()
	defer db.tablesMutex.RUnlock()
	return utils.GetKeys(db.Tables)
}

func (db *Database) DropTable(name string) error {

	db.tablesMutex.Lock()
	defer db.tablesMutex.Unlock()

	_, exists := db.Tables[name]
	if !exists {
		return fmt.Errorf("table '%s' not found", name)
	}

	delete(db.Tables, name)

	return nil
}

// Load seeds tables from the configured directory. Without a directory the
// database goes straight to operating with no tables.
func (db *Database) Load() error {

	if db.config.Dir == "" {
		db.setStatus(StatusOperating)
		return nil
	}

	fmt.Printf("Loading tables from %s...\n", db.config.Dir) // todo: move to logger
	dir := db.config.Dir
	err := filepath.WalkDir(dir, func(filename string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(filename, ".jsonl") {
			return nil
		}

		name := filename
		name = strings.TrimPrefix(name, dir)
		name = strings.TrimPrefix(name, "/")
		name = strings.TrimSuffix(name, ".jsonl")

		t0 := time.Now()
		t, err := loadTable(name, filename)
		if err != nil {
			fmt.Printf("ERROR: load table '%s': %s\n", filename, err.Error()) // todo: move to logger
			return err
		}
		fmt.Println(name, t.Size(), time.Since(t0)) // todo: move to logger

		db.tablesMutex.Lock()
		db.Tables[name] = t
		db.tablesMutex.Unlock()

		return nil
	})

	if err != nil {
		db.setStatus(StatusClosing)
		return err
	}

	db.setStatus(StatusOperating)

	return nil
}

func loadTable(name, filename string) (*table.Table, error) {

	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	t := table.NewTable(name)

	j := json.NewDecoder(f)
	for {
		item := map[string]any{}
		err := j.Decode(&item)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		_, err = t.Insert(item)
		if err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (db *Database) Start() error {

	go db.Load()

	<-db.exit

	return nil
}

func (db *Database) Stop() error {

	defer close(db.exit)

	db.setStatus(StatusClosing)

	return nil
}
