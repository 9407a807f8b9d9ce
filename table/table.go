package table

import (
	"fmt"
	"sync"

	"github.com/google/btree"
	"github.com/google/uuid"
)

// Table is an in-memory ordered set of JSON rows. Rows keep the order they
// were inserted in, tracked by a monotonic sequence number.
type Table struct {
	Name string

	mutex *sync.RWMutex
	rows  *btree.BTreeG[*Row]
	seq   uint64
}

type Row struct {
	Seq     uint64
	Payload map[string]any
}

func NewTable(name string) *Table {
	return &Table{
		Name:  name,
		mutex: &sync.RWMutex{},
		rows: btree.NewG(32, func(a, b *Row) bool {
			return a.Seq < b.Seq
		}),
	}
}

// Insert adds one row to the table. Rows without an "id" field receive a
// generated one.
func (t *Table) Insert(item map[string]any) (*Row, error) {

	if item == nil {
		return nil, fmt.Errorf("item can not be null")
	}

	payload := make(map[string]any, len(item)+1)
	for k, v := range item {
		payload[k] = v
	}
	if _, exist := payload["id"]; !exist {
		payload["id"] = uuid.NewString()
	}

	t.mutex.Lock()
	t.seq++
	row := &Row{
		Seq:     t.seq,
		Payload: payload,
	}
	t.rows.ReplaceOrInsert(row)
	t.mutex.Unlock()

	return row, nil
}

// Size returns the number of rows.
func (t *Table) Size() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.rows.Len()
}

// Traverse walks all rows in insertion order. Return false from f to stop.
func (t *Table) Traverse(f func(row *Row) bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	t.rows.Ascend(func(row *Row) bool {
		return f(row)
	})
}

// TraverseReverse walks all rows in reverse insertion order.
func (t *Table) TraverseReverse(f func(row *Row) bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	t.rows.Descend(func(row *Row) bool {
		return f(row)
	})
}
