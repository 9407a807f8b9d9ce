package table

import (
	"testing"
)

func TestInsert_GeneratesID(t *testing.T) {

	tab := NewTable("files")

	row, err := tab.Insert(map[string]any{"name": "report.pdf"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	id, ok := row.Payload["id"].(string)
	if !ok || id == "" {
		t.Fatalf("expected generated id, got %#v", row.Payload["id"])
	}
}

func TestInsert_KeepsExplicitID(t *testing.T) {

	tab := NewTable("files")

	row, err := tab.Insert(map[string]any{"id": "f-1", "name": "report.pdf"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if row.Payload["id"] != "f-1" {
		t.Fatalf("unexpected id: %#v", row.Payload["id"])
	}
}

func TestInsert_NilItem(t *testing.T) {

	tab := NewTable("files")

	_, err := tab.Insert(nil)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestInsert_DoesNotAliasInput(t *testing.T) {

	tab := NewTable("files")

	item := map[string]any{"name": "report.pdf"}
	row, err := tab.Insert(item)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	item["name"] = "mutated"
	if row.Payload["name"] != "report.pdf" {
		t.Fatalf("row payload shares memory with caller item")
	}
}

func TestTraverse_InsertionOrder(t *testing.T) {

	tab := NewTable("files")

	for _, name := range []string{"a", "b", "c"} {
		if _, err := tab.Insert(map[string]any{"name": name}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	if tab.Size() != 3 {
		t.Fatalf("unexpected size %d", tab.Size())
	}

	names := []string{}
	tab.Traverse(func(row *Row) bool {
		names = append(names, row.Payload["name"].(string))
		return true
	})
	if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
		t.Fatalf("unexpected order: %v", names)
	}

	names = names[:0]
	tab.TraverseReverse(func(row *Row) bool {
		names = append(names, row.Payload["name"].(string))
		return true
	})
	if len(names) != 3 || names[0] != "c" || names[2] != "a" {
		t.Fatalf("unexpected reverse order: %v", names)
	}
}

func TestTraverse_Stops(t *testing.T) {

	tab := NewTable("files")

	for i := 0; i < 10; i++ {
		tab.Insert(map[string]any{"i": i})
	}

	visited := 0
	tab.Traverse(func(row *Row) bool {
		visited++
		return visited < 4
	})
	if visited != 4 {
		t.Fatalf("expected traversal to stop at 4, got %d", visited)
	}
}
