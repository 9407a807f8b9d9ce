package database

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_SeedDirectory(t *testing.T) {

	dir := t.TempDir()

	files := `{"id":"f1","name":"file-1.pdf"}
{"id":"f2","name":"file-2.pdf"}
`
	if err := os.WriteFile(filepath.Join(dir, "files.jsonl"), []byte(files), 0666); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0666); err != nil {
		t.Fatal(err)
	}

	db := NewDatabase(&Config{Dir: dir})
	if err := db.Load(); err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	if status := db.GetStatus(); status != StatusOperating {
		t.Errorf("status: expected '%s', got '%s'", StatusOperating, status)
	}

	names := db.TableNames()
	if len(names) != 1 || names[0] != "files" {
		t.Errorf("tables: expected [files], got %v", names)
	}
	if size := db.GetTable("files").Size(); size != 2 {
		t.Errorf("size: expected 2, got %d", size)
	}
}

func TestLoad_BadSeedFile(t *testing.T) {

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.jsonl"), []byte("{not json"), 0666); err != nil {
		t.Fatal(err)
	}

	db := NewDatabase(&Config{Dir: dir})
	if err := db.Load(); err == nil {
		t.Error("expected an error")
	}
	if status := db.GetStatus(); status != StatusClosing {
		t.Errorf("status: expected '%s', got '%s'", StatusClosing, status)
	}
}

func TestLoad_WithoutDirectory(t *testing.T) {

	db := NewDatabase(nil)
	if err := db.Load(); err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	if status := db.GetStatus(); status != StatusOperating {
		t.Errorf("status: expected '%s', got '%s'", StatusOperating, status)
	}
}

func TestCreateDropTable(t *testing.T) {

	db := NewDatabase(nil)

	if _, err := db.CreateTable("files"); err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	if _, err := db.CreateTable("files"); err == nil {
		t.Error("expected an error creating a duplicate table")
	}
	if err := db.DropTable("files"); err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	if err := db.DropTable("files"); err == nil {
		t.Error("expected an error dropping a missing table")
	}
}
