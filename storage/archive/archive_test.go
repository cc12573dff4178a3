package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"dposcore/storage/models"
)

func newTestDB(t *testing.T) *Exporter {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := models.Open(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return NewExporter(db)
}

func TestExportPendingWritesAndMarksArchived(t *testing.T) {
	exporter := newTestDB(t)
	for i := 0; i < 3; i++ {
		obs := models.Observation{DelegateID: uint64(i + 1), Height: 100, Produced: 10, Score: 0.5}
		if err := exporter.db.Create(&obs).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "observations.parquet")

	n, err := exporter.ExportPending(path)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 3 {
		t.Fatalf("exported = %d, want 3", n)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected parquet file written: %v", err)
	}

	var remaining []models.Observation
	if err := exporter.db.Where("archived = ?", false).Find(&remaining).Error; err != nil {
		t.Fatalf("query remaining: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("remaining unarchived = %d, want 0", len(remaining))
	}
}

func TestExportPendingNoRowsIsNotAnError(t *testing.T) {
	exporter := newTestDB(t)
	n, err := exporter.ExportPending(filepath.Join(t.TempDir(), "out.parquet"))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 0 {
		t.Fatalf("exported = %d, want 0", n)
	}
}
