package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "progress.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "example.com", sampleProgress()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	p, err := s.Load(ctx, "example.com")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p == nil || p.Steps["create-automation-ou"].Status != core.StepStatusCompleted {
		t.Errorf("loaded = %+v", p)
	}
}

func TestSQLiteStore_UpsertOverwrites(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	s.Save(ctx, "example.com", sampleProgress())

	updated := sampleProgress()
	updated.Outputs["AUTOMATION_OU_ID"] = "ou-789"
	if err := s.Save(ctx, "example.com", updated); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	p, err := s.Load(ctx, "example.com")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Outputs["AUTOMATION_OU_ID"] != "ou-789" {
		t.Errorf("output = %v, want ou-789", p.Outputs["AUTOMATION_OU_ID"])
	}
}

func TestSQLiteStore_DomainsAreIsolated(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	s.Save(ctx, "a.example", sampleProgress())

	p, err := s.Load(ctx, "b.example")
	if err != nil || p != nil {
		t.Errorf("Load(other domain) = %+v, %v, want nil, nil", p, err)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	s.Save(ctx, "example.com", sampleProgress())
	if err := s.Delete(ctx, "example.com"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if p, _ := s.Load(ctx, "example.com"); p != nil {
		t.Error("progress survived delete")
	}
}

func TestNewProgressStore_Backends(t *testing.T) {
	dir := t.TempDir()

	jsonStore, err := NewProgressStore(BackendJSON, dir)
	if err != nil {
		t.Fatalf("json backend error = %v", err)
	}
	if _, ok := jsonStore.(*JSONStore); !ok {
		t.Errorf("backend type = %T, want *JSONStore", jsonStore)
	}

	sqliteStore, err := NewProgressStore(BackendSQLite, dir)
	if err != nil {
		t.Fatalf("sqlite backend error = %v", err)
	}
	defer CloseProgressStore(sqliteStore)
	if _, ok := sqliteStore.(*SQLiteStore); !ok {
		t.Errorf("backend type = %T, want *SQLiteStore", sqliteStore)
	}

	if _, err := NewProgressStore("bolt", dir); err == nil {
		t.Error("unknown backend accepted")
	}
}
