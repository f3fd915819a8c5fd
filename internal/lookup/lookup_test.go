package lookup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ledgerbridge/tallysync/internal/recon"
	"github.com/ledgerbridge/tallysync/internal/store"
)

func seedStore(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open("sqlite", path, store.DefaultTables(), nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	return db
}

func TestBuild_ReflectsStoreState(t *testing.T) {
	db := seedStore(t)
	ctx := context.Background()
	st := store.Stamp{CompanyID: "co"}

	ledgers := db.Tables().Masters["Ledger"]
	groups := db.Tables().Masters["Group"]

	if _, err := db.UpsertMaster(ctx, "Group", recon.MasterRecord{GUID: "g-1", Name: "Primary"}, st); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := db.UpsertMaster(ctx, "Ledger", recon.MasterRecord{GUID: "lg-1", Name: "Cash"}, st); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	maps, err := NewBuilder(db).Build(ctx, []string{groups, ledgers})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if id := maps[ledgers].ByName("Cash"); !id.Valid {
		t.Error("Cash should resolve by name")
	}
	if id := maps[ledgers].ByGUID("lg-1"); !id.Valid {
		t.Error("lg-1 should resolve by guid")
	}
	if id := maps[ledgers].ByName("Sales"); id.Valid {
		t.Errorf("Sales should not resolve, got %d", id.Int64)
	}
	if maps[groups].Len() != 1 {
		t.Errorf("groups map len = %d, want 1", maps[groups].Len())
	}
}

// TestAdd_MidRunVisibility models tier progression: a row inserted during a
// run is added to the in-memory map and resolves without a re-query.
func TestAdd_MidRunVisibility(t *testing.T) {
	m := NewSurrogateMap()
	if id := m.ByName("Steel"); id.Valid {
		t.Fatal("empty map should not resolve")
	}
	m.Add("Steel", "si-9", 42)
	if id := m.ByName("Steel"); !id.Valid || id.Int64 != 42 {
		t.Errorf("ByName = %+v, want 42", id)
	}
	if id := m.ByGUID("si-9"); !id.Valid || id.Int64 != 42 {
		t.Errorf("ByGUID = %+v, want 42", id)
	}
}
