package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ledgerbridge/tallysync/internal/recon"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open("sqlite", path, DefaultTables(), nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	return db
}

func testStamp() Stamp {
	return Stamp{CompanyID: "co-1", DivisionID: "div-1"}
}

func amount(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return decimal.NewNullDecimal(d)
}

func TestInitSchema_AllTables(t *testing.T) {
	db := testDB(t)

	for _, table := range db.Tables().All() {
		var count int
		err := db.RawDB().QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestUpsertMaster_InsertUpdateNoop(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	rec := recon.MasterRecord{Kind: "Ledger", GUID: "lg-1", Name: "Cash", Parent: "Cash-in-Hand"}

	first, err := db.UpsertMaster(ctx, "Ledger", rec, testStamp())
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if !first.Changed {
		t.Error("first upsert should report Changed")
	}

	// Identical payload is a pure no-op but still yields the same id.
	second, err := db.UpsertMaster(ctx, "Ledger", rec, testStamp())
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if second.Changed {
		t.Error("identical re-upsert should not report Changed")
	}
	if second.ID != first.ID {
		t.Errorf("id changed across upserts: %d vs %d", second.ID, first.ID)
	}

	// A mutated field applies again.
	rec.Alias = "Petty Cash"
	third, err := db.UpsertMaster(ctx, "Ledger", rec, testStamp())
	if err != nil {
		t.Fatalf("third upsert failed: %v", err)
	}
	if !third.Changed || third.ID != first.ID {
		t.Errorf("mutated upsert = %+v, want Changed with id %d", third, first.ID)
	}
}

func TestUpsertVoucherAndEntries(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	v := recon.Voucher{GUID: "v-1", Type: "Sales", Number: "42", Amount: amount("150")}
	vres, err := db.UpsertVoucher(ctx, v, sql.NullInt64{}, sql.NullInt64{}, testStamp())
	if err != nil {
		t.Fatalf("UpsertVoucher failed: %v", err)
	}

	isDebit := true
	entry := recon.LedgerEntry{
		ParentRef:  "v-1",
		Seq:        0,
		LocalID:    "e-1",
		LedgerName: "Cash",
		Amount:     amount("150"),
		IsDebit:    &isDebit,
	}
	eres, err := db.UpsertLedgerEntry(ctx, entry, vres.ID, sql.NullInt64{}, testStamp())
	if err != nil {
		t.Fatalf("UpsertLedgerEntry failed: %v", err)
	}
	if !eres.Changed {
		t.Error("first entry upsert should report Changed")
	}

	// Same (voucher_id, seq) with a different advisory guid updates in
	// place: the exported entry id is not the identity.
	entry.LocalID = "renamed"
	eres2, err := db.UpsertLedgerEntry(ctx, entry, vres.ID, sql.NullInt64{}, testStamp())
	if err != nil {
		t.Fatalf("second UpsertLedgerEntry failed: %v", err)
	}
	if eres2.ID != eres.ID {
		t.Errorf("entry identity broke: id %d vs %d", eres2.ID, eres.ID)
	}

	mv := recon.InventoryEntry{
		ParentRef:     "v-1",
		Seq:           0,
		StockItemName: "Steel",
		Quantity:      amount("0.48"),
		Rate:          amount("70500"),
		Amount:        amount("33840"),
	}
	if _, err := db.UpsertInventoryEntry(ctx, mv, vres.ID, sql.NullInt64{}, sql.NullInt64{}, testStamp()); err != nil {
		t.Fatalf("UpsertInventoryEntry failed: %v", err)
	}

	ledger, inventory, err := db.OrphanCounts(ctx)
	if err != nil {
		t.Fatalf("OrphanCounts failed: %v", err)
	}
	if ledger != 0 || inventory != 0 {
		t.Errorf("orphans = %d, %d, want 0, 0", ledger, inventory)
	}
}

func TestUpsertLedgerEntry_RejectsMissingVoucher(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	entry := recon.LedgerEntry{ParentRef: "ghost", Seq: 0, LedgerName: "Cash"}
	_, err := db.UpsertLedgerEntry(ctx, entry, 999999, sql.NullInt64{}, testStamp())
	if err == nil {
		t.Fatal("expected foreign key violation for missing voucher")
	}
}

func TestSelectKeys(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, rec := range []recon.MasterRecord{
		{GUID: "g-1", Name: "Primary"},
		{GUID: "g-2", Name: "Current Assets", Parent: "Primary"},
	} {
		if _, err := db.UpsertMaster(ctx, "Group", rec, testStamp()); err != nil {
			t.Fatalf("seed upsert failed: %v", err)
		}
	}

	rows, err := db.SelectKeys(ctx, db.Tables().Masters["Group"])
	if err != nil {
		t.Fatalf("SelectKeys failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	byName := map[string]string{}
	for _, r := range rows {
		byName[r.Name] = r.GUID
	}
	if byName["Current Assets"] != "g-2" {
		t.Errorf("keys = %v", byName)
	}
}

func TestReset(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.UpsertMaster(ctx, "Group", recon.MasterRecord{GUID: "g", Name: "G"}, testStamp()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := db.UpsertVoucher(ctx, recon.Voucher{GUID: "v"}, sql.NullInt64{}, sql.NullInt64{}, testStamp()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := db.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	counts, err := db.RowCounts(ctx)
	if err != nil {
		t.Fatalf("RowCounts failed: %v", err)
	}
	for table, n := range counts {
		if n != 0 {
			t.Errorf("%s has %d rows after reset", table, n)
		}
	}
}

func TestDialect_Rebind(t *testing.T) {
	q := "SELECT id FROM t WHERE a = ? AND b = ?"
	if got := DialectSQLite.rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
	want := "SELECT id FROM t WHERE a = $1 AND b = $2"
	if got := DialectPostgres.rebind(q); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}
