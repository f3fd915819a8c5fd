package store

import (
	"context"
	"fmt"
)

// Tables holds the configurable table names of the target schema, keyed by
// master kind plus the three transactional tables.
type Tables struct {
	Masters   map[string]string // master kind -> table name
	Vouchers  string
	Ledger    string
	Inventory string
}

// MasterKinds lists the reference-entity kinds in dependency order: grouping
// entities first, then the entities that name them as parents. The sync
// engine walks this order, so anything a later kind references by name is
// already loaded.
var MasterKinds = []string{
	"Group",
	"StockGroup",
	"StockCategory",
	"Unit",
	"VoucherType",
	"Godown",
	"CostCategory",
	"Ledger",
	"StockItem",
	"CostCentre",
}

// DefaultTables returns the table names used by the stock schema.
func DefaultTables() Tables {
	return Tables{
		Masters: map[string]string{
			"Group":         "groups",
			"Ledger":        "ledgers",
			"StockItem":     "stock_items",
			"VoucherType":   "voucher_types",
			"Godown":        "godowns",
			"StockCategory": "stock_categories",
			"StockGroup":    "stock_groups",
			"Unit":          "units_of_measure",
			"CostCategory":  "cost_categories",
			"CostCentre":    "cost_centres",
		},
		Vouchers:  "vouchers",
		Ledger:    "ledger_entries",
		Inventory: "inventory_entries",
	}
}

// Master returns the table for a master kind.
func (t Tables) Master(kind string) (string, error) {
	name, ok := t.Masters[kind]
	if !ok {
		return "", fmt.Errorf("no table configured for master kind %q", kind)
	}
	return name, nil
}

// All returns every table name, masters first in dependency order.
func (t Tables) All() []string {
	out := make([]string, 0, len(MasterKinds)+3)
	for _, kind := range MasterKinds {
		if name, ok := t.Masters[kind]; ok {
			out = append(out, name)
		}
	}
	return append(out, t.Vouchers, t.Ledger, t.Inventory)
}

// InitSchema creates the SQLite schema if it doesn't exist. Idempotent.
//
// Postgres schema management is deliberately out of scope: hosted targets
// are migrated by their own tooling, and this loader only requires the
// upsert and key-read capabilities documented on each statement.
func (db *DB) InitSchema(ctx context.Context) error {
	if db.dialect != DialectSQLite {
		return fmt.Errorf("InitSchema is sqlite-only; migrate %s targets externally", db.tables.Vouchers)
	}

	for _, kind := range MasterKinds {
		table, err := db.tables.Master(kind)
		if err != nil {
			return err
		}
		ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			guid TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			parent TEXT,
			alias TEXT,
			description TEXT,
			company_id TEXT,
			division_id TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_%s_name ON %s(name);
		`, table, table, table)
		if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", table, err)
		}
	}

	ddl := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id INTEGER PRIMARY KEY,
		guid TEXT NOT NULL UNIQUE,
		date TEXT,
		voucher_type TEXT,
		voucher_type_id INTEGER REFERENCES %[4]s(id),
		voucher_number TEXT,
		party_name TEXT,
		party_ledger_id INTEGER REFERENCES %[5]s(id),
		narration TEXT,
		reference TEXT,
		amount TEXT,
		company_id TEXT,
		division_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_date ON %[1]s(date);

	CREATE TABLE IF NOT EXISTS %[2]s (
		id INTEGER PRIMARY KEY,
		guid TEXT,
		voucher_id INTEGER NOT NULL REFERENCES %[1]s(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		ledger_name TEXT,
		ledger_id INTEGER REFERENCES %[5]s(id),
		amount TEXT,
		is_debit INTEGER,
		company_id TEXT,
		division_id TEXT,
		UNIQUE(voucher_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_%[2]s_voucher ON %[2]s(voucher_id);

	CREATE TABLE IF NOT EXISTS %[3]s (
		id INTEGER PRIMARY KEY,
		guid TEXT,
		voucher_id INTEGER NOT NULL REFERENCES %[1]s(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		stock_item_name TEXT,
		stock_item_id INTEGER REFERENCES %[6]s(id),
		godown_name TEXT,
		godown_id INTEGER REFERENCES %[7]s(id),
		quantity TEXT,
		rate TEXT,
		amount TEXT,
		tracking_number TEXT,
		company_id TEXT,
		division_id TEXT,
		UNIQUE(voucher_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_%[3]s_voucher ON %[3]s(voucher_id);
	`,
		db.tables.Vouchers, db.tables.Ledger, db.tables.Inventory,
		db.tables.Masters["VoucherType"], db.tables.Masters["Ledger"],
		db.tables.Masters["StockItem"], db.tables.Masters["Godown"],
	)
	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// Reset deletes all synced rows, children before parents so foreign keys
// never dangle mid-way.
func (db *DB) Reset(ctx context.Context) error {
	order := []string{db.tables.Ledger, db.tables.Inventory, db.tables.Vouchers}
	for i := len(MasterKinds) - 1; i >= 0; i-- {
		order = append(order, db.tables.Masters[MasterKinds[i]])
	}
	for _, table := range order {
		if _, err := db.conn.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return Classify(fmt.Errorf("failed to reset %s: %w", table, err))
		}
	}
	return nil
}
