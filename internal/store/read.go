package store

import (
	"context"
	"fmt"
)

// KeyRow is one (surrogate id, name, external id) triple read for lookup
// map building.
type KeyRow struct {
	ID   int64
	Name string
	GUID string
}

// SelectKeys reads every (id, name, guid) row of a master table. Read-only;
// used to build lookup maps at the start of a run.
func (db *DB) SelectKeys(ctx context.Context, table string) ([]KeyRow, error) {
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf("SELECT id, name, guid FROM %s", table))
	if err != nil {
		return nil, Classify(fmt.Errorf("failed to read keys from %s: %w", table, err))
	}
	defer rows.Close()

	var out []KeyRow
	for rows.Next() {
		var r KeyRow
		if err := rows.Scan(&r.ID, &r.Name, &r.GUID); err != nil {
			return nil, fmt.Errorf("failed to scan key row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, Classify(fmt.Errorf("error iterating %s keys: %w", table, err))
	}
	return out, nil
}

// VoucherKeys reads every (id, guid) pair from the voucher table, so entry
// parents resolve across incremental runs, not only within one export.
func (db *DB) VoucherKeys(ctx context.Context) ([]KeyRow, error) {
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf("SELECT id, guid FROM %s", db.tables.Vouchers))
	if err != nil {
		return nil, Classify(fmt.Errorf("failed to read voucher keys: %w", err))
	}
	defer rows.Close()

	var out []KeyRow
	for rows.Next() {
		var r KeyRow
		if err := rows.Scan(&r.ID, &r.GUID); err != nil {
			return nil, fmt.Errorf("failed to scan voucher key: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, Classify(fmt.Errorf("error iterating voucher keys: %w", err))
	}
	return out, nil
}

// RowCounts returns the row count of every configured table.
func (db *DB) RowCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range db.tables.All() {
		var n int
		if err := db.conn.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
			return nil, Classify(fmt.Errorf("failed to count %s: %w", table, err))
		}
		counts[table] = n
	}
	return counts, nil
}

// OrphanCounts reports rows in the entry tables whose voucher foreign key no
// longer resolves. With foreign keys enforced both counts stay zero; the
// check exists to verify targets migrated by external tooling.
func (db *DB) OrphanCounts(ctx context.Context) (ledger, inventory int, err error) {
	count := func(entries string) (int, error) {
		query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s e
		LEFT JOIN %s v ON e.voucher_id = v.id
		WHERE v.id IS NULL`, entries, db.tables.Vouchers)
		var n int
		if err := db.conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return 0, Classify(fmt.Errorf("failed to count orphans in %s: %w", entries, err))
		}
		return n, nil
	}

	if ledger, err = count(db.tables.Ledger); err != nil {
		return 0, 0, err
	}
	if inventory, err = count(db.tables.Inventory); err != nil {
		return 0, 0, err
	}
	return ledger, inventory, nil
}
