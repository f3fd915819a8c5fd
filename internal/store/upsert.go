package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbridge/tallysync/internal/recon"
)

// Stamp carries the tenant identifiers written on every row, from config.
type Stamp struct {
	CompanyID  string
	DivisionID string
}

// Result reports one upsert. Changed is false when the row already existed
// with identical values, which is what makes a re-run a pure no-op.
type Result struct {
	ID      int64
	Changed bool
}

// upsertReturning runs an upsert whose RETURNING clause yields the surrogate
// id only when a row was inserted or actually updated. When nothing changed,
// the id is recovered with selectQuery.
func (db *DB) upsertReturning(ctx context.Context, query string, args []any, selectQuery string, selectArgs []any) (Result, error) {
	var id int64
	err := db.conn.QueryRowContext(ctx, db.dialect.rebind(query), args...).Scan(&id)
	if err == nil {
		return Result{ID: id, Changed: true}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Result{}, Classify(err)
	}
	if err := db.conn.QueryRowContext(ctx, db.dialect.rebind(selectQuery), selectArgs...).Scan(&id); err != nil {
		return Result{}, Classify(fmt.Errorf("unchanged row lookup: %w", err))
	}
	return Result{ID: id, Changed: false}, nil
}

// UpsertMaster inserts or updates one reference entity by its export GUID.
func (db *DB) UpsertMaster(ctx context.Context, kind string, rec recon.MasterRecord, st Stamp) (Result, error) {
	table, err := db.tables.Master(kind)
	if err != nil {
		return Result{}, err
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (guid, name, parent, alias, description, company_id, division_id)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (guid) DO UPDATE SET
		name = excluded.name,
		parent = excluded.parent,
		alias = excluded.alias,
		description = excluded.description
	WHERE %s
	RETURNING id`,
		table, db.dialect.changed("name", "parent", "alias", "description"))

	return db.upsertReturning(ctx, query,
		[]any{rec.GUID, rec.Name, rec.Parent, rec.Alias, rec.Description, st.CompanyID, st.DivisionID},
		fmt.Sprintf("SELECT id FROM %s WHERE guid = ?", table), []any{rec.GUID})
}

// UpsertVoucher inserts or updates one transaction header by export GUID.
// typeID and partyID are pre-resolved surrogate ids; invalid values store
// NULL while the name columns keep the exported text.
func (db *DB) UpsertVoucher(ctx context.Context, v recon.Voucher, typeID, partyID sql.NullInt64, st Stamp) (Result, error) {
	query := fmt.Sprintf(`
	INSERT INTO %s (guid, date, voucher_type, voucher_type_id, voucher_number,
		party_name, party_ledger_id, narration, reference, amount,
		company_id, division_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (guid) DO UPDATE SET
		date = excluded.date,
		voucher_type = excluded.voucher_type,
		voucher_type_id = excluded.voucher_type_id,
		voucher_number = excluded.voucher_number,
		party_name = excluded.party_name,
		party_ledger_id = excluded.party_ledger_id,
		narration = excluded.narration,
		reference = excluded.reference,
		amount = excluded.amount
	WHERE %s
	RETURNING id`,
		db.tables.Vouchers,
		db.dialect.changed("date", "voucher_type", "voucher_type_id", "voucher_number",
			"party_name", "party_ledger_id", "narration", "reference", "amount"))

	return db.upsertReturning(ctx, query,
		[]any{v.GUID, dateArg(v.Date), v.Type, typeID, v.Number,
			v.PartyName, partyID, v.Narration, v.Reference, decimalArg(v.Amount),
			st.CompanyID, st.DivisionID},
		fmt.Sprintf("SELECT id FROM %s WHERE guid = ?", db.tables.Vouchers), []any{v.GUID})
}

// UpsertLedgerEntry inserts or updates one posting. The natural key is
// (voucher_id, seq): the exported entry GUID is advisory only and stored as
// a plain column.
func (db *DB) UpsertLedgerEntry(ctx context.Context, e recon.LedgerEntry, voucherID int64, ledgerID sql.NullInt64, st Stamp) (Result, error) {
	query := fmt.Sprintf(`
	INSERT INTO %s (guid, voucher_id, seq, ledger_name, ledger_id, amount, is_debit,
		company_id, division_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (voucher_id, seq) DO UPDATE SET
		guid = excluded.guid,
		ledger_name = excluded.ledger_name,
		ledger_id = excluded.ledger_id,
		amount = excluded.amount,
		is_debit = excluded.is_debit
	WHERE %s
	RETURNING id`,
		db.tables.Ledger,
		db.dialect.changed("guid", "ledger_name", "ledger_id", "amount", "is_debit"))

	return db.upsertReturning(ctx, query,
		[]any{e.LocalID, voucherID, e.Seq, e.LedgerName, ledgerID, decimalArg(e.Amount), boolArg(e.IsDebit),
			st.CompanyID, st.DivisionID},
		fmt.Sprintf("SELECT id FROM %s WHERE voucher_id = ? AND seq = ?", db.tables.Ledger),
		[]any{voucherID, e.Seq})
}

// UpsertInventoryEntry inserts or updates one inventory movement, keyed like
// ledger entries by (voucher_id, seq).
func (db *DB) UpsertInventoryEntry(ctx context.Context, e recon.InventoryEntry, voucherID int64, itemID, godownID sql.NullInt64, st Stamp) (Result, error) {
	query := fmt.Sprintf(`
	INSERT INTO %s (guid, voucher_id, seq, stock_item_name, stock_item_id,
		godown_name, godown_id, quantity, rate, amount, tracking_number,
		company_id, division_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (voucher_id, seq) DO UPDATE SET
		guid = excluded.guid,
		stock_item_name = excluded.stock_item_name,
		stock_item_id = excluded.stock_item_id,
		godown_name = excluded.godown_name,
		godown_id = excluded.godown_id,
		quantity = excluded.quantity,
		rate = excluded.rate,
		amount = excluded.amount,
		tracking_number = excluded.tracking_number
	WHERE %s
	RETURNING id`,
		db.tables.Inventory,
		db.dialect.changed("guid", "stock_item_name", "stock_item_id", "godown_name",
			"godown_id", "quantity", "rate", "amount", "tracking_number"))

	return db.upsertReturning(ctx, query,
		[]any{e.LocalID, voucherID, e.Seq, e.StockItemName, itemID,
			e.GodownName, godownID, decimalArg(e.Quantity), decimalArg(e.Rate),
			decimalArg(e.Amount), e.TrackingNumber, st.CompanyID, st.DivisionID},
		fmt.Sprintf("SELECT id FROM %s WHERE voucher_id = ? AND seq = ?", db.tables.Inventory),
		[]any{voucherID, e.Seq})
}

func decimalArg(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func boolArg(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}
