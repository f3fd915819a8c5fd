package recon

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbridge/tallysync/internal/tags"
)

// UnassignedParent is the synthetic parent reference attached to ledger or
// inventory entries observed before any voucher boundary. Such entries are
// kept and reported, never dropped.
const UnassignedParent = "unassigned"

// Voucher is a reconstructed transaction header.
type Voucher struct {
	GUID      string
	Date      *time.Time
	Type      string
	Number    string
	PartyName string
	Narration string
	Reference string
	Amount    decimal.NullDecimal
}

// LedgerEntry is a reconstructed ledger posting.
//
// ParentRef is the GUID of the voucher open at the moment this entry's
// boundary tag was observed. LocalID is the entry's own exported id field;
// the export does not guarantee it unique or stable, so identity is
// (ParentRef, Seq), with Seq the entry's position within its parent.
type LedgerEntry struct {
	ParentRef  string
	Seq        int
	LocalID    string
	LedgerName string
	Amount     decimal.NullDecimal
	IsDebit    *bool
}

// InventoryEntry is a reconstructed inventory movement. The same identity
// caveats as LedgerEntry apply.
type InventoryEntry struct {
	ParentRef      string
	Seq            int
	LocalID        string
	StockItemName  string
	Quantity       decimal.NullDecimal
	Rate           decimal.NullDecimal
	Amount         decimal.NullDecimal
	GodownName     string
	TrackingNumber string
}

// MasterRecord is a reconstructed reference entity (ledger, stock item,
// voucher type, godown, ...). Parent is the parent master's name; masters
// form shallow one-level trees referenced by name.
type MasterRecord struct {
	Kind        string
	GUID        string
	Name        string
	Alias       string
	Parent      string
	Description string
}

// Warning records a non-fatal data-integrity issue found during
// reconstruction, such as a child entry with no open parent or a field
// value that failed normalization.
type Warning struct {
	Kind    tags.Kind
	LocalID string
	Message string
}

// Result carries the three aligned collections produced by one
// reconstruction pass, plus any warnings.
type Result struct {
	Vouchers         []Voucher
	LedgerEntries    []LedgerEntry
	InventoryEntries []InventoryEntry
	Warnings         []Warning
}
