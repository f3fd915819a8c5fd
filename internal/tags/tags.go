// Package tags defines the flat export stream element and the configurable
// mapping from export tag names onto logical record fields.
//
// A Tally TDL export arrives as a flat, order-preserving sequence of tagged
// values with no nesting. The only structural signal is the order of arrival:
// a namespace's boundary tag opens a new record of that kind, and every other
// recognized tag populates a field on the record currently open in its
// namespace. Tag names are configuration because the export schema grows new
// fields over time.
package tags

// TagValue is one element of the flat export stream.
type TagValue struct {
	Name  string
	Value string
}

// Kind identifies which record namespace a tag belongs to.
type Kind int

const (
	// KindUnknown marks tags outside every configured namespace.
	// Unknown tags are skipped, which keeps old binaries compatible
	// with exports that grew new fields.
	KindUnknown Kind = iota
	// KindVoucher tags populate transaction headers.
	KindVoucher
	// KindLedgerEntry tags populate ledger postings.
	KindLedgerEntry
	// KindInventoryEntry tags populate inventory movements.
	KindInventoryEntry
	// KindMaster tags populate reference (master) records.
	KindMaster
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindVoucher:
		return "voucher"
	case KindLedgerEntry:
		return "ledger_entry"
	case KindInventoryEntry:
		return "inventory_entry"
	case KindMaster:
		return "master"
	default:
		return "unknown"
	}
}

// Namespace maps the export tag names of one record kind onto logical fields.
// Boundary is the tag whose appearance opens a new record; it must also
// appear in Fields so its value is captured.
type Namespace struct {
	Boundary string            `yaml:"boundary"`
	Fields   map[string]string `yaml:"fields"`
}

// Map holds the tag namespaces for every record kind in the export.
type Map struct {
	Voucher   Namespace `yaml:"voucher"`
	Ledger    Namespace `yaml:"ledger"`
	Inventory Namespace `yaml:"inventory"`
	Master    Namespace `yaml:"master"`
}

// Default returns the tag map matching the stock Tally TDL walk export.
func Default() Map {
	return Map{
		Voucher: Namespace{
			Boundary: "VOUCHER_ID",
			Fields: map[string]string{
				"VOUCHER_ID":             "guid",
				"VOUCHER_DATE":           "date",
				"VOUCHER_VOUCHER_TYPE":   "voucher_type",
				"VOUCHER_VOUCHER_NUMBER": "voucher_number",
				"VOUCHER_AMOUNT":         "amount",
				"VOUCHER_PARTY_NAME":     "party_name",
				"VOUCHER_NARRATION":      "narration",
				"VOUCHER_REFERENCE":      "reference",
			},
		},
		Ledger: Namespace{
			Boundary: "TRN_LEDGERENTRIES_ID",
			Fields: map[string]string{
				"TRN_LEDGERENTRIES_ID":          "guid",
				"TRN_LEDGERENTRIES_LEDGER_NAME": "ledger_name",
				"TRN_LEDGERENTRIES_AMOUNT":      "amount",
				"TRN_LEDGERENTRIES_IS_DEBIT":    "is_debit",
			},
		},
		Inventory: Namespace{
			Boundary: "TRN_INVENTORYENTRIES_ID",
			Fields: map[string]string{
				"TRN_INVENTORYENTRIES_ID":              "guid",
				"TRN_INVENTORYENTRIES_STOCKITEM_NAME":  "stock_item_name",
				"TRN_INVENTORYENTRIES_QUANTITY":        "quantity",
				"TRN_INVENTORYENTRIES_RATE":            "rate",
				"TRN_INVENTORYENTRIES_AMOUNT":          "amount",
				"TRN_INVENTORYENTRIES_GODOWN_NAME":     "godown_name",
				"TRN_INVENTORYENTRIES_TRACKING_NUMBER": "tracking_number",
			},
		},
		Master: Namespace{
			Boundary: "MASTER_GUID",
			Fields: map[string]string{
				"MASTER_GUID":        "guid",
				"MASTER_NAME":        "name",
				"MASTER_ALIAS":       "alias",
				"MASTER_PARENT":      "parent",
				"MASTER_DESCRIPTION": "description",
			},
		},
	}
}

// Classify resolves a tag name to its namespace kind and logical field.
// boundary reports whether the tag opens a new record of that kind.
// Unrecognized tags return KindUnknown.
func (m Map) Classify(name string) (kind Kind, field string, boundary bool) {
	for _, ns := range []struct {
		kind Kind
		ns   Namespace
	}{
		{KindVoucher, m.Voucher},
		{KindLedgerEntry, m.Ledger},
		{KindInventoryEntry, m.Inventory},
		{KindMaster, m.Master},
	} {
		if f, ok := ns.ns.Fields[name]; ok {
			return ns.kind, f, name == ns.ns.Boundary
		}
	}
	return KindUnknown, "", false
}
