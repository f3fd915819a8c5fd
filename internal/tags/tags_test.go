package tags

import "testing"

func TestClassify(t *testing.T) {
	m := Default()

	tests := []struct {
		name     string
		kind     Kind
		field    string
		boundary bool
	}{
		{"VOUCHER_ID", KindVoucher, "guid", true},
		{"VOUCHER_NARRATION", KindVoucher, "narration", false},
		{"TRN_LEDGERENTRIES_ID", KindLedgerEntry, "guid", true},
		{"TRN_LEDGERENTRIES_AMOUNT", KindLedgerEntry, "amount", false},
		{"TRN_INVENTORYENTRIES_ID", KindInventoryEntry, "guid", true},
		{"MASTER_GUID", KindMaster, "guid", true},
		{"MASTER_PARENT", KindMaster, "parent", false},
		{"SOME_FUTURE_TAG", KindUnknown, "", false},
		{"ENVELOPE", KindUnknown, "", false},
	}
	for _, tt := range tests {
		kind, field, boundary := m.Classify(tt.name)
		if kind != tt.kind || field != tt.field || boundary != tt.boundary {
			t.Errorf("Classify(%q) = (%v, %q, %v), want (%v, %q, %v)",
				tt.name, kind, field, boundary, tt.kind, tt.field, tt.boundary)
		}
	}
}

func TestClassify_CustomMap(t *testing.T) {
	m := Default()
	m.Voucher = Namespace{
		Boundary: "VCH_GUID",
		Fields:   map[string]string{"VCH_GUID": "guid", "VCH_DATE": "date"},
	}

	if kind, _, boundary := m.Classify("VCH_GUID"); kind != KindVoucher || !boundary {
		t.Errorf("custom boundary not honored: %v %v", kind, boundary)
	}
	// The stock voucher tags are gone once the namespace is replaced.
	if kind, _, _ := m.Classify("VOUCHER_ID"); kind != KindUnknown {
		t.Errorf("VOUCHER_ID should be unknown under the custom map, got %v", kind)
	}
}
