package recon

import (
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		null    bool
		wantErr bool
	}{
		{in: "100", want: "100"},
		{in: "-100", want: "-100"},
		{in: "1,23,456.78", want: "123456.78"},
		{in: "(1,234.56)", want: "-1234.56"},
		{in: "0.480 MT", want: "0.48"},
		{in: "70,500.00/MT", want: "70500"},
		{in: "  ", null: true},
		{in: "", null: true},
		{in: "MT only", wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseAmount(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q) = %v, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q) failed: %v", tc.in, err)
			continue
		}
		if tc.null {
			if got.Valid {
				t.Errorf("ParseAmount(%q) = %v, want null", tc.in, got)
			}
			continue
		}
		if !got.Valid || got.Decimal.String() != tc.want {
			t.Errorf("ParseAmount(%q) = %v, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParseBool(t *testing.T) {
	if b := ParseBool(""); b != nil {
		t.Errorf("ParseBool(\"\") = %v, want nil", *b)
	}
	for _, s := range []string{"Yes", "yes", "true", "1"} {
		if b := ParseBool(s); b == nil || !*b {
			t.Errorf("ParseBool(%q) = %v, want true", s, b)
		}
	}
	for _, s := range []string{"No", "false", "0", "maybe"} {
		if b := ParseBool(s); b == nil || *b {
			t.Errorf("ParseBool(%q) = %v, want false", s, b)
		}
	}
}

// TestParseDate_Pivot documents the configurable two-digit-year policy:
// with the default pivot of 50, "99" is 1999 and "05" is 2005.
func TestParseDate_Pivot(t *testing.T) {
	policy := DefaultDatePolicy()

	tests := []struct {
		in       string
		wantYear int
		wantDay  int
	}{
		{"1-Apr-99", 1999, 1},
		{"1-Apr-05", 2005, 1},
		{"15-Mar-50", 1950, 15},
		{"15-Mar-49", 2049, 15},
		{"7-Jun-2024", 2024, 7},
	}
	for _, tc := range tests {
		got, err := ParseDate(tc.in, policy)
		if err != nil {
			t.Errorf("ParseDate(%q) failed: %v", tc.in, err)
			continue
		}
		if got == nil || got.Year() != tc.wantYear || got.Day() != tc.wantDay {
			t.Errorf("ParseDate(%q) = %v, want year %d day %d", tc.in, got, tc.wantYear, tc.wantDay)
		}
	}
}

func TestParseDate_CustomPivot(t *testing.T) {
	policy := DatePolicy{PivotYear: 80}
	got, err := ParseDate("1-Jan-79", policy)
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if got.Year() != 2079 {
		t.Errorf("year = %d, want 2079 with pivot 80", got.Year())
	}
}

func TestParseDate_NonDates(t *testing.T) {
	policy := DefaultDatePolicy()

	// Duration strings mean "no date" in the export.
	got, err := ParseDate("3103 Days", policy)
	if err != nil || got != nil {
		t.Errorf("ParseDate(\"3103 Days\") = %v, %v, want nil, nil", got, err)
	}

	got, err = ParseDate("", policy)
	if err != nil || got != nil {
		t.Errorf("ParseDate(\"\") = %v, %v, want nil, nil", got, err)
	}

	if _, err := ParseDate("garbage", policy); err == nil {
		t.Error("ParseDate(\"garbage\") should fail")
	}
}
