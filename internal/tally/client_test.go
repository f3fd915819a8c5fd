package tally

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClean_NumericRefsAndBareAmps(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<A>plain</A>", "<A>plain</A>"},
		{"<A>x&#4;y</A>", "<A>xy</A>"},
		{"<A>M&S Traders</A>", "<A>M&amp;S Traders</A>"},
		{"<A>already &amp; fine</A>", "<A>already &amp; fine</A>"},
		{"<A>trailing &</A>", "<A>trailing &amp;</A>"},
		{"<A>a & b &lt; c &#13; d</A>", "<A>a &amp; b &lt; c  d</A>"},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFlatten_LeavesInDocumentOrder(t *testing.T) {
	xml := `<ENVELOPE>
  <VOUCHER_ID> v-1 </VOUCHER_ID>
  <VOUCHER_AMOUNT>100</VOUCHER_AMOUNT>
  <TRN_LEDGERENTRIES_ID>le-1</TRN_LEDGERENTRIES_ID>
  <EMPTYTAG></EMPTYTAG>
</ENVELOPE>`

	values, err := Flatten(strings.NewReader(xml))
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}

	want := []TagValue{
		{Name: "VOUCHER_ID", Value: "v-1"},
		{Name: "VOUCHER_AMOUNT", Value: "100"},
		{Name: "TRN_LEDGERENTRIES_ID", Value: "le-1"},
		{Name: "EMPTYTAG", Value: ""},
	}
	if len(values) != len(want) {
		t.Fatalf("got %d values, want %d: %+v", len(values), len(want), values)
	}
	for i, w := range want {
		if values[i] != w {
			t.Errorf("values[%d] = %+v, want %+v", i, values[i], w)
		}
	}
}

func TestFlatten_ContainersProduceNothing(t *testing.T) {
	values, err := Flatten(strings.NewReader("<ENVELOPE><BODY><X>1</X></BODY></ENVELOPE>"))
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if len(values) != 1 || values[0].Name != "X" {
		t.Errorf("values = %+v, want only X", values)
	}
}

func TestExportVouchers_CleansAndFlattens(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		// Invalid XML on purpose: bare ampersand and a control reference.
		io.WriteString(w, `<ENVELOPE>
<VOUCHER_ID>v-1</VOUCHER_ID>
<VOUCHER_PARTY_NAME>M&S Traders&#4;</VOUCHER_PARTY_NAME>
</ENVELOPE>`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "Test Co", 0, nil)
	values, err := c.ExportVouchers(context.Background())
	if err != nil {
		t.Fatalf("ExportVouchers failed: %v", err)
	}

	if !strings.Contains(gotBody, "<SVCOMPANYNAME>Test Co</SVCOMPANYNAME>") {
		t.Error("request envelope missing company name")
	}
	if !strings.Contains(gotBody, "<TALLYREQUEST>Export</TALLYREQUEST>") {
		t.Error("request envelope missing export header")
	}

	if len(values) != 2 {
		t.Fatalf("got %d values: %+v", len(values), values)
	}
	if values[1].Value != "M&S Traders" {
		t.Errorf("party name = %q, want decoded ampersand, no control ref", values[1].Value)
	}
}

func TestExportMasters_EnvelopePerKind(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		io.WriteString(w, "<ENVELOPE><MASTER_GUID>g-1</MASTER_GUID><MASTER_NAME>Primary</MASTER_NAME></ENVELOPE>")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "Test Co", 0, nil)
	values, err := c.ExportMasters(context.Background(), "Godown")
	if err != nil {
		t.Fatalf("ExportMasters failed: %v", err)
	}
	// Tally spells the collection type "GoDown".
	if !strings.Contains(gotBody, "<TYPE>GoDown</TYPE>") {
		t.Error("godown export should use the GoDown collection type")
	}
	if len(values) != 2 {
		t.Errorf("got %d values: %+v", len(values), values)
	}

	if _, err := c.ExportMasters(context.Background(), "Nonsense"); err == nil {
		t.Error("unknown master kind should fail")
	}
}

func TestExport_NoDataSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<ENVELOPE><HEADER><STATUS>1</STATUS></HEADER></ENVELOPE>")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "Test Co", 0, nil)
	_, err := c.ExportVouchers(context.Background())
	if !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}

func TestExport_HTTPErrorIsNotNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "tally busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "Test Co", 0, nil)
	_, err := c.ExportVouchers(context.Background())
	if err == nil {
		t.Fatal("expected error for HTTP 503")
	}
	if errors.Is(err, ErrNoData) {
		t.Error("transport failure must not be reported as absence of data")
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "TallyPrime Server is Running")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "Test Co", 0, nil)
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	srv.Close()
	if err := c.Ping(context.Background()); err == nil {
		t.Error("Ping should fail after server shutdown")
	}
}
