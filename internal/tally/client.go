// Package tally speaks the Tally HTTP export protocol: it POSTs TDL report
// envelopes to the server, sanitizes the not-quite-XML responses, and
// flattens them into the tag stream the reconstruction engine consumes.
package tally

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ledgerbridge/tallysync/internal/tags"
)

// ErrNoData marks a well-formed export that carried no recognized data tags:
// an empty day book, an empty master collection, or a company name the
// server silently ignored. Distinct from transport failures so callers can
// treat absence as a clean no-op.
var ErrNoData = errors.New("export contains no data")

const defaultTimeout = 60 * time.Second

// Client is an HTTP client for one Tally server and company.
type Client struct {
	baseURL string
	company string
	http    *http.Client
	tagmap  tags.Map
	logger  *log.Logger
}

// NewClient returns a client for the server at baseURL exporting company.
// A zero timeout uses the default; a nil logger falls back to stderr.
func NewClient(baseURL, company string, timeout time.Duration, logger *log.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[tally] ", log.LstdFlags)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		company: company,
		http:    &http.Client{Timeout: timeout},
		tagmap:  tags.Default(),
		logger:  logger,
	}
}

// SetTagMap overrides the tag map used to decide whether a response carried
// data. Must be the same map the reconstruction engine runs with.
func (c *Client) SetTagMap(m tags.Map) { c.tagmap = m }

// Ping checks that the server is reachable and answering.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tally server unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tally server returned status %d", resp.StatusCode)
	}
	return nil
}

// ExportVouchers runs the comprehensive day-book walk and returns the flat
// tag stream. Returns ErrNoData when the walk matched no vouchers.
func (c *Client) ExportVouchers(ctx context.Context) ([]TagValue, error) {
	return c.export(ctx, voucherEnvelope(c.company))
}

// ExportMasters exports one reference-entity collection. kind is a master
// kind name such as "Ledger" or "StockItem".
func (c *Client) ExportMasters(ctx context.Context, kind string) ([]TagValue, error) {
	collection, ok := collectionTypes[kind]
	if !ok {
		return nil, fmt.Errorf("unknown master kind %q", kind)
	}
	return c.export(ctx, masterEnvelope(kind, collection, c.company))
}

func (c *Client) export(ctx context.Context, envelope string) ([]TagValue, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", strings.NewReader(envelope))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Accept", "application/xml")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("export request returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading export response: %w", err)
	}

	values, err := Flatten(strings.NewReader(Clean(string(raw))))
	if err != nil {
		return nil, err
	}
	c.logger.Printf("export: %d bytes, %d tags in %s", len(raw), len(values), time.Since(start).Round(time.Millisecond))

	if !c.hasData(values) {
		return nil, ErrNoData
	}
	return values, nil
}

// hasData reports whether the stream contains at least one recognized tag.
// Envelope scaffolding elements never count.
func (c *Client) hasData(values []TagValue) bool {
	for _, tv := range values {
		if kind, _, _ := c.tagmap.Classify(tv.Name); kind != tags.KindUnknown {
			return true
		}
	}
	return false
}
