// Package spool reads Tally export files dropped into a directory, for
// environments where the server is not reachable over HTTP and exports
// arrive as saved XML files instead.
package spool

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledgerbridge/tallysync/internal/tally"
)

// ParseFile reads one saved export file and returns its flat tag stream.
// Files get the same sanitizing pass as live HTTP responses, because they
// are byte-for-byte copies of them. An export with no recognized tags
// returns tally.ErrNoData.
func ParseFile(path string) ([]tally.TagValue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export file: %w", err)
	}
	values, err := tally.Flatten(strings.NewReader(tally.Clean(string(raw))))
	if err != nil {
		return nil, fmt.Errorf("export file %s: %w", path, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("export file %s: %w", path, tally.ErrNoData)
	}
	return values, nil
}
