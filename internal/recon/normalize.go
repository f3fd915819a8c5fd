package recon

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DatePolicy controls how two-digit years in export dates are expanded.
// The export format never disambiguates its century, so the pivot is
// configuration, not a constant buried in parsing code.
type DatePolicy struct {
	// PivotYear splits two-digit years: values >= PivotYear resolve to the
	// 1900s, values below it to the 2000s.
	PivotYear int
}

// DefaultDatePolicy pivots at 50: "99" -> 1999, "05" -> 2005.
func DefaultDatePolicy() DatePolicy {
	return DatePolicy{PivotYear: 50}
}

// amountPrefix matches the numeric head of an exported value. Exports append
// unit text to quantities and rates ("0.480 MT", "70,500.00/MT"), which is
// stripped before parsing.
var amountPrefix = regexp.MustCompile(`^[+-]?[0-9]+(?:\.[0-9]+)?`)

// ParseAmount normalizes a locale-formatted export number to a decimal.
// Thousands separators are removed, parenthesized values are negated, and
// trailing unit text is ignored. Empty input yields a null decimal.
func ParseAmount(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, ",", "")
	num := amountPrefix.FindString(s)
	if num == "" {
		return decimal.NullDecimal{}, fmt.Errorf("not a number: %q", s)
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if neg {
		d = d.Neg()
	}
	return decimal.NewNullDecimal(d), nil
}

// ParseBool normalizes an export boolean. Empty input yields nil; "Yes",
// "true" and "1" (any case) yield true, everything else false.
func ParseBool(s string) *bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	b := false
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		b = true
	}
	return &b
}

// ParseDate normalizes an export date in D-Mon-YY or D-Mon-YYYY form to a
// calendar date. Two-digit years expand per the policy pivot. Duration
// strings the export sometimes emits in date fields ("3103 Days") yield nil
// without error, matching their meaning of "no date".
func ParseDate(s string, policy DatePolicy) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.Contains(strings.ToLower(s), "days") {
		return nil, nil
	}
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return nil, fmt.Errorf("not a D-Mon-YY date: %q", s)
	}
	year := parts[2]
	if len(year) == 2 {
		var yy int
		if _, err := fmt.Sscanf(year, "%d", &yy); err != nil {
			return nil, fmt.Errorf("bad year in date %q: %w", s, err)
		}
		if yy >= policy.PivotYear {
			yy += 1900
		} else {
			yy += 2000
		}
		year = fmt.Sprintf("%d", yy)
	}
	t, err := time.Parse("2-Jan-2006", fmt.Sprintf("%s-%s-%s", parts[0], parts[1], year))
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", s, err)
	}
	return &t, nil
}
