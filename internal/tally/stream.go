package tally

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledgerbridge/tallysync/internal/tags"
)

// The server writes element values unescaped and sprinkles numeric character
// references for control bytes, so its output is not well-formed XML. Clean
// drops the numeric references and escapes bare ampersands before decoding.
var numericRef = regexp.MustCompile(`&#[0-9]+;`)

// Clean sanitizes a raw export payload into parseable XML.
func Clean(raw string) string {
	return escapeBareAmps(numericRef.ReplaceAllString(raw, ""))
}

// escapeBareAmps rewrites every ampersand that does not begin an entity
// reference to &amp;.
func escapeBareAmps(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '&' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(s) && isEntityByte(s[j]) {
			j++
		}
		if j > i+1 && j < len(s) && s[j] == ';' {
			b.WriteString(s[i : j+1])
			i = j
			continue
		}
		b.WriteString("&amp;")
	}
	return b.String()
}

func isEntityByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '#'
}

// TagValue aliases the stream element type so sources and consumers share it
// without conversion.
type TagValue = tags.TagValue

// Flatten decodes cleaned export XML into the flat tag sequence: one
// (name, value) pair per leaf element, in document order. Container elements
// such as the envelope wrapper produce nothing; structure is deliberately
// discarded because the export format carries none that can be trusted.
func Flatten(r io.Reader) ([]TagValue, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	type frame struct {
		name string
		text strings.Builder
		leaf bool
	}
	var stack []*frame
	var out []TagValue

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed export payload: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if n := len(stack); n > 0 {
				stack[n-1].leaf = false
			}
			stack = append(stack, &frame{name: t.Name.Local, leaf: true})
		case xml.CharData:
			if n := len(stack); n > 0 {
				stack[n-1].text.Write(t)
			}
		case xml.EndElement:
			n := len(stack)
			if n == 0 {
				continue
			}
			f := stack[n-1]
			stack = stack[:n-1]
			if f.leaf {
				out = append(out, TagValue{Name: f.name, Value: strings.TrimSpace(f.text.String())})
			}
		}
	}
	return out, nil
}
