package crawler

import (
	"net/url"
	"strings"
)

// Param is a single query-string pair.
type Param struct {
	Key   string
	Value string
}

// Query keeps parameters in insertion order, unlike url.Values which
// sorts keys on Encode. Several retailer endpoints are matched on the
// literal URL, so order is preserved.
type Query []Param

func (q Query) Add(key, value string) Query {
	return append(q, Param{Key: key, Value: value})
}

func (q Query) Encode() string {
	var sb strings.Builder
	for i, p := range q {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(escapeValue(p.Value))
	}
	return sb.String()
}

// escapeValue keeps ':' readable, as VTEX fq filters are usually written.
func escapeValue(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "%3A", ":")
}
