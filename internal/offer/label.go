// Package offer turns retailer promotion data into short offer descriptors.
package offer

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dlclark/regexp2"
)

var (
	multiBuy = regexp.MustCompile(`\b(\d+)\s*[xX]\s*(\d+)\b`)

	// "2da al 50%", "2do unidad al 70% Max 6" -> cut before Reg/Max/SURTIDO.
	nthUnit = regexp2.MustCompile(
		`\d+\s*(?:da|do|ra|ro|er|ta|to|º|°)[\s.].*?%.*?(?=\s+(?:reg|max|máx|surtido|min|mín|lim|llevando)\b|\s*$)`,
		regexp2.IgnoreCase)

	spaces = regexp.MustCompile(`\s+`)
)

// Simplify extracts a canonical short form from a raw promotion label:
// an NxM pattern if present, else an "Nth unit at P%" phrase cut at the
// first noise token, else the cleaned label verbatim.
func Simplify(raw string) string {
	s := cleanLabel(raw)
	if s == "" {
		return ""
	}
	if m := multiBuy.FindStringSubmatch(s); m != nil {
		return m[1] + "x" + m[2]
	}
	if m, err := nthUnit.FindStringMatch(s); err == nil && m != nil {
		if out := strings.TrimSpace(m.String()); out != "" {
			return out
		}
	}
	return s
}

// cleanLabel strips markup some retailers embed in promotion names and
// collapses whitespace.
func cleanLabel(raw string) string {
	s := raw
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// Join simplifies and deduplicates labels, keeping first-seen order.
func Join(labels []string) string {
	seen := make(map[string]bool, len(labels))
	var out []string
	for _, l := range labels {
		s := Simplify(l)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return strings.Join(out, " | ")
}
