package jsontree

import (
	"testing"
)

func mustParse(t *testing.T, s string) *Node {
	t.Helper()
	n, err := Parse([]byte(s))
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return n
}

func TestParse_KeepsKeyOrder(t *testing.T) {
	n := mustParse(t, `{"z":1,"a":2,"m":{"y":true,"b":null}}`)
	var keys []string
	for _, f := range n.Fields {
		keys = append(keys, f.Key)
	}
	if len(keys) != 3 || keys[0] != "z" || keys[1] != "a" || keys[2] != "m" {
		t.Fatalf("order lost: %v", keys)
	}
	if n.Path("m", "y").Text() != "true" || !n.Path("m", "b").IsNull() {
		t.Fatalf("unexpected nested values")
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, s := range []string{"", "  ", `{"a":1`, `[1,2`, `{"a":1} x`, `<html>`} {
		if _, err := Parse([]byte(s)); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestParse_NumbersKeepLiteral(t *testing.T) {
	n := mustParse(t, `{"ListPrice":4470.0,"Price":3800}`)
	if got := n.Get("ListPrice").Text(); got != "4470.0" {
		t.Fatalf("got %q", got)
	}
}

func TestFindFirst_Absent(t *testing.T) {
	n := mustParse(t, `{"a":[{"b":{"c":1}}],"d":"x"}`)
	if r := FindFirst(n, "missing"); r != nil {
		t.Fatalf("expected nil, got %+v", r)
	}
}

func TestFindFirst_ShallowestAndEarliest(t *testing.T) {
	n := mustParse(t, `{"first":{"deep":{"k":"deep"}},"k":"own","later":{"k":"later"}}`)
	if got := FindFirst(n, "k").Text(); got != "own" {
		t.Fatalf("own key must win before descending, got %q", got)
	}

	arr := mustParse(t, `[{"x":{"k":"a"}},{"k":"b"}]`)
	if got := FindFirst(arr, "k").Text(); got != "a" {
		t.Fatalf("index order must win, got %q", got)
	}
}

func TestFindFirst_NullIsNotAMatch(t *testing.T) {
	n := mustParse(t, `{"k":null,"child":{"k":"found"}}`)
	if got := FindFirst(n, "k").Text(); got != "found" {
		t.Fatalf("got %q", got)
	}
}

func TestFindFirst_Deterministic(t *testing.T) {
	doc := `{"r":[{"a":{"sku.activePrice":["1.795,00"]}},{"sku.activePrice":"2"}]}`
	for i := 0; i < 50; i++ {
		n := mustParse(t, doc)
		if got := FindText(n, "sku.activePrice"); got != "1.795,00" {
			t.Fatalf("iteration %d got %q", i, got)
		}
	}
}

func TestCoerceFirst(t *testing.T) {
	n := mustParse(t, `{"l":["a","b"],"e":[],"s":"x"}`)
	if CoerceFirst(n.Get("l")).Text() != "a" {
		t.Fatalf("list should unwrap")
	}
	if e := CoerceFirst(n.Get("e")); e.Kind != Array || e.Len() != 0 {
		t.Fatalf("empty list must be returned unchanged")
	}
	if CoerceFirst(n.Get("s")).Text() != "x" {
		t.Fatalf("scalar must be returned unchanged")
	}
	if CoerceFirst(nil) != nil {
		t.Fatalf("nil stays nil")
	}
}

func TestIterRecords(t *testing.T) {
	n := mustParse(t, `{"contents":[{"records":[
		{"record.id":["1"],"attributes":{"product.eanPrincipal":["111"]}},
		{"record.id":["2"],"attributes":{"product.eanPrincipal":["222"]}}
	]}]}`)

	var ids []string
	for rec := range IterRecords(n, "record.id", "product.repositoryId") {
		ids = append(ids, FindText(rec, "record.id"))
	}
	want := []string{"1", "2"}
	if len(ids) != len(want) {
		t.Fatalf("got %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v want %v", ids, want)
		}
	}
}

func TestIterRecords_NestedMatchesAreYielded(t *testing.T) {
	n := mustParse(t, `{"m":1,"child":{"m":2,"deeper":[{"m":3}]}}`)
	var got []string
	for rec := range IterRecords(n, "m") {
		got = append(got, rec.Get("m").Text())
	}
	if len(got) != 3 || got[0] != "1" || got[1] != "2" || got[2] != "3" {
		t.Fatalf("got %v", got)
	}
}

func TestIterRecords_StopsEarly(t *testing.T) {
	n := mustParse(t, `[{"m":1},{"m":2},{"m":3}]`)
	count := 0
	for range IterRecords(n, "m") {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Fatalf("count %d", count)
	}
}
