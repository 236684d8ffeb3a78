// Package jsontree decodes JSON into a tree that keeps object keys in
// document order, and searches it by key regardless of nesting.
package jsontree

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

// Field is one object entry.
type Field struct {
	Key   string
	Value *Node
}

// Node is a decoded JSON value. Object fields keep their document order.
type Node struct {
	Kind   Kind
	Str    string
	Num    json.Number
	Bool   bool
	Items  []*Node
	Fields []Field
}

var ErrEmpty = errors.New("jsontree: empty document")

// Parse decodes a complete JSON document.
func Parse(data []byte) (*Node, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmpty
	}
	iter := jsoniter.ConfigCompatibleWithStandardLibrary.BorrowIterator(data)
	defer jsoniter.ConfigCompatibleWithStandardLibrary.ReturnIterator(iter)

	d := decoder{iter: iter}
	n := d.node()
	if d.failed || (iter.Error != nil && !errors.Is(iter.Error, io.EOF)) {
		if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
			return nil, fmt.Errorf("jsontree: %w", iter.Error)
		}
		return nil, errors.New("jsontree: truncated or invalid document")
	}
	// A clean end of input leaves io.EOF behind; anything else is trailing data.
	if next := iter.WhatIsNext(); next != jsoniter.InvalidValue || iter.Error == nil {
		return nil, errors.New("jsontree: trailing data after document")
	}
	return n, nil
}

// ParseString decodes a JSON document held in a string value, as used by
// fields that carry JSON-encoded JSON.
func ParseString(s string) (*Node, error) {
	return Parse([]byte(s))
}

type decoder struct {
	iter   *jsoniter.Iterator
	failed bool
}

func (d *decoder) node() *Node {
	iter := d.iter
	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		n := &Node{Kind: Object}
		ok := iter.ReadObjectCB(func(_ *jsoniter.Iterator, key string) bool {
			n.Fields = append(n.Fields, Field{Key: key, Value: d.node()})
			return !d.failed
		})
		d.failed = d.failed || !ok
		return n
	case jsoniter.ArrayValue:
		n := &Node{Kind: Array}
		ok := iter.ReadArrayCB(func(_ *jsoniter.Iterator) bool {
			n.Items = append(n.Items, d.node())
			return !d.failed
		})
		d.failed = d.failed || !ok
		return n
	case jsoniter.StringValue:
		return &Node{Kind: String, Str: iter.ReadString()}
	case jsoniter.NumberValue:
		return &Node{Kind: Number, Num: iter.ReadNumber()}
	case jsoniter.BoolValue:
		return &Node{Kind: Bool, Bool: iter.ReadBool()}
	case jsoniter.NilValue:
		iter.ReadNil()
		return &Node{Kind: Null}
	}
	d.failed = true
	return &Node{Kind: Null}
}

// IsNull reports whether n is missing or JSON null.
func (n *Node) IsNull() bool {
	return n == nil || n.Kind == Null
}

// Get returns the value of the first field named key, or nil.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != Object {
		return nil
	}
	for _, f := range n.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// Has reports whether the object has a field named key.
func (n *Node) Has(key string) bool {
	if n == nil || n.Kind != Object {
		return false
	}
	for _, f := range n.Fields {
		if f.Key == key {
			return true
		}
	}
	return false
}

// Path walks nested objects by key.
func (n *Node) Path(keys ...string) *Node {
	cur := n
	for _, k := range keys {
		cur = cur.Get(k)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Index returns the i-th array element, or nil.
func (n *Node) Index(i int) *Node {
	if n == nil || n.Kind != Array || i < 0 || i >= len(n.Items) {
		return nil
	}
	return n.Items[i]
}

// Len is the number of array items or object fields.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	switch n.Kind {
	case Array:
		return len(n.Items)
	case Object:
		return len(n.Fields)
	}
	return 0
}

// Text renders scalars as strings; numbers keep their literal form.
// Containers and null render as "".
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case String:
		return n.Str
	case Number:
		return n.Num.String()
	case Bool:
		if n.Bool {
			return "true"
		}
		return "false"
	}
	return ""
}

// Scalar returns the Go value of a scalar node (string, json.Number or
// bool), or nil for containers and null.
func (n *Node) Scalar() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case String:
		return n.Str
	case Number:
		return n.Num
	case Bool:
		return n.Bool
	}
	return nil
}
