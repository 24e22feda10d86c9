package lsfile

import (
	"math"
	"strconv"
)

// Kind identifies the kind of a Value.
type Kind byte

// String returns a string representation of the kind. If the kind is not
// valid, then the returned value will be "Invalid".
func (k Kind) String() string {
	s, ok := kindStrings[k]
	if !ok {
		return "Invalid"
	}
	return s
}

const (
	KindInvalid Kind = iota
	KindNil
	KindBool
	KindInt
	KindFloat
	KindString
	KindTable
	KindRecord
	KindReference
)

var kindStrings = map[Kind]string{
	KindNil:       "Nil",
	KindBool:      "Bool",
	KindInt:       "Int",
	KindFloat:     "Float",
	KindString:    "String",
	KindTable:     "Table",
	KindRecord:    "Record",
	KindReference: "Ref",
}

// KindFromString returns the Kind named by s, or KindInvalid.
func KindFromString(s string) Kind {
	for k, n := range kindStrings {
		if n == s {
			return k
		}
	}
	return KindInvalid
}

// Value holds a value of a particular Kind. The set of implementations is
// closed; every codec switches over the types in this file.
type Value interface {
	// Kind returns the kind of the value.
	Kind() Kind

	// String returns a string representation of the current value.
	String() string

	value()
}

// Object is a Value with identity: a *Table or a *Record. Objects are the
// entries of a Document's shared-object table.
type Object interface {
	Value
	object()
}

////////////////////////////////////////////////////////////////
// Values

// ValueNil is the Nil value.
type ValueNil struct{}

func (ValueNil) Kind() Kind     { return KindNil }
func (ValueNil) String() string { return "nil" }
func (ValueNil) value()         {}

////////////////

type ValueBool bool

func (ValueBool) Kind() Kind { return KindBool }
func (t ValueBool) String() string {
	if t {
		return "true"
	}
	return "false"
}
func (ValueBool) value() {}

////////////////

// ValueInt is an integer Number.
type ValueInt int64

func (ValueInt) Kind() Kind       { return KindInt }
func (t ValueInt) String() string { return strconv.FormatInt(int64(t), 10) }
func (ValueInt) value()           {}

////////////////

// ValueFloat is a double-precision Number. Two ValueFloats are equal when
// their bit patterns are equal, so NaN equals itself and 0 differs from -0.
type ValueFloat float64

func (ValueFloat) Kind() Kind { return KindFloat }
func (t ValueFloat) String() string {
	return strconv.FormatFloat(float64(t), 'g', -1, 64)
}
func (ValueFloat) value() {}

func (t ValueFloat) bits() uint64 {
	return math.Float64bits(float64(t))
}

////////////////

// ValueString is a sequence of bytes, usually UTF-8.
type ValueString string

func (ValueString) Kind() Kind       { return KindString }
func (t ValueString) String() string { return string(t) }
func (ValueString) value()           {}

////////////////

// Reference refers to an entry of a Document's shared-object table by
// index. A Reference always points to an object that appears earlier in
// depth-first order.
type Reference struct {
	Index int
}

func (Reference) Kind() Kind       { return KindReference }
func (t Reference) String() string { return "@" + strconv.Itoa(t.Index) }
func (Reference) value()           {}

////////////////////////////////////////////////////////////////
// Objects

// Entry is a key-value pair of a Table.
type Entry struct {
	Key   Value
	Value Value
}

// Table is an ordered mapping from Value keys to Values. Entry order is
// preserved by both codecs.
type Table struct {
	Entries []Entry
}

// NewTable returns a Table containing the given entries.
func NewTable(entries ...Entry) *Table {
	return &Table{Entries: entries}
}

func (*Table) Kind() Kind { return KindTable }
func (t *Table) String() string {
	return "Table[" + strconv.Itoa(len(t.Entries)) + "]"
}
func (*Table) value()  {}
func (*Table) object() {}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.Entries)
}

// Get returns the value of the first entry whose key equals key. Objects
// are matched by identity.
func (t *Table) Get(key Value) (value Value, ok bool) {
	for _, e := range t.Entries {
		if sameKey(e.Key, key) {
			return e.Value, true
		}
	}
	return nil, false
}

// Set replaces the value of the entry with the given key, or appends a new
// entry if there is none.
func (t *Table) Set(key, value Value) {
	for i, e := range t.Entries {
		if sameKey(e.Key, key) {
			t.Entries[i].Value = value
			return
		}
	}
	t.Entries = append(t.Entries, Entry{Key: key, Value: value})
}

func sameKey(a, b Value) bool {
	a, b = orNil(a), orNil(b)
	if a.Kind() != b.Kind() {
		return false
	}
	switch a := a.(type) {
	case ValueFloat:
		return a.bits() == b.(ValueFloat).bits()
	default:
		return a == b
	}
}

////////////////

// Field is a named value of a Record.
type Field struct {
	Name  string
	Value Value
}

// Record is a value of a user-defined type. The type name must be known to
// the Registry used by a codec.
type Record struct {
	Type   string
	Fields []Field
}

// NewRecord returns a Record of the given type containing the given fields.
func NewRecord(typ string, fields ...Field) *Record {
	return &Record{Type: typ, Fields: fields}
}

func (*Record) Kind() Kind       { return KindRecord }
func (t *Record) String() string { return t.Type }
func (*Record) value()           {}
func (*Record) object()          {}

// Get returns the value of the named field.
func (t *Record) Get(name string) (value Value, ok bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the value of the named field, or appends it.
func (t *Record) Set(name string, value Value) {
	for i, f := range t.Fields {
		if f.Name == name {
			t.Fields[i].Value = value
			return
		}
	}
	t.Fields = append(t.Fields, Field{Name: name, Value: value})
}

// orNil treats an unset Value as Nil.
func orNil(v Value) Value {
	if v == nil {
		return ValueNil{}
	}
	return v
}
