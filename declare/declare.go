// The declare package is used to generate lsfile structures in a declarative
// style.
//
// Most items have a Declare method, which returns a new lsfile structure
// corresponding to the declared item.
//
// The easiest way to use this package is to import it directly into the
// current package:
//
//	import . "github.com/liteser/lsfile/declare"
//
// This allows the package's identifiers to be used directly without a
// qualifier.
package declare

import (
	"fmt"

	"github.com/liteser/lsfile"
)

// Doc declares an lsfile.Document with the given root value. See Value for
// the values that may be given.
func Doc(root interface{}) doc {
	return doc{root: root}
}

type doc struct {
	root interface{}
}

// Declare evaluates the Doc declaration, generating the value graph,
// resolving Use declarations, and building the shared-object table.
func (d doc) Declare() (*lsfile.Document, error) {
	b := builder{
		tables:  map[*table]*lsfile.Table{},
		records: map[*record]*lsfile.Record{},
		labels:  map[Ref]lsfile.Object{},
	}
	if err := b.collect(d.root); err != nil {
		return nil, err
	}
	root, err := b.value(d.root)
	if err != nil {
		return nil, err
	}
	return lsfile.NewDocument(root)
}

// MustDeclare is like Declare, but panics if the declaration is invalid.
func (d doc) MustDeclare() *lsfile.Document {
	doc, err := d.Declare()
	if err != nil {
		panic("declare: " + err.Error())
	}
	return doc
}

// element is implemented by declarations that can be within a Table or
// Record declaration.
type element interface {
	element()
}

// Ref declares a label that can be used to refer to the Table or Record under
// which it was declared. See Use.
type Ref string

func (Ref) element() {}

// Use declares a value that is the Table or Record labeled with the given
// Ref. Because the same object is placed at every Use, it becomes a shared
// object of the document. A Use may appear before the label is declared, and
// within the labeled object itself.
type Use string

type entry struct {
	key, value interface{}
}

func (entry) element() {}

// Entry declares an entry of a Table.
func Entry(key, value interface{}) entry {
	return entry{key: key, value: value}
}

type table struct {
	label   Ref
	entries []entry
}

// Table declares an lsfile.Table containing Entry declarations, and
// optionally a Ref declaration. Each distinct Table declaration produces a
// distinct object; a declaration used in several places produces one shared
// object.
func Table(elements ...element) *table {
	t := &table{}
	for _, e := range elements {
		switch e := e.(type) {
		case Ref:
			t.label = e
		case entry:
			t.entries = append(t.entries, e)
		}
	}
	return t
}

type field struct {
	name  string
	value interface{}
}

func (field) element() {}

// Field declares a field of a Record.
func Field(name string, value interface{}) field {
	return field{name: name, value: value}
}

type record struct {
	typ    string
	label  Ref
	fields []field
}

// Record declares an lsfile.Record of the given type, containing Field
// declarations, and optionally a Ref declaration.
func Record(typ string, elements ...element) *record {
	r := &record{typ: typ}
	for _, e := range elements {
		switch e := e.(type) {
		case Ref:
			r.label = e
		case field:
			r.fields = append(r.fields, e)
		}
	}
	return r
}

// Value evaluates a single value declaration. The following may be given:
//
//	nil:
//	    lsfile.ValueNil.
//	bool:
//	    lsfile.ValueBool.
//	int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
//	    lsfile.ValueInt. Unsigned values are converted to int64.
//	float32, float64:
//	    lsfile.ValueFloat.
//	string, []byte:
//	    lsfile.ValueString.
//	lsfile.Value:
//	    The value itself.
//	Table, Record:
//	    A new object. Use declarations within are resolved against labels
//	    declared within the value.
func Value(v interface{}) (lsfile.Value, error) {
	b := builder{
		tables:  map[*table]*lsfile.Table{},
		records: map[*record]*lsfile.Record{},
		labels:  map[Ref]lsfile.Object{},
	}
	if err := b.collect(v); err != nil {
		return nil, err
	}
	return b.value(v)
}

// builder evaluates declarations in two passes. The first pass allocates an
// object for every Table and Record declaration and records labels; the
// second fills the objects, so that a Use may refer to any label.
type builder struct {
	tables  map[*table]*lsfile.Table
	records map[*record]*lsfile.Record
	labels  map[Ref]lsfile.Object
}

func (b *builder) label(ref Ref, obj lsfile.Object) error {
	if ref == "" {
		return nil
	}
	if _, ok := b.labels[ref]; ok {
		return fmt.Errorf("label %q declared more than once", string(ref))
	}
	b.labels[ref] = obj
	return nil
}

func (b *builder) collect(v interface{}) error {
	switch v := v.(type) {
	case *table:
		if _, ok := b.tables[v]; ok {
			return nil
		}
		obj := &lsfile.Table{}
		b.tables[v] = obj
		if err := b.label(v.label, obj); err != nil {
			return err
		}
		for _, e := range v.entries {
			if err := b.collect(e.key); err != nil {
				return err
			}
			if err := b.collect(e.value); err != nil {
				return err
			}
		}
	case *record:
		if _, ok := b.records[v]; ok {
			return nil
		}
		obj := &lsfile.Record{Type: v.typ}
		b.records[v] = obj
		if err := b.label(v.label, obj); err != nil {
			return err
		}
		for _, f := range v.fields {
			if err := b.collect(f.value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) value(v interface{}) (lsfile.Value, error) {
	switch v := v.(type) {
	case nil:
		return lsfile.ValueNil{}, nil
	case lsfile.Value:
		return v, nil
	case bool:
		return lsfile.ValueBool(v), nil
	case int:
		return lsfile.ValueInt(v), nil
	case int8:
		return lsfile.ValueInt(v), nil
	case int16:
		return lsfile.ValueInt(v), nil
	case int32:
		return lsfile.ValueInt(v), nil
	case int64:
		return lsfile.ValueInt(v), nil
	case uint:
		return lsfile.ValueInt(v), nil
	case uint8:
		return lsfile.ValueInt(v), nil
	case uint16:
		return lsfile.ValueInt(v), nil
	case uint32:
		return lsfile.ValueInt(v), nil
	case uint64:
		return lsfile.ValueInt(v), nil
	case float32:
		return lsfile.ValueFloat(v), nil
	case float64:
		return lsfile.ValueFloat(v), nil
	case string:
		return lsfile.ValueString(v), nil
	case []byte:
		return lsfile.ValueString(v), nil
	case Use:
		obj, ok := b.labels[Ref(v)]
		if !ok {
			return nil, fmt.Errorf("label %q is not declared", string(v))
		}
		return obj, nil
	case *table:
		obj := b.tables[v]
		if obj.Entries != nil || len(v.entries) == 0 {
			// Already filled.
			return obj, nil
		}
		obj.Entries = make([]lsfile.Entry, 0, len(v.entries))
		for _, e := range v.entries {
			key, err := b.value(e.key)
			if err != nil {
				return nil, err
			}
			value, err := b.value(e.value)
			if err != nil {
				return nil, err
			}
			obj.Entries = append(obj.Entries, lsfile.Entry{Key: key, Value: value})
		}
		return obj, nil
	case *record:
		obj := b.records[v]
		if obj.Fields != nil || len(v.fields) == 0 {
			return obj, nil
		}
		obj.Fields = make([]lsfile.Field, 0, len(v.fields))
		for _, f := range v.fields {
			value, err := b.value(f.value)
			if err != nil {
				return nil, err
			}
			obj.Fields = append(obj.Fields, lsfile.Field{Name: f.name, Value: value})
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("cannot declare value of type %T", v)
	}
}
