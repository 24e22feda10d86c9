package lsfile

import "errors"

// Clone returns a deep copy of the document. Every Table and Record is
// copied once, so objects shared between several places, or containing
// themselves, are shared the same way in the copy. The shared-object table
// of the copy has the same order as that of doc, so References are copied
// as is.
//
// Returns a BadReferenceError if a Reference does not point into the
// shared-object table.
func (doc *Document) Clone() (*Document, error) {
	c := cloner{doc: doc, copies: make(map[Object]Object, len(doc.Objects))}
	root, err := c.value(orNil(doc.Root))
	if err != nil {
		return nil, err
	}
	clone := &Document{Root: root}
	if doc.Objects != nil {
		clone.Objects = make([]Object, len(doc.Objects))
	}
	for i, obj := range doc.Objects {
		if obj == nil {
			return nil, BadReferenceError{Index: i, Len: len(doc.Objects), Cause: errNilObject}
		}
		v, err := c.value(obj)
		if err != nil {
			return nil, err
		}
		clone.Objects[i] = v.(Object)
	}
	return clone, nil
}

var errNilObject = errors.New("nil object in shared-object table")

type cloner struct {
	doc    *Document
	copies map[Object]Object
}

func (c *cloner) value(v Value) (Value, error) {
	switch v := v.(type) {
	case *Table:
		if t, ok := c.copies[v]; ok {
			return t, nil
		}
		// Registered before the entries so that a cycle finds the copy.
		t := &Table{}
		c.copies[v] = t
		if v.Entries != nil {
			t.Entries = make([]Entry, len(v.Entries))
		}
		for i, e := range v.Entries {
			key, err := c.value(orNil(e.Key))
			if err != nil {
				return nil, err
			}
			value, err := c.value(orNil(e.Value))
			if err != nil {
				return nil, err
			}
			t.Entries[i] = Entry{Key: key, Value: value}
		}
		return t, nil
	case *Record:
		if r, ok := c.copies[v]; ok {
			return r, nil
		}
		r := &Record{Type: v.Type}
		c.copies[v] = r
		if v.Fields != nil {
			r.Fields = make([]Field, len(v.Fields))
		}
		for i, f := range v.Fields {
			value, err := c.value(orNil(f.Value))
			if err != nil {
				return nil, err
			}
			r.Fields[i] = Field{Name: f.Name, Value: value}
		}
		return r, nil
	case Reference:
		if v.Index < 0 || v.Index >= len(c.doc.Objects) {
			return nil, BadReferenceError{Index: v.Index, Len: len(c.doc.Objects)}
		}
	}
	return v, nil
}
