package ls2

import (
	"fmt"
	"math"

	"github.com/anaminus/parse"
	"github.com/liteser/lsfile"
	"github.com/liteser/lsfile/errors"
)

// maxDepth is the deepest nesting of tables and records accepted by the
// codec.
const maxDepth = 10000

// maxPrealloc limits the capacity reserved from a count read from the
// stream.
const maxPrealloc = 1024

// valueDecoder reads values from a stream, building the shared-object table
// as objects are encountered.
type valueDecoder struct {
	r        *parse.BinaryReader
	registry *lsfile.Registry
	stats    *DecoderStats
	objects  []lsfile.Object
	warn     errors.Errors
	depth    int
}

func (d *valueDecoder) value() (v lsfile.Value, failed bool) {
	var b uint8
	if d.r.Number(&b) {
		return nil, true
	}
	t := tag(b)
	d.stats.count(t)
	switch t {
	case tagNil:
		return lsfile.ValueNil{}, false
	case tagFalse:
		return lsfile.ValueBool(false), false
	case tagTrue:
		return lsfile.ValueBool(true), false
	case tagInt:
		var u uint64
		if d.r.Number(&u) {
			return nil, true
		}
		return lsfile.ValueInt(int64(u)), false
	case tagFloat:
		var u uint64
		if d.r.Number(&u) {
			return nil, true
		}
		return lsfile.ValueFloat(math.Float64frombits(u)), false
	case tagString:
		var s string
		if readString(d.r, &s) {
			return nil, true
		}
		return lsfile.ValueString(s), false
	case tagTableNew:
		return d.table()
	case tagRecordNew:
		return d.record()
	case tagTableRef, tagRecordRef:
		return d.ref(t)
	default:
		d.r.Add(0, UnknownTagError(b))
		return nil, true
	}
}

// index reads the index of a new object, which must be the next slot of the
// shared-object table.
func (d *valueDecoder) index() (failed bool) {
	var index uint32
	if d.r.Number(&index) {
		return true
	}
	if int64(index) != int64(len(d.objects)) {
		d.r.Add(0, lsfile.BadReferenceError{
			Index: int(index),
			Len:   len(d.objects),
			Cause: lsfile.ErrForwardIndex,
		})
		return true
	}
	return false
}

func (d *valueDecoder) enter() (failed bool) {
	if d.depth >= maxDepth {
		d.r.Add(0, ErrNestingDepth)
		return true
	}
	d.depth++
	return false
}

func (d *valueDecoder) table() (v lsfile.Value, failed bool) {
	if d.index() || d.enter() {
		return nil, true
	}
	defer func() { d.depth-- }()

	// Added before the entries so that they may refer to the table.
	t := &lsfile.Table{}
	d.objects = append(d.objects, t)

	var count uint32
	if d.r.Number(&count) {
		return nil, true
	}
	t.Entries = make([]lsfile.Entry, 0, min(int(count), maxPrealloc))
	for i := uint32(0); i < count; i++ {
		key, failed := d.value()
		if failed {
			return nil, true
		}
		value, failed := d.value()
		if failed {
			return nil, true
		}
		t.Entries = append(t.Entries, lsfile.Entry{Key: key, Value: value})
	}
	return t, false
}

func (d *valueDecoder) record() (v lsfile.Value, failed bool) {
	if d.index() || d.enter() {
		return nil, true
	}
	defer func() { d.depth-- }()

	r := &lsfile.Record{}
	if readString(d.r, &r.Type) {
		return nil, true
	}
	schema, err := d.registry.Lookup(r.Type)
	if d.r.Add(0, err) {
		return nil, true
	}
	d.objects = append(d.objects, r)

	var count uint32
	if d.r.Number(&count) {
		return nil, true
	}
	r.Fields = make([]lsfile.Field, 0, min(int(count), maxPrealloc))
	for i := uint32(0); i < count; i++ {
		var name string
		if readString(d.r, &name) {
			return nil, true
		}
		value, failed := d.value()
		if failed {
			return nil, true
		}
		r.Fields = append(r.Fields, lsfile.Field{Name: name, Value: value})
	}
	d.warn = d.warn.Append(lsfile.CheckFields(r.Type, schema, r.Fields))
	return r, false
}

func (d *valueDecoder) ref(t tag) (v lsfile.Value, failed bool) {
	var index uint32
	if d.r.Number(&index) {
		return nil, true
	}
	if int64(index) >= int64(len(d.objects)) {
		d.r.Add(0, lsfile.BadReferenceError{Index: int(index), Len: len(d.objects)})
		return nil, true
	}
	var ok bool
	switch d.objects[index].(type) {
	case *lsfile.Table:
		ok = t == tagTableRef
	case *lsfile.Record:
		ok = t == tagRecordRef
	}
	if !ok {
		d.r.Add(0, lsfile.BadReferenceError{
			Index: int(index),
			Len:   len(d.objects),
			Cause: lsfile.ErrRefKind,
		})
		return nil, true
	}
	return lsfile.Reference{Index: int(index)}, false
}

////////////////////////////////////////////////////////////////

// valueEncoder writes values to a stream. Objects are identified by
// pointer; the first occurrence of an object is written in full, and later
// occurrences as a reference.
type valueEncoder struct {
	w        *parse.BinaryWriter
	doc      *lsfile.Document
	registry *lsfile.Registry
	index    map[lsfile.Object]uint32
	depth    int
}

func (e *valueEncoder) tag(t tag) (failed bool) {
	return e.w.Number(uint8(t))
}

func (e *valueEncoder) value(v lsfile.Value) (failed bool) {
	switch v := v.(type) {
	case nil, lsfile.ValueNil:
		return e.tag(tagNil)
	case lsfile.ValueBool:
		if v {
			return e.tag(tagTrue)
		}
		return e.tag(tagFalse)
	case lsfile.ValueInt:
		if e.tag(tagInt) {
			return true
		}
		return e.w.Number(uint64(v))
	case lsfile.ValueFloat:
		if e.tag(tagFloat) {
			return true
		}
		return e.w.Number(math.Float64bits(float64(v)))
	case lsfile.ValueString:
		if e.tag(tagString) {
			return true
		}
		return writeString(e.w, string(v))
	case *lsfile.Table:
		return e.table(v)
	case *lsfile.Record:
		return e.record(v)
	case lsfile.Reference:
		obj, err := e.doc.Resolve(v)
		if e.w.Add(0, err) {
			return true
		}
		if _, ok := e.index[obj]; !ok {
			// The target has not been written yet.
			e.w.Add(0, lsfile.BadReferenceError{Index: v.Index, Len: len(e.index)})
			return true
		}
		return e.value(obj)
	default:
		e.w.Add(0, fmt.Errorf("unsupported value %T", v))
		return true
	}
}

// ref writes a reference if obj has already been written. Otherwise, obj is
// assigned the next index, which is written after the new-object tag.
func (e *valueEncoder) ref(obj lsfile.Object, refTag, newTag tag) (written, failed bool) {
	if index, ok := e.index[obj]; ok {
		if e.tag(refTag) {
			return true, true
		}
		return true, e.w.Number(index)
	}
	if e.depth >= maxDepth {
		e.w.Add(0, ErrNestingDepth)
		return false, true
	}
	index := uint32(len(e.index))
	e.index[obj] = index
	if e.tag(newTag) {
		return false, true
	}
	return false, e.w.Number(index)
}

func (e *valueEncoder) table(t *lsfile.Table) (failed bool) {
	written, failed := e.ref(t, tagTableRef, tagTableNew)
	if written || failed {
		return failed
	}
	e.depth++
	defer func() { e.depth-- }()

	if e.w.Number(uint32(len(t.Entries))) {
		return true
	}
	for _, entry := range t.Entries {
		if e.value(entry.Key) || e.value(entry.Value) {
			return true
		}
	}
	return false
}

func (e *valueEncoder) record(r *lsfile.Record) (failed bool) {
	if _, ok := e.index[r]; !ok && !e.registry.Has(r.Type) {
		e.w.Add(0, lsfile.UnknownTypeError(r.Type))
		return true
	}
	written, failed := e.ref(r, tagRecordRef, tagRecordNew)
	if written || failed {
		return failed
	}
	e.depth++
	defer func() { e.depth-- }()

	if writeString(e.w, r.Type) {
		return true
	}
	if e.w.Number(uint32(len(r.Fields))) {
		return true
	}
	for _, field := range r.Fields {
		if writeString(e.w, field.Name) || e.value(field.Value) {
			return true
		}
	}
	return false
}
