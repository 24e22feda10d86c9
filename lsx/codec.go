package lsx

import (
	"math"
	"strconv"
	"strings"

	"github.com/liteser/lsfile"
	"github.com/liteser/lsfile/errors"
)

// Names of elements and attributes.
const (
	elemRoot   = "Liteser"
	elemNil    = "Nil"
	elemBool   = "Bool"
	elemInt    = "Int"
	elemFloat  = "Float"
	elemString = "String"
	elemTable  = "Table"
	elemEntry  = "Entry"
	elemRecord = "Record"
	elemField  = "Field"
	elemRef    = "Ref"

	attrVersion = "version"
	attrValue   = "value"
	attrBits    = "bits"
	attrID      = "id"
	attrIDRef   = "idref"
	attrType    = "type"
	attrName    = "name"
)

// valueDecoder converts a tag tree into values, building the shared-object
// table as objects are encountered.
type valueDecoder struct {
	registry *lsfile.Registry
	objects  []lsfile.Object
	warn     errors.Errors
}

func malformed(tag *Tag, msg string, cause error) error {
	return MalformedTextError{Line: tag.Line, Msg: msg, Cause: cause}
}

func (d *valueDecoder) root(tag *Tag) (lsfile.Value, error) {
	if tag.Name != elemRoot {
		return nil, malformed(tag, "expected <"+elemRoot+"> root element, got <"+tag.Name+">", nil)
	}
	version, ok := tag.AttrValue(attrVersion)
	if !ok {
		return nil, malformed(tag, "missing version attribute", nil)
	}
	major, minor, _ := strings.Cut(version, ".")
	if major != strconv.Itoa(VersionMajor) || minor != "" && minor != strconv.Itoa(VersionMinor) {
		return nil, LineError{Line: tag.Line, Cause: ErrUnrecognizedVersion(version)}
	}
	if tag.Text != "" {
		return nil, malformed(tag, "unexpected text in <"+tag.Name+">", nil)
	}
	if len(tag.Tags) != 1 {
		return nil, malformed(tag, "root element must contain exactly one value, found "+strconv.Itoa(len(tag.Tags)), nil)
	}
	return d.value(tag.Tags[0])
}

func (d *valueDecoder) attr(tag *Tag, name string) (string, error) {
	v, ok := tag.AttrValue(name)
	if !ok {
		return "", malformed(tag, "<"+tag.Name+"> missing "+name+" attribute", nil)
	}
	return v, nil
}

// index parses an object or reference index.
func (d *valueDecoder) index(tag *Tag, name string) (int, error) {
	s, err := d.attr(tag, name)
	if err != nil {
		return 0, err
	}
	i, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, malformed(tag, "invalid "+name+" attribute", err)
	}
	return int(i), nil
}

// define appends obj to the shared-object table under the id of tag.
func (d *valueDecoder) define(tag *Tag, obj lsfile.Object) error {
	id, err := d.index(tag, attrID)
	if err != nil {
		return err
	}
	if id != len(d.objects) {
		return LineError{Line: tag.Line, Cause: lsfile.BadReferenceError{
			Index: id,
			Len:   len(d.objects),
			Cause: lsfile.ErrForwardIndex,
		}}
	}
	d.objects = append(d.objects, obj)
	return nil
}

func (d *valueDecoder) value(tag *Tag) (lsfile.Value, error) {
	if tag.Text != "" {
		return nil, malformed(tag, "unexpected text in <"+tag.Name+">", nil)
	}
	switch tag.Name {
	case elemTable:
		return d.table(tag)
	case elemRecord:
		return d.record(tag)
	}

	if len(tag.Tags) > 0 {
		return nil, malformed(tag, "<"+tag.Name+"> cannot contain elements", nil)
	}
	switch tag.Name {
	case elemNil:
		return lsfile.ValueNil{}, nil
	case elemBool:
		s, err := d.attr(tag, attrValue)
		if err != nil {
			return nil, err
		}
		switch s {
		case "true":
			return lsfile.ValueBool(true), nil
		case "false":
			return lsfile.ValueBool(false), nil
		}
		return nil, malformed(tag, "invalid boolean "+strconv.Quote(s), nil)
	case elemInt:
		s, err := d.attr(tag, attrValue)
		if err != nil {
			return nil, err
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, malformed(tag, "invalid integer", err)
		}
		return lsfile.ValueInt(i), nil
	case elemFloat:
		s, err := d.attr(tag, attrValue)
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, malformed(tag, "invalid float", err)
		}
		if bits, ok := tag.AttrValue(attrBits); ok {
			// Exact bits of a NaN.
			u, err := strconv.ParseUint(bits, 0, 64)
			if err != nil || !math.IsNaN(f) || !math.IsNaN(math.Float64frombits(u)) {
				return nil, malformed(tag, "invalid bits attribute", err)
			}
			f = math.Float64frombits(u)
		}
		return lsfile.ValueFloat(f), nil
	case elemString:
		s, err := d.attr(tag, attrValue)
		if err != nil {
			return nil, err
		}
		return lsfile.ValueString(s), nil
	case elemRef:
		index, err := d.index(tag, attrIDRef)
		if err != nil {
			return nil, err
		}
		if index >= len(d.objects) {
			return nil, LineError{Line: tag.Line, Cause: lsfile.BadReferenceError{Index: index, Len: len(d.objects)}}
		}
		return lsfile.Reference{Index: index}, nil
	default:
		return nil, malformed(tag, "unknown element <"+tag.Name+">", nil)
	}
}

func (d *valueDecoder) table(tag *Tag) (lsfile.Value, error) {
	// Added before the entries so that they may refer to the table.
	t := &lsfile.Table{}
	if err := d.define(tag, t); err != nil {
		return nil, err
	}
	t.Entries = make([]lsfile.Entry, 0, len(tag.Tags))
	for _, entry := range tag.Tags {
		if entry.Name != elemEntry {
			return nil, malformed(entry, "expected <"+elemEntry+"> in <"+elemTable+">, got <"+entry.Name+">", nil)
		}
		if entry.Text != "" {
			return nil, malformed(entry, "unexpected text in <"+elemEntry+">", nil)
		}
		if len(entry.Tags) != 2 {
			return nil, malformed(entry, "<"+elemEntry+"> must contain a key and a value, found "+strconv.Itoa(len(entry.Tags))+" elements", nil)
		}
		key, err := d.value(entry.Tags[0])
		if err != nil {
			return nil, err
		}
		value, err := d.value(entry.Tags[1])
		if err != nil {
			return nil, err
		}
		t.Entries = append(t.Entries, lsfile.Entry{Key: key, Value: value})
	}
	return t, nil
}

func (d *valueDecoder) record(tag *Tag) (lsfile.Value, error) {
	typ, err := d.attr(tag, attrType)
	if err != nil {
		return nil, err
	}
	schema, err := d.registry.Lookup(typ)
	if err != nil {
		return nil, LineError{Line: tag.Line, Cause: err}
	}
	r := &lsfile.Record{Type: typ}
	if err := d.define(tag, r); err != nil {
		return nil, err
	}
	r.Fields = make([]lsfile.Field, 0, len(tag.Tags))
	for _, field := range tag.Tags {
		if field.Name != elemField {
			return nil, malformed(field, "expected <"+elemField+"> in <"+elemRecord+">, got <"+field.Name+">", nil)
		}
		name, err := d.attr(field, attrName)
		if err != nil {
			return nil, err
		}
		if field.Text != "" {
			return nil, malformed(field, "unexpected text in <"+elemField+">", nil)
		}
		if len(field.Tags) != 1 {
			return nil, malformed(field, "<"+elemField+"> must contain exactly one value, found "+strconv.Itoa(len(field.Tags)), nil)
		}
		value, err := d.value(field.Tags[0])
		if err != nil {
			return nil, err
		}
		r.Fields = append(r.Fields, lsfile.Field{Name: name, Value: value})
	}
	d.warn = d.warn.Append(lsfile.CheckFields(r.Type, schema, r.Fields))
	return r, nil
}

////////////////////////////////////////////////////////////////

// valueEncoder converts values into a tag tree. Objects are identified by
// pointer; the first occurrence of an object is written in full, and later
// occurrences as a reference.
type valueEncoder struct {
	doc      *lsfile.Document
	registry *lsfile.Registry
	index    map[lsfile.Object]int
	depth    int
}

func (e *valueEncoder) root(v lsfile.Value) (*Tag, error) {
	value, err := e.value(v)
	if err != nil {
		return nil, err
	}
	return &Tag{
		Name: elemRoot,
		Attr: []Attr{{Name: attrVersion, Value: strconv.Itoa(VersionMajor) + "." + strconv.Itoa(VersionMinor)}},
		Tags: []*Tag{value},
	}, nil
}

func scalar(name, value string) *Tag {
	return &Tag{Name: name, Attr: []Attr{{Name: attrValue, Value: value}}, Empty: true}
}

// canonicalNaN is the NaN produced by parsing "NaN".
var canonicalNaN = math.Float64bits(math.NaN())

func (e *valueEncoder) value(v lsfile.Value) (*Tag, error) {
	switch v := v.(type) {
	case nil, lsfile.ValueNil:
		return &Tag{Name: elemNil, Empty: true}, nil
	case lsfile.ValueBool:
		return scalar(elemBool, v.String()), nil
	case lsfile.ValueInt:
		return scalar(elemInt, v.String()), nil
	case lsfile.ValueFloat:
		tag := scalar(elemFloat, v.String())
		if f := float64(v); math.IsNaN(f) && math.Float64bits(f) != canonicalNaN {
			tag.SetAttrValue(attrBits, "0x"+strconv.FormatUint(math.Float64bits(f), 16))
		}
		return tag, nil
	case lsfile.ValueString:
		return scalar(elemString, string(v)), nil
	case *lsfile.Table:
		return e.table(v)
	case *lsfile.Record:
		return e.record(v)
	case lsfile.Reference:
		obj, err := e.doc.Resolve(v)
		if err != nil {
			return nil, err
		}
		if _, ok := e.index[obj]; !ok {
			// The target has not been written yet.
			return nil, lsfile.BadReferenceError{Index: v.Index, Len: len(e.index)}
		}
		return e.value(obj)
	default:
		return nil, errors.New("unsupported value " + v.Kind().String())
	}
}

// ref returns a Ref tag if obj has already been written. Otherwise, obj is
// assigned the next index.
func (e *valueEncoder) ref(obj lsfile.Object) (ref *Tag, index int, err error) {
	if index, ok := e.index[obj]; ok {
		return &Tag{
			Name:  elemRef,
			Attr:  []Attr{{Name: attrIDRef, Value: strconv.Itoa(index)}},
			Empty: true,
		}, index, nil
	}
	if e.depth >= maxDepth {
		return nil, 0, errors.New("values nested too deeply")
	}
	index = len(e.index)
	e.index[obj] = index
	return nil, index, nil
}

func (e *valueEncoder) table(t *lsfile.Table) (*Tag, error) {
	ref, index, err := e.ref(t)
	if ref != nil || err != nil {
		return ref, err
	}
	e.depth++
	defer func() { e.depth-- }()

	tag := &Tag{
		Name: elemTable,
		Attr: []Attr{{Name: attrID, Value: strconv.Itoa(index)}},
		Tags: make([]*Tag, 0, len(t.Entries)),
	}
	for _, entry := range t.Entries {
		key, err := e.value(entry.Key)
		if err != nil {
			return nil, err
		}
		value, err := e.value(entry.Value)
		if err != nil {
			return nil, err
		}
		tag.Tags = append(tag.Tags, &Tag{Name: elemEntry, Tags: []*Tag{key, value}})
	}
	return tag, nil
}

func (e *valueEncoder) record(r *lsfile.Record) (*Tag, error) {
	if _, ok := e.index[r]; !ok && !e.registry.Has(r.Type) {
		return nil, lsfile.UnknownTypeError(r.Type)
	}
	ref, index, err := e.ref(r)
	if ref != nil || err != nil {
		return ref, err
	}
	e.depth++
	defer func() { e.depth-- }()

	tag := &Tag{
		Name: elemRecord,
		Attr: []Attr{
			{Name: attrID, Value: strconv.Itoa(index)},
			{Name: attrType, Value: r.Type},
		},
		Tags: make([]*Tag, 0, len(r.Fields)),
	}
	for _, field := range r.Fields {
		value, err := e.value(field.Value)
		if err != nil {
			return nil, err
		}
		tag.Tags = append(tag.Tags, &Tag{
			Name: elemField,
			Attr: []Attr{{Name: attrName, Value: field.Name}},
			Tags: []*Tag{value},
		})
	}
	return tag, nil
}
