package lsfile

import (
	"errors"
	"strconv"
)

// BadReferenceError indicates a Reference, or an object index, that does
// not point to an earlier entry of the shared-object table.
type BadReferenceError struct {
	// Index is the offending index.
	Index int
	// Len is the length of the shared-object table at the point where the
	// index was encountered.
	Len int
	// Cause optionally describes why the index is bad.
	Cause error
}

func (err BadReferenceError) Error() string {
	s := "bad reference @" + strconv.Itoa(err.Index) + " (" + strconv.Itoa(err.Len) + " objects)"
	if err.Cause != nil {
		s += ": " + err.Cause.Error()
	}
	return s
}

func (err BadReferenceError) Unwrap() error {
	return err.Cause
}

var (
	// ErrForwardIndex indicates that a new object was given an index other
	// than the next free slot of the shared-object table.
	ErrForwardIndex = errors.New("object index out of sequence")
	// ErrRefKind indicates a typed reference whose target is of the wrong
	// kind.
	ErrRefKind = errors.New("reference target has the wrong kind")
)

// NewDocument returns a Document with the given root and a shared-object
// table built by walking root. The same *Table or *Record reached twice is
// one shared object. Returns a BadReferenceError if root contains a
// Reference to an object that has not been encountered yet.
func NewDocument(root Value) (*Document, error) {
	doc := &Document{Root: root}
	if err := doc.Reindex(); err != nil {
		return nil, err
	}
	return doc, nil
}

// WalkFunc is called by Walk for each value. depth is the nesting level of
// the value; the root has depth 0. If v is an object that has already been
// visited, or a Reference, then Walk does not descend into it.
type WalkFunc func(v Value, depth int) error

// Walk visits the values of the document depth-first: table entries key
// first, then value, and record fields in order. Each object is descended
// into once, so cyclic documents terminate. Walk stops at the first error
// returned by fn.
func (doc *Document) Walk(fn WalkFunc) error {
	x := indexer{fn: fn}
	return x.visit(orNil(doc.Root))
}

// indexer assigns shared-object indices in encounter order.
type indexer struct {
	objects []Object
	index   map[Object]int
	fn      WalkFunc
	depth   int
}

func (x *indexer) add(obj Object) bool {
	if x.index == nil {
		x.index = map[Object]int{}
	}
	if _, ok := x.index[obj]; ok {
		return false
	}
	x.index[obj] = len(x.objects)
	x.objects = append(x.objects, obj)
	return true
}

func (x *indexer) visit(v Value) error {
	if x.fn != nil {
		if err := x.fn(v, x.depth); err != nil {
			return err
		}
	}
	switch v := v.(type) {
	case *Table:
		if !x.add(v) {
			return nil
		}
		x.depth++
		for _, e := range v.Entries {
			if err := x.visit(orNil(e.Key)); err != nil {
				return err
			}
			if err := x.visit(orNil(e.Value)); err != nil {
				return err
			}
		}
		x.depth--
	case *Record:
		if !x.add(v) {
			return nil
		}
		x.depth++
		for _, f := range v.Fields {
			if err := x.visit(orNil(f.Value)); err != nil {
				return err
			}
		}
		x.depth--
	case Reference:
		if v.Index < 0 || v.Index >= len(x.objects) {
			return BadReferenceError{Index: v.Index, Len: len(x.objects)}
		}
	}
	return nil
}
