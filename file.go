// The lsfile package handles the decoding, encoding, and manipulation of
// Liteser documents.
//
// A Document holds one root Value. Values are of a closed set of kinds:
// Nil, Bool, Int, Float, String, Table, Record and Reference. Tables and
// Records are objects with identity; every object of a document appears in
// the document's shared-object table, in the order in which a depth-first
// walk from the root first encounters it. A Reference points back into that
// table, which allows an object to be shared between several places, or to
// contain itself.
//
// Records carry a type name which must be declared in a Registry. The
// Registry is built once at startup (see the "schema" sub-package) and
// passed to the codecs.
//
// Documents can be decoded from and encoded to two formats. The "ls2"
// sub-package implements the compact Liteser Binary format, and the "lsx"
// sub-package implements the equivalent Liteser XML format. Both produce
// equal documents for the same data.
//
// Besides decoding from a format, documents can also be created manually.
// The best way to do this is through the "declare" sub-package.
package lsfile

// Document is the unit of decoding and encoding: one root value and the
// shared-object table of that value.
type Document struct {
	// Root is the root value of the document. A nil Root is treated as Nil.
	Root Value

	// Objects is the shared-object table. Objects[i] is the i-th Table or
	// Record encountered in depth-first order from Root. Reference values
	// index into this table.
	Objects []Object
}

// Resolve returns the object referred to by ref.
func (doc *Document) Resolve(ref Reference) (Object, error) {
	if ref.Index < 0 || ref.Index >= len(doc.Objects) {
		return nil, BadReferenceError{Index: ref.Index, Len: len(doc.Objects)}
	}
	return doc.Objects[ref.Index], nil
}

// Deref returns v, or the object v refers to if v is a Reference. A nil v
// is returned as ValueNil.
func (doc *Document) Deref(v Value) (Value, error) {
	if ref, ok := v.(Reference); ok {
		return doc.Resolve(ref)
	}
	return orNil(v), nil
}

// Reindex rebuilds the shared-object table from Root. It must be called
// after the value graph of a document has been modified, if objects were
// added or removed.
func (doc *Document) Reindex() error {
	var x indexer
	if err := x.visit(orNil(doc.Root)); err != nil {
		return err
	}
	doc.Objects = x.objects
	return nil
}
