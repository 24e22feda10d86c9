// Package lsx implements a decoder and encoder for the Liteser XML format.
//
// The format is a subset of XML with one element per value:
//
//	<?xml version="1.0" encoding="utf-8"?>
//	<Liteser version="3.0">
//		<Record id="0" type="Player">
//			<Field name="name"><String value="Bob"/></Field>
//			<Field name="friends">
//				<Table id="1">
//					<Entry><Int value="1"/><Ref idref="0"/></Entry>
//				</Table>
//			</Field>
//		</Record>
//	</Liteser>
//
// Tables and records carry the index they occupy in the shared-object table.
// Later occurrences of the same object are written as a Ref element. A
// document decodes to the same lsfile.Document as the equivalent ls2 file.
//
// Strings are byte strings. A numeric character reference below 256, such as
// &#233; or &#xE9;, decodes to that single byte rather than to the UTF-8
// encoding of the code point, so that any byte can be written. The encoder
// escapes each byte that is not part of printable text this way. References
// to larger code points decode to UTF-8, and printable characters such as é
// are written literally.
package lsx

import (
	"io"

	"github.com/liteser/lsfile"
	"github.com/liteser/lsfile/errors"
)

// Version of the format produced by the encoder.
const (
	VersionMajor = 3
	VersionMinor = 0
)

// maxDepth is the deepest nesting of elements accepted by the codec.
const maxDepth = 20000

// Decoder decodes a document of the lsx format into an lsfile.Document.
type Decoder struct {
	// Registry is used to look up the types of records. A record of a type
	// not present in Registry fails with lsfile.UnknownTypeError.
	Registry *lsfile.Registry
}

// Decode reads data from r and decodes it into a Document.
func (d Decoder) Decode(r io.Reader) (doc *lsfile.Document, warn, err error) {
	if r == nil {
		return nil, nil, errors.New("nil reader")
	}
	var document Document
	if _, err = document.ReadFrom(r); err != nil {
		return nil, nil, err
	}

	vd := valueDecoder{registry: d.Registry}
	root, err := vd.root(document.Root)
	if err != nil {
		return nil, vd.warn.Return(), err
	}
	doc = &lsfile.Document{Root: root, Objects: vd.objects}
	return doc, vd.warn.Return(), nil
}

// Encoder encodes an lsfile.Document into a document of the lsx format.
type Encoder struct {
	// Registry is used to check the types of records. A record of a type not
	// present in Registry fails with lsfile.UnknownTypeError.
	Registry *lsfile.Registry

	// Indent is written once per level of nesting. Defaults to a tab.
	Indent string
}

// Encode writes doc to w. Encoding is deterministic.
func (e Encoder) Encode(w io.Writer, doc *lsfile.Document) error {
	if w == nil {
		return errors.New("nil writer")
	}
	if doc == nil {
		return errors.New("nil document")
	}

	ve := valueEncoder{
		doc:      doc,
		registry: e.Registry,
		index:    map[lsfile.Object]int{},
	}
	root, err := ve.root(doc.Root)
	if err != nil {
		return err
	}

	document := Document{Indent: e.Indent, Root: root}
	if document.Indent == "" {
		document.Indent = "\t"
	}
	_, err = document.WriteTo(w)
	return err
}
