package ls2

import (
	"bytes"
	"io"

	"github.com/anaminus/parse"
	"github.com/liteser/lsfile"
	"github.com/liteser/lsfile/errors"
)

// Encoder encodes an lsfile.Document into a stream of bytes.
type Encoder struct {
	// Registry is used to check the types of records. A record of a type not
	// present in Registry fails with lsfile.UnknownTypeError.
	Registry *lsfile.Registry

	// If Compressed is true, then the value stream is written in an lz4
	// container.
	Compressed bool
}

// Encode writes doc to w according to the ls2 format. Encoding is
// deterministic: the same Document always produces the same bytes.
func (e Encoder) Encode(w io.Writer, doc *lsfile.Document) error {
	if w == nil {
		return errors.New("nil writer")
	}
	if doc == nil {
		return errors.New("nil document")
	}

	if !e.Compressed {
		fw := parse.NewBinaryWriter(w)
		if writeHeader(fw) {
			return encodeError(fw, nil)
		}
		e.encode(fw, doc)
		return encodeError(fw, nil)
	}

	var buf bytes.Buffer
	fb := parse.NewBinaryWriter(&buf)
	if e.encode(fb, doc) {
		return encodeError(fb, nil)
	}
	fw := parse.NewBinaryWriter(w)
	writeCompressed(fw, buf.Bytes())
	return encodeError(fw, nil)
}

func (e Encoder) encode(fw *parse.BinaryWriter, doc *lsfile.Document) (failed bool) {
	ve := valueEncoder{
		w:        fw,
		doc:      doc,
		registry: e.Registry,
		index:    map[lsfile.Object]uint32{},
	}
	return ve.value(doc.Root)
}

func encodeError(w *parse.BinaryWriter, err error) error {
	w.Add(0, err)
	err = w.Err()
	if err != nil {
		return DataError{Offset: w.N(), Cause: err}
	}
	return nil
}
