// Package convert implements batch conversion of files between the ls2 and
// lsx formats.
package convert

import (
	"bytes"
	"io"
	"sort"

	"github.com/liteser/lsfile"
	"github.com/liteser/lsfile/ls2"
	"github.com/liteser/lsfile/lsx"
)

// Format decodes and encodes documents of one format.
type Format interface {
	// Name returns the identifier of the format, which is also the file
	// extension of the format.
	Name() string
	Decode(r io.Reader) (doc *lsfile.Document, warn, err error)
	Encode(w io.Writer, doc *lsfile.Document) error
}

// Options configures the formats returned by Formats.
type Options struct {
	// Registry is passed to each codec.
	Registry *lsfile.Registry
	// Compress causes ls2 files to be encoded in the compressed container.
	Compress bool
	// Indent is the indentation of lsx files.
	Indent string
}

type binaryFormat struct {
	dec ls2.Decoder
	enc ls2.Encoder
}

func (binaryFormat) Name() string { return "ls2" }

func (f binaryFormat) Decode(r io.Reader) (*lsfile.Document, error, error) {
	return f.dec.Decode(r)
}

func (f binaryFormat) Encode(w io.Writer, doc *lsfile.Document) error {
	return f.enc.Encode(w, doc)
}

type textFormat struct {
	dec lsx.Decoder
	enc lsx.Encoder
}

func (textFormat) Name() string { return "lsx" }

func (f textFormat) Decode(r io.Reader) (*lsfile.Document, error, error) {
	return f.dec.Decode(r)
}

func (f textFormat) Encode(w io.Writer, doc *lsfile.Document) error {
	return f.enc.Encode(w, doc)
}

// Formats returns the available formats, mapped by name.
func Formats(opts Options) map[string]Format {
	return map[string]Format{
		"ls2": binaryFormat{
			dec: ls2.Decoder{Registry: opts.Registry},
			enc: ls2.Encoder{Registry: opts.Registry, Compressed: opts.Compress},
		},
		"lsx": textFormat{
			dec: lsx.Decoder{Registry: opts.Registry},
			enc: lsx.Encoder{Registry: opts.Registry, Indent: opts.Indent},
		},
	}
}

// FormatNames returns the names of the available formats in sorted order.
func FormatNames() []string {
	names := make([]string, 0, 2)
	for name := range Formats(Options{}) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the format of the given name, or an UnknownFormatError.
func Lookup(name string, opts Options) (Format, error) {
	f, ok := Formats(opts)[name]
	if !ok {
		return nil, UnknownFormatError(name)
	}
	return f, nil
}

// Detect returns the name of the format of a file beginning with head, or
// an empty string if the format is not recognized.
func Detect(head []byte) string {
	if bytes.HasPrefix(head, []byte("LS")) || bytes.HasPrefix(head, []byte("LZ")) {
		return "ls2"
	}
	head = bytes.TrimPrefix(head, []byte("\xEF\xBB\xBF"))
	head = bytes.TrimLeft(head, " \t\r\n")
	if bytes.HasPrefix(head, []byte("<")) {
		return "lsx"
	}
	return ""
}
