package ls2

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode"

	"github.com/anaminus/parse"
	"github.com/liteser/lsfile"
	"github.com/liteser/lsfile/errors"
)

// Decoder decodes a stream of bytes into an lsfile.Document.
type Decoder struct {
	// Registry is used to look up the types of records. A record of a type
	// not present in Registry fails with lsfile.UnknownTypeError.
	Registry *lsfile.Registry

	// If Stats is not nil, then it is filled with statistics about the
	// decoded stream.
	Stats *DecoderStats
}

// DecoderStats contains statistics generated while decoding the format.
type DecoderStats struct {
	Version    string
	Compressed bool

	// Size of the lz4 block, for compressed files.
	CompressedSize uint32
	// Size of the value stream, excluding the header.
	StreamSize int64

	Tables  int
	Records int
	Refs    int

	// Number of occurrences of each tag.
	Tags map[string]int
}

func (s *DecoderStats) count(t tag) {
	if s == nil {
		return
	}
	if s.Tags == nil {
		s.Tags = map[string]int{}
	}
	s.Tags[t.String()]++
	switch t {
	case tagTableNew:
		s.Tables++
	case tagRecordNew:
		s.Records++
	case tagTableRef, tagRecordRef:
		s.Refs++
	}
}

// Decode reads data from r and decodes it into a Document according to the
// ls2 format.
func (d Decoder) Decode(r io.Reader) (doc *lsfile.Document, warn, err error) {
	if r == nil {
		return nil, nil, errors.New("nil reader")
	}

	s, w, err := openStream(r)
	warns := errors.Errors{}.Append(w)
	if err != nil {
		return nil, warns.Return(), err
	}
	if d.Stats != nil {
		d.Stats.Version = s.header.Version()
		d.Stats.Compressed = s.header.Compressed
		d.Stats.CompressedSize = s.header.CompressedLength
	}
	start := s.r.N()

	vd := valueDecoder{r: s.r, registry: d.Registry, stats: d.Stats}
	root, failed := vd.value()
	warns = warns.Append(vd.warn...)
	if failed {
		return nil, warns.Return(), decodeError(s.r, nil)
	}

	rest, failed := s.r.All()
	if failed {
		return nil, warns.Return(), decodeError(s.r, nil)
	}
	if len(rest) > 0 {
		warns = warns.Append(DataError{Offset: s.r.N() - int64(len(rest)), Cause: ErrTrailingData})
	}
	if d.Stats != nil {
		d.Stats.StreamSize = s.r.N() - start
	}

	doc = &lsfile.Document{Root: root, Objects: vd.objects}
	return doc, warns.Return(), nil
}

// Decompress reencodes a compressed file as uncompressed. The format is
// decoded from r, then encoded to w. The value stream is copied as is; an
// uncompressed file is copied unchanged.
func (d Decoder) Decompress(w io.Writer, r io.Reader) (warn, err error) {
	if r == nil {
		return nil, errors.New("nil reader")
	}
	if w == nil {
		return nil, errors.New("nil writer")
	}

	s, warn, err := openStream(r)
	if err != nil {
		return warn, err
	}
	payload, failed := s.r.All()
	if failed {
		return warn, decodeError(s.r, nil)
	}

	fw := parse.NewBinaryWriter(w)
	if writeHeader(fw) {
		return warn, encodeError(fw, nil)
	}
	fw.Bytes(payload)
	return warn, encodeError(fw, nil)
}

// Dump writes to w a readable representation of the binary format decoded from
// r. Records are listed regardless of whether their types are registered.
func (d Decoder) Dump(w io.Writer, r io.Reader) (warn, err error) {
	if r == nil {
		return nil, errors.New("nil reader")
	}
	if w == nil {
		return nil, errors.New("nil writer")
	}

	s, warn, err := openStream(r)
	if err != nil {
		return warn, err
	}

	bw := bufio.NewWriter(w)
	defer bw.Flush()
	fmt.Fprintf(bw, "Version: %s", s.header.Version())
	if s.header.Compressed {
		fmt.Fprintf(bw, "\nCompressed: %d -> %d", s.header.CompressedLength, s.header.DecompressedLength)
	}
	bw.WriteString("\nRoot: ")
	dd := dumper{r: s.r, w: bw}
	if dd.value(0) {
		dumpNewline(bw, 0)
		fmt.Fprintf(bw, "<error at offset %d>", s.r.N())
		return warn, decodeError(s.r, nil)
	}

	rest, _ := s.r.All()
	if len(rest) > 0 {
		bw.WriteString("\nTrailing: ")
		dumpBytes(bw, 0, rest)
	}
	return warn, nil
}

// dumper reads values and writes them without building a Document.
type dumper struct {
	r       *parse.BinaryReader
	w       *bufio.Writer
	objects []tag
}

func (d *dumper) value(indent int) (failed bool) {
	if indent > maxDepth {
		d.r.Add(0, ErrNestingDepth)
		return true
	}
	var b uint8
	if d.r.Number(&b) {
		return true
	}
	t := tag(b)
	switch t {
	case tagNil, tagFalse, tagTrue:
		d.w.WriteString(t.String())
	case tagInt:
		var u uint64
		if d.r.Number(&u) {
			return true
		}
		fmt.Fprintf(d.w, "Int %d", int64(u))
	case tagFloat:
		var u uint64
		if d.r.Number(&u) {
			return true
		}
		fmt.Fprintf(d.w, "Float %s", strconv.FormatFloat(math.Float64frombits(u), 'g', -1, 64))
	case tagString:
		var s string
		if readString(d.r, &s) {
			return true
		}
		d.w.WriteString("String ")
		dumpString(d.w, indent, s)
	case tagTableRef, tagRecordRef:
		var index uint32
		if d.r.Number(&index) {
			return true
		}
		fmt.Fprintf(d.w, "%s @%d", t, index)
		if int64(index) >= int64(len(d.objects)) {
			d.w.WriteString(" (invalid)")
		}
	case tagTableNew:
		var index, count uint32
		if d.r.Number(&index) || d.r.Number(&count) {
			return true
		}
		d.objects = append(d.objects, t)
		fmt.Fprintf(d.w, "Table #%d (count:%d) {", index, count)
		for i := uint32(0); i < count; i++ {
			dumpNewline(d.w, indent+1)
			if d.value(indent + 1) {
				return true
			}
			d.w.WriteString(" = ")
			if d.value(indent + 1) {
				return true
			}
		}
		dumpNewline(d.w, indent)
		d.w.WriteByte('}')
	case tagRecordNew:
		var index, count uint32
		var typ string
		if d.r.Number(&index) || readString(d.r, &typ) || d.r.Number(&count) {
			return true
		}
		d.objects = append(d.objects, t)
		fmt.Fprintf(d.w, "Record #%d ", index)
		dumpString(d.w, indent, typ)
		fmt.Fprintf(d.w, " (count:%d) {", count)
		for i := uint32(0); i < count; i++ {
			var name string
			if readString(d.r, &name) {
				return true
			}
			dumpNewline(d.w, indent+1)
			dumpString(d.w, indent+1, name)
			d.w.WriteString(": ")
			if d.value(indent + 1) {
				return true
			}
		}
		dumpNewline(d.w, indent)
		d.w.WriteByte('}')
	default:
		d.r.Add(0, UnknownTagError(b))
		return true
	}
	return false
}

func dumpNewline(w *bufio.Writer, indent int) {
	w.WriteByte('\n')
	for i := 0; i < indent; i++ {
		w.WriteByte('\t')
	}
}

func dumpString(w *bufio.Writer, indent int, s string) {
	for _, r := range s {
		if !unicode.IsGraphic(r) {
			dumpBytes(w, indent, []byte(s))
			return
		}
	}
	fmt.Fprintf(w, "(len:%d) ", len(s))
	w.WriteString(strconv.Quote(s))
}

func dumpBytes(w *bufio.Writer, indent int, b []byte) {
	fmt.Fprintf(w, "(len:%d)", len(b))
	const width = 16
	for j := 0; j < len(b); j += width {
		dumpNewline(w, indent+1)
		w.WriteString("| ")
		for i := j; i < j+width; {
			if i < len(b) {
				s := strconv.FormatUint(uint64(b[i]), 16)
				if len(s) == 1 {
					w.WriteString("0")
				}
				w.WriteString(s)
			} else if len(b) < width {
				break
			} else {
				w.WriteString("  ")
			}
			i++
			if i%8 == 0 && i < j+width {
				w.WriteString("  ")
			} else {
				w.WriteString(" ")
			}
		}
		w.WriteString("|")
		n := len(b)
		if j+width < n {
			n = j + width
		}
		for i := j; i < n; i++ {
			if 32 <= b[i] && b[i] <= 126 {
				w.WriteRune(rune(b[i]))
			} else {
				w.WriteByte('.')
			}
		}
		w.WriteByte('|')
	}
}

// decodeError adds err to r, and returns the first error of r as a
// DataError. The end of the input within a value is reported as
// ErrTruncatedInput.
func decodeError(r *parse.BinaryReader, err error) error {
	r.Add(0, err)
	err = r.Err()
	if err == nil {
		return nil
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = ErrTruncatedInput
	}
	return DataError{Offset: r.N(), Cause: err}
}
