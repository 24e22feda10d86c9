package ls2

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/liteser/lsfile"
)

func testRegistry(t *testing.T) *lsfile.Registry {
	t.Helper()
	reg := lsfile.NewRegistry()
	if err := reg.Register("Player", "name", "friends"); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register("Vector2", "x", "y"); err != nil {
		t.Fatal(err)
	}
	return reg
}

func mustDocument(t *testing.T, root lsfile.Value) *lsfile.Document {
	t.Helper()
	doc, err := lsfile.NewDocument(root)
	if err != nil {
		t.Fatalf("NewDocument: %s", err)
	}
	return doc
}

func encode(t *testing.T, e Encoder, doc *lsfile.Document) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := e.Encode(&buf, doc); err != nil {
		t.Fatalf("Encode: %s", err)
	}
	return buf.Bytes()
}

func testDocuments() map[string]func() lsfile.Value {
	return map[string]func() lsfile.Value{
		"nil":    func() lsfile.Value { return lsfile.ValueNil{} },
		"true":   func() lsfile.Value { return lsfile.ValueBool(true) },
		"false":  func() lsfile.Value { return lsfile.ValueBool(false) },
		"int":    func() lsfile.Value { return lsfile.ValueInt(math.MinInt64) },
		"float":  func() lsfile.Value { return lsfile.ValueFloat(3.25) },
		"nan":    func() lsfile.Value { return lsfile.ValueFloat(math.NaN()) },
		"negz":   func() lsfile.Value { return lsfile.ValueFloat(math.Copysign(0, -1)) },
		"inf":    func() lsfile.Value { return lsfile.ValueFloat(math.Inf(-1)) },
		"string": func() lsfile.Value { return lsfile.ValueString("a\x00\xFFb") },
		"empty":  func() lsfile.Value { return lsfile.NewTable() },
		"table": func() lsfile.Value {
			return lsfile.NewTable(
				lsfile.Entry{Key: lsfile.ValueString("b"), Value: lsfile.ValueInt(2)},
				lsfile.Entry{Key: lsfile.ValueString("a"), Value: lsfile.ValueInt(1)},
				lsfile.Entry{Key: lsfile.ValueFloat(1.5), Value: lsfile.ValueBool(true)},
				lsfile.Entry{Key: lsfile.NewTable(), Value: lsfile.ValueNil{}},
			)
		},
		"record": func() lsfile.Value {
			return lsfile.NewRecord("Player",
				lsfile.Field{Name: "name", Value: lsfile.ValueString("Bob")},
				lsfile.Field{Name: "friends", Value: lsfile.NewTable()},
			)
		},
		"shared": func() lsfile.Value {
			v := lsfile.NewRecord("Vector2",
				lsfile.Field{Name: "x", Value: lsfile.ValueFloat(1)},
				lsfile.Field{Name: "y", Value: lsfile.ValueFloat(2)},
			)
			return lsfile.NewTable(
				lsfile.Entry{Key: lsfile.ValueInt(1), Value: v},
				lsfile.Entry{Key: lsfile.ValueInt(2), Value: v},
			)
		},
		"cycle": func() lsfile.Value {
			t := lsfile.NewTable()
			t.Set(lsfile.ValueString("self"), t)
			return t
		},
		"mutual": func() lsfile.Value {
			p := lsfile.NewRecord("Player", lsfile.Field{Name: "name", Value: lsfile.ValueString("Bob")})
			friends := lsfile.NewTable(lsfile.Entry{Key: lsfile.ValueInt(1), Value: p})
			p.Set("friends", friends)
			return p
		},
	}
}

func TestRoundTrip(t *testing.T) {
	reg := testRegistry(t)
	for _, compressed := range []bool{false, true} {
		for name, root := range testDocuments() {
			doc := mustDocument(t, root())
			b := encode(t, Encoder{Registry: reg, Compressed: compressed}, doc)
			got, warn, err := Decoder{Registry: reg}.Decode(bytes.NewReader(b))
			if err != nil {
				t.Errorf("%s (compressed=%t): decode error: %s", name, compressed, err)
				continue
			}
			if warn != nil {
				t.Errorf("%s (compressed=%t): unexpected warning: %s", name, compressed, warn)
			}
			if !lsfile.Equal(doc, got) {
				t.Errorf("%s (compressed=%t): decoded document differs", name, compressed)
			}
			// Deterministic reencoding.
			b2 := encode(t, Encoder{Registry: reg, Compressed: compressed}, got)
			if diff := cmp.Diff(b, b2); diff != "" {
				t.Errorf("%s (compressed=%t): reencoding differs (-want +got):\n%s", name, compressed, diff)
			}
		}
	}
}

func TestEncodeBytes(t *testing.T) {
	doc := mustDocument(t, lsfile.NewTable(
		lsfile.Entry{Key: lsfile.ValueInt(1), Value: lsfile.ValueString("a")},
		lsfile.Entry{Key: lsfile.ValueBool(true), Value: lsfile.ValueNil{}},
	))
	want := []byte{
		'L', 'S', 3, 0,
		0xC1, 0, 0, 0, 0, 2, 0, 0, 0,
		0x07, 1, 0, 0, 0, 0, 0, 0, 0,
		0x81, 1, 0, 0, 0, 'a',
		0x41,
		0x00,
	}
	got := encode(t, Encoder{}, doc)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected encoding (-want +got):\n%s", diff)
	}
}

func TestSharedObject(t *testing.T) {
	shared := lsfile.NewTable(lsfile.Entry{Key: lsfile.ValueInt(1), Value: lsfile.ValueInt(2)})
	doc := mustDocument(t, lsfile.NewTable(
		lsfile.Entry{Key: lsfile.ValueString("a"), Value: shared},
		lsfile.Entry{Key: lsfile.ValueString("b"), Value: shared},
		lsfile.Entry{Key: lsfile.ValueString("c"), Value: lsfile.Reference{Index: 1}},
	))
	b := encode(t, Encoder{}, doc)

	var stats DecoderStats
	got, _, err := Decoder{Stats: &stats}.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	if stats.Tables != 2 {
		t.Errorf("expected 2 new tables, got %d", stats.Tables)
	}
	if stats.Refs != 2 {
		t.Errorf("expected 2 table refs, got %d", stats.Refs)
	}
	if len(got.Objects) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(got.Objects))
	}
	root := got.Root.(*lsfile.Table)
	a, _ := root.Get(lsfile.ValueString("a"))
	if a != got.Objects[1] {
		t.Errorf("first occurrence is not the shared object")
	}
	for _, key := range []string{"b", "c"} {
		v, _ := root.Get(lsfile.ValueString(key))
		if v != (lsfile.Reference{Index: 1}) {
			t.Errorf("%s: expected reference @1, got %v", key, v)
		}
	}
}

func TestCycle(t *testing.T) {
	table := lsfile.NewTable()
	table.Set(lsfile.ValueInt(1), table)
	doc := mustDocument(t, table)
	b := encode(t, Encoder{}, doc)
	got, _, err := Decoder{}.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	root := got.Root.(*lsfile.Table)
	v, _ := root.Get(lsfile.ValueInt(1))
	if v != (lsfile.Reference{Index: 0}) {
		t.Fatalf("expected reference to root, got %v", v)
	}
	if obj, _ := got.Resolve(v.(lsfile.Reference)); obj != root {
		t.Errorf("reference does not resolve to root")
	}
}

func TestTruncatedInput(t *testing.T) {
	reg := testRegistry(t)
	doc := mustDocument(t, testDocuments()["mutual"]())
	b := encode(t, Encoder{Registry: reg}, doc)
	for n := 0; n < len(b); n++ {
		_, _, err := Decoder{Registry: reg}.Decode(bytes.NewReader(b[:n]))
		if !errors.Is(err, ErrTruncatedInput) {
			t.Errorf("length %d: expected truncated input error, got %v", n, err)
		}
		var derr DataError
		if errors.As(err, &derr) && derr.Offset > int64(n) {
			t.Errorf("length %d: offset %d past end of input", n, derr.Offset)
		}
	}
}

func compressedHeader(compressed, decompressed uint32) string {
	var b []byte
	b = append(b, "LZ\x03\x00"...)
	b = binary.LittleEndian.AppendUint32(b, compressed)
	b = binary.LittleEndian.AppendUint32(b, decompressed)
	b = binary.LittleEndian.AppendUint32(b, 0)
	return string(b)
}

func TestCompressedLengths(t *testing.T) {
	// A header declaring a large block must not allocate before the block
	// has been read.
	input := compressedHeader(1<<30, 1<<30)
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, _, err := Decoder{}.Decode(strings.NewReader(input))
	runtime.ReadMemStats(&after)
	if !errors.Is(err, ErrTruncatedInput) {
		t.Errorf("expected truncated input error, got %v", err)
	}
	if n := after.TotalAlloc - before.TotalAlloc; n > 16<<20 {
		t.Errorf("allocated %d bytes for a %d byte input", n, len(input))
	}

	_, _, err = Decoder{}.Decode(strings.NewReader(compressedHeader(1, 1000) + "\x00"))
	if !errors.Is(err, ErrPayloadRatio) {
		t.Errorf("expected expansion error, got %v", err)
	}
	_, _, err = Decoder{}.Decode(strings.NewReader(compressedHeader(0, 1)))
	if !errors.Is(err, ErrPayloadRatio) {
		t.Errorf("empty block: expected expansion error, got %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	reg := testRegistry(t)
	tests := []struct {
		name  string
		input string
		check func(err error) bool
	}{
		{"signature", "XX\x03\x00\x00", func(err error) bool {
			return errors.Is(err, ErrInvalidSig)
		}},
		{"version", "LS\x04\x00\x00", func(err error) bool {
			var e ErrUnrecognizedVersion
			return errors.As(err, &e) && e.Major == 4
		}},
		{"tag", "LS\x03\x00\x99", func(err error) bool {
			var e UnknownTagError
			return errors.As(err, &e) && e == 0x99
		}},
		{"ref out of range", "LS\x03\x00\xC2\x00\x00\x00\x00", func(err error) bool {
			var e lsfile.BadReferenceError
			return errors.As(err, &e) && e.Index == 0 && e.Len == 0
		}},
		{"forward index", "LS\x03\x00\xC1\x01\x00\x00\x00\x00\x00\x00\x00", func(err error) bool {
			return errors.Is(err, lsfile.ErrForwardIndex)
		}},
		{"ref kind", "LS\x03\x00\xC1\x00\x00\x00\x00\x01\x00\x00\x00\x00\x62\x00\x00\x00\x00", func(err error) bool {
			return errors.Is(err, lsfile.ErrRefKind)
		}},
		{"unknown type", "LS\x03\x00\x61\x00\x00\x00\x00\x05\x00\x00\x00Ghost\x00\x00\x00\x00", func(err error) bool {
			var e lsfile.UnknownTypeError
			return errors.As(err, &e) && e == "Ghost"
		}},
	}
	for _, test := range tests {
		names := reg.Names()
		_, _, err := Decoder{Registry: reg}.Decode(strings.NewReader(test.input))
		if err == nil {
			t.Errorf("%s: expected error", test.name)
			continue
		}
		if !test.check(err) {
			t.Errorf("%s: unexpected error %v", test.name, err)
		}
		if diff := cmp.Diff(names, reg.Names()); diff != "" {
			t.Errorf("%s: registry modified (-want +got):\n%s", test.name, diff)
		}
	}
}

func TestEncodeErrors(t *testing.T) {
	reg := testRegistry(t)

	doc := &lsfile.Document{Root: lsfile.NewRecord("Ghost")}
	var e lsfile.UnknownTypeError
	if err := (Encoder{Registry: reg}).Encode(&bytes.Buffer{}, doc); !errors.As(err, &e) {
		t.Errorf("expected unknown type error, got %v", err)
	}

	// A reference to an object that is only written later.
	later := lsfile.NewTable()
	doc = &lsfile.Document{
		Root: lsfile.NewTable(
			lsfile.Entry{Key: lsfile.ValueInt(1), Value: lsfile.Reference{Index: 1}},
			lsfile.Entry{Key: lsfile.ValueInt(2), Value: later},
		),
	}
	doc.Objects = []lsfile.Object{doc.Root.(lsfile.Object), later}
	var r lsfile.BadReferenceError
	if err := (Encoder{}).Encode(&bytes.Buffer{}, doc); !errors.As(err, &r) {
		t.Errorf("expected bad reference error, got %v", err)
	}
}

func TestWarnings(t *testing.T) {
	reg := testRegistry(t)
	doc := mustDocument(t, lsfile.NewRecord("Vector2",
		lsfile.Field{Name: "x", Value: lsfile.ValueFloat(1)},
		lsfile.Field{Name: "z", Value: lsfile.ValueFloat(2)},
	))
	b := encode(t, Encoder{Registry: reg}, doc)
	b = append(b, 0xFF)

	got, warn, err := Decoder{Registry: reg}.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	if !lsfile.Equal(doc, got) {
		t.Errorf("decoded document differs")
	}
	var fw lsfile.FieldWarning
	if !errors.As(warn, &fw) {
		t.Fatalf("expected field warning, got %v", warn)
	}
	if diff := cmp.Diff([]string{"z"}, fw.Unknown); diff != "" {
		t.Errorf("unknown fields (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"y"}, fw.Missing); diff != "" {
		t.Errorf("missing fields (-want +got):\n%s", diff)
	}
	if !errors.Is(warn, ErrTrailingData) {
		t.Errorf("expected trailing data warning, got %v", warn)
	}
}

func TestDecompress(t *testing.T) {
	reg := testRegistry(t)
	doc := mustDocument(t, testDocuments()["shared"]())
	plain := encode(t, Encoder{Registry: reg}, doc)
	compressed := encode(t, Encoder{Registry: reg, Compressed: true}, doc)
	if !bytes.HasPrefix(compressed, []byte("LZ\x03\x00")) {
		t.Fatalf("unexpected compressed header % X", compressed[:4])
	}

	var stats DecoderStats
	if _, _, err := (Decoder{Registry: reg, Stats: &stats}).Decode(bytes.NewReader(compressed)); err != nil {
		t.Fatal(err)
	}
	if !stats.Compressed || stats.StreamSize != int64(len(plain)-4) {
		t.Errorf("unexpected stats %+v", stats)
	}

	var out bytes.Buffer
	if _, err := (Decoder{}).Decompress(&out, bytes.NewReader(compressed)); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(plain, out.Bytes()); diff != "" {
		t.Errorf("decompressed output differs (-want +got):\n%s", diff)
	}
}

func TestDump(t *testing.T) {
	reg := testRegistry(t)
	doc := mustDocument(t, testDocuments()["mutual"]())
	b := encode(t, Encoder{Registry: reg}, doc)

	var out bytes.Buffer
	// Dump does not require the types to be registered.
	if _, err := (Decoder{}).Dump(&out, bytes.NewReader(b)); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Version: 3.0",
		"Record #0 (len:6) \"Player\"",
		"Table #1 (count:1) {",
		"Record-ref @0",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("dump does not contain %q:\n%s", want, out.String())
		}
	}
}
