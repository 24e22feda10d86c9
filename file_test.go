package lsfile_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/liteser/lsfile"
)

func str(s string) lsfile.Value { return lsfile.ValueString(s) }

func TestNewDocument(t *testing.T) {
	inner := lsfile.NewTable()
	player := lsfile.NewRecord("Player",
		lsfile.Field{Name: "name", Value: str("Bob")},
		lsfile.Field{Name: "bag", Value: inner},
	)
	root := lsfile.NewTable(
		lsfile.Entry{Key: str("a"), Value: player},
		lsfile.Entry{Key: str("b"), Value: inner},
		lsfile.Entry{Key: str("c"), Value: lsfile.Reference{Index: 1}},
	)
	doc, err := lsfile.NewDocument(root)
	if err != nil {
		t.Fatal(err)
	}
	want := []lsfile.Object{root, player, inner}
	if len(doc.Objects) != len(want) {
		t.Fatalf("expected %d objects, got %d", len(want), len(doc.Objects))
	}
	for i, obj := range want {
		if doc.Objects[i] != obj {
			t.Errorf("object %d: expected %v, got %v", i, obj, doc.Objects[i])
		}
	}

	obj, err := doc.Resolve(lsfile.Reference{Index: 1})
	if err != nil || obj != player {
		t.Errorf("Resolve(@1): got %v, %v", obj, err)
	}
	if _, err := doc.Resolve(lsfile.Reference{Index: 3}); err == nil {
		t.Error("Resolve(@3): expected error")
	}
	if v, err := doc.Deref(nil); err != nil || v != (lsfile.ValueNil{}) {
		t.Errorf("Deref(nil): got %v, %v", v, err)
	}
}

func TestNewDocumentForwardReference(t *testing.T) {
	root := lsfile.NewTable(
		lsfile.Entry{Key: lsfile.ValueInt(1), Value: lsfile.Reference{Index: 1}},
		lsfile.Entry{Key: lsfile.ValueInt(2), Value: lsfile.NewTable()},
	)
	_, err := lsfile.NewDocument(root)
	var refErr lsfile.BadReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("expected BadReferenceError, got %v", err)
	}
	if refErr.Index != 1 || refErr.Len != 1 {
		t.Errorf("unexpected error fields %+v", refErr)
	}
}

func TestWalk(t *testing.T) {
	root := lsfile.NewTable()
	root.Entries = []lsfile.Entry{
		{Key: str("self"), Value: root},
		{Key: str("r"), Value: lsfile.NewRecord("Vector2",
			lsfile.Field{Name: "x", Value: lsfile.ValueInt(1)},
		)},
	}
	doc, err := lsfile.NewDocument(root)
	if err != nil {
		t.Fatal(err)
	}

	type visit struct {
		Kind  string
		Depth int
	}
	var got []visit
	err = doc.Walk(func(v lsfile.Value, depth int) error {
		got = append(got, visit{v.Kind().String(), depth})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []visit{
		{"Table", 0},
		{"String", 1}, {"Table", 1},
		{"String", 1}, {"Record", 1},
		{"Int", 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("walk (-want +got):\n%s", diff)
	}

	stop := errors.New("stop")
	var n int
	err = doc.Walk(func(v lsfile.Value, depth int) error {
		n++
		if n == 2 {
			return stop
		}
		return nil
	})
	if err != stop || n != 2 {
		t.Errorf("expected walk to stop after 2 values, got %d, %v", n, err)
	}
}

func TestEqual(t *testing.T) {
	build := func(share bool, nan uint64) *lsfile.Document {
		a := lsfile.NewTable(lsfile.Entry{Key: lsfile.ValueInt(1), Value: lsfile.ValueFloat(math.Float64frombits(nan))})
		b := a
		if !share {
			b = lsfile.NewTable(lsfile.Entry{Key: lsfile.ValueInt(1), Value: lsfile.ValueFloat(math.Float64frombits(nan))})
		}
		doc, err := lsfile.NewDocument(lsfile.NewTable(
			lsfile.Entry{Key: str("a"), Value: a},
			lsfile.Entry{Key: str("b"), Value: b},
		))
		if err != nil {
			t.Fatal(err)
		}
		return doc
	}
	const nan = 0x7FF8000000000001

	if !lsfile.Equal(build(true, nan), build(true, nan)) {
		t.Error("expected equal documents")
	}
	if lsfile.Equal(build(true, nan), build(false, nan)) {
		t.Error("sharing must be significant")
	}
	if lsfile.Equal(build(true, nan), build(true, nan+1)) {
		t.Error("floats must be compared by bits")
	}

	// A Reference is equal to the object it points to.
	obj := lsfile.NewTable()
	byPointer, _ := lsfile.NewDocument(lsfile.NewTable(
		lsfile.Entry{Key: lsfile.ValueInt(1), Value: obj},
		lsfile.Entry{Key: lsfile.ValueInt(2), Value: obj},
	))
	obj = lsfile.NewTable()
	byRef, _ := lsfile.NewDocument(lsfile.NewTable(
		lsfile.Entry{Key: lsfile.ValueInt(1), Value: obj},
		lsfile.Entry{Key: lsfile.ValueInt(2), Value: lsfile.Reference{Index: 1}},
	))
	if !lsfile.Equal(byPointer, byRef) {
		t.Error("expected reference to equal its target")
	}

	if !lsfile.EqualValue(lsfile.ValueFloat(math.Copysign(0, 1)), lsfile.ValueFloat(0)) {
		t.Error("expected 0 to equal 0")
	}
	if lsfile.EqualValue(lsfile.ValueFloat(math.Copysign(0, -1)), lsfile.ValueFloat(0)) {
		t.Error("expected -0 to differ from 0")
	}
	if !lsfile.EqualValue(nil, lsfile.ValueNil{}) {
		t.Error("expected nil to equal Nil")
	}
}

func TestEqualCycle(t *testing.T) {
	cycle := func() *lsfile.Document {
		a := lsfile.NewTable()
		b := lsfile.NewTable(lsfile.Entry{Key: str("a"), Value: a})
		a.Entries = append(a.Entries, lsfile.Entry{Key: str("b"), Value: b})
		doc, err := lsfile.NewDocument(a)
		if err != nil {
			t.Fatal(err)
		}
		return doc
	}
	if !lsfile.Equal(cycle(), cycle()) {
		t.Error("expected cyclic documents to be equal")
	}
}
