package lsfile_test

import (
	"math"
	"testing"

	"github.com/liteser/lsfile"
)

func TestKind_String(t *testing.T) {
	if lsfile.KindString.String() != "String" {
		t.Error("unexpected result from String")
	}

	if lsfile.Kind(0).String() != "Invalid" {
		t.Error("unexpected result from String")
	}
}

func TestKindFromString(t *testing.T) {
	if lsfile.KindFromString("Ref") != lsfile.KindReference {
		t.Error("unexpected result from KindFromString")
	}

	if lsfile.KindFromString("UnknownKind") != lsfile.KindInvalid {
		t.Error("unexpected result from KindFromString")
	}
}

type vtest struct {
	v lsfile.Value
	s string
	k lsfile.Kind
}

func TestValueString(t *testing.T) {
	for _, vt := range []vtest{
		{lsfile.ValueNil{}, "nil", lsfile.KindNil},
		{lsfile.ValueBool(true), "true", lsfile.KindBool},
		{lsfile.ValueBool(false), "false", lsfile.KindBool},
		{lsfile.ValueInt(-42), "-42", lsfile.KindInt},
		{lsfile.ValueFloat(0.1), "0.1", lsfile.KindFloat},
		{lsfile.ValueFloat(math.Inf(-1)), "-Inf", lsfile.KindFloat},
		{lsfile.ValueString("hi"), "hi", lsfile.KindString},
		{lsfile.Reference{Index: 3}, "@3", lsfile.KindReference},
		{lsfile.NewTable(lsfile.Entry{}), "Table[1]", lsfile.KindTable},
		{lsfile.NewRecord("Vector2"), "Vector2", lsfile.KindRecord},
	} {
		if s := vt.v.String(); s != vt.s {
			t.Errorf("%T: expected string %q, got %q", vt.v, vt.s, s)
		}
		if k := vt.v.Kind(); k != vt.k {
			t.Errorf("%T: expected kind %s, got %s", vt.v, vt.k, k)
		}
	}
}

func TestTable_GetSet(t *testing.T) {
	shared := lsfile.NewTable()
	tbl := lsfile.NewTable(
		lsfile.Entry{Key: lsfile.ValueInt(1), Value: lsfile.ValueString("one")},
		lsfile.Entry{Key: lsfile.ValueFloat(math.NaN()), Value: lsfile.ValueString("nan")},
		lsfile.Entry{Key: shared, Value: lsfile.ValueBool(true)},
	)

	if v, ok := tbl.Get(lsfile.ValueInt(1)); !ok || v != lsfile.ValueString("one") {
		t.Errorf("Get(1): got %v, %v", v, ok)
	}
	if _, ok := tbl.Get(lsfile.ValueFloat(1)); ok {
		t.Error("Get(1.0): Int and Float keys must differ")
	}
	if v, ok := tbl.Get(lsfile.ValueFloat(math.NaN())); !ok || v != lsfile.ValueString("nan") {
		t.Errorf("Get(NaN): got %v, %v", v, ok)
	}
	if _, ok := tbl.Get(lsfile.NewTable()); ok {
		t.Error("Get(table): objects must be matched by identity")
	}
	if v, ok := tbl.Get(shared); !ok || v != lsfile.ValueBool(true) {
		t.Errorf("Get(shared): got %v, %v", v, ok)
	}

	tbl.Set(lsfile.ValueInt(1), lsfile.ValueString("uno"))
	tbl.Set(lsfile.ValueString("new"), nil)
	if tbl.Len() != 4 {
		t.Fatalf("expected 4 entries, got %d", tbl.Len())
	}
	if tbl.Entries[0].Value != lsfile.ValueString("uno") {
		t.Error("Set did not replace existing entry in place")
	}
	if tbl.Entries[3].Key != lsfile.ValueString("new") {
		t.Error("Set did not append new entry")
	}
}

func TestRecord_GetSet(t *testing.T) {
	r := lsfile.NewRecord("Vector2", lsfile.Field{Name: "x", Value: lsfile.ValueFloat(1)})
	r.Set("y", lsfile.ValueFloat(2))
	r.Set("x", lsfile.ValueFloat(3))
	if len(r.Fields) != 2 || r.Fields[0].Name != "x" || r.Fields[1].Name != "y" {
		t.Fatalf("unexpected fields %v", r.Fields)
	}
	if v, ok := r.Get("x"); !ok || v != lsfile.ValueFloat(3) {
		t.Errorf("Get(x): got %v, %v", v, ok)
	}
	if _, ok := r.Get("z"); ok {
		t.Error("Get(z): expected no field")
	}
}
