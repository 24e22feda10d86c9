package lsfile_test

import (
	"errors"
	"testing"

	"github.com/liteser/lsfile"
)

func TestClone(t *testing.T) {
	inner := lsfile.NewTable(lsfile.Entry{Key: lsfile.ValueInt(1), Value: lsfile.ValueFloat(2.5)})
	player := lsfile.NewRecord("Player",
		lsfile.Field{Name: "name", Value: str("Bob")},
		lsfile.Field{Name: "bag", Value: inner},
	)
	root := lsfile.NewTable(
		lsfile.Entry{Key: str("a"), Value: player},
		lsfile.Entry{Key: str("b"), Value: inner},
		lsfile.Entry{Key: str("c"), Value: lsfile.Reference{Index: 1}},
	)
	// The player refers back to the root.
	player.Fields = append(player.Fields, lsfile.Field{Name: "owner", Value: root})
	doc, err := lsfile.NewDocument(root)
	if err != nil {
		t.Fatal(err)
	}

	clone, err := doc.Clone()
	if err != nil {
		t.Fatal(err)
	}
	if !lsfile.Equal(doc, clone) {
		t.Error("clone differs from document")
	}
	if len(clone.Objects) != len(doc.Objects) {
		t.Fatalf("expected %d objects, got %d", len(doc.Objects), len(clone.Objects))
	}
	for i, obj := range clone.Objects {
		for j, orig := range doc.Objects {
			if obj == orig {
				t.Errorf("object %d of clone is object %d of document", i, j)
			}
		}
	}

	croot := clone.Root.(*lsfile.Table)
	if croot != clone.Objects[0] {
		t.Error("root of clone is not its first object")
	}
	cplayer, _ := croot.Get(str("a"))
	cinner, _ := croot.Get(str("b"))
	if bag, _ := cplayer.(*lsfile.Record).Get("bag"); bag != cinner {
		t.Error("shared table was copied twice")
	}
	if owner, _ := cplayer.(*lsfile.Record).Get("owner"); owner != croot {
		t.Error("cycle not preserved")
	}

	cinner.(*lsfile.Table).Set(lsfile.ValueInt(1), lsfile.ValueNil{})
	if v, _ := inner.Get(lsfile.ValueInt(1)); v != lsfile.ValueFloat(2.5) {
		t.Errorf("modifying the clone changed the document: %v", v)
	}
	if lsfile.Equal(doc, clone) {
		t.Error("expected modified clone to differ")
	}
}

func TestCloneBadReference(t *testing.T) {
	doc := &lsfile.Document{Root: lsfile.NewTable(
		lsfile.Entry{Key: lsfile.ValueInt(1), Value: lsfile.Reference{Index: 4}},
	)}
	_, err := doc.Clone()
	var refErr lsfile.BadReferenceError
	if !errors.As(err, &refErr) || refErr.Index != 4 {
		t.Errorf("expected BadReferenceError, got %v", err)
	}

	empty, err := (&lsfile.Document{}).Clone()
	if err != nil {
		t.Fatal(err)
	}
	if empty.Root != (lsfile.ValueNil{}) || empty.Objects != nil {
		t.Errorf("unexpected clone of empty document %+v", empty)
	}
}
