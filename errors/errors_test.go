package errors

import (
	"io"
	"os"
	"testing"
)

func TestAppend(t *testing.T) {
	var errs Errors
	errs = errs.Append(nil, io.EOF, Errors{os.ErrNotExist, nil}, Errors{})
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
	if !Is(errs, os.ErrNotExist) || !Is(errs, io.EOF) {
		t.Error("expected Is to match every error of the list")
	}
}

func TestError(t *testing.T) {
	for _, c := range []struct {
		errs Errors
		want string
	}{
		{Errors{}, "no errors"},
		{Errors{io.EOF}, "EOF"},
		{Errors{io.EOF, New("a\nb")}, "multiple errors:\n\tEOF\n\ta\n\tb"},
	} {
		if got := c.errs.Error(); got != c.want {
			t.Errorf("expected %q, got %q", c.want, got)
		}
	}
}

func TestUnion(t *testing.T) {
	if err := Union(nil, Errors{}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	err := Union(Errors{io.EOF}, os.ErrClosed)
	if errs, ok := err.(Errors); !ok || len(errs) != 2 {
		t.Errorf("unexpected union %#v", err)
	}
}
