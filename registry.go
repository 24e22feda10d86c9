package lsfile

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// UnknownTypeError indicates a record type name that is not registered.
type UnknownTypeError string

func (err UnknownTypeError) Error() string {
	return "unknown record type " + strconv.Quote(string(err))
}

// DuplicateTypeError indicates an attempt to register a type name that is
// already registered with a different list of fields.
type DuplicateTypeError struct {
	Name string
	// Fields is the field list that was already registered.
	Fields []string
}

func (err DuplicateTypeError) Error() string {
	return "record type " + strconv.Quote(err.Name) + " already registered with fields (" + strings.Join(err.Fields, ", ") + ")"
}

// FieldWarning reports a difference between the fields of a record and the
// fields registered for its type. It is a warning; the record is kept as is.
type FieldWarning struct {
	Type string
	// Unknown lists fields present in the record but not in the schema.
	Unknown []string
	// Missing lists schema fields absent from the record.
	Missing []string
}

func (w FieldWarning) Error() string {
	var s strings.Builder
	s.WriteString(w.Type)
	if len(w.Unknown) > 0 {
		s.WriteString(" - fields not part of type definition: ")
		s.WriteString(strings.Join(w.Unknown, ","))
	}
	if len(w.Missing) > 0 {
		s.WriteString(" - fields not present: ")
		s.WriteString(strings.Join(w.Missing, ","))
	}
	return s.String()
}

// Registry maps record type names to their ordered field names. A Registry
// is populated once at startup and read concurrently by codecs afterwards.
type Registry struct {
	mu    sync.RWMutex
	types map[string][]string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{types: map[string][]string{}}
}

// Register adds a record type. Registering a name again with an identical
// field list does nothing; with a different list, a DuplicateTypeError is
// returned.
func (r *Registry) Register(name string, fields ...string) error {
	if name == "" {
		return errors.New("empty record type name")
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f] {
			return errors.New("record type " + strconv.Quote(name) + " declares field " + strconv.Quote(f) + " twice")
		}
		seen[f] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.types == nil {
		r.types = map[string][]string{}
	}
	if prev, ok := r.types[name]; ok {
		if !sameFields(prev, fields) {
			return DuplicateTypeError{Name: name, Fields: append([]string(nil), prev...)}
		}
		return nil
	}
	r.types[name] = append([]string(nil), fields...)
	return nil
}

func sameFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Lookup returns the fields of the named type, or an UnknownTypeError.
func (r *Registry) Lookup(name string) ([]string, error) {
	if r == nil {
		return nil, UnknownTypeError(name)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fields, ok := r.types[name]
	if !ok {
		return nil, UnknownTypeError(name)
	}
	return append([]string(nil), fields...), nil
}

// Has returns whether the named type is registered.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[name]
	return ok
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateRecord checks rec against its registered type. An unregistered
// type returns an UnknownTypeError as err. Field mismatches are returned as
// a FieldWarning in warn.
func (r *Registry) ValidateRecord(rec *Record) (warn, err error) {
	schema, err := r.Lookup(rec.Type)
	if err != nil {
		return nil, err
	}
	return CheckFields(rec.Type, schema, rec.Fields), nil
}

// CheckFields compares field names against a schema, and returns a
// FieldWarning if they differ, or nil.
func CheckFields(typ string, schema []string, fields []Field) error {
	var w FieldWarning
	known := make(map[string]bool, len(schema))
	for _, name := range schema {
		known[name] = true
	}
	present := make(map[string]bool, len(fields))
	for _, f := range fields {
		present[f.Name] = true
		if !known[f.Name] {
			w.Unknown = append(w.Unknown, f.Name)
		}
	}
	for _, name := range schema {
		if !present[name] {
			w.Missing = append(w.Missing, name)
		}
	}
	if len(w.Unknown) == 0 && len(w.Missing) == 0 {
		return nil
	}
	w.Type = typ
	return w
}
