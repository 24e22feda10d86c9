package lsfile

// Equal returns whether two documents hold the same value graph. Primitive
// values are compared by value; floats are compared by bit pattern. Objects
// are compared structurally and by identity pattern: the n-th distinct
// object encountered in a must correspond to the n-th distinct object
// encountered in b, and every later occurrence of an object in a, whether
// reached by pointer or by Reference, must be an occurrence of its
// counterpart in b. Cycles are handled.
func Equal(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	c := comparer{a: a, b: b}
	return c.equal(a.Root, b.Root)
}

// EqualValue is like Equal, but compares two values outside of a document.
// References are compared by index.
func EqualValue(a, b Value) bool {
	var c comparer
	return c.equal(a, b)
}

type comparer struct {
	a, b  *Document
	pairs map[Object]Object
	rev   map[Object]Object
}

func (c *comparer) deref(doc *Document, v Value) (Value, bool) {
	v = orNil(v)
	if doc == nil {
		return v, true
	}
	v, err := doc.Deref(v)
	return v, err == nil
}

// pair records that x and y are counterparts. Returns ok if the pair is
// consistent with earlier pairs, and seen if the pair was already known.
func (c *comparer) pair(x, y Object) (ok, seen bool) {
	if c.pairs == nil {
		c.pairs = map[Object]Object{}
		c.rev = map[Object]Object{}
	}
	px, okx := c.pairs[x]
	py, oky := c.rev[y]
	if okx || oky {
		return px == y && py == x, true
	}
	c.pairs[x] = y
	c.rev[y] = x
	return true, false
}

func (c *comparer) equal(x, y Value) bool {
	x, okx := c.deref(c.a, x)
	y, oky := c.deref(c.b, y)
	if !okx || !oky {
		return false
	}
	if x.Kind() != y.Kind() {
		return false
	}
	switch x := x.(type) {
	case ValueFloat:
		return x.bits() == y.(ValueFloat).bits()
	case *Table:
		y := y.(*Table)
		ok, seen := c.pair(x, y)
		if !ok || seen {
			return ok
		}
		if len(x.Entries) != len(y.Entries) {
			return false
		}
		for i, e := range x.Entries {
			if !c.equal(e.Key, y.Entries[i].Key) || !c.equal(e.Value, y.Entries[i].Value) {
				return false
			}
		}
		return true
	case *Record:
		y := y.(*Record)
		ok, seen := c.pair(x, y)
		if !ok || seen {
			return ok
		}
		if x.Type != y.Type || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i, f := range x.Fields {
			if f.Name != y.Fields[i].Name || !c.equal(f.Value, y.Fields[i].Value) {
				return false
			}
		}
		return true
	default:
		return x == y
	}
}
