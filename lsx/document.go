package lsx

// Tag tree decoder adapted from the standard XML package. Only the subset of
// XML used by the format is supported: a prolog, elements, attributes,
// character and entity references, and comments.

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Tag represents an element of the markup.
type Tag struct {
	// Name is the name of the element.
	Name string

	// The attributes of the tag, in the order they appear.
	Attr []Attr

	// Empty indicates whether the tag has the empty-tag format. When
	// encoding, an Empty tag is written as <Name/> and its content is
	// ignored. When encoding a tag with no child tags, the empty-tag format
	// is used regardless.
	Empty bool

	// Text is the character data of the tag, with surrounding whitespace
	// removed. Text is only retained by the decoder; values of the format
	// are held in attributes.
	Text string

	// Tags is a list of child tags within the tag.
	Tags []*Tag

	// Line is the line on which the start tag begins. It is set by the
	// decoder.
	Line int
}

// AttrValue returns the value of the first attribute of the given name, and
// whether or not it exists.
func (t Tag) AttrValue(name string) (value string, exists bool) {
	for _, a := range t.Attr {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttrValue sets the value of the first attribute of the given name, or
// adds the attribute if it does not exist.
func (t *Tag) SetAttrValue(name, value string) {
	for i, a := range t.Attr {
		if a.Name == name {
			t.Attr[i].Value = value
			return
		}
	}
	t.Attr = append(t.Attr, Attr{Name: name, Value: value})
}

// Attr represents an attribute of a tag.
type Attr struct {
	Name  string
	Value string
}

////////////////////////////////////////////////////////////////

// prolog is the declaration written at the start of every document.
const prolog = `<?xml version="1.0" encoding="utf-8"?>`

// Document represents an entire markup document.
type Document struct {
	// Indent is a string that indicates one level of indentation. When
	// encoding, each child tag is written on its own line, preceded by one
	// Indent per level of nesting. If Indent is empty, the document is
	// written on a single line.
	Indent string

	// Root is the root tag in the document.
	Root *Tag
}

type decoder struct {
	r        io.ByteReader
	buf      bytes.Buffer
	nbuf     bytes.Buffer
	nextByte []byte
	n        int64
	err      error
	line     int
}

// Creates a MalformedTextError with the current line number.
func (d *decoder) syntaxError(msg string) error {
	return MalformedTextError{Line: d.line, Msg: msg}
}

// Read a single byte.
// If there is no byte to read, return ok==false
// and leave the error in d.err.
// Maintain line number.
func (d *decoder) getc() (b byte, ok bool) {
	if d.err != nil {
		return 0, false
	}

	if len(d.nextByte) > 0 {
		b, d.nextByte = d.nextByte[len(d.nextByte)-1], d.nextByte[:len(d.nextByte)-1]
	} else {
		b, d.err = d.r.ReadByte()
		if d.err != nil {
			return 0, false
		}
		d.n++
	}
	if b == '\n' {
		d.line++
	}

	return b, true
}

// Must read a single byte.
// If there is no byte to read,
// set d.err to a MalformedTextError
// and return ok==false
func (d *decoder) mustgetc() (b byte, ok bool) {
	if b, ok = d.getc(); !ok {
		if d.err == io.EOF {
			d.err = d.syntaxError("unexpected EOF")
		}
	}
	return
}

// Unread a single byte.
func (d *decoder) ungetc(b byte) {
	if b == '\n' {
		d.line--
	}
	d.nextByte = append(d.nextByte, b)
}

// Skip spaces if any
func (d *decoder) space() {
	for {
		b, ok := d.getc()
		if !ok {
			return
		}
		if !isSpace(b) {
			d.ungetc(b)
			return
		}
	}
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\r', '\n', '\t', '\f':
		return true
	default:
		return false
	}
}

// expect reads s, or fails with msg.
func (d *decoder) expect(s, msg string) bool {
	for i := 0; i < len(s); i++ {
		b, ok := d.mustgetc()
		if !ok {
			return false
		}
		if b != s[i] {
			d.err = d.syntaxError(msg)
			return false
		}
	}
	return true
}

// skipUntil reads up to and including the terminator s.
func (d *decoder) skipUntil(s string) bool {
	window := make([]byte, 0, len(s))
	for {
		b, ok := d.mustgetc()
		if !ok {
			return false
		}
		if len(window) == len(s) {
			window = append(window[:0], window[1:]...)
		}
		window = append(window, b)
		if string(window) == s {
			return true
		}
	}
}

// misc skips whitespace, comments and processing instructions that may
// appear outside of the root tag. It stops before a start tag or at EOF.
func (d *decoder) misc(allowProlog bool) bool {
	for {
		d.space()
		b, ok := d.getc()
		if !ok {
			if d.err == io.EOF {
				return true
			}
			return false
		}
		if b != '<' {
			d.ungetc(b)
			return true
		}
		c, ok := d.mustgetc()
		if !ok {
			return false
		}
		switch c {
		case '?':
			if !allowProlog {
				d.err = d.syntaxError("unexpected processing instruction")
				return false
			}
			if !d.skipUntil("?>") {
				return false
			}
			allowProlog = false
		case '!':
			if !d.comment() {
				return false
			}
		default:
			d.ungetc(c)
			d.ungetc('<')
			return true
		}
	}
}

// comment reads the remainder of a comment, after "<!".
func (d *decoder) comment() bool {
	if !d.expect("--", "expected comment after <!") {
		return false
	}
	return d.skipUntil("-->")
}

func (d *decoder) decodeStartTag(tag *Tag) bool {
	if !d.expect("<", "expected start tag") {
		return false
	}
	tag.Line = d.line

	var ok bool
	if tag.Name, ok = d.name(nameTag); !ok {
		if d.err == nil {
			d.err = d.syntaxError("expected element name after <")
		}
		return false
	}

	for {
		d.space()
		b, ok := d.mustgetc()
		if !ok {
			return false
		}
		if b == '/' {
			tag.Empty = true
			if !d.expect(">", "expected /> in element") {
				return false
			}
			return true
		}
		if b == '>' {
			return true
		}
		d.ungetc(b)

		var a Attr
		if a.Name, ok = d.name(nameAttr); !ok {
			if d.err == nil {
				d.err = d.syntaxError("expected attribute name in element <" + tag.Name + ">")
			}
			return false
		}
		if _, dup := tag.AttrValue(a.Name); dup {
			d.err = d.syntaxError("duplicate attribute " + a.Name + " in element <" + tag.Name + ">")
			return false
		}
		d.space()
		if !d.expect("=", "attribute name without = in element <"+tag.Name+">") {
			return false
		}
		d.space()
		data, ok := d.attrval()
		if !ok {
			return false
		}
		a.Value = string(data)
		tag.Attr = append(tag.Attr, a)
	}
}

func (d *decoder) decodeEndTag(tag *Tag) bool {
	name, ok := d.name(nameTag)
	if !ok {
		if d.err == nil {
			d.err = d.syntaxError("expected element name after </")
		}
		return false
	}
	if name != tag.Name {
		d.err = d.syntaxError("element <" + tag.Name + "> on line " + strconv.Itoa(tag.Line) + " closed by </" + name + ">")
		return false
	}
	d.space()
	return d.expect(">", "invalid characters between </"+name+" and >")
}

func (d *decoder) decodeTag(depth int) (tag *Tag, ok bool) {
	if depth > maxDepth {
		d.err = d.syntaxError("elements nested too deeply")
		return nil, false
	}

	tag = new(Tag)
	if !d.decodeStartTag(tag) {
		return nil, false
	}
	if tag.Empty {
		return tag, true
	}

	var text []byte
	for {
		data, ok := d.text(-1)
		if !ok {
			if d.err == io.EOF {
				d.err = d.syntaxError("element <" + tag.Name + "> on line " + strconv.Itoa(tag.Line) + " is not closed")
			}
			return nil, false
		}
		text = append(text, data...)

		if !d.expect("<", "expected tag") {
			return nil, false
		}
		b, ok := d.mustgetc()
		if !ok {
			return nil, false
		}
		switch b {
		case '/':
			if !d.decodeEndTag(tag) {
				return nil, false
			}
			tag.Text = string(bytes.TrimFunc(text, func(r rune) bool {
				return r < utf8.RuneSelf && isSpace(byte(r))
			}))
			return tag, true
		case '!':
			if !d.comment() {
				return nil, false
			}
		default:
			d.ungetc(b)
			d.ungetc('<')
			sub, ok := d.decodeTag(depth + 1)
			if !ok {
				return nil, false
			}
			tag.Tags = append(tag.Tags, sub)
		}
	}
}

func (d *decoder) attrval() ([]byte, bool) {
	b, ok := d.mustgetc()
	if !ok {
		return nil, false
	}
	// Handle quoted attribute values
	if b == '"' || b == '\'' {
		data, ok := d.text(int(b))
		if ok {
			return data, true
		}
		if d.err == io.EOF {
			d.err = d.syntaxError("unexpected EOF in attribute value")
		}
		return nil, false
	}

	d.err = d.syntaxError("unquoted or missing attribute value in element")
	return nil, false
}

var entity = map[string]byte{
	"lt":   '<',
	"gt":   '>',
	"amp":  '&',
	"apos": '\'',
	"quot": '"',
}

// Read plain text section (XML calls it character data).
// If quote >= 0, we are in a quoted string and need to find the matching
// quote. Otherwise, the text ends before the next <, which is left unread.
// On failure return ok==false and leave the error in d.err.
//
// A numeric character reference to a code point below 256 produces a single
// byte, so that arbitrary bytes can be represented. Larger code points
// produce UTF-8.
func (d *decoder) text(quote int) (data []byte, ok bool) {
	d.buf.Reset()
	for {
		b, ok := d.getc()
		if !ok {
			return nil, false
		}
		if quote >= 0 && b == byte(quote) {
			break
		}
		if b == '<' {
			if quote >= 0 {
				d.err = d.syntaxError("unescaped < in attribute value")
				return nil, false
			}
			d.ungetc('<')
			break
		}
		if b != '&' {
			d.buf.WriteByte(b)
			continue
		}

		if b, ok = d.mustgetc(); !ok {
			return nil, false
		}
		if b == '#' {
			if b, ok = d.mustgetc(); !ok {
				return nil, false
			}
			base := 10
			if b == 'x' {
				base = 16
				if b, ok = d.mustgetc(); !ok {
					return nil, false
				}
			}
			var digits []byte
			for '0' <= b && b <= '9' ||
				base == 16 && 'a' <= b && b <= 'f' ||
				base == 16 && 'A' <= b && b <= 'F' {
				digits = append(digits, b)
				if b, ok = d.mustgetc(); !ok {
					return nil, false
				}
			}
			if b != ';' {
				d.err = d.syntaxError("character reference without ;")
				return nil, false
			}
			n, err := strconv.ParseUint(string(digits), base, 32)
			if err != nil || n > unicode.MaxRune {
				d.err = d.syntaxError("invalid character reference &#" + string(digits) + ";")
				return nil, false
			}
			if n <= 255 {
				d.buf.WriteByte(byte(n))
			} else {
				d.buf.WriteRune(rune(n))
			}
			continue
		}

		d.ungetc(b)
		name, ok := d.name(nameEntity)
		if !ok {
			if d.err == nil {
				d.err = d.syntaxError("expected entity name after &")
			}
			return nil, false
		}
		if !d.expect(";", "entity &"+name+" without ;") {
			return nil, false
		}
		c, ok := entity[name]
		if !ok {
			d.err = d.syntaxError("unknown entity &" + name + ";")
			return nil, false
		}
		d.buf.WriteByte(c)
	}

	data = make([]byte, d.buf.Len())
	copy(data, d.buf.Bytes())
	return data, true
}

// Get name: /first(first|second)*/
// Do not set d.err if the name is missing (unless unexpected EOF is received):
// let the caller provide better context.
func (d *decoder) name(typ int) (s string, ok bool) {
	d.nbuf.Reset()
	var b byte
	if b, ok = d.mustgetc(); !ok {
		return "", false
	}
	if !isNameByte(b, typ) {
		d.ungetc(b)
		return "", false
	}
	d.nbuf.WriteByte(b)

	for {
		if b, ok = d.mustgetc(); !ok {
			return "", false
		}
		if !isNameByte(b, typ) {
			d.ungetc(b)
			break
		}
		d.nbuf.WriteByte(b)
	}
	return d.nbuf.String(), true
}

const (
	nameTag = iota
	nameAttr
	nameEntity
)

func isNameByte(c byte, t int) bool {
	if '!' <= c && c <= '~' && c != '>' && c != '/' && c != '<' {
		switch t {
		case nameAttr:
			return c != '=' && c != '"' && c != '\''
		case nameEntity:
			return c != ';' && c != '&'
		}
		return true
	}
	return false
}

// ReadFrom decodes data from r into the Document.
func (doc *Document) ReadFrom(r io.Reader) (n int64, err error) {
	if r == nil {
		return 0, errors.New("reader is nil")
	}

	d := &decoder{
		nextByte: make([]byte, 0, 9),
		line:     1,
	}
	if rb, ok := r.(io.ByteReader); ok {
		d.r = rb
	} else {
		d.r = bufio.NewReader(r)
	}

	// Byte order mark.
	if b, ok := d.getc(); ok {
		if b == 0xEF {
			if !d.expect("\xBB\xBF", "invalid byte order mark") {
				return d.n, d.err
			}
		} else {
			d.ungetc(b)
		}
	}

	if !d.misc(true) {
		return d.n, d.err
	}
	if d.err == io.EOF {
		return d.n, MalformedTextError{Line: d.line, Msg: "missing root element"}
	}
	root, ok := d.decodeTag(0)
	if !ok {
		return d.n, d.err
	}
	if !d.misc(false) {
		return d.n, d.err
	}
	if d.err != io.EOF {
		return d.n, d.syntaxError("unexpected data after root element")
	}

	doc.Root = root
	return d.n, nil
}

////////////////////////////////////////////////////////////////

type encoder struct {
	*bufio.Writer
	d     *Document
	depth int
	n     int64
	err   error
}

func (e *encoder) checkName(name string, typ int) bool {
	if len(name) == 0 {
		return false
	}
	for _, c := range []byte(name) {
		if !isNameByte(c, typ) {
			return false
		}
	}
	return true
}

func (e *encoder) encodeTag(tag *Tag) bool {
	if e.err != nil {
		return false
	}
	if !e.checkName(tag.Name, nameTag) {
		e.err = errors.New("malformed tag name `" + tag.Name + "`")
		return false
	}

	e.writeByte('<')
	e.writeString(tag.Name)
	for _, attr := range tag.Attr {
		if !e.checkName(attr.Name, nameAttr) {
			e.err = errors.New("malformed attribute name `" + attr.Name + "`")
			return false
		}
		e.writeByte(' ')
		e.writeString(attr.Name)
		e.writeString(`="`)
		e.escapeString(attr.Value)
		e.writeByte('"')
	}

	if tag.Empty || len(tag.Tags) == 0 {
		e.writeString("/>")
		return e.err == nil
	}
	e.writeByte('>')

	// A tag whose children have no children of their own is kept on one
	// line.
	inline := true
	for _, sub := range tag.Tags {
		if len(sub.Tags) > 0 {
			inline = false
			break
		}
	}
	if !inline {
		e.depth++
	}
	for _, sub := range tag.Tags {
		if !inline {
			e.writeIndent()
		}
		if !e.encodeTag(sub) {
			return false
		}
	}
	if !inline {
		e.depth--
		e.writeIndent()
	}

	e.writeString("</")
	e.writeString(tag.Name)
	e.writeByte('>')
	return e.err == nil
}

func (e *encoder) write(p []byte) bool {
	if e.err != nil {
		return false
	}
	n, err := e.Write(p)
	e.n += int64(n)
	if err != nil {
		e.err = err
		return false
	}
	return true
}

func (e *encoder) writeByte(b byte) bool {
	if e.err != nil {
		return false
	}
	if err := e.WriteByte(b); err != nil {
		e.err = err
		return false
	}
	e.n += 1
	return true
}

func (e *encoder) writeString(s string) bool {
	if e.err != nil {
		return false
	}
	n, err := e.WriteString(s)
	e.n += int64(n)
	if err != nil {
		e.err = err
		return false
	}
	return true
}

func (e *encoder) writeIndent() {
	if len(e.d.Indent) == 0 {
		return
	}
	e.writeByte('\n')
	for i := 0; i < e.depth; i++ {
		e.writeString(e.d.Indent)
	}
}

var (
	esc_quot = []byte("&quot;")
	esc_apos = []byte("&apos;")
	esc_amp  = []byte("&amp;")
	esc_lt   = []byte("&lt;")
	esc_gt   = []byte("&gt;")
)

// escapeString writes the properly escaped equivalent of the plain text data
// s. Printable ASCII and printable UTF-8 sequences are written as is. Any
// other byte, including whitespace other than a space, is written as a
// numeric character reference, so that the decoded value is byte-exact.
func (e *encoder) escapeString(s string) {
	var esc []byte
	last := 0
	for i := 0; i < len(s); {
		b := s[i]
		switch b {
		case '"':
			esc = esc_quot
		case '\'':
			esc = esc_apos
		case '&':
			esc = esc_amp
		case '<':
			esc = esc_lt
		case '>':
			esc = esc_gt
		default:
			if ' ' <= b && b <= '~' {
				// literal
				i++
				continue
			}
			if b >= utf8.RuneSelf {
				r, size := utf8.DecodeRuneInString(s[i:])
				if size > 1 && unicode.IsPrint(r) {
					// literal
					i += size
					continue
				}
			}
			esc = []byte("&#" + strconv.Itoa(int(b)) + ";")
		}

		e.writeString(s[last:i])
		e.write(esc)
		i++
		last = i
	}
	e.writeString(s[last:])
}

// WriteTo encodes the Document as bytes to w. The prolog is always written.
func (doc *Document) WriteTo(w io.Writer) (n int64, err error) {
	if doc.Root == nil {
		return 0, errors.New("document has no root")
	}
	e := &encoder{Writer: bufio.NewWriter(w), d: doc}

	e.writeString(prolog)
	e.writeByte('\n')
	if !e.encodeTag(doc.Root) {
		return e.n, e.err
	}
	e.writeByte('\n')
	if e.err == nil {
		e.err = e.Flush()
	}
	return e.n, e.err
}
