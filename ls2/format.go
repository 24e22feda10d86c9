// Package ls2 implements a decoder and encoder for the Liteser Binary
// format.
//
// A file begins with a four byte header: the signature "LS" followed by the
// major and minor format version. The header is followed by a stream
// containing exactly one root value. Each value begins with a tag byte,
// followed by a payload that depends on the tag. All numbers are
// little-endian.
//
// Tables and records are written in full the first time they are
// encountered, along with their index in the shared-object table. Later
// occurrences are written as a reference to that index.
//
// Alternatively, the header may have the signature "LZ", in which case it is
// followed by a compressed length, a decompressed length, four reserved
// bytes, and an lz4 block that decompresses to the value stream.
package ls2

import "strconv"

const (
	// sigPlain is the signature of an uncompressed file.
	sigPlain = "LS"
	// sigCompressed is the signature of a compressed file.
	sigCompressed = "LZ"
)

// Version of the format produced by the encoder.
const (
	VersionMajor = 3
	VersionMinor = 0
)

// maxPayload is the largest decompressed stream accepted by the decoder.
const maxPayload = 1 << 30

// maxExpansion is the largest ratio of decompressed to compressed length of
// an lz4 block.
const maxExpansion = 255

// tag identifies the kind of a value in the stream.
type tag uint8

const (
	tagNil       tag = 0x00
	tagInt       tag = 0x07
	tagFloat     tag = 0x22
	tagFalse     tag = 0x40
	tagTrue      tag = 0x41
	tagRecordNew tag = 0x61
	tagRecordRef tag = 0x62
	tagString    tag = 0x81
	tagTableNew  tag = 0xC1
	tagTableRef  tag = 0xC2
)

var tagStrings = map[tag]string{
	tagNil:       "Nil",
	tagInt:       "Int",
	tagFloat:     "Float",
	tagFalse:     "False",
	tagTrue:      "True",
	tagRecordNew: "Record-new",
	tagRecordRef: "Record-ref",
	tagString:    "String",
	tagTableNew:  "Table-new",
	tagTableRef:  "Table-ref",
}

// String returns the name of the tag, or "Invalid".
func (t tag) String() string {
	if s, ok := tagStrings[t]; ok {
		return s
	}
	return "Invalid"
}

// header is the decoded file header.
type header struct {
	Compressed bool
	Major      uint8
	Minor      uint8

	// Set for compressed files only.
	CompressedLength   uint32
	DecompressedLength uint32
	Reserved           uint32
}

func (h header) Version() string {
	return strconv.Itoa(int(h.Major)) + "." + strconv.Itoa(int(h.Minor))
}
