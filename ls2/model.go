package ls2

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/anaminus/parse"
	"github.com/bkaradzic/go-lz4"
)

////////////////////////////////////////////////////////////////

const stringStep = 1 << 16

// readChunk appends length bytes from f to buf. The buffer grows in steps so
// that a corrupt length cannot allocate more than the input can provide.
func readChunk(f *parse.BinaryReader, buf []byte, length int) ([]byte, bool) {
	for remaining := length; remaining > 0; {
		n := min(remaining, stringStep)
		buf = append(buf, make([]byte, n)...)
		if f.Bytes(buf[len(buf)-n:]) {
			return nil, true
		}
		remaining -= n
	}
	return buf, false
}

func readString(f *parse.BinaryReader, data *string) (failed bool) {
	if f.Err() != nil {
		return true
	}

	var length uint32
	if f.Number(&length) {
		return true
	}

	s, failed := readChunk(f, make([]byte, 0, min(int(length), stringStep)), int(length))
	if failed {
		return true
	}

	*data = string(s)

	return false
}

func writeString(f *parse.BinaryWriter, data string) (failed bool) {
	if f.Err() != nil {
		return true
	}

	if f.Number(uint32(len(data))) {
		return true
	}

	return f.Bytes([]byte(data))
}

////////////////////////////////////////////////////////////////

// readHeader reads the signature and version of a file. For compressed
// files, the container lengths are read as well.
func readHeader(fr *parse.BinaryReader, h *header) (failed bool) {
	var sig [2]byte
	if fr.Bytes(sig[:]) {
		return true
	}
	switch string(sig[:]) {
	case sigPlain:
		h.Compressed = false
	case sigCompressed:
		h.Compressed = true
	default:
		fr.Add(0, ErrInvalidSig)
		return true
	}

	if fr.Number(&h.Major) || fr.Number(&h.Minor) {
		return true
	}
	if h.Major != VersionMajor || h.Minor > VersionMinor {
		fr.Add(0, ErrUnrecognizedVersion{Major: h.Major, Minor: h.Minor})
		return true
	}

	if !h.Compressed {
		return false
	}
	if fr.Number(&h.CompressedLength) {
		return true
	}
	if fr.Number(&h.DecompressedLength) {
		return true
	}
	if fr.Number(&h.Reserved) {
		return true
	}
	return false
}

// readPayload reads and decompresses the lz4 block of a compressed file.
func readPayload(fr *parse.BinaryReader, h header) (payload []byte, failed bool) {
	if h.DecompressedLength > maxPayload || h.CompressedLength > maxPayload {
		fr.Add(0, ErrPayloadTooLarge)
		return nil, true
	}

	if uint64(h.DecompressedLength) > maxExpansion*uint64(h.CompressedLength) {
		fr.Add(0, ErrPayloadRatio)
		return nil, true
	}

	// Prepare compressed data for reading by lz4, which requires the
	// uncompressed length before the compressed data.
	compressedData := make([]byte, 4, 4+min(int(h.CompressedLength), stringStep))
	binary.LittleEndian.PutUint32(compressedData, h.DecompressedLength)
	compressedData, failed = readChunk(fr, compressedData, int(h.CompressedLength))
	if failed {
		return nil, true
	}

	payload = make([]byte, h.DecompressedLength)
	out, err := lz4.Decode(payload, compressedData)
	if err != nil {
		fr.Add(0, fmt.Errorf("lz4: %w", err))
		return nil, true
	}
	if len(out) != int(h.DecompressedLength) {
		fr.Add(0, ErrPayloadLength)
		return nil, true
	}
	return out, false
}

// writeHeader writes an uncompressed header.
func writeHeader(fw *parse.BinaryWriter) (failed bool) {
	if fw.Bytes([]byte(sigPlain)) {
		return true
	}
	if fw.Number(uint8(VersionMajor)) {
		return true
	}
	return fw.Number(uint8(VersionMinor))
}

// writeCompressed writes a compressed header followed by payload as an lz4
// block.
func writeCompressed(fw *parse.BinaryWriter, payload []byte) (failed bool) {
	var compressedData []byte
	compressedData, err := lz4.Encode(compressedData, payload)
	if fw.Add(0, err) {
		return true
	}

	// lz4 sanity check
	if binary.LittleEndian.Uint32(compressedData[:4]) != uint32(len(payload)) {
		panic("lz4 uncompressed length does not match payload length")
	}

	// lz4 prepends the length of the uncompressed payload, so it must be
	// excluded.
	compressedPayload := compressedData[4:]

	if fw.Bytes([]byte(sigCompressed)) {
		return true
	}
	if fw.Number(uint8(VersionMajor)) || fw.Number(uint8(VersionMinor)) {
		return true
	}
	if fw.Number(uint32(len(compressedPayload))) {
		return true
	}
	if fw.Number(uint32(len(payload))) {
		return true
	}
	// Reserved
	if fw.Number(uint32(0)) {
		return true
	}
	return fw.Bytes(compressedPayload)
}

// stream is an opened file, positioned at the start of the value stream.
type stream struct {
	header header
	r      *parse.BinaryReader
}

// openStream reads the header of r, and returns a reader over the value
// stream, which is decompressed if necessary.
func openStream(r io.Reader) (s *stream, warn, err error) {
	fr := parse.NewBinaryReader(r)
	s = &stream{}
	if readHeader(fr, &s.header) {
		return nil, nil, decodeError(fr, nil)
	}
	if !s.header.Compressed {
		s.r = fr
		return s, nil, nil
	}
	if s.header.Reserved != 0 {
		warn = errReserve{Offset: fr.N() - 4, Value: s.header.Reserved}
	}
	payload, failed := readPayload(fr, s.header)
	if failed {
		return nil, warn, decodeError(fr, nil)
	}
	s.r = parse.NewBinaryReader(bytes.NewReader(payload))
	return s, warn, nil
}
