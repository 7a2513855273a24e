package dse

import (
	"bytes"
	"encoding/binary"
)

const (
	// ChunkHeaderSize is the size of the header preceding each SWDL chunk.
	ChunkHeaderSize = 16

	// ChunkVersion is the version stored in every SWDL chunk header.
	ChunkVersion = 0x0415

	// PadFill is the fill byte used after offset tables and keygroups.
	PadFill = 0xAA
)

// A Chunk is a piece of data in an SWDL file.
type Chunk interface {
	ChunkData() (tag [4]byte, data []byte, err error)
}

// Tag converts a four character code to a tag.
func Tag(s string) (t [4]byte) {
	if len(s) != 4 {
		panic("bad tag: " + s)
	}
	copy(t[:], s)
	return
}

// Align rounds n up to a multiple of a.
func Align(n, a int) int {
	return (n + a - 1) / a * a
}

// Pad appends fill bytes to data until its length is a multiple of align.
func Pad(data []byte, align int, fill byte) []byte {
	for len(data)%align != 0 {
		data = append(data, fill)
	}
	return data
}

// IsFill returns true if every byte in data is equal to fill.
func IsFill(data []byte, fill byte) bool {
	for _, b := range data {
		if b != fill {
			return false
		}
	}
	return true
}

// CheckZero returns a FormatError if data is not all zero.
func CheckZero(data []byte, chunk string, offset int) error {
	if !IsFill(data, 0) {
		return Formatf(chunk, offset, "reserved bytes are not zero: % x", data)
	}
	return nil
}

// CheckBytes returns a FormatError if data is not equal to expect.
func CheckBytes(data, expect []byte, chunk string, offset int) error {
	if !bytes.Equal(data, expect) {
		return Formatf(chunk, offset, "got % x, expected % x", data, expect)
	}
	return nil
}

// ParseChunk parses the chunk starting at data[offset:] and returns its body.
// The chunk header must have the given tag and the fixed reserved fields.
func ParseChunk(data []byte, offset int, tag string) ([]byte, error) {
	if len(data)-offset < ChunkHeaderSize {
		return nil, Formatf(tag, offset, "unexpected end of data")
	}
	h := data[offset : offset+ChunkHeaderSize : offset+ChunkHeaderSize]
	if string(h[0:4]) != tag {
		return nil, Formatf(tag, offset, "bad tag %q", h[0:4])
	}
	if err := CheckZero(h[4:6], tag, offset+4); err != nil {
		return nil, err
	}
	if v := binary.LittleEndian.Uint16(h[6:8]); v != ChunkVersion {
		return nil, Formatf(tag, offset+6, "chunk version is 0x%04x, expected 0x%04x", v, ChunkVersion)
	}
	if v := binary.LittleEndian.Uint32(h[8:12]); v != ChunkHeaderSize {
		return nil, Formatf(tag, offset+8, "header size is %d, expected %d", v, ChunkHeaderSize)
	}
	n := binary.LittleEndian.Uint32(h[12:16])
	rest := data[offset+ChunkHeaderSize:]
	if uint64(n) > uint64(len(rest)) {
		return nil, Formatf(tag, offset+12, "chunk length %d exceeds remaining %d bytes", n, len(rest))
	}
	return rest[:n:n], nil
}

// AppendChunk appends a chunk header and body to data. The declared length is
// always the length of body.
func AppendChunk(data []byte, tag [4]byte, body []byte) []byte {
	var h [ChunkHeaderSize]byte
	copy(h[0:4], tag[:])
	binary.LittleEndian.PutUint16(h[6:8], ChunkVersion)
	binary.LittleEndian.PutUint32(h[8:12], ChunkHeaderSize)
	binary.LittleEndian.PutUint32(h[12:16], uint32(len(body)))
	data = append(data, h[:]...)
	return append(data, body...)
}

// =============================================================================

// ReadTOC reads a table of n slot offsets from the start of a chunk body. An
// offset of zero marks an empty slot. Every offset must fall inside the body.
func ReadTOC(body []byte, n int, chunk string) ([]int, error) {
	if len(body) < 2*n {
		return nil, Formatf(chunk, 0, "table of %d slots does not fit in %d bytes", n, len(body))
	}
	toc := make([]int, n)
	for i := range toc {
		off := int(binary.LittleEndian.Uint16(body[2*i:]))
		if off >= len(body) {
			return nil, Formatf(chunk, 2*i, "slot %d offset 0x%x exceeds chunk length 0x%x", i, off, len(body))
		}
		toc[i] = off
	}
	return toc, nil
}

// WriteTOC creates a chunk body from a list of entries. Nil entries are empty
// slots. The offset table is padded to a 16-byte boundary.
func WriteTOC(entries [][]byte, chunk string) ([]byte, error) {
	body := make([]byte, 2*len(entries), 2*len(entries)+16)
	body = Pad(body, 16, PadFill)
	for i, e := range entries {
		if e == nil {
			continue
		}
		if len(body) > 0xFFFF {
			return nil, &RangeError{Field: chunk + " entry offset", Value: int64(len(body)), Max: 0xFFFF}
		}
		binary.LittleEndian.PutUint16(body[2*i:], uint16(len(body)))
		body = append(body, e...)
	}
	return body, nil
}
