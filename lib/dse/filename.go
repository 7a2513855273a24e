package dse

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// FilenameSize is the size of the fixed filename slot in file headers.
const FilenameSize = 16

// FilenameFill is the byte used to fill a filename slot after the terminator.
const FilenameFill = 0xAA

// A Filename is the short internal name stored in SMDL and SWDL headers. The
// name is null terminated and the rest of the slot is filled, usually with 0xAA.
// Two filenames are equal if their names are equal, regardless of the fill.
type Filename struct {
	Name string

	raw     [FilenameSize]byte
	rawName string
	hasRaw  bool
}

// NewFilename returns a filename with the default fill.
func NewFilename(name string) Filename {
	return Filename{Name: name}
}

// ParseFilename decodes a filename slot. The data must be at least
// FilenameSize bytes long.
func ParseFilename(data []byte) (Filename, error) {
	var f Filename
	copy(f.raw[:], data[:FilenameSize])
	n := bytes.IndexByte(f.raw[:], 0)
	if n == -1 {
		n = FilenameSize
	}
	name, err := charmap.ISO8859_1.NewDecoder().Bytes(f.raw[:n])
	if err != nil {
		return f, fmt.Errorf("invalid filename: %v", err)
	}
	f.Name = string(name)
	f.rawName = f.Name
	f.hasRaw = true
	return f, nil
}

// Bytes encodes the filename slot. A filename which was decoded and not
// modified is returned exactly as it was decoded.
func (f Filename) Bytes() (slot [FilenameSize]byte, err error) {
	if f.hasRaw && f.rawName == f.Name {
		return f.raw, nil
	}
	name, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(f.Name))
	if err != nil {
		return slot, fmt.Errorf("cannot encode filename %q: %v", f.Name, err)
	}
	if len(name) > FilenameSize {
		return slot, &RangeError{Field: "filename length", Value: int64(len(name)), Max: FilenameSize}
	}
	n := copy(slot[:], name)
	if n < FilenameSize {
		slot[n] = 0
		for i := n + 1; i < FilenameSize; i++ {
			slot[i] = FilenameFill
		}
	}
	return slot, nil
}

// Equal returns true if both filenames have the same name.
func (f Filename) Equal(other Filename) bool {
	return f.Name == other.Name
}

func (f Filename) String() string {
	return f.Name
}
