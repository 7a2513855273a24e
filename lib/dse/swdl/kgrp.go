package swdl

import (
	"encoding/binary"

	"github.com/depp/dsekit/lib/dse"
)

// KeygroupSize is the size of a KGRP entry.
const KeygroupSize = 8

// A Keygroup limits the polyphony of the splits which use it.
type Keygroup struct {
	ID           uint16
	Polyphony    int8
	Priority     uint8
	VelocityLow  uint8
	VelocityHigh uint8
	Unk50        uint8
	Unk51        uint8
}

// EqualIgnoringID returns true if both keygroups have the same fields, other
// than the ID.
func (k Keygroup) EqualIgnoringID(other Keygroup) bool {
	k.ID = other.ID
	return k == other
}

// A Kgrp is the keygroup table.
type Kgrp struct {
	Keygroups []Keygroup
}

func parseKgrp(body []byte, base int) (*Kgrp, error) {
	if len(body)%KeygroupSize != 0 {
		return nil, dse.Formatf("kgrp", base, "chunk length %d is not a multiple of %d", len(body), KeygroupSize)
	}
	n := len(body) / KeygroupSize
	// The table is padded to 16 bytes with 0xAA.
	if n > 0 && dse.IsFill(body[len(body)-KeygroupSize:], dse.PadFill) {
		n--
	}
	k := Kgrp{Keygroups: make([]Keygroup, n)}
	for i := range k.Keygroups {
		d := body[i*KeygroupSize:]
		k.Keygroups[i] = Keygroup{
			ID:           binary.LittleEndian.Uint16(d[0:]),
			Polyphony:    int8(d[2]),
			Priority:     d[3],
			VelocityLow:  d[4],
			VelocityHigh: d[5],
			Unk50:        d[6],
			Unk51:        d[7],
		}
	}
	return &k, nil
}

// ChunkData implements the dse.Chunk interface.
func (k *Kgrp) ChunkData() (tag [4]byte, data []byte, err error) {
	data = make([]byte, 0, dse.Align(len(k.Keygroups)*KeygroupSize, 16))
	for _, g := range k.Keygroups {
		var b [KeygroupSize]byte
		binary.LittleEndian.PutUint16(b[0:], g.ID)
		b[2] = byte(g.Polyphony)
		b[3] = g.Priority
		b[4] = g.VelocityLow
		b[5] = g.VelocityHigh
		b[6] = g.Unk50
		b[7] = g.Unk51
		data = append(data, b[:]...)
	}
	return dse.Tag("kgrp"), dse.Pad(data, 16, dse.PadFill), nil
}

// Find returns the index of the first keygroup equal to g, ignoring the ID,
// or -1. The ID is ignored because a keygroup taken from another bank still
// carries its index in that bank.
func (k *Kgrp) Find(g Keygroup) int {
	for i, e := range k.Keygroups {
		if e.EqualIgnoringID(g) {
			return i
		}
	}
	return -1
}

// Get returns the keygroup with the given index.
func (k *Kgrp) Get(id int) (Keygroup, bool) {
	if id < 0 || id >= len(k.Keygroups) {
		return Keygroup{}, false
	}
	return k.Keygroups[id], true
}
