package swdl

import (
	"encoding/binary"
	"fmt"

	"github.com/depp/dsekit/lib/dse"
)

const (
	ProgramHeaderSize = 16
	LFOSize           = 16
	DelimiterSize     = 16
	SplitSize         = 48
)

// An LFODest is the parameter modulated by an LFO.
type LFODest uint8

const (
	LFONone LFODest = iota
	LFOPitch
	LFOVolume
	LFOPan
	LFOFilter
)

var lfoDestNames = [...]string{"None", "Pitch", "Volume", "Pan", "Filter"}

func (d LFODest) String() string {
	if int(d) < len(lfoDestNames) {
		return lfoDestNames[d]
	}
	return fmt.Sprintf("LFODest(%d)", uint8(d))
}

// A WaveShape is the shape of an LFO waveform.
type WaveShape uint8

const (
	WaveNull WaveShape = iota
	WaveSquare
	WaveTriangle
	WaveSine
	WaveUnk4
	WaveSaw
	WaveNoise
	WaveRandom
)

var waveShapeNames = [...]string{"Null", "Square", "Triangle", "Sine", "Unk4", "Saw", "Noise", "Random"}

func (w WaveShape) String() string {
	if int(w) < len(waveShapeNames) {
		return waveShapeNames[w]
	}
	return fmt.Sprintf("WaveShape(%d)", uint8(w))
}

// An LFO is a low frequency oscillator attached to a program.
type LFO struct {
	Unk34     uint8
	Unk52     uint8
	Dest      LFODest
	WaveShape WaveShape
	Rate      uint16
	Unk29     uint16
	Depth     uint16
	Delay     uint16
	Unk32     uint16
	Unk33     uint16
}

func parseLFO(data []byte, base int) (LFO, error) {
	l := LFO{
		Unk34:     data[0],
		Unk52:     data[1],
		Dest:      LFODest(data[2]),
		WaveShape: WaveShape(data[3]),
		Rate:      binary.LittleEndian.Uint16(data[0x04:]),
		Unk29:     binary.LittleEndian.Uint16(data[0x06:]),
		Depth:     binary.LittleEndian.Uint16(data[0x08:]),
		Delay:     binary.LittleEndian.Uint16(data[0x0A:]),
		Unk32:     binary.LittleEndian.Uint16(data[0x0C:]),
		Unk33:     binary.LittleEndian.Uint16(data[0x0E:]),
	}
	if l.Dest > LFOFilter {
		return l, dse.Formatf("prgi", base+2, "unknown LFO destination %d", l.Dest)
	}
	if l.WaveShape > WaveRandom {
		return l, dse.Formatf("prgi", base+3, "unknown LFO wave shape %d", l.WaveShape)
	}
	return l, nil
}

func (l *LFO) appendTo(data []byte) []byte {
	var b [LFOSize]byte
	b[0] = l.Unk34
	b[1] = l.Unk52
	b[2] = byte(l.Dest)
	b[3] = byte(l.WaveShape)
	binary.LittleEndian.PutUint16(b[0x04:], l.Rate)
	binary.LittleEndian.PutUint16(b[0x06:], l.Unk29)
	binary.LittleEndian.PutUint16(b[0x08:], l.Depth)
	binary.LittleEndian.PutUint16(b[0x0A:], l.Delay)
	binary.LittleEndian.PutUint16(b[0x0C:], l.Unk32)
	binary.LittleEndian.PutUint16(b[0x0E:], l.Unk33)
	return append(data, b[:]...)
}

// =============================================================================

// A Split maps a key and velocity range of a program to a sample.
type Split struct {
	ID           uint8
	Unk11        uint8
	Unk25        uint8
	LowKey       int8
	HighKey      int8
	LowVelocity  int8
	HighVelocity int8
	Unk16        int32
	Unk17        int16
	SampleID     uint16
	FineTune     int8
	CoarseTune   int8
	RootKey      int8
	KeyTranspose int8
	Volume       int8
	Pan          int8
	KeygroupID   int8
	Unk22        uint8
	Unk23        uint16
	Unk24        uint16

	Envelope           uint8
	EnvelopeMultiplier uint8
	Unk37              uint8
	Unk38              uint8
	Unk39              uint16
	Unk40              uint16
	AttackVolume       int8
	Attack             int8
	Decay              int8
	Sustain            int8
	Hold               int8
	Decay2             int8
	Release            int8
	Unk53              int8
}

func parseSplit(data []byte, base int) (Split, error) {
	const chunk = "prgi"
	var s Split
	if data[0] != 0 {
		return s, dse.Formatf(chunk, base, "split starts with 0x%02x, expected 0", data[0])
	}
	// The key and velocity ranges are stored twice.
	if data[4] != data[6] || data[5] != data[7] {
		return s, dse.Formatf(chunk, base+6, "key range copy does not match")
	}
	if data[8] != data[10] || data[9] != data[11] {
		return s, dse.Formatf(chunk, base+10, "velocity range copy does not match")
	}
	s = Split{
		ID:           data[0x01],
		Unk11:        data[0x02],
		Unk25:        data[0x03],
		LowKey:       int8(data[0x04]),
		HighKey:      int8(data[0x05]),
		LowVelocity:  int8(data[0x08]),
		HighVelocity: int8(data[0x09]),
		Unk16:        int32(binary.LittleEndian.Uint32(data[0x0C:])),
		Unk17:        int16(binary.LittleEndian.Uint16(data[0x10:])),
		SampleID:     binary.LittleEndian.Uint16(data[0x12:]),
		FineTune:     int8(data[0x14]),
		CoarseTune:   int8(data[0x15]),
		RootKey:      int8(data[0x16]),
		KeyTranspose: int8(data[0x17]),
		Volume:       int8(data[0x18]),
		Pan:          int8(data[0x19]),
		KeygroupID:   int8(data[0x1A]),
		Unk22:        data[0x1B],
		Unk23:        binary.LittleEndian.Uint16(data[0x1C:]),
		Unk24:        binary.LittleEndian.Uint16(data[0x1E:]),

		Envelope:           data[0x20],
		EnvelopeMultiplier: data[0x21],
		Unk37:              data[0x22],
		Unk38:              data[0x23],
		Unk39:              binary.LittleEndian.Uint16(data[0x24:]),
		Unk40:              binary.LittleEndian.Uint16(data[0x26:]),
		AttackVolume:       int8(data[0x28]),
		Attack:             int8(data[0x29]),
		Decay:              int8(data[0x2A]),
		Sustain:            int8(data[0x2B]),
		Hold:               int8(data[0x2C]),
		Decay2:             int8(data[0x2D]),
		Release:            int8(data[0x2E]),
		Unk53:              int8(data[0x2F]),
	}
	return s, nil
}

func (s *Split) appendTo(data []byte) []byte {
	var b [SplitSize]byte
	b[0x01] = s.ID
	b[0x02] = s.Unk11
	b[0x03] = s.Unk25
	b[0x04] = byte(s.LowKey)
	b[0x05] = byte(s.HighKey)
	b[0x06] = byte(s.LowKey)
	b[0x07] = byte(s.HighKey)
	b[0x08] = byte(s.LowVelocity)
	b[0x09] = byte(s.HighVelocity)
	b[0x0A] = byte(s.LowVelocity)
	b[0x0B] = byte(s.HighVelocity)
	binary.LittleEndian.PutUint32(b[0x0C:], uint32(s.Unk16))
	binary.LittleEndian.PutUint16(b[0x10:], uint16(s.Unk17))
	binary.LittleEndian.PutUint16(b[0x12:], s.SampleID)
	b[0x14] = byte(s.FineTune)
	b[0x15] = byte(s.CoarseTune)
	b[0x16] = byte(s.RootKey)
	b[0x17] = byte(s.KeyTranspose)
	b[0x18] = byte(s.Volume)
	b[0x19] = byte(s.Pan)
	b[0x1A] = byte(s.KeygroupID)
	b[0x1B] = s.Unk22
	binary.LittleEndian.PutUint16(b[0x1C:], s.Unk23)
	binary.LittleEndian.PutUint16(b[0x1E:], s.Unk24)
	b[0x20] = s.Envelope
	b[0x21] = s.EnvelopeMultiplier
	b[0x22] = s.Unk37
	b[0x23] = s.Unk38
	binary.LittleEndian.PutUint16(b[0x24:], s.Unk39)
	binary.LittleEndian.PutUint16(b[0x26:], s.Unk40)
	b[0x28] = byte(s.AttackVolume)
	b[0x29] = byte(s.Attack)
	b[0x2A] = byte(s.Decay)
	b[0x2B] = byte(s.Sustain)
	b[0x2C] = byte(s.Hold)
	b[0x2D] = byte(s.Decay2)
	b[0x2E] = byte(s.Release)
	b[0x2F] = byte(s.Unk53)
	return append(data, b[:]...)
}

// =============================================================================

// A Program is an entry in the PRGI table: an instrument made of splits.
type Program struct {
	ID      uint16
	Volume  int8
	Pan     int8
	Unk3    uint8
	Unk6    uint8 // Usually 0x0F.
	Unk4    uint16
	Unk5    uint8
	PadByte uint8
	Unk7    uint8
	Unk8    uint8
	Unk9    uint8

	// Delimiter is the fill byte of the delimiter between the LFOs and the
	// splits, either 0x00 or 0xAA.
	Delimiter uint8

	LFOs   []LFO
	Splits []Split
}

// Size returns the encoded size of the program.
func (p *Program) Size() int {
	return ProgramHeaderSize + LFOSize*len(p.LFOs) + DelimiterSize + SplitSize*len(p.Splits)
}

// Clone returns a deep copy of the program.
func (p *Program) Clone() *Program {
	c := *p
	c.LFOs = append([]LFO(nil), p.LFOs...)
	c.Splits = append([]Split(nil), p.Splits...)
	return &c
}

func parseProgram(data []byte, base int) (*Program, error) {
	const chunk = "prgi"
	if len(data) < ProgramHeaderSize {
		return nil, dse.Formatf(chunk, base, "program header extends past end of chunk")
	}
	nsplits := int(binary.LittleEndian.Uint16(data[0x02:]))
	nlfos := int(data[0x0B])
	p := Program{
		ID:      binary.LittleEndian.Uint16(data[0x00:]),
		Volume:  int8(data[0x04]),
		Pan:     int8(data[0x05]),
		Unk3:    data[0x06],
		Unk6:    data[0x07],
		Unk4:    binary.LittleEndian.Uint16(data[0x08:]),
		Unk5:    data[0x0A],
		PadByte: data[0x0C],
		Unk7:    data[0x0D],
		Unk8:    data[0x0E],
		Unk9:    data[0x0F],
		LFOs:    make([]LFO, nlfos),
		Splits:  make([]Split, nsplits),
	}
	if len(data) < p.Size() {
		return nil, dse.Formatf(chunk, base, "program with %d LFOs and %d splits extends past end of chunk", nlfos, nsplits)
	}
	pos := ProgramHeaderSize
	for i := range p.LFOs {
		l, err := parseLFO(data[pos:pos+LFOSize], base+pos)
		if err != nil {
			return nil, err
		}
		p.LFOs[i] = l
		pos += LFOSize
	}
	delim := data[pos : pos+DelimiterSize]
	switch {
	case dse.IsFill(delim, 0x00):
		p.Delimiter = 0x00
	case dse.IsFill(delim, 0xAA):
		p.Delimiter = 0xAA
	default:
		return nil, dse.Formatf(chunk, base+pos, "bad delimiter % x", delim)
	}
	pos += DelimiterSize
	for i := range p.Splits {
		s, err := parseSplit(data[pos:pos+SplitSize], base+pos)
		if err != nil {
			return nil, err
		}
		p.Splits[i] = s
		pos += SplitSize
	}
	return &p, nil
}

func (p *Program) marshal() ([]byte, error) {
	if err := dse.CheckRange("split count", int64(len(p.Splits)), 0, 0xFFFF); err != nil {
		return nil, err
	}
	if err := dse.CheckRange("LFO count", int64(len(p.LFOs)), 0, 0xFF); err != nil {
		return nil, err
	}
	if p.Delimiter != 0x00 && p.Delimiter != 0xAA {
		return nil, fmt.Errorf("bad delimiter fill 0x%02x", p.Delimiter)
	}
	data := make([]byte, ProgramHeaderSize, p.Size())
	binary.LittleEndian.PutUint16(data[0x00:], p.ID)
	binary.LittleEndian.PutUint16(data[0x02:], uint16(len(p.Splits)))
	data[0x04] = byte(p.Volume)
	data[0x05] = byte(p.Pan)
	data[0x06] = p.Unk3
	data[0x07] = p.Unk6
	binary.LittleEndian.PutUint16(data[0x08:], p.Unk4)
	data[0x0A] = p.Unk5
	data[0x0B] = uint8(len(p.LFOs))
	data[0x0C] = p.PadByte
	data[0x0D] = p.Unk7
	data[0x0E] = p.Unk8
	data[0x0F] = p.Unk9
	for i := range p.LFOs {
		data = p.LFOs[i].appendTo(data)
	}
	for i := 0; i < DelimiterSize; i++ {
		data = append(data, p.Delimiter)
	}
	for i := range p.Splits {
		data = p.Splits[i].appendTo(data)
	}
	return data, nil
}

// =============================================================================

// A Prgi is the program table. Nil entries are empty slots. Each present
// entry's ID is its index in the table.
type Prgi struct {
	Programs []*Program
}

func parsePrgi(body []byte, nslots, base int) (*Prgi, error) {
	const chunk = "prgi"
	toc, err := dse.ReadTOC(body, nslots, chunk)
	if err != nil {
		return nil, err
	}
	p := Prgi{Programs: make([]*Program, nslots)}
	for i, off := range toc {
		if off == 0 {
			continue
		}
		prg, err := parseProgram(body[off:], base+off)
		if err != nil {
			return nil, err
		}
		if int(prg.ID) != i {
			return nil, dse.Formatf(chunk, base+off, "slot %d has ID %d", i, prg.ID)
		}
		p.Programs[i] = prg
	}
	return &p, nil
}

// ChunkData implements the dse.Chunk interface.
func (p *Prgi) ChunkData() (tag [4]byte, data []byte, err error) {
	tag = dse.Tag("prgi")
	entries := make([][]byte, len(p.Programs))
	for i, prg := range p.Programs {
		if prg == nil {
			continue
		}
		if int(prg.ID) != i {
			return tag, nil, fmt.Errorf("PRGI slot %d has ID %d", i, prg.ID)
		}
		entries[i], err = prg.marshal()
		if err != nil {
			return tag, nil, fmt.Errorf("program %d: %w", i, err)
		}
	}
	data, err = dse.WriteTOC(entries, "prgi")
	return tag, data, err
}

// Get returns the program with the given ID, or nil if the slot is empty or
// does not exist.
func (p *Prgi) Get(id int) *Program {
	if id < 0 || id >= len(p.Programs) {
		return nil
	}
	return p.Programs[id]
}
