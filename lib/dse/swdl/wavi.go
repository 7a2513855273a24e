package swdl

import (
	"encoding/binary"
	"fmt"

	"github.com/depp/dsekit/lib/dse"
)

// SampleInfoSize is the size of a WAVI entry.
const SampleInfoSize = 64

// A SampleFormat is the encoding of a sample.
type SampleFormat uint16

const (
	PCM8   SampleFormat = 0x0000
	PCM16  SampleFormat = 0x0100
	ADPCM4 SampleFormat = 0x0200
	PSG    SampleFormat = 0x0300
)

func (f SampleFormat) String() string {
	switch f {
	case PCM8:
		return "PCM8"
	case PCM16:
		return "PCM16"
	case ADPCM4:
		return "ADPCM4"
	case PSG:
		return "PSG"
	}
	return fmt.Sprintf("SampleFormat(0x%04x)", uint16(f))
}

// A SampleLocation is where the bytes of a sample are stored: either an
// OwnedSample or a BankRef.
type SampleLocation interface {
	isSampleLocation()
}

// An OwnedSample is sample data which is not stored in any bank.
type OwnedSample []byte

// A BankRef refers to sample data in the PCMD chunk of a bank, identified by
// its internal name.
type BankRef struct {
	Bank   string
	Offset int
	Length int
}

func (OwnedSample) isSampleLocation() {}
func (BankRef) isSampleLocation()     {}

// A SampleInfo is an entry in the WAVI table.
type SampleInfo struct {
	ID           uint16
	FineTune     int8
	CoarseTune   int8
	RootKey      int8
	KeyTranspose int8
	Volume       int8
	Pan          int8
	Unk5         uint8
	Unk58        uint8
	Format       SampleFormat
	Unk9         uint8
	Loop         bool
	Unk10        uint16
	Unk11        uint16
	Unk12        uint16
	Unk13        uint32
	SampleRate   uint32
	SamplePos    uint32 // Offset in the PCMD chunk.
	LoopBegin    uint32 // In 4-byte units.
	LoopLength   uint32 // In 4-byte units.

	Envelope           uint8
	EnvelopeMultiplier uint8
	Unk19              uint8
	Unk20              uint8
	Unk21              uint16
	Unk22              uint16
	AttackVolume       int8
	Attack             int8
	Decay              int8
	Sustain            int8
	Hold               int8
	Decay2             int8
	Release            int8
	Unk57              int8

	// Sample is bound when the file is decoded, if the bank has its own
	// sample data. It is not written to the WAVI entry.
	Sample SampleLocation `json:"-"`
}

// SampleLength returns the length of the sample data in bytes.
func (s *SampleInfo) SampleLength() int {
	return (int(s.LoopBegin) + int(s.LoopLength)) * 4
}

// Clone returns a copy of the entry.
func (s *SampleInfo) Clone() *SampleInfo {
	c := *s
	if o, ok := s.Sample.(OwnedSample); ok {
		c.Sample = OwnedSample(append([]byte(nil), o...))
	}
	return &c
}

// EqualIgnoringID returns true if both entries have the same fields, other
// than the ID and sample location. The sample position is compared.
func (s *SampleInfo) EqualIgnoringID(other *SampleInfo) bool {
	a, b := *s, *other
	a.ID, b.ID = 0, 0
	a.Sample, b.Sample = nil, nil
	return a == b
}

var (
	sampleInfoMagic    = []byte{0x01, 0xAA}
	sampleInfoReserved = []byte{0x00, 0x00, 0xAA, 0xAA, 0x15, 0x04}
)

func parseSampleInfo(data []byte, base int) (*SampleInfo, error) {
	const chunk = "wavi"
	if err := dse.CheckBytes(data[0:2], sampleInfoMagic, chunk, base); err != nil {
		return nil, err
	}
	if err := dse.CheckBytes(data[0x0C:0x12], sampleInfoReserved, chunk, base+0x0C); err != nil {
		return nil, err
	}
	return &SampleInfo{
		ID:           binary.LittleEndian.Uint16(data[0x02:]),
		FineTune:     int8(data[0x04]),
		CoarseTune:   int8(data[0x05]),
		RootKey:      int8(data[0x06]),
		KeyTranspose: int8(data[0x07]),
		Volume:       int8(data[0x08]),
		Pan:          int8(data[0x09]),
		Unk5:         data[0x0A],
		Unk58:        data[0x0B],
		Format:       SampleFormat(binary.LittleEndian.Uint16(data[0x12:])),
		Unk9:         data[0x14],
		Loop:         data[0x15] != 0,
		Unk10:        binary.LittleEndian.Uint16(data[0x16:]),
		Unk11:        binary.LittleEndian.Uint16(data[0x18:]),
		Unk12:        binary.LittleEndian.Uint16(data[0x1A:]),
		Unk13:        binary.LittleEndian.Uint32(data[0x1C:]),
		SampleRate:   binary.LittleEndian.Uint32(data[0x20:]),
		SamplePos:    binary.LittleEndian.Uint32(data[0x24:]),
		LoopBegin:    binary.LittleEndian.Uint32(data[0x28:]),
		LoopLength:   binary.LittleEndian.Uint32(data[0x2C:]),

		Envelope:           data[0x30],
		EnvelopeMultiplier: data[0x31],
		Unk19:              data[0x32],
		Unk20:              data[0x33],
		Unk21:              binary.LittleEndian.Uint16(data[0x34:]),
		Unk22:              binary.LittleEndian.Uint16(data[0x36:]),
		AttackVolume:       int8(data[0x38]),
		Attack:             int8(data[0x39]),
		Decay:              int8(data[0x3A]),
		Sustain:            int8(data[0x3B]),
		Hold:               int8(data[0x3C]),
		Decay2:             int8(data[0x3D]),
		Release:            int8(data[0x3E]),
		Unk57:              int8(data[0x3F]),
	}, nil
}

func (s *SampleInfo) marshal() []byte {
	data := make([]byte, SampleInfoSize)
	copy(data[0:2], sampleInfoMagic)
	binary.LittleEndian.PutUint16(data[0x02:], s.ID)
	data[0x04] = byte(s.FineTune)
	data[0x05] = byte(s.CoarseTune)
	data[0x06] = byte(s.RootKey)
	data[0x07] = byte(s.KeyTranspose)
	data[0x08] = byte(s.Volume)
	data[0x09] = byte(s.Pan)
	data[0x0A] = s.Unk5
	data[0x0B] = s.Unk58
	copy(data[0x0C:0x12], sampleInfoReserved)
	binary.LittleEndian.PutUint16(data[0x12:], uint16(s.Format))
	data[0x14] = s.Unk9
	if s.Loop {
		data[0x15] = 1
	}
	binary.LittleEndian.PutUint16(data[0x16:], s.Unk10)
	binary.LittleEndian.PutUint16(data[0x18:], s.Unk11)
	binary.LittleEndian.PutUint16(data[0x1A:], s.Unk12)
	binary.LittleEndian.PutUint32(data[0x1C:], s.Unk13)
	binary.LittleEndian.PutUint32(data[0x20:], s.SampleRate)
	binary.LittleEndian.PutUint32(data[0x24:], s.SamplePos)
	binary.LittleEndian.PutUint32(data[0x28:], s.LoopBegin)
	binary.LittleEndian.PutUint32(data[0x2C:], s.LoopLength)
	data[0x30] = s.Envelope
	data[0x31] = s.EnvelopeMultiplier
	data[0x32] = s.Unk19
	data[0x33] = s.Unk20
	binary.LittleEndian.PutUint16(data[0x34:], s.Unk21)
	binary.LittleEndian.PutUint16(data[0x36:], s.Unk22)
	data[0x38] = byte(s.AttackVolume)
	data[0x39] = byte(s.Attack)
	data[0x3A] = byte(s.Decay)
	data[0x3B] = byte(s.Sustain)
	data[0x3C] = byte(s.Hold)
	data[0x3D] = byte(s.Decay2)
	data[0x3E] = byte(s.Release)
	data[0x3F] = byte(s.Unk57)
	return data
}

// =============================================================================

// A Wavi is the sample info table. Nil entries are empty slots. Each present
// entry's ID is its index in the table.
type Wavi struct {
	Samples []*SampleInfo
}

// parseWavi parses the body of a WAVI chunk. The base is the file offset of
// the body.
func parseWavi(body []byte, nslots, base int) (*Wavi, error) {
	const chunk = "wavi"
	toc, err := dse.ReadTOC(body, nslots, chunk)
	if err != nil {
		return nil, err
	}
	w := Wavi{Samples: make([]*SampleInfo, nslots)}
	for i, off := range toc {
		if off == 0 {
			continue
		}
		if len(body)-off < SampleInfoSize {
			return nil, dse.Formatf(chunk, base+off, "slot %d extends past end of chunk", i)
		}
		s, err := parseSampleInfo(body[off:off+SampleInfoSize], base+off)
		if err != nil {
			return nil, err
		}
		if int(s.ID) != i {
			return nil, dse.Formatf(chunk, base+off+2, "slot %d has ID %d", i, s.ID)
		}
		w.Samples[i] = s
	}
	return &w, nil
}

// ChunkData implements the dse.Chunk interface.
func (w *Wavi) ChunkData() (tag [4]byte, data []byte, err error) {
	tag = dse.Tag("wavi")
	entries := make([][]byte, len(w.Samples))
	for i, s := range w.Samples {
		if s == nil {
			continue
		}
		if int(s.ID) != i {
			return tag, nil, fmt.Errorf("WAVI slot %d has ID %d", i, s.ID)
		}
		entries[i] = s.marshal()
	}
	data, err = dse.WriteTOC(entries, "wavi")
	return tag, data, err
}

// Find returns the first entry equal to s, ignoring the ID, or nil.
func (w *Wavi) Find(s *SampleInfo) *SampleInfo {
	for _, e := range w.Samples {
		if e != nil && e.EqualIgnoringID(s) {
			return e
		}
	}
	return nil
}

// Get returns the entry with the given ID, or nil if the slot is empty or
// does not exist.
func (w *Wavi) Get(id int) *SampleInfo {
	if id < 0 || id >= len(w.Samples) {
		return nil
	}
	return w.Samples[id]
}
