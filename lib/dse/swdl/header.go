package swdl

import (
	"encoding/binary"

	"github.com/depp/dsekit/lib/dse"
)

// HeaderSize is the size of the SWDL file header.
const HeaderSize = 80

// A PcmdLen is the raw sample data length field of the header. If the upper
// 16 bits are 0xAAAA, the bank has no PCMD chunk and its samples are stored in
// a separate master bank.
type PcmdLen uint32

// ExternalPcmd is the PcmdLen value normally used by banks whose samples live
// in the master bank.
const ExternalPcmd PcmdLen = 0xAAAA0000

// IsExternal returns true if samples are stored in another bank.
func (p PcmdLen) IsExternal() bool {
	return uint32(p)>>16 == 0xAAAA
}

// Length returns the length of the bank's own PCMD chunk, or 0 if the samples
// are external.
func (p PcmdLen) Length() int {
	if p.IsExternal() {
		return 0
	}
	return int(p)
}

// A Header is the SWDL file header. Lengths and slot counts are computed when
// the file is written.
type Header struct {
	Version  uint16
	Unk1     uint8
	Unk2     uint8
	Modified dse.Date
	Name     dse.Filename
	Unk13    uint32
	PcmdLen  PcmdLen
	Unk17    uint16
}

// layout contains the derived header fields.
type layout struct {
	length     int
	waviSlots  int
	prgiSlots  int
	waviLength int
}

var headerMarker = []byte{0x00, 0xAA, 0xAA, 0xAA}

func parseHeader(h *Header, data []byte) (l layout, err error) {
	const chunk = "swdl"
	if err := dse.CheckZero(data[4:8], chunk, 4); err != nil {
		return l, err
	}
	l.length = int(binary.LittleEndian.Uint32(data[8:12]))
	h.Version = binary.LittleEndian.Uint16(data[0x0C:])
	h.Unk1 = data[0x0E]
	h.Unk2 = data[0x0F]
	if err := dse.CheckZero(data[0x10:0x18], chunk, 0x10); err != nil {
		return l, err
	}
	h.Modified = dse.ParseDate(data[0x18:0x20])
	h.Name, err = dse.ParseFilename(data[0x20:0x30])
	if err != nil {
		return l, dse.Formatf(chunk, 0x20, "%v", err)
	}
	if err := dse.CheckBytes(data[0x30:0x34], headerMarker, chunk, 0x30); err != nil {
		return l, err
	}
	if err := dse.CheckZero(data[0x34:0x3C], chunk, 0x34); err != nil {
		return l, err
	}
	h.Unk13 = binary.LittleEndian.Uint32(data[0x3C:])
	h.PcmdLen = PcmdLen(binary.LittleEndian.Uint32(data[0x40:]))
	if err := dse.CheckZero(data[0x44:0x46], chunk, 0x44); err != nil {
		return l, err
	}
	l.waviSlots = int(binary.LittleEndian.Uint16(data[0x46:]))
	l.prgiSlots = int(binary.LittleEndian.Uint16(data[0x48:]))
	h.Unk17 = binary.LittleEndian.Uint16(data[0x4A:])
	l.waviLength = int(binary.LittleEndian.Uint32(data[0x4C:]))
	return l, nil
}

func (h *Header) put(data []byte, l layout) error {
	name, err := h.Name.Bytes()
	if err != nil {
		return err
	}
	if err := dse.CheckRange("WAVI slot count", int64(l.waviSlots), 0, 0xFFFF); err != nil {
		return err
	}
	if err := dse.CheckRange("PRGI slot count", int64(l.prgiSlots), 0, 0xFFFF); err != nil {
		return err
	}
	copy(data[0:4], "swdl")
	binary.LittleEndian.PutUint32(data[8:12], uint32(l.length))
	binary.LittleEndian.PutUint16(data[0x0C:], h.Version)
	data[0x0E] = h.Unk1
	data[0x0F] = h.Unk2
	h.Modified.Put(data[0x18:0x20])
	copy(data[0x20:0x30], name[:])
	copy(data[0x30:0x34], headerMarker)
	binary.LittleEndian.PutUint32(data[0x3C:], h.Unk13)
	binary.LittleEndian.PutUint32(data[0x40:], uint32(h.PcmdLen))
	binary.LittleEndian.PutUint16(data[0x46:], uint16(l.waviSlots))
	binary.LittleEndian.PutUint16(data[0x48:], uint16(l.prgiSlots))
	binary.LittleEndian.PutUint16(data[0x4A:], h.Unk17)
	binary.LittleEndian.PutUint32(data[0x4C:], uint32(l.waviLength))
	return nil
}
