// Package smdl reads and writes SMDL sequence files.
package smdl

import (
	"encoding/binary"

	"github.com/depp/dsekit/lib/dse"
	"github.com/pkg/errors"
)

const (
	HeaderSize      = 64
	SongSize        = 64
	TrackHeaderSize = 16
	PreambleSize    = 4
	EOCSize         = 16
)

// An SMDL is a decoded SMDL file.
type SMDL struct {
	Header Header
	Song   Song
	Tracks []*Track
	EOC    EOC
}

// A Header is the file header. The file length is computed when the file is
// written.
type Header struct {
	Version  uint16
	Unk1     uint8
	Unk2     uint8
	Modified dse.Date
	Name     dse.Filename
	Unk5     uint32
	Unk6     uint32
	Unk8     uint32
	Unk9     uint32
}

// A Song is the song chunk. The track count is computed when the file is
// written.
type Song struct {
	Unk1         uint32
	Unk2         uint32
	Unk3         uint32
	Unk4         uint16
	TPQN         uint16 // Ticks per quarter note.
	Unk5         uint16
	ChannelCount uint8
	Unk6         uint32
	Unk7         uint32
	Unk8         uint32
	Unk9         uint32
	Unk10        uint16
	Unk11        uint16
	Unk12        uint32
}

// An EOC is the end-of-content chunk.
type EOC struct {
	Param1 uint32
	Param2 uint32
}

var songFill = [16]byte{
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
}

func parseHeader(h *Header, data []byte) (length int, err error) {
	const chunk = "smdl"
	if err := dse.CheckZero(data[4:8], chunk, 4); err != nil {
		return 0, err
	}
	length = int(binary.LittleEndian.Uint32(data[8:12]))
	h.Version = binary.LittleEndian.Uint16(data[0x0C:])
	h.Unk1 = data[0x0E]
	h.Unk2 = data[0x0F]
	if err := dse.CheckZero(data[0x10:0x18], chunk, 0x10); err != nil {
		return 0, err
	}
	h.Modified = dse.ParseDate(data[0x18:0x20])
	h.Name, err = dse.ParseFilename(data[0x20:0x30])
	if err != nil {
		return 0, dse.Formatf(chunk, 0x20, "%v", err)
	}
	h.Unk5 = binary.LittleEndian.Uint32(data[0x30:])
	h.Unk6 = binary.LittleEndian.Uint32(data[0x34:])
	h.Unk8 = binary.LittleEndian.Uint32(data[0x38:])
	h.Unk9 = binary.LittleEndian.Uint32(data[0x3C:])
	return length, nil
}

func (h *Header) put(data []byte, length int) error {
	name, err := h.Name.Bytes()
	if err != nil {
		return err
	}
	copy(data[0:4], "smdl")
	binary.LittleEndian.PutUint32(data[8:12], uint32(length))
	binary.LittleEndian.PutUint16(data[0x0C:], h.Version)
	data[0x0E] = h.Unk1
	data[0x0F] = h.Unk2
	h.Modified.Put(data[0x18:0x20])
	copy(data[0x20:0x30], name[:])
	binary.LittleEndian.PutUint32(data[0x30:], h.Unk5)
	binary.LittleEndian.PutUint32(data[0x34:], h.Unk6)
	binary.LittleEndian.PutUint32(data[0x38:], h.Unk8)
	binary.LittleEndian.PutUint32(data[0x3C:], h.Unk9)
	return nil
}

func parseSong(s *Song, data []byte, base int) (ntracks int, err error) {
	const chunk = "song"
	if string(data[0:4]) != chunk {
		return 0, dse.Formatf(chunk, base, "bad tag %q", data[0:4])
	}
	s.Unk1 = binary.LittleEndian.Uint32(data[0x04:])
	s.Unk2 = binary.LittleEndian.Uint32(data[0x08:])
	s.Unk3 = binary.LittleEndian.Uint32(data[0x0C:])
	s.Unk4 = binary.LittleEndian.Uint16(data[0x10:])
	s.TPQN = binary.LittleEndian.Uint16(data[0x12:])
	s.Unk5 = binary.LittleEndian.Uint16(data[0x14:])
	ntracks = int(data[0x16])
	s.ChannelCount = data[0x17]
	s.Unk6 = binary.LittleEndian.Uint32(data[0x18:])
	s.Unk7 = binary.LittleEndian.Uint32(data[0x1C:])
	s.Unk8 = binary.LittleEndian.Uint32(data[0x20:])
	s.Unk9 = binary.LittleEndian.Uint32(data[0x24:])
	s.Unk10 = binary.LittleEndian.Uint16(data[0x28:])
	s.Unk11 = binary.LittleEndian.Uint16(data[0x2A:])
	s.Unk12 = binary.LittleEndian.Uint32(data[0x2C:])
	if err := dse.CheckBytes(data[0x30:0x40], songFill[:], chunk, base+0x30); err != nil {
		return 0, err
	}
	return ntracks, nil
}

func (s *Song) put(data []byte, ntracks int) {
	copy(data[0:4], "song")
	binary.LittleEndian.PutUint32(data[0x04:], s.Unk1)
	binary.LittleEndian.PutUint32(data[0x08:], s.Unk2)
	binary.LittleEndian.PutUint32(data[0x0C:], s.Unk3)
	binary.LittleEndian.PutUint16(data[0x10:], s.Unk4)
	binary.LittleEndian.PutUint16(data[0x12:], s.TPQN)
	binary.LittleEndian.PutUint16(data[0x14:], s.Unk5)
	data[0x16] = uint8(ntracks)
	data[0x17] = s.ChannelCount
	binary.LittleEndian.PutUint32(data[0x18:], s.Unk6)
	binary.LittleEndian.PutUint32(data[0x1C:], s.Unk7)
	binary.LittleEndian.PutUint32(data[0x20:], s.Unk8)
	binary.LittleEndian.PutUint32(data[0x24:], s.Unk9)
	binary.LittleEndian.PutUint16(data[0x28:], s.Unk10)
	binary.LittleEndian.PutUint16(data[0x2A:], s.Unk11)
	binary.LittleEndian.PutUint32(data[0x2C:], s.Unk12)
	copy(data[0x30:0x40], songFill[:])
}

// =============================================================================

// ErrNotSMDL indicates that the data is not an SMDL file.
var ErrNotSMDL = errors.New("not an SMDL file")

// Parse parses an SMDL file.
func Parse(data []byte) (*SMDL, error) {
	if len(data) < HeaderSize+SongSize {
		return nil, dse.Formatf("smdl", 0, "file too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "smdl" {
		return nil, &dse.FormatError{Chunk: "smdl", Err: ErrNotSMDL}
	}
	var s SMDL
	flen, err := parseHeader(&s.Header, data)
	if err != nil {
		return nil, err
	}
	if flen != len(data) {
		return nil, dse.Formatf("smdl", 8, "header length is %d, file length is %d", flen, len(data))
	}
	ntracks, err := parseSong(&s.Song, data[HeaderSize:], HeaderSize)
	if err != nil {
		return nil, err
	}
	pos := HeaderSize + SongSize
	for i := 0; i < ntracks; i++ {
		if len(data)-pos < TrackHeaderSize {
			return nil, dse.Formatf("trk ", pos, "unexpected end of data in track %d", i)
		}
		h := data[pos : pos+TrackHeaderSize]
		if string(h[0:4]) != "trk " {
			return nil, dse.Formatf("trk ", pos, "bad tag %q in track %d", h[0:4], i)
		}
		hdr := TrackHeader{
			Param1: binary.LittleEndian.Uint32(h[4:8]),
			Param2: binary.LittleEndian.Uint32(h[8:12]),
		}
		n := int(binary.LittleEndian.Uint32(h[12:16]))
		pos += TrackHeaderSize
		end := pos + n
		padEnd := dse.Align(end, 4)
		if n > len(data)-pos || padEnd > len(data) {
			return nil, dse.Formatf("trk ", pos-4, "track %d length %d exceeds file", i, n)
		}
		tr, err := parseTrack(hdr, data[pos:end], data[end:padEnd], pos)
		if err != nil {
			return nil, errors.Wrapf(err, "track %d", i)
		}
		s.Tracks = append(s.Tracks, tr)
		pos = padEnd
	}
	if len(data)-pos != EOCSize {
		return nil, dse.Formatf("eoc ", pos, "expected %d bytes of end chunk, got %d", EOCSize, len(data)-pos)
	}
	e := data[pos:]
	if string(e[0:4]) != "eoc " {
		return nil, dse.Formatf("eoc ", pos, "bad tag %q", e[0:4])
	}
	s.EOC.Param1 = binary.LittleEndian.Uint32(e[4:8])
	s.EOC.Param2 = binary.LittleEndian.Uint32(e[8:12])
	if err := dse.CheckZero(e[12:16], "eoc ", pos+12); err != nil {
		return nil, err
	}
	return &s, nil
}

// Write encodes the SMDL file. Lengths and the track count are computed from
// the tracks.
func (s *SMDL) Write() ([]byte, error) {
	if len(s.Tracks) > 0xFF {
		return nil, &dse.RangeError{Field: "track count", Value: int64(len(s.Tracks)), Max: 0xFF}
	}
	data := make([]byte, HeaderSize+SongSize)
	for i, tr := range s.Tracks {
		body, err := tr.appendBody(nil)
		if err != nil {
			return nil, errors.Wrapf(err, "track %d", i)
		}
		var h [TrackHeaderSize]byte
		copy(h[0:4], "trk ")
		binary.LittleEndian.PutUint32(h[4:8], tr.Header.Param1)
		binary.LittleEndian.PutUint32(h[8:12], tr.Header.Param2)
		binary.LittleEndian.PutUint32(h[12:16], uint32(len(body)))
		data = append(data, h[:]...)
		data = append(data, body...)
		data = dse.Pad(data, 4, byte(OpTrackEnd))
	}
	var e [EOCSize]byte
	copy(e[0:4], "eoc ")
	binary.LittleEndian.PutUint32(e[4:8], s.EOC.Param1)
	binary.LittleEndian.PutUint32(e[8:12], s.EOC.Param2)
	data = append(data, e[:]...)
	if err := s.Header.put(data[:HeaderSize], len(data)); err != nil {
		return nil, err
	}
	s.Song.put(data[HeaderSize:HeaderSize+SongSize], len(s.Tracks))
	return data, nil
}
