// Package aiff reads and writes uncompressed AIFF and AIFF-C files.
package aiff

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/depp/extended"
)

// StandardVersion is the recognized AIFF-C version number.
const StandardVersion = 0xA2805140

// An AIFF is a decoded AIFF or AIFF-C file.
type AIFF struct {
	Common Common
	Data   *SoundData
	Chunks []Chunk
}

// IsCompressed returns true if the sample data is not big-endian PCM.
func (a *AIFF) IsCompressed() bool {
	return a.Common.IsCompressed()
}

// Markers returns the marker chunk, or nil if there is none.
func (a *AIFF) Markers() *Markers {
	for _, ck := range a.Chunks {
		if m, ok := ck.(*Markers); ok {
			return m
		}
	}
	return nil
}

// Instrument returns the instrument chunk, or nil if there is none.
func (a *AIFF) Instrument() *Instrument {
	for _, ck := range a.Chunks {
		if i, ok := ck.(*Instrument); ok {
			return i
		}
	}
	return nil
}

// A Chunk is a piece of data in an AIFF file.
type Chunk interface {
	ChunkData(compressed bool) (id [4]byte, data []byte, err error)
}

type parsableChunk interface {
	Chunk
	parseChunk(data []byte, compressed bool) error
}

// =============================================================================

// A RawChunk is a raw chunk which has not been decoded or interpreted.
type RawChunk struct {
	ID   [4]byte
	Data []byte
}

// parseChunk implements the Chunk interface.
func (c *RawChunk) parseChunk(data []byte, _ bool) error {
	c.Data = append([]byte(nil), data...)
	return nil
}

// ChunkData implements the Chunk interface.
func (c *RawChunk) ChunkData(_ bool) (id [4]byte, data []byte, err error) {
	return c.ID, c.Data, nil
}

// =============================================================================

const (
	// PCMType is the compression type for big-endian PCM audio.
	PCMType = "NONE"

	// PCMName is the descriptive name for PCM (uncompressed) audio.
	PCMName = "not compressed"

	// SwappedType is the compression type for little-endian PCM audio.
	SwappedType = "sowt"
)

// A Common is the common chunk in an AIFF file.
type Common struct {
	NumChannels     int
	NumFrames       int
	SampleSize      int
	SampleRate      extended.Extended
	Compression     [4]byte
	CompressionName string
}

// parseChunk implements the Chunk interface.
func (c *Common) parseChunk(data []byte, compressed bool) error {
	if compressed {
		if len(data) < 23 {
			return fmt.Errorf("invalid common chunk: len = %d, should be at least 23", len(data))
		}
	} else {
		if len(data) != 18 {
			return fmt.Errorf("invalid common chunk: len = %d, should be 18", len(data))
		}
	}
	c.NumChannels = int(binary.BigEndian.Uint16(data[0:2]))
	c.NumFrames = int(binary.BigEndian.Uint32(data[2:6]))
	c.SampleSize = int(binary.BigEndian.Uint16(data[6:8]))
	c.SampleRate = extended.FromBytesBigEndian(data[8:18])
	if compressed {
		copy(c.Compression[:], data[18:22])
		n := int(data[22])
		rest := data[23:]
		// Pascal strings are padded to an even total length.
		if n != len(rest) && n+1 != len(rest) {
			return errors.New("invalid string in common chunk")
		}
		c.CompressionName = string(rest[:n])
	} else {
		copy(c.Compression[:], PCMType)
		c.CompressionName = PCMName
	}
	return nil
}

// ChunkData implements the Chunk interface.
func (c *Common) ChunkData(compressed bool) (id [4]byte, data []byte, err error) {
	copy(id[:], "COMM")
	if compressed {
		if len(c.CompressionName) > 255 {
			return id, data, errors.New("compression name is too long")
		}
		data = make([]byte, 23+len(c.CompressionName))
	} else {
		if c.IsCompressed() {
			return id, data, errors.New("data is compressed, must use AIFF-C format")
		}
		data = make([]byte, 18)
	}
	binary.BigEndian.PutUint16(data[0:2], uint16(c.NumChannels))
	binary.BigEndian.PutUint32(data[2:6], uint32(c.NumFrames))
	binary.BigEndian.PutUint16(data[6:8], uint16(c.SampleSize))
	c.SampleRate.PutBytesBigEndian(data[8:18])
	if compressed {
		copy(data[18:22], c.Compression[:])
		data[22] = byte(len(c.CompressionName))
		copy(data[23:], c.CompressionName)
	}
	return
}

// IsCompressed returns true if the sample data is not big-endian PCM.
func (c *Common) IsCompressed() bool {
	return string(c.Compression[:]) != PCMType
}

// Rate returns the sample rate, in Hz.
func (c *Common) Rate() float64 {
	return c.SampleRate.Float64()
}

// SetRate sets the sample rate, in Hz.
func (c *Common) SetRate(rate float64) {
	c.SampleRate = extended.FromFloat64(rate)
}

// =============================================================================

// A FormatVersion is the FVER chunk in an AIFC file.
type FormatVersion struct {
	Timestamp uint32
}

// parseChunk implements the Chunk interface.
func (c *FormatVersion) parseChunk(data []byte, compressed bool) error {
	if !compressed {
		return errors.New("unexpected FVER in uncompressed file")
	}
	if len(data) != 4 {
		return fmt.Errorf("FVER is length %d, should be length 4", len(data))
	}
	c.Timestamp = binary.BigEndian.Uint32(data)
	return nil
}

// ChunkData implements the Chunk interface.
func (c *FormatVersion) ChunkData(compressed bool) (id [4]byte, data []byte, err error) {
	if !compressed {
		return id, data, errors.New("cannot write FVER to uncompressed file")
	}
	copy(id[:], "FVER")
	data = make([]byte, 4)
	binary.BigEndian.PutUint32(data, c.Timestamp)
	return
}

// =============================================================================

// A SoundData is the SSND chunk in an AIFF file.
type SoundData struct {
	Offset    uint32
	BlockSize uint32
	Data      []byte
}

// parseChunk implements the Chunk interface.
func (c *SoundData) parseChunk(data []byte, _ bool) error {
	if len(data) < 8 {
		return errors.New("sound data chunk too short")
	}
	c.Offset = binary.BigEndian.Uint32(data[:4])
	c.BlockSize = binary.BigEndian.Uint32(data[4:8])
	if int(c.Offset) > len(data)-8 {
		return fmt.Errorf("sound data offset %d is past end of chunk", c.Offset)
	}
	c.Data = append([]byte(nil), data[8+c.Offset:]...)
	c.Offset = 0
	return nil
}

// ChunkData implements the Chunk interface.
func (c *SoundData) ChunkData(_ bool) (id [4]byte, data []byte, err error) {
	copy(id[:], "SSND")
	data = make([]byte, len(c.Data)+8)
	binary.BigEndian.PutUint32(data[0:4], c.Offset)
	binary.BigEndian.PutUint32(data[4:8], c.BlockSize)
	copy(data[8:], c.Data)
	return
}

// =============================================================================

// A Marker is a named location in an AIFF file.
type Marker struct {
	ID       int
	Position int // Frame index.
	Name     string
}

// A Markers is the MARK chunk in an AIFF file.
type Markers struct {
	Markers []Marker
}

// Find returns the marker with the given ID.
func (c *Markers) Find(id int) (Marker, bool) {
	for _, m := range c.Markers {
		if m.ID == id {
			return m, true
		}
	}
	return Marker{}, false
}

func (c *Markers) parseChunk(data []byte, _ bool) error {
	if len(data) < 2 {
		return errUnexpectedEOF
	}
	count := int(binary.BigEndian.Uint16(data))
	c.Markers = make([]Marker, count)
	d := data[2:]
	for i := range c.Markers {
		if len(d) < 7 {
			return errUnexpectedEOF
		}
		id := int(binary.BigEndian.Uint16(d))
		pos := int(binary.BigEndian.Uint32(d[2:]))
		n := int(d[6])
		sz := (7 + n + 1) &^ 1
		if len(d) < 7+n {
			return errUnexpectedEOF
		}
		c.Markers[i] = Marker{
			ID:       id,
			Position: pos,
			Name:     string(d[7 : 7+n]),
		}
		if sz > len(d) {
			sz = len(d)
		}
		d = d[sz:]
	}
	return nil
}

// ChunkData implements the Chunk interface.
func (c *Markers) ChunkData(_ bool) (id [4]byte, data []byte, err error) {
	copy(id[:], "MARK")
	n := 2
	for _, m := range c.Markers {
		if len(m.Name) > 255 {
			return id, data, fmt.Errorf("marker name too long, must be 255 bytes or less: %q", m.Name)
		}
		n += (7 + len(m.Name) + 1) &^ 1
	}
	data = make([]byte, n)
	binary.BigEndian.PutUint16(data, uint16(len(c.Markers)))
	d := data[2:]
	for _, m := range c.Markers {
		binary.BigEndian.PutUint16(d, uint16(m.ID))
		binary.BigEndian.PutUint32(d[2:], uint32(m.Position))
		d[6] = byte(len(m.Name))
		copy(d[7:], m.Name)
		d = d[(7+len(m.Name)+1)&^1:]
	}
	return id, data, nil
}

// =============================================================================

// A LoopMode describes how a loop is played back.
type LoopMode int

const (
	// LoopNone does not loop.
	LoopNone LoopMode = 0
	// LoopForward plays the loop forwards repeatedly.
	LoopForward LoopMode = 1
	// LoopForwardBackward alternates between playing the loop forwards and
	// backwards.
	LoopForwardBackward LoopMode = 2
)

// A Loop is an audio loop in an AIFF file.
type Loop struct {
	Mode  LoopMode
	Begin int // Marker ID.
	End   int // Marker ID.
}

func (l *Loop) parse(data []byte) {
	l.Mode = LoopMode(binary.BigEndian.Uint16(data))
	l.Begin = int(binary.BigEndian.Uint16(data[2:]))
	l.End = int(binary.BigEndian.Uint16(data[4:]))
}

func (l *Loop) write(data []byte) {
	binary.BigEndian.PutUint16(data, uint16(l.Mode))
	binary.BigEndian.PutUint16(data[2:], uint16(l.Begin))
	binary.BigEndian.PutUint16(data[4:], uint16(l.End))
}

// An Instrument is a chunk describing how to use the data in an AIFF file as a
// sampled musical instrument.
type Instrument struct {
	BaseNote     int
	Detune       int
	LowNote      int
	HighNote     int
	LowVelocity  int
	HighVelocity int
	Gain         int
	SustainLoop  Loop
	ReleaseLoop  Loop
}

func (c *Instrument) parseChunk(data []byte, _ bool) error {
	if len(data) < 20 {
		return errors.New("instrument chunk too short")
	}
	c.BaseNote = int(data[0])
	c.Detune = int(int8(data[1]))
	c.LowNote = int(data[2])
	c.HighNote = int(data[3])
	c.LowVelocity = int(data[4])
	c.HighVelocity = int(data[5])
	c.Gain = int(int16(binary.BigEndian.Uint16(data[6:])))
	c.SustainLoop.parse(data[8:])
	c.ReleaseLoop.parse(data[14:])
	return nil
}

// ChunkData implements the Chunk interface.
func (c *Instrument) ChunkData(_ bool) (id [4]byte, data []byte, err error) {
	copy(id[:], "INST")
	data = make([]byte, 20)
	data[0] = byte(c.BaseNote)
	data[1] = byte(c.Detune)
	data[2] = byte(c.LowNote)
	data[3] = byte(c.HighNote)
	data[4] = byte(c.LowVelocity)
	data[5] = byte(c.HighVelocity)
	binary.BigEndian.PutUint16(data[6:], uint16(c.Gain))
	c.SustainLoop.write(data[8:])
	c.ReleaseLoop.write(data[14:])
	return id, data, nil
}

// =============================================================================

var errUnexpectedEOF = errors.New("unexpected end of file in AIFF data")

// ErrNotAIFF indicates that the file is not an AIFF file.
var ErrNotAIFF = errors.New("not an AIFF file")

// Parse an AIFF or AIFF-C file.
func Parse(data []byte) (*AIFF, error) {
	if len(data) < 12 {
		return nil, errors.New("AIFF too short")
	}
	header := data[0:12:12]
	if string(header[0:4]) != "FORM" {
		return nil, ErrNotAIFF
	}
	var compressed bool
	switch string(header[8:12]) {
	case "AIFF":
	case "AIFC":
		compressed = true
	default:
		return nil, ErrNotAIFF
	}
	flen := binary.BigEndian.Uint32(header[4:8])
	if flen < 4 {
		return nil, errUnexpectedEOF
	}
	if int(flen) > len(data)-8 {
		return nil, errors.New("AIFF file shorter than header indicates")
	}
	rest := data[12 : 8+flen]
	var chunks []Chunk
	var a AIFF
	var hasCommon, hasFVer bool
	for len(rest) > 0 {
		if len(rest) < 8 {
			return nil, errUnexpectedEOF
		}
		ch := rest[0:8:8]
		rest = rest[8:]
		clen := binary.BigEndian.Uint32(ch[4:])
		if int(clen) > len(rest) {
			return nil, errUnexpectedEOF
		}
		cdata := rest[:clen]
		rest = rest[clen:]
		if clen&1 != 0 && len(rest) > 0 {
			rest = rest[1:]
		}
		var ck parsableChunk
		switch string(ch[:4]) {
		case "COMM":
			if hasCommon {
				return nil, errors.New("multiple common chunks")
			}
			ck = &a.Common
			hasCommon = true
		case "FVER":
			if hasFVer {
				return nil, errors.New("multiple format version chunks")
			}
			ck = new(FormatVersion)
			hasFVer = true
		case "SSND":
			if a.Data != nil {
				return nil, errors.New("multiple sound data chunks")
			}
			d := new(SoundData)
			a.Data = d
			ck = d
		case "MARK":
			ck = new(Markers)
		case "INST":
			ck = new(Instrument)
		default:
			r := new(RawChunk)
			copy(r.ID[:], ch[:4])
			ck = r
		}
		if err := ck.parseChunk(cdata, compressed); err != nil {
			return nil, fmt.Errorf("could not parse %q chunk: %w", ch[:4], err)
		}
		if _, ok := ck.(*Common); !ok {
			chunks = append(chunks, ck)
		}
	}
	if !hasCommon {
		return nil, errors.New("missing common chunk")
	}
	if a.Data == nil {
		return nil, errors.New("missing data chunk")
	}
	a.Chunks = chunks
	return &a, nil
}

// Write encodes the file. The common chunk is written first, and a format
// version chunk is added to compressed files.
func (a *AIFF) Write(compressed bool) ([]byte, error) {
	if !compressed && a.IsCompressed() {
		return nil, errors.New("compressed files cannot be written as AIFF")
	}
	rchunks := make([]RawChunk, 0, len(a.Chunks)+2)
	if compressed {
		var id [4]byte
		copy(id[:], "FVER")
		var data [4]byte
		binary.BigEndian.PutUint32(data[:], StandardVersion)
		rchunks = append(rchunks, RawChunk{id, data[:]})
	}
	chunks := append([]Chunk{&a.Common}, a.Chunks...)
	for _, ck := range chunks {
		if _, ok := ck.(*FormatVersion); ok {
			continue
		}
		id, data, err := ck.ChunkData(compressed)
		if err != nil {
			return nil, err
		}
		rchunks = append(rchunks, RawChunk{id, data})
	}
	pos := 12
	for _, ck := range rchunks {
		pos = (pos + 8 + len(ck.Data) + 1) &^ 1
	}
	data := make([]byte, pos)
	header := data[0:12:12]
	copy(header[:], "FORM")
	binary.BigEndian.PutUint32(header[4:8], uint32(pos-8))
	if compressed {
		copy(header[8:], "AIFC")
	} else {
		copy(header[8:], "AIFF")
	}
	pos = 12
	for _, ck := range rchunks {
		cheader := data[pos : pos+8 : pos+8]
		copy(cheader[:4], ck.ID[:])
		binary.BigEndian.PutUint32(cheader[4:], uint32(len(ck.Data)))
		pos += 8
		copy(data[pos:], ck.Data)
		pos += (len(ck.Data) + 1) &^ 1
	}
	return data, nil
}

// GetSamples16 returns the samples in an AIFF file, converted to signed 16-bit.
// Channels remain interleaved.
func (a *AIFF) GetSamples16() ([]int16, error) {
	raw := a.Data.Data
	switch string(a.Common.Compression[:]) {
	case PCMType, SwappedType:
		order := binary.ByteOrder(binary.BigEndian)
		if string(a.Common.Compression[:]) == SwappedType {
			order = binary.LittleEndian
		}
		switch a.Common.SampleSize {
		case 8:
			dec := make([]int16, len(raw))
			for i, x := range raw {
				dec[i] = int16(int8(x)) << 8
			}
			return dec, nil
		case 16:
			dec := make([]int16, len(raw)/2)
			for i := range dec {
				dec[i] = int16(order.Uint16(raw[i*2 : i*2+2]))
			}
			return dec, nil
		default:
			return nil, fmt.Errorf("unsupported bit depth: %d", a.Common.SampleSize)
		}
	default:
		return nil, fmt.Errorf("unsupported compression: %q", a.Common.Compression[:])
	}
}
