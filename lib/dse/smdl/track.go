package smdl

import (
	"github.com/depp/dsekit/lib/dse"
	"github.com/pkg/errors"
)

var (
	// ErrTruncatedTrack indicates an event which extends past the end of its track.
	ErrTruncatedTrack = errors.New("track event extends past end of track")

	// ErrInvalidOpcode indicates an opcode which is not in the opcode table.
	ErrInvalidOpcode = errors.New("invalid opcode")

	// ErrBadPadding indicates track padding which is not TrackEnd.
	ErrBadPadding = errors.New("track padding is not TrackEnd")

	// ErrNoTrackEnd indicates a track whose last event is not TrackEnd.
	ErrNoTrackEnd = errors.New("track does not finish with TrackEnd")
)

const (
	maxVelocity = 0x7F

	// NoDuration is the PlayNote duration for notes which use the previous
	// key down duration.
	NoDuration = -1

	// MaxDuration is the longest key down duration which can be encoded.
	MaxDuration = 0xFFFFFF
)

// An Event is an event in a track.
type Event interface {
	appendEvent(data []byte) ([]byte, error)
}

// A PlayNote event starts playing a note.
type PlayNote struct {
	Velocity    uint8 // 0..127
	OctaveDelta int8  // -2..1, relative to the track octave
	Note        Note
	Duration    int // Key down duration in ticks, or NoDuration.
}

// durationSize returns the number of bytes used to encode a duration.
func durationSize(d int) int {
	switch {
	case d < 0:
		return 0
	case d > 0xFFFF:
		return 3
	case d > 0xFF:
		return 2
	default:
		return 1
	}
}

func (e PlayNote) appendEvent(data []byte) ([]byte, error) {
	if err := dse.CheckRange("velocity", int64(e.Velocity), 0, maxVelocity); err != nil {
		return nil, err
	}
	if err := dse.CheckRange("octave delta", int64(e.OctaveDelta), -2, 1); err != nil {
		return nil, err
	}
	if err := dse.CheckRange("note", int64(e.Note), 0, 15); err != nil {
		return nil, err
	}
	if err := dse.CheckRange("key down duration", int64(e.Duration), NoDuration, MaxDuration); err != nil {
		return nil, err
	}
	n := durationSize(e.Duration)
	data = append(data, e.Velocity, byte(n)<<6|byte(e.OctaveDelta+2)<<4|byte(e.Note))
	// Big-endian, unlike every other field.
	for i := n - 1; i >= 0; i-- {
		data = append(data, byte(e.Duration>>(8*i)))
	}
	return data, nil
}

func (e Pause) appendEvent(data []byte) ([]byte, error) {
	if err := dse.CheckRange("pause", int64(e), int64(PauseHalf), int64(PauseSixtyFourth)); err != nil {
		return nil, err
	}
	return append(data, byte(e)), nil
}

// A Special is any other event: an opcode followed by a fixed number of
// parameter bytes.
type Special struct {
	Op     Opcode
	Params []byte
}

func (e Special) appendEvent(data []byte) ([]byte, error) {
	if !e.Op.IsRegistered() || e.Op.IsSkip() {
		return nil, errors.Wrapf(ErrInvalidOpcode, "cannot encode %v", e.Op)
	}
	if n := e.Op.ParamCount(); len(e.Params) != n {
		return nil, &dse.RangeError{
			Field: e.Op.String() + " parameter count",
			Value: int64(len(e.Params)),
			Min:   int64(n),
			Max:   int64(n),
		}
	}
	data = append(data, byte(e.Op))
	return append(data, e.Params...), nil
}

// IsTrackEnd returns true if the event is a TrackEnd event.
func IsTrackEnd(e Event) bool {
	s, ok := e.(Special)
	return ok && s.Op == OpTrackEnd
}

// =============================================================================

// A TrackHeader is the header of a track chunk. The length is computed when
// the track is written.
type TrackHeader struct {
	Param1 uint32
	Param2 uint32
}

// A Preamble is the first four bytes of a track.
type Preamble struct {
	TrackID   uint8
	ChannelID uint8
	Unk1      uint8
	Unk2      uint8
}

// A Track is a sequence of events played on one channel.
type Track struct {
	Header   TrackHeader
	Preamble Preamble
	Events   []Event
}

// parseTrack parses a track body. The padding contains the bytes between the
// end of the body and the next 4-byte boundary. Offsets in errors are relative
// to base.
func parseTrack(hdr TrackHeader, body, padding []byte, base int) (*Track, error) {
	const chunk = "trk "
	if len(body) < PreambleSize {
		return nil, dse.Formatf(chunk, base, "track length %d is shorter than preamble", len(body))
	}
	tr := Track{
		Header: hdr,
		Preamble: Preamble{
			TrackID:   body[0],
			ChannelID: body[1],
			Unk1:      body[2],
			Unk2:      body[3],
		},
	}
	pos := PreambleSize
	truncated := func(n int) error {
		if pos+n > len(body) {
			return &dse.FormatError{Chunk: chunk, Offset: base + pos, Err: ErrTruncatedTrack}
		}
		return nil
	}
	for pos < len(body) {
		op := body[pos]
		pos++
		switch {
		case op <= maxVelocity:
			if err := truncated(1); err != nil {
				return nil, err
			}
			p := body[pos]
			pos++
			n := int(p >> 6)
			if err := truncated(n); err != nil {
				return nil, err
			}
			dur := NoDuration
			if n > 0 {
				dur = 0
				for _, b := range body[pos : pos+n] {
					dur = dur<<8 | int(b)
				}
			}
			pos += n
			tr.Events = append(tr.Events, PlayNote{
				Velocity:    op,
				OctaveDelta: int8(p>>4&3) - 2,
				Note:        Note(p & 0xF),
				Duration:    dur,
			})
		case op <= uint8(PauseSixtyFourth):
			tr.Events = append(tr.Events, Pause(op))
		default:
			sop := Opcode(op)
			if !sop.IsRegistered() {
				return nil, &dse.FormatError{
					Chunk:  chunk,
					Offset: base + pos - 1,
					Err:    errors.Wrapf(ErrInvalidOpcode, "opcode 0x%02X", op),
				}
			}
			n := sop.ParamCount()
			if err := truncated(n); err != nil {
				return nil, err
			}
			if sop.IsSkip() {
				pos += n
				continue
			}
			params := make([]byte, n)
			copy(params, body[pos:pos+n])
			pos += n
			tr.Events = append(tr.Events, Special{Op: sop, Params: params})
		}
	}
	if len(tr.Events) == 0 || !IsTrackEnd(tr.Events[len(tr.Events)-1]) {
		return nil, &dse.FormatError{Chunk: chunk, Offset: base + len(body), Err: ErrNoTrackEnd}
	}
	for i, b := range padding {
		if b != byte(OpTrackEnd) {
			return nil, &dse.FormatError{Chunk: chunk, Offset: base + len(body) + i, Err: ErrBadPadding}
		}
	}
	return &tr, nil
}

// appendBody appends the preamble and events of the track.
func (tr *Track) appendBody(data []byte) ([]byte, error) {
	if len(tr.Events) == 0 || !IsTrackEnd(tr.Events[len(tr.Events)-1]) {
		return nil, ErrNoTrackEnd
	}
	p := tr.Preamble
	data = append(data, p.TrackID, p.ChannelID, p.Unk1, p.Unk2)
	for i, e := range tr.Events {
		var err error
		data, err = e.appendEvent(data)
		if err != nil {
			return nil, errors.Wrapf(err, "event %d", i)
		}
	}
	return data, nil
}
