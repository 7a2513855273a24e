package smdl

import "fmt"

// An Opcode is the leading byte of a special track event, in 0x90..0xFF.
type Opcode uint8

// Opcodes with known meaning. Registered opcodes without a known meaning have
// no constant but still decode and encode.
const (
	OpRepeatLastPause    Opcode = 0x90
	OpAddToLastPause     Opcode = 0x91
	OpPause8             Opcode = 0x92
	OpPause16            Opcode = 0x93
	OpPause24            Opcode = 0x94
	OpPauseUntilRelease  Opcode = 0x95
	OpTrackEnd           Opcode = 0x98
	OpLoopPoint          Opcode = 0x99
	OpSetOctave          Opcode = 0xA0
	OpAddOctave          Opcode = 0xA1
	OpSetTempo           Opcode = 0xA4
	OpSetTempo2          Opcode = 0xA5
	OpSetUnk1            Opcode = 0xA9
	OpSetUnk2            Opcode = 0xAA
	OpSkip1              Opcode = 0xAB
	OpSetProgram         Opcode = 0xAC
	OpSetModulation      Opcode = 0xBE
	OpSkip2              Opcode = 0xCB
	OpPitchBend          Opcode = 0xD7
	OpSetTrackVolume     Opcode = 0xE0
	OpSetTrackExpression Opcode = 0xE3
	OpSetTrackPan        Opcode = 0xE8
	OpSkip2Alt           Opcode = 0xF8
)

type opinfo struct {
	name    string // Empty for unregistered opcodes.
	nparams int    // Number of parameter bytes.
	skip    bool   // Skip directive: the parameter bytes are dropped.
}

// Multi-byte parameters (pauses, pitch bend) are kept as raw bytes in stream
// order.
var opcodes = [256]opinfo{
	0x90: {"RepeatLastPause", 0, false},
	0x91: {"AddToLastPause", 1, false},
	0x92: {"Pause8", 1, false},
	0x93: {"Pause16", 2, false},
	0x94: {"Pause24", 3, false},
	0x95: {"PauseUntilRelease", 1, false},
	0x98: {"TrackEnd", 0, false},
	0x99: {"LoopPoint", 0, false},
	0x9C: {"Unk9C", 1, false},
	0x9D: {"Unk9D", 0, false},
	0x9E: {"Unk9E", 0, false},
	0xA0: {"SetOctave", 1, false},
	0xA1: {"AddOctave", 1, false},
	0xA4: {"SetTempo", 1, false},
	0xA5: {"SetTempo2", 1, false},
	0xA8: {"UnkA8", 2, false},
	0xA9: {"SetUnk1", 1, false},
	0xAA: {"SetUnk2", 1, false},
	0xAB: {"Skip1", 1, true},
	0xAC: {"SetProgram", 1, false},
	0xAF: {"UnkAF", 3, false},
	0xB0: {"UnkB0", 0, false},
	0xB1: {"UnkB1", 1, false},
	0xB2: {"UnkB2", 1, false},
	0xB3: {"UnkB3", 1, false},
	0xB4: {"UnkB4", 2, false},
	0xB5: {"UnkB5", 1, false},
	0xB6: {"UnkB6", 1, false},
	0xBC: {"UnkBC", 1, false},
	0xBE: {"SetModulation", 1, false},
	0xBF: {"UnkBF", 1, false},
	0xC0: {"UnkC0", 0, false},
	0xC3: {"UnkC3", 1, false},
	0xCB: {"Skip2", 2, true},
	0xD0: {"UnkD0", 1, false},
	0xD1: {"UnkD1", 1, false},
	0xD2: {"UnkD2", 1, false},
	0xD3: {"UnkD3", 2, false},
	0xD4: {"UnkD4", 3, false},
	0xD5: {"UnkD5", 2, false},
	0xD6: {"UnkD6", 2, false},
	0xD7: {"PitchBend", 2, false},
	0xD8: {"UnkD8", 2, false},
	0xDB: {"UnkDB", 1, false},
	0xDC: {"UnkDC", 5, false},
	0xDD: {"UnkDD", 4, false},
	0xDF: {"UnkDF", 1, false},
	0xE0: {"SetTrackVolume", 1, false},
	0xE1: {"UnkE1", 1, false},
	0xE2: {"UnkE2", 3, false},
	0xE3: {"SetTrackExpression", 1, false},
	0xE4: {"UnkE4", 5, false},
	0xE5: {"UnkE5", 4, false},
	0xE7: {"UnkE7", 1, false},
	0xE8: {"SetTrackPan", 1, false},
	0xE9: {"UnkE9", 1, false},
	0xEA: {"UnkEA", 3, false},
	0xEC: {"UnkEC", 5, false},
	0xED: {"UnkED", 4, false},
	0xEF: {"UnkEF", 1, false},
	0xF0: {"UnkF0", 5, false},
	0xF1: {"UnkF1", 4, false},
	0xF2: {"UnkF2", 2, false},
	0xF3: {"UnkF3", 3, false},
	0xF6: {"UnkF6", 1, false},
	0xF8: {"Skip2Alt", 2, true},
}

// IsRegistered returns true if the opcode appears in the opcode table. The
// remaining opcodes disable the track when played and cannot be decoded.
func (op Opcode) IsRegistered() bool {
	return op >= 0x90 && opcodes[op].name != ""
}

// IsSkip returns true if the opcode is a skip directive, which never appears
// as an event.
func (op Opcode) IsSkip() bool {
	return op.IsRegistered() && opcodes[op].skip
}

// ParamCount returns the number of parameter bytes following the opcode.
func (op Opcode) ParamCount() int {
	return opcodes[op].nparams
}

func (op Opcode) String() string {
	if op.IsRegistered() {
		return opcodes[op].name
	}
	return fmt.Sprintf("Opcode(0x%02X)", uint8(op))
}

// =============================================================================

// A Pause is a fixed-length pause event, in 0x80..0x8F.
type Pause uint8

const (
	PauseHalf                  Pause = 0x80
	PauseDottedQuarter         Pause = 0x81
	PauseTwoThirdsHalf         Pause = 0x82
	PauseQuarter               Pause = 0x83
	PauseDottedEighth          Pause = 0x84
	PauseTwoThirdsQuarter      Pause = 0x85
	PauseEighth                Pause = 0x86
	PauseDottedSixteenth       Pause = 0x87
	PauseTwoThirdsEighth       Pause = 0x88
	PauseSixteenth             Pause = 0x89
	PauseDottedThirtySecond    Pause = 0x8A
	PauseTwoThirdsSixteenth    Pause = 0x8B
	PauseThirtySecond          Pause = 0x8C
	PauseDottedSixtyFourth     Pause = 0x8D
	PauseTwoThirdsThirtySecond Pause = 0x8E
	PauseSixtyFourth           Pause = 0x8F
)

var pauseTicks = [16]int{96, 72, 64, 48, 36, 32, 24, 18, 16, 12, 9, 8, 6, 4, 3, 2}

// Ticks returns the length of the pause in ticks.
func (p Pause) Ticks() int {
	if p < PauseHalf || PauseSixtyFourth < p {
		return 0
	}
	return pauseTicks[p-PauseHalf]
}

// PauseForTicks returns the fixed pause with the given length.
func PauseForTicks(ticks int) (Pause, bool) {
	for i, t := range pauseTicks {
		if t == ticks {
			return PauseHalf + Pause(i), true
		}
	}
	return 0, false
}

// =============================================================================

// A Note is the pitch class of a PlayNote event.
type Note uint8

const (
	NoteC Note = iota
	NoteCSharp
	NoteD
	NoteDSharp
	NoteE
	NoteF
	NoteFSharp
	NoteG
	NoteGSharp
	NoteA
	NoteASharp
	NoteB
	NoteInvalidC
	NoteInvalidD
	NoteInvalidE
	NoteUnknown
)

var noteNames = [16]string{
	"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
	"Invalid(C)", "Invalid(D)", "Invalid(E)", "Unknown",
}

// IsValid returns true if the note is one of the twelve pitch classes.
func (n Note) IsValid() bool {
	return n <= NoteB
}

func (n Note) String() string {
	if n < 16 {
		return noteNames[n]
	}
	return fmt.Sprintf("Note(%d)", uint8(n))
}
