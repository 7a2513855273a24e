// Package audio converts DSE samples to and from AIFF and WAVE files.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/depp/dsekit/lib/audio/aiff"
	"github.com/depp/dsekit/lib/dse/swdl"
)

// ErrUnsupportedFormat indicates that a sample cannot be converted without
// decoding it first.
var ErrUnsupportedFormat = errors.New("unsupported sample format")

const (
	loopBeginMarker = 1
	loopEndMarker   = 2
)

func bytesPerFrame(f swdl.SampleFormat) (int, error) {
	switch f {
	case swdl.PCM8:
		return 1, nil
	case swdl.PCM16:
		return 2, nil
	}
	return 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
}

// samples16 returns the sample data as signed 16-bit values.
func samples16(info *swdl.SampleInfo, data []byte) ([]int16, error) {
	if _, err := bytesPerFrame(info.Format); err != nil {
		return nil, err
	}
	var s []int16
	if info.Format == swdl.PCM8 {
		s = make([]int16, len(data))
		for i, x := range data {
			s[i] = int16(int8(x)) << 8
		}
	} else {
		s = make([]int16, len(data)/2)
		for i := range s {
			s[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
		}
	}
	return s, nil
}

// loopFrames returns the loop start and end, in frames, or -1 if the sample
// does not loop.
func loopFrames(info *swdl.SampleInfo, nframes int) (start, end int) {
	if !info.Loop {
		return -1, -1
	}
	bpf := 2
	if info.Format == swdl.PCM8 {
		bpf = 1
	}
	start = int(info.LoopBegin) * 4 / bpf
	end = int(info.LoopBegin+info.LoopLength) * 4 / bpf
	if end > nframes {
		end = nframes
	}
	if start > end {
		start = end
	}
	return start, end
}

// ExportAIFF converts a PCM sample to an AIFF file. The loop is stored as a
// sustain loop.
func ExportAIFF(info *swdl.SampleInfo, data []byte) ([]byte, error) {
	bpf, err := bytesPerFrame(info.Format)
	if err != nil {
		return nil, err
	}
	nframes := len(data) / bpf
	snd := &aiff.SoundData{Data: make([]byte, nframes*bpf)}
	if bpf == 1 {
		copy(snd.Data, data)
	} else {
		for i := 0; i < nframes; i++ {
			binary.BigEndian.PutUint16(snd.Data[i*2:], binary.LittleEndian.Uint16(data[i*2:]))
		}
	}
	a := aiff.AIFF{
		Common: aiff.Common{
			NumChannels:     1,
			NumFrames:       nframes,
			SampleSize:      bpf * 8,
			CompressionName: aiff.PCMName,
		},
		Data: snd,
	}
	copy(a.Common.Compression[:], aiff.PCMType)
	a.Common.SetRate(float64(info.SampleRate))
	if start, end := loopFrames(info, nframes); start >= 0 {
		a.Chunks = append(a.Chunks,
			&aiff.Markers{Markers: []aiff.Marker{
				{ID: loopBeginMarker, Position: start, Name: "beg loop"},
				{ID: loopEndMarker, Position: end, Name: "end loop"},
			}},
			&aiff.Instrument{
				BaseNote:     int(info.RootKey),
				LowNote:      0,
				HighNote:     127,
				LowVelocity:  1,
				HighVelocity: 127,
				SustainLoop: aiff.Loop{
					Mode:  aiff.LoopForward,
					Begin: loopBeginMarker,
					End:   loopEndMarker,
				},
			})
	}
	a.Chunks = append(a.Chunks, snd)
	return a.Write(false)
}

// ImportAIFF converts an AIFF or AIFF-C file to a 16-bit PCM sample. Stereo
// files are mixed down to mono. The sustain loop, if any, sets the loop start.
func ImportAIFF(data []byte) (*swdl.SampleInfo, []byte, error) {
	a, err := aiff.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	s, err := a.GetSamples16()
	if err != nil {
		return nil, nil, err
	}
	s, err = mixdown(s, a.Common.NumChannels)
	if err != nil {
		return nil, nil, err
	}
	loopStart := -1
	if inst := a.Instrument(); inst != nil && inst.SustainLoop.Mode != aiff.LoopNone {
		if m := a.Markers(); m != nil {
			mk, ok := m.Find(inst.SustainLoop.Begin)
			if !ok {
				return nil, nil, fmt.Errorf("loop refers to missing marker %d", inst.SustainLoop.Begin)
			}
			loopStart = mk.Position
		}
	}
	info, pcm, err := NewSample(s, uint32(a.Common.Rate()+0.5), loopStart)
	if err != nil {
		return nil, nil, err
	}
	if inst := a.Instrument(); inst != nil {
		info.RootKey = int8(inst.BaseNote)
	}
	return info, pcm, nil
}

func mixdown(s []int16, nchan int) ([]int16, error) {
	switch {
	case nchan == 1:
		return s, nil
	case nchan < 1:
		return nil, fmt.Errorf("invalid channel count: %d", nchan)
	}
	out := make([]int16, len(s)/nchan)
	for i := range out {
		var sum int
		for _, x := range s[i*nchan : i*nchan+nchan] {
			sum += int(x)
		}
		out[i] = int16(sum / nchan)
	}
	return out, nil
}

// NewSample creates a 16-bit PCM sample entry with default parameters. The
// sample is padded with silence to a multiple of 4 bytes. If loopStart is not
// negative, the sample loops from that frame to the end, rounded down to the
// nearest 4-byte boundary.
func NewSample(samples []int16, rate uint32, loopStart int) (*swdl.SampleInfo, []byte, error) {
	if len(samples) == 0 {
		return nil, nil, errors.New("empty sample")
	}
	if loopStart > len(samples) {
		return nil, nil, fmt.Errorf("loop start %d is past end of sample (%d frames)", loopStart, len(samples))
	}
	pcm := make([]byte, (len(samples)*2+3)&^3)
	for i, x := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(x))
	}
	info := &swdl.SampleInfo{
		RootKey:            60,
		Volume:             127,
		Pan:                64,
		Format:             swdl.PCM16,
		SampleRate:         rate,
		Envelope:           1,
		EnvelopeMultiplier: 1,
		Sustain:            127,
		Decay2:             127,
		Release:            40,
		Sample:             swdl.OwnedSample(pcm),
	}
	total := uint32(len(pcm) / 4)
	if loopStart >= 0 {
		info.Loop = true
		info.LoopBegin = uint32(loopStart * 2 / 4)
	}
	info.LoopLength = total - info.LoopBegin
	return info, pcm, nil
}

// SetLoop makes a 16-bit PCM sample loop from the start frame. A negative
// length loops to the end of the sample, otherwise the sample is cut after
// the loop. Returns the new sample data.
func SetLoop(info *swdl.SampleInfo, pcm []byte, start, length int) ([]byte, error) {
	if info.Format != swdl.PCM16 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, info.Format)
	}
	nframes := len(pcm) / 2
	end := nframes
	if length >= 0 {
		end = start + length
	}
	if start < 0 || end > nframes || start > end {
		return nil, fmt.Errorf("loop %d+%d is outside sample (%d frames)", start, length, nframes)
	}
	if n := (end*2 + 3) &^ 3; n <= len(pcm) {
		pcm = pcm[:n:n]
	} else {
		pcm = append(pcm[:len(pcm):len(pcm)], make([]byte, n-len(pcm))...)
	}
	info.Loop = true
	info.LoopBegin = uint32(start * 2 / 4)
	info.LoopLength = uint32(len(pcm)/4) - info.LoopBegin
	info.Sample = swdl.OwnedSample(pcm)
	return pcm, nil
}
