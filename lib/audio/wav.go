package audio

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/depp/dsekit/lib/dse/swdl"
)

// ExportWAV writes a PCM sample as a 16-bit mono WAVE file. Loop points are
// not stored.
func ExportWAV(w io.WriteSeeker, info *swdl.SampleInfo, data []byte) error {
	s, err := samples16(info, data)
	if err != nil {
		return err
	}
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  int(info.SampleRate),
		},
		Data:           make([]int, len(s)),
		SourceBitDepth: 16,
	}
	for i, x := range s {
		buf.Data[i] = int(x)
	}
	enc := wav.NewEncoder(w, int(info.SampleRate), 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

// ImportWAV converts a WAVE file to a 16-bit PCM sample. Stereo files are mixed
// down to mono. The sample does not loop.
func ImportWAV(r io.ReadSeeker) (*swdl.SampleInfo, []byte, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, nil, errors.New("not a valid WAVE file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, nil, err
	}
	s := make([]int16, len(buf.Data))
	depth := int(dec.BitDepth)
	for i, x := range buf.Data {
		switch depth {
		case 8:
			s[i] = int16(x-128) << 8
		case 16:
			s[i] = int16(x)
		case 24:
			s[i] = int16(x >> 8)
		case 32:
			s[i] = int16(x >> 16)
		default:
			return nil, nil, fmt.Errorf("unsupported bit depth: %d", depth)
		}
	}
	s, err = mixdown(s, int(dec.NumChans))
	if err != nil {
		return nil, nil, err
	}
	return NewSample(s, dec.SampleRate, -1)
}
