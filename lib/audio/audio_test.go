package audio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/depp/dsekit/lib/audio/aiff"
	"github.com/depp/dsekit/lib/dse/swdl"
)

var pcm16 = []byte{
	0x01, 0x00, 0xff, 0xff, 0x00, 0x40,
	0x00, 0xc0, 0xff, 0x7f, 0x00, 0x80,
}

func loopedInfo() *swdl.SampleInfo {
	return &swdl.SampleInfo{
		RootKey:    60,
		Format:     swdl.PCM16,
		Loop:       true,
		SampleRate: 22050,
		LoopBegin:  1,
		LoopLength: 2,
	}
}

func TestAIFF(t *testing.T) {
	data, err := ExportAIFF(loopedInfo(), pcm16)
	if err != nil {
		t.Fatal("ExportAIFF:", err)
	}
	info, pcm, err := ImportAIFF(data)
	if err != nil {
		t.Fatal("ImportAIFF:", err)
	}
	if !bytes.Equal(pcm, pcm16) {
		t.Errorf("data = %x, want %x", pcm, pcm16)
	}
	if info.SampleRate != 22050 {
		t.Errorf("SampleRate = %d, want 22050", info.SampleRate)
	}
	if !info.Loop || info.LoopBegin != 1 || info.LoopLength != 2 {
		t.Errorf("loop = %t %d %d, want true 1 2", info.Loop, info.LoopBegin, info.LoopLength)
	}
	if info.RootKey != 60 {
		t.Errorf("RootKey = %d, want 60", info.RootKey)
	}
	if info.Format != swdl.PCM16 {
		t.Errorf("Format = %v", info.Format)
	}
	if o, ok := info.Sample.(swdl.OwnedSample); !ok || !bytes.Equal(o, pcm16) {
		t.Errorf("Sample = %v", info.Sample)
	}
	if n := info.SampleLength(); n != len(pcm) {
		t.Errorf("SampleLength = %d, want %d", n, len(pcm))
	}
}

func TestAIFF8(t *testing.T) {
	info := &swdl.SampleInfo{Format: swdl.PCM8, SampleRate: 8000, LoopLength: 1}
	data, err := ExportAIFF(info, []byte{0x10, 0x80, 0x7f, 0x00})
	if err != nil {
		t.Fatal("ExportAIFF:", err)
	}
	a, err := aiff.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if a.Common.SampleSize != 8 || a.Common.NumFrames != 4 {
		t.Errorf("common = %+v", a.Common)
	}
	if a.Instrument() != nil || a.Markers() != nil {
		t.Error("unlooped sample has loop chunks")
	}
	got, pcm, err := ImportAIFF(data)
	if err != nil {
		t.Fatal("ImportAIFF:", err)
	}
	want := []byte{0x00, 0x10, 0x00, 0x80, 0x00, 0x7f, 0x00, 0x00}
	if !bytes.Equal(pcm, want) {
		t.Errorf("data = %x, want %x", pcm, want)
	}
	if got.Loop || got.LoopBegin != 0 || got.LoopLength != 2 {
		t.Errorf("loop = %t %d %d", got.Loop, got.LoopBegin, got.LoopLength)
	}
}

func TestStereo(t *testing.T) {
	a := &aiff.AIFF{
		Common: aiff.Common{NumChannels: 2, NumFrames: 2, SampleSize: 16},
		Data:   &aiff.SoundData{Data: []byte{0, 100, 1, 44, 0xff, 0xfe, 0xff, 0xfc}},
	}
	copy(a.Common.Compression[:], aiff.PCMType)
	a.Common.SetRate(32000)
	a.Chunks = []aiff.Chunk{a.Data}
	data, err := a.Write(false)
	if err != nil {
		t.Fatal(err)
	}
	info, pcm, err := ImportAIFF(data)
	if err != nil {
		t.Fatal("ImportAIFF:", err)
	}
	// (100+300)/2 = 200, (-2-4)/2 = -3.
	want := []byte{200, 0, 0xfd, 0xff}
	if !bytes.Equal(pcm, want) {
		t.Errorf("data = %x, want %x", pcm, want)
	}
	if info.SampleRate != 32000 {
		t.Errorf("SampleRate = %d", info.SampleRate)
	}
}

func TestUnsupported(t *testing.T) {
	for _, f := range []swdl.SampleFormat{swdl.ADPCM4, swdl.PSG} {
		info := &swdl.SampleInfo{Format: f, SampleRate: 8000}
		if _, err := ExportAIFF(info, []byte{0, 0, 0, 0}); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ExportAIFF(%v): got %v, want ErrUnsupportedFormat", f, err)
		}
		path := filepath.Join(t.TempDir(), "out.wav")
		fp, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := ExportWAV(fp, info, []byte{0, 0, 0, 0}); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ExportWAV(%v): got %v, want ErrUnsupportedFormat", f, err)
		}
		fp.Close()
	}
}

func TestNewSample(t *testing.T) {
	info, pcm, err := NewSample([]int16{1, 2, 3}, 16000, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 0, 2, 0, 3, 0, 0, 0}
	if !bytes.Equal(pcm, want) {
		t.Errorf("data = %x, want %x", pcm, want)
	}
	if !info.Loop || info.LoopBegin != 0 || info.LoopLength != 2 {
		t.Errorf("loop = %t %d %d", info.Loop, info.LoopBegin, info.LoopLength)
	}
	if _, _, err := NewSample([]int16{1, 2, 3}, 16000, 4); err == nil {
		t.Error("loop past end accepted")
	}
	if _, _, err := NewSample(nil, 16000, -1); err == nil {
		t.Error("empty sample accepted")
	}
}

func TestWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.wav")
	fp, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := ExportWAV(fp, loopedInfo(), pcm16); err != nil {
		fp.Close()
		t.Fatal("ExportWAV:", err)
	}
	if err := fp.Close(); err != nil {
		t.Fatal(err)
	}
	fp, err = os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()
	info, pcm, err := ImportWAV(fp)
	if err != nil {
		t.Fatal("ImportWAV:", err)
	}
	if !bytes.Equal(pcm, pcm16) {
		t.Errorf("data = %x, want %x", pcm, pcm16)
	}
	if info.SampleRate != 22050 {
		t.Errorf("SampleRate = %d, want 22050", info.SampleRate)
	}
	if info.Loop || info.LoopLength != 3 {
		t.Errorf("loop = %t %d", info.Loop, info.LoopLength)
	}
}

func TestSetLoop(t *testing.T) {
	info, pcm, err := NewSample([]int16{1, 2, 3, 4, 5, 6, 7, 8}, 16000, -1)
	if err != nil {
		t.Fatal(err)
	}
	out, err := SetLoop(info, pcm, 2, 3)
	if err != nil {
		t.Fatal("SetLoop:", err)
	}
	// Cut after frame 5, rounded up to a 4-byte boundary.
	want := []byte{1, 0, 2, 0, 3, 0, 4, 0, 5, 0, 6, 0}
	if !bytes.Equal(out, want) {
		t.Errorf("data = %x, want %x", out, want)
	}
	if !info.Loop || info.LoopBegin != 1 || info.LoopLength != 2 {
		t.Errorf("loop = %t %d %d, want true 1 2", info.Loop, info.LoopBegin, info.LoopLength)
	}
	if n := info.SampleLength(); n != len(out) {
		t.Errorf("SampleLength = %d, want %d", n, len(out))
	}

	info, pcm, _ = NewSample([]int16{1, 2, 3, 4}, 16000, -1)
	out, err = SetLoop(info, pcm, 2, -1)
	if err != nil {
		t.Fatal("SetLoop:", err)
	}
	if len(out) != 8 || info.LoopBegin != 1 || info.LoopLength != 1 {
		t.Errorf("loop to end: len %d, loop %d %d", len(out), info.LoopBegin, info.LoopLength)
	}
	if _, err := SetLoop(info, pcm, 3, 2); err == nil {
		t.Error("loop past end accepted")
	}
}
