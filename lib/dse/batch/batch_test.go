package batch

import (
	"context"
	"testing"

	"github.com/depp/dsekit/lib/dse/smdl"
	"github.com/depp/dsekit/lib/dse/swdl"
	"github.com/pkg/errors"
)

func smdlFile(t *testing.T, events ...smdl.Event) []byte {
	t.Helper()
	s := &smdl.SMDL{
		Header: smdl.Header{Version: 0x415},
		Song:   smdl.Song{TPQN: 48, ChannelCount: 1},
		Tracks: []*smdl.Track{{Events: events}},
	}
	data, err := s.Write()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func swdlFile(t *testing.T) []byte {
	t.Helper()
	s := swdl.New("bank")
	s.Wavi.Samples = []*swdl.SampleInfo{{Format: swdl.PCM16, SampleRate: 8000, LoopLength: 1}}
	s.Pcmd = &swdl.Pcmd{Data: []byte{1, 2, 3, 4}}
	data, err := s.Write()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestRoundTrip(t *testing.T) {
	end := smdl.Special{Op: smdl.OpTrackEnd}
	skipped := smdlFile(t, smdl.Special{Op: smdl.OpSetTempo, Params: []byte{0}}, end)
	// Replace SetTempo with a skip directive, which is dropped when decoding.
	skipped[smdl.HeaderSize+smdl.SongSize+smdl.TrackHeaderSize+smdl.PreambleSize] = 0xAB
	inputs := []Input{
		{"a.smd", smdlFile(t, smdl.PauseQuarter, end)},
		{"b.swd", swdlFile(t)},
		{"c.bin", []byte("not a DSE file")},
		{"d.smd", skipped},
		{"e.swd", swdlFile(t)[:100]},
	}
	results, err := RoundTrip(context.Background(), inputs, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(inputs) {
		t.Fatalf("got %d results", len(results))
	}
	for i, r := range results[:2] {
		if !r.OK() {
			t.Errorf("result %d: %v", i, &r)
		}
	}
	if r := results[0]; r.Kind != SMDL || r.Name != "a.smd" {
		t.Errorf("result 0: kind %v, name %q", r.Kind, r.Name)
	}
	if r := results[1]; r.Kind != SWDL {
		t.Errorf("result 1: kind %v", r.Kind)
	}
	if r := results[2]; !errors.Is(r.Err, ErrUnknownFormat) {
		t.Errorf("result 2: err = %v", r.Err)
	}
	// The track length field is the first difference.
	if r := results[3]; r.Err != nil || r.Mismatch != smdl.HeaderSize+smdl.SongSize+12 {
		t.Errorf("result 3: %v (mismatch %d)", &r, r.Mismatch)
	}
	if r := results[4]; r.Err == nil || r.OK() {
		t.Errorf("result 4: %v", &r)
	}
}

func TestRoundTripCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RoundTrip(ctx, []Input{{"a.swd", swdlFile(t)}}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want %v", err, context.Canceled)
	}
}

func TestDecodeAll(t *testing.T) {
	end := smdl.Special{Op: smdl.OpTrackEnd}
	files, err := DecodeAll(context.Background(), []Input{
		{"a.swd", swdlFile(t)},
		{"b.smd", smdlFile(t, end)},
	}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if files[0].Kind() != SWDL || files[1].Kind() != SMDL {
		t.Errorf("kinds = %v, %v", files[0].Kind(), files[1].Kind())
	}
	if files[0].SWDL.Name() != "bank" {
		t.Errorf("name = %q", files[0].SWDL.Name())
	}
	_, err = DecodeAll(context.Background(), []Input{
		{"a.swd", swdlFile(t)},
		{"bad.swd", []byte("swdl")},
	}, 4)
	if err == nil {
		t.Error("expected error")
	}
}

func TestFirstDifference(t *testing.T) {
	cases := []struct {
		a, b string
		n    int
	}{
		{"abc", "abc", -1},
		{"abc", "abd", 2},
		{"ab", "abc", 2},
		{"", "", -1},
	}
	for _, c := range cases {
		if n := firstDifference([]byte(c.a), []byte(c.b)); n != c.n {
			t.Errorf("firstDifference(%q, %q) = %d, want %d", c.a, c.b, n, c.n)
		}
	}
}
