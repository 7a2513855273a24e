package vault

import (
	"bytes"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/depp/dsekit/lib/audio/metadata"
	"github.com/depp/dsekit/lib/dse/swdl"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func quietLogs(t *testing.T) *test.Hook {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	SetLogger(logger)
	t.Cleanup(func() { SetLogger(logrus.StandardLogger()) })
	return hook
}

// masterBank returns a master bank with two samples: sample 0 is 8 bytes at
// offset 0, and sample 1 is 16 bytes at offset 8.
func masterBank() *swdl.SWDL {
	m := swdl.New("master")
	m.Pcmd = &swdl.Pcmd{Data: make([]byte, 24)}
	for i := range m.Pcmd.Data {
		m.Pcmd.Data[i] = byte(i + 1)
	}
	m.Wavi.Samples = []*swdl.SampleInfo{
		{ID: 0, Format: swdl.PCM16, SampleRate: 22050, LoopLength: 2, SamplePos: 0, Volume: 127},
		{ID: 1, Format: swdl.PCM8, SampleRate: 11025, Loop: true, LoopBegin: 1, LoopLength: 3, SamplePos: 8, Volume: 127},
	}
	return m
}

// subBank returns a bank which uses the samples in the master bank. Sample 1
// has a different volume than in the master bank, and program 2 has an
// invalid keygroup ID.
func subBank() *swdl.SWDL {
	m := masterBank()
	s := swdl.New("bgm0001")
	s.Header.PcmdLen = swdl.ExternalPcmd
	w0 := m.Wavi.Samples[0].Clone()
	w1 := m.Wavi.Samples[1].Clone()
	w1.Volume = 100
	w1.SamplePos = 0
	s.Wavi.Samples = []*swdl.SampleInfo{w0, w1}
	s.Prgi = &swdl.Prgi{Programs: []*swdl.Program{
		{ID: 0, Volume: 127, Splits: []swdl.Split{
			{ID: 0, HighKey: 127, HighVelocity: 127, SampleID: 1, KeygroupID: 0},
		}},
		nil,
		{ID: 2, Volume: 100, LFOs: []swdl.LFO{{Dest: swdl.LFOVolume, WaveShape: swdl.WaveTriangle}}, Splits: []swdl.Split{
			{ID: 0, HighKey: 59, HighVelocity: 127, SampleID: 0, KeygroupID: 1},
			{ID: 1, LowKey: 60, HighKey: 127, HighVelocity: 127, SampleID: 1, KeygroupID: 5},
		}},
	}}
	s.Kgrp = &swdl.Kgrp{Keygroups: []swdl.Keygroup{
		{ID: 0, Polyphony: -1, Priority: 8, VelocityHigh: 0xFF},
		{ID: 1, Polyphony: 2, Priority: 8, VelocityHigh: 0xFF},
	}}
	return s
}

var names = metadata.NameTable{
	"bgm0001.swd": {{Instrument: "Piano", Name: "Title"}},
}

func filledVault(t *testing.T) (*Vault, *swdl.SWDL) {
	t.Helper()
	master := masterBank()
	v := New()
	if err := v.FillFromBanks(map[string]*swdl.SWDL{"bgm0001.swd": subBank()}, master, names); err != nil {
		t.Fatal(err)
	}
	return v, master
}

func TestFillFromBanks(t *testing.T) {
	hook := quietLogs(t)
	v, master := filledVault(t)
	ps := v.BySourceFilename()["bgm0001.swd"]
	if len(ps) != 2 {
		t.Fatalf("got %d programs, want 2", len(ps))
	}
	p0, p2 := ps[0], ps[1]
	if p0.SourceProgramID != 0 || p2.SourceProgramID != 2 {
		t.Errorf("source program IDs = %d, %d", p0.SourceProgramID, p2.SourceProgramID)
	}
	if p0.InstrumentName != "Piano" || p0.Name != "Title" {
		t.Errorf("p0 name = %q, %q", p0.InstrumentName, p0.Name)
	}
	if p2.InstrumentName != "" || p2.Name != "" {
		t.Errorf("p2 name = %q, %q", p2.InstrumentName, p2.Name)
	}
	if p0.SourceName != "bgm0001" || p0.SourceFilename != "bgm0001.swd" {
		t.Errorf("p0 source = %q, %q", p0.SourceFilename, p0.SourceName)
	}
	if !bytes.Equal(p0.Samples[0], master.Pcmd.Data[8:24]) {
		t.Errorf("p0 sample = % x", p0.Samples[0])
	}
	if w := p0.Wavis[0]; w.Volume != 100 || w.SamplePos != 8 {
		t.Errorf("p0 wavi volume = %d, position = %d; want 100, 8", w.Volume, w.SamplePos)
	}
	if len(p2.Samples) != 2 || !bytes.Equal(p2.Samples[0], master.Pcmd.Data[0:8]) {
		t.Errorf("p2 samples = % x", p2.Samples)
	}
	kg := subBank().Kgrp.Keygroups
	if !reflect.DeepEqual(p2.Keygroups, []swdl.Keygroup{kg[1], kg[0]}) {
		t.Errorf("p2 keygroups = %+v", p2.Keygroups)
	}
	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "keygroup") {
			warned = true
		}
	}
	if !warned {
		t.Error("no warning for invalid keygroup")
	}
	if got := v.BySourceName()["bgm0001"]; len(got) != 2 || got[0] != p0 {
		t.Errorf("by source name = %v", got)
	}
	if v.Get(p2.ID) != p2 {
		t.Error("Get did not find program")
	}
	if v.Get(uuid.New()) != nil {
		t.Error("Get found missing program")
	}
}

func TestFillErrors(t *testing.T) {
	quietLogs(t)
	sub := subBank()
	sub.Kgrp = &swdl.Kgrp{}
	err := New().FillFromBanks(map[string]*swdl.SWDL{"a.swd": sub}, masterBank(), nil)
	var le *LookupError
	if !errors.As(err, &le) || le.Kind != "keygroup" {
		t.Errorf("no keygroups: err = %v", err)
	}

	sub = subBank()
	sub.Prgi.Programs[0].Splits[0].SampleID = 9
	err = New().FillFromBanks(map[string]*swdl.SWDL{"a.swd": sub}, masterBank(), nil)
	if !errors.As(err, &le) || le.Kind != "sample" || le.ID != 9 {
		t.Errorf("missing sample: err = %v", err)
	}

	m := masterBank()
	m.Pcmd = nil
	if err := New().FillFromBanks(nil, m, nil); err == nil {
		t.Error("expected error for master bank without samples")
	}
}

func TestMergeDedup(t *testing.T) {
	quietLogs(t)
	v, master := filledVault(t)
	p := v.BySourceFilename()["bgm0001.swd"][1]

	target := swdl.New("bgm0002")
	target.Header.PcmdLen = swdl.ExternalPcmd
	modified, err := p.Merge(target, master, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	// Sample 1 has a different volume in the sub-bank, so it needs a new wavi,
	// but the sample data is already in the master bank.
	if !modified {
		t.Error("first merge did not modify master bank")
	}
	if n := len(master.Wavi.Samples); n != 3 {
		t.Errorf("master has %d wavis, want 3", n)
	}
	if n := len(master.Pcmd.Data); n != 24 {
		t.Errorf("master PCMD length = %d, want 24", n)
	}
	if w := master.Wavi.Samples[2]; w.ID != 2 || w.SamplePos != 8 || w.Volume != 100 {
		t.Errorf("new wavi = %+v", w)
	}
	prg := target.Prgi.Programs[0]
	if prg.ID != 0 || prg.Splits[0].SampleID != 0 || prg.Splits[1].SampleID != 2 {
		t.Errorf("program = %+v", prg)
	}
	if prg.Splits[0].KeygroupID != 0 || prg.Splits[1].KeygroupID != 1 {
		t.Errorf("keygroup IDs = %d, %d", prg.Splits[0].KeygroupID, prg.Splits[1].KeygroupID)
	}
	if !reflect.DeepEqual(prg.LFOs, p.Program.LFOs) {
		t.Errorf("LFOs = %+v", prg.LFOs)
	}
	ws := target.Wavi.Samples
	if len(ws) != 3 || ws[0] == nil || ws[1] != nil || ws[2] == nil {
		t.Fatalf("target wavis = %v", ws)
	}
	if ws[0].SamplePos != 0 || ws[2].SamplePos != 8 {
		t.Errorf("target sample positions = %d, %d", ws[0].SamplePos, ws[2].SamplePos)
	}
	if ws[2].Sample != (swdl.BankRef{Bank: "master", Offset: 8, Length: 16}) {
		t.Errorf("target sample 2 = %#v", ws[2].Sample)
	}

	// The program itself is not changed.
	if p.Program.ID != 2 || p.Wavis[1].ID != 1 || p.Program.Splits[1].KeygroupID != 5 {
		t.Error("merge modified the program")
	}

	// Merging again does not change the master bank.
	for slot, tgt := range []*swdl.SWDL{target, swdl.New("bgm0003")} {
		modified, err = p.Merge(tgt, master, slot+1, true)
		if err != nil {
			t.Fatal(err)
		}
		if modified {
			t.Errorf("merge %d modified master bank", slot+1)
		}
		if len(master.Wavi.Samples) != 3 || len(master.Pcmd.Data) != 24 {
			t.Errorf("master grew: %d wavis, %d bytes", len(master.Wavi.Samples), len(master.Pcmd.Data))
		}
	}
	if n := len(target.Kgrp.Keygroups); n != 2 {
		t.Errorf("target has %d keygroups, want 2", n)
	}
	if _, err := target.Write(); err != nil {
		t.Errorf("could not write target: %v", err)
	}
	if _, err := master.Write(); err != nil {
		t.Errorf("could not write master: %v", err)
	}
}

func newProgram(t *testing.T, sample []byte, w *swdl.SampleInfo, kg swdl.Keygroup) *Program {
	t.Helper()
	prg := &swdl.Program{Volume: 127, Pan: 64, Splits: []swdl.Split{{HighKey: 127, HighVelocity: 127}}}
	p, err := NewProgram("Test", "test", [][]byte{sample}, prg, []swdl.Keygroup{kg}, []*swdl.SampleInfo{w})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestMergeNewSample(t *testing.T) {
	quietLogs(t)
	sample := []byte{0xF0, 0xF1, 0xF2, 0xF3, 0xF4, 0xF5, 0xF6, 0xF7}
	w := &swdl.SampleInfo{Format: swdl.PCM16, SampleRate: 32000, LoopLength: 2}
	p := newProgram(t, sample, w, swdl.Keygroup{Polyphony: 1})

	master := masterBank()
	target := swdl.New("bgm0002")
	_, err := p.Merge(target, master, 0, false)
	if !errors.Is(err, ErrSampleNotAllowed) {
		t.Errorf("err = %v, want %v", err, ErrSampleNotAllowed)
	}
	if len(master.Wavi.Samples) != 2 || len(master.Pcmd.Data) != 24 {
		t.Error("master bank was modified")
	}
	if target.Prgi != nil || target.Kgrp != nil {
		t.Error("target bank was modified")
	}

	for i := 0; i < 2; i++ {
		modified, err := p.Merge(target, master, 0, true)
		if err != nil {
			t.Fatal(err)
		}
		if modified != (i == 0) {
			t.Errorf("merge %d: modified = %v", i, modified)
		}
		if len(master.Wavi.Samples) != 3 || len(master.Pcmd.Data) != 32 {
			t.Errorf("merge %d: master has %d wavis, %d bytes", i, len(master.Wavi.Samples), len(master.Pcmd.Data))
		}
	}
	if !bytes.Equal(master.Pcmd.Data[24:], sample) {
		t.Errorf("appended sample = % x", master.Pcmd.Data[24:])
	}
	if nw := master.Wavi.Samples[2]; nw.ID != 2 || nw.SamplePos != 24 {
		t.Errorf("new wavi = %+v", nw)
	}
	if !target.Header.PcmdLen.IsExternal() {
		t.Errorf("target PcmdLen = %#x, want external", uint32(target.Header.PcmdLen))
	}

	// A sample which is already present can be merged without permission.
	modified, err := p.Merge(swdl.New("bgm0003"), master, 4, false)
	if err != nil || modified {
		t.Errorf("merge existing: modified = %v, err = %v", modified, err)
	}
}

func TestMergeOverlappingSample(t *testing.T) {
	quietLogs(t)
	master := swdl.New("master")
	master.Pcmd = &swdl.Pcmd{Data: []byte{1, 2, 3, 4, 0, 0, 0, 0}}
	sample := make([]byte, 8)
	w := &swdl.SampleInfo{Format: swdl.PCM16, SampleRate: 22050, LoopLength: 2}
	p := newProgram(t, sample, w, swdl.Keygroup{Polyphony: 1})
	target := swdl.New("bgm0002")

	modified, err := p.Merge(target, master, 0, true)
	if err != nil || !modified {
		t.Fatalf("first merge: modified = %v, err = %v", modified, err)
	}
	// The zero tail of the old data joins the new sample, so the sample is
	// first found at offset 4.
	if n := len(master.Wavi.Samples); n != 1 {
		t.Fatalf("master has %d wavis, want 1", n)
	}
	if pos := master.Wavi.Samples[0].SamplePos; pos != 4 {
		t.Errorf("sample position = %d, want 4", pos)
	}
	pcmdLen := len(master.Pcmd.Data)

	modified, err = p.Merge(target, master, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	if modified {
		t.Error("second merge modified master")
	}
	if n := len(master.Wavi.Samples); n != 1 {
		t.Errorf("master has %d wavis after second merge, want 1", n)
	}
	if n := len(master.Pcmd.Data); n != pcmdLen {
		t.Errorf("master sample data is %d bytes, want %d", n, pcmdLen)
	}
	for slot, prg := range target.Prgi.Programs {
		if id := prg.Splits[0].SampleID; id != 0 {
			t.Errorf("slot %d: sample ID = %d, want 0", slot, id)
		}
	}
}

func TestMergeKeygroupOverflow(t *testing.T) {
	quietLogs(t)
	master := masterBank()
	target := swdl.New("bgm0002")
	target.Kgrp = &swdl.Kgrp{}
	for i := 0; i < 128; i++ {
		target.Kgrp.Keygroups = append(target.Kgrp.Keygroups,
			swdl.Keygroup{ID: uint16(i), Polyphony: -1, Priority: uint8(i)})
	}
	sample := []byte{0xF0, 0xF1, 0xF2, 0xF3, 0xF4, 0xF5, 0xF6, 0xF7}
	w := &swdl.SampleInfo{Format: swdl.PCM16, SampleRate: 32000, LoopLength: 2}
	p := newProgram(t, sample, w, swdl.Keygroup{Polyphony: 1, Priority: 200})

	pcmd := append([]byte(nil), master.Pcmd.Data...)
	modified, err := p.Merge(target, master, 0, true)
	if err == nil {
		t.Fatal("expected error for keygroup ID out of range")
	}
	if modified {
		t.Error("failed merge reports master modified")
	}
	if !bytes.Equal(master.Pcmd.Data, pcmd) {
		t.Error("failed merge changed master sample data")
	}
	if n := len(master.Wavi.Samples); n != 2 {
		t.Errorf("master has %d wavis, want 2", n)
	}
	if n := len(target.Kgrp.Keygroups); n != 128 {
		t.Errorf("target has %d keygroups, want 128", n)
	}
	if target.Prgi != nil || target.Header.PcmdLen.IsExternal() {
		t.Error("failed merge changed target bank")
	}
}

func TestMergeRebuild(t *testing.T) {
	quietLogs(t)
	master := masterBank()
	mw := master.Wavi.Samples
	pa := newProgram(t, master.Pcmd.Data[0:8], mw[0].Clone(), swdl.Keygroup{Polyphony: 1})
	pb := newProgram(t, master.Pcmd.Data[8:24], mw[1].Clone(), swdl.Keygroup{Polyphony: 2})
	target := swdl.New("bgm0002")
	target.Header.PcmdLen = swdl.ExternalPcmd

	steps := []struct {
		p         *Program
		slot      int
		positions []int // -1 for empty slots
	}{
		{pb, 0, []int{-1, 0}},
		{pa, 1, []int{0, 8}},
		{pa, 0, []int{0, -1}},
	}
	for i, s := range steps {
		modified, err := s.p.Merge(target, master, s.slot, false)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if modified {
			t.Errorf("step %d: master modified", i)
		}
		var positions []int
		for _, w := range target.Wavi.Samples {
			if w == nil {
				positions = append(positions, -1)
			} else {
				positions = append(positions, int(w.SamplePos))
			}
		}
		if !reflect.DeepEqual(positions, s.positions) {
			t.Errorf("step %d: sample positions = %v, want %v", i, positions, s.positions)
		}
	}
	if n := len(target.Kgrp.Keygroups); n != 2 {
		t.Errorf("target has %d keygroups, want 2", n)
	}
	if target.Wavi.Samples[0].Sample != (swdl.BankRef{Bank: "master", Offset: 0, Length: 8}) {
		t.Errorf("sample 0 = %#v", target.Wavi.Samples[0].Sample)
	}
	if _, err := target.Write(); err != nil {
		t.Error(err)
	}

	own := swdl.New("own")
	own.Pcmd = &swdl.Pcmd{Data: []byte{1}}
	if _, err := pa.Merge(own, master, 0, true); err == nil {
		t.Error("expected error for bank with its own samples")
	}
}

func TestNewProgram(t *testing.T) {
	prg := &swdl.Program{Splits: make([]swdl.Split, 2)}
	_, err := NewProgram("", "", [][]byte{{0}}, prg, make([]swdl.Keygroup, 2),
		[]*swdl.SampleInfo{{}, {}})
	if err == nil {
		t.Error("expected error for mismatched counts")
	}
}

func TestFilter(t *testing.T) {
	quietLogs(t)
	v, master := filledVault(t)
	w := master.Wavi.Samples[0]
	sys, err := v.AddSampleFromMaster(master.Pcmd, &swdl.Program{Splits: make([]swdl.Split, 1)},
		make([]swdl.Keygroup, 1), []*swdl.SampleInfo{w}, "Flute", "Wind", true)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(sys.Samples[0], master.Pcmd.Data[0:8]) {
		t.Errorf("system sample = % x", sys.Samples[0])
	}
	usr, err := v.AddSample([][]byte{{1, 2, 3, 4}}, &swdl.Program{Splits: make([]swdl.Split, 1)},
		make([]swdl.Keygroup, 1), []*swdl.SampleInfo{{LoopLength: 1}}, "Drums", "Kit", false)
	if err != nil {
		t.Fatal(err)
	}
	banks := v.BySourceFilename()["bgm0001.swd"]
	p0, p2 := banks[0], banks[1]

	cases := []struct {
		name   string
		filter Filter
		want   []*Program
	}{
		{"All", Filter{}, []*Program{p0, p2, sys, usr}},
		{"Instrument", Filter{InstrumentName: regexp.MustCompile(`^Piano$`)}, []*Program{p0}},
		{"ExcludeBanks", Filter{ExcludeBanks: true}, []*Program{sys, usr}},
		{"Source", Filter{SourceFilename: regexp.MustCompile(`^bgm0001`)}, []*Program{p0, p2}},
		{"Unnamed", Filter{Name: regexp.MustCompile(`^$`), ExcludeSystem: true, ExcludeUser: true}, []*Program{p2}},
		{"User", Filter{ExcludeBanks: true, ExcludeSystem: true}, []*Program{usr}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := v.Filter(c.filter)
			if !reflect.DeepEqual(got, c.want) {
				t.Errorf("got %d programs, want %d", len(got), len(c.want))
			}
		})
	}
	if got := v.All(); !reflect.DeepEqual(got, []*Program{p0, p2, sys, usr}) {
		t.Errorf("All returned %d programs", len(got))
	}
}

func TestSaveLoad(t *testing.T) {
	quietLogs(t)
	v, _ := filledVault(t)
	if _, err := v.AddSample([][]byte{{1, 2, 3, 4}}, &swdl.Program{Splits: make([]swdl.Split, 1)},
		make([]swdl.Keygroup, 1), []*swdl.SampleInfo{{LoopLength: 1}}, "Drums", "Kit", false); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := v.Save(&buf); err != nil {
		t.Fatal(err)
	}
	v2, err := Load(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	a, b := v.All(), v2.All()
	if len(a) != len(b) {
		t.Fatalf("loaded %d programs, want %d", len(b), len(a))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].InstrumentName != b[i].InstrumentName || a[i].SourceProgramID != b[i].SourceProgramID {
			t.Errorf("program %d: got %+v, want %+v", i, b[i], a[i])
		}
		if !reflect.DeepEqual(a[i].Samples, b[i].Samples) {
			t.Errorf("program %d: samples differ", i)
		}
		if !reflect.DeepEqual(a[i].Program, b[i].Program) || !reflect.DeepEqual(a[i].Keygroups, b[i].Keygroups) {
			t.Errorf("program %d: program or keygroups differ", i)
		}
		if len(b[i].Wavis) != len(a[i].Wavis) || b[i].Wavis[0].SamplePos != a[i].Wavis[0].SamplePos {
			t.Errorf("program %d: wavis differ", i)
		}
	}
	if len(v2.User()) != 1 || len(v2.System()) != 0 {
		t.Errorf("loaded %d user and %d system programs", len(v2.User()), len(v2.System()))
	}
	if v2.BySourceName()["bgm0001"][0] != v2.BySourceFilename()["bgm0001.swd"][0] {
		t.Error("registries do not share programs")
	}

	bad := strings.Replace(buf.String(), `"user": [`, `"user": ["00000000-0000-0000-0000-000000000000", `, 1)
	if _, err := Load(strings.NewReader(bad)); err == nil {
		t.Error("expected error for missing program")
	}
	if _, err := Load(strings.NewReader(`{"extra": 1}`)); err == nil {
		t.Error("expected error for unknown field")
	}
}
