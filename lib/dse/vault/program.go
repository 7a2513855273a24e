package vault

import (
	"github.com/depp/dsekit/lib/dse"
	"github.com/depp/dsekit/lib/dse/swdl"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// A Program is an instrument which can be loaded into any bank. Each split of
// the program has its own sample data, sample info, and keygroup, at the same
// index as the split.
type Program struct {
	ID             uuid.UUID          `json:"id"`
	InstrumentName string             `json:"instrumentName,omitempty"`
	Name           string             `json:"name,omitempty"`
	Samples        [][]byte           `json:"samples"`
	Program        *swdl.Program      `json:"program"`
	Keygroups      []swdl.Keygroup    `json:"keygroups"`
	Wavis          []*swdl.SampleInfo `json:"wavis"`

	// Where the program came from, if it was extracted from a bank.
	SourceFilename  string `json:"sourceFilename,omitempty"`
	SourceName      string `json:"sourceName,omitempty"`
	SourceProgramID int    `json:"sourceProgramId"`
}

// NewProgram creates a new program with a fresh ID. The program does not come
// from a bank.
func NewProgram(instrument, name string, samples [][]byte, prg *swdl.Program,
	kgrps []swdl.Keygroup, wavis []*swdl.SampleInfo) (*Program, error) {
	p := &Program{
		ID:              uuid.New(),
		InstrumentName:  instrument,
		Name:            name,
		Samples:         samples,
		Program:         prg,
		Keygroups:       kgrps,
		Wavis:           wavis,
		SourceProgramID: -1,
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Program) validate() error {
	if p.Program == nil {
		return errors.New("program has no program entry")
	}
	n := len(p.Program.Splits)
	if len(p.Samples) != n || len(p.Keygroups) != n || len(p.Wavis) != n {
		return errors.Errorf("program has %d splits, %d samples, %d keygroups, and %d wavis; counts must match",
			n, len(p.Samples), len(p.Keygroups), len(p.Wavis))
	}
	for i, w := range p.Wavis {
		if w == nil {
			return errors.Errorf("split %d has no wavi", i)
		}
	}
	return nil
}

// Merge loads the program into a slot of the target bank, whose samples are
// stored in the master bank.
//
// Samples are looked up in the master bank's sample data and sample info
// table. If the sample is missing and allowNew is true, it is added to the
// master bank. Keygroups are reused from the target bank where possible. The
// target bank's WAVI table is rebuilt to contain only the samples used by its
// programs, packed in master bank order.
//
// If Merge returns an error, neither bank is changed. A missing sample with
// allowNew false gives ErrSampleNotAllowed.
//
// Merge returns true if the master bank was modified and must be saved. Merges
// into the same banks must not run concurrently.
func (p *Program) Merge(target, master *swdl.SWDL, slot int, allowNew bool) (modified bool, err error) {
	if err := p.validate(); err != nil {
		return false, err
	}
	if master.Pcmd == nil {
		return false, errors.Errorf("master bank %q has no sample data", master.Name())
	}
	if target.Pcmd != nil && len(target.Pcmd.Data) > 0 {
		return false, errors.Errorf("bank %q has its own sample data", target.Name())
	}
	if err := dse.CheckRange("program slot", int64(slot), 0, 0xFFFF); err != nil {
		return false, err
	}
	log.WithFields(logrus.Fields{
		"bank": target.Name(),
		"slot": slot,
	}).Info("Importing program")

	// New entries go into copies of the tables. The copies have no spare
	// capacity, so appending never writes into the banks.
	n := len(master.Pcmd.Data)
	pcmd := &swdl.Pcmd{Data: master.Pcmd.Data[:n:n]}
	var wavi swdl.Wavi
	if master.Wavi != nil {
		n = len(master.Wavi.Samples)
		wavi.Samples = master.Wavi.Samples[:n:n]
	}
	var kgrps []swdl.Keygroup
	if target.Kgrp != nil {
		n = len(target.Kgrp.Keygroups)
		kgrps = target.Kgrp.Keygroups[:n:n]
	}

	// Samples are matched by content, then sample info by value, so the
	// sample position must be resolved first.
	waviIDs := make([]uint16, len(p.Wavis))
	for i, sample := range p.Samples {
		pos := pcmd.Find(sample)
		if pos < 0 {
			if !allowNew {
				return false, errors.Wrapf(ErrSampleNotAllowed, "split %d", i)
			}
			log.WithField("length", len(sample)).Warn("Creating new sample")
			pcmd.Append(sample)
			// The appended bytes may complete an earlier match. Later
			// merges find that one, so it is the position to record.
			pos = pcmd.Find(sample)
			modified = true
		}
		w := p.Wavis[i].Clone()
		w.SamplePos = uint32(pos)
		if e := wavi.Find(w); e != nil {
			waviIDs[i] = e.ID
			continue
		}
		if !allowNew {
			return false, errors.Wrapf(ErrSampleNotAllowed, "split %d: no matching wavi", i)
		}
		id := len(wavi.Samples)
		if err := dse.CheckRange("wavi ID", int64(id), 0, 0xFFFF); err != nil {
			return false, err
		}
		log.WithField("id", id).Warn("Creating new wavi")
		w.ID = uint16(id)
		w.Sample = swdl.BankRef{Bank: master.Name(), Offset: pos, Length: w.SampleLength()}
		wavi.Samples = append(wavi.Samples, w)
		waviIDs[i] = w.ID
		modified = true
	}

	kgrpIDs := make([]int8, len(p.Keygroups))
	for i, g := range p.Keygroups {
		id := (&swdl.Kgrp{Keygroups: kgrps}).Find(g)
		if id < 0 {
			id = len(kgrps)
			if err := dse.CheckRange("keygroup ID", int64(id), 0, 0x7F); err != nil {
				return false, err
			}
			log.WithField("id", id).Info("Creating new keygroup")
			g.ID = uint16(id)
			kgrps = append(kgrps, g)
		}
		kgrpIDs[i] = int8(id)
	}

	// Nothing below fails.
	master.Pcmd.Data = pcmd.Data
	if master.Wavi == nil {
		master.Wavi = new(swdl.Wavi)
	}
	master.Wavi.Samples = wavi.Samples
	if target.Wavi == nil {
		target.Wavi = new(swdl.Wavi)
	}
	if target.Prgi == nil {
		target.Prgi = new(swdl.Prgi)
	}
	if target.Kgrp == nil {
		target.Kgrp = new(swdl.Kgrp)
	}
	target.Kgrp.Keygroups = kgrps
	target.Pcmd = nil
	target.Header.PcmdLen = swdl.ExternalPcmd

	used := make(map[uint16]bool)
	for i, prg := range target.Prgi.Programs {
		if i == slot || prg == nil {
			continue
		}
		for _, s := range prg.Splits {
			used[s.SampleID] = true
		}
	}
	for _, id := range waviIDs {
		used[id] = true
	}

	prg := p.Program.Clone()
	prg.ID = uint16(slot)
	for i := range prg.Splits {
		prg.Splits[i].SampleID = waviIDs[i]
		prg.Splits[i].KeygroupID = kgrpIDs[i]
	}
	for len(target.Prgi.Programs) <= slot {
		target.Prgi.Programs = append(target.Prgi.Programs, nil)
	}
	target.Prgi.Programs[slot] = prg

	// Unused keygroups are kept, so keygroup IDs stay stable.
	samples := make([]*swdl.SampleInfo, len(master.Wavi.Samples))
	var cursor uint32
	for i, w := range master.Wavi.Samples {
		if w == nil || !used[w.ID] {
			continue
		}
		c := w.Clone()
		c.SamplePos = cursor
		c.Sample = swdl.BankRef{Bank: master.Name(), Offset: int(w.SamplePos), Length: w.SampleLength()}
		cursor += uint32(c.SampleLength())
		samples[i] = c
	}
	target.Wavi.Samples = samples
	return modified, nil
}
