// Package vault stores reusable instrument programs and loads them into banks.
package vault

import (
	"encoding/json"
	"io"
	"regexp"
	"sort"

	"github.com/depp/dsekit/lib/audio/metadata"
	"github.com/depp/dsekit/lib/dse/swdl"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log logrus.FieldLogger = logrus.StandardLogger()

// SetLogger sets the logger used by the package.
func SetLogger(l logrus.FieldLogger) {
	log = l
}

// A Vault is a collection of programs. Programs come from the game's banks,
// from the system set, or from the user.
type Vault struct {
	byFilename map[string][]*Program
	bySrcName  map[string][]*Program
	system     []*Program
	user       []*Program
}

// New returns an empty vault.
func New() *Vault {
	return &Vault{
		byFilename: make(map[string][]*Program),
		bySrcName:  make(map[string][]*Program),
	}
}

// FillFromBanks replaces the programs from banks with the programs in the
// given banks, indexed by filename. The master bank holds the sample data.
// Names are optional.
func (v *Vault) FillFromBanks(banks map[string]*swdl.SWDL, master *swdl.SWDL, names metadata.NameTable) error {
	if master.Pcmd == nil {
		return errors.Errorf("master bank %q has no sample data", master.Name())
	}
	byFilename := make(map[string][]*Program, len(banks))
	bySrcName := make(map[string][]*Program, len(banks))
	filenames := make([]string, 0, len(banks))
	for fname := range banks {
		filenames = append(filenames, fname)
	}
	sort.Strings(filenames)
	for _, fname := range filenames {
		bank := banks[fname]
		programs, err := extractPrograms(fname, bank, master, names)
		if err != nil {
			return errors.Wrapf(err, "bank %s", fname)
		}
		log.WithFields(logrus.Fields{
			"file":     fname,
			"programs": len(programs),
		}).Debug("Extracted programs")
		byFilename[fname] = programs
		bySrcName[bank.Name()] = programs
	}
	v.byFilename = byFilename
	v.bySrcName = bySrcName
	return nil
}

func extractPrograms(fname string, bank, master *swdl.SWDL, names metadata.NameTable) ([]*Program, error) {
	if bank.Prgi == nil {
		return nil, nil
	}
	var kgrps []swdl.Keygroup
	if bank.Kgrp != nil {
		kgrps = bank.Kgrp.Keygroups
	}
	var programs []*Program
	for pid, prg := range bank.Prgi.Programs {
		if prg == nil {
			continue
		}
		p := &Program{
			ID:              uuid.New(),
			Program:         prg.Clone(),
			SourceFilename:  fname,
			SourceName:      bank.Name(),
			SourceProgramID: pid,
		}
		if n, ok := names.Lookup(fname, pid); ok {
			p.InstrumentName = n.Instrument
			p.Name = n.Name
		}
		for _, s := range prg.Splits {
			if len(kgrps) == 0 {
				return nil, &LookupError{Kind: "keygroup", ID: int(s.KeygroupID), Bank: bank.Name()}
			}
			kid := int(s.KeygroupID)
			if kid < 0 || kid >= len(kgrps) {
				log.WithFields(logrus.Fields{
					"file":     fname,
					"program":  pid,
					"keygroup": kid,
					"max":      len(kgrps) - 1,
				}).Warn("Invalid keygroup ID, using 0")
				kid = 0
			}
			p.Keygroups = append(p.Keygroups, kgrps[kid])

			// Sub-bank wavis can override the master bank's parameters, so
			// only the position comes from the master bank.
			sid := int(s.SampleID)
			w := bank.Wavi.Get(sid)
			if w == nil {
				return nil, &LookupError{Kind: "sample", ID: sid, Bank: bank.Name()}
			}
			mw := master.Wavi.Get(sid)
			if mw == nil {
				return nil, &LookupError{Kind: "sample", ID: sid, Bank: master.Name()}
			}
			w = w.Clone()
			w.SamplePos = mw.SamplePos
			w.Sample = swdl.BankRef{Bank: master.Name(), Offset: int(w.SamplePos), Length: w.SampleLength()}
			data, err := master.Pcmd.Slice(int(w.SamplePos), w.SampleLength())
			if err != nil {
				return nil, errors.Wrapf(err, "program %d", pid)
			}
			p.Wavis = append(p.Wavis, w)
			p.Samples = append(p.Samples, append([]byte(nil), data...))
		}
		programs = append(programs, p)
	}
	return programs, nil
}

// AddSampleFromMaster adds a program whose sample data is in the master bank.
// The position and length of each sample come from its wavi.
func (v *Vault) AddSampleFromMaster(pcmd *swdl.Pcmd, prg *swdl.Program, kgrps []swdl.Keygroup,
	wavis []*swdl.SampleInfo, instrument, name string, system bool) (*Program, error) {
	samples := make([][]byte, len(wavis))
	for i, w := range wavis {
		if w == nil {
			return nil, errors.Errorf("split %d has no wavi", i)
		}
		data, err := pcmd.Slice(int(w.SamplePos), w.SampleLength())
		if err != nil {
			return nil, errors.Wrapf(err, "split %d", i)
		}
		samples[i] = append([]byte(nil), data...)
	}
	return v.AddSample(samples, prg, kgrps, wavis, instrument, name, system)
}

// AddSample adds a program with the given sample data, one sample per split.
// The sample positions in the wavis are ignored.
func (v *Vault) AddSample(samples [][]byte, prg *swdl.Program, kgrps []swdl.Keygroup,
	wavis []*swdl.SampleInfo, instrument, name string, system bool) (*Program, error) {
	p, err := NewProgram(instrument, name, samples, prg, kgrps, wavis)
	if err != nil {
		return nil, err
	}
	if system {
		v.system = append(v.system, p)
	} else {
		v.user = append(v.user, p)
	}
	return p, nil
}

// BySourceFilename returns the programs from banks, indexed by bank filename.
func (v *Vault) BySourceFilename() map[string][]*Program {
	m := make(map[string][]*Program, len(v.byFilename))
	for k, ps := range v.byFilename {
		m[k] = append([]*Program(nil), ps...)
	}
	return m
}

// BySourceName returns the programs from banks, indexed by the bank's internal
// name.
func (v *Vault) BySourceName() map[string][]*Program {
	m := make(map[string][]*Program, len(v.bySrcName))
	for k, ps := range v.bySrcName {
		m[k] = append([]*Program(nil), ps...)
	}
	return m
}

// System returns the system programs.
func (v *Vault) System() []*Program {
	return append([]*Program(nil), v.system...)
}

// User returns the user programs.
func (v *Vault) User() []*Program {
	return append([]*Program(nil), v.user...)
}

func (v *Vault) banks() []*Program {
	filenames := make([]string, 0, len(v.byFilename))
	for k := range v.byFilename {
		filenames = append(filenames, k)
	}
	sort.Strings(filenames)
	var ps []*Program
	for _, k := range filenames {
		ps = append(ps, v.byFilename[k]...)
	}
	return ps
}

// All returns every program: programs from banks, ordered by filename, then
// system programs, then user programs.
func (v *Vault) All() []*Program {
	ps := v.banks()
	ps = append(ps, v.system...)
	return append(ps, v.user...)
}

// Get returns the program with the given ID, or nil.
func (v *Vault) Get(id uuid.UUID) *Program {
	for _, p := range v.All() {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// A Filter selects programs. Nil patterns match everything.
type Filter struct {
	InstrumentName *regexp.Regexp
	Name           *regexp.Regexp
	SourceFilename *regexp.Regexp
	SourceName     *regexp.Regexp

	ExcludeBanks  bool
	ExcludeSystem bool
	ExcludeUser   bool
}

func matches(re *regexp.Regexp, s string) bool {
	return re == nil || re.MatchString(s)
}

// Match returns true if the program matches the filter's patterns.
func (f *Filter) Match(p *Program) bool {
	return matches(f.InstrumentName, p.InstrumentName) &&
		matches(f.Name, p.Name) &&
		matches(f.SourceFilename, p.SourceFilename) &&
		matches(f.SourceName, p.SourceName)
}

// Filter returns the programs which match the filter, in the same order as
// All.
func (v *Vault) Filter(f Filter) []*Program {
	var groups [][]*Program
	if !f.ExcludeBanks {
		groups = append(groups, v.banks())
	}
	if !f.ExcludeSystem {
		groups = append(groups, v.system)
	}
	if !f.ExcludeUser {
		groups = append(groups, v.user)
	}
	var r []*Program
	for _, g := range groups {
		for _, p := range g {
			if f.Match(p) {
				r = append(r, p)
			}
		}
	}
	return r
}

// =============================================================================

type snapshot struct {
	Programs     []*Program             `json:"programs"`
	ByFilename   map[string][]uuid.UUID `json:"byFilename"`
	BySourceName map[string][]uuid.UUID `json:"bySourceName"`
	System       []uuid.UUID            `json:"system"`
	User         []uuid.UUID            `json:"user"`
}

func programIDs(ps []*Program) []uuid.UUID {
	ids := make([]uuid.UUID, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return ids
}

// Save writes the vault as JSON.
func (v *Vault) Save(w io.Writer) error {
	s := snapshot{
		ByFilename:   make(map[string][]uuid.UUID, len(v.byFilename)),
		BySourceName: make(map[string][]uuid.UUID, len(v.bySrcName)),
		System:       programIDs(v.system),
		User:         programIDs(v.user),
	}
	seen := make(map[uuid.UUID]bool)
	add := func(ps []*Program) {
		for _, p := range ps {
			if !seen[p.ID] {
				seen[p.ID] = true
				s.Programs = append(s.Programs, p)
			}
		}
	}
	add(v.All())
	for k, ps := range v.byFilename {
		s.ByFilename[k] = programIDs(ps)
	}
	for k, ps := range v.bySrcName {
		add(ps)
		s.BySourceName[k] = programIDs(ps)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(&s)
}

// Load reads a vault written by Save.
func Load(r io.Reader) (*Vault, error) {
	var s snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "could not parse vault")
	}
	programs := make(map[uuid.UUID]*Program, len(s.Programs))
	for i, p := range s.Programs {
		if p == nil {
			return nil, errors.Errorf("vault program %d is null", i)
		}
		if err := p.validate(); err != nil {
			return nil, errors.Wrapf(err, "program %s", p.ID)
		}
		programs[p.ID] = p
	}
	resolve := func(ids []uuid.UUID) ([]*Program, error) {
		ps := make([]*Program, len(ids))
		for i, id := range ids {
			p := programs[id]
			if p == nil {
				return nil, errors.Errorf("vault refers to missing program %s", id)
			}
			ps[i] = p
		}
		return ps, nil
	}
	v := New()
	var err error
	for k, ids := range s.ByFilename {
		if v.byFilename[k], err = resolve(ids); err != nil {
			return nil, err
		}
	}
	for k, ids := range s.BySourceName {
		if v.bySrcName[k], err = resolve(ids); err != nil {
			return nil, err
		}
	}
	if v.system, err = resolve(s.System); err != nil {
		return nil, err
	}
	if v.user, err = resolve(s.User); err != nil {
		return nil, err
	}
	return v, nil
}
