// Package swdl reads and writes SWDL sample banks.
package swdl

import (
	"github.com/depp/dsekit/lib/dse"
	"github.com/pkg/errors"
)

// ErrNotSWDL indicates that the data is not an SWDL file.
var ErrNotSWDL = errors.New("not an SWDL file")

// An SWDL is a decoded SWDL file. The PRGI and KGRP chunks are either both
// present or both nil. The PCMD chunk is nil if the samples are stored in a
// master bank.
type SWDL struct {
	Header Header
	Wavi   *Wavi
	Prgi   *Prgi
	Kgrp   *Kgrp
	Pcmd   *Pcmd
}

// New returns an empty bank with the given internal name.
func New(name string) *SWDL {
	return &SWDL{
		Header: Header{
			Version: dse.ChunkVersion,
			Name:    dse.NewFilename(name),
		},
		Wavi: new(Wavi),
	}
}

// Name returns the bank's internal name.
func (s *SWDL) Name() string {
	return s.Header.Name.Name
}

// SampleData returns the bytes of a sample in the WAVI table. Bank references
// are resolved against this bank's sample data.
func (s *SWDL) SampleData(id int) ([]byte, error) {
	info := s.Wavi.Get(id)
	if info == nil {
		return nil, errors.Errorf("no sample with ID %d", id)
	}
	if ref, ok := info.Sample.(BankRef); ok && ref.Bank != s.Name() {
		return nil, errors.Errorf("sample %d refers to bank %q", id, ref.Bank)
	}
	return SampleBytes(info.Sample, s.Pcmd)
}

// Parse parses an SWDL file.
func Parse(data []byte) (*SWDL, error) {
	if len(data) < HeaderSize {
		return nil, dse.Formatf("swdl", 0, "file too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "swdl" {
		return nil, &dse.FormatError{Chunk: "swdl", Err: ErrNotSWDL}
	}
	var s SWDL
	l, err := parseHeader(&s.Header, data)
	if err != nil {
		return nil, err
	}
	if l.length != len(data) {
		return nil, dse.Formatf("swdl", 8, "header length is %d, file length is %d", l.length, len(data))
	}

	pos := HeaderSize
	body, err := dse.ParseChunk(data, pos, "wavi")
	if err != nil {
		return nil, err
	}
	if len(body) != l.waviLength {
		return nil, dse.Formatf("wavi", pos+12, "chunk length is %d, header says %d", len(body), l.waviLength)
	}
	s.Wavi, err = parseWavi(body, l.waviSlots, pos+dse.ChunkHeaderSize)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse WAVI")
	}
	pos += dse.ChunkHeaderSize + len(body)

	if len(data)-pos >= 4 && string(data[pos:pos+4]) == "prgi" {
		body, err = dse.ParseChunk(data, pos, "prgi")
		if err != nil {
			return nil, err
		}
		s.Prgi, err = parsePrgi(body, l.prgiSlots, pos+dse.ChunkHeaderSize)
		if err != nil {
			return nil, errors.Wrap(err, "could not parse PRGI")
		}
		pos += dse.ChunkHeaderSize + len(body)
		body, err = dse.ParseChunk(data, pos, "kgrp")
		if err != nil {
			return nil, err
		}
		s.Kgrp, err = parseKgrp(body, pos+dse.ChunkHeaderSize)
		if err != nil {
			return nil, errors.Wrap(err, "could not parse KGRP")
		}
		pos += dse.ChunkHeaderSize + len(body)
	}

	if n := s.Header.PcmdLen.Length(); n != 0 {
		body, err = dse.ParseChunk(data, pos, "pcmd")
		if err != nil {
			return nil, err
		}
		if len(body) != n {
			return nil, dse.Formatf("pcmd", pos+12, "chunk length is %d, header says %d", len(body), n)
		}
		s.Pcmd = &Pcmd{Data: append([]byte(nil), body...)}
		pos += dse.ChunkHeaderSize + len(body)
		end := dse.Align(pos, 16)
		if end > len(data) {
			return nil, dse.Formatf("pcmd", pos, "missing padding")
		}
		if err := dse.CheckZero(data[pos:end], "pcmd", pos); err != nil {
			return nil, err
		}
		pos = end
		name := s.Name()
		for i, info := range s.Wavi.Samples {
			if info == nil {
				continue
			}
			off, n := int(info.SamplePos), info.SampleLength()
			if off+n > len(s.Pcmd.Data) {
				return nil, dse.Formatf("wavi", 0, "sample %d at 0x%x+0x%x exceeds sample data length 0x%x",
					i, off, n, len(s.Pcmd.Data))
			}
			info.Sample = BankRef{Bank: name, Offset: off, Length: n}
		}
	}

	body, err = dse.ParseChunk(data, pos, "eod ")
	if err != nil {
		return nil, err
	}
	if len(body) != 0 {
		return nil, dse.Formatf("eod ", pos+12, "chunk length is %d, expected 0", len(body))
	}
	pos += dse.ChunkHeaderSize
	if pos != len(data) {
		return nil, dse.Formatf("swdl", pos, "%d bytes of extra data after end chunk", len(data)-pos)
	}
	return &s, nil
}

// Write encodes the SWDL file. Lengths, slot counts, and the PCMD length are
// computed from the chunks. A bank without sample data keeps its external
// PcmdLen.
func (s *SWDL) Write() ([]byte, error) {
	if s.Wavi == nil {
		return nil, errors.New("bank has no WAVI chunk")
	}
	var l layout
	data := make([]byte, HeaderSize)
	l.waviSlots = len(s.Wavi.Samples)
	chunks := []dse.Chunk{s.Wavi}
	if s.Prgi != nil {
		l.prgiSlots = len(s.Prgi.Programs)
		kgrp := s.Kgrp
		if kgrp == nil {
			kgrp = new(Kgrp)
		}
		chunks = append(chunks, s.Prgi, kgrp)
	}
	hdr := s.Header
	switch {
	case s.Pcmd != nil && len(s.Pcmd.Data) > 0:
		chunks = append(chunks, s.Pcmd)
		hdr.PcmdLen = PcmdLen(len(s.Pcmd.Data))
	case !hdr.PcmdLen.IsExternal():
		hdr.PcmdLen = 0
	}
	for i, c := range chunks {
		tag, body, err := c.ChunkData()
		if err != nil {
			return nil, errors.Wrapf(err, "could not write %q chunk", tag[:])
		}
		if i == 0 {
			l.waviLength = len(body)
		}
		data = dse.AppendChunk(data, tag, body)
	}
	data = dse.Pad(data, 16, 0)
	data = dse.AppendChunk(data, dse.Tag("eod "), nil)
	l.length = len(data)
	if err := hdr.put(data[:HeaderSize], l); err != nil {
		return nil, err
	}
	return data, nil
}
