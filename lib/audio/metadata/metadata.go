// Package metadata reads the JSON files which accompany samples and banks.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
)

// A Metadata contains metadata associated with an imported sample. Positions
// are measured in sample frames.
type Metadata struct {
	LoopStart  int  `json:"loopStart"`
	LoopLength *int `json:"loopLength"`
}

func readJSON(filename, what string, v interface{}) error {
	fp, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("could not read %s: %v", what, err)
	}
	defer fp.Close()
	dec := json.NewDecoder(fp)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("could not parse %s file %q: %v", what, filename, err)
	}
	return nil
}

// Read reads the metadata JSON file.
func Read(filename string) (md Metadata, err error) {
	err = readJSON(filename, "metadata", &md)
	return md, err
}

// A Name is the name of a program in a bank.
type Name struct {
	Instrument string `json:"instrument"`
	Name       string `json:"name"`
}

// A NameTable contains the names of the programs in each bank, indexed by
// bank filename and program ID. Programs without a name have an empty entry.
type NameTable map[string][]Name

// Lookup returns the name of a program, if it has one.
func (t NameTable) Lookup(filename string, program int) (Name, bool) {
	names := t[filename]
	if program < 0 || program >= len(names) {
		return Name{}, false
	}
	n := names[program]
	return n, n != Name{}
}

// ReadNames reads a name table JSON file.
func ReadNames(filename string) (NameTable, error) {
	var t NameTable
	if err := readJSON(filename, "name table", &t); err != nil {
		return nil, err
	}
	return t, nil
}
