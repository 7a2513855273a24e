package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/depp/dsekit/lib/dse/batch"
	"github.com/depp/dsekit/lib/dse/swdl"

	"github.com/sirupsen/logrus"
)

var formats = []swdl.SampleFormat{
	swdl.PCM8,
	swdl.PCM16,
	swdl.ADPCM4,
	swdl.PSG,
}

type bankStats struct {
	name      string
	programs  int
	splits    int
	keygroups int
	samples   [4]int // Indexed like formats.
	pcmdBytes int
	external  bool
}

func listFiles(dir string) ([]string, error) {
	fs, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var r []string
	for _, f := range fs {
		name := f.Name()
		if f.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if ext := filepath.Ext(name); strings.EqualFold(ext, ".swd") {
			r = append(r, name)
		}
	}
	sort.Strings(r)
	return r, nil
}

func getStats(name string, b *swdl.SWDL) bankStats {
	st := bankStats{
		name:     name,
		external: b.Header.PcmdLen.IsExternal(),
	}
	if b.Prgi != nil {
		for _, p := range b.Prgi.Programs {
			if p != nil {
				st.programs++
				st.splits += len(p.Splits)
			}
		}
	}
	if b.Kgrp != nil {
		st.keygroups = len(b.Kgrp.Keygroups)
	}
	for _, s := range b.Wavi.Samples {
		if s == nil {
			continue
		}
		for i, f := range formats {
			if s.Format == f {
				st.samples[i]++
			}
		}
	}
	if b.Pcmd != nil {
		st.pcmdBytes = len(b.Pcmd.Data)
	}
	return st
}

func writeCSV(outPath string, stats []bankStats) error {
	fp, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer fp.Close()
	w := csv.NewWriter(fp)
	row := []string{"File", "Programs", "Splits", "Keygroups"}
	for _, f := range formats {
		row = append(row, f.String())
	}
	row = append(row, "PCMD", "External")
	if err := w.Write(row); err != nil {
		return err
	}
	for _, st := range stats {
		row = row[:0]
		row = append(row, st.name,
			strconv.Itoa(st.programs),
			strconv.Itoa(st.splits),
			strconv.Itoa(st.keygroups))
		for _, n := range st.samples {
			row = append(row, strconv.Itoa(n))
		}
		row = append(row, strconv.Itoa(st.pcmdBytes), strconv.FormatBool(st.external))
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return fp.Close()
}

func mainE() error {
	workers := flag.Int("workers", 0, "number of banks to decode at once")
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 || 2 < len(args) {
		fmt.Fprintln(os.Stderr, "Usage: bankstats <dir> [<out.csv>]")
		return nil
	}
	rootDir := args[0]
	var outPath string
	if len(args) >= 2 {
		outPath = args[1]
	}

	names, err := listFiles(rootDir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return errors.New("found no banks")
	}
	inputs := make([]batch.Input, len(names))
	for i, name := range names {
		data, err := os.ReadFile(filepath.Join(rootDir, name))
		if err != nil {
			return err
		}
		inputs[i] = batch.Input{Name: name, Data: data}
	}
	files, err := batch.DecodeAll(context.Background(), inputs, *workers)
	if err != nil {
		return err
	}

	stats := make([]bankStats, 0, len(files))
	var total bankStats
	for i, f := range files {
		if f.SWDL == nil {
			logrus.Warnf("Skipping %s: not a sound bank", names[i])
			continue
		}
		st := getStats(names[i], f.SWDL)
		stats = append(stats, st)
		total.programs += st.programs
		total.splits += st.splits
		for j, n := range st.samples {
			total.samples[j] += n
		}
		total.pcmdBytes += st.pcmdBytes
	}

	if outPath != "" {
		if err := writeCSV(outPath, stats); err != nil {
			return err
		}
	}

	fmt.Printf("Banks: %d\n", len(stats))
	fmt.Printf("Programs: %d (%d splits)\n", total.programs, total.splits)
	for i, f := range formats {
		fmt.Printf("%s samples: %d\n", f, total.samples[i])
	}
	fmt.Printf("Sample data: %d bytes\n", total.pcmdBytes)
	return nil
}

func main() {
	if err := mainE(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
