package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/depp/dsekit/lib/audio"
	"github.com/depp/dsekit/lib/audio/metadata"
	"github.com/depp/dsekit/lib/dse/swdl"
	"github.com/depp/dsekit/lib/dse/vault"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cmdSample = cobra.Command{
	Use:   "sample",
	Short: "Convert samples to and from AIFF and WAVE files.",
}

var sampleExportFlags struct {
	bank string
	id   int
	out  string
}

// sampleData returns the bytes of a sample in a bank. Banks without their own
// sample data use the master bank.
func sampleData(bank *swdl.SWDL, info *swdl.SampleInfo) ([]byte, error) {
	if info.Sample != nil {
		return swdl.SampleBytes(info.Sample, bank.Pcmd)
	}
	master, err := masterBank()
	if err != nil {
		return nil, err
	}
	ref := swdl.BankRef{
		Bank:   master.Name(),
		Offset: int(info.SamplePos),
		Length: info.SampleLength(),
	}
	return swdl.SampleBytes(ref, master.Pcmd)
}

func isAIFF(ext string) bool {
	return strings.EqualFold(ext, ".aif") || strings.EqualFold(ext, ".aiff") || strings.EqualFold(ext, ".aifc")
}

var cmdSampleExport = cobra.Command{
	Use:   "export",
	Short: "Export a sample from a bank.",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		fl := &sampleExportFlags
		if fl.bank == "" {
			return errors.New("missing --bank flag")
		}
		if fl.out == "" {
			return errors.New("missing --out flag")
		}
		bank, err := readBank(fl.bank)
		if err != nil {
			return err
		}
		info := bank.Wavi.Get(fl.id)
		if info == nil {
			return &fileError{fl.bank, fmt.Errorf("no sample with ID %d", fl.id)}
		}
		data, err := sampleData(bank, info)
		if err != nil {
			return &fileError{fl.bank, err}
		}
		switch ext := filepath.Ext(fl.out); {
		case isAIFF(ext):
			out, err := audio.ExportAIFF(info, data)
			if err != nil {
				return err
			}
			return writeFile(fl.out, out)
		case strings.EqualFold(ext, ".wav"):
			fp, err := os.Create(cfg.Path(fl.out))
			if err != nil {
				return err
			}
			if err := audio.ExportWAV(fp, info, data); err != nil {
				fp.Close()
				return err
			}
			return fp.Close()
		default:
			return fmt.Errorf("output file has unknown extension: %q", ext)
		}
	},
}

var sampleImportFlags struct {
	in         string
	meta       string
	instrument string
	name       string
	system     bool
}

func importSample(name string) (*swdl.SampleInfo, []byte, error) {
	switch ext := filepath.Ext(name); {
	case isAIFF(ext):
		data, err := readFile(name)
		if err != nil {
			return nil, nil, err
		}
		return audio.ImportAIFF(data)
	case strings.EqualFold(ext, ".wav"):
		fp, err := os.Open(cfg.Path(name))
		if err != nil {
			return nil, nil, err
		}
		defer fp.Close()
		return audio.ImportWAV(fp)
	default:
		return nil, nil, fmt.Errorf("input file has unknown extension: %q", ext)
	}
}

// singleSplit returns a program which plays one sample across the whole key
// and velocity range.
func singleSplit(info *swdl.SampleInfo) (*swdl.Program, swdl.Keygroup) {
	prg := &swdl.Program{
		Volume: 127,
		Pan:    64,
		Unk6:   0x0F,
		Splits: []swdl.Split{{
			LowKey:             0,
			HighKey:            127,
			LowVelocity:        0,
			HighVelocity:       127,
			RootKey:            info.RootKey,
			Volume:             info.Volume,
			Pan:                info.Pan,
			Envelope:           info.Envelope,
			EnvelopeMultiplier: info.EnvelopeMultiplier,
			AttackVolume:       info.AttackVolume,
			Attack:             info.Attack,
			Decay:              info.Decay,
			Sustain:            info.Sustain,
			Hold:               info.Hold,
			Decay2:             info.Decay2,
			Release:            info.Release,
		}},
	}
	kg := swdl.Keygroup{
		Polyphony:    -1,
		Priority:     8,
		VelocityHigh: 0x7F,
	}
	return prg, kg
}

var cmdSampleImport = cobra.Command{
	Use:   "import",
	Short: "Add a sample to the vault as a single-split program.",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		fl := &sampleImportFlags
		if fl.in == "" {
			return errors.New("missing --in flag")
		}
		info, pcm, err := importSample(fl.in)
		if err != nil {
			return &fileError{fl.in, err}
		}
		if fl.meta != "" {
			md, err := metadata.Read(cfg.Path(fl.meta))
			if err != nil {
				return err
			}
			length := -1
			if md.LoopLength != nil {
				length = *md.LoopLength
			}
			if pcm, err = audio.SetLoop(info, pcm, md.LoopStart, length); err != nil {
				return &fileError{fl.meta, err}
			}
		}
		v, err := loadVault()
		switch {
		case errors.Is(err, os.ErrNotExist):
			logrus.Infof("Creating new vault: %s", cfg.Vault)
			v = vault.New()
		case err != nil:
			return err
		}
		prg, kg := singleSplit(info)
		p, err := v.AddSample([][]byte{pcm}, prg, []swdl.Keygroup{kg}, []*swdl.SampleInfo{info},
			fl.instrument, fl.name, fl.system)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"id":    p.ID,
			"bytes": len(pcm),
			"rate":  info.SampleRate,
		}).Info("Imported sample")
		return saveVault(v)
	},
}

func init() {
	fl := cmdSampleExport.Flags()
	ef := &sampleExportFlags
	fl.StringVar(&ef.bank, "bank", "", "bank containing the sample")
	fl.IntVar(&ef.id, "id", 0, "sample ID")
	fl.StringVar(&ef.out, "out", "", "output `file`, .aiff or .wav")

	fl = cmdSampleImport.Flags()
	inf := &sampleImportFlags
	fl.StringVar(&inf.in, "in", "", "input `file`, .aiff or .wav")
	fl.StringVar(&inf.meta, "metadata", "", "JSON `file` with loop points")
	fl.StringVar(&inf.instrument, "instrument", "", "instrument name")
	fl.StringVar(&inf.name, "name", "", "program name")
	fl.BoolVar(&inf.system, "system", false, "add as a system program instead of a user program")

	cmdSample.AddCommand(&cmdSampleExport, &cmdSampleImport)
}
