package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"text/tabwriter"

	"github.com/depp/dsekit/lib/audio/metadata"
	"github.com/depp/dsekit/lib/dse/batch"
	"github.com/depp/dsekit/lib/dse/swdl"
	"github.com/depp/dsekit/lib/dse/vault"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func loadVault() (*vault.Vault, error) {
	fp, err := os.Open(cfg.Path(cfg.Vault))
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	v, err := vault.Load(fp)
	if err != nil {
		return nil, &fileError{cfg.Vault, err}
	}
	return v, nil
}

func saveVault(v *vault.Vault) error {
	fp, err := os.Create(cfg.Path(cfg.Vault))
	if err != nil {
		return err
	}
	if err := v.Save(fp); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}

func masterBank() (*swdl.SWDL, error) {
	if cfg.MasterBank == "" {
		return nil, errors.New("missing --master flag")
	}
	return readBank(cfg.MasterBank)
}

var cmdVault = cobra.Command{
	Use:   "vault",
	Short: "Manage a vault of programs which can be loaded into any bank.",
}

var cmdVaultBuild = cobra.Command{
	Use:   "build <bank.swd>...",
	Short: "Create a vault from the programs in sub-banks.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		master, err := masterBank()
		if err != nil {
			return err
		}
		var names metadata.NameTable
		if cfg.Names != "" {
			names, err = metadata.ReadNames(cfg.Path(cfg.Names))
			if err != nil {
				return err
			}
		}
		inputs, err := readInputs(args)
		if err != nil {
			return err
		}
		files, err := batch.DecodeAll(cmd.Context(), inputs, cfg.Workers)
		if err != nil {
			return err
		}
		banks := make(map[string]*swdl.SWDL, len(files))
		for i, f := range files {
			if f.SWDL == nil {
				return &fileError{inputs[i].Name, fmt.Errorf("file is %v, not a sound bank", f.Kind())}
			}
			banks[filepath.Base(inputs[i].Name)] = f.SWDL
		}
		v := vault.New()
		if err := v.FillFromBanks(banks, master, names); err != nil {
			return err
		}
		logrus.Infof("Vault has %d programs", len(v.All()))
		return saveVault(v)
	},
}

var vaultListFlags struct {
	instrument    string
	name          string
	source        string
	excludeBanks  bool
	excludeSystem bool
	excludeUser   bool
}

func compileOptional(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	return regexp.Compile(expr)
}

var cmdVaultList = cobra.Command{
	Use:   "list",
	Short: "List the programs in a vault.",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		fl := &vaultListFlags
		f := vault.Filter{
			ExcludeBanks:  fl.excludeBanks,
			ExcludeSystem: fl.excludeSystem,
			ExcludeUser:   fl.excludeUser,
		}
		var err error
		if f.InstrumentName, err = compileOptional(fl.instrument); err != nil {
			return err
		}
		if f.Name, err = compileOptional(fl.name); err != nil {
			return err
		}
		if f.SourceFilename, err = compileOptional(fl.source); err != nil {
			return err
		}
		v, err := loadVault()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tInstrument\tName\tSource\tSplits")
		for _, p := range v.Filter(f) {
			src := "-"
			if p.SourceFilename != "" {
				src = fmt.Sprintf("%s:%d", p.SourceFilename, p.SourceProgramID)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", p.ID, p.InstrumentName, p.Name, src, len(p.Program.Splits))
		}
		return w.Flush()
	},
}

var vaultMergeFlags struct {
	program      string
	target       string
	out          string
	slot         int
	noNewSamples bool
}

var cmdVaultMerge = cobra.Command{
	Use:   "merge",
	Short: "Load a program from the vault into a bank.",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		fl := &vaultMergeFlags
		if fl.target == "" {
			return errors.New("missing --target flag")
		}
		id, err := uuid.Parse(fl.program)
		if err != nil {
			return fmt.Errorf("invalid --program: %v", err)
		}
		v, err := loadVault()
		if err != nil {
			return err
		}
		p := v.Get(id)
		if p == nil {
			return fmt.Errorf("no program with ID %s in vault", id)
		}
		target, err := readBank(fl.target)
		if err != nil {
			return err
		}
		master, err := masterBank()
		if err != nil {
			return err
		}
		vault.SetLogger(logrus.WithFields(logrus.Fields{
			"target": fl.target,
			"master": cfg.MasterBank,
		}))
		modified, err := p.Merge(target, master, fl.slot, cfg.AllowNewSamples && !fl.noNewSamples)
		if err != nil {
			return err
		}
		out := fl.out
		if out == "" {
			out = fl.target
		}
		if err := writeBank(out, target); err != nil {
			return err
		}
		if modified {
			logrus.Info("Master bank modified, saving")
			return writeBank(cfg.MasterBank, master)
		}
		return nil
	},
}

func init() {
	fl := cmdVaultBuild.Flags()
	fl.StringVar(&cfg.Names, "names", cfg.Names, "JSON file with program names")

	fl = cmdVaultList.Flags()
	lf := &vaultListFlags
	fl.StringVar(&lf.instrument, "instrument", "", "show programs whose instrument name matches `regexp`")
	fl.StringVar(&lf.name, "name", "", "show programs whose name matches `regexp`")
	fl.StringVar(&lf.source, "source", "", "show programs whose source bank filename matches `regexp`")
	fl.BoolVar(&lf.excludeBanks, "exclude-banks", false, "hide programs extracted from banks")
	fl.BoolVar(&lf.excludeSystem, "exclude-system", false, "hide system programs")
	fl.BoolVar(&lf.excludeUser, "exclude-user", false, "hide user programs")

	fl = cmdVaultMerge.Flags()
	mf := &vaultMergeFlags
	fl.StringVar(&mf.program, "program", "", "`uuid` of the program to load")
	fl.StringVar(&mf.target, "target", "", "bank to load the program into")
	fl.StringVar(&mf.out, "out", "", "write the modified bank to `file` instead of the target")
	fl.IntVar(&mf.slot, "slot", 0, "program slot in the target bank")
	fl.BoolVar(&mf.noNewSamples, "no-new-samples", false, "fail instead of adding samples to the master bank")

	cmdVault.AddCommand(&cmdVaultBuild, &cmdVaultList, &cmdVaultMerge)
}
