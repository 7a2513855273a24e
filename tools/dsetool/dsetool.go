package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/depp/dsekit/lib/config"
	"github.com/depp/dsekit/lib/dse/swdl"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type fileError struct {
	name string
	err  error
}

func (e *fileError) Error() string {
	return fmt.Sprintf("%q: %v", e.name, e.err)
}

func (e *fileError) Unwrap() error {
	return e.err
}

var cfg = config.Load()

var cmdRoot = cobra.Command{
	Use:           "dsetool",
	Short:         "Dsetool inspects DSE sequences and sound banks, and moves programs between banks.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(*cobra.Command, []string) {
		logrus.SetLevel(cfg.LogLevel)
	},
}

func readFile(name string) ([]byte, error) {
	data, err := os.ReadFile(cfg.Path(name))
	if err != nil {
		return nil, err
	}
	return data, nil
}

func writeFile(name string, data []byte) error {
	return os.WriteFile(cfg.Path(name), data, 0666)
}

func readBank(name string) (*swdl.SWDL, error) {
	data, err := readFile(name)
	if err != nil {
		return nil, err
	}
	b, err := swdl.Parse(data)
	if err != nil {
		return nil, &fileError{name, err}
	}
	return b, nil
}

func writeBank(name string, b *swdl.SWDL) error {
	data, err := b.Write()
	if err != nil {
		return &fileError{name, err}
	}
	return writeFile(name, data)
}

func main() {
	fl := cmdRoot.PersistentFlags()
	fl.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of files to process at once")
	fl.StringVar(&cfg.MasterBank, "master", cfg.MasterBank, "master bank containing sample data")
	fl.StringVar(&cfg.Vault, "vault", cfg.Vault, "vault file")
	cmdRoot.AddCommand(&cmdInfo, &cmdRoundTrip, &cmdVault, &cmdSample)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmdRoot.ExecuteContext(ctx)
	stop()
	if err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
