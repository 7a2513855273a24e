package main

import (
	"fmt"

	"github.com/depp/dsekit/lib/dse/batch"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func readInputs(names []string) ([]batch.Input, error) {
	inputs := make([]batch.Input, len(names))
	for i, name := range names {
		data, err := readFile(name)
		if err != nil {
			return nil, err
		}
		inputs[i] = batch.Input{Name: name, Data: data}
	}
	return inputs, nil
}

var cmdRoundTrip = cobra.Command{
	Use:   "roundtrip <file>...",
	Short: "Check that files are unchanged after decoding and encoding them.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs, err := readInputs(args)
		if err != nil {
			return err
		}
		results, err := batch.RoundTrip(cmd.Context(), inputs, cfg.Workers)
		if err != nil {
			return err
		}
		var failed int
		for i := range results {
			r := &results[i]
			if r.OK() {
				logrus.Debug(r)
				continue
			}
			failed++
			logrus.WithField("kind", r.Kind).Error(r)
		}
		logrus.Infof("Checked %d files", len(results))
		if failed != 0 {
			return fmt.Errorf("%d of %d files changed after round trip", failed, len(results))
		}
		return nil
	},
}
