package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/depp/dsekit/lib/dse/batch"
	"github.com/depp/dsekit/lib/dse/smdl"
	"github.com/depp/dsekit/lib/dse/swdl"

	"github.com/spf13/cobra"
)

var cmdInfo = cobra.Command{
	Use:   "info <file>",
	Short: "Print a summary of an SMDL or SWDL file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		name := args[0]
		data, err := readFile(name)
		if err != nil {
			return err
		}
		f, err := batch.Decode(data)
		if err != nil {
			return &fileError{name, err}
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		switch {
		case f.SMDL != nil:
			printSMDL(w, f.SMDL)
		case f.SWDL != nil:
			printSWDL(w, f.SWDL)
		}
		return w.Flush()
	},
}

func printSMDL(w io.Writer, s *smdl.SMDL) {
	fmt.Fprintf(w, "Sequence:\t%s\n", s.Header.Name)
	fmt.Fprintf(w, "Modified:\t%s\n", s.Header.Modified.Time(time.UTC).Format(time.DateTime))
	fmt.Fprintf(w, "Ticks per quarter note:\t%d\n", s.Song.TPQN)
	fmt.Fprintf(w, "Channels:\t%d\n", s.Song.ChannelCount)
	fmt.Fprintf(w, "Tracks:\t%d\n\n", len(s.Tracks))
	fmt.Fprintln(w, "Track\tChannel\tEvents\tNotes")
	for _, t := range s.Tracks {
		var notes int
		for _, e := range t.Events {
			if _, ok := e.(smdl.PlayNote); ok {
				notes++
			}
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\n", t.Preamble.TrackID, t.Preamble.ChannelID, len(t.Events), notes)
	}
}

func printSWDL(w io.Writer, s *swdl.SWDL) {
	fmt.Fprintf(w, "Bank:\t%s\n", s.Header.Name)
	fmt.Fprintf(w, "Modified:\t%s\n", s.Header.Modified.Time(time.UTC).Format(time.DateTime))
	switch {
	case s.Pcmd != nil:
		fmt.Fprintf(w, "Sample data:\t%d bytes\n", len(s.Pcmd.Data))
	case s.Header.PcmdLen.IsExternal():
		fmt.Fprintln(w, "Sample data:\tin master bank")
	default:
		fmt.Fprintln(w, "Sample data:\tnone")
	}
	if s.Prgi != nil {
		var n int
		for _, p := range s.Prgi.Programs {
			if p != nil {
				n++
			}
		}
		fmt.Fprintf(w, "Programs:\t%d of %d slots\n", n, len(s.Prgi.Programs))
	}
	if s.Kgrp != nil {
		fmt.Fprintf(w, "Keygroups:\t%d\n", len(s.Kgrp.Keygroups))
	}
	fmt.Fprintf(w, "Samples:\t%d slots\n\n", len(s.Wavi.Samples))
	fmt.Fprintln(w, "ID\tFormat\tRate\tPosition\tLength\tLoop")
	for _, si := range s.Wavi.Samples {
		if si == nil {
			continue
		}
		loop := "-"
		if si.Loop {
			loop = fmt.Sprintf("%d", si.LoopBegin*4)
		}
		fmt.Fprintf(w, "%d\t%v\t%d\t%d\t%d\t%s\n",
			si.ID, si.Format, si.SampleRate, si.SamplePos, si.SampleLength(), loop)
	}
}
