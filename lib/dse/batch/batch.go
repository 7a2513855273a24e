// Package batch decodes and encodes many DSE files in parallel.
package batch

import (
	"bytes"
	"context"
	"fmt"
	"runtime"

	"github.com/depp/dsekit/lib/dse/smdl"
	"github.com/depp/dsekit/lib/dse/swdl"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownFormat indicates data which is neither SMDL nor SWDL.
var ErrUnknownFormat = errors.New("unknown file format")

// A Kind is a type of DSE file.
type Kind int

const (
	Unknown Kind = iota
	SMDL
	SWDL
)

func (k Kind) String() string {
	switch k {
	case SMDL:
		return "SMDL"
	case SWDL:
		return "SWDL"
	}
	return "unknown"
}

// Sniff returns the kind of file, from its magic number.
func Sniff(data []byte) Kind {
	if len(data) < 4 {
		return Unknown
	}
	switch string(data[:4]) {
	case "smdl":
		return SMDL
	case "swdl":
		return SWDL
	}
	return Unknown
}

// A File is a decoded SMDL or SWDL file. Exactly one field is set.
type File struct {
	SMDL *smdl.SMDL
	SWDL *swdl.SWDL
}

// Kind returns the kind of file.
func (f File) Kind() Kind {
	switch {
	case f.SMDL != nil:
		return SMDL
	case f.SWDL != nil:
		return SWDL
	}
	return Unknown
}

// Decode decodes an SMDL or SWDL file.
func Decode(data []byte) (File, error) {
	switch Sniff(data) {
	case SMDL:
		s, err := smdl.Parse(data)
		return File{SMDL: s}, err
	case SWDL:
		s, err := swdl.Parse(data)
		return File{SWDL: s}, err
	}
	return File{}, ErrUnknownFormat
}

// Encode encodes the file.
func (f File) Encode() ([]byte, error) {
	switch {
	case f.SMDL != nil:
		return f.SMDL.Write()
	case f.SWDL != nil:
		return f.SWDL.Write()
	}
	return nil, errors.New("empty file")
}

// An Input is the name and contents of a file.
type Input struct {
	Name string
	Data []byte
}

// A Result is the result of round-tripping one file.
type Result struct {
	Name string
	Kind Kind
	Err  error

	// Mismatch is the offset of the first byte which differs after
	// re-encoding, or -1 if the output is identical.
	Mismatch int
}

// OK returns true if the file was decoded and re-encoded identically.
func (r *Result) OK() bool {
	return r.Err == nil && r.Mismatch == -1
}

func (r *Result) String() string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("%s: %v", r.Name, r.Err)
	case r.Mismatch >= 0:
		return fmt.Sprintf("%s: output differs at offset 0x%x", r.Name, r.Mismatch)
	}
	return fmt.Sprintf("%s: ok", r.Name)
}

func firstDifference(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}

func roundTrip(in Input) Result {
	r := Result{Name: in.Name, Kind: Sniff(in.Data), Mismatch: -1}
	f, err := Decode(in.Data)
	if err != nil {
		r.Err = errors.Wrap(err, "decode")
		return r
	}
	out, err := f.Encode()
	if err != nil {
		r.Err = errors.Wrap(err, "encode")
		return r
	}
	if !bytes.Equal(out, in.Data) {
		r.Mismatch = firstDifference(out, in.Data)
	}
	return r
}

func limit(workers int) int {
	if workers <= 0 {
		return runtime.NumCPU()
	}
	return workers
}

// RoundTrip decodes and re-encodes each file, using up to the given number of
// workers. Errors in individual files are reported in the results. The only
// error returned is from the context.
func RoundTrip(ctx context.Context, inputs []Input, workers int) ([]Result, error) {
	results := make([]Result, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(workers))
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = roundTrip(in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// DecodeAll decodes each file, using up to the given number of workers. It
// stops at the first error.
func DecodeAll(ctx context.Context, inputs []Input, workers int) ([]File, error) {
	files := make([]File, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(workers))
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := Decode(in.Data)
			if err != nil {
				return errors.Wrapf(err, "%s", in.Name)
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
