package swdl

import (
	"bytes"
	"fmt"

	"github.com/depp/dsekit/lib/dse"
)

// A Pcmd is the raw sample data of a bank.
type Pcmd struct {
	Data []byte
}

// ChunkData implements the dse.Chunk interface.
func (p *Pcmd) ChunkData() (tag [4]byte, data []byte, err error) {
	return dse.Tag("pcmd"), p.Data, nil
}

// Find returns the offset of the first copy of sample in the data, or -1.
func (p *Pcmd) Find(sample []byte) int {
	return bytes.Index(p.Data, sample)
}

// Append adds a sample to the end of the data and returns its offset.
func (p *Pcmd) Append(sample []byte) int {
	pos := len(p.Data)
	p.Data = append(p.Data, sample...)
	return pos
}

// Slice returns the given range of the data.
func (p *Pcmd) Slice(offset, length int) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > len(p.Data) {
		return nil, fmt.Errorf("sample range %d+%d exceeds sample data length %d", offset, length, len(p.Data))
	}
	return p.Data[offset : offset+length : offset+length], nil
}

// SampleBytes returns the bytes of a sample. Bank references are resolved
// against pcmd, which may be nil if the location is owned.
func SampleBytes(loc SampleLocation, pcmd *Pcmd) ([]byte, error) {
	switch loc := loc.(type) {
	case OwnedSample:
		return loc, nil
	case BankRef:
		if pcmd == nil {
			return nil, fmt.Errorf("sample refers to bank %q, which has no sample data", loc.Bank)
		}
		return pcmd.Slice(loc.Offset, loc.Length)
	case nil:
		return nil, fmt.Errorf("sample has no data")
	}
	return nil, fmt.Errorf("unknown sample location %T", loc)
}
