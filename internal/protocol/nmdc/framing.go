package nmdc

import "errors"

// MaxBufSize is the hard ceiling on bytes a connection may accumulate
// without completing a record. Exceeding it is a resource-exhaustion
// guard, not a protocol error.
const MaxBufSize = 1_000_000

// ErrOverflow is returned by Framer.Feed when the carried-over partial
// record exceeds MaxBufSize. The caller should schedule the connection
// for removal.
var ErrOverflow = errors.New("nmdc: partial record exceeds buffer ceiling")

// Framer reassembles '|'-terminated records from a byte stream arriving
// in arbitrary-sized chunks. A record between two consecutive delimiters
// may be empty; empty records are still emitted.
type Framer struct {
	partial []byte
}

// Feed appends p to the carried-over partial buffer and returns every
// complete record now available, each including its trailing delimiter.
// The remainder is carried to the next call.
func (f *Framer) Feed(p []byte) ([][]byte, error) {
	f.partial = append(f.partial, p...)

	var records [][]byte
	for {
		i := indexDelim(f.partial)
		if i < 0 {
			break
		}
		rec := make([]byte, i+1)
		copy(rec, f.partial[:i+1])
		records = append(records, rec)
		f.partial = f.partial[i+1:]
	}

	if len(f.partial) > MaxBufSize {
		f.partial = nil
		return records, ErrOverflow
	}
	return records, nil
}

// Pending reports how many bytes are carried over awaiting a delimiter.
func (f *Framer) Pending() int {
	return len(f.partial)
}

func indexDelim(b []byte) int {
	for i, c := range b {
		if c == '|' {
			return i
		}
	}
	return -1
}
