package nmdc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(t *testing.T, f *Framer, chunks ...[]byte) [][]byte {
	t.Helper()
	var out [][]byte
	for _, c := range chunks {
		recs, err := f.Feed(c)
		require.NoError(t, err)
		out = append(out, recs...)
	}
	return out
}

func TestFramer(t *testing.T) {
	t.Run("SingleCompleteRecord", func(t *testing.T) {
		f := &Framer{}
		recs := feedAll(t, f, []byte("$GetNickList|"))
		require.Len(t, recs, 1)
		assert.Equal(t, "$GetNickList|", string(recs[0]))
		assert.Equal(t, 0, f.Pending())
	})

	t.Run("MultipleRecordsInOneChunk", func(t *testing.T) {
		f := &Framer{}
		recs := feedAll(t, f, []byte("$Key abc|$ValidateNick Alice|<Alice> hi|"))
		require.Len(t, recs, 3)
		assert.Equal(t, "$Key abc|", string(recs[0]))
		assert.Equal(t, "$ValidateNick Alice|", string(recs[1]))
		assert.Equal(t, "<Alice> hi|", string(recs[2]))
	})

	t.Run("PartialCarriedAcrossFeeds", func(t *testing.T) {
		f := &Framer{}
		recs := feedAll(t, f, []byte("$Validate"))
		assert.Empty(t, recs)
		assert.Equal(t, len("$Validate"), f.Pending())

		recs = feedAll(t, f, []byte("Nick Bob|$Get"))
		require.Len(t, recs, 1)
		assert.Equal(t, "$ValidateNick Bob|", string(recs[0]))
		assert.Equal(t, len("$Get"), f.Pending())
	})

	t.Run("EmptyRecordBetweenDelimiters", func(t *testing.T) {
		f := &Framer{}
		recs := feedAll(t, f, []byte("||"))
		require.Len(t, recs, 2)
		assert.Equal(t, "|", string(recs[0]))
		assert.Equal(t, "|", string(recs[1]))
	})

	// Splitting the same byte stream at every possible boundary must
	// produce the identical record sequence.
	t.Run("SplitAtEveryBoundary", func(t *testing.T) {
		stream := []byte("$Key abc|$ValidateNick Alice||<Alice> hello there|$GetNickList|")

		whole := feedAll(t, &Framer{}, stream)

		for cut := 0; cut <= len(stream); cut++ {
			f := &Framer{}
			split := feedAll(t, f, stream[:cut], stream[cut:])
			require.Len(t, split, len(whole), "cut at %d", cut)
			for i := range whole {
				assert.True(t, bytes.Equal(whole[i], split[i]), "cut at %d, record %d", cut, i)
			}
			assert.Equal(t, 0, f.Pending())
		}
	})

	t.Run("OverflowWithoutDelimiter", func(t *testing.T) {
		f := &Framer{}
		chunk := make([]byte, MaxBufSize+1)
		for i := range chunk {
			chunk[i] = 'a'
		}
		recs, err := f.Feed(chunk)
		assert.Empty(t, recs)
		assert.ErrorIs(t, err, ErrOverflow)
		// The poisoned partial is dropped so the guard fires once.
		assert.Equal(t, 0, f.Pending())
	})

	t.Run("CompleteRecordsEmittedBeforeOverflow", func(t *testing.T) {
		f := &Framer{}
		payload := append([]byte("$GetNickList|"), make([]byte, MaxBufSize+1)...)
		for i := len("$GetNickList|"); i < len(payload); i++ {
			payload[i] = 'x'
		}
		recs, err := f.Feed(payload)
		require.Len(t, recs, 1)
		assert.Equal(t, "$GetNickList|", string(recs[0]))
		assert.ErrorIs(t, err, ErrOverflow)
	})
}
