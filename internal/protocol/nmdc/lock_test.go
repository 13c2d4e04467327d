package nmdc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pickSeed returns a seed at or after start that yields a usable lock.
func pickSeed(t *testing.T, start uint32) (uint32, []byte, []byte) {
	t.Helper()
	for seed := start; seed < start+100; seed++ {
		if lock, pk, ok := GenerateLock(seed); ok {
			return seed, lock, pk
		}
	}
	t.Fatal("no usable seed found in range")
	return 0, nil, nil
}

func TestGenerateLock(t *testing.T) {
	t.Run("DeterministicForFixedSeed", func(t *testing.T) {
		seed, lock1, pk1 := pickSeed(t, 42)
		lock2, pk2, ok := GenerateLock(seed)
		require.True(t, ok)
		assert.True(t, bytes.Equal(lock1, lock2))
		assert.True(t, bytes.Equal(pk1, pk2))
	})

	t.Run("LengthAndCharsetInRange", func(t *testing.T) {
		for _, start := range []uint32{1, 1000, 99999, 7777777} {
			_, lock, pk := pickSeed(t, start)
			assert.GreaterOrEqual(t, len(lock), lockMinLen+1)
			assert.LessOrEqual(t, len(lock), lockMinLen+lockLenSpread)
			assert.Len(t, pk, pkLen)
			for _, c := range lock {
				assert.GreaterOrEqual(t, c, byte('%'))
				assert.Less(t, c, byte('z'))
			}
		}
	})

	t.Run("DifferentSeedsDiffer", func(t *testing.T) {
		_, lock1, _ := pickSeed(t, 10)
		_, lock2, _ := pickSeed(t, 100000)
		assert.False(t, bytes.Equal(lock1, lock2))
	})

	t.Run("AdjacentPairsNeverFoldToZero", func(t *testing.T) {
		_, lock, _ := pickSeed(t, 42)
		for k := 1; k < len(lock); k++ {
			assert.NotZero(t, fold(int32(lock[k])^int32(lock[k-1])))
		}
	})
}

func TestKeyFor(t *testing.T) {
	t.Run("EscapesReservedBytes", func(t *testing.T) {
		// Adjacent pairs crafted so their folds hit the three reserved
		// values: 'a'^'1' = 0x50 folds to 5, 'j'^'(' = 0x42 folds to
		// 36, '1'^'7' = 0x06 folds to 96.
		lock := []byte{'1', 'a', '1', '(', 'j', '(', '7', '1', '7'}
		key := string(KeyFor(lock))
		assert.Contains(t, key, "/%DCN005%/")
		assert.Contains(t, key, "/%DCN036%/")
		assert.Contains(t, key, "/%DCN096%/")
	})

	t.Run("KeyCoversEveryLockByte", func(t *testing.T) {
		// One key byte (or escape token) per lock position.
		lock := []byte{'A', 'C', 'F'}
		key := KeyFor(lock)
		assert.Len(t, key, 3)
	})

	t.Run("FirstByteMixesTailAndConstant", func(t *testing.T) {
		lock := []byte{'A', 'C', 'F'}
		want := fold(int32('A') ^ int32('F') ^ int32('C') ^ 0x05)
		assert.Equal(t, want, KeyFor(lock)[0])
	})
}

func TestValidateKey(t *testing.T) {
	seed, lock, _ := pickSeed(t, 42)

	t.Run("AcceptsDerivedKey", func(t *testing.T) {
		assert.True(t, ValidateKey(seed, KeyFor(lock)))
	})

	t.Run("AcceptsTrailingGarbage", func(t *testing.T) {
		reply := append(KeyFor(lock), []byte("extra")...)
		assert.True(t, ValidateKey(seed, reply))
	})

	t.Run("RejectsWrongKey", func(t *testing.T) {
		reply := KeyFor(lock)
		reply[0] ^= 0xFF
		assert.False(t, ValidateKey(seed, reply))
	})

	t.Run("RejectsEmptyReplyPrefixMismatch", func(t *testing.T) {
		assert.False(t, ValidateKey(seed, []byte{0x00}))
	})
}
