package nmdc

import "bytes"

// Lock/key handshake. The server issues "$Lock <challenge> Pk=<token>|" on
// connect; the client answers "$Key <derived>|". The derivation is a
// checksum, not cryptography, but it is observed by every deployed client
// and must be reproduced bit for bit.

const (
	lockCharBase  = '%'             // lock bytes range from '%'
	lockCharSpan  = 'z' - lockCharBase // ...up to but not including 'z'
	lockMinLen    = 48
	lockLenSpread = 30
	pkLen         = 16
)

// fold maps an XOR of two adjacent lock bytes to the key byte clients send
// back: swap the nibbles of the low byte.
func fold(x int32) byte {
	return byte(((x | (x << 8)) >> 4) & 0xff)
}

// GenerateLock derives the challenge issued under a numeric seed. It
// returns the lock bytes, the Pk token, and ok=false when the seed
// produces a zero first-character checksum, in which case the caller must
// retry with a fresh seed (the zero byte cannot travel in a key reply).
func GenerateLock(seed uint32) (lock, pk []byte, ok bool) {
	r := newCRand(seed)
	n := int(lockMinLen + r.next()%lockLenSpread)

	// Lock occupies positions 0..n inclusive. Every adjacent pair must
	// checksum to a non-zero byte; offending bytes are redrawn.
	lock = make([]byte, n+1)
	lock[0] = byte(lockCharBase + r.next()%lockCharSpan)
	for k := 1; k <= n; k++ {
		lock[k] = byte(lockCharBase + r.next()%lockCharSpan)
		if fold(int32(lock[k])^int32(lock[k-1])) == 0 {
			k--
		}
	}

	first := int32(lock[0]) ^ int32(lock[n]) ^ int32(lock[n-1]) ^ 0x05
	if fold(first) == 0 {
		return nil, nil, false
	}

	pk = make([]byte, pkLen)
	for j := range pk {
		pk[j] = byte(lockCharBase + r.next()%lockCharSpan)
	}
	return lock, pk, true
}

// KeyFor computes the key a conforming client derives from a lock. The
// first byte mixes the two final lock bytes and the constant 0x05; every
// later byte is the fold of one adjacent pair. Three byte values cannot
// travel literally and escape to fixed ten-character tokens.
func KeyFor(lock []byte) []byte {
	n := len(lock) - 1
	var key bytes.Buffer

	appendKeyByte := func(j byte) {
		switch j {
		case 5:
			key.WriteString("/%DCN005%/")
		case 36:
			key.WriteString("/%DCN036%/")
		case 96:
			key.WriteString("/%DCN096%/")
		default:
			key.WriteByte(j)
		}
	}

	appendKeyByte(fold(int32(lock[0]) ^ int32(lock[n]) ^ int32(lock[n-1]) ^ 0x05))
	for k := 1; k <= n; k++ {
		appendKeyByte(fold(int32(lock[k]) ^ int32(lock[k-1])))
	}
	return key.Bytes()
}

// ValidateKey rebuilds the lock issued under seed and checks the client's
// reply against the expected key. Trailing bytes after the expected key
// are tolerated, matching historical behavior.
func ValidateKey(seed uint32, reply []byte) bool {
	lock, _, ok := GenerateLock(seed)
	if !ok {
		return false
	}
	return bytes.HasPrefix(reply, KeyFor(lock))
}
