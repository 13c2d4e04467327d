package nmdc

// crand reproduces the C library's additive-feedback random generator
// (the TYPE_3 variant used by glibc). The lock challenge is derived from a
// stored numeric seed, and the same seed must rebuild the identical lock
// when the client's key reply arrives, so the generator has to be
// deterministic and stable across releases. math/rand would work for a
// single process lifetime but gives no cross-version guarantee.
type crand struct {
	state [31]uint32
	f, r  int
}

func newCRand(seed uint32) *crand {
	c := &crand{}
	if seed == 0 {
		seed = 1
	}
	c.state[0] = seed
	for i := 1; i < 31; i++ {
		// Park-Miller step, computed in 64 bits to avoid overflow.
		prev := int64(int32(c.state[i-1]))
		hi := prev / 127773
		lo := prev % 127773
		word := 16807*lo - 2836*hi
		if word < 0 {
			word += 2147483647
		}
		c.state[i] = uint32(word)
	}
	c.f, c.r = 3, 0

	// The first 310 outputs are discarded to decorrelate from the seed.
	for i := 0; i < 310; i++ {
		c.next()
	}
	return c
}

func (c *crand) next() int32 {
	c.state[c.f] += c.state[c.r]
	result := int32((c.state[c.f] >> 1) & 0x7fffffff)
	c.f++
	if c.f == 31 {
		c.f = 0
	}
	c.r++
	if c.r == 31 {
		c.r = 0
	}
	return result
}
