package zmachine

import (
	"math/rand"
	"time"
)

// random is the story's random number generator. Seeding with a small
// value switches to a counting sequence, which stories use for testing.
type random struct {
	rng   *rand.Rand
	fixed bool
	seed  int64

	count uint16 // counting sequence length, or 0 when random
	next  uint16
}

// reseed returns to random mode, from the configured seed if fixed.
func (r *random) reseed() {
	seed := r.seed
	if !r.fixed {
		seed = time.Now().UnixNano()
	}
	r.rng = rand.New(rand.NewSource(seed))
	r.count, r.next = 0, 0
}

// setSeed implements a negative random operand.
func (r *random) setSeed(n uint16) {
	if n < 1000 {
		r.count, r.next = n, 0
		return
	}
	r.rng = rand.New(rand.NewSource(int64(n)))
	r.count, r.next = 0, 0
}

// value returns a number in [1, n].
func (r *random) value(n uint16) uint16 {
	if r.count == 0 {
		return uint16(r.rng.Intn(int(n))) + 1
	}
	r.next = r.next%r.count + 1
	if r.next > n {
		return (r.next-1)%n + 1
	}
	return r.next
}

// opRandom implements random: positive range gives a value, negative seeds
// and zero reseeds.
func (vm *VM) opRandom(rng int16) uint16 {
	switch {
	case rng > 0:
		return vm.rand.value(uint16(rng))
	case rng < 0:
		vm.rand.setSeed(uint16(-int32(rng)))
	default:
		vm.rand.reseed()
	}
	return 0
}
