package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// Rand is the random source behind draws and player selection.
// *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// NewRand returns a PCG source seeded from crypto/rand. It is not safe for
// concurrent use; each lobby owns its own.
func NewRand() *rand.Rand {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])))
}
