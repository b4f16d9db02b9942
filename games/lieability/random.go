package lieability

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/Seednode/lieability/games/questions"
)

// Rand is the randomness a session draws from. *math/rand/v2.Rand
// satisfies it; tests pass a seeded one.
type Rand interface {
	questions.Rand
	Uint64() uint64
}

// NewRand returns a PCG generator seeded from the operating system.
func NewRand() (*rand.Rand, error) {
	var seed [16]byte

	if _, err := crand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("failed to seed random source: %w", err)
	}

	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	)), nil
}

const optionIDLength = 9

// newOptionID returns a short base36 id not present in used.
func newOptionID(rng Rand, used map[string]bool) string {
	for {
		id := strconv.FormatUint(rng.Uint64(), 36)
		if len(id) > optionIDLength {
			id = id[:optionIDLength]
		}

		if !used[id] {
			used[id] = true

			return id
		}
	}
}
