package evolution

import (
	"math/rand"

	"github.com/amirphl/strategy-lab/internal/indicator"
)

func newRNG(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }

func newCache() *indicator.Cache { return indicator.NewCache() }
