package mapgen

import (
	"math/rand"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// OffsetRange bounds the seed-derived noise offsets.
const OffsetRange = 1_000_000

// ParseSeed turns a user seed into an integer. Decimal integers are used
// as is, anything else is hashed.
func ParseSeed(seed string) int64 {
	s := strings.TrimSpace(seed)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	return int64(xxhash.Sum64String(s))
}

// Offsets derives the two noise offsets of a seed, each in [0, OffsetRange).
func Offsets(seed int64) (x, y int) {
	r := rand.New(rand.NewSource(seed))
	x = r.Intn(OffsetRange)
	y = r.Intn(OffsetRange)
	return x, y
}
