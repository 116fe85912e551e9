package tickets

import (
	crand "crypto/rand"
	"math/big"
	"math/rand"
	"sync"

	"github.com/google/logger"
)

// Source supplies uniform random integers in [0, n).
// *rand.Rand from math/rand satisfies it, which lets tests inject a seeded source.
type Source interface {
	Intn(n int) int
}

type globalSource struct{}

func (globalSource) Intn(n int) int { return rand.Intn(n) }

// Default is the goroutine-safe math/rand top-level source.
var Default Source = globalSource{}

// NewSeededSource returns a deterministic source. It is not safe for concurrent use.
func NewSeededSource(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// CryptoSource draws from crypto/rand.
type CryptoSource struct{}

// Intn returns a uniform integer in [0, n). If the system entropy source fails
// it falls back to math/rand rather than aborting a draw half way through.
func (CryptoSource) Intn(n int) int {
	v, err := crand.Int(crand.Reader, big.NewInt(int64(n)))
	if err != nil {
		logger.Warningf("crypto/rand failed, falling back to math/rand: %v", err)
		return rand.Intn(n)
	}
	return int(v.Int64())
}

func orDefault(src Source) Source {
	if src == nil {
		return Default
	}
	return src
}

type lockedSource struct {
	mu  sync.Mutex
	src Source
}

func (l *lockedSource) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Intn(n)
}

// Locked serialises calls to src so one seeded source can serve concurrent sessions.
func Locked(src Source) Source {
	switch src.(type) {
	case nil:
		return Default
	case globalSource, CryptoSource, *lockedSource:
		return src
	}
	return &lockedSource{src: src}
}
