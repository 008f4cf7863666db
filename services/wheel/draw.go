package wheel

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sync"

	"tsmarket/pkg/errutil"
)

// Source yields uniform integers in [0, n).
type Source interface {
	Int63n(n int64) (int64, error)
}

type cryptoSource struct{}

// NewCryptoSource draws from crypto/rand. It is the production source.
func NewCryptoSource() Source { return cryptoSource{} }

func (cryptoSource) Int63n(n int64) (int64, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, err
	}
	return v.Int64(), nil
}

type seededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededSource returns a reproducible source for replaying draws.
func NewSeededSource(seed uint64) Source {
	return &seededSource{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Int63n(n int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Int64N(n), nil
}

type Draw struct {
	Index       int
	Value       int64
	TotalWeight int64
}

// Select draws r in [0, total weight) and walks prizes in order until the
// running weight exceeds r. Probabilities need not sum to one.
func Select(prizes []*WheelPrize, src Source) (Draw, error) {
	var total int64
	for _, p := range prizes {
		total += p.Weight()
	}
	if total <= 0 {
		return Draw{}, ErrWheelEmpty
	}

	r, err := src.Int63n(total)
	if err != nil {
		return Draw{}, errutil.Wrap(ErrDrawFailed, err)
	}

	var running int64
	for i, p := range prizes {
		running += p.Weight()
		if running > r {
			return Draw{Index: i, Value: r, TotalWeight: total}, nil
		}
	}

	// unreachable while r < total
	return Draw{}, ErrWheelEmpty
}
