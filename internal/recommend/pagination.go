package recommend

import (
	"math/rand"
	"sync"
)

// Page is an offset/limit window over a filtered catalog query
type Page struct {
	Offset int
	Limit  int
}

// RandomPage draws a page at a uniform offset in [0, max(0, total-pageSize)],
// so repeated calls see different slices of the result without a cursor.
func RandomPage(rng Rand, total int64, pageSize int) Page {
	if pageSize <= 0 {
		return Page{}
	}
	span := total - int64(pageSize)
	if span <= 0 {
		return Page{Offset: 0, Limit: pageSize}
	}
	return Page{Offset: int(rng.Int63n(span + 1)), Limit: pageSize}
}

// Rand is the randomness the engine consumes
type Rand interface {
	Int63n(n int64) int64
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// lockedRand makes a *rand.Rand safe for concurrent requests
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Int63n(n int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Int63n(n)
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}
