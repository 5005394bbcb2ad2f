package ranking

import (
	"math/rand"
	"sync"
	"time"
)

// mathRandSource is the production RandSource, guarded by a mutex since
// math/rand.Rand is not safe for concurrent use and ensemble votes run
// concurrently (spec §4.D step 2: "dispatch all k VLM calls in
// parallel").
type mathRandSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newMathRandSource() *mathRandSource {
	return &mathRandSource{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *mathRandSource) Bool() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(2) == 1
}
