package pool

import "testing"

type scratch struct {
	n int
}

func TestObjectPoolWarmupAvoidsAllocationOnFirstGets(t *testing.T) {
	op := NewObjectPool(ObjectPoolConfig[scratch]{
		New:        func() *scratch { return &scratch{} },
		Reset:      func(s *scratch) { s.n = 0 },
		WarmupSize: 4,
	})

	for i := 0; i < 4; i++ {
		s := op.Get()
		s.n = i
		op.Put(s)
	}

	stats := op.Stats()
	if stats.News != 0 {
		t.Fatalf("expected warmed-up pool to serve 4 gets with 0 new allocations, got %d news", stats.News)
	}
	if stats.Gets != 4 || stats.Puts != 4 {
		t.Fatalf("expected 4 gets and 4 puts, got gets=%d puts=%d", stats.Gets, stats.Puts)
	}
}

func TestObjectPoolResetClearsState(t *testing.T) {
	op := NewObjectPool(ObjectPoolConfig[scratch]{
		New:   func() *scratch { return &scratch{} },
		Reset: func(s *scratch) { s.n = 0 },
	})

	s := op.Get()
	s.n = 42
	op.Put(s)

	s2 := op.Get()
	if s2.n != 0 {
		t.Fatalf("expected reset object to have n == 0, got %d", s2.n)
	}
}
