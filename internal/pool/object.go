package pool

import (
	"sync"
	"sync/atomic"
	"time"
)

// ObjectPool is a generic, statistics-tracking object pool used for
// request/exchange scratch values that would otherwise allocate on
// every request (httpwire.Request, per-request parameter scratch
// space). It wraps sync.Pool with a type parameter so call sites don't
// need a type assertion on Get.
type ObjectPool[T any] struct {
	pool  sync.Pool
	reset func(*T)

	gets      atomic.Uint64
	puts      atomic.Uint64
	news      atomic.Uint64
	startTime time.Time

	warmupSize    int
	targetHitRate float64
}

// ObjectPoolConfig configures an ObjectPool.
type ObjectPoolConfig[T any] struct {
	New           func() *T
	Reset         func(*T)
	WarmupSize    int
	TargetHitRate float64
}

// NewObjectPool creates a pool, pre-warming it with WarmupSize objects.
func NewObjectPool[T any](cfg ObjectPoolConfig[T]) *ObjectPool[T] {
	if cfg.WarmupSize == 0 {
		cfg.WarmupSize = 100
	}
	if cfg.TargetHitRate == 0 {
		cfg.TargetHitRate = 0.90
	}

	op := &ObjectPool[T]{
		reset:         cfg.Reset,
		startTime:     time.Now(),
		warmupSize:    cfg.WarmupSize,
		targetHitRate: cfg.TargetHitRate,
	}
	op.pool.New = func() any {
		op.news.Add(1)
		return cfg.New()
	}

	for i := 0; i < op.warmupSize; i++ {
		op.pool.Put(cfg.New())
	}

	return op
}

// Get acquires an object, allocating a new one if the pool is empty.
func (op *ObjectPool[T]) Get() *T {
	op.gets.Add(1)
	return op.pool.Get().(*T)
}

// Put resets and returns an object to the pool.
func (op *ObjectPool[T]) Put(v *T) {
	if v == nil {
		return
	}
	op.puts.Add(1)
	if op.reset != nil {
		op.reset(v)
	}
	op.pool.Put(v)
}

// ObjectPoolStats is a snapshot of one ObjectPool's hit-rate bookkeeping.
type ObjectPoolStats struct {
	Gets    uint64
	Puts    uint64
	News    uint64
	HitRate float64
	Uptime  time.Duration
}

// Stats reports a snapshot of pool hit-rate bookkeeping.
func (op *ObjectPool[T]) Stats() ObjectPoolStats {
	gets := op.gets.Load()
	puts := op.puts.Load()
	news := op.news.Load()

	hitRate := 0.0
	if gets > 0 {
		if hits := gets - news; hits > 0 {
			hitRate = float64(hits) / float64(gets)
		}
	}

	return ObjectPoolStats{
		Gets:    gets,
		Puts:    puts,
		News:    news,
		HitRate: hitRate,
		Uptime:  time.Since(op.startTime),
	}
}
