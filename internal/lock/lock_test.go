package lock

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemory_ExclusiveUntilRelease(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Stop()

	release, ok := m.Acquire(ctx, "sprint-release:1", time.Minute)
	if !ok {
		t.Fatal("first Acquire() failed")
	}
	if _, ok := m.Acquire(ctx, "sprint-release:1", time.Minute); ok {
		t.Error("second Acquire() succeeded while held")
	}
	if _, ok := m.Acquire(ctx, "sprint-release:2", time.Minute); !ok {
		t.Error("other key blocked")
	}

	release()
	if _, ok := m.Acquire(ctx, "sprint-release:1", time.Minute); !ok {
		t.Error("Acquire() after release failed")
	}
}

func TestMemory_ExpiredHolderCannotReleaseNewOwner(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Stop()

	staleRelease, ok := m.Acquire(ctx, "k", time.Millisecond)
	if !ok {
		t.Fatal("Acquire() failed")
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok := m.Acquire(ctx, "k", time.Minute); !ok {
		t.Fatal("Acquire() after expiry failed")
	}
	staleRelease()
	if _, ok := m.Acquire(ctx, "k", time.Minute); ok {
		t.Error("stale release freed the new owner's key")
	}
}

func TestMemory_ConcurrentAcquire(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Stop()

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := m.Acquire(ctx, "phase-milestone:p:BUILD", time.Minute); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("winners = %d, want 1", winners)
	}
}

func TestMemory_RemoveExpired(t *testing.T) {
	m := NewMemory()
	defer m.Stop()

	m.Acquire(context.Background(), "a", time.Millisecond)
	m.Acquire(context.Background(), "b", time.Hour)
	time.Sleep(5 * time.Millisecond)
	m.removeExpired()

	if m.Size() != 1 {
		t.Errorf("Size() = %d, want 1", m.Size())
	}
}

func TestRedis_AcquireRelease(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Pulando teste: TEST_REDIS_ADDR não definido")
	}
	ctx := context.Background()
	rdb := NewRedisClient(addr, "", 0)
	defer rdb.Close()
	r := NewRedis(rdb)
	if err := r.Ping(ctx); err != nil {
		t.Skipf("Pulando teste: Redis indisponível: %v", err)
	}

	key := fmt.Sprintf("test:%d", time.Now().UnixNano())
	release, ok := r.Acquire(ctx, key, 10*time.Second)
	if !ok {
		t.Fatal("Acquire() failed")
	}
	if _, ok := r.Acquire(ctx, key, 10*time.Second); ok {
		t.Error("second Acquire() succeeded while held")
	}
	release()
	release2, ok := r.Acquire(ctx, key, 10*time.Second)
	if !ok {
		t.Error("Acquire() after release failed")
	}
	release2()
}

func TestRedis_FailsOpen(t *testing.T) {
	rdb := NewRedisClient("127.0.0.1:1", "", 0)
	defer rdb.Close()
	r := NewRedis(rdb)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	release, ok := r.Acquire(ctx, "k", time.Second)
	if !ok {
		t.Error("Acquire() should fail open when Redis is unreachable")
	}
	release()
}
