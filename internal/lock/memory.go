package lock

import (
	"context"
	"sync"
	"time"
)

// Memory é um lock com TTL restrito ao processo; usado quando REDIS_ADDR não está definido
type Memory struct {
	mu       sync.Mutex
	held     map[string]*holder
	seq      uint64
	stopChan chan struct{}
	stopOnce sync.Once
}

type holder struct {
	token      uint64
	expiration time.Time
}

// NewMemory cria o lock e inicia a limpeza periódica das chaves expiradas
func NewMemory() *Memory {
	m := &Memory{
		held:     make(map[string]*holder),
		stopChan: make(chan struct{}),
	}

	go m.cleanup()

	return m
}

// Acquire tenta obter key por ttl. O release só libera a chave se ela ainda for deste holder.
func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if h, exists := m.held[key]; exists && now.Before(h.expiration) {
		return noop, false
	}

	m.seq++
	token := m.seq
	m.held[key] = &holder{token: token, expiration: now.Add(ttl)}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if h, exists := m.held[key]; exists && h.token == token {
			delete(m.held, key)
		}
	}, true
}

// Size retorna quantas chaves estão registradas, expiradas ou não
func (m *Memory) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.held)
}

// cleanup remove periodicamente as chaves expiradas
func (m *Memory) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.removeExpired()
		case <-m.stopChan:
			return
		}
	}
}

func (m *Memory) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, h := range m.held {
		if now.After(h.expiration) {
			delete(m.held, key)
		}
	}
}

// Stop encerra a goroutine de limpeza
func (m *Memory) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func noop() {}
