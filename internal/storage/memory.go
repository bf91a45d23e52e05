package storage

import (
	"context"
	"sync"
)

// MemoryGateway keeps objects in process memory.
type MemoryGateway struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
	err     error
}

func NewMemoryGateway(baseURL string) *MemoryGateway {
	return &MemoryGateway{objects: make(map[string][]byte), baseURL: baseURL}
}

// FailWith makes every subsequent Put return err.
func (g *MemoryGateway) FailWith(err error) {
	g.mu.Lock()
	g.err = err
	g.mu.Unlock()
}

func (g *MemoryGateway) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.objects[key] = append([]byte(nil), data...)
	return g.baseURL + "/" + key, nil
}

func (g *MemoryGateway) Get(key string) ([]byte, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	b, ok := g.objects[key]
	return b, ok
}

func (g *MemoryGateway) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.objects)
}
