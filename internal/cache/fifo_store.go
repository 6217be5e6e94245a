package cache

import (
	"sync"
	"sync/atomic"
)

// NewStore 构建容量固定的 FIFO 缓存，整站复用一份实例。
// capacity 为负返回 ErrInvalidCapacity；为 0 表示禁用缓存（Put 变为 no-op）。
func NewStore(capacity int) (Store, error) {
	if capacity < 0 {
		return nil, ErrInvalidCapacity
	}

	return &fifoStore{
		capacity: capacity,
		entries:  make(map[string][]byte, capacity),
		order:    make([]string, 0, capacity),
	}, nil
}

// fifoStore 用一把读写锁同时保护 entries 与 order，保证映射更新与
// 淘汰顺序更新对读取方始终一致。order 是显式的插入顺序队列，
// 淘汰顺序绝不依赖 map 的遍历顺序。
type fifoStore struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string][]byte
	order    []string

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func (s *fifoStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	value, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		s.misses.Add(1)
		return nil, false
	}

	s.hits.Add(1)
	return append([]byte(nil), value...), true
}

func (s *fifoStore) Put(key string, value []byte) {
	if s.capacity == 0 {
		return
	}

	// 副本在取锁前完成，锁内只做指针级操作。
	copied := append([]byte(nil), value...)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		// 就地更新，保留原有 FIFO 位置，避免重复 Put 扰乱淘汰顺序。
		s.entries[key] = copied
		return
	}

	if len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, oldest)
		s.evictions.Add(1)
	}

	s.entries[key] = copied
	s.order = append(s.order, key)
}

func (s *fifoStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *fifoStore) Snapshot() Stats {
	s.mu.RLock()
	length := len(s.entries)
	s.mu.RUnlock()

	return Stats{
		Len:       length,
		Capacity:  s.capacity,
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
	}
}
