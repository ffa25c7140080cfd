package storage

import "sync"

// table is a thread-safe map keyed by an auto-incremented id.
type table[V any] struct {
	mu   sync.RWMutex
	data map[int]V
	next int
}

func newTable[V any]() *table[V] {
	return &table[V]{
		data: make(map[int]V),
		next: 1,
	}
}

// insert allocates the next id and stores the value built for it.
func (t *table[V]) insert(build func(id int) V) V {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	v := build(id)
	t.data[id] = v
	return v
}

func (t *table[V]) get(id int) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.data[id]
	return v, ok
}

// update applies fn to the stored value and reports whether the id existed.
func (t *table[V]) update(id int, fn func(V) V) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.data[id]
	if !ok {
		return v, false
	}
	v = fn(v)
	t.data[id] = v
	return v, true
}

func (t *table[V]) delete(id int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.data[id]; !ok {
		return false
	}
	delete(t.data, id)
	return true
}

func (t *table[V]) values() []V {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]V, 0, len(t.data))
	for _, v := range t.data {
		out = append(out, v)
	}
	return out
}
