package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is an in-memory Store used by tests and local development. A single
// mutex serializes transactions, so RunTransaction never conflicts here;
// conflict paths are exercised with stubs in the packages that retry.
type Memory struct {
	mu   sync.Mutex
	data map[string]map[string]json.RawMessage // collection -> id -> doc
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]json.RawMessage)}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Get(ctx context.Context, collection, id string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(collection, id, v)
}

func (m *Memory) Set(ctx context.Context, collection, id string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set(collection, id, v)
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.update(collection, id, fields)
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[collection], id)
	return nil
}

func (m *Memory) Query(ctx context.Context, collection string, filters []Filter, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []json.RawMessage
	for _, raw := range m.data[collection] {
		ok, err := matchesFilters(raw, filters)
		if err != nil {
			return err
		}
		if ok {
			matches = append(matches, raw)
		}
	}

	arr, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("marshal query result: %w", err)
	}
	return json.Unmarshal(arr, v)
}

func (m *Memory) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("unmarshal %s/%s: %w", collection, id, err)
	}
	var current int64
	if f, ok := doc[field].(float64); ok {
		current = int64(f)
	}
	doc[field] = current + delta
	return m.set(collection, id, doc)
}

func (m *Memory) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Stage writes; apply only if fn succeeds.
	tx := &memoryTx{store: m, staged: make(map[string]map[string]*json.RawMessage)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for collection, docs := range tx.staged {
		for id, raw := range docs {
			if raw == nil {
				delete(m.data[collection], id)
				continue
			}
			if m.data[collection] == nil {
				m.data[collection] = make(map[string]json.RawMessage)
			}
			m.data[collection][id] = *raw
		}
	}
	return nil
}

// --- unlocked helpers (caller holds mu) ---

func (m *Memory) get(collection, id string, v any) error {
	raw, ok := m.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, v)
}

func (m *Memory) set(collection, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]json.RawMessage)
	}
	m.data[collection][id] = raw
	return nil
}

func (m *Memory) update(collection, id string, fields map[string]any) error {
	raw, ok := m.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("unmarshal %s/%s: %w", collection, id, err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	return m.set(collection, id, doc)
}

// memoryTx stages writes against the parent store. Reads see staged writes
// first, then committed data. nil staged entry marks a delete.
type memoryTx struct {
	store  *Memory
	staged map[string]map[string]*json.RawMessage
}

func (t *memoryTx) Get(ctx context.Context, collection, id string, v any) error {
	if docs, ok := t.staged[collection]; ok {
		if raw, ok := docs[id]; ok {
			if raw == nil {
				return ErrNotFound
			}
			return json.Unmarshal(*raw, v)
		}
	}
	return t.store.get(collection, id, v)
}

func (t *memoryTx) Set(ctx context.Context, collection, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}
	t.stage(collection, id, (*json.RawMessage)(&raw))
	return nil
}

func (t *memoryTx) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	var doc map[string]any
	if err := t.Get(ctx, collection, id, &doc); err != nil {
		return err
	}
	for k, v := range fields {
		doc[k] = v
	}
	return t.Set(ctx, collection, id, doc)
}

func (t *memoryTx) Delete(ctx context.Context, collection, id string) error {
	t.stage(collection, id, nil)
	return nil
}

func (t *memoryTx) stage(collection, id string, raw *json.RawMessage) {
	if t.staged[collection] == nil {
		t.staged[collection] = make(map[string]*json.RawMessage)
	}
	t.staged[collection][id] = raw
}

// matchesFilters compares filter values and document values through JSON so
// that numbers, strings and booleans compare by value regardless of the
// caller's Go type.
func matchesFilters(raw json.RawMessage, filters []Filter) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false, err
	}
	for _, f := range filters {
		want, err := normalize(f.Value)
		if err != nil {
			return false, err
		}
		got, err := normalize(doc[f.Field])
		if err != nil {
			return false, err
		}
		if want != got {
			return false, nil
		}
	}
	return true, nil
}

func normalize(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("normalize filter value: %w", err)
	}
	return string(b), nil
}
