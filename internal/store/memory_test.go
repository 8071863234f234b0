package store

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type doc struct {
	Name   string `json:"name"`
	Points int64  `json:"points"`
	Active bool   `json:"active"`
}

func TestMemory_GetSet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "Profiles", "C0001", doc{Name: "Ana", Points: 10}); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got doc
	if err := m.Get(ctx, "Profiles", "C0001", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Ana" || got.Points != 10 {
		t.Fatalf("unexpected doc: %+v", got)
	}

	if err := m.Get(ctx, "Profiles", "C0002", &got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestMemory_UpdateMergesFields(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "Profiles", "C0001", doc{Name: "Ana", Points: 10, Active: true}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := m.Update(ctx, "Profiles", "C0001", map[string]any{"points": 25}); err != nil {
		t.Fatalf("update: %v", err)
	}

	var got doc
	if err := m.Get(ctx, "Profiles", "C0001", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Points != 25 || got.Name != "Ana" || !got.Active {
		t.Fatalf("update did not merge: %+v", got)
	}

	if err := m.Update(ctx, "Profiles", "missing", map[string]any{"points": 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestMemory_QueryFilters(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	seed := []doc{
		{Name: "a", Points: 1, Active: true},
		{Name: "b", Points: 2, Active: false},
		{Name: "c", Points: 2, Active: true},
	}
	for i, d := range seed {
		if err := m.Set(ctx, "Rewards", string(rune('1'+i)), d); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	var got []doc
	if err := m.Query(ctx, "Rewards", []Filter{Where("points", 2), Where("active", true)}, &got); err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].Name != "c" {
		t.Fatalf("unexpected result: %+v", got)
	}

	got = nil
	if err := m.Query(ctx, "Rewards", nil, &got); err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 docs, got %d", len(got))
	}
}

func TestMemory_IncrementConcurrent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "Profiles", "C0001", doc{Points: 0}); err != nil {
		t.Fatalf("set: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Increment(ctx, "Profiles", "C0001", "points", 2); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()

	var got doc
	if err := m.Get(ctx, "Profiles", "C0001", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Points != 100 {
		t.Fatalf("expected 100 points, got %d", got.Points)
	}
}

func TestMemory_TransactionRollsBackOnError(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "Counters", "orders", map[string]int64{"last": 5}); err != nil {
		t.Fatalf("set: %v", err)
	}

	boom := errors.New("boom")
	err := m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Set(ctx, "Counters", "orders", map[string]int64{"last": 6}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got: %v", err)
	}

	var c map[string]int64
	if err := m.Get(ctx, "Counters", "orders", &c); err != nil {
		t.Fatalf("get: %v", err)
	}
	if c["last"] != 5 {
		t.Fatalf("write leaked out of failed transaction: %v", c)
	}
}

func TestMemory_TransactionReadsOwnWrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Set(ctx, "Orders", "O0001", doc{Name: "burger"}); err != nil {
			return err
		}
		var d doc
		if err := tx.Get(ctx, "Orders", "O0001", &d); err != nil {
			return err
		}
		if d.Name != "burger" {
			t.Fatalf("staged write not visible: %+v", d)
		}
		return tx.Update(ctx, "Orders", "O0001", map[string]any{"points": 9})
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	var d doc
	if err := m.Get(ctx, "Orders", "O0001", &d); err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.Name != "burger" || d.Points != 9 {
		t.Fatalf("unexpected doc after commit: %+v", d)
	}
}

func TestMemory_DeleteIsIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "Orders", "O0001", doc{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := m.Delete(ctx, "Orders", "O0001"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.Delete(ctx, "Orders", "O0001"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if err := m.Get(ctx, "Orders", "O0001", &doc{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}
