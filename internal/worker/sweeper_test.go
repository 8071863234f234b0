package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/rasaeats/api/internal/enum"
	"github.com/rasaeats/api/internal/model"
	"github.com/rasaeats/api/internal/sequence"
	"github.com/rasaeats/api/internal/service"
	"github.com/rasaeats/api/internal/store"
	"github.com/shopspring/decimal"
)

func TestSweepFinishesQueuedSettlements(t *testing.T) {
	mem := store.NewMemory()
	seq := sequence.New(mem)
	settlement := service.NewSettlementService(mem, seq)
	ctx := context.Background()

	order := model.CartItem{
		OrderID:  "O0001",
		Quantity: 1,
		UserID:   "C0001",
		Status:   enum.OrderStatusPending,
	}
	if err := mem.Set(ctx, enum.ColOrders, "O0001", order); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	// Settling without a profile queues the points step.
	total := decimal.RequireFromString("15.75")
	_, err := settlement.Settle(ctx, "C0001", []string{"O0001"}, total, enum.PaymentMethodCash, "")
	if !errors.Is(err, service.ErrBookkeepingPending) {
		t.Fatalf("got %v, want ErrBookkeepingPending", err)
	}

	// The profile shows up before the sweep runs.
	profile := model.Profile{UID: "C0001", Name: "Tester", Email: "c@example.com", Role: enum.RoleCustomer}
	if err := mem.Set(ctx, enum.ColProfiles, "C0001", profile); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	sw := NewSweeper(mem, settlement)
	if err := sw.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	var got model.Profile
	if err := mem.Get(ctx, enum.ColProfiles, "C0001", &got); err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.Points != 15 {
		t.Errorf("points = %d, want 15", got.Points)
	}

	var tasks []model.SettlementTask
	if err := mem.Query(ctx, enum.ColTasks, nil, &tasks); err != nil {
		t.Fatalf("query tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("tasks still queued after sweep: %+v", tasks)
	}
}

func TestSweepKeepsFailingTasksQueued(t *testing.T) {
	mem := store.NewMemory()
	seq := sequence.New(mem)
	settlement := service.NewSettlementService(mem, seq)
	ctx := context.Background()

	task := model.SettlementTask{
		ID:          "task-1",
		PaymentID:   "P0001",
		UserID:      "C0404", // no such profile, the retry fails again
		Points:      10,
		AwardPoints: true,
	}
	if err := mem.Set(ctx, enum.ColTasks, task.ID, task); err != nil {
		t.Fatalf("seed task: %v", err)
	}

	sw := NewSweeper(mem, settlement)
	if err := sw.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	var tasks []model.SettlementTask
	if err := mem.Query(ctx, enum.ColTasks, nil, &tasks); err != nil {
		t.Fatalf("query tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want the failing task kept", len(tasks))
	}
}
