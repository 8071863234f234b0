package worker

import (
	"context"
	"time"

	"github.com/rasaeats/api/internal/enum"
	"github.com/rasaeats/api/internal/model"
	"github.com/rasaeats/api/internal/service"
	"github.com/rasaeats/api/internal/store"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper periodically drains queued settlement tasks, finishing the points
// and reward bookkeeping for payments whose follow-up steps failed.
type Sweeper struct {
	store      store.Store
	settlement *service.SettlementService
	cron       *cron.Cron
	timeout    time.Duration
}

// NewSweeper creates a Sweeper. It does not start until Start is called.
func NewSweeper(s store.Store, settlement *service.SettlementService) *Sweeper {
	return &Sweeper{
		store:      s,
		settlement: settlement,
		cron:       cron.New(),
		timeout:    30 * time.Second,
	}
}

// Start schedules the sweep every minute.
func (sw *Sweeper) Start() error {
	if _, err := sw.cron.AddFunc("@every 1m", sw.sweep); err != nil {
		return err
	}
	sw.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (sw *Sweeper) Stop() {
	<-sw.cron.Stop().Done()
}

func (sw *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sw.timeout)
	defer cancel()

	if err := sw.Sweep(ctx); err != nil {
		logrus.WithError(err).Error("settlement sweep failed")
	}
}

// Sweep runs one pass over the queued settlement tasks. Tasks that fail again
// stay queued with their attempt count bumped; the rest of the batch still
// runs.
func (sw *Sweeper) Sweep(ctx context.Context) error {
	var tasks []model.SettlementTask
	if err := sw.store.Query(ctx, enum.ColTasks, nil, &tasks); err != nil {
		return err
	}

	for _, task := range tasks {
		if err := sw.settlement.RetryTask(ctx, task); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"task_id":    task.ID,
				"payment_id": task.PaymentID,
				"attempts":   task.Attempts,
			}).Warn("settlement task retry failed")
		}
	}
	return nil
}
