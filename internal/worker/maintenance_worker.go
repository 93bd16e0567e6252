package worker

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/mailroom/internal/guard"
	"github.com/spec-kit/mailroom/internal/service"
)

// MaintenanceWorker runs background upkeep: registering event subscribers and
// sweeping expired claims out of the in-memory guard store.
type MaintenanceWorker struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// StartMaintenanceWorker wires subscribers and schedules sweeps. The sweeper
// is only scheduled when the guard store is the in-memory one; Redis expires
// claims natively.
func StartMaintenanceWorker(eventLog *service.EventLogService, store guard.Store, sweepSpec string, logger *zap.Logger) (*MaintenanceWorker, error) {
	if eventLog != nil {
		eventLog.RegisterHandlers()
	}

	w := &MaintenanceWorker{cron: cron.New(), logger: logger}

	if memory, ok := store.(*guard.MemoryStore); ok {
		if _, err := w.cron.AddFunc(sweepSpec, func() {
			if removed := memory.Sweep(); removed > 0 {
				logger.Debug("swept expired claims", zap.Int("removed", removed))
			}
		}); err != nil {
			return nil, err
		}
	}

	w.cron.Start()
	return w, nil
}

// Stop halts scheduled jobs.
func (w *MaintenanceWorker) Stop() {
	if w != nil && w.cron != nil {
		w.cron.Stop()
	}
}
