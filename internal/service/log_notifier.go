package service

import (
	"context"
	"sync"

	"plant-care/internal/logger"
)

// LogNotifier writes batches to the log. It is used when no chat transport is configured.
type LogNotifier struct {
	mu     sync.Mutex
	active map[string]Entry
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{active: make(map[string]Entry)}
}

func (n *LogNotifier) Post(_ context.Context, batch Batch) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	logger.Info("care reminder", "entries", len(batch.Entries), "summary", batch.Summary)
	for _, entry := range batch.Entries {
		n.active[entry.ScheduleID] = entry
		logger.Debug("care reminder entry", "schedule", entry.ScheduleID, "plant", entry.PlantName,
			"care_type", entry.CareType, "next_due", entry.NextDue)
	}
	return nil
}

func (n *LogNotifier) Dismiss(_ context.Context, scheduleID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.active[scheduleID]; ok {
		delete(n.active, scheduleID)
		logger.Debug("care reminder entry dismissed", "schedule", scheduleID)
	}
	return nil
}

// Active returns the schedule ids currently shown.
func (n *LogNotifier) Active() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	ids := make([]string, 0, len(n.active))
	for id := range n.active {
		ids = append(ids, id)
	}
	return ids
}
