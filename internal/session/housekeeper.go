package session

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Housekeeper prunes idle sessions on a fixed interval until its context ends.
type Housekeeper struct {
	store    Store
	interval time.Duration
	logger   *log.Logger
}

// NewHousekeeper creates a [Housekeeper]. A non-positive interval means [DefaultTTL].
func NewHousekeeper(store Store, interval time.Duration, logger *log.Logger) *Housekeeper {
	if interval <= 0 {
		interval = DefaultTTL
	}
	return &Housekeeper{store: store, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (h *Housekeeper) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Sweep(ctx)
		}
	}
}

// Sweep runs one prune pass and logs the outcome.
func (h *Housekeeper) Sweep(ctx context.Context) int {
	n, err := h.store.Prune(ctx)
	if err != nil {
		h.logger.Error("session prune failed", "error", err)
		return 0
	}
	if n > 0 {
		h.logger.Info("pruned idle sessions", "count", n)
	} else {
		h.logger.Debug("no idle sessions to prune")
	}
	return n
}
