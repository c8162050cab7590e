package logging

import (
	"log/slog"
)

// WithLock creates a logger with lock context.
// Useful for lock table and deadlock detector operations.
//
// Example:
//
//	log := logging.WithLock(tid.String(), pid.String())
//	log.Info("lock acquired", "lock_type", "exclusive")
func WithLock(txID string, resourceID string) *slog.Logger {
	return GetLogger().With("tx_id", txID, "resource", resourceID)
}

// WithComponent creates a logger with component/subsystem context.
//
// Example:
//
//	log := logging.WithComponent("bufferpool")
//	log.Info("component initialized")
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}
