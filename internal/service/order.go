package service

import (
	"context"
	"log"

	"dispatch/internal/domain"
)

// OrderStatusSync pushes the derived order-status category to the order
// system. It is an external collaborator; implementations must tolerate
// being called at most once per category change.
type OrderStatusSync interface {
	SyncOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
}

// LogOrderSync is a stand-in OrderStatusSync that logs the sync call.
type LogOrderSync struct{}

// NewLogOrderSync creates a LogOrderSync.
func NewLogOrderSync() *LogOrderSync {
	return &LogOrderSync{}
}

// SyncOrderStatus logs the derived order status.
func (s *LogOrderSync) SyncOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	log.Printf("[ORDER_SYNC] Order=%s, Status=%s", orderID, status)
	return nil
}
