package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"dispatch/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationDeliveryCreated NotificationType = "DELIVERY_CREATED"
	NotificationStatusChanged   NotificationType = "STATUS_CHANGED"
	NotificationDriverAssigned  NotificationType = "DRIVER_ASSIGNED"
)

// Notification represents a buyer-facing notification to be sent.
type Notification struct {
	ID          string
	Type        NotificationType
	RecipientID string
	Title       string
	Message     string
	Priority    string
	ActionLink  string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationService delivers buyer notifications. Dispatch failures are
// logged and never fail the primary operation.
type NotificationService struct {
	// In a real system, this would have:
	// - Push notification client (FCM, APNS)
	// - SMS client (Twilio)
	// - Email client (SendGrid)
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyDeliveryCreated tells the buyer a shipment exists for their order.
func (s *NotificationService) NotifyDeliveryCreated(ctx context.Context, delivery *domain.Delivery) error {
	notification := Notification{
		Type:        NotificationDeliveryCreated,
		RecipientID: delivery.BuyerID,
		Title:       "Order Shipped Soon",
		Message:     fmt.Sprintf("Your order is being prepared for delivery. Tracking number: %s", delivery.TrackingNumber),
		Priority:    "normal",
		ActionLink:  "/track/" + delivery.TrackingNumber,
		Data: map[string]interface{}{
			"delivery_id":     delivery.ID,
			"order_id":        delivery.OrderID,
			"tracking_number": delivery.TrackingNumber,
		},
		CreatedAt: time.Now(),
	}
	return s.send(ctx, notification)
}

// NotifyStatusChanged tells the buyer about a status advance, using the
// fixed status-to-message table.
func (s *NotificationService) NotifyStatusChanged(ctx context.Context, delivery *domain.Delivery, status domain.DeliveryStatus) error {
	message := domain.StatusMessage(status)
	if message == "" {
		return nil // No buyer-facing message for this status.
	}

	priority := "normal"
	if status == domain.StatusOutForDelivery || status == domain.StatusDelivered {
		priority = "high"
	}

	notification := Notification{
		Type:        NotificationStatusChanged,
		RecipientID: delivery.BuyerID,
		Title:       "Delivery Update",
		Message:     message,
		Priority:    priority,
		ActionLink:  "/track/" + delivery.TrackingNumber,
		Data: map[string]interface{}{
			"delivery_id":     delivery.ID,
			"tracking_number": delivery.TrackingNumber,
			"status":          string(status),
		},
		CreatedAt: time.Now(),
	}
	return s.send(ctx, notification)
}

// NotifyDriverAssigned tells the buyer who will carry the next leg.
func (s *NotificationService) NotifyDriverAssigned(ctx context.Context, delivery *domain.Delivery, snapshot *domain.DriverSnapshot) error {
	notification := Notification{
		Type:        NotificationDriverAssigned,
		RecipientID: delivery.BuyerID,
		Title:       "Driver Assigned",
		Message:     fmt.Sprintf("Driver %s has been assigned to your delivery", snapshot.Name),
		Priority:    "normal",
		ActionLink:  "/track/" + delivery.TrackingNumber,
		Data: map[string]interface{}{
			"delivery_id":  delivery.ID,
			"driver_name":  snapshot.Name,
			"vehicle_type": string(snapshot.VehicleType),
		},
		CreatedAt: time.Now(),
	}
	return s.send(ctx, notification)
}

// send delivers a notification (mock implementation).
func (s *NotificationService) send(ctx context.Context, notification Notification) error {
	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Priority=%s, Message=%s",
		notification.Type, notification.RecipientID, notification.Priority, notification.Message)
	return nil
}
