package domain

// transitions is the static adjacency map of the delivery status graph,
// mirroring the physical fulfillment pipeline. Cancellation from any
// non-terminal state is handled in AllowedNext rather than listed here.
var transitions = map[DeliveryStatus][]DeliveryStatus{
	StatusPending:           {StatusPickupAssigned},
	StatusPickupAssigned:    {StatusPickupInProgress},
	StatusPickupInProgress:  {StatusPickedUp},
	StatusPickedUp:          {StatusAtOriginHub},
	StatusAtOriginHub:       {StatusSorted},
	StatusSorted:            {StatusLineHaulInTransit, StatusDeliveryAssigned},
	StatusLineHaulInTransit: {StatusAtDestinationHub},
	StatusAtDestinationHub:  {StatusDeliveryAssigned},
	StatusDeliveryAssigned:  {StatusOutForDelivery},
	StatusOutForDelivery:    {StatusDelivered, StatusReturned},
	StatusDelivered:         {},
	StatusCancelled:         {},
	StatusReturned:          {},
}

// IsTerminal reports whether a status is final.
func (s DeliveryStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusReturned
}

// AllowedNext returns the set of statuses reachable from current.
func AllowedNext(current DeliveryStatus) []DeliveryStatus {
	next, ok := transitions[current]
	if !ok {
		return nil
	}
	out := make([]DeliveryStatus, len(next), len(next)+1)
	copy(out, next)
	if !current.IsTerminal() {
		out = append(out, StatusCancelled)
	}
	return out
}

// CanTransition reports whether requested is reachable from current.
// Requesting the current status is always accepted as an idempotent no-op.
func CanTransition(current, requested DeliveryStatus) bool {
	if current == requested {
		return true
	}
	for _, s := range AllowedNext(current) {
		if s == requested {
			return true
		}
	}
	return false
}

// OrderStatus is the coarse status category reported to the order system.
type OrderStatus string

const (
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderStatusByDelivery maps delivery statuses to the derived order status.
// Statuses before pickup derive no category and trigger no order sync.
var orderStatusByDelivery = map[DeliveryStatus]OrderStatus{
	StatusPickedUp:          OrderStatusShipped,
	StatusAtOriginHub:       OrderStatusShipped,
	StatusSorted:            OrderStatusShipped,
	StatusLineHaulInTransit: OrderStatusShipped,
	StatusAtDestinationHub:  OrderStatusShipped,
	StatusOutForDelivery:    OrderStatusShipped,
	StatusDelivered:         OrderStatusDelivered,
	StatusCancelled:         OrderStatusCancelled,
}

// DerivedOrderStatus returns the order status category for a delivery
// status, or "" when the status maps to no category.
func DerivedOrderStatus(s DeliveryStatus) OrderStatus {
	return orderStatusByDelivery[s]
}

// statusMessages is the buyer-facing message for each status advance.
var statusMessages = map[DeliveryStatus]string{
	StatusPickupAssigned:    "A driver has been assigned to pick up your order.",
	StatusPickupInProgress:  "The driver is on the way to pick up your order.",
	StatusPickedUp:          "Your order has been picked up.",
	StatusAtOriginHub:       "Your order has arrived at our fulfillment hub.",
	StatusSorted:            "Your order has been sorted and is awaiting transport.",
	StatusLineHaulInTransit: "Your order is in transit between hubs.",
	StatusAtDestinationHub:  "Your order has arrived at the destination hub.",
	StatusDeliveryAssigned:  "A driver has been assigned to deliver your order.",
	StatusOutForDelivery:    "Your order is out for delivery!",
	StatusDelivered:         "Your order has been delivered. Thank you!",
	StatusCancelled:         "Your delivery has been cancelled.",
	StatusReturned:          "Your order could not be delivered and is being returned.",
}

// StatusMessage returns the buyer-facing message for a status, or "".
func StatusMessage(s DeliveryStatus) string {
	return statusMessages[s]
}
