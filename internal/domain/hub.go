package domain

import "time"

// HubType represents the kind of fulfillment facility.
type HubType string

const (
	HubTypeRegional        HubType = "regional_hub"
	HubTypeSortingCenter   HubType = "sorting_center"
	HubTypeCollectionPoint HubType = "collection_point"
)

// Hub represents a fixed fulfillment facility in the routing graph.
// Hubs are provisioned administratively and are read-only to the engine.
type Hub struct {
	ID            string
	Name          string
	Code          string // globally unique short code
	Type          HubType
	Coverage      []string // place names / provinces this hub serves
	ConnectedHubs []string // undirected routing edges
	DailyCapacity int
	CreatedAt     time.Time
}

// IsConnectedTo reports whether the hub has a direct edge to another hub.
func (h *Hub) IsConnectedTo(hubID string) bool {
	for _, id := range h.ConnectedHubs {
		if id == hubID {
			return true
		}
	}
	return false
}

// ValidateHubType validates a hub type string.
func ValidateHubType(s string) (HubType, error) {
	switch HubType(s) {
	case HubTypeRegional, HubTypeSortingCenter, HubTypeCollectionPoint:
		return HubType(s), nil
	default:
		return "", ErrUnknownHubType
	}
}
