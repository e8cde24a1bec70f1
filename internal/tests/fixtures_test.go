package tests

import (
	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// Two connected hubs used by most scenarios: Metro Hub A covers the pickup
// side, Metro Hub B the delivery side.
func addTestHubs(hubRepo *MockHubRepository) (*domain.Hub, *domain.Hub) {
	hubA := &domain.Hub{
		ID:            "hub-a",
		Name:          "Metro Hub A",
		Code:          "MHA",
		Type:          domain.HubTypeRegional,
		Coverage:      []string{"quezon city", "manila"},
		ConnectedHubs: []string{"hub-b"},
		DailyCapacity: 500,
	}
	hubB := &domain.Hub{
		ID:            "hub-b",
		Name:          "Metro Hub B",
		Code:          "MHB",
		Type:          domain.HubTypeRegional,
		Coverage:      []string{"cebu city", "cebu"},
		ConnectedHubs: []string{"hub-a"},
		DailyCapacity: 500,
	}
	hubRepo.AddHub(hubA)
	hubRepo.AddHub(hubB)
	return hubA, hubB
}

func testDriver(id, hubID string, driverType domain.DriverType, vehicleType domain.VehicleType, maxWeightKg, rating float64) *domain.Driver {
	return &domain.Driver{
		ID:    id,
		Name:  "Driver " + id,
		Phone: "+63-900-" + id,
		HubID: hubID,
		Type:  driverType,
		Vehicle: domain.Vehicle{
			Type:        vehicleType,
			PlateNumber: "PLT-" + id,
			MaxWeightKg: maxWeightKg,
		},
		Status: domain.DriverStatusAvailable,
		Active: true,
		Rating: rating,
	}
}

func crossHubCreateRequest(orderID string) service.CreateDeliveryRequest {
	return service.CreateDeliveryRequest{
		OrderID:  orderID,
		BuyerID:  "buyer-1",
		SellerID: "seller-1",
		PickupAddress: domain.Address{
			Street:   "12 Seller St",
			City:     "Quezon City",
			Province: "Metro Manila",
		},
		DeliveryAddress: domain.Address{
			Street:   "7 Buyer Ave",
			City:     "Cebu City",
			Province: "Cebu",
		},
		PackageSize:     domain.PackageSmall,
		PackageWeightKg: 12,
	}
}

// newEngine wires a DeliveryService against the mocks with no redis layers;
// the version guard and the conditional driver reservation carry correctness.
func newEngine(
	deliveryRepo *MockDeliveryRepository,
	hubRepo *MockHubRepository,
	driverRepo *MockDriverRepository,
	orderSync *RecordingOrderSync,
	publisher *RecordingPublisher,
) *service.DeliveryService {
	routing := service.NewRoutingService(hubRepo)
	matching := service.NewMatchingService(driverRepo, nil, nil)
	tracking := service.NewTrackingGenerator("DSP", deliveryRepo)

	var sync service.OrderStatusSync
	if orderSync != nil {
		sync = orderSync
	}
	var pub service.EventPublisher
	if publisher != nil {
		pub = publisher
	}

	return service.NewDeliveryService(
		deliveryRepo, hubRepo, routing, matching, tracking,
		nil, sync, pub, nil, nil,
	)
}
